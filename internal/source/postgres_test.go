package source

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresReadTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnRows(pgxmock.NewRows([]string{"transaction_id", "customer_id", "total_amount"}).
			AddRow("T-1001", "C-042", 150.0).
			AddRow("T-1002", "C-043", 89.5))

	r := NewPostgresWithQuerier(mock)
	batch, err := r.ReadTable(context.Background(), "transactions")
	require.NoError(t, err)

	assert.Equal(t, []string{"transaction_id", "customer_id", "total_amount"}, batch.Columns)
	assert.Equal(t, 2, batch.Len())
	assert.Equal(t, "T-1001", batch.Rows[0][0])
	assert.Equal(t, 89.5, batch.Rows[1][2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadTable_QueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnError(fmt.Errorf("connection refused"))

	r := NewPostgresWithQuerier(mock)
	_, err = r.ReadTable(context.Background(), "transactions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read table transactions")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReadTable_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnRows(pgxmock.NewRows([]string{"transaction_id"}))

	r := NewPostgresWithQuerier(mock)
	batch, err := r.ReadTable(context.Background(), "transactions")
	require.NoError(t, err)
	assert.Equal(t, 0, batch.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBatchColumnIndex(t *testing.T) {
	b := &Batch{Columns: []string{"a", "b", "c"}}
	assert.Equal(t, 1, b.ColumnIndex("b"))
	assert.Equal(t, -1, b.ColumnIndex("z"))
}
