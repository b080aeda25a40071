package source

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteReader reads the source table from an embedded SQLite file.
// The reference source system ships a seeded SQLite database, so this
// is the driver used for local development and smoke runs.
type SQLiteReader struct {
	db *sql.DB
}

// NewSQLite opens the SQLite database at the given path.
func NewSQLite(dsn string) (*SQLiteReader, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "source: open sqlite")
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "source: set busy_timeout")
	}
	return &SQLiteReader{db: db}, nil
}

// ReadTable reads every row of the named table into a Batch.
func (r *SQLiteReader) ReadTable(ctx context.Context, table string) (*Batch, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT * FROM "+quoteIdent(table))
	if err != nil {
		return nil, eris.Wrapf(err, "source: read table %s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, eris.Wrapf(err, "source: columns of %s", table)
	}

	batch := &Batch{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, eris.Wrapf(err, "source: scan row from %s", table)
		}
		batch.Rows = append(batch.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "source: iterate table %s", table)
	}

	return batch, nil
}

// Close closes the database handle.
func (r *SQLiteReader) Close() error {
	return r.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
