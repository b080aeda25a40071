package warehouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scout-analytics/scout-etl/internal/model"
)

func TestRunLogLifecycle(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	l := NewRunLog(c)
	require.NoError(t, l.Init(ctx))

	// Never run: no last success.
	last, err := l.LastSuccess(ctx, "bronze")
	require.NoError(t, err)
	assert.Nil(t, last)

	id, err := l.Start(ctx, "bronze")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, l.Complete(ctx, id, 42))

	entries, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "bronze", entries[0].Stage)
	assert.Equal(t, model.StageComplete, entries[0].Status)
	assert.Equal(t, int64(42), entries[0].RowsWritten)
	assert.NotNil(t, entries[0].CompletedAt)

	last, err = l.LastSuccess(ctx, "bronze")
	require.NoError(t, err)
	require.NotNil(t, last)
}

func TestRunLogFail(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	l := NewRunLog(c)
	require.NoError(t, l.Init(ctx))

	id, err := l.Start(ctx, "silver")
	require.NoError(t, err)
	require.NoError(t, l.Fail(ctx, id, "missing expected column"))

	entries, err := l.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.StageFailed, entries[0].Status)
	assert.Equal(t, "missing expected column", entries[0].Error)

	// A failed run is not a success.
	last, err := l.LastSuccess(ctx, "silver")
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestRunLogInitIdempotent(t *testing.T) {
	c := openTestClient(t)
	ctx := context.Background()

	l := NewRunLog(c)
	require.NoError(t, l.Init(ctx))
	require.NoError(t, l.Init(ctx))
}
