package source

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyReader struct {
	failures int
	calls    int
	err      error
}

func (r *flakyReader) ReadTable(ctx context.Context, table string) (*Batch, error) {
	r.calls++
	if r.calls <= r.failures {
		return nil, r.err
	}
	return &Batch{Columns: []string{"transaction_id"}}, nil
}

func (r *flakyReader) Close() error { return nil }

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
	}
}

func TestReadTableWithRetry_RecoversFromTransientFailure(t *testing.T) {
	r := &flakyReader{failures: 2, err: eris.New("connection reset by peer")}

	batch, err := ReadTableWithRetry(context.Background(), r, "transactions", fastRetry(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"transaction_id"}, batch.Columns)
	assert.Equal(t, 3, r.calls)
}

func TestReadTableWithRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	r := &flakyReader{failures: 10, err: eris.New("connection reset by peer")}

	_, err := ReadTableWithRetry(context.Background(), r, "transactions", fastRetry(3))
	require.Error(t, err)
	assert.Equal(t, 3, r.calls)
}

func TestReadTableWithRetry_MissingTableFailsImmediately(t *testing.T) {
	r := &flakyReader{failures: 10, err: eris.New(`relation "transactions" does not exist`)}

	_, err := ReadTableWithRetry(context.Background(), r, "transactions", fastRetry(3))
	require.Error(t, err)
	assert.Equal(t, 1, r.calls)
}

func TestReadTableWithRetry_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &flakyReader{failures: 10, err: eris.New("connection reset by peer")}

	_, err := ReadTableWithRetry(ctx, r, "transactions", fastRetry(3))
	require.Error(t, err)
	assert.Equal(t, 1, r.calls)
}

func TestRetryableClassification(t *testing.T) {
	assert.True(t, retryable(eris.New("connection refused")))
	assert.False(t, retryable(eris.New("no such table: transactions")))
	assert.False(t, retryable(eris.New("SQLSTATE 42P01")))
}
