package source

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/scout-analytics/scout-etl/internal/config"
)

// Querier is the subset of pgxpool.Pool the reader needs. pgxmock
// satisfies it in tests.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresReader reads the source table over the PostgreSQL wire protocol.
type PostgresReader struct {
	pool  Querier
	close func()
}

// NewPostgres connects to the source database and verifies the
// connection up front, so a connectivity failure aborts the run before
// any bronze write happens.
func NewPostgres(ctx context.Context, cfg config.SourceConfig) (*PostgresReader, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "source: parse database url")
	}
	poolCfg.ConnConfig.User = cfg.Username
	poolCfg.ConnConfig.Password = cfg.Password

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "source: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "source: ping")
	}

	return &PostgresReader{pool: pool, close: pool.Close}, nil
}

// NewPostgresWithQuerier wraps an existing querier (used by tests).
func NewPostgresWithQuerier(q Querier) *PostgresReader {
	return &PostgresReader{pool: q, close: func() {}}
}

// ReadTable reads every row of the named table into a Batch.
func (r *PostgresReader) ReadTable(ctx context.Context, table string) (*Batch, error) {
	rows, err := r.pool.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return nil, eris.Wrapf(err, "source: read table %s", table)
	}
	defer rows.Close()

	var cols []string
	for _, fd := range rows.FieldDescriptions() {
		cols = append(cols, fd.Name)
	}

	batch := &Batch{Columns: cols}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, eris.Wrapf(err, "source: scan row from %s", table)
		}
		batch.Rows = append(batch.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(err, "source: iterate table %s", table)
	}

	return batch, nil
}

// Close releases the connection pool.
func (r *PostgresReader) Close() error {
	r.close()
	return nil
}
