// Package source reads raw transaction batches from the external
// transactional system feeding the bronze layer.
package source

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/scout-analytics/scout-etl/internal/config"
)

// Batch is an in-memory tabular record set with a dynamic column list.
// The column list is carried end-to-end so new source columns survive
// into the bronze schema.
type Batch struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows in the batch.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (b *Batch) ColumnIndex(name string) int {
	for i, c := range b.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Reader reads one named table from the source system.
type Reader interface {
	ReadTable(ctx context.Context, table string) (*Batch, error)
	Close() error
}

// New opens a Reader for the configured source driver. Configuration
// errors (missing credentials, unknown driver) surface here, before any
// stage writes.
func New(ctx context.Context, cfg config.SourceConfig) (Reader, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "postgres":
		return NewPostgres(ctx, cfg)
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("source: unknown driver %q", cfg.Driver)
	}
}
