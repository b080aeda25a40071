// Package etl implements the Bronze → Silver → Gold medallion stages
// over the warehouse catalog.
package etl

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scout-analytics/scout-etl/internal/source"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// Layer table names.
const (
	BronzeTable = "transactions_raw"
	SilverTable = "transactions_cleaned"
)

// Ingestion metadata columns appended to every bronze row.
const (
	colIngestionTimestamp = "ingestion_timestamp"
	colSourceSystem       = "source_system"
	colQualityScore       = "data_quality_score"
)

// BronzeWriter appends raw source batches to the append-only bronze
// table. Prior rows are never updated or deleted; corrections arrive as
// new rows.
type BronzeWriter struct {
	wh           *warehouse.Client
	sourceSystem string
}

// NewBronzeWriter creates a bronze writer tagging rows with the given
// source system identifier.
func NewBronzeWriter(wh *warehouse.Client, sourceSystem string) *BronzeWriter {
	return &BronzeWriter{wh: wh, sourceSystem: sourceSystem}
}

// Write appends the batch plus ingestion metadata to bronze, merging
// any new source columns into the stored schema. The append is a single
// transaction: a mid-batch storage failure commits nothing and the
// batch can be retried wholesale.
func (w *BronzeWriter) Write(ctx context.Context, batch *source.Batch) (int64, error) {
	if batch.Len() == 0 {
		zap.L().Info("bronze: source batch empty, nothing to ingest")
		return 0, nil
	}

	ingestedAt := time.Now().UTC()
	cols := append(append([]string{}, batch.Columns...),
		colIngestionTimestamp, colSourceSystem, colQualityScore)

	rows := make([][]any, len(batch.Rows))
	for i, row := range batch.Rows {
		rows[i] = append(append([]any{}, row...), ingestedAt, w.sourceSystem, 1.0)
	}

	n, err := w.wh.Append(ctx, warehouse.LayerBronze, BronzeTable, cols, rows)
	if err != nil {
		return 0, err
	}

	zap.L().Info("bronze: ingestion complete",
		zap.Int64("rows", n),
		zap.String("source_system", w.sourceSystem),
		zap.String("location", w.wh.LayerPath(warehouse.LayerBronze, "transactions", "raw")),
	)
	return n, nil
}
