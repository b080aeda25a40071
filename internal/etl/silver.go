package etl

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scout-analytics/scout-etl/internal/etl/rules"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// SilverTransformer rebuilds the cleaned silver table from bronze. Each
// run is a full overwrite: silver always reflects the current bronze
// contents and the current cleaning rules.
type SilverTransformer struct {
	wh      *warehouse.Client
	regions map[string]string
}

// NewSilverTransformer creates a silver transformer using the provided
// region code → display name mapping.
func NewSilverTransformer(wh *warehouse.Client, regions map[string]string) *SilverTransformer {
	return &SilverTransformer{wh: wh, regions: regions}
}

// Transform drops invalid rows, derives the analysis columns, and
// overwrites silver.transactions_cleaned. Returns the resulting row
// count.
//
// transaction_day_of_week is 1=Sunday through 7=Saturday, the numbering
// downstream consumers already depend on (DuckDB's dayofweek is
// 0-based from Sunday, hence the +1).
func (t *SilverTransformer) Transform(ctx context.Context) (int64, error) {
	exists, err := t.wh.TableExists(ctx, warehouse.LayerBronze, BronzeTable)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, eris.New("silver: bronze table missing, run ingestion first")
	}

	query := fmt.Sprintf(`
CREATE OR REPLACE TABLE %s.%s AS
SELECT * REPLACE (%s AS data_quality_score),
       CAST("timestamp" AS DATE)                         AS transaction_date,
       EXTRACT(hour FROM CAST("timestamp" AS TIMESTAMP)) AS transaction_hour,
       dayofweek(CAST("timestamp" AS TIMESTAMP)) + 1     AS transaction_day_of_week,
       total_amount / quantity                           AS amount_per_unit,
       %s AS region_normalized,
       lower(trim(category))                             AS category_standardized,
       current_timestamp                                 AS processed_timestamp
FROM %s.%s
WHERE total_amount > 0
  AND quantity > 0
  AND customer_id IS NOT NULL
  AND trim(CAST(customer_id AS VARCHAR)) <> ''
ORDER BY "timestamp", transaction_id`,
		warehouse.LayerSilver, warehouse.QuoteIdent(SilverTable),
		rules.QualityCaseSQL(),
		rules.RegionCaseSQL("region", t.regions),
		warehouse.LayerBronze, warehouse.QuoteIdent(BronzeTable))

	if _, err := t.wh.DB().ExecContext(ctx, query); err != nil {
		return 0, eris.Wrap(err, "silver: rebuild transactions_cleaned")
	}

	n, err := t.wh.TableCount(ctx, warehouse.LayerSilver, SilverTable)
	if err != nil {
		return 0, err
	}

	zap.L().Info("silver: transformation complete",
		zap.Int64("rows", n),
		zap.String("location", t.wh.LayerPath(warehouse.LayerSilver, "transactions", "cleaned")),
	)
	return n, nil
}
