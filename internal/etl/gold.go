package etl

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scout-analytics/scout-etl/internal/config"
	"github.com/scout-analytics/scout-etl/internal/etl/rules"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// GoldTables lists the curated gold views in build order.
var GoldTables = []string{
	"transactions_summary",
	"regional_kpis",
	"product_insights",
	"customer_segments",
	"market_trends",
}

// GoldCurator rebuilds the five gold analytics views from silver. Like
// silver, every gold table is a full overwrite per run; views are built
// sequentially so a failure leaves earlier views current and later ones
// at their previous state.
type GoldCurator struct {
	wh       *warehouse.Client
	segments config.SegmentConfig
}

// NewGoldCurator creates a gold curator using the configured
// segmentation thresholds.
func NewGoldCurator(wh *warehouse.Client, segments config.SegmentConfig) *GoldCurator {
	return &GoldCurator{wh: wh, segments: segments}
}

// Curate rebuilds all gold views and returns the total row count
// written across them.
func (c *GoldCurator) Curate(ctx context.Context) (int64, error) {
	exists, err := c.wh.TableExists(ctx, warehouse.LayerSilver, SilverTable)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, eris.New("gold: silver table missing, run transformation first")
	}

	builders := map[string]func() string{
		"transactions_summary": c.transactionsSummarySQL,
		"regional_kpis":        c.regionalKPIsSQL,
		"product_insights":     c.productInsightsSQL,
		"customer_segments":    c.customerSegmentsSQL,
		"market_trends":        c.marketTrendsSQL,
	}

	var total int64
	for _, table := range GoldTables {
		if _, err := c.wh.DB().ExecContext(ctx, builders[table]()); err != nil {
			return total, eris.Wrapf(err, "gold: rebuild %s", table)
		}
		n, err := c.wh.TableCount(ctx, warehouse.LayerGold, table)
		if err != nil {
			return total, err
		}
		total += n
		zap.L().Info("gold: view rebuilt",
			zap.String("table", table),
			zap.Int64("rows", n),
		)
	}
	return total, nil
}

func (c *GoldCurator) transactionsSummarySQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE TABLE gold.transactions_summary AS
SELECT transaction_date,
       region_normalized                 AS region,
       category_standardized             AS category,
       SUM(total_amount)                 AS total_amount,
       COUNT(*)                          AS transaction_count,
       AVG(total_amount)                 AS avg_order_value,
       COUNT(DISTINCT customer_id)       AS unique_customers,
       MIN("timestamp")                  AS first_transaction,
       MAX("timestamp")                  AS last_transaction,
       current_timestamp                 AS created_at
FROM silver.%s
GROUP BY transaction_date, region_normalized, category_standardized
ORDER BY transaction_date, region, category`, warehouse.QuoteIdent(SilverTable))
}

// growth_rate is a pinned placeholder until enough history accrues to
// compute week-over-week deltas.
func (c *GoldCurator) regionalKPIsSQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE TABLE gold.regional_kpis AS
WITH weekly AS (
    SELECT region_normalized                        AS region,
           date_trunc('week', transaction_date)     AS week_start,
           SUM(total_amount)                        AS revenue,
           COUNT(*)                                 AS transaction_count,
           COUNT(DISTINCT customer_id)              AS unique_customers,
           AVG(total_amount)                        AS avg_order_value
    FROM silver.%s
    GROUP BY region_normalized, date_trunc('week', transaction_date)
)
SELECT region,
       week_start,
       revenue,
       transaction_count,
       unique_customers,
       avg_order_value,
       CAST(0.0 AS DOUBLE) AS growth_rate,
       COALESCE(ROUND(revenue * 100.0 / NULLIF(SUM(revenue) OVER (PARTITION BY week_start), 0), 2), 0.0) AS market_share,
       current_timestamp AS created_at
FROM weekly
ORDER BY week_start, region`, warehouse.QuoteIdent(SilverTable))
}

// substitution_score is a pinned placeholder: the upstream job filled it
// with random noise, which would break run-to-run reproducibility.
func (c *GoldCurator) productInsightsSQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE TABLE gold.product_insights AS
WITH product AS (
    SELECT product_name,
           category_standardized         AS category,
           SUM(total_amount)             AS revenue,
           SUM(quantity)                 AS units_sold,
           COUNT(*)                      AS transaction_count,
           COUNT(DISTINCT customer_id)   AS unique_customers,
           AVG(amount_per_unit)          AS avg_unit_price
    FROM silver.%s
    GROUP BY product_name, category_standardized
)
SELECT product_name,
       category,
       revenue,
       units_sold,
       transaction_count,
       unique_customers,
       avg_unit_price,
       DENSE_RANK() OVER (PARTITION BY category ORDER BY revenue DESC, product_name) AS category_rank,
       CAST(0.0 AS DOUBLE) AS substitution_score,
       current_timestamp AS created_at
FROM product
ORDER BY category, category_rank, product_name`, warehouse.QuoteIdent(SilverTable))
}

func (c *GoldCurator) customerSegmentsSQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE TABLE gold.customer_segments AS
WITH customer AS (
    SELECT customer_id,
           region_normalized                                         AS region,
           SUM(total_amount)                                         AS total_spend,
           COUNT(*)                                                  AS visit_frequency,
           AVG(total_amount)                                         AS avg_spend,
           MIN(transaction_date)                                     AS first_purchase,
           MAX(transaction_date)                                     AS last_purchase,
           list_sort(list_distinct(list(category_standardized)))     AS preferred_categories
    FROM silver.%s
    GROUP BY customer_id, region_normalized
),
labeled AS (
    SELECT *,
           %s AS spend_segment,
           %s AS frequency_segment
    FROM customer
)
SELECT customer_id,
       region,
       total_spend,
       visit_frequency,
       avg_spend,
       preferred_categories,
       date_diff('day', first_purchase, last_purchase) AS customer_lifetime_days,
       spend_segment,
       frequency_segment,
       spend_segment || '_' || frequency_segment AS segment_id,
       current_timestamp AS created_at
FROM labeled
ORDER BY customer_id, region`,
		warehouse.QuoteIdent(SilverTable),
		rules.SpendCaseSQL("total_spend", c.segments),
		rules.FrequencyCaseSQL("visit_frequency", c.segments))
}

// confidence_score and forecast_period are pinned constants until a
// real forecasting model lands.
func (c *GoldCurator) marketTrendsSQL() string {
	return fmt.Sprintf(`
CREATE OR REPLACE TABLE gold.market_trends AS
SELECT transaction_date      AS trend_date,
       category_standardized AS category,
       SUM(total_amount)     AS daily_revenue,
       COUNT(*)              AS daily_transactions,
       AVG(total_amount)     AS daily_avg_order,
       'daily_revenue'       AS trend_type,
       CAST(0.95 AS DOUBLE)  AS confidence_score,
       30                    AS forecast_period,
       current_timestamp     AS created_at
FROM silver.%s
GROUP BY transaction_date, category_standardized
ORDER BY trend_date, category`, warehouse.QuoteIdent(SilverTable))
}
