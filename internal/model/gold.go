package model

import "time"

// TransactionSummary is one row of gold.transactions_summary, keyed by
// (date, region, category).
type TransactionSummary struct {
	TransactionDate  time.Time `json:"transaction_date"`
	Region           string    `json:"region"`
	Category         string    `json:"category"`
	TotalAmount      float64   `json:"total_amount"`
	TransactionCount int64     `json:"transaction_count"`
	AvgOrderValue    float64   `json:"avg_order_value"`
	UniqueCustomers  int64     `json:"unique_customers"`
	FirstTransaction time.Time `json:"first_transaction"`
	LastTransaction  time.Time `json:"last_transaction"`
	CreatedAt        time.Time `json:"created_at"`
}

// RegionalKPI is one row of gold.regional_kpis, keyed by (week_start, region).
type RegionalKPI struct {
	WeekStart        time.Time `json:"week_start"`
	Region           string    `json:"region"`
	Revenue          float64   `json:"revenue"`
	TransactionCount int64     `json:"transaction_count"`
	UniqueCustomers  int64     `json:"unique_customers"`
	AvgOrderValue    float64   `json:"avg_order_value"`
	// GrowthRate is a placeholder; period-over-period growth is not computed.
	GrowthRate  float64   `json:"growth_rate"`
	MarketShare float64   `json:"market_share"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductInsight is one row of gold.product_insights, keyed by
// (product_name, category).
type ProductInsight struct {
	ProductName      string  `json:"product_name"`
	Category         string  `json:"category"`
	Revenue          float64 `json:"revenue"`
	UnitsSold        int64   `json:"units_sold"`
	TransactionCount int64   `json:"transaction_count"`
	UniqueCustomers  int64   `json:"unique_customers"`
	AvgUnitPrice     float64 `json:"avg_unit_price"`
	CategoryRank     int64   `json:"category_rank"`
	// SubstitutionScore is a placeholder; no substitution model exists yet.
	SubstitutionScore float64   `json:"substitution_score"`
	CreatedAt         time.Time `json:"created_at"`
}

// CustomerSegment is one row of gold.customer_segments, keyed by
// (customer_id, region).
type CustomerSegment struct {
	CustomerID           string    `json:"customer_id"`
	Region               string    `json:"region"`
	TotalSpend           float64   `json:"total_spend"`
	VisitFrequency       int64     `json:"visit_frequency"`
	AvgSpend             float64   `json:"avg_spend"`
	PreferredCategories  []string  `json:"preferred_categories"`
	CustomerLifetimeDays int64     `json:"customer_lifetime_days"`
	SpendSegment         string    `json:"spend_segment"`
	FrequencySegment     string    `json:"frequency_segment"`
	SegmentID            string    `json:"segment_id"`
	CreatedAt            time.Time `json:"created_at"`
}

// MarketTrend is one row of gold.market_trends, keyed by (date, category).
type MarketTrend struct {
	TrendDate         time.Time `json:"trend_date"`
	Category          string    `json:"category"`
	DailyRevenue      float64   `json:"daily_revenue"`
	DailyTransactions int64     `json:"daily_transactions"`
	DailyAvgOrder     float64   `json:"daily_avg_order"`
	TrendType         string    `json:"trend_type"`
	// ConfidenceScore and ForecastPeriod are fixed placeholders until a
	// real forecasting model lands.
	ConfidenceScore float64   `json:"confidence_score"`
	ForecastPeriod  int64     `json:"forecast_period"`
	CreatedAt       time.Time `json:"created_at"`
}
