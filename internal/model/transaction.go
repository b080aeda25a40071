// Package model defines the record types flowing through the medallion layers.
package model

import "time"

// RawTransaction is one transaction as produced by the source system.
// Immutable once ingested.
type RawTransaction struct {
	TransactionID string    `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
	CustomerID    string    `json:"customer_id"`
	StoreID       string    `json:"store_id"`
	ProductName   string    `json:"product_name"`
	Category      string    `json:"category"`
	Quantity      int64     `json:"quantity"`
	TotalAmount   float64   `json:"total_amount"`
	Region        string    `json:"region"`
	PaymentMethod string    `json:"payment_method"`
}

// StageStatus is the lifecycle state of one pipeline stage run.
type StageStatus string

const (
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
	StageFailed   StageStatus = "failed"
	StageSkipped  StageStatus = "skipped"
)

// StageResult holds the outcome of a single stage within a pipeline run.
type StageResult struct {
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	Rows       int64       `json:"rows"`
	DurationMS int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
}

// RunResult aggregates the stage results of one full pipeline run.
type RunResult struct {
	Stages    []StageResult `json:"stages"`
	StartedAt time.Time     `json:"started_at"`
	Succeeded bool          `json:"succeeded"`
}

// RowsFor returns the row count recorded for the named stage, or 0.
func (r *RunResult) RowsFor(stage string) int64 {
	for _, s := range r.Stages {
		if s.Name == stage {
			return s.Rows
		}
	}
	return 0
}
