package warehouse

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/scout-analytics/scout-etl/internal/model"
)

// RunEntry is one row of main.etl_runs.
type RunEntry struct {
	ID          string            `json:"id"`
	Stage       string            `json:"stage"`
	Status      model.StageStatus `json:"status"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	RowsWritten int64             `json:"rows_written"`
	Error       string            `json:"error,omitempty"`
}

// RunLog records stage outcomes in the warehouse catalog so operators
// can audit layer-by-layer progress across runs.
type RunLog struct {
	client *Client
}

// NewRunLog creates a RunLog backed by the given warehouse client.
func NewRunLog(c *Client) *RunLog {
	return &RunLog{client: c}
}

// Init creates the run log table if it does not exist.
func (l *RunLog) Init(ctx context.Context) error {
	_, err := l.client.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS etl_runs (
			id           VARCHAR PRIMARY KEY,
			stage        VARCHAR NOT NULL,
			status       VARCHAR NOT NULL,
			started_at   TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			rows_written BIGINT NOT NULL DEFAULT 0,
			error        VARCHAR
		)`)
	return eris.Wrap(err, "runlog: init")
}

// Start records the beginning of a stage run and returns its ID.
func (l *RunLog) Start(ctx context.Context, stage string) (string, error) {
	id := uuid.New().String()
	_, err := l.client.db.ExecContext(ctx,
		`INSERT INTO etl_runs (id, stage, status, started_at) VALUES (?, ?, ?, ?)`,
		id, stage, string(model.StageRunning), time.Now().UTC(),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start %s", stage)
	}
	return id, nil
}

// Complete marks a stage run as successfully completed.
func (l *RunLog) Complete(ctx context.Context, id string, rows int64) error {
	_, err := l.client.db.ExecContext(ctx,
		`UPDATE etl_runs SET status = ?, completed_at = ?, rows_written = ? WHERE id = ?`,
		string(model.StageComplete), time.Now().UTC(), rows, id,
	)
	return eris.Wrapf(err, "runlog: complete %s", id)
}

// Fail marks a stage run as failed with an error message.
func (l *RunLog) Fail(ctx context.Context, id string, errMsg string) error {
	_, err := l.client.db.ExecContext(ctx,
		`UPDATE etl_runs SET status = ?, completed_at = ?, error = ? WHERE id = ?`,
		string(model.StageFailed), time.Now().UTC(), errMsg, id,
	)
	return eris.Wrapf(err, "runlog: fail %s", id)
}

// LastSuccess returns the started_at of the most recent completed run
// for a stage, or nil if the stage has never completed.
func (l *RunLog) LastSuccess(ctx context.Context, stage string) (*time.Time, error) {
	rows, err := l.client.db.QueryContext(ctx,
		`SELECT started_at FROM etl_runs
		 WHERE stage = ? AND status = ?
		 ORDER BY started_at DESC LIMIT 1`,
		stage, string(model.StageComplete),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: last success for %s", stage)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var t time.Time
	if err := rows.Scan(&t); err != nil {
		return nil, eris.Wrapf(err, "runlog: scan last success for %s", stage)
	}
	return &t, nil
}

// List returns the most recent entries, newest first.
func (l *RunLog) List(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.client.db.QueryContext(ctx,
		`SELECT id, stage, status, started_at, completed_at, rows_written, error
		 FROM etl_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var status string
		var completedAt *time.Time
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Stage, &status, &e.StartedAt, &completedAt, &e.RowsWritten, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.Status = model.StageStatus(status)
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
