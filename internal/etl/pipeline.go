package etl

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/scout-analytics/scout-etl/internal/config"
	"github.com/scout-analytics/scout-etl/internal/etl/rules"
	"github.com/scout-analytics/scout-etl/internal/metrics"
	"github.com/scout-analytics/scout-etl/internal/model"
	"github.com/scout-analytics/scout-etl/internal/source"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// Stage names, used for the run log and metrics labels.
const (
	StageBronze = "bronze"
	StageSilver = "silver"
	StageGold   = "gold"
)

// Pipeline sequences the medallion stages over one warehouse catalog.
// Stages run strictly in order; the first failure aborts the run and
// the remaining stages are reported as skipped.
type Pipeline struct {
	cfg    *config.Config
	wh     *warehouse.Client
	runLog *warehouse.RunLog

	bronze *BronzeWriter
	silver *SilverTransformer
	gold   *GoldCurator
}

// NewPipeline wires the three stages against an open warehouse client.
func NewPipeline(cfg *config.Config, wh *warehouse.Client) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		wh:     wh,
		runLog: warehouse.NewRunLog(wh),
		bronze: NewBronzeWriter(wh, cfg.Source.SourceSystem),
		silver: NewSilverTransformer(wh, rules.MergeRegionNames(cfg.Regions.Names)),
		gold:   NewGoldCurator(wh, cfg.Segments),
	}
}

// RunLog exposes the run history for the status command.
func (p *Pipeline) RunLog() *warehouse.RunLog {
	return p.runLog
}

// Run executes bronze → silver → gold. On the first stage error the run
// stops: silver and gold are never built on top of a failed ingestion.
// Configuration errors abort before the first stage, so nothing is
// written to the warehouse or the run log.
func (p *Pipeline) Run(ctx context.Context) (*model.RunResult, error) {
	result := &model.RunResult{StartedAt: time.Now().UTC()}

	if err := p.cfg.Source.Validate(); err != nil {
		for _, name := range []string{StageBronze, StageSilver, StageGold} {
			result.Stages = append(result.Stages, model.StageResult{
				Name:   name,
				Status: model.StageSkipped,
			})
		}
		return result, err
	}

	stages := []struct {
		name string
		fn   func(context.Context) (int64, error)
	}{
		{StageBronze, p.RunBronze},
		{StageSilver, p.RunSilver},
		{StageGold, p.RunGold},
	}

	for i, s := range stages {
		sr, err := p.runStage(ctx, s.name, s.fn)
		result.Stages = append(result.Stages, sr)
		if err != nil {
			for _, skipped := range stages[i+1:] {
				result.Stages = append(result.Stages, model.StageResult{
					Name:   skipped.name,
					Status: model.StageSkipped,
				})
			}
			return result, err
		}
	}

	result.Succeeded = true
	zap.L().Info("pipeline: run complete",
		zap.Int64("bronze_rows", result.RowsFor(StageBronze)),
		zap.Int64("silver_rows", result.RowsFor(StageSilver)),
		zap.Int64("gold_rows", result.RowsFor(StageGold)),
		zap.Duration("elapsed", time.Since(result.StartedAt)),
	)
	return result, nil
}

// RunBronze reads the source table and appends it to bronze.
func (p *Pipeline) RunBronze(ctx context.Context) (int64, error) {
	reader, err := source.New(ctx, p.cfg.Source)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	batch, err := source.ReadTableWithRetry(ctx, reader, p.cfg.Source.Table, source.DefaultRetryConfig())
	if err != nil {
		return 0, err
	}
	n, err := p.bronze.Write(ctx, batch)
	if err == nil {
		metrics.RowsWritten.WithLabelValues(warehouse.LayerBronze).Add(float64(n))
	}
	return n, err
}

// RunSilver rebuilds the cleaned silver table from bronze.
func (p *Pipeline) RunSilver(ctx context.Context) (int64, error) {
	n, err := p.silver.Transform(ctx)
	if err == nil {
		metrics.RowsWritten.WithLabelValues(warehouse.LayerSilver).Add(float64(n))
	}
	return n, err
}

// RunGold rebuilds the five gold views from silver.
func (p *Pipeline) RunGold(ctx context.Context) (int64, error) {
	n, err := p.gold.Curate(ctx)
	if err == nil {
		metrics.RowsWritten.WithLabelValues(warehouse.LayerGold).Add(float64(n))
	}
	return n, err
}

// runStage wraps one stage with run-log bookkeeping, metrics, and
// timing. Run-log write failures are logged but never fail the stage:
// bookkeeping must not mask or manufacture pipeline errors.
func (p *Pipeline) runStage(ctx context.Context, name string, fn func(context.Context) (int64, error)) (model.StageResult, error) {
	start := time.Now()
	zap.L().Info("pipeline: stage starting", zap.String("stage", name))

	if logErr := p.runLog.Init(ctx); logErr != nil {
		zap.L().Warn("pipeline: run log init failed", zap.String("stage", name), zap.Error(logErr))
	}
	runID, logErr := p.runLog.Start(ctx, name)
	if logErr != nil {
		zap.L().Warn("pipeline: run log start failed", zap.String("stage", name), zap.Error(logErr))
	}

	rows, err := fn(ctx)
	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

	sr := model.StageResult{Name: name, Rows: rows, DurationMS: elapsed.Milliseconds()}
	if err != nil {
		sr.Status = model.StageFailed
		sr.Error = eris.ToString(err, false)
		metrics.StageRuns.WithLabelValues(name, string(model.StageFailed)).Inc()
		if runID != "" {
			if logErr := p.runLog.Fail(ctx, runID, sr.Error); logErr != nil {
				zap.L().Warn("pipeline: run log update failed", zap.String("stage", name), zap.Error(logErr))
			}
		}
		zap.L().Error("pipeline: stage failed",
			zap.String("stage", name),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return sr, eris.Wrapf(err, "pipeline: %s stage", name)
	}

	sr.Status = model.StageComplete
	metrics.StageRuns.WithLabelValues(name, string(model.StageComplete)).Inc()
	if runID != "" {
		if logErr := p.runLog.Complete(ctx, runID, rows); logErr != nil {
			zap.L().Warn("pipeline: run log update failed", zap.String("stage", name), zap.Error(logErr))
		}
	}
	zap.L().Info("pipeline: stage complete",
		zap.String("stage", name),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	return sr, nil
}
