package main

import (
	"github.com/scout-analytics/scout-etl/internal/etl"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// pipelineEnv holds the open warehouse and the wired pipeline shared by
// the run/stage/status commands.
type pipelineEnv struct {
	WH       *warehouse.Client
	Pipeline *etl.Pipeline
}

// Close releases the warehouse. Callers should defer env.Close().
func (pe *pipelineEnv) Close() {
	if pe.WH != nil {
		_ = pe.WH.Close()
	}
}

// initPipeline opens the warehouse catalog and wires the stages.
func initPipeline() (*pipelineEnv, error) {
	wh, err := warehouse.Open(cfg.Warehouse)
	if err != nil {
		return nil, err
	}
	return &pipelineEnv{
		WH:       wh,
		Pipeline: etl.NewPipeline(cfg, wh),
	}, nil
}
