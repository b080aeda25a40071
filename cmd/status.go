package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scout-analytics/scout-etl/internal/etl"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show layer row counts and recent stage runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initPipeline()
		if err != nil {
			return err
		}
		defer env.Close()

		fmt.Println("Layers:")
		layers := []struct {
			layer string
			table string
		}{
			{warehouse.LayerBronze, etl.BronzeTable},
			{warehouse.LayerSilver, etl.SilverTable},
		}
		for _, l := range layers {
			printLayerCount(ctx, env, l.layer, l.table)
		}
		for _, table := range etl.GoldTables {
			printLayerCount(ctx, env, warehouse.LayerGold, table)
		}

		if err := env.Pipeline.RunLog().Init(ctx); err != nil {
			return err
		}
		entries, err := env.Pipeline.RunLog().List(ctx, statusLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		fmt.Println("\nRecent runs:")
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STAGE\tSTATUS\tSTARTED\tROWS\tERROR")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				e.Stage, e.Status, e.StartedAt.Format(time.RFC3339), e.RowsWritten, e.Error)
		}
		return w.Flush()
	},
}

func printLayerCount(ctx context.Context, env *pipelineEnv, layer, table string) {
	exists, err := env.WH.TableExists(ctx, layer, table)
	if err != nil || !exists {
		fmt.Printf("  %s.%s\t(absent)\n", layer, table)
		return
	}
	n, err := env.WH.TableCount(ctx, layer, table)
	if err != nil {
		fmt.Printf("  %s.%s\t(error: %v)\n", layer, table, err)
		return
	}
	fmt.Printf("  %s.%s\t%d rows\n", layer, table, n)
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 20, "number of recent runs to show")
	rootCmd.AddCommand(statusCmd)
}
