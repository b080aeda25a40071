package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/scout-analytics/scout-etl/internal/etl"
	"github.com/scout-analytics/scout-etl/internal/export"
)

var (
	exportTable  string
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export gold tables to CSV or XLSX files",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline()
		if err != nil {
			return err
		}
		defer env.Close()

		ex := export.New(env.WH)

		if exportTable == "all" {
			paths, err := ex.ExportAll(cmd.Context(), etl.GoldTables, exportFormat, exportDir)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		}

		if !validGoldTable(exportTable) {
			return eris.Errorf("export: unknown gold table %q", exportTable)
		}
		path, err := ex.Export(cmd.Context(), exportTable, exportFormat, exportDir)
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func validGoldTable(name string) bool {
	for _, t := range etl.GoldTables {
		if t == name {
			return true
		}
	}
	return false
}

func init() {
	exportCmd.Flags().StringVar(&exportTable, "table", "all", "gold table to export, or \"all\"")
	exportCmd.Flags().StringVar(&exportFormat, "format", export.FormatCSV, "output format (csv or xlsx)")
	exportCmd.Flags().StringVar(&exportDir, "out", ".", "output directory")
	rootCmd.AddCommand(exportCmd)
}
