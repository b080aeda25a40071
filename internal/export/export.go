// Package export writes gold tables to analyst-friendly files.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Exporter reads gold tables and writes them out as CSV or XLSX.
type Exporter struct {
	wh *warehouse.Client
}

// New creates an exporter over an open warehouse.
func New(wh *warehouse.Client) *Exporter {
	return &Exporter{wh: wh}
}

// Export writes one gold table to dir in the given format and returns
// the output path.
func (e *Exporter) Export(ctx context.Context, table, format, dir string) (string, error) {
	exists, err := e.wh.TableExists(ctx, warehouse.LayerGold, table)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", eris.Errorf("export: gold table %s does not exist, run the pipeline first", table)
	}

	cols, rows, err := e.readTable(ctx, table)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, table+"."+format)
	switch format {
	case FormatCSV:
		err = writeCSV(path, cols, rows)
	case FormatXLSX:
		err = writeXLSX(path, table, cols, rows)
	default:
		return "", eris.Errorf("export: unknown format %q (valid: csv, xlsx)", format)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("export: table written",
		zap.String("table", table),
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return path, nil
}

// ExportAll writes every listed gold table concurrently. Reads against
// the warehouse are read-only, so fan-out is safe.
func (e *Exporter) ExportAll(ctx context.Context, tables []string, format, dir string) ([]string, error) {
	paths := make([]string, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	for i, table := range tables {
		g.Go(func() error {
			path, err := e.Export(ctx, table, format, dir)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (e *Exporter) readTable(ctx context.Context, table string) ([]string, [][]string, error) {
	query := fmt.Sprintf("SELECT * FROM gold.%s", warehouse.QuoteIdent(table))
	rows, err := e.wh.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "export: read gold.%s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, eris.Wrap(err, "export: read columns")
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, eris.Wrap(err, "export: scan row")
		}
		record := make([]string, len(cols))
		for i, v := range vals {
			record[i] = formatValue(v)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "export: iterate rows")
	}
	return cols, out, nil
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case float64:
		return fmt.Sprintf("%g", t)
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func writeCSV(path string, cols []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return eris.Wrap(err, "export: write header")
	}
	if err := w.WriteAll(rows); err != nil {
		return eris.Wrap(err, "export: write rows")
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}

func writeXLSX(path, sheetName string, cols []string, rows [][]string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrapf(err, "export: add sheet %s", sheetName)
	}

	header := sheet.AddRow()
	for _, c := range cols {
		header.AddCell().SetString(c)
	}
	for _, r := range rows {
		row := sheet.AddRow()
		for _, v := range r {
			row.AddCell().SetString(v)
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
