package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// insertChunkSize caps rows per INSERT statement to keep statements a
// sane size on large ingestion batches.
const insertChunkSize = 500

// Append appends rows to schema.table, creating the table on first use
// and merging any new columns into the stored schema. Existing rows are
// never touched. The whole batch commits in one transaction, so a
// failed write leaves no partial rows behind and can be retried
// wholesale.
func (c *Client) Append(ctx context.Context, schema, table string, cols []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(cols) == 0 {
		return 0, eris.New("warehouse: append: no columns specified")
	}

	exists, err := c.TableExists(ctx, schema, table)
	if err != nil {
		return 0, err
	}
	if !exists {
		if err := c.createTable(ctx, schema, table, cols, rows); err != nil {
			return 0, err
		}
	} else if err := c.mergeSchema(ctx, schema, table, cols, rows); err != nil {
		return 0, err
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "warehouse: append: begin tx")
	}
	defer tx.Rollback()

	target := QuoteIdent(schema) + "." + QuoteIdent(table)
	colList := quoteAndJoin(cols)
	placeholder := "(" + strings.TrimRight(strings.Repeat("?,", len(cols)), ",") + ")"

	var written int64
	for start := 0; start < len(rows); start += insertChunkSize {
		end := min(start+insertChunkSize, len(rows))
		chunk := rows[start:end]

		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			target, colList,
			strings.TrimRight(strings.Repeat(placeholder+",", len(chunk)), ","),
		)
		args := make([]any, 0, len(chunk)*len(cols))
		for _, row := range chunk {
			if len(row) != len(cols) {
				return 0, eris.Errorf("warehouse: append: row has %d values, want %d", len(row), len(cols))
			}
			args = append(args, row...)
		}

		if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
			return 0, eris.Wrapf(err, "warehouse: append into %s.%s", schema, table)
		}
		written += int64(len(chunk))
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "warehouse: append: commit")
	}
	return written, nil
}

// createTable creates schema.table with column types inferred from the
// first non-nil value seen per column.
func (c *Client) createTable(ctx context.Context, schema, table string, cols []string, rows [][]any) error {
	defs := make([]string, len(cols))
	for i, col := range cols {
		defs[i] = QuoteIdent(col) + " " + inferType(i, rows)
	}
	stmt := fmt.Sprintf("CREATE TABLE %s.%s (%s)",
		QuoteIdent(schema), QuoteIdent(table), strings.Join(defs, ", "))
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrapf(err, "warehouse: create table %s.%s", schema, table)
	}
	return nil
}

// mergeSchema adds columns present in the batch but missing from the
// stored table. Stored columns absent from the batch are left alone.
func (c *Client) mergeSchema(ctx context.Context, schema, table string, cols []string, rows [][]any) error {
	existing, err := c.TableColumns(ctx, schema, table)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(existing))
	for _, col := range existing {
		known[col] = true
	}

	for i, col := range cols {
		if known[col] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s.%s ADD COLUMN %s %s",
			QuoteIdent(schema), QuoteIdent(table), QuoteIdent(col), inferType(i, rows))
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "warehouse: add column %s to %s.%s", col, schema, table)
		}
	}
	return nil
}

// inferType maps the first non-nil value in a column to a DuckDB type.
// All-null columns fall back to VARCHAR.
func inferType(col int, rows [][]any) string {
	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		switch row[col].(type) {
		case time.Time:
			return "TIMESTAMP"
		case int, int32, int64:
			return "BIGINT"
		case float32, float64:
			return "DOUBLE"
		case bool:
			return "BOOLEAN"
		case []byte:
			return "BLOB"
		default:
			return "VARCHAR"
		}
	}
	return "VARCHAR"
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}
