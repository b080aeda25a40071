// Package warehouse manages the DuckDB catalog backing the medallion
// layers: an appendable, schema-evolving, transactional columnar store
// with one schema per layer.
package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/rotisserie/eris"

	"github.com/scout-analytics/scout-etl/internal/config"
)

// Layer names, used as schema names and storage path prefixes.
const (
	LayerBronze = "bronze"
	LayerSilver = "silver"
	LayerGold   = "gold"
)

// Client wraps the DuckDB connection for one orchestrator run. It is
// opened at the start of a run and must be closed on every exit path.
type Client struct {
	db  *sql.DB
	cfg config.WarehouseConfig
}

// Open opens the catalog, configures object-store credentials when the
// root is remote, and ensures the three layer schemas exist.
func Open(cfg config.WarehouseConfig) (*Client, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, eris.Wrap(err, "warehouse: open catalog")
	}

	c := &Client{db: db, cfg: cfg}
	if err := c.initialize(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) initialize(ctx context.Context) error {
	if strings.HasPrefix(c.cfg.Root, "s3://") && c.cfg.StorageKeyID != "" {
		if err := c.configureStorageSecret(ctx); err != nil {
			return err
		}
	}

	for _, layer := range []string{LayerBronze, LayerSilver, LayerGold} {
		stmt := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", QuoteIdent(layer))
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return eris.Wrapf(err, "warehouse: create schema %s", layer)
		}
	}
	return nil
}

// configureStorageSecret registers object-store credentials with DuckDB
// so layer paths under an s3-style root resolve.
func (c *Client) configureStorageSecret(ctx context.Context) error {
	stmt := fmt.Sprintf(`CREATE SECRET IF NOT EXISTS (
		TYPE S3,
		KEY_ID %s,
		SECRET %s,
		REGION %s
	)`, quoteLiteral(c.cfg.StorageKeyID), quoteLiteral(c.cfg.StorageSecret), quoteLiteral(c.cfg.StorageRegion))
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return eris.Wrap(err, "warehouse: create storage secret")
	}
	return nil
}

// DB exposes the underlying handle for stage SQL.
func (c *Client) DB() *sql.DB {
	return c.db
}

// LayerPath returns the layer-prefixed storage location, e.g.
// <root>/bronze/transactions/raw.
func (c *Client) LayerPath(layer string, parts ...string) string {
	segments := append([]string{strings.TrimRight(c.cfg.Root, "/"), layer}, parts...)
	return strings.Join(segments, "/")
}

// TableExists reports whether schema.table exists in the catalog.
func (c *Client) TableExists(ctx context.Context, schema, table string) (bool, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		`SELECT count(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?`,
		schema, table,
	).Scan(&n)
	if err != nil {
		return false, eris.Wrapf(err, "warehouse: check table %s.%s", schema, table)
	}
	return n > 0, nil
}

// TableColumns returns the ordered column names of schema.table.
func (c *Client) TableColumns(ctx context.Context, schema, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT column_name FROM information_schema.columns
		 WHERE table_schema = ? AND table_name = ?
		 ORDER BY ordinal_position`,
		schema, table,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "warehouse: columns of %s.%s", schema, table)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "warehouse: scan column name")
		}
		cols = append(cols, name)
	}
	return cols, rows.Err()
}

// TableCount returns the row count of schema.table.
func (c *Client) TableCount(ctx context.Context, schema, table string) (int64, error) {
	var n int64
	err := c.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT count(*) FROM %s.%s", QuoteIdent(schema), QuoteIdent(table)),
	).Scan(&n)
	if err != nil {
		return 0, eris.Wrapf(err, "warehouse: count %s.%s", schema, table)
	}
	return n, nil
}

// Close releases the catalog session.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// QuoteIdent quotes a SQL identifier for DuckDB.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
