package main

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/scout-analytics/scout-etl/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	expected := []string{"run", "bronze", "silver", "gold", "status", "serve", "export"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "scout-etl", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestExportCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"table":  "all",
		"format": "csv",
		"out":    ".",
	} {
		flag := exportCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "export command should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue)
	}
}

func TestValidGoldTable(t *testing.T) {
	assert.True(t, validGoldTable("regional_kpis"))
	assert.False(t, validGoldTable("bronze"))
}

func seedTestSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pos.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE transactions (
			transaction_id TEXT PRIMARY KEY,
			timestamp      TEXT NOT NULL,
			customer_id    TEXT,
			store_id       TEXT,
			product_name   TEXT,
			category       TEXT,
			quantity       INTEGER,
			total_amount   REAL,
			region         TEXT,
			payment_method TEXT
		);
		INSERT INTO transactions VALUES
			('T-1', '2025-06-01 10:00:00', 'C-1', 'S-1', 'Chips', 'Snacks', 2, 100.0, 'NCR', 'cash');
	`)
	require.NoError(t, err)
	return path
}

func testCmdConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	t.Cleanup(func() { cfg = prev })

	c, err := config.Load()
	require.NoError(t, err)
	c.Source.Driver = "sqlite"
	c.Source.DatabaseURL = seedTestSource(t)
	c.Warehouse.Path = filepath.Join(t.TempDir(), "scout.duckdb")
	c.Warehouse.Root = t.TempDir()
	cfg = c
}

func TestRunCmd_EndToEnd(t *testing.T) {
	testCmdConfig(t)

	runCmd.SetContext(context.Background())
	require.NoError(t, runCmd.RunE(runCmd, nil))
}

func TestStatusCmd_AfterRun(t *testing.T) {
	testCmdConfig(t)

	runCmd.SetContext(context.Background())
	require.NoError(t, runCmd.RunE(runCmd, nil))

	statusCmd.SetContext(context.Background())
	require.NoError(t, statusCmd.RunE(statusCmd, nil))
}

func TestPrintLayerCount_HonorsContextCancellation(t *testing.T) {
	testCmdConfig(t)

	runCmd.SetContext(context.Background())
	require.NoError(t, runCmd.RunE(runCmd, nil))

	env, err := initPipeline()
	require.NoError(t, err)
	defer env.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := captureStdout(t, func() {
		printLayerCount(ctx, env, "bronze", "transactions_raw")
	})
	// A cancelled context must stop the catalog query, not report a count.
	assert.NotContains(t, out, "rows")
}

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	require.NoError(t, w.Close())
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func TestExportCmd_UnknownTable(t *testing.T) {
	testCmdConfig(t)

	prevTable := exportTable
	t.Cleanup(func() { exportTable = prevTable })
	exportTable = "nonexistent"

	exportCmd.SetContext(context.Background())
	err := exportCmd.RunE(exportCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown gold table")
}
