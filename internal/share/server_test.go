package share

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scout-analytics/scout-etl/internal/config"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

const testToken = "test-token"

func testServer(t *testing.T) (*Server, *warehouse.Client) {
	t.Helper()
	wh, err := warehouse.Open(config.WarehouseConfig{Root: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })

	srv, err := NewServer(config.ShareConfig{
		ConfigPath:    filepath.Join(t.TempDir(), "absent.yaml"),
		BearerTokens:  []string{testToken},
		RatePerSecond: 100,
		RateBurst:     100,
		MaxQueryRows:  1000,
	}, wh)
	require.NoError(t, err)
	return srv, wh
}

func seedGoldSummary(t *testing.T, wh *warehouse.Client) {
	t.Helper()
	_, err := wh.DB().ExecContext(context.Background(), `
		CREATE OR REPLACE TABLE gold.transactions_summary AS
		SELECT DATE '2025-06-01' AS transaction_date,
		       'National Capital Region' AS region,
		       'snacks' AS category,
		       CAST(100.0 AS DOUBLE) AS total_amount,
		       1 AS transaction_count`)
	require.NoError(t, err)
}

func do(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestHealthNeedsNoAuth(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMissingTokenRejected(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/shares", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/shares", "wrong-token", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListShares(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/shares", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Shares []string `json:"shares"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"scout_analytics"}, resp.Shares)
}

func TestListSchemasAndTables(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	w := do(t, h, http.MethodGet, "/shares/scout_analytics/schemas", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var schemas struct {
		Schemas []string `json:"schemas"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schemas))
	assert.Equal(t, []string{"gold"}, schemas.Schemas)

	w = do(t, h, http.MethodGet, "/shares/scout_analytics/schemas/gold/tables", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)
	var tables struct {
		Tables []string `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tables))
	assert.Len(t, tables.Tables, 5)
	assert.Contains(t, tables.Tables, "regional_kpis")

	w = do(t, h, http.MethodGet, "/shares/unknown/schemas", testToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueryTable(t *testing.T) {
	srv, wh := testServer(t)
	seedGoldSummary(t, wh)

	w := do(t, srv.Handler(), http.MethodPost,
		"/shares/scout_analytics/schemas/gold/tables/transactions_summary/query",
		testToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Count)
	assert.Contains(t, resp.Columns, "total_amount")
	require.Len(t, resp.Rows, 1)
}

func TestQueryRespectsLimit(t *testing.T) {
	srv, wh := testServer(t)
	_, err := wh.DB().ExecContext(context.Background(), `
		CREATE OR REPLACE TABLE gold.transactions_summary AS
		SELECT range AS transaction_count FROM range(50)`)
	require.NoError(t, err)

	w := do(t, srv.Handler(), http.MethodPost,
		"/shares/scout_analytics/schemas/gold/tables/transactions_summary/query",
		testToken, `{"limit": 10}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Count)
}

func TestQueryMalformedBodyRejected(t *testing.T) {
	srv, wh := testServer(t)
	seedGoldSummary(t, wh)

	w := do(t, srv.Handler(), http.MethodPost,
		"/shares/scout_analytics/schemas/gold/tables/transactions_summary/query",
		testToken, `{"limit": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryUnknownTable(t *testing.T) {
	srv, _ := testServer(t)
	w := do(t, srv.Handler(), http.MethodPost,
		"/shares/scout_analytics/schemas/gold/tables/nope/query", testToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitPerToken(t *testing.T) {
	wh, err := warehouse.Open(config.WarehouseConfig{Root: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })

	srv, err := NewServer(config.ShareConfig{
		ConfigPath:    filepath.Join(t.TempDir(), "absent.yaml"),
		BearerTokens:  []string{"a", "b"},
		RatePerSecond: 1,
		RateBurst:     2,
		MaxQueryRows:  1000,
	}, wh)
	require.NoError(t, err)
	h := srv.Handler()

	// Token "a" exhausts its burst; token "b" is unaffected.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/shares", "a", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/shares", "a", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/shares", "a", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/shares", "b", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := testServer(t)
	r := httptest.NewRequest(http.MethodOptions, "/shares", nil)
	r.Header.Set("Origin", "https://example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, r)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNoTokensConfigured(t *testing.T) {
	wh, err := warehouse.Open(config.WarehouseConfig{Root: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })

	_, err = NewServer(config.ShareConfig{
		ConfigPath: filepath.Join(t.TempDir(), "absent.yaml"),
	}, wh)
	require.Error(t, err)
}

func TestLoadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shares.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
shares:
  - name: partners
    schemas:
      - name: gold
        tables:
          - name: kpis
            gold_table: regional_kpis
`), 0o644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	entry, ok := doc.FindTable("partners", "gold", "kpis")
	require.True(t, ok)
	assert.Equal(t, "regional_kpis", entry.Backing())
}

func TestLoadDocumentMissingFileUsesDefault(t *testing.T) {
	doc, err := LoadDocument(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Len(t, doc.Shares, 1)
	assert.Equal(t, "scout_analytics", doc.Shares[0].Name)
}

func TestDocumentValidate(t *testing.T) {
	doc := &Document{Shares: []Share{{Name: "a"}, {Name: "a"}}}
	require.Error(t, doc.Validate())

	doc = &Document{}
	require.Error(t, doc.Validate())
}

func TestQueryFormatsTimestamps(t *testing.T) {
	srv, wh := testServer(t)
	_, err := wh.DB().ExecContext(context.Background(), `
		CREATE OR REPLACE TABLE gold.market_trends AS
		SELECT TIMESTAMP '2025-06-01 10:00:00' AS created_at`)
	require.NoError(t, err)

	w := do(t, srv.Handler(), http.MethodPost,
		"/shares/scout_analytics/schemas/gold/tables/market_trends/query", testToken, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rows [][]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	got, ok := resp.Rows[0][0].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, got)
	require.NoError(t, err)
	assert.Equal(t, 2025, parsed.Year())
}
