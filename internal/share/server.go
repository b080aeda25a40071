package share

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/scout-analytics/scout-etl/internal/config"
	"github.com/scout-analytics/scout-etl/internal/metrics"
	"github.com/scout-analytics/scout-etl/internal/warehouse"
)

// Server is the read-only sharing facade over the gold schema. Callers
// authenticate with a bearer token and are rate-limited per token.
type Server struct {
	cfg config.ShareConfig
	doc *Document
	wh  *warehouse.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewServer builds a facade over an open warehouse using the sharing
// document at cfg.ConfigPath.
func NewServer(cfg config.ShareConfig, wh *warehouse.Client) (*Server, error) {
	doc, err := LoadDocument(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	if len(cfg.BearerTokens) == 0 {
		return nil, eris.New("share: no bearer tokens configured (set SCOUT_SHARE_BEARER_TOKENS)")
	}
	return &Server{
		cfg:      cfg,
		doc:      doc,
		wh:       wh,
		limiters: map[string]*rate.Limiter{},
	}, nil
}

// Handler builds the facade's route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)
		r.Get("/shares", s.instrument("shares", s.handleListShares))
		r.Get("/shares/{share}/schemas", s.instrument("schemas", s.handleListSchemas))
		r.Get("/shares/{share}/schemas/{schema}/tables", s.instrument("tables", s.handleListTables))
		r.Post("/shares/{share}/schemas/{schema}/tables/{table}/query", s.instrument("query", s.handleQuery))
	})

	return r
}

// ListenAndServe runs the facade until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("share: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("share: serving", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "share: listen")
	}
	return nil
}

// authenticate enforces bearer auth and the per-token rate limit.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || !s.validToken(token) {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		if !s.limiterFor(token).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) validToken(token string) bool {
	for _, t := range s.cfg.BearerTokens {
		if token == t {
			return true
		}
	}
	return false
}

func (s *Server) limiterFor(token string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[token]
	if !ok {
		l = rate.NewLimiter(rate.Limit(s.cfg.RatePerSecond), s.cfg.RateBurst)
		s.limiters[token] = l
	}
	return l
}

// instrument counts requests per route and status code.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.ShareRequests.WithLabelValues(route, fmt.Sprintf("%d", rec.status)).Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListShares(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.doc.Shares))
	for _, sh := range s.doc.Shares {
		names = append(names, sh.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"shares": names})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	sh, ok := s.doc.FindShare(chi.URLParam(r, "share"))
	if !ok {
		writeError(w, http.StatusNotFound, "share not found")
		return
	}
	names := make([]string, 0, len(sh.Schemas))
	for _, sc := range sh.Schemas {
		names = append(names, sc.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"schemas": names})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	sh, ok := s.doc.FindShare(chi.URLParam(r, "share"))
	if !ok {
		writeError(w, http.StatusNotFound, "share not found")
		return
	}
	schema := chi.URLParam(r, "schema")
	for _, sc := range sh.Schemas {
		if sc.Name != schema {
			continue
		}
		names := make([]string, 0, len(sc.Tables))
		for _, t := range sc.Tables {
			names = append(names, t.Name)
		}
		writeJSON(w, http.StatusOK, map[string]any{"tables": names})
		return
	}
	writeError(w, http.StatusNotFound, "schema not found")
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.doc.FindTable(
		chi.URLParam(r, "share"),
		chi.URLParam(r, "schema"),
		chi.URLParam(r, "table"),
	)
	if !ok {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}

	limit := s.cfg.MaxQueryRows
	if r.Body != nil {
		var req struct {
			Limit int `json:"limit"`
		}
		// An empty body means "no limit requested"; anything else must
		// parse.
		switch err := json.NewDecoder(r.Body).Decode(&req); {
		case errors.Is(err, io.EOF):
		case err != nil:
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		case req.Limit > 0 && req.Limit < limit:
			limit = req.Limit
		}
	}

	cols, records, err := s.readGold(r.Context(), entry.Backing(), limit)
	if err != nil {
		zap.L().Error("share: query failed",
			zap.String("table", entry.Backing()),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"columns": cols,
		"rows":    records,
		"count":   len(records),
	})
}

func (s *Server) readGold(ctx context.Context, table string, limit int) ([]string, [][]any, error) {
	query := fmt.Sprintf("SELECT * FROM gold.%s LIMIT %d", warehouse.QuoteIdent(table), limit)
	rows, err := s.wh.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "share: query gold.%s", table)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, eris.Wrap(err, "share: read columns")
	}

	records := [][]any{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, eris.Wrap(err, "share: scan row")
		}
		for i, v := range vals {
			if ts, ok := v.(time.Time); ok {
				vals[i] = ts.UTC().Format(time.RFC3339)
			}
		}
		records = append(records, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, eris.Wrap(err, "share: iterate rows")
	}
	return cols, records, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
