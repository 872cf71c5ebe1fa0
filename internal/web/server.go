package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/hpungsan/meishi/internal/blob"
	"github.com/hpungsan/meishi/internal/config"
	"github.com/hpungsan/meishi/internal/extract"
	"github.com/hpungsan/meishi/internal/state"
)

// NewServer creates and configures the HTTP server for the meishi API.
// images may be nil, in which case extracted images are not stored.
func NewServer(st *state.State, svc extract.Service, images blob.Store, cfg *config.Config, version string) *http.Server {
	h := NewHandlers(st, svc, images, cfg, version)

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /api/health", h.HandleHealth)

	mux.HandleFunc("POST /api/extract/contact", h.HandleExtractContact)
	mux.HandleFunc("POST /api/extract/policy", h.HandleExtractPolicy)
	mux.HandleFunc("POST /api/summarize", h.HandleSummarize)
	mux.HandleFunc("POST /api/columns/propose", h.HandleProposeColumns)

	mux.HandleFunc("GET /api/contacts", h.HandleListContacts)
	mux.HandleFunc("GET /api/contacts/recent", h.HandleRecentContacts)
	mux.HandleFunc("GET /api/contacts/{id}", h.HandleFetchContact)
	mux.HandleFunc("POST /api/contacts", h.HandleCreateContact)
	mux.HandleFunc("PUT /api/contacts/{id}", h.HandleUpdateContact)
	mux.HandleFunc("DELETE /api/contacts/{id}", h.HandleDeleteContact)

	mux.HandleFunc("GET /api/policies", h.HandleListPolicies)
	mux.HandleFunc("GET /api/policies/{id}", h.HandleFetchPolicy)
	mux.HandleFunc("POST /api/policies", h.HandleCreatePolicy)
	mux.HandleFunc("PUT /api/policies/{id}", h.HandleUpdatePolicy)
	mux.HandleFunc("DELETE /api/policies/{id}", h.HandleDeletePolicy)

	mux.HandleFunc("GET /api/memos", h.HandleListMemos)
	mux.HandleFunc("POST /api/memos", h.HandleAddMemo)
	mux.HandleFunc("DELETE /api/memos/{id}", h.HandleDeleteMemo)

	mux.HandleFunc("POST /api/import", h.HandleImport)
	mux.HandleFunc("GET /api/export", h.HandleExport)
	mux.HandleFunc("POST /api/template/fill", h.HandleTemplateFill)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:           Handler(mux, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler wraps the API routes with request logging, security headers and,
// when origins are configured, CORS.
func Handler(next http.Handler, cfg *config.Config) http.Handler {
	handler := securityHeaders(next)
	if len(cfg.CORSOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowedHeaders: []string{"Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
		}).Handler(handler)
	}
	return requestLogger(handler)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	slog.Info("meishi API listening", "addr", "http://"+srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		slog.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		slog.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
