package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fsaeinventory/internal/config"
	"fsaeinventory/internal/domain"
	"fsaeinventory/internal/export"
	"fsaeinventory/internal/metrics"
	"fsaeinventory/internal/models"
	"fsaeinventory/internal/service"

	"github.com/rs/zerolog"
)

// Inventory is the view-model the HTTP layer dispatches user intents to.
type Inventory interface {
	Items() []models.Item
	Filter(term string) []models.Item
	Loading() bool
	Source() string
	Load(ctx context.Context) (service.LoadResult, error)
	Add(ctx context.Context, draft models.Draft) (service.MutationResult, error)
	Withdraw(ctx context.Context, id, quantity int64) (service.MutationResult, error)
	Return(ctx context.Context, id, quantity int64) (service.MutationResult, error)
	Delete(ctx context.Context, id int64, confirmed bool) (service.MutationResult, error)
	RequestDelete(ctx context.Context, id int64) (*domain.PendingDeletion, error)
	ConfirmDelete(ctx context.Context, token string) (service.MutationResult, error)
	CancelDelete(ctx context.Context, token string) error
	Transactions(ctx context.Context) ([]models.Transaction, error)
	Export(term string, format export.Format) (*export.Document, error)
}

// HTTPServer serves the JSON API and the HTML inventory page.
type HTTPServer struct {
	cfg       config.APIConfig
	inventory Inventory
	logger    *zerolog.Logger
	server    *http.Server
}

func NewHTTPServer(cfg config.APIConfig, inventory Inventory, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{cfg: cfg, inventory: inventory, logger: logger}

	mux := http.NewServeMux()
	srv.routes(mux)

	limiter := newRateLimiter(cfg.RateLimit)
	handler := loggingMiddleware(logger, limiter.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /items", s.handleFormAdd)
	mux.HandleFunc("POST /items/{id}/withdraw", s.handleFormWithdraw)
	mux.HandleFunc("POST /items/{id}/return", s.handleFormReturn)
	mux.HandleFunc("POST /items/{id}/delete", s.handleFormRequestDelete)
	mux.HandleFunc("POST /deletions/{token}/confirm", s.handleFormConfirmDelete)
	mux.HandleFunc("POST /deletions/{token}/cancel", s.handleFormCancelDelete)

	mux.HandleFunc("GET /api/v1/items", s.handleListItems)
	mux.HandleFunc("POST /api/v1/items", s.handleAddItem)
	mux.HandleFunc("POST /api/v1/items/{id}/withdraw", s.handleWithdraw)
	mux.HandleFunc("POST /api/v1/items/{id}/return", s.handleReturn)
	mux.HandleFunc("DELETE /api/v1/items/{id}", s.handleDelete)
	mux.HandleFunc("POST /api/v1/items/{id}/delete", s.handleRequestDelete)
	mux.HandleFunc("POST /api/v1/deletions/{token}/confirm", s.handleConfirmDelete)
	mux.HandleFunc("DELETE /api/v1/deletions/{token}", s.handleCancelDelete)
	mux.HandleFunc("POST /api/v1/reload", s.handleReload)
	mux.HandleFunc("GET /api/v1/transactions", s.handleTransactions)
	for _, f := range []export.Format{export.FormatCSV, export.FormatXLSX, export.FormatPDF} {
		mux.HandleFunc("GET /api/v1/export."+string(f), s.handleExport(f))
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler exposes the full middleware chain, used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		metrics.IncHTTP(pattern)

		logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// errorStatus maps view-model errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrConfirmationRequired):
		return http.StatusConflict
	case errors.Is(err, service.ErrEmptyName),
		errors.Is(err, service.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	case service.IsNotFound(err),
		errors.Is(err, service.ErrNothingToExport):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
