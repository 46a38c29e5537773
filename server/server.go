// Package server exposes the published price files over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"potato-prices/config"
	"potato-prices/metrics"
	"potato-prices/models"
	"potato-prices/storage"
	"potato-prices/utils"
)

// Handler serves the files a JSONWriter publishes. Every request reads the
// directory again, so a run finishing in another process shows up at once.
type Handler struct {
	dir     string
	metrics *metrics.Collector
	logger  *utils.Logger
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PricesResponse wraps a price table with the run it came from.
type PricesResponse struct {
	RunID        string                `json:"run_id"`
	RunTimestamp string                `json:"run_timestamp"`
	Source       string                `json:"source"`
	Prices       []models.PriceSummary `json:"prices"`
}

func NewHandler(dir string, collector *metrics.Collector, logger *utils.Logger) *Handler {
	return &Handler{dir: dir, metrics: collector, logger: logger}
}

// NewRouter returns a router with every route registered.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all price API routes
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	router.HandleFunc("/prices", h.GetCombined).Methods("GET")
	router.HandleFunc("/prices/{source}", h.GetSource).Methods("GET")
	router.HandleFunc("/status", h.GetStatus).Methods("GET")
	router.Handle("/metrics", h.metricsHandler()).Methods("GET")
}

// HealthCheck handles GET /healthz
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// GetCombined handles GET /prices. An optional ?state= narrows the table
// to one state.
func (h *Handler) GetCombined(w http.ResponseWriter, r *http.Request) {
	report, err := storage.ReadLatest(h.dir)
	if err != nil {
		h.sendReadError(w, r, err)
		return
	}

	rows := report.Combined
	if state := r.URL.Query().Get("state"); state != "" {
		rows = nil
		for _, row := range report.Combined {
			if string(row.State) == state {
				rows = append(rows, row)
			}
		}
		if len(rows) == 0 {
			h.sendError(w, r, "unknown state "+state, http.StatusNotFound)
			return
		}
	}

	h.sendJSON(w, PricesResponse{
		RunID:        report.RunID,
		RunTimestamp: report.RunTimestamp,
		Source:       storage.CombinedSource,
		Prices:       rows,
	}, http.StatusOK)
}

// GetSource handles GET /prices/{source}
func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]
	if !isSource(source) {
		h.sendError(w, r, "unknown source "+source, http.StatusNotFound)
		return
	}

	status, err := storage.ReadStatus(h.dir)
	if err != nil {
		h.sendReadError(w, r, err)
		return
	}
	rows, err := storage.ReadSource(h.dir, source)
	if err != nil {
		h.sendReadError(w, r, err)
		return
	}
	if rows == nil {
		h.sendError(w, r, source+" did not report in the last run", http.StatusServiceUnavailable)
		return
	}

	h.sendJSON(w, PricesResponse{
		RunID:        status.RunID,
		RunTimestamp: status.RunTimestamp,
		Source:       source,
		Prices:       rows,
	}, http.StatusOK)
}

// GetStatus handles GET /status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := storage.ReadStatus(h.dir)
	if err != nil {
		h.sendReadError(w, r, err)
		return
	}
	h.sendJSON(w, status, http.StatusOK)
}

func (h *Handler) metricsHandler() http.Handler {
	next := h.metrics.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status, err := storage.ReadStatus(h.dir); err == nil {
			h.metrics.ObserveStatus(status)
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) sendReadError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrNoReport) {
		h.sendError(w, r, err.Error(), http.StatusServiceUnavailable)
		return
	}
	h.logger.Error("[server] %s %s: %v", r.Method, r.URL.Path, err)
	h.sendError(w, r, "could not read report", http.StatusInternalServerError)
}

// sendJSON sends a JSON response
func (h *Handler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("[server] encode response: %v", err)
	}
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.logger.Debug("[server] %s %s -> %d: %s", r.Method, r.URL.Path, statusCode, message)
	h.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}, statusCode)
}

func isSource(name string) bool {
	for _, s := range config.AllSources {
		if s == name {
			return true
		}
	}
	return false
}

// ListenAndServe serves router on addr until ctx is cancelled, then shuts
// down gracefully.
func ListenAndServe(ctx context.Context, addr string, router http.Handler, logger *utils.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("[server] Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("[server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
