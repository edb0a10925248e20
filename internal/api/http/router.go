package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"hireflow-backend/internal/logger"
	"hireflow-backend/internal/utils"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsHandler serves health, metrics and deadline calculations for external
// schedulers. Deadline endpoints are pure and never touch workflow state.
type OpsHandler struct {
	db                Pinger
	waitingPeriodDays int
}

func NewOpsHandler(db Pinger, waitingPeriodDays int) *OpsHandler {
	return &OpsHandler{db: db, waitingPeriodDays: waitingPeriodDays}
}

// HandleHealth pings the database with a short timeout
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logger.Warn("Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleI9Deadlines returns the section 1 and section 2 deadlines for
// ?start_date=YYYY-MM-DD
func (h *OpsHandler) HandleI9Deadlines(w http.ResponseWriter, r *http.Request) {
	start, err := utils.ParseDate(r.URL.Query().Get("start_date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	section1, section2 := utils.I9Deadlines(start)
	writeJSON(w, http.StatusOK, map[string]string{
		"start_date":        utils.FormatDate(start),
		"deadline_section1": utils.FormatDate(section1),
		"deadline_section2": utils.FormatDate(section2),
	})
}

// HandleWaitingPeriod returns when the FCRA waiting period ends for a
// pre-adverse notice sent at ?sent_at (RFC 3339), optionally overriding the
// length with ?days
func (h *OpsHandler) HandleWaitingPeriod(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	sentAt, err := time.Parse(time.RFC3339, query.Get("sent_at"))
	if err != nil {
		http.Error(w, "Invalid sent_at, expected RFC 3339", http.StatusBadRequest)
		return
	}

	days := h.waitingPeriodDays
	if raw := query.Get("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days <= 0 {
			http.Error(w, "Invalid days parameter", http.StatusBadRequest)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sent_at":                sentAt.UTC().Format(time.RFC3339),
		"waiting_period_days":    days,
		"waiting_period_ends_at": utils.WaitingPeriodEnd(sentAt, days).UTC().Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("Failed to write response", "error", err)
	}
}

// NewRouter registers the ops endpoints. registry may be nil to leave
// /metrics off.
func NewRouter(handler *OpsHandler, registry *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", handler.HandleHealth).Methods("GET")
	router.HandleFunc("/api/v1/deadlines/i9", handler.HandleI9Deadlines).Methods("GET")
	router.HandleFunc("/api/v1/deadlines/adverse-action", handler.HandleWaitingPeriod).Methods("GET")
	if registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})).Methods("GET")
	}
	return router
}
