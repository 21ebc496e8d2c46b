package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/transferlog/internal/history"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	history       *history.Oper
	statisticDays int
	version       string
}

// New creates a new Handlers instance
func New(oper *history.Oper, statisticDays int, version string) *Handlers {
	if statisticDays <= 0 {
		statisticDays = history.DefaultStatisticDays
	}
	return &Handlers{
		history:       oper,
		statisticDays: statisticDays,
		version:       version,
	}
}

// Health reports liveness and version
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": h.version,
	})
}

func (h *Handlers) jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handlers) jsonError(w http.ResponseWriter, message string, status int) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

func (h *Handlers) jsonSuccess(w http.ResponseWriter, message string) {
	h.jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": message})
}

// idParam parses the {id} URL parameter
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// optionalInt parses an optional integer query parameter
func optionalInt(r *http.Request, name string) (*int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &v, true
}
