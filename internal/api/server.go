// Package api exposes the computed attribution structures over HTTP for the
// dashboard frontend. Handlers recompute from the stored snapshot on every
// request; there is no incremental state to get stale or race on.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/attribution"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/backend"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/common"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/model"
	"github.com/hussienjaafar/mojo-digital-wins-sub002/internal/service"
)

// Server wires the storage snapshot and backend client into HTTP handlers.
type Server struct {
	store   service.Storage
	backend service.BackendClient
	opts    attribution.SuggestionOptions
}

// NewServer creates an API server over the given storage and backend client.
func NewServer(store service.Storage, backendClient service.BackendClient, opts attribution.SuggestionOptions) *Server {
	return &Server{
		store:   store,
		backend: backendClient,
		opts:    opts,
	}
}

// Router builds the chi router with CORS for the dashboard origin.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api/v1/orgs/{orgID}/attribution", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Get("/suggestions", s.handleSuggestions)
		r.Post("/confirm", s.handleConfirm)
		r.Post("/matcher/run", s.handleMatcherRun)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReport recomputes the full report from the stored snapshot.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	txns, err := s.store.GetTransactions(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	mappings, err := s.store.GetActiveMappings(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, attribution.BuildReport(txns, mappings, s.opts))
}

// handleSuggestions returns the ranked suggestion list on its own, for the
// review screen.
func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	txns, err := s.store.GetTransactions(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	mappings, err := s.store.GetActiveMappings(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}

	truthSet := attribution.ExtractTruthSet(mappings)
	suggestions := attribution.GenerateSuggestions(txns, truthSet, s.opts)
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

type confirmRequest struct {
	Refcode  string `json:"refcode"`
	Campaign string `json:"campaign"`
}

// handleConfirm promotes a suggestion to a manual_confirmed mapping. This is
// the single write path from suggestion to truth: remote insert first (it
// fails loudly on conflict), then the local supersede in one transaction.
func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Refcode) == "" || strings.TrimSpace(req.Campaign) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refcode and campaign are required"})
		return
	}

	mapping := &model.AttributionMapping{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Refcode:        model.NormalizeRefcode(req.Refcode),
		Source:         req.Campaign,
		Type:           model.TypeManualConfirmed,
		CreatedAt:      time.Now().UTC(),
	}

	if err := s.backend.ConfirmMapping(r.Context(), mapping); err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.ConfirmMapping(r.Context(), mapping); err != nil {
		writeError(w, err)
		return
	}

	slog.Info("Mapping confirmed",
		"org_id", orgID,
		"refcode", mapping.Refcode,
		"campaign", mapping.Source)
	writeJSON(w, http.StatusCreated, mapping)
}

// handleMatcherRun triggers the remote matcher, then refreshes the local
// mapping snapshot from the results before answering.
func (s *Server) handleMatcherRun(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgID")

	result, err := s.backend.RunMatcher(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}

	mappings, err := s.backend.FetchMappings(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(mappings) > 0 {
		if err := s.store.SaveMappings(r.Context(), orgID, mappings); err != nil {
			writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps error classes to HTTP statuses without swallowing detail.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, common.ErrDuplicateMapping):
		status = http.StatusConflict
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrRateLimit):
		status = http.StatusTooManyRequests
	default:
		if reqErr, ok := backend.AsRequestError(err); ok {
			switch reqErr.Kind {
			case backend.KindValidation:
				status = http.StatusBadRequest
			case backend.KindNetwork, backend.KindServer:
				status = http.StatusBadGateway
			case backend.KindRateLimit:
				status = http.StatusTooManyRequests
			}
		}
	}

	slog.Error("Request failed", "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf("%v", err)})
}
