// Package handlers implements the HTTP handlers for the orchestrator
// API: the collaboration surface consumed by the web front end, the chat
// entry point, and cache/agent diagnostics.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/reefhq/reef/orchestrator/internal/api/middleware"
	"github.com/reefhq/reef/orchestrator/internal/collab"
	"github.com/reefhq/reef/orchestrator/internal/orchestrator"
	"github.com/reefhq/reef/orchestrator/internal/predictive"
	"github.com/reefhq/reef/orchestrator/internal/registry"
	"github.com/reefhq/reef/orchestrator/internal/store"
	"github.com/reefhq/reef/orchestrator/pkg/models"
)

// Handlers holds all handler dependencies.
type Handlers struct {
	Registry     *registry.Registry
	Collab       *collab.Manager
	Cache        *predictive.Cache
	Orchestrator *orchestrator.Orchestrator
}

// New creates a new Handlers instance with all dependencies.
func New(reg *registry.Registry, cm *collab.Manager, cache *predictive.Cache, orch *orchestrator.Orchestrator) *Handlers {
	return &Handlers{
		Registry:     reg,
		Collab:       cm,
		Cache:        cache,
		Orchestrator: orch,
	}
}

// ── Collaboration Handlers ───────────────────────────────────

// GetCollaborations serves GET /collaboration.
// Query: agentId, includeStats, includeCapabilities, includeActive.
func (h *Handlers) GetCollaborations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	agentID := r.URL.Query().Get("agentId")

	history, err := h.Collab.History(r.Context(), userID, agentID)
	if err != nil {
		respondCollabError(w, err)
		return
	}

	resp := map[string]any{"history": history}

	if boolQuery(r, "includeStats") {
		stats, err := h.Collab.Stats(r.Context(), userID)
		if err != nil {
			respondCollabError(w, err)
			return
		}
		resp["stats"] = stats
	}

	if boolQuery(r, "includeCapabilities") {
		resp["capabilities"] = h.Collab.Capabilities()
	}

	if boolQuery(r, "includeActive") {
		active, err := h.Collab.Active(r.Context())
		if err != nil {
			respondCollabError(w, err)
			return
		}
		mine := make([]models.CollaborationRecord, 0)
		for _, rec := range active {
			if rec.UserID == userID {
				mine = append(mine, rec)
			}
		}
		resp["activeCollaborations"] = mine
	}

	respondJSON(w, http.StatusOK, resp)
}

// RequestCollaboration serves POST /collaboration.
func (h *Handlers) RequestCollaboration(w http.ResponseWriter, r *http.Request) {
	var req models.CollaborationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := middleware.GetUserID(r.Context())
	rec, err := h.Collab.Request(r.Context(), userID, req.InitiatingAgentID, &req)
	if err != nil {
		respondCollabError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"collaborationId": rec.ID,
	})
}

// RespondToCollaboration serves PUT /collaboration.
func (h *Handlers) RespondToCollaboration(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CollaborationID string `json:"collaborationId"`
		Response        string `json:"response"`
		Feedback        string `json:"feedback,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CollaborationID == "" {
		respondError(w, http.StatusBadRequest, "collaborationId is required")
		return
	}

	userID := middleware.GetUserID(r.Context())
	rec, err := h.Collab.Respond(r.Context(), userID, req.CollaborationID, req.Response, req.Feedback)
	if err != nil {
		respondCollabError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Collaboration " + string(rec.Status),
	})
}

// CancelCollaboration serves DELETE /collaboration?collaborationId=...
func (h *Handlers) CancelCollaboration(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("collaborationId")
	if id == "" {
		respondError(w, http.StatusBadRequest, "collaborationId is required")
		return
	}

	userID := middleware.GetUserID(r.Context())
	if _, err := h.Collab.Cancel(r.Context(), userID, id); err != nil {
		respondCollabError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Collaboration cancelled",
	})
}

// CompleteCollaboration serves POST /api/v1/collaborations/{collaborationId}/complete.
// Called by the chat layer once downstream work finishes.
func (h *Handlers) CompleteCollaboration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "collaborationId")

	var req struct {
		Feedback string `json:"feedback,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	userID := middleware.GetUserID(r.Context())
	if _, err := h.Collab.Complete(r.Context(), userID, id, req.Feedback); err != nil {
		respondCollabError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Collaboration completed",
	})
}

// ── Chat Handler ────────────────────────────────────────────

// Chat serves POST /api/v1/chat: one inbound message through the
// decision pipeline.
func (h *Handlers) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Message == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.AgentID == "" || h.Registry.Get(req.AgentID) == nil {
		respondError(w, http.StatusBadRequest, "unknown agentId")
		return
	}

	userID := middleware.GetUserID(r.Context())
	resp, err := h.Orchestrator.HandleMessage(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, orchestrator.ErrNoGenerator) {
			respondError(w, http.StatusServiceUnavailable, "generation unavailable: "+err.Error())
			return
		}
		log.Error().Err(err).Str("agent", req.AgentID).Msg("Chat pipeline failed")
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ── Agent & Cache Diagnostics ───────────────────────────────

// ListAgents serves GET /api/v1/agents.
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Registry.List())
}

// CacheStats serves GET /api/v1/cache/stats (admin tooling hit-rate view).
func (h *Handlers) CacheStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.Cache.Stats())
}

// UpdateCacheThresholds serves PUT /api/v1/cache/thresholds.
func (h *Handlers) UpdateCacheThresholds(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Similarity float64 `json:"similarity"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	t := h.Cache.UpdateThresholds(req.Similarity, req.Confidence)
	respondJSON(w, http.StatusOK, t)
}

// ── Helpers ─────────────────────────────────────────────────

// respondCollabError maps domain error kinds to HTTP statuses.
// AuthorizationError intentionally maps to 404 so the API never confirms
// that another user's record exists.
func respondCollabError(w http.ResponseWriter, err error) {
	var (
		validation *collab.ValidationError
		authz      *collab.AuthorizationError
		state      *collab.InvalidStateError
		notFound   *store.ErrNotFound
	)
	switch {
	case errors.As(err, &validation):
		respondError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &state):
		respondError(w, http.StatusBadRequest, state.Error())
	case errors.As(err, &authz):
		respondError(w, http.StatusNotFound, "Collaboration not found")
	case errors.As(err, &notFound):
		respondError(w, http.StatusNotFound, notFound.Error())
	default:
		log.Error().Err(err).Msg("Collaboration persistence failure")
		respondError(w, http.StatusInternalServerError, "Internal error")
	}
}

func boolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
