// Package collab tracks cross-agent task requests through an explicit
// lifecycle:
//
//	pending ──accept──▶ accepted ──complete──▶ completed
//	   │                   │
//	   └──reject/cancel──▶ rejected ◀──cancel──┘
//
// Records are never deleted; rejected and completed records stay around
// for history and statistics. Every mutating operation re-checks that the
// record belongs to the calling user.
package collab

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/reefhq/reef/orchestrator/internal/registry"
	"github.com/reefhq/reef/orchestrator/internal/store"
	"github.com/reefhq/reef/orchestrator/pkg/models"
	"github.com/rs/zerolog/log"
)

// CancelledByUser is the feedback note written on user cancellation.
const CancelledByUser = "Cancelled by user"

// taskSchemas lists the data keys required per known task type. Task
// types without an entry only need data to be a JSON object (or absent).
var taskSchemas = map[string][]string{
	"analysis":   {"subject"},
	"content":    {"format"},
	"research":   {"topic"},
	"review":     {"target"},
	"escalation": {"reason"},
}

// Manager owns the collaboration lifecycle.
type Manager struct {
	store    store.CollaborationStore
	registry *registry.Registry
}

// NewManager creates a collaboration manager.
func NewManager(s store.CollaborationStore, reg *registry.Registry) *Manager {
	return &Manager{store: s, registry: reg}
}

// Request opens a new collaboration record in the pending state.
func (m *Manager) Request(ctx context.Context, userID, initiatingAgentID string, req *models.CollaborationRequest) (*models.CollaborationRecord, error) {
	if initiatingAgentID == "" {
		initiatingAgentID = req.InitiatingAgentID
	}
	if err := validateRequest(initiatingAgentID, req); err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	rec := &models.CollaborationRecord{
		ID:                   uuid.New().String(),
		UserID:               userID,
		InitiatingAgentID:    initiatingAgentID,
		TaskType:             req.TaskType,
		Description:          req.Description,
		Data:                 req.Data,
		Priority:             priority,
		RequiredCapabilities: req.RequiredCapabilities,
		Status:               models.CollabPending,
		Deadline:             req.Deadline,
		Context:              req.Context,
		CreatedAt:            time.Now().UTC(),
	}

	if err := m.store.CreateCollaboration(ctx, rec); err != nil {
		return nil, err
	}

	log.Info().
		Str("collaboration_id", rec.ID).
		Str("user_id", userID).
		Str("agent", initiatingAgentID).
		Str("task_type", rec.TaskType).
		Str("priority", string(priority)).
		Msg("Collaboration requested")

	return rec, nil
}

func validateRequest(agentID string, req *models.CollaborationRequest) error {
	if agentID == "" {
		return &ValidationError{Field: "initiatingAgentId", Reason: "must not be empty"}
	}
	if req.TaskType == "" {
		return &ValidationError{Field: "taskType", Reason: "must not be empty"}
	}
	if req.Description == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if req.Priority != "" && !models.ValidPriority(req.Priority) {
		return &ValidationError{Field: "priority", Reason: "must be one of low, medium, high, urgent"}
	}
	if required, ok := taskSchemas[req.TaskType]; ok {
		for _, key := range required {
			if _, present := req.Data[key]; !present {
				return &ValidationError{Field: "data." + key, Reason: "required for taskType " + req.TaskType}
			}
		}
	}
	return nil
}

// Respond applies an accept or reject to a pending collaboration.
// Concurrent responses to the same record serialize in the store, so the
// loser reliably sees InvalidStateError instead of double-applying.
func (m *Manager) Respond(ctx context.Context, userID, id, response, feedback string) (*models.CollaborationRecord, error) {
	var next models.CollabStatus
	switch response {
	case "accept":
		next = models.CollabAccepted
	case "reject":
		next = models.CollabRejected
	default:
		return nil, &ValidationError{Field: "response", Reason: `must be "accept" or "reject"`}
	}

	rec, err := m.store.MutateCollaboration(ctx, id, func(rec *models.CollaborationRecord) error {
		if rec.UserID != userID {
			return &AuthorizationError{ID: id}
		}
		if rec.Status != models.CollabPending {
			return &InvalidStateError{ID: id, Status: string(rec.Status), Reason: "already responded to"}
		}
		now := time.Now().UTC()
		rec.Status = next
		rec.RespondedAt = &now
		if feedback != "" {
			rec.Feedback = feedback
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("collaboration_id", id).
		Str("status", string(rec.Status)).
		Msg("Collaboration response recorded")

	return rec, nil
}

// Cancel rejects a pending or accepted collaboration on behalf of its
// owner, stamping the system feedback note.
func (m *Manager) Cancel(ctx context.Context, userID, id string) (*models.CollaborationRecord, error) {
	rec, err := m.store.MutateCollaboration(ctx, id, func(rec *models.CollaborationRecord) error {
		if rec.UserID != userID {
			return &AuthorizationError{ID: id}
		}
		if !rec.Active() {
			return &InvalidStateError{ID: id, Status: string(rec.Status), Reason: "can only cancel pending or accepted"}
		}
		now := time.Now().UTC()
		rec.Status = models.CollabRejected
		rec.Feedback = CancelledByUser
		rec.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("collaboration_id", id).Msg("Collaboration cancelled")
	return rec, nil
}

// Complete marks an accepted collaboration as completed once downstream
// work finishes.
func (m *Manager) Complete(ctx context.Context, userID, id, feedback string) (*models.CollaborationRecord, error) {
	rec, err := m.store.MutateCollaboration(ctx, id, func(rec *models.CollaborationRecord) error {
		if rec.UserID != userID {
			return &AuthorizationError{ID: id}
		}
		if rec.Status != models.CollabAccepted {
			return &InvalidStateError{ID: id, Status: string(rec.Status), Reason: "only accepted collaborations can complete"}
		}
		now := time.Now().UTC()
		rec.Status = models.CollabCompleted
		rec.CompletedAt = &now
		if feedback != "" {
			rec.Feedback = feedback
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("collaboration_id", id).Msg("Collaboration completed")
	return rec, nil
}

// History returns the user's collaboration records newest first,
// optionally filtered by initiating agent.
func (m *Manager) History(ctx context.Context, userID, agentID string) ([]models.CollaborationRecord, error) {
	return m.store.ListCollaborationsByUser(ctx, userID, agentID)
}

// Stats aggregates the user's records by status and initiating agent.
func (m *Manager) Stats(ctx context.Context, userID string) (*models.CollaborationStats, error) {
	recs, err := m.store.ListCollaborationsByUser(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	stats := &models.CollaborationStats{
		Total:    len(recs),
		ByStatus: make(map[models.CollabStatus]int),
		ByAgent:  make(map[string]int),
	}
	for _, rec := range recs {
		stats.ByStatus[rec.Status]++
		stats.ByAgent[rec.InitiatingAgentID]++
	}
	return stats, nil
}

// Active returns all pending or accepted records globally. Callers filter
// by user when they need a per-user view.
func (m *Manager) Active(ctx context.Context) ([]models.CollaborationRecord, error) {
	return m.store.ListActiveCollaborations(ctx)
}

// Capabilities returns the static agent→capability mapping. Read-only,
// no persistence involved.
func (m *Manager) Capabilities() map[string]models.AgentCapability {
	return m.registry.Capabilities()
}
