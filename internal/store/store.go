// Package store provides the storage interface and implementations for
// the orchestrator core. The in-memory implementation (with JSON snapshot
// persistence) serves local development and tests; the interface is
// narrow enough that a SQL-backed implementation can replace it without
// touching handler or manager code.
package store

import (
	"context"

	"github.com/reefhq/reef/orchestrator/pkg/models"
)

// Store is the persistence boundary for the orchestrator core.
type Store interface {
	CollaborationStore
	ResponseStore

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}

// ── Collaboration Store ─────────────────────────────────────

// CollaborationStore persists collaboration records. Records are never
// deleted; lifecycle changes go through MutateCollaboration so that
// same-record transitions serialize.
type CollaborationStore interface {
	CreateCollaboration(ctx context.Context, rec *models.CollaborationRecord) error

	GetCollaboration(ctx context.Context, id string) (*models.CollaborationRecord, error)

	// MutateCollaboration applies fn to the record under the store's
	// write lock and persists the result if fn returns nil. A SQL
	// implementation maps this to a row-level transaction. The returned
	// record is a copy of the post-mutation state.
	MutateCollaboration(ctx context.Context, id string, fn func(*models.CollaborationRecord) error) (*models.CollaborationRecord, error)

	// ListCollaborationsByUser returns the user's records newest first,
	// optionally filtered by initiating agent ("" = all agents).
	ListCollaborationsByUser(ctx context.Context, userID, agentID string) ([]models.CollaborationRecord, error)

	// ListActiveCollaborations returns all pending or accepted records
	// globally, newest first.
	ListActiveCollaborations(ctx context.Context) ([]models.CollaborationRecord, error)
}

// ── Response Store ──────────────────────────────────────────

// ResponseStore persists preloaded responses for the predictive cache.
// All list operations exclude expired entries and order by stored
// confidence descending; limit <= 0 means no limit.
type ResponseStore interface {
	StoreResponse(ctx context.Context, resp *models.PreloadedResponse) error

	// ListResponsesByAgent returns non-expired entries for (userID, agentID).
	ListResponsesByAgent(ctx context.Context, userID, agentID string, limit int) ([]models.PreloadedResponse, error)

	// ListResponsesByUser returns non-expired entries for userID across
	// all agents.
	ListResponsesByUser(ctx context.Context, userID string, limit int) ([]models.PreloadedResponse, error)

	// PurgeExpiredResponses reclaims storage held by expired entries.
	// Purging never changes lookup results: reads already filter expiry.
	PurgeExpiredResponses(ctx context.Context) (int, error)
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
