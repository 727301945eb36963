package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reefhq/reef/orchestrator/internal/store"
	"github.com/reefhq/reef/orchestrator/pkg/models"
)

// newTestStore creates a fresh in-memory store for tests with no persistence
// into the real home directory.
func newTestStore(t *testing.T) store.Store {
	t.Helper()
	t.Setenv("REEF_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

func newCollab(id, userID string, status models.CollabStatus, createdAt time.Time) *models.CollaborationRecord {
	return &models.CollaborationRecord{
		ID:                id,
		UserID:            userID,
		InitiatingAgentID: "coral",
		TaskType:          "analysis",
		Description:       "test",
		Priority:          models.PriorityMedium,
		Status:            status,
		CreatedAt:         createdAt,
	}
}

// ─── Collaboration Store ─────────────────────────────────────

func TestCreateAndGetCollaboration(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newCollab("c1", "u1", models.CollabPending, time.Now().UTC())
	if err := s.CreateCollaboration(ctx, rec); err != nil {
		t.Fatalf("CreateCollaboration() error = %v", err)
	}

	got, err := s.GetCollaboration(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCollaboration() error = %v", err)
	}
	if got.UserID != "u1" || got.Status != models.CollabPending {
		t.Errorf("GetCollaboration() = %+v, want u1/pending", got)
	}
}

func TestGetCollaboration_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetCollaboration(context.Background(), "missing")
	var notFound *store.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("GetCollaboration() error = %v, want *store.ErrNotFound", err)
	}
}

func TestMutateCollaboration_AppliesUnderLock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateCollaboration(ctx, newCollab("c1", "u1", models.CollabPending, time.Now().UTC()))

	got, err := s.MutateCollaboration(ctx, "c1", func(rec *models.CollaborationRecord) error {
		rec.Status = models.CollabAccepted
		return nil
	})
	if err != nil {
		t.Fatalf("MutateCollaboration() error = %v", err)
	}
	if got.Status != models.CollabAccepted {
		t.Errorf("returned Status = %q, want accepted", got.Status)
	}

	stored, _ := s.GetCollaboration(ctx, "c1")
	if stored.Status != models.CollabAccepted {
		t.Errorf("stored Status = %q, want accepted", stored.Status)
	}
}

func TestMutateCollaboration_ErrorLeavesRecordUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.CreateCollaboration(ctx, newCollab("c1", "u1", models.CollabPending, time.Now().UTC()))

	wantErr := errors.New("nope")
	_, err := s.MutateCollaboration(ctx, "c1", func(rec *models.CollaborationRecord) error {
		rec.Status = models.CollabAccepted // must not stick
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("MutateCollaboration() error = %v, want %v", err, wantErr)
	}

	stored, _ := s.GetCollaboration(ctx, "c1")
	if stored.Status != models.CollabPending {
		t.Errorf("stored Status = %q after failed mutation, want pending", stored.Status)
	}
}

func TestListCollaborationsByUser_NewestFirstAndScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	s.CreateCollaboration(ctx, newCollab("old", "u1", models.CollabPending, base.Add(-2*time.Hour)))
	s.CreateCollaboration(ctx, newCollab("new", "u1", models.CollabPending, base))
	s.CreateCollaboration(ctx, newCollab("other", "u2", models.CollabPending, base))

	recs, err := s.ListCollaborationsByUser(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListCollaborationsByUser() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0].ID != "new" || recs[1].ID != "old" {
		t.Errorf("order = [%s %s], want [new old]", recs[0].ID, recs[1].ID)
	}
}

func TestListCollaborationsByUser_AgentFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := newCollab("c1", "u1", models.CollabPending, time.Now().UTC())
	b := newCollab("c2", "u1", models.CollabPending, time.Now().UTC())
	b.InitiatingAgentID = "pearl"
	s.CreateCollaboration(ctx, a)
	s.CreateCollaboration(ctx, b)

	recs, _ := s.ListCollaborationsByUser(ctx, "u1", "pearl")
	if len(recs) != 1 || recs[0].ID != "c2" {
		t.Errorf("agent filter returned %+v, want only c2", recs)
	}
}

func TestListActiveCollaborations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	s.CreateCollaboration(ctx, newCollab("p", "u1", models.CollabPending, now))
	s.CreateCollaboration(ctx, newCollab("a", "u2", models.CollabAccepted, now))
	s.CreateCollaboration(ctx, newCollab("r", "u1", models.CollabRejected, now))
	s.CreateCollaboration(ctx, newCollab("d", "u1", models.CollabCompleted, now))

	recs, err := s.ListActiveCollaborations(ctx)
	if err != nil {
		t.Fatalf("ListActiveCollaborations() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d active records, want 2 (pending + accepted)", len(recs))
	}
}

// ─── Response Store ──────────────────────────────────────────

func newResponse(qid, userID, agentID string, confidence float64, expiresAt time.Time) *models.PreloadedResponse {
	return &models.PreloadedResponse{
		QuestionID:  qid,
		UserID:      userID,
		AgentID:     agentID,
		Response:    "answer for " + qid,
		Confidence:  confidence,
		GeneratedAt: time.Now().UTC().Add(-time.Minute),
		ExpiresAt:   expiresAt,
	}
}

func TestListResponsesByAgent_ConfidenceOrderAndScope(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	s.StoreResponse(ctx, newResponse("q1", "u1", "pearl", 0.5, future))
	s.StoreResponse(ctx, newResponse("q2", "u1", "pearl", 0.9, future))
	s.StoreResponse(ctx, newResponse("q3", "u1", "coral", 0.99, future))
	s.StoreResponse(ctx, newResponse("q4", "u2", "pearl", 0.99, future))

	got, err := s.ListResponsesByAgent(ctx, "u1", "pearl", 0)
	if err != nil {
		t.Fatalf("ListResponsesByAgent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].QuestionID != "q2" || got[1].QuestionID != "q1" {
		t.Errorf("order = [%s %s], want [q2 q1] (confidence descending)", got[0].QuestionID, got[1].QuestionID)
	}
}

func TestListResponses_ExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.StoreResponse(ctx, newResponse("dead", "u1", "pearl", 1.0, time.Now().UTC().Add(-time.Minute)))
	s.StoreResponse(ctx, newResponse("live", "u1", "pearl", 0.5, time.Now().UTC().Add(time.Hour)))

	byAgent, _ := s.ListResponsesByAgent(ctx, "u1", "pearl", 0)
	if len(byAgent) != 1 || byAgent[0].QuestionID != "live" {
		t.Errorf("ListResponsesByAgent returned %+v, want only live", byAgent)
	}

	byUser, _ := s.ListResponsesByUser(ctx, "u1", 0)
	if len(byUser) != 1 || byUser[0].QuestionID != "live" {
		t.Errorf("ListResponsesByUser returned %+v, want only live", byUser)
	}
}

func TestListResponsesByUser_Limit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	for i, conf := range []float64{0.1, 0.9, 0.5} {
		s.StoreResponse(ctx, newResponse(string(rune('a'+i)), "u1", "pearl", conf, future))
	}

	got, _ := s.ListResponsesByUser(ctx, "u1", 2)
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if got[0].Confidence != 0.9 || got[1].Confidence != 0.5 {
		t.Errorf("limit kept confidences [%v %v], want [0.9 0.5]", got[0].Confidence, got[1].Confidence)
	}
}

func TestStoreResponse_DuplicatesCoexist(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	s.StoreResponse(ctx, newResponse("q1", "u1", "pearl", 0.5, future))
	s.StoreResponse(ctx, newResponse("q1", "u1", "pearl", 0.8, future))

	got, _ := s.ListResponsesByAgent(ctx, "u1", "pearl", 0)
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2 (no dedup on store)", len(got))
	}
}

func TestPurgeExpiredResponses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.StoreResponse(ctx, newResponse("dead", "u1", "pearl", 1.0, time.Now().UTC().Add(-time.Minute)))
	s.StoreResponse(ctx, newResponse("live", "u1", "pearl", 0.5, time.Now().UTC().Add(time.Hour)))

	purged, err := s.PurgeExpiredResponses(ctx)
	if err != nil {
		t.Fatalf("PurgeExpiredResponses() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("purged = %d, want 1", purged)
	}

	got, _ := s.ListResponsesByUser(ctx, "u1", 0)
	if len(got) != 1 {
		t.Errorf("after purge got %d entries, want 1", len(got))
	}
}

// ─── Snapshot persistence ────────────────────────────────────

func TestSnapshotRoundTrip(t *testing.T) {
	t.Setenv("REEF_DATA_DIR", t.TempDir())

	s1 := store.NewMemoryStore()
	ctx := context.Background()
	s1.CreateCollaboration(ctx, newCollab("c1", "u1", models.CollabPending, time.Now().UTC()))
	s1.StoreResponse(ctx, newResponse("q1", "u1", "pearl", 0.9, time.Now().UTC().Add(time.Hour)))
	s1.Close() // flushes the snapshot

	s2 := store.NewMemoryStore()
	defer s2.Close()

	if _, err := s2.GetCollaboration(ctx, "c1"); err != nil {
		t.Errorf("collaboration did not survive restart: %v", err)
	}
	resps, _ := s2.ListResponsesByUser(ctx, "u1", 0)
	if len(resps) != 1 {
		t.Errorf("responses did not survive restart: got %d, want 1", len(resps))
	}
}
