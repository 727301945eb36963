package collab_test

import (
	"context"
	"errors"
	"testing"

	"github.com/reefhq/reef/orchestrator/internal/collab"
	"github.com/reefhq/reef/orchestrator/internal/registry"
	"github.com/reefhq/reef/orchestrator/internal/store"
	"github.com/reefhq/reef/orchestrator/pkg/models"
)

func newManager(t *testing.T) *collab.Manager {
	t.Helper()
	t.Setenv("REEF_DATA_DIR", t.TempDir())
	s := store.NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return collab.NewManager(s, registry.Default())
}

func request(t *testing.T, m *collab.Manager, userID string) *models.CollaborationRecord {
	t.Helper()
	rec, err := m.Request(context.Background(), userID, "coral", &models.CollaborationRequest{
		TaskType:    "analysis",
		Description: "Compare Q2 and Q3 churn",
		Data:        map[string]any{"subject": "churn"},
	})
	if err != nil {
		t.Fatalf("Request() error = %v", err)
	}
	return rec
}

func TestRequest_DefaultsAndInitialState(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	if rec.ID == "" {
		t.Error("Request() did not assign an id")
	}
	if rec.Status != models.CollabPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
	if rec.Priority != models.PriorityMedium {
		t.Errorf("Priority = %q, want medium default", rec.Priority)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestRequest_ValidationErrors(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		agentID string
		req     *models.CollaborationRequest
		field   string
	}{
		{
			name: "missing agent",
			req:  &models.CollaborationRequest{TaskType: "research", Description: "d", Data: map[string]any{"topic": "x"}},
		},
		{
			name:    "missing task type",
			agentID: "coral",
			req:     &models.CollaborationRequest{Description: "d"},
		},
		{
			name:    "missing description",
			agentID: "coral",
			req:     &models.CollaborationRequest{TaskType: "research", Data: map[string]any{"topic": "x"}},
		},
		{
			name:    "bad priority",
			agentID: "coral",
			req:     &models.CollaborationRequest{TaskType: "research", Description: "d", Priority: "asap", Data: map[string]any{"topic": "x"}},
		},
		{
			name:    "missing schema key",
			agentID: "coral",
			req:     &models.CollaborationRequest{TaskType: "research", Description: "d"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.Request(ctx, "u1", tc.agentID, tc.req)
			var verr *collab.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Request() error = %v, want *collab.ValidationError", err)
			}
		})
	}
}

func TestRequest_UnknownTaskTypeHasNoSchema(t *testing.T) {
	m := newManager(t)

	rec, err := m.Request(context.Background(), "u1", "coral", &models.CollaborationRequest{
		TaskType:    "bespoke",
		Description: "anything goes",
	})
	if err != nil {
		t.Fatalf("Request() error = %v, want nil for task type without a schema", err)
	}
	if rec.Status != models.CollabPending {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
}

func TestRespond_Accept(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	got, err := m.Respond(context.Background(), "u1", rec.ID, "accept", "sounds good")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got.Status != models.CollabAccepted {
		t.Errorf("Status = %q, want accepted", got.Status)
	}
	if got.RespondedAt == nil {
		t.Error("RespondedAt not set")
	}
	if got.Feedback != "sounds good" {
		t.Errorf("Feedback = %q, want %q", got.Feedback, "sounds good")
	}
}

func TestRespond_Reject(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	got, err := m.Respond(context.Background(), "u1", rec.ID, "reject", "")
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got.Status != models.CollabRejected {
		t.Errorf("Status = %q, want rejected", got.Status)
	}
}

func TestRespond_InvalidResponseValue(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	_, err := m.Respond(context.Background(), "u1", rec.ID, "maybe", "")
	var verr *collab.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Respond() error = %v, want *collab.ValidationError", err)
	}
}

func TestRespond_TwiceFails(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")
	ctx := context.Background()

	if _, err := m.Respond(ctx, "u1", rec.ID, "accept", ""); err != nil {
		t.Fatalf("first Respond() error = %v", err)
	}

	_, err := m.Respond(ctx, "u1", rec.ID, "accept", "")
	var serr *collab.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("second Respond() error = %v, want *collab.InvalidStateError", err)
	}
	if serr.Status != string(models.CollabAccepted) {
		t.Errorf("error Status = %q, want accepted", serr.Status)
	}
}

func TestRespond_WrongUserIsAuthorizationError(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	_, err := m.Respond(context.Background(), "intruder", rec.ID, "accept", "")
	var aerr *collab.AuthorizationError
	if !errors.As(err, &aerr) {
		t.Fatalf("Respond() error = %v, want *collab.AuthorizationError", err)
	}

	// Record must be untouched.
	got, _ := m.History(context.Background(), "u1", "")
	if got[0].Status != models.CollabPending {
		t.Errorf("Status after denied respond = %q, want pending", got[0].Status)
	}
}

func TestRespond_UnknownID(t *testing.T) {
	m := newManager(t)

	_, err := m.Respond(context.Background(), "u1", "no-such-id", "accept", "")
	var notFound *store.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("Respond() error = %v, want *store.ErrNotFound", err)
	}
}

func TestCancel_PendingBecomesRejectedWithNote(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	got, err := m.Cancel(context.Background(), "u1", rec.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != models.CollabRejected {
		t.Errorf("Status = %q, want rejected", got.Status)
	}
	if got.Feedback != collab.CancelledByUser {
		t.Errorf("Feedback = %q, want %q", got.Feedback, collab.CancelledByUser)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set on cancel")
	}
}

func TestCancel_AcceptedAllowed(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")
	ctx := context.Background()

	m.Respond(ctx, "u1", rec.ID, "accept", "")

	got, err := m.Cancel(ctx, "u1", rec.ID)
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if got.Status != models.CollabRejected {
		t.Errorf("Status = %q, want rejected", got.Status)
	}
}

func TestCancel_CompletedFails(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")
	ctx := context.Background()

	m.Respond(ctx, "u1", rec.ID, "accept", "")
	if _, err := m.Complete(ctx, "u1", rec.ID, ""); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	_, err := m.Cancel(ctx, "u1", rec.ID)
	var serr *collab.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("Cancel() error = %v, want *collab.InvalidStateError", err)
	}
}

func TestComplete_RequiresAccepted(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")

	_, err := m.Complete(context.Background(), "u1", rec.ID, "")
	var serr *collab.InvalidStateError
	if !errors.As(err, &serr) {
		t.Fatalf("Complete() on pending error = %v, want *collab.InvalidStateError", err)
	}
}

func TestComplete_Accepted(t *testing.T) {
	m := newManager(t)
	rec := request(t, m, "u1")
	ctx := context.Background()

	m.Respond(ctx, "u1", rec.ID, "accept", "")

	got, err := m.Complete(ctx, "u1", rec.ID, "done well")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.Status != models.CollabCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}
	if got.Feedback != "done well" {
		t.Errorf("Feedback = %q, want %q", got.Feedback, "done well")
	}
}

func TestStats(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	a := request(t, m, "u1")
	request(t, m, "u1")
	request(t, m, "u2") // must not count for u1
	m.Respond(ctx, "u1", a.ID, "accept", "")

	stats, err := m.Stats(ctx, "u1")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.ByStatus[models.CollabAccepted] != 1 || stats.ByStatus[models.CollabPending] != 1 {
		t.Errorf("ByStatus = %v, want 1 accepted + 1 pending", stats.ByStatus)
	}
	if stats.ByAgent["coral"] != 2 {
		t.Errorf("ByAgent[coral] = %d, want 2", stats.ByAgent["coral"])
	}
}

func TestActive_ExcludesFinishedRecords(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	a := request(t, m, "u1")
	request(t, m, "u1")
	m.Respond(ctx, "u1", a.ID, "reject", "")

	recs, err := m.Active(ctx)
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if len(recs) != 1 {
		t.Errorf("got %d active records, want 1", len(recs))
	}
}

func TestCapabilities(t *testing.T) {
	m := newManager(t)

	caps := m.Capabilities()
	if len(caps) == 0 {
		t.Fatal("Capabilities() returned empty map")
	}
	if _, ok := caps["coral"]; !ok {
		t.Error("Capabilities() missing coral")
	}
}
