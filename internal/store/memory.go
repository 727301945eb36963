// Package store — in-memory Store implementation.
// Used when no database is configured (local dev, tests). Supports
// file-based snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/reefhq/reef/orchestrator/pkg/models"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
type snapshot struct {
	Collaborations map[string]*models.CollaborationRecord `json:"collaborations"`
	Responses      []*models.PreloadedResponse            `json:"responses"`
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu             sync.RWMutex
	collaborations map[string]*models.CollaborationRecord // key: id
	responses      []*models.PreloadedResponse            // append-only; duplicates coexist

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals background goroutines to stop
	closeOnce    sync.Once

	// Expired responses older than this grace period are reclaimed by the
	// background sweep. Reads always filter expiry regardless.
	sweepInterval time.Duration
}

// NewMemoryStore creates a new in-memory store.
// If REEF_DATA_DIR is set, data is persisted to a JSON file in that
// directory. Otherwise defaults to ~/.reef/orchestrator.json.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		collaborations: make(map[string]*models.CollaborationRecord),
		responses:      make([]*models.PreloadedResponse, 0),
		saveCh:         make(chan struct{}, 1),
		doneCh:         make(chan struct{}),
		sweepInterval:  10 * time.Minute,
	}

	dataDir := os.Getenv("REEF_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dataDir = filepath.Join(home, ".reef")
		}
	}
	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "orchestrator.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	go m.sweepLoop()

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop runs in a goroutine, debouncing save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond) // debounce
			m.saveSnapshot()
		}
	}
}

// sweepLoop periodically reclaims expired preloaded responses.
func (m *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.doneCh:
			return
		case <-ticker.C:
			if n, _ := m.PurgeExpiredResponses(context.Background()); n > 0 {
				log.Info().Int("purged", n).Msg("Swept expired preloaded responses")
			}
		}
	}
}

func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Collaborations: m.collaborations,
		Responses:      m.responses,
	}
	data, err := json.MarshalIndent(&snap, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		log.Warn().Err(err).Msg("Snapshot marshal failed")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Warn().Err(err).Msg("Snapshot write failed")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Warn().Err(err).Msg("Snapshot rename failed")
	}
}

func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Msg("Snapshot read failed")
		}
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn().Err(err).Msg("Snapshot corrupt, starting empty")
		return
	}

	m.mu.Lock()
	if snap.Collaborations != nil {
		m.collaborations = snap.Collaborations
	}
	if snap.Responses != nil {
		m.responses = snap.Responses
	}
	m.mu.Unlock()

	log.Info().
		Int("collaborations", len(snap.Collaborations)).
		Int("responses", len(snap.Responses)).
		Msg("Snapshot loaded")
}

// ── Collaboration Store ─────────────────────────────────────

func (m *MemoryStore) CreateCollaboration(ctx context.Context, rec *models.CollaborationRecord) error {
	m.mu.Lock()
	cp := *rec
	m.collaborations[rec.ID] = &cp
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetCollaboration(ctx context.Context, id string) (*models.CollaborationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.collaborations[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "collaboration", Key: id}
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) MutateCollaboration(ctx context.Context, id string, fn func(*models.CollaborationRecord) error) (*models.CollaborationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.collaborations[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "collaboration", Key: id}
	}
	// fn works on a copy; the record is only replaced when fn succeeds.
	cp := *rec
	if err := fn(&cp); err != nil {
		return nil, err
	}
	m.collaborations[id] = &cp
	m.requestSave()
	out := cp
	return &out, nil
}

func (m *MemoryStore) ListCollaborationsByUser(ctx context.Context, userID, agentID string) ([]models.CollaborationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CollaborationRecord, 0)
	for _, rec := range m.collaborations {
		if rec.UserID != userID {
			continue
		}
		if agentID != "" && rec.InitiatingAgentID != agentID {
			continue
		}
		out = append(out, *rec)
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) ListActiveCollaborations(ctx context.Context) ([]models.CollaborationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.CollaborationRecord, 0)
	for _, rec := range m.collaborations {
		if rec.Active() {
			out = append(out, *rec)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// sortNewestFirst orders records by creation time descending, with the id
// as a deterministic tie-break.
func sortNewestFirst(recs []models.CollaborationRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
}

// ── Response Store ──────────────────────────────────────────

func (m *MemoryStore) StoreResponse(ctx context.Context, resp *models.PreloadedResponse) error {
	m.mu.Lock()
	cp := *resp
	m.responses = append(m.responses, &cp)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListResponsesByAgent(ctx context.Context, userID, agentID string, limit int) ([]models.PreloadedResponse, error) {
	return m.listResponses(func(r *models.PreloadedResponse) bool {
		return r.UserID == userID && r.AgentID == agentID
	}, limit)
}

func (m *MemoryStore) ListResponsesByUser(ctx context.Context, userID string, limit int) ([]models.PreloadedResponse, error) {
	return m.listResponses(func(r *models.PreloadedResponse) bool {
		return r.UserID == userID
	}, limit)
}

func (m *MemoryStore) listResponses(match func(*models.PreloadedResponse) bool, limit int) ([]models.PreloadedResponse, error) {
	now := time.Now().UTC()

	m.mu.RLock()
	out := make([]models.PreloadedResponse, 0)
	for _, r := range m.responses {
		if r.Expired(now) || !match(r) {
			continue
		}
		out = append(out, *r)
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) PurgeExpiredResponses(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	m.mu.Lock()
	kept := m.responses[:0]
	purged := 0
	for _, r := range m.responses {
		if r.Expired(now) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	m.responses = kept
	m.mu.Unlock()

	if purged > 0 {
		m.requestSave()
	}
	return purged, nil
}

// ── Lifecycle ───────────────────────────────────────────────

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() {
		close(m.doneCh)
		if m.snapshotPath != "" {
			m.saveSnapshot()
		}
	})
	return nil
}
