// Package predictive serves previously generated answers instead of
// regenerating them. Lookups are probed before any language-model call;
// a lookup failure is treated as a miss (fail-open) so chat correctness
// never depends on cache availability.
package predictive

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/reefhq/reef/orchestrator/internal/store"
	"github.com/reefhq/reef/orchestrator/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSimilarityThreshold accepts a similar-match candidate.
	DefaultSimilarityThreshold = 0.75
	// DefaultConfidenceThreshold gates contextual matches and ShouldUse.
	DefaultConfidenceThreshold = 0.6

	// Candidate set sizes for the similar and contextual paths. The
	// similar path only considers the ten most-confident entries, which
	// can miss a better match with lower stored confidence — a tunable
	// limitation kept intentionally, not widened.
	similarCandidateLimit    = 10
	contextualCandidateLimit = 5

	// Threshold inputs clamp to this range.
	thresholdMin = 0.1
	thresholdMax = 1.0
)

// Cache matches incoming questions against stored preloaded responses.
// Thresholds live behind an atomic snapshot: updates swap the whole
// config, lookups read a consistent pair (stale by at most one update).
type Cache struct {
	store      store.ResponseStore
	thresholds atomic.Pointer[models.CacheThresholds]

	hits   atomic.Int64
	misses atomic.Int64
	byType [3]atomic.Int64 // exact, similar, contextual
}

// NewCache creates a cache with the given initial thresholds.
// Zero-valued thresholds fall back to the defaults.
func NewCache(s store.ResponseStore, t models.CacheThresholds) *Cache {
	if t.Similarity == 0 {
		t.Similarity = DefaultSimilarityThreshold
	}
	if t.Confidence == 0 {
		t.Confidence = DefaultConfidenceThreshold
	}
	c := &Cache{store: s}
	c.thresholds.Store(&t)
	return c
}

// Thresholds returns the current threshold snapshot.
func (c *Cache) Thresholds() models.CacheThresholds {
	return *c.thresholds.Load()
}

// UpdateThresholds clamps both inputs to [0.1, 1.0] and swaps the
// matcher configuration for subsequent lookups.
func (c *Cache) UpdateThresholds(similarity, confidence float64) models.CacheThresholds {
	t := models.CacheThresholds{
		Similarity: clamp(similarity),
		Confidence: clamp(confidence),
	}
	c.thresholds.Store(&t)
	log.Info().
		Float64("similarity", t.Similarity).
		Float64("confidence", t.Confidence).
		Msg("Cache thresholds updated")
	return t
}

func clamp(v float64) float64 {
	if v < thresholdMin {
		return thresholdMin
	}
	if v > thresholdMax {
		return thresholdMax
	}
	return v
}

// Store persists a generated answer for future reuse. Writes are
// unconditional: duplicates for the same question coexist, and lookups
// resolve them most-confident first.
func (c *Cache) Store(ctx context.Context, resp *models.PreloadedResponse) error {
	return c.store.StoreResponse(ctx, resp)
}

// Lookup probes the three match paths in order — exact, similar,
// contextual — and returns the first qualifying match, or nil on a miss.
// All candidate sets are pre-filtered to the user and non-expired entries
// by the store. Store errors are logged and treated as misses.
func (c *Cache) Lookup(ctx context.Context, userID, agentID, question string, reqContext map[string]any) *models.Match {
	t := c.Thresholds()
	now := time.Now().UTC()

	if m := c.exactMatch(ctx, userID, agentID, question); m != nil {
		return c.hit(m, t, now, 0)
	}
	if m := c.similarMatch(ctx, userID, agentID, question, t); m != nil {
		return c.hit(m, t, now, 1)
	}
	if m := c.contextualMatch(ctx, userID, reqContext, t); m != nil {
		return c.hit(m, t, now, 2)
	}

	c.misses.Add(1)
	return nil
}

func (c *Cache) hit(m *models.Match, t models.CacheThresholds, now time.Time, typeIdx int) *models.Match {
	m.ShouldUse = m.Response.Confidence >= t.Confidence
	m.CacheAge = now.Sub(m.Response.GeneratedAt)
	// A match below the confidence bar is handed back for inspection but
	// the caller regenerates, so the stats count it as a miss.
	if !m.ShouldUse {
		c.misses.Add(1)
		return m
	}
	c.hits.Add(1)
	c.byType[typeIdx].Add(1)
	return m
}

// exactMatch finds a stored entry whose response text contains the
// question as a case-insensitive substring, most confident first.
func (c *Cache) exactMatch(ctx context.Context, userID, agentID, question string) *models.Match {
	entries, err := c.store.ListResponsesByAgent(ctx, userID, agentID, 0)
	if err != nil {
		log.Warn().Err(err).Msg("Cache exact lookup failed, treating as miss")
		return nil
	}

	needle := strings.ToLower(question)
	if needle == "" {
		return nil
	}

	for i := range entries {
		if strings.Contains(strings.ToLower(entries[i].Response), needle) {
			return &models.Match{
				Response:   &entries[i],
				Similarity: 1.0,
				Confidence: entries[i].Confidence,
				MatchType:  models.MatchExact,
			}
		}
	}
	return nil
}

// similarMatch compares the question against the stored fingerprints of
// the most-confident entries for (user, agent).
func (c *Cache) similarMatch(ctx context.Context, userID, agentID, question string, t models.CacheThresholds) *models.Match {
	entries, err := c.store.ListResponsesByAgent(ctx, userID, agentID, similarCandidateLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Cache similar lookup failed, treating as miss")
		return nil
	}

	var best *models.PreloadedResponse
	bestSim := 0.0
	for i := range entries {
		sim := TextSimilarity(question, entries[i].QuestionID)
		if sim > bestSim {
			best = &entries[i]
			bestSim = sim
		}
	}

	if best == nil || bestSim < t.Similarity {
		return nil
	}
	return &models.Match{
		Response:   best,
		Similarity: bestSim,
		Confidence: best.Confidence,
		MatchType:  models.MatchSimilar,
	}
}

// contextualMatch compares context maps across the user's most-confident
// entries from any agent.
func (c *Cache) contextualMatch(ctx context.Context, userID string, reqContext map[string]any, t models.CacheThresholds) *models.Match {
	entries, err := c.store.ListResponsesByUser(ctx, userID, contextualCandidateLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Cache contextual lookup failed, treating as miss")
		return nil
	}

	for i := range entries {
		if entries[i].Confidence < t.Confidence {
			continue
		}
		overlap := ContextSimilarity(reqContext, entries[i].Context)
		if overlap >= 0.7 {
			return &models.Match{
				Response:   &entries[i],
				Similarity: overlap,
				Confidence: entries[i].Confidence,
				MatchType:  models.MatchContextual,
			}
		}
	}
	return nil
}

// Stats reports hit/miss counters and the active thresholds.
func (c *Cache) Stats() models.CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses

	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}

	return models.CacheStats{
		Hits:    hits,
		Misses:  misses,
		HitRate: rate,
		ByType: map[models.MatchType]int64{
			models.MatchExact:      c.byType[0].Load(),
			models.MatchSimilar:    c.byType[1].Load(),
			models.MatchContextual: c.byType[2].Load(),
		},
		Thresholds: c.Thresholds(),
	}
}
