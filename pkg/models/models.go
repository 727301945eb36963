// Package models defines the shared data model for the Reef orchestrator:
// agents, domain analyses, referral decisions, collaboration records, and
// preloaded (predictively cached) responses.
package models

import "time"

// ── Agents ──────────────────────────────────────────────────

// AgentInfo describes a specialist agent in the roster.
// The roster is static: loaded once at process start from the registry.
type AgentInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Domain      string   `json:"domain"`
	Expertise   []string `json:"expertise,omitempty"`
	Color       string   `json:"color,omitempty"`
	Description string   `json:"description,omitempty"`
}

// DomainGeneral is returned by the classifier when no keyword matched.
const DomainGeneral = "general"

// ── Domain Analysis ─────────────────────────────────────────

// Complexity grades how involved a message is.
type Complexity string

const (
	ComplexityBasic        Complexity = "basic"
	ComplexityIntermediate Complexity = "intermediate"
	ComplexityAdvanced     Complexity = "advanced"
)

// DomainAnalysis is the classifier's verdict for a single message.
// Ephemeral: computed per message, never persisted.
type DomainAnalysis struct {
	PrimaryDomain      string     `json:"primaryDomain"`
	Confidence         float64    `json:"confidence"`
	Keywords           []string   `json:"keywords"`
	Complexity         Complexity `json:"complexity"`
	RequiresSpecialist bool       `json:"requiresSpecialist"`
}

// ── Referral ────────────────────────────────────────────────

// ReferralDecision says whether the current agent should hand the
// conversation to a specialist. TargetAgent is set iff ShouldRefer.
type ReferralDecision struct {
	ShouldRefer bool    `json:"shouldRefer"`
	TargetAgent string  `json:"targetAgent,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// ── Collaboration ───────────────────────────────────────────

// CollabStatus is the collaboration lifecycle state.
type CollabStatus string

const (
	CollabPending   CollabStatus = "pending"
	CollabAccepted  CollabStatus = "accepted"
	CollabRejected  CollabStatus = "rejected"
	CollabCompleted CollabStatus = "completed"
)

// Priority orders collaboration requests.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is one of the four declared priorities.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// CollaborationRequest is the POST /collaboration payload.
type CollaborationRequest struct {
	InitiatingAgentID    string         `json:"initiatingAgentId"`
	TaskType             string         `json:"taskType"`
	Description          string         `json:"description"`
	Data                 map[string]any `json:"data,omitempty"`
	Priority             Priority       `json:"priority,omitempty"`
	RequiredCapabilities []string       `json:"requiredCapabilities,omitempty"`
	Deadline             *time.Time     `json:"deadline,omitempty"`
	Context              map[string]any `json:"context,omitempty"`
}

// CollaborationRecord is a persisted cross-agent task request.
// Records are never deleted; rejected and completed records are retained
// for audit and statistics.
type CollaborationRecord struct {
	ID                   string         `json:"id"`
	UserID               string         `json:"userId"`
	InitiatingAgentID    string         `json:"initiatingAgentId"`
	TaskType             string         `json:"taskType"`
	Description          string         `json:"description"`
	Data                 map[string]any `json:"data,omitempty"`
	Priority             Priority       `json:"priority"`
	RequiredCapabilities []string       `json:"requiredCapabilities,omitempty"`
	Status               CollabStatus   `json:"status"`
	Deadline             *time.Time     `json:"deadline,omitempty"`
	Context              map[string]any `json:"context,omitempty"`
	Feedback             string         `json:"feedback,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	RespondedAt          *time.Time     `json:"respondedAt,omitempty"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
}

// Active reports whether the record still needs attention.
func (r *CollaborationRecord) Active() bool {
	return r.Status == CollabPending || r.Status == CollabAccepted
}

// CollaborationStats aggregates a user's collaboration history.
type CollaborationStats struct {
	Total    int                  `json:"total"`
	ByStatus map[CollabStatus]int `json:"byStatus"`
	ByAgent  map[string]int       `json:"byAgent"`
}

// AgentCapability is the static capability sheet exposed per agent.
type AgentCapability struct {
	Domain    string   `json:"domain"`
	Expertise []string `json:"expertise"`
}

// ── Predictive Cache ────────────────────────────────────────

// PreloadedResponse is a previously generated answer kept for reuse.
// QuestionID is the fingerprint of the originating question (normalized
// question text). Confidence is the quality estimate attached at
// generation time, not matching confidence.
type PreloadedResponse struct {
	QuestionID  string           `json:"questionId"`
	AgentID     string           `json:"agentId"`
	UserID      string           `json:"userId"`
	Response    string           `json:"response"`
	Confidence  float64          `json:"confidence"`
	Context     map[string]any   `json:"context,omitempty"`
	GeneratedAt time.Time        `json:"generatedAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
	Metadata    ResponseMetadata `json:"metadata"`
}

// ResponseMetadata records how the cached answer was produced.
type ResponseMetadata struct {
	TokensUsed       int   `json:"tokensUsed"`
	GenerationTimeMs int64 `json:"generationTime"`
	CacheHit         bool  `json:"cacheHit"`
}

// Expired reports whether the entry is past its expiry at the given time.
func (p *PreloadedResponse) Expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// MatchType names which lookup path produced a cache match.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchSimilar    MatchType = "similar"
	MatchContextual MatchType = "contextual"
)

// Match is a qualifying predictive-cache hit.
type Match struct {
	Response   *PreloadedResponse `json:"response"`
	Similarity float64            `json:"similarity"`
	Confidence float64            `json:"confidence"`
	MatchType  MatchType          `json:"matchType"`
	ShouldUse  bool               `json:"shouldUse"`
	CacheAge   time.Duration      `json:"cacheAge"`
}

// CacheStats reports predictive-cache effectiveness for diagnostics.
type CacheStats struct {
	Hits       int64               `json:"hits"`
	Misses     int64               `json:"misses"`
	HitRate    float64             `json:"hitRate"`
	ByType     map[MatchType]int64 `json:"byType"`
	Thresholds CacheThresholds     `json:"thresholds"`
}

// CacheThresholds is the matcher tuning snapshot.
type CacheThresholds struct {
	Similarity float64 `json:"similarity"`
	Confidence float64 `json:"confidence"`
}

// ── Chat ────────────────────────────────────────────────────

// ChatSource names which path produced a chat answer.
type ChatSource string

const (
	SourceCache     ChatSource = "cache"
	SourceReferral  ChatSource = "referral"
	SourceGenerated ChatSource = "generated"
)

// ChatRequest is one inbound chat message entering the decision layer.
type ChatRequest struct {
	AgentID string         `json:"agentId"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
}

// ChatResponse is the decision layer's answer for one message.
type ChatResponse struct {
	Source    ChatSource        `json:"source"`
	Message   string            `json:"message"`
	AgentID   string            `json:"agentId"`
	Analysis  *DomainAnalysis   `json:"analysis,omitempty"`
	Referral  *ReferralDecision `json:"referral,omitempty"`
	CacheHit  *Match            `json:"cacheHit,omitempty"`
	ElapsedMs int64             `json:"elapsedMs"`
}
