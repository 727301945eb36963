// Package orchestrator is the decision layer between an inbound chat
// message and the expensive language-model call. For each message it
// probes the predictive cache first (cheapest), then classifies the
// message's domain, then decides whether to refer the user to a
// specialist; only when no cheaper path answers does it call the
// external generator, and the fresh answer is written back to the cache.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/reefhq/reef/orchestrator/internal/classify"
	"github.com/reefhq/reef/orchestrator/internal/predictive"
	"github.com/reefhq/reef/orchestrator/internal/referral"
	"github.com/reefhq/reef/orchestrator/internal/registry"
	"github.com/reefhq/reef/orchestrator/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("reef-orchestrator")

// ErrNoGenerator is returned when a message needs generation but no
// Generator is configured.
var ErrNoGenerator = errors.New("no generator configured")

// Generator is the narrow interface to the external language-model
// collaborator. How the model is invoked is not this core's concern.
type Generator interface {
	Generate(ctx context.Context, agentID, userID, message string, msgContext map[string]any) (*GenerateResult, error)
}

// GenerateResult is a freshly generated answer plus its cost metadata.
type GenerateResult struct {
	Text       string
	Confidence float64
	TokensUsed int
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, agentID, userID, message string, msgContext map[string]any) (*GenerateResult, error)

func (f GeneratorFunc) Generate(ctx context.Context, agentID, userID, message string, msgContext map[string]any) (*GenerateResult, error) {
	return f(ctx, agentID, userID, message, msgContext)
}

// Orchestrator runs the per-message decision pipeline.
type Orchestrator struct {
	registry   *registry.Registry
	classifier *classify.Classifier
	referrals  *referral.Engine
	cache      *predictive.Cache
	generator  Generator

	// Fresh answers are cached for this long.
	responseTTL time.Duration
}

// New creates an orchestrator. generator may be nil: cache and referral
// paths still work, and generation-requiring messages fail with
// ErrNoGenerator.
func New(reg *registry.Registry, cache *predictive.Cache, generator Generator, responseTTL time.Duration) *Orchestrator {
	if responseTTL <= 0 {
		responseTTL = 24 * time.Hour
	}
	return &Orchestrator{
		registry:    reg,
		classifier:  classify.New(reg),
		referrals:   referral.NewEngine(),
		cache:       cache,
		generator:   generator,
		responseTTL: responseTTL,
	}
}

// HandleMessage runs one inbound message through the pipeline and
// returns whichever answer path won.
func (o *Orchestrator) HandleMessage(ctx context.Context, userID string, req *models.ChatRequest) (*models.ChatResponse, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "orchestrator.HandleMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("reef.agent_id", req.AgentID),
		attribute.Int("reef.message_length", len(req.Message)),
	)

	// 1. Predictive cache — cheapest path.
	if match := o.cache.Lookup(ctx, userID, req.AgentID, req.Message, req.Context); match != nil && match.ShouldUse {
		span.SetAttributes(attribute.String("reef.source", "cache"))
		log.Debug().
			Str("agent", req.AgentID).
			Str("match_type", string(match.MatchType)).
			Float64("similarity", match.Similarity).
			Msg("Predictive cache hit")
		return &models.ChatResponse{
			Source:    models.SourceCache,
			Message:   match.Response.Response,
			AgentID:   req.AgentID,
			CacheHit:  match,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	// 2. Classify the message's domain.
	analysis := o.classifier.Classify(req.Message)
	span.SetAttributes(
		attribute.String("reef.domain", analysis.PrimaryDomain),
		attribute.Float64("reef.confidence", analysis.Confidence),
	)

	// 3. Referral — redirect to a specialist instead of generating.
	current := o.registry.Get(req.AgentID)
	decision := o.referrals.Decide(current, analysis, o.registry.List())
	if decision.ShouldRefer {
		target := o.registry.Get(decision.TargetAgent)
		span.SetAttributes(attribute.String("reef.source", "referral"))
		log.Info().
			Str("from", req.AgentID).
			Str("to", decision.TargetAgent).
			Str("domain", analysis.PrimaryDomain).
			Msg("Referring conversation to specialist")
		return &models.ChatResponse{
			Source:    models.SourceReferral,
			Message:   referral.Message(decision, target),
			AgentID:   decision.TargetAgent,
			Analysis:  &analysis,
			Referral:  &decision,
			ElapsedMs: time.Since(start).Milliseconds(),
		}, nil
	}

	// 4. Generate through the external collaborator.
	if o.generator == nil {
		return nil, ErrNoGenerator
	}

	genStart := time.Now()
	result, err := o.generator.Generate(ctx, req.AgentID, userID, req.Message, req.Context)
	if err != nil {
		return nil, err
	}
	genElapsed := time.Since(genStart)

	// 5. Write back for future reuse. A write failure only costs a
	// future cache hit, never the current answer.
	now := time.Now().UTC()
	stored := &models.PreloadedResponse{
		QuestionID:  predictive.Fingerprint(req.Message),
		AgentID:     req.AgentID,
		UserID:      userID,
		Response:    result.Text,
		Confidence:  result.Confidence,
		Context:     req.Context,
		GeneratedAt: now,
		ExpiresAt:   now.Add(o.responseTTL),
		Metadata: models.ResponseMetadata{
			TokensUsed:       result.TokensUsed,
			GenerationTimeMs: genElapsed.Milliseconds(),
		},
	}
	if err := o.cache.Store(ctx, stored); err != nil {
		log.Warn().Err(err).Msg("Failed to cache generated response")
	}

	span.SetAttributes(attribute.String("reef.source", "generated"))
	return &models.ChatResponse{
		Source:    models.SourceGenerated,
		Message:   result.Text,
		AgentID:   req.AgentID,
		Analysis:  &analysis,
		ElapsedMs: time.Since(start).Milliseconds(),
	}, nil
}
