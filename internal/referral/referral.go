// Package referral decides whether the agent currently handling a
// conversation should hand off to a better-suited specialist.
//
// Decide is a pure function: it never switches agent context or writes
// anything. The caller owns the actual handoff and the user-facing copy
// (see Message).
package referral

import (
	"fmt"
	"math/rand"

	"github.com/reefhq/reef/orchestrator/pkg/models"
)

// Engine evaluates referral rules over a domain analysis.
type Engine struct{}

// NewEngine creates a referral engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Decide evaluates the referral rules in order; the first match wins.
//
//  1. The current agent already owns the message's domain → no referral.
//  2. Basic complexity or confidence below 0.5 → too low-signal to
//     interrupt the conversation.
//  3. No available agent declares the message's domain → no referral.
//  4. Otherwise refer to the first matching specialist.
//
// Rule evaluation depends only on the given roster order, so results are
// deterministic for a fixed roster.
func (e *Engine) Decide(current *models.AgentInfo, analysis models.DomainAnalysis, available []models.AgentInfo) models.ReferralDecision {
	if current != nil && current.Domain == analysis.PrimaryDomain {
		return models.ReferralDecision{Confidence: analysis.Confidence}
	}

	if analysis.Complexity == models.ComplexityBasic || analysis.Confidence < 0.5 {
		return models.ReferralDecision{Confidence: analysis.Confidence}
	}

	for _, a := range available {
		if a.Domain != analysis.PrimaryDomain {
			continue
		}
		if current != nil && a.ID == current.ID {
			continue
		}
		return models.ReferralDecision{
			ShouldRefer: true,
			TargetAgent: a.ID,
			Reason:      analysis.PrimaryDomain,
			Confidence:  analysis.Confidence,
		}
	}

	return models.ReferralDecision{Confidence: analysis.Confidence}
}

// Handoff copy shown to the user when a referral happens. Each template
// takes the target agent's name, then the domain label. One is picked at
// random per referral.
var handoffTemplates = []string{
	"I'd hand this one to %s, our %s specialist. Connecting you now.",
	"%s handles %s for the team — they'll take it from here.",
	"%s knows %s inside out. Switching you over.",
	"Let me bring in %s, who covers %s questions.",
}

// Message renders the user-facing handoff copy for a positive decision.
// Returns "" when the decision is not a referral or the target is unknown.
func Message(d models.ReferralDecision, target *models.AgentInfo) string {
	if !d.ShouldRefer || target == nil {
		return ""
	}
	tmpl := handoffTemplates[rand.Intn(len(handoffTemplates))]
	return fmt.Sprintf(tmpl, target.Name, d.Reason)
}
