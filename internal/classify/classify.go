// Package classify scores which specialist domain a chat message belongs
// to. Classification is a pure function over the static keyword index:
// no I/O, deterministic, safe for unbounded concurrent use.
package classify

import (
	"sort"
	"strings"

	"github.com/reefhq/reef/orchestrator/internal/registry"
	"github.com/reefhq/reef/orchestrator/pkg/models"
)

// Technical terms that bump a message straight to advanced complexity.
var technicalTerms = []string{
	"API", "integration", "automation", "workflow", "analytics", "optimization",
}

// Classifier scores messages against a keyword domain index.
type Classifier struct {
	domains []registry.DomainKeywords
}

// New creates a classifier bound to the registry's domain index.
func New(reg *registry.Registry) *Classifier {
	return &Classifier{domains: reg.Domains()}
}

// Classify analyzes a single message.
//
// A domain's raw score is the number of its distinct keyword phrases that
// occur in the message (case-insensitive substring). The highest score
// wins; ties break toward the domain declared first in the index. Three
// or more distinct matches saturate confidence at 1.0.
func (c *Classifier) Classify(message string) models.DomainAnalysis {
	lower := strings.ToLower(message)

	type hit struct {
		keyword string
		pos     int
	}

	best := ""
	bestScore := 0
	var hits []hit

	for _, d := range c.domains {
		score := 0
		for _, kw := range d.Keywords {
			pos := strings.Index(lower, strings.ToLower(kw))
			if pos < 0 {
				continue
			}
			score++
			hits = append(hits, hit{keyword: kw, pos: pos})
		}
		if score > bestScore {
			best = d.Domain
			bestScore = score
		}
	}

	if bestScore == 0 {
		return models.DomainAnalysis{
			PrimaryDomain: models.DomainGeneral,
			Confidence:    0,
			Keywords:      []string{},
			Complexity:    complexityOf(message, 0),
		}
	}

	// Keywords are reported in encounter order within the message.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	keywords := make([]string, len(hits))
	for i, h := range hits {
		keywords[i] = h.keyword
	}

	confidence := float64(bestScore) / 3.0
	if confidence > 1.0 {
		confidence = 1.0
	}

	complexity := complexityOf(message, len(hits))

	return models.DomainAnalysis{
		PrimaryDomain:      best,
		Confidence:         confidence,
		Keywords:           keywords,
		Complexity:         complexity,
		RequiresSpecialist: confidence > 0.6 && complexity != models.ComplexityBasic,
	}
}

// complexityOf grades the message: advanced on long messages, dense
// keyword hits, or any technical term; intermediate on moderate length
// or more than two hits; basic otherwise.
func complexityOf(message string, totalHits int) models.Complexity {
	lower := strings.ToLower(message)

	if len(message) > 200 || totalHits > 5 {
		return models.ComplexityAdvanced
	}
	for _, term := range technicalTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return models.ComplexityAdvanced
		}
	}
	if len(message) > 100 || totalHits > 2 {
		return models.ComplexityIntermediate
	}
	return models.ComplexityBasic
}
