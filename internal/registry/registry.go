// Package registry holds the static agent roster and the keyword domain
// index. Both are fixed at process start: the roster maps each specialist
// agent to its declared domain, and the index maps each domain to the
// keyword phrases the classifier scores against.
package registry

import "github.com/reefhq/reef/orchestrator/pkg/models"

// Registry is a read-only lookup over the agent roster and domain index.
type Registry struct {
	agents  []models.AgentInfo
	byID    map[string]*models.AgentInfo
	domains []DomainKeywords
}

// DomainKeywords binds a domain to its keyword phrases.
// Declaration order matters: classifier ties break toward the
// earlier-declared domain.
type DomainKeywords struct {
	Domain   string
	Keywords []string
}

// New builds a registry from an explicit roster and domain index.
func New(agents []models.AgentInfo, domains []DomainKeywords) *Registry {
	byID := make(map[string]*models.AgentInfo, len(agents))
	for i := range agents {
		byID[agents[i].ID] = &agents[i]
	}
	return &Registry{agents: agents, byID: byID, domains: domains}
}

// Default returns the built-in roster and index for the commerce chat
// product: five specialists, one domain each.
func Default() *Registry {
	return New(defaultAgents(), defaultDomains())
}

// Get returns the agent with the given id, or nil if unknown.
func (r *Registry) Get(id string) *models.AgentInfo {
	return r.byID[id]
}

// List returns the full roster in declaration order.
func (r *Registry) List() []models.AgentInfo {
	out := make([]models.AgentInfo, len(r.agents))
	copy(out, r.agents)
	return out
}

// Domains returns the keyword index in declaration order.
func (r *Registry) Domains() []DomainKeywords {
	return r.domains
}

// Capabilities returns the static agent→capability map exposed by the
// collaboration API.
func (r *Registry) Capabilities() map[string]models.AgentCapability {
	caps := make(map[string]models.AgentCapability, len(r.agents))
	for _, a := range r.agents {
		caps[a.ID] = models.AgentCapability{Domain: a.Domain, Expertise: a.Expertise}
	}
	return caps
}

func defaultAgents() []models.AgentInfo {
	return []models.AgentInfo{
		{
			ID:          "coral",
			Name:        "Coral",
			Domain:      "support",
			Expertise:   []string{"order issues", "returns", "customer communication"},
			Color:       "#ff6f61",
			Description: "Customer support specialist",
		},
		{
			ID:          "ledger",
			Name:        "Ledger",
			Domain:      "finance",
			Expertise:   []string{"forecasting", "budgeting", "margin analysis"},
			Color:       "#2e7d32",
			Description: "Finance and accounting specialist",
		},
		{
			ID:          "pearl",
			Name:        "Pearl",
			Domain:      "operations",
			Expertise:   []string{"inventory planning", "fulfillment", "supplier management"},
			Color:       "#7e57c2",
			Description: "Inventory and operations specialist",
		},
		{
			ID:          "quill",
			Name:        "Quill",
			Domain:      "content",
			Expertise:   []string{"product copy", "SEO", "campaigns"},
			Color:       "#0288d1",
			Description: "Content and marketing specialist",
		},
		{
			ID:          "atlas",
			Name:        "Atlas",
			Domain:      "analytics",
			Expertise:   []string{"reporting", "conversion analysis", "trends"},
			Color:       "#f9a825",
			Description: "Analytics and reporting specialist",
		},
	}
}

func defaultDomains() []DomainKeywords {
	return []DomainKeywords{
		{
			Domain: "support",
			Keywords: []string{
				"refund", "return", "complaint", "customer", "order status",
				"shipping", "delivery", "exchange", "damaged", "help",
			},
		},
		{
			Domain: "finance",
			Keywords: []string{
				"budget", "forecast", "financial", "variance", "revenue",
				"profit", "margin", "cash flow", "expense", "tax", "invoice",
			},
		},
		{
			Domain: "operations",
			Keywords: []string{
				"inventory", "stock", "sku", "reorder", "warehouse",
				"fulfillment", "supplier", "restock", "lead time", "backorder",
			},
		},
		{
			Domain: "content",
			Keywords: []string{
				"blog", "copy", "seo", "product description", "social media",
				"campaign", "headline", "newsletter", "branding", "caption",
			},
		},
		{
			Domain: "analytics",
			Keywords: []string{
				"conversion", "traffic", "report", "metrics", "dashboard",
				"trend", "retention", "churn", "funnel", "segment",
			},
		},
	}
}
