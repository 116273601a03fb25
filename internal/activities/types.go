package activities

import (
	"strings"

	"github.com/dossierlab/dossier/internal/findings"
)

// MaxSubQueries caps how many sub-queries one decomposition may produce.
const MaxSubQueries = 6

// Strategy tags how a query was decomposed.
type Strategy string

const (
	StrategyNone     Strategy = "none"
	StrategyTemporal Strategy = "temporal"
	StrategyThematic Strategy = "thematic"
	StrategyActor    Strategy = "actor"
	StrategyHybrid   Strategy = "hybrid"
)

// ParseStrategy maps a model-produced string onto the strategy enum,
// defaulting to none.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case StrategyTemporal:
		return StrategyTemporal
	case StrategyThematic:
		return StrategyThematic
	case StrategyActor:
		return StrategyActor
	case StrategyHybrid:
		return StrategyHybrid
	default:
		return StrategyNone
	}
}

// CompositionRole weights a sub-query's findings during synthesis.
type CompositionRole string

const (
	RoleEqual      CompositionRole = "equal"
	RoleBackground CompositionRole = "background"
	RolePrimary    CompositionRole = "primary"
	RoleSynthesis  CompositionRole = "synthesis"
)

func ParseRole(s string) CompositionRole {
	switch CompositionRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleBackground:
		return RoleBackground
	case RolePrimary:
		return RolePrimary
	case RoleSynthesis:
		return RoleSynthesis
	default:
		return RoleEqual
	}
}

// SubQuery is one decomposed piece of a research question. Immutable
// after the plan is assembled.
type SubQuery struct {
	ID            string          `json:"id"`
	Query         string          `json:"query"`
	OriginalQuery string          `json:"original_query"`
	Strategy      Strategy        `json:"strategy"`
	BatchOrder    int             `json:"batch_order"`
	StartDate     string          `json:"start_date,omitempty"` // ISO
	EndDate       string          `json:"end_date,omitempty"`   // ISO
	FocusTheme    string          `json:"focus_theme,omitempty"`
	FocusActors   []string        `json:"focus_actors,omitempty"`
	Role          CompositionRole `json:"composition_role"`
	DependsOn     []string        `json:"depends_on,omitempty"`
}

// SubQueryResult is the outcome of executing one sub-query. When Success
// is false, Findings and Sources are empty and Error is set.
type SubQueryResult struct {
	ID         string            `json:"id"`
	Query      string            `json:"query"`
	Findings   []findings.Finding `json:"findings"`
	Sources    []string          `json:"sources"`
	Content    string            `json:"content"`
	Role       CompositionRole   `json:"composition_role"`
	FocusTheme string            `json:"focus_theme,omitempty"`
	TokensUsed int               `json:"tokens_used"`
	CostUSD    float64           `json:"cost_usd"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
}

// DateRange is the detected date window of a query, ISO formatted.
type DateRange struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	SpanYears int    `json:"span_years"`
}

// DecompositionResult is the decomposition verdict plus, when positive,
// the assembled sub-query plan.
type DecompositionResult struct {
	OriginalQuery      string     `json:"original_query"`
	NeedsDecomposition bool       `json:"needs_decomposition"`
	Strategy           Strategy   `json:"strategy"`
	SubQueries         []SubQuery `json:"sub_queries"`
	DateRange          *DateRange `json:"date_range,omitempty"`
	Themes             []string   `json:"themes,omitempty"`
	Actors             []string   `json:"actors,omitempty"`
	Reasoning          string     `json:"reasoning,omitempty"`
}

// QueryCount reports how many queries will actually run.
func (r *DecompositionResult) QueryCount() int {
	if r.NeedsDecomposition && len(r.SubQueries) > 0 {
		return len(r.SubQueries)
	}
	return 1
}

// SuggestedSplit is one split proposal from the decomposition verdict,
// later turned into a concrete SubQuery.
type SuggestedSplit struct {
	Focus      string `json:"focus"`
	TimePeriod string `json:"time_period,omitempty"`
	Priority   string `json:"priority,omitempty"`
}

// CompletedSummary summarizes one already-executed sub-query for the
// context handed to later batches.
type CompletedSummary struct {
	ID           string `json:"id"`
	Query        string `json:"query"`
	FindingCount int    `json:"finding_count"`
	Summary      string `json:"summary"`
}

// ExecutionContext is the snapshot of prior results a sub-query executes
// against.
type ExecutionContext struct {
	OriginalQuery string             `json:"original_query"`
	Completed     []CompletedSummary `json:"completed,omitempty"`
}
