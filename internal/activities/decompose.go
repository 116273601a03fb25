package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.temporal.io/sdk/activity"

	"github.com/dossierlab/dossier/internal/dates"
	"github.com/dossierlab/dossier/internal/llm"
	"github.com/dossierlab/dossier/internal/metrics"
)

// DecomposeInput asks for a decomposition verdict on one research query.
type DecomposeInput struct {
	Query string `json:"query"`
	Force bool   `json:"force"`
}

// DecomposeResult is the verdict: whether to decompose, how, and the
// suggested splits the plan step will turn into sub-queries.
type DecomposeResult struct {
	NeedsDecomposition bool             `json:"needs_decomposition"`
	Strategy           Strategy         `json:"strategy"`
	Reasoning          string           `json:"reasoning"`
	Themes             []string         `json:"themes,omitempty"`
	Actors             []string         `json:"actors,omitempty"`
	Splits             []SuggestedSplit `json:"splits,omitempty"`
	DateRange          *DateRange       `json:"date_range,omitempty"`
	TokensUsed         int              `json:"tokens_used"`
	CostUSD            float64          `json:"cost_usd"`
}

// DecomposeQuery extracts the query's date span, then asks the model
// whether decomposition would genuinely improve coverage. Unparseable
// model output degrades to a negative verdict, never an error.
func (a *Activities) DecomposeQuery(ctx context.Context, in DecomposeInput) (*DecomposeResult, error) {
	logger := activity.GetLogger(ctx)

	out := &DecomposeResult{Strategy: StrategyNone}

	found := dates.Extract(in.Query)
	if min, max, ok := dates.Range(found); ok {
		out.DateRange = &DateRange{
			Start:     min.ISO(),
			End:       max.ISO(),
			SpanYears: dates.SpanYears(min, max),
		}
	}

	span := 0
	if out.DateRange != nil {
		span = out.DateRange.SpanYears
	}
	start := time.Now()
	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       buildVerdictPrompt(in.Query, span),
		SystemPrompt: verdictSystemPrompt,
		Temperature:  0.2,
		AgentID:      "decomposer",
		ModelTier:    "small",
	})
	if err != nil {
		return nil, fmt.Errorf("decomposition verdict call: %w", err)
	}
	metrics.DecompositionLatency.Observe(time.Since(start).Seconds())
	out.TokensUsed = res.Response.Usage.TotalTokens
	out.CostUSD = res.Response.Usage.CostUSD

	var verdict struct {
		NeedsDecomposition bool             `json:"needs_decomposition"`
		Strategy           string           `json:"strategy"`
		Reasoning          string           `json:"reasoning"`
		Themes             []string         `json:"themes"`
		Actors             []string         `json:"actors"`
		SuggestedSplits    []SuggestedSplit `json:"suggested_splits"`
	}
	if res.Raw == nil || json.Unmarshal(res.Raw, &verdict) != nil {
		logger.Warn("Decomposition verdict unparseable, defaulting to no decomposition",
			"parse_error", res.ParseError)
		metrics.DecompositionErrors.Inc()
		if in.Force {
			out.NeedsDecomposition = true
			out.Strategy = StrategyHybrid
		}
		return out, nil
	}

	out.NeedsDecomposition = verdict.NeedsDecomposition
	out.Strategy = ParseStrategy(verdict.Strategy)
	out.Reasoning = verdict.Reasoning
	out.Themes = verdict.Themes
	out.Actors = verdict.Actors
	out.Splits = verdict.SuggestedSplits

	if in.Force && !out.NeedsDecomposition {
		out.NeedsDecomposition = true
		if out.Strategy == StrategyNone {
			out.Strategy = StrategyHybrid
		}
	}

	metrics.Decompositions.WithLabelValues(string(out.Strategy)).Inc()
	logger.Info("Decomposition verdict",
		"needs_decomposition", out.NeedsDecomposition,
		"strategy", out.Strategy,
		"splits", len(out.Splits),
	)
	return out, nil
}

// SubQueryPlanInput turns suggested splits into a concrete sub-query plan.
type SubQueryPlanInput struct {
	Query     string           `json:"query"`
	Strategy  Strategy         `json:"strategy"`
	Splits    []SuggestedSplit `json:"splits"`
	DateRange *DateRange       `json:"date_range,omitempty"`
}

// SubQueryPlanResult is the assembled plan. SubQueries may be empty when
// the model produced nothing usable; the caller then falls back to the
// single-pass path.
type SubQueryPlanResult struct {
	SubQueries []SubQuery `json:"sub_queries"`
	TokensUsed int        `json:"tokens_used"`
	CostUSD    float64    `json:"cost_usd"`
}

// GenerateSubQueries performs the second decomposition step: concrete
// query texts, date bounds, batch order, composition roles, and
// dependency references resolved to sq_N ids.
func (a *Activities) GenerateSubQueries(ctx context.Context, in SubQueryPlanInput) (*SubQueryPlanResult, error) {
	logger := activity.GetLogger(ctx)

	maxPlan := a.maxSubQueries()
	splits := in.Splits
	if len(splits) > maxPlan {
		splits = splits[:maxPlan]
	}

	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       buildPlanPrompt(in.Query, in.Strategy, splits, in.DateRange),
		SystemPrompt: planSystemPrompt,
		Temperature:  0.3,
		AgentID:      "subquery_planner",
		ModelTier:    "small",
	})
	if err != nil {
		return nil, fmt.Errorf("sub-query plan call: %w", err)
	}
	out := &SubQueryPlanResult{
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
	}

	var plan struct {
		SubQueries []struct {
			Query           string   `json:"query"`
			FocusTheme      string   `json:"focus_theme"`
			FocusActors     []string `json:"focus_actors"`
			StartDate       string   `json:"start_date"`
			EndDate         string   `json:"end_date"`
			BatchOrder      int      `json:"batch_order"`
			CompositionRole string   `json:"composition_role"`
			DependsOn       []int    `json:"depends_on_indices"`
		} `json:"sub_queries"`
	}
	if res.Raw == nil || json.Unmarshal(res.Raw, &plan) != nil {
		logger.Warn("Sub-query plan unparseable, returning empty plan",
			"parse_error", res.ParseError)
		metrics.DecompositionErrors.Inc()
		return out, nil
	}

	raw := plan.SubQueries
	if len(raw) > maxPlan {
		raw = raw[:maxPlan]
	}

	// Ids number the kept entries so a blank entry never leaves a hole a
	// dependency could point into; position maps the model's zero-based
	// list indices onto kept slots. Numbering happens before the
	// batch-order sort below so dependency references stay resolvable.
	position := make(map[int]int, len(raw))
	for i, entry := range raw {
		if strings.TrimSpace(entry.Query) != "" {
			position[i] = len(position)
		}
	}
	for i, entry := range raw {
		keptPos, kept := position[i]
		if !kept {
			continue
		}
		sq := SubQuery{
			ID:            fmt.Sprintf("sq_%d", keptPos+1),
			Query:         entry.Query,
			OriginalQuery: in.Query,
			Strategy:      in.Strategy,
			BatchOrder:    entry.BatchOrder,
			FocusTheme:    entry.FocusTheme,
			FocusActors:   entry.FocusActors,
			Role:          ParseRole(entry.CompositionRole),
		}
		// Malformed dates are dropped, not fatal.
		if _, ok := dates.ParseISO(entry.StartDate); ok {
			sq.StartDate = entry.StartDate
		}
		if _, ok := dates.ParseISO(entry.EndDate); ok {
			sq.EndDate = entry.EndDate
		}
		// Dependencies on later entries or dropped slots are discarded.
		for _, idx := range entry.DependsOn {
			if idx < 0 || idx >= i {
				continue
			}
			if p, ok := position[idx]; ok {
				sq.DependsOn = append(sq.DependsOn, fmt.Sprintf("sq_%d", p+1))
			}
		}
		out.SubQueries = append(out.SubQueries, sq)
	}

	sort.SliceStable(out.SubQueries, func(i, j int) bool {
		return out.SubQueries[i].BatchOrder < out.SubQueries[j].BatchOrder
	})

	logger.Info("Sub-query plan assembled", "count", len(out.SubQueries))
	return out, nil
}

const verdictSystemPrompt = `You analyze research questions and decide whether splitting them into
sub-queries would genuinely improve research coverage. Be conservative: most questions are best
answered as a single query. Decompose only for queries spanning long time periods, multiple
distinct themes, or several independent actors.`

func buildVerdictPrompt(query string, spanYears int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research question: %s\n", query)
	if spanYears > 0 {
		fmt.Fprintf(&b, "Detected date span: %d years\n", spanYears)
	}
	b.WriteString(`
Decide whether this question should be decomposed. Respond with JSON only:
{"needs_decomposition": false, "strategy": "none|temporal|thematic|actor|hybrid",
 "reasoning": "...", "themes": ["..."], "actors": ["..."],
 "suggested_splits": [{"focus": "...", "time_period": "...", "priority": "high|medium|low"}]}`)
	return b.String()
}

const planSystemPrompt = `You turn research split proposals into concrete, self-contained search
queries. Each query must be answerable on its own. Use depends_on_indices only when a split truly
needs another split's results first; indices are zero-based positions into your own list and must
point at earlier entries.`

func buildPlanPrompt(query string, strategy Strategy, splits []SuggestedSplit, dr *DateRange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original question: %s\nStrategy: %s\n", query, strategy)
	if dr != nil {
		fmt.Fprintf(&b, "Date range: %s to %s\n", dr.Start, dr.End)
	}
	b.WriteString("Splits:\n")
	for i, s := range splits {
		fmt.Fprintf(&b, "%d. %s", i, s.Focus)
		if s.TimePeriod != "" {
			fmt.Fprintf(&b, " (period: %s)", s.TimePeriod)
		}
		if s.Priority != "" {
			fmt.Fprintf(&b, " [priority: %s]", s.Priority)
		}
		b.WriteString("\n")
	}
	b.WriteString(`
Produce one sub-query per split. Respond with JSON only:
{"sub_queries": [{"query": "...", "focus_theme": "...", "focus_actors": ["..."],
 "start_date": "2006-01-02", "end_date": "2006-01-02", "batch_order": 0,
 "composition_role": "equal|background|primary|synthesis", "depends_on_indices": [0]}]}`)
	return b.String()
}
