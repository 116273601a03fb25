package activities

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/dossierlab/dossier/internal/llm"
)

// SynthesisInput asks for one integrated narrative across all sub-query
// results.
type SynthesisInput struct {
	OriginalQuery string                    `json:"original_query"`
	SubResults    map[string]SubQueryResult `json:"sub_results"`
}

// SynthesisResult is the free-text synthesis. No structural parsing is
// applied to the model output.
type SynthesisResult struct {
	Text       string  `json:"text"`
	TokensUsed int     `json:"tokens_used"`
	CostUSD    float64 `json:"cost_usd"`
}

const maxSynthesisSummaries = 10

// ComposeSynthesis integrates findings across sub-queries into a single
// narrative, weighting each sub-query by its composition role.
func (a *Activities) ComposeSynthesis(ctx context.Context, in SynthesisInput) (*SynthesisResult, error) {
	logger := activity.GetLogger(ctx)

	ids := make([]string, 0, len(in.SubResults))
	for id := range in.SubResults {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var b strings.Builder
	fmt.Fprintf(&b, "Original research question: %s\n\nSub-query results:\n", in.OriginalQuery)
	for _, id := range ids {
		r := in.SubResults[id]
		fmt.Fprintf(&b, "\n[%s] role=%s", id, r.Role)
		if r.FocusTheme != "" {
			fmt.Fprintf(&b, " theme=%s", r.FocusTheme)
		}
		fmt.Fprintf(&b, "\nQuery: %s\n", r.Query)
		if !r.Success {
			fmt.Fprintf(&b, "FAILED: %s\n", r.Error)
			continue
		}
		for i, f := range r.Findings {
			if i == maxSynthesisSummaries {
				break
			}
			summary := f.Summary
			if summary == "" {
				summary = truncateStr(f.Content, 200)
			}
			fmt.Fprintf(&b, "- %s\n", summary)
		}
	}
	b.WriteString(`
Integrate these findings into one coherent answer to the original question. Call out
contradictions and connections between sub-queries. Weight primary-role results most heavily,
treat background-role results as context, and use synthesis-role results to frame the whole.`)

	res, err := a.llm.Generate(ctx, llm.GenerateInput{
		Prompt:       b.String(),
		SystemPrompt: "You synthesize multi-angle research into a single well-organized narrative.",
		Temperature:  0.5,
		MaxTokens:    8192,
		AgentID:      "synthesizer",
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis call: %w", err)
	}

	logger.Info("Synthesis composed", "sub_queries", len(ids), "tokens", res.Usage.TotalTokens)
	return &SynthesisResult{
		Text:       res.Text,
		TokensUsed: res.Usage.TotalTokens,
		CostUSD:    res.Usage.CostUSD,
	}, nil
}
