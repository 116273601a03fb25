package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.temporal.io/sdk/activity"

	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/llm"
	"github.com/dossierlab/dossier/internal/metrics"
	"github.com/dossierlab/dossier/internal/perspectives"
)

// TopicAnalysisInput runs one persona over the whole research topic.
type TopicAnalysisInput struct {
	Persona  perspectives.Persona `json:"persona"`
	Topic    string               `json:"topic"`
	Findings []findings.Finding   `json:"findings"`
	Summary  string               `json:"summary,omitempty"`
}

// TopicAnalysisResult carries one persona's typed topic analysis.
type TopicAnalysisResult struct {
	Analysis   perspectives.Analysis `json:"analysis"`
	TokensUsed int                   `json:"tokens_used"`
	CostUSD    float64               `json:"cost_usd"`
}

const maxPerspectiveFindings = 20

// AnalyzePerspective runs one persona's topic-level analysis. Malformed
// model output coerces to a default-filled record, never an error.
func (a *Activities) AnalyzePerspective(ctx context.Context, in TopicAnalysisInput) (*TopicAnalysisResult, error) {
	logger := activity.GetLogger(ctx)

	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       buildTopicPerspectivePrompt(in),
		SystemPrompt: perspectives.SystemPrompt(in.Persona),
		Temperature:  0.6,
		MaxTokens:    8192,
		AgentID:      "perspective_" + string(in.Persona),
	})
	if err != nil {
		metrics.PerspectiveRuns.WithLabelValues(string(in.Persona), "error").Inc()
		return nil, fmt.Errorf("%s perspective: %w", in.Persona, err)
	}
	out := &TopicAnalysisResult{
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
	}

	raw := map[string]interface{}{}
	if res.Raw != nil {
		if err := json.Unmarshal(res.Raw, &raw); err != nil {
			raw = map[string]interface{}{}
		}
	}
	if len(raw) == 0 {
		logger.Warn("Perspective response unparseable, coercing empty record",
			"persona", in.Persona, "parse_error", res.ParseError)
	}
	out.Analysis = perspectives.Coerce(in.Persona, raw)

	metrics.PerspectiveRuns.WithLabelValues(string(in.Persona), "ok").Inc()
	return out, nil
}

// FindingAnalysisInput runs one persona over one finding.
type FindingAnalysisInput struct {
	Persona perspectives.Persona `json:"persona"`
	Finding findings.Finding     `json:"finding"`
	Topic   string               `json:"topic"`
}

// FindingAnalysisResult carries one persona's typed finding analysis.
type FindingAnalysisResult struct {
	FindingID  string                `json:"finding_id"`
	Analysis   perspectives.Analysis `json:"analysis"`
	TokensUsed int                   `json:"tokens_used"`
	CostUSD    float64               `json:"cost_usd"`
}

// AnalyzeFindingPerspective runs one persona's single-finding analysis.
func (a *Activities) AnalyzeFindingPerspective(ctx context.Context, in FindingAnalysisInput) (*FindingAnalysisResult, error) {
	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       buildFindingPerspectivePrompt(in),
		SystemPrompt: perspectives.SystemPrompt(in.Persona),
		Temperature:  0.4,
		AgentID:      "perspective_" + string(in.Persona),
		ModelTier:    "small",
	})
	if err != nil {
		metrics.PerspectiveRuns.WithLabelValues(string(in.Persona), "error").Inc()
		return nil, fmt.Errorf("%s perspective on %s: %w", in.Persona, in.Finding.ID, err)
	}

	raw := map[string]interface{}{}
	if res.Raw != nil {
		if err := json.Unmarshal(res.Raw, &raw); err != nil {
			raw = map[string]interface{}{}
		}
	}

	metrics.PerspectiveRuns.WithLabelValues(string(in.Persona), "ok").Inc()
	return &FindingAnalysisResult{
		FindingID:  in.Finding.ID,
		Analysis:   perspectives.Coerce(in.Persona, raw),
		TokensUsed: res.Response.Usage.TotalTokens,
		CostUSD:    res.Response.Usage.CostUSD,
	}, nil
}

func buildTopicPerspectivePrompt(in TopicAnalysisInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n", in.Topic)
	if in.Summary != "" {
		fmt.Fprintf(&b, "\nResearch summary:\n%s\n", truncateStr(in.Summary, 2000))
	}
	items := in.Findings
	if len(items) > maxPerspectiveFindings {
		items = items[:maxPerspectiveFindings]
	}
	if len(items) > 0 {
		b.WriteString("\nFindings:\n")
		for _, f := range items {
			fmt.Fprintf(&b, "- [%s] (%s) %s\n", f.ID, f.Type, truncateStr(f.Content, 300))
		}
	}
	fmt.Fprintf(&b, "\nAnalyze the topic from your perspective. Respond with JSON only:\n%s",
		perspectives.ResponseShape(in.Persona))
	return b.String()
}

func buildFindingPerspectivePrompt(in FindingAnalysisInput) string {
	return fmt.Sprintf(`Research topic: %s

Finding [%s] (type: %s):
%s

Analyze this single finding from your perspective. Respond with JSON only:
%s`, in.Topic, in.Finding.ID, in.Finding.Type, in.Finding.Content,
		perspectives.ResponseShape(in.Persona))
}
