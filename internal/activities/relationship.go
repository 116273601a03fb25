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
	"github.com/dossierlab/dossier/internal/relationships"
)

// RelationshipPassInput is shared by all four graph-extraction passes.
type RelationshipPassInput struct {
	Topic    string             `json:"topic"`
	Findings []findings.Finding `json:"findings"`
}

func (in RelationshipPassInput) knownIDs() map[string]bool {
	ids := make([]string, 0, len(in.Findings))
	for _, f := range in.Findings {
		ids = append(ids, f.ID)
	}
	return relationships.KnownIDs(ids)
}

// RelationshipEdgesResult carries the pairwise-relationship pass output.
type RelationshipEdgesResult struct {
	Relationships []relationships.FindingRelationship `json:"relationships"`
	TokensUsed    int                                 `json:"tokens_used"`
	CostUSD       float64                             `json:"cost_usd"`
}

// ExtractRelationships finds typed edges between findings. Unparseable
// output degrades to an empty edge list.
func (a *Activities) ExtractRelationships(ctx context.Context, in RelationshipPassInput) (*RelationshipEdgesResult, error) {
	prompt := findingsBlock(in) + fmt.Sprintf(`
Identify relationships between findings. Return at most %d, strongest first. Respond with JSON only:
{"relationships": [{"source_id": "f_1", "target_id": "f_2",
 "type": "causes|supports|contradicts|expands|precedes|involves|supersedes|part_of",
 "description": "...", "strength": 0.8}]}`, relationships.MaxRelationships)

	res, usage, err := a.relationshipCall(ctx, "relationship_mapper", prompt)
	if err != nil {
		metrics.RelationshipPasses.WithLabelValues("relationships", "error").Inc()
		return nil, err
	}
	out := &RelationshipEdgesResult{TokensUsed: usage.TotalTokens, CostUSD: usage.CostUSD}
	out.Relationships = relationships.CoerceRelationships(listField(ctx, res, "relationships"), in.knownIDs())
	metrics.RelationshipPasses.WithLabelValues("relationships", "ok").Inc()
	return out, nil
}

// ContradictionsResult carries the contradiction-detection pass output.
type ContradictionsResult struct {
	Contradictions []relationships.Contradiction `json:"contradictions"`
	TokensUsed     int                           `json:"tokens_used"`
	CostUSD        float64                       `json:"cost_usd"`
}

// DetectContradictions finds pairs of findings making conflicting claims.
func (a *Activities) DetectContradictions(ctx context.Context, in RelationshipPassInput) (*ContradictionsResult, error) {
	prompt := findingsBlock(in) + `
Identify genuine contradictions: findings whose claims cannot both be true. Findings that merely
cover different aspects of the same topic are NOT contradictions. Respond with JSON only:
{"contradictions": [{"finding_id_1": "f_1", "finding_id_2": "f_2", "claim_1": "...",
 "claim_2": "...", "source_1": "...", "source_2": "...", "significance": "...",
 "resolution_hint": "..."}]}`

	res, usage, err := a.relationshipCall(ctx, "contradiction_detector", prompt)
	if err != nil {
		metrics.RelationshipPasses.WithLabelValues("contradictions", "error").Inc()
		return nil, err
	}
	out := &ContradictionsResult{TokensUsed: usage.TotalTokens, CostUSD: usage.CostUSD}
	out.Contradictions = relationships.CoerceContradictions(listField(ctx, res, "contradictions"), in.knownIDs())
	metrics.RelationshipPasses.WithLabelValues("contradictions", "ok").Inc()
	return out, nil
}

// GapsResult carries the gap-identification pass output.
type GapsResult struct {
	Gaps       []relationships.ResearchGap `json:"gaps"`
	TokensUsed int                         `json:"tokens_used"`
	CostUSD    float64                     `json:"cost_usd"`
}

// IdentifyGaps names what the findings fail to cover: missing time
// periods, uninvestigated actors, unexplored themes, unsupported claims.
func (a *Activities) IdentifyGaps(ctx context.Context, in RelationshipPassInput) (*GapsResult, error) {
	prompt := findingsBlock(in) + fmt.Sprintf(`
Identify gaps in this research: time periods with no findings, actors mentioned but not
investigated, themes left unexplored, claims lacking evidence, regions not covered. Return at
most %d. Respond with JSON only:
{"gaps": [{"gap_type": "temporal|actor|topic|evidence|geographic", "description": "...",
 "priority": "high|medium|low", "suggested_queries": ["..."], "related_finding_ids": ["f_1"]}]}`,
		relationships.MaxGaps)

	res, usage, err := a.relationshipCall(ctx, "gap_finder", prompt)
	if err != nil {
		metrics.RelationshipPasses.WithLabelValues("gaps", "error").Inc()
		return nil, err
	}
	out := &GapsResult{TokensUsed: usage.TotalTokens, CostUSD: usage.CostUSD}
	out.Gaps = relationships.CoerceGaps(listField(ctx, res, "gaps"), in.knownIDs())
	metrics.RelationshipPasses.WithLabelValues("gaps", "ok").Inc()
	return out, nil
}

// CausalChainsResult carries the causal-chain pass output.
type CausalChainsResult struct {
	Chains     []relationships.CausalChain `json:"chains"`
	TokensUsed int                         `json:"tokens_used"`
	CostUSD    float64                     `json:"cost_usd"`
}

// BuildCausalChains constructs named cause-and-effect sequences through
// the findings. Callers skip this pass below MinFindingsForChains.
func (a *Activities) BuildCausalChains(ctx context.Context, in RelationshipPassInput) (*CausalChainsResult, error) {
	prompt := findingsBlock(in) + `
Construct 2 to 4 named causal chains: ordered sequences of at least 3 findings where each leads
to the next, with a description for each link. Respond with JSON only:
{"chains": [{"name": "...", "finding_ids": ["f_1", "f_2", "f_3"],
 "link_descriptions": ["...", "..."]}]}`

	res, usage, err := a.relationshipCall(ctx, "chain_builder", prompt)
	if err != nil {
		metrics.RelationshipPasses.WithLabelValues("chains", "error").Inc()
		return nil, err
	}
	out := &CausalChainsResult{TokensUsed: usage.TotalTokens, CostUSD: usage.CostUSD}
	out.Chains = relationships.CoerceChains(listField(ctx, res, "chains"), in.knownIDs())
	metrics.RelationshipPasses.WithLabelValues("chains", "ok").Inc()
	return out, nil
}

func (a *Activities) relationshipCall(ctx context.Context, agentID, prompt string) (*llm.JSONResult, llm.Usage, error) {
	res, err := a.llm.GenerateJSON(ctx, llm.GenerateInput{
		Prompt:       prompt,
		SystemPrompt: "You analyze structure across research findings. Reference findings only by the ids given.",
		Temperature:  0.3,
		MaxTokens:    8192,
		AgentID:      agentID,
	})
	if err != nil {
		return nil, llm.Usage{}, fmt.Errorf("%s call: %w", agentID, err)
	}
	return res, res.Response.Usage, nil
}

// listField pulls one list field out of a tolerant JSON result, logging
// and returning nil when the response was unusable.
func listField(ctx context.Context, res *llm.JSONResult, key string) []interface{} {
	logger := activity.GetLogger(ctx)
	if res.Raw == nil {
		logger.Warn("Relationship pass response unparseable", "field", key, "parse_error", res.ParseError)
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(res.Raw, &m); err != nil {
		logger.Warn("Relationship pass response not an object", "field", key)
		return nil
	}
	list, _ := m[key].([]interface{})
	return list
}

func findingsBlock(in RelationshipPassInput) string {
	items := in.Findings
	if len(items) > relationships.MaxPromptFindings {
		items = items[:relationships.MaxPromptFindings]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Research topic: %s\n\nFindings:\n", in.Topic)
	for _, f := range items {
		fmt.Fprintf(&b, "[%s] (%s) %s\n", f.ID, f.Type, truncateStr(f.Content, 300))
	}
	return b.String()
}
