package workflows

import (
	"go.temporal.io/sdk/workflow"

	"github.com/dossierlab/dossier/internal/activities"
	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/relationships"
)

// buildRelationshipGraph runs the four extraction passes concurrently and
// merges their outputs. Each pass has its own failure domain: a failing
// pass leaves its section empty without touching the others. The causal
// chain pass is skipped outright when there are too few findings to
// chain.
func buildRelationshipGraph(
	ctx workflow.Context,
	topic string,
	items []findings.Finding,
) (*relationships.Graph, []usage) {
	logger := workflow.GetLogger(ctx)
	var a *activities.Activities

	in := activities.RelationshipPassInput{Topic: topic, Findings: items}

	relFuture := workflow.ExecuteActivity(ctx, a.ExtractRelationships, in)
	contraFuture := workflow.ExecuteActivity(ctx, a.DetectContradictions, in)
	gapsFuture := workflow.ExecuteActivity(ctx, a.IdentifyGaps, in)
	var chainsFuture workflow.Future
	if len(items) >= relationships.MinFindingsForChains {
		chainsFuture = workflow.ExecuteActivity(ctx, a.BuildCausalChains, in)
	}

	graph := &relationships.Graph{
		Relationships:  []relationships.FindingRelationship{},
		Contradictions: []relationships.Contradiction{},
		Gaps:           []relationships.ResearchGap{},
		CausalChains:   []relationships.CausalChain{},
	}
	var usages []usage

	var edges activities.RelationshipEdgesResult
	if err := relFuture.Get(ctx, &edges); err != nil {
		logger.Warn("Relationship pass failed", "error", err)
	} else {
		graph.Relationships = edges.Relationships
		usages = append(usages, usage{tokens: edges.TokensUsed, cost: edges.CostUSD})
	}

	var contras activities.ContradictionsResult
	if err := contraFuture.Get(ctx, &contras); err != nil {
		logger.Warn("Contradiction pass failed", "error", err)
	} else {
		graph.Contradictions = contras.Contradictions
		usages = append(usages, usage{tokens: contras.TokensUsed, cost: contras.CostUSD})
	}

	var gaps activities.GapsResult
	if err := gapsFuture.Get(ctx, &gaps); err != nil {
		logger.Warn("Gap pass failed", "error", err)
	} else {
		graph.Gaps = gaps.Gaps
		usages = append(usages, usage{tokens: gaps.TokensUsed, cost: gaps.CostUSD})
	}

	if chainsFuture != nil {
		var chains activities.CausalChainsResult
		if err := chainsFuture.Get(ctx, &chains); err != nil {
			logger.Warn("Causal chain pass failed", "error", err)
		} else {
			graph.CausalChains = chains.Chains
			usages = append(usages, usage{tokens: chains.TokensUsed, cost: chains.CostUSD})
		}
	}

	return graph, usages
}
