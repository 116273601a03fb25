package workflows

import (
	"go.temporal.io/sdk/log"
	"go.temporal.io/sdk/workflow"

	"github.com/dossierlab/dossier/internal/activities"
	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/perspectives"
)

const (
	defaultFindingBatchSize   = 5
	defaultMaxFindingAnalyses = 20
)

// runTopicPerspectives runs every persona's topic analysis, concurrently
// unless sequential is set. A failing persona is logged and left out of
// the map; partial coverage is a valid result.
func runTopicPerspectives(
	ctx workflow.Context,
	topic string,
	items []findings.Finding,
	summary string,
	sequential bool,
) (TopicPerspectives, []usage) {
	logger := workflow.GetLogger(ctx)
	var a *activities.Activities

	out := make(TopicPerspectives)
	var usages []usage

	personas := perspectives.All()
	futures := make([]workflow.Future, len(personas))
	for i, p := range personas {
		in := activities.TopicAnalysisInput{
			Persona:  p,
			Topic:    topic,
			Findings: items,
			Summary:  summary,
		}
		futures[i] = workflow.ExecuteActivity(ctx, a.AnalyzePerspective, in)
		if sequential {
			collectTopicAnalysis(ctx, logger, futures[i], p, out, &usages)
			futures[i] = nil
		}
	}
	if !sequential {
		for i, p := range personas {
			collectTopicAnalysis(ctx, logger, futures[i], p, out, &usages)
		}
	}
	return out, usages
}

func collectTopicAnalysis(
	ctx workflow.Context,
	logger log.Logger,
	future workflow.Future,
	p perspectives.Persona,
	out TopicPerspectives,
	usages *[]usage,
) {
	var res activities.TopicAnalysisResult
	if err := future.Get(ctx, &res); err != nil {
		logger.Warn("Perspective analysis failed", "persona", p, "error", err)
		return
	}
	out[p] = res.Analysis
	*usages = append(*usages, usage{tokens: res.TokensUsed, cost: res.CostUSD})
}

// runFindingPerspectives analyzes findings one by one with every persona,
// in fixed-size batches to bound concurrent LLM load. The output list is
// always 1:1 with the findings processed; a finding whose analyses all
// failed still appears, with an empty persona map.
func runFindingPerspectives(
	ctx workflow.Context,
	topic string,
	items []findings.Finding,
	maxFindings, batchSize int,
) ([]perspectives.FindingPerspectives, []usage) {
	logger := workflow.GetLogger(ctx)
	var a *activities.Activities

	if maxFindings <= 0 {
		maxFindings = defaultMaxFindingAnalyses
	}
	if batchSize <= 0 {
		batchSize = defaultFindingBatchSize
	}
	if len(items) > maxFindings {
		items = items[:maxFindings]
	}

	personas := perspectives.All()
	out := make([]perspectives.FindingPerspectives, 0, len(items))
	var usages []usage

	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		type pending struct {
			persona perspectives.Persona
			future  workflow.Future
		}
		futures := make([][]pending, len(batch))
		for i, f := range batch {
			for _, p := range personas {
				futures[i] = append(futures[i], pending{
					persona: p,
					future: workflow.ExecuteActivity(ctx, a.AnalyzeFindingPerspective, activities.FindingAnalysisInput{
						Persona: p,
						Finding: f,
						Topic:   topic,
					}),
				})
			}
		}

		for i, f := range batch {
			fp := perspectives.FindingPerspectives{
				FindingID: f.ID,
				Analyses:  make(map[perspectives.Persona]perspectives.Analysis),
			}
			for _, pend := range futures[i] {
				var res activities.FindingAnalysisResult
				if err := pend.future.Get(ctx, &res); err != nil {
					logger.Warn("Finding perspective failed",
						"finding", f.ID, "persona", pend.persona, "error", err)
					continue
				}
				fp.Analyses[pend.persona] = res.Analysis
				usages = append(usages, usage{tokens: res.TokensUsed, cost: res.CostUSD})
			}
			out = append(out, fp)
		}
	}
	return out, usages
}

// usage is one activity's token/cost contribution to the run totals.
type usage struct {
	tokens int
	cost   float64
}
