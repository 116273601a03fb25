package workflows

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/dossierlab/dossier/internal/activities"
	"github.com/dossierlab/dossier/internal/config"
	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/metrics"
)

const defaultSearchQueryCount = 3

// ResearchWorkflow is the end-to-end research pipeline: decompose the
// query, execute sub-queries in dependency order or run a single-pass
// search, build the timeline, run perspectives, and derive the
// relationship graph.
//
// The workflow never fails for an LLM-side problem. Every stage failure
// is recorded in Result.Errors and the pipeline carries whatever partial
// result it has to the end.
func ResearchWorkflow(ctx workflow.Context, in ResearchInput) (*ResearchResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Research run starting", "query", in.Query)
	metrics.ResearchRunsStarted.Inc()
	startedAt := workflow.Now(ctx)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	var a *activities.Activities
	result := &ResearchResult{
		Query:    in.Query,
		Findings: []findings.Finding{},
		Sources:  []string{},
	}

	// Worker-side knobs from features.yaml. Per-run input fields override
	// them; a failing fetch falls back to the built-ins.
	knobs := config.DefaultResearch()
	if err := workflow.ExecuteActivity(ctx, a.ResearchDefaults).Get(ctx, &knobs); err != nil {
		logger.Warn("Config defaults unavailable, using built-ins", "error", err)
		knobs = config.DefaultResearch()
	}
	skipPerspectives := in.SkipPerspectives || !knobs.EnablePerspectives
	skipRelationships := in.SkipRelationships || !knobs.EnableRelationships
	sequentialPerspectives := in.SequentialPerspectives || !knobs.ParallelPersonas
	addUsage := func(tokens int, cost float64) {
		result.TokensUsed += tokens
		result.CostUSD += cost
	}

	// DECOMPOSE
	if !in.SkipDecomposition {
		var verdict activities.DecomposeResult
		err := workflow.ExecuteActivity(ctx, a.DecomposeQuery, activities.DecomposeInput{
			Query: in.Query,
			Force: in.ForceDecomposition,
		}).Get(ctx, &verdict)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("decomposition: %v", err))
		} else {
			addUsage(verdict.TokensUsed, verdict.CostUSD)
			result.Decomposition = &activities.DecompositionResult{
				OriginalQuery:      in.Query,
				NeedsDecomposition: verdict.NeedsDecomposition,
				Strategy:           verdict.Strategy,
				DateRange:          verdict.DateRange,
				Themes:             verdict.Themes,
				Actors:             verdict.Actors,
				Reasoning:          verdict.Reasoning,
			}

			if verdict.NeedsDecomposition && len(verdict.Splits) > 0 {
				var plan activities.SubQueryPlanResult
				err := workflow.ExecuteActivity(ctx, a.GenerateSubQueries, activities.SubQueryPlanInput{
					Query:     in.Query,
					Strategy:  verdict.Strategy,
					Splits:    verdict.Splits,
					DateRange: verdict.DateRange,
				}).Get(ctx, &plan)
				if err != nil {
					result.Errors = append(result.Errors, fmt.Sprintf("sub-query plan: %v", err))
				} else {
					addUsage(plan.TokensUsed, plan.CostUSD)
					result.Decomposition.SubQueries = plan.SubQueries
				}
			}
		}
	}

	// BRANCH: dependency-ordered sub-queries, or single-pass search. An
	// empty plan despite a positive verdict falls back to single-pass.
	decomposed := in.ExecuteSubQueries &&
		result.Decomposition != nil &&
		result.Decomposition.NeedsDecomposition &&
		len(result.Decomposition.SubQueries) > 0

	if decomposed {
		runSubQueryBranch(ctx, in, result, addUsage)
	} else {
		runSinglePassBranch(ctx, in, knobs, result, addUsage)
	}

	// TIMELINE
	result.Timeline = findings.BuildTimeline(result.Findings)

	// PERSPECTIVES
	if !skipPerspectives && len(result.Findings) > 0 {
		pers, usages := runTopicPerspectives(ctx, in.Query, result.Findings, result.Synthesis, sequentialPerspectives)
		result.Perspectives = pers
		for _, u := range usages {
			addUsage(u.tokens, u.cost)
		}
		if len(pers) == 0 {
			result.Errors = append(result.Errors, "perspectives: all personas failed")
		}
	}

	// FINDING PERSPECTIVES
	if in.FindingPerspectives && len(result.Findings) > 0 {
		maxAnalyses := in.MaxFindingAnalyses
		if maxAnalyses <= 0 {
			maxAnalyses = knobs.MaxFindingAnalyses
		}
		batchSize := in.FindingBatchSize
		if batchSize <= 0 {
			batchSize = knobs.FindingBatchSize
		}
		views, usages := runFindingPerspectives(ctx, in.Query, result.Findings, maxAnalyses, batchSize)
		result.FindingViews = views
		for _, u := range usages {
			addUsage(u.tokens, u.cost)
		}
	}

	// RELATIONSHIPS
	if !skipRelationships && len(result.Findings) > 0 {
		graph, usages := buildRelationshipGraph(ctx, in.Query, result.Findings)
		result.Graph = graph
		for _, u := range usages {
			addUsage(u.tokens, u.cost)
		}
	}

	recordRun(ctx, in, result, startedAt)

	branch := "single_pass"
	if decomposed {
		branch = "sub_queries"
	}
	status := "ok"
	if len(result.Errors) > 0 {
		status = "partial"
	}
	metrics.ResearchRunsCompleted.WithLabelValues(branch, status).Inc()
	metrics.ResearchRunDuration.Observe(workflow.Now(ctx).Sub(startedAt).Seconds())

	logger.Info("Research run complete",
		"branch", branch,
		"findings", len(result.Findings),
		"errors", len(result.Errors),
		"tokens", result.TokensUsed,
	)
	return result, nil
}

// runSubQueryBranch executes the decomposition plan and composes the
// cross-sub-query synthesis.
func runSubQueryBranch(ctx workflow.Context, in ResearchInput, result *ResearchResult, addUsage func(int, float64)) {
	var a *activities.Activities
	plan := result.Decomposition.SubQueries

	subResults, batchCount, cycle := executeSubQueryBatches(ctx, in.Query, plan)
	result.SubResults = subResults
	if cycle {
		metrics.CycleFallbacks.Inc()
		result.Errors = append(result.Errors,
			"sub-query dependencies unsatisfiable, remaining sub-queries ran best-effort")
	}
	metrics.SubQueryBatches.Observe(float64(batchCount))

	// Aggregate in plan order so downstream ids are deterministic.
	// Findings are renumbered because each sub-query assigns its own ids.
	seen := make(map[string]bool)
	n := 0
	for _, sq := range plan {
		r, ok := subResults[sq.ID]
		if !ok {
			continue
		}
		if !r.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("sub-query %s: %s", r.ID, r.Error))
			continue
		}
		addUsage(r.TokensUsed, r.CostUSD)
		for _, f := range r.Findings {
			n++
			f.ID = fmt.Sprintf("f_%d", n)
			result.Findings = append(result.Findings, f)
		}
		for _, src := range r.Sources {
			if !seen[src] {
				seen[src] = true
				result.Sources = append(result.Sources, src)
			}
		}
	}

	var synthesis activities.SynthesisResult
	err := workflow.ExecuteActivity(ctx, a.ComposeSynthesis, activities.SynthesisInput{
		OriginalQuery: in.Query,
		SubResults:    subResults,
	}).Get(ctx, &synthesis)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("synthesis: %v", err))
		return
	}
	addUsage(synthesis.TokensUsed, synthesis.CostUSD)
	result.Synthesis = synthesis.Text
}

// runSinglePassBranch generates focused search queries, runs them
// concurrently, and extracts findings from the combined content.
func runSinglePassBranch(ctx workflow.Context, in ResearchInput, knobs config.Research, result *ResearchResult, addUsage func(int, float64)) {
	logger := workflow.GetLogger(ctx)
	var a *activities.Activities

	queries := []string{in.Query}
	var generated activities.SearchQueriesResult
	err := workflow.ExecuteActivity(ctx, a.GenerateSearchQueries, activities.SearchQueriesInput{
		Query: in.Query,
		Count: searchQueryCount(in, knobs),
	}).Get(ctx, &generated)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("search queries: %v", err))
	} else {
		addUsage(generated.TokensUsed, generated.CostUSD)
		queries = generated.Queries
	}

	futures := make([]workflow.Future, len(queries))
	for i, q := range queries {
		futures[i] = workflow.ExecuteActivity(ctx, a.ExecuteSearch, activities.SearchInput{
			Query:         q,
			OriginalQuery: in.Query,
		})
	}

	var contents []string
	seen := make(map[string]bool)
	for i, q := range queries {
		var res activities.SearchResult
		if err := futures[i].Get(ctx, &res); err != nil {
			logger.Warn("Search failed", "search_query", q, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("search %q: %v", q, err))
			continue
		}
		addUsage(res.TokensUsed, res.CostUSD)
		if res.Content != "" {
			contents = append(contents, res.Content)
		}
		for _, src := range res.Sources {
			if !seen[src] {
				seen[src] = true
				result.Sources = append(result.Sources, src)
			}
		}
	}
	if len(contents) == 0 {
		return
	}

	var extracted activities.ExtractFindingsResult
	err = workflow.ExecuteActivity(ctx, a.ExtractFindings, activities.ExtractFindingsInput{
		Query:   in.Query,
		Content: strings.Join(contents, "\n\n---\n\n"),
	}).Get(ctx, &extracted)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("finding extraction: %v", err))
		return
	}
	addUsage(extracted.TokensUsed, extracted.CostUSD)
	result.Findings = append(result.Findings, extracted.Findings...)
}

// recordRun persists the run summary, best-effort.
func recordRun(ctx workflow.Context, in ResearchInput, result *ResearchResult, startedAt time.Time) {
	logger := workflow.GetLogger(ctx)
	var a *activities.Activities

	strategy := activities.StrategyNone
	queryCount := 1
	if result.Decomposition != nil {
		strategy = result.Decomposition.Strategy
		queryCount = result.Decomposition.QueryCount()
	}

	errs := make([]string, len(result.Errors))
	copy(errs, result.Errors)
	sort.Strings(errs)

	err := workflow.ExecuteActivity(ctx, a.RecordResearchRun, activities.RecordRunInput{
		SessionID:  in.SessionID,
		WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID,
		Query:      in.Query,
		Strategy:   strategy,
		QueryCount: queryCount,
		Synthesis:  result.Synthesis,
		Findings:   result.Findings,
		Graph:      result.Graph,
		Errors:     errs,
		TokensUsed: result.TokensUsed,
		CostUSD:    result.CostUSD,
		StartedAt:  startedAt,
	}).Get(ctx, nil)
	if err != nil {
		logger.Warn("Run recording failed", "error", err)
	}
}

func searchQueryCount(in ResearchInput, knobs config.Research) int {
	if in.SearchQueryCount > 0 {
		return in.SearchQueryCount
	}
	if knobs.SearchQueryCount > 0 {
		return knobs.SearchQueryCount
	}
	return defaultSearchQueryCount
}
