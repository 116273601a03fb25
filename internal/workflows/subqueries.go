package workflows

import (
	"sort"
	"unicode/utf8"

	"go.temporal.io/sdk/workflow"

	"github.com/dossierlab/dossier/internal/activities"
)

const contextSummaryLimit = 400

// executeSubQueryBatches runs the sub-query plan batch by batch. Every
// sub-query in a batch executes concurrently; each batch sees a context
// snapshot of all results completed in earlier batches. A failing
// sub-query becomes a failed result for that item only. Returns the
// results, the number of batches run, and whether the dependency order
// was unsatisfiable.
func executeSubQueryBatches(
	ctx workflow.Context,
	originalQuery string,
	plan []activities.SubQuery,
) (map[string]activities.SubQueryResult, int, bool) {
	logger := workflow.GetLogger(ctx)

	byID := make(map[string]activities.SubQuery, len(plan))
	for _, sq := range plan {
		byID[sq.ID] = sq
	}

	batches, cycle := ExecutionOrder(plan)
	if cycle {
		logger.Warn("Dependency order unsatisfiable, running remaining sub-queries best-effort",
			"batches", len(batches))
	}

	var a *activities.Activities
	results := make(map[string]activities.SubQueryResult, len(plan))

	for _, batch := range batches {
		snapshot := contextSnapshot(originalQuery, results)

		futures := make(map[string]workflow.Future, len(batch))
		for _, id := range batch {
			sq, ok := byID[id]
			if !ok {
				continue
			}
			futures[id] = workflow.ExecuteActivity(ctx, a.ExecuteSubQuery, activities.ExecuteSubQueryInput{
				SubQuery: sq,
				Context:  snapshot,
			})
		}

		for _, id := range batch {
			future, ok := futures[id]
			if !ok {
				continue
			}
			sq := byID[id]
			var res activities.SubQueryResult
			if err := future.Get(ctx, &res); err != nil {
				logger.Warn("Sub-query failed", "sub_query", id, "error", err)
				results[id] = activities.SubQueryResult{
					ID:         sq.ID,
					Query:      sq.Query,
					Role:       sq.Role,
					FocusTheme: sq.FocusTheme,
					Success:    false,
					Error:      err.Error(),
				}
				continue
			}
			// Backfill in case the executor dropped the echo fields.
			if res.ID == "" {
				res.ID = sq.ID
			}
			if res.Query == "" {
				res.Query = sq.Query
			}
			if res.Role == "" {
				res.Role = sq.Role
			}
			if res.FocusTheme == "" {
				res.FocusTheme = sq.FocusTheme
			}
			results[id] = res
		}
	}
	return results, len(batches), cycle
}

// contextSnapshot summarizes completed sub-queries for the next batch, in
// stable id order.
func contextSnapshot(originalQuery string, results map[string]activities.SubQueryResult) activities.ExecutionContext {
	ec := activities.ExecutionContext{OriginalQuery: originalQuery}

	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		r := results[id]
		if !r.Success {
			continue
		}
		summary := truncateRunes(r.Content, contextSummaryLimit)
		ec.Completed = append(ec.Completed, activities.CompletedSummary{
			ID:           r.ID,
			Query:        r.Query,
			FindingCount: len(r.Findings),
			Summary:      summary,
		})
	}
	return ec
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
