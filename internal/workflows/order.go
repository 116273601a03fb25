package workflows

import (
	"github.com/dossierlab/dossier/internal/activities"
)

// ExecutionOrder arranges sub-queries into batches by layered topological
// sort: each batch holds every not-yet-scheduled sub-query whose
// dependencies are all in earlier batches, and runs concurrently.
//
// When items remain but none qualifies (a dependency cycle or a reference
// to a missing id), all remaining sub-queries become one final
// best-effort batch and cycleDetected is true. The caller surfaces that
// as a diagnostic; execution itself never hangs.
func ExecutionOrder(subQueries []activities.SubQuery) (batches [][]string, cycleDetected bool) {
	executed := make(map[string]bool, len(subQueries))
	remaining := make([]activities.SubQuery, len(subQueries))
	copy(remaining, subQueries)

	for len(remaining) > 0 {
		var batch []string
		var next []activities.SubQuery
		for _, sq := range remaining {
			if depsSatisfied(sq, executed) {
				batch = append(batch, sq.ID)
			} else {
				next = append(next, sq)
			}
		}

		if len(batch) == 0 {
			final := make([]string, 0, len(next))
			for _, sq := range next {
				final = append(final, sq.ID)
			}
			batches = append(batches, final)
			return batches, true
		}

		for _, id := range batch {
			executed[id] = true
		}
		batches = append(batches, batch)
		remaining = next
	}
	return batches, false
}

func depsSatisfied(sq activities.SubQuery, executed map[string]bool) bool {
	for _, dep := range sq.DependsOn {
		// A self-dependency can never be satisfied; it falls through to
		// the best-effort batch with the rest of the cycle.
		if !executed[dep] {
			return false
		}
	}
	return true
}
