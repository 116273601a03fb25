// Package workflows contains the Temporal workflows that drive the
// research pipeline: decomposition, dependency-ordered sub-query
// execution, perspective fan-out, and relationship graph construction.
package workflows

import (
	"github.com/dossierlab/dossier/internal/activities"
	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/perspectives"
	"github.com/dossierlab/dossier/internal/relationships"
)

// ResearchInput starts one end-to-end research run.
type ResearchInput struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`

	// Pipeline toggles. The skip flags default to the worker's feature
	// config (every stage on by default); ExecuteSubQueries is an opt-in:
	// without it a positive decomposition verdict is informational and
	// the run stays on the single-pass path.
	SkipDecomposition   bool `json:"skip_decomposition,omitempty"`
	ForceDecomposition  bool `json:"force_decomposition,omitempty"`
	ExecuteSubQueries   bool `json:"execute_sub_queries"`
	SkipPerspectives    bool `json:"skip_perspectives,omitempty"`
	FindingPerspectives bool `json:"finding_perspectives,omitempty"`
	SkipRelationships   bool `json:"skip_relationships,omitempty"`

	// Fan-out bounds. Zero values take the configured defaults.
	SearchQueryCount       int  `json:"search_query_count,omitempty"`
	MaxFindingAnalyses     int  `json:"max_finding_analyses,omitempty"`
	FindingBatchSize       int  `json:"finding_batch_size,omitempty"`
	SequentialPerspectives bool `json:"sequential_perspectives,omitempty"`
}

// TopicPerspectives maps each persona that completed successfully to its
// topic analysis. Failed personas are absent.
type TopicPerspectives map[perspectives.Persona]perspectives.Analysis

// ResearchResult is the pipeline output. It is always fully formed:
// failed stages leave their sections empty and add to Errors.
type ResearchResult struct {
	Query         string                               `json:"query"`
	Decomposition *activities.DecompositionResult      `json:"decomposition,omitempty"`
	SubResults    map[string]activities.SubQueryResult `json:"sub_results,omitempty"`
	Findings      []findings.Finding                   `json:"findings"`
	Sources       []string                             `json:"sources"`
	Synthesis     string                               `json:"synthesis,omitempty"`
	Timeline      []findings.TimelineEvent             `json:"timeline,omitempty"`
	Perspectives  TopicPerspectives                    `json:"perspectives,omitempty"`
	FindingViews  []perspectives.FindingPerspectives   `json:"finding_views,omitempty"`
	Graph         *relationships.Graph                 `json:"graph,omitempty"`
	Errors        []string                             `json:"errors,omitempty"`
	TokensUsed    int                                  `json:"tokens_used"`
	CostUSD       float64                              `json:"cost_usd"`
}
