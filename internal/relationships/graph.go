// Package relationships models the cross-finding structure derived at the
// end of a research run: typed edges between findings, detected
// contradictions, research gaps, and causal chains.
package relationships

import "strings"

// Limits applied when building a graph. Finding input is truncated to
// bound prompt size and pass outputs are capped to keep the graph
// reviewable.
const (
	MaxRelationships     = 15
	MaxGaps              = 8
	MaxPromptFindings    = 20
	MinFindingsForChains = 3
)

// RelationType classifies an edge between two findings.
type RelationType string

const (
	RelationCauses      RelationType = "causes"
	RelationSupports    RelationType = "supports"
	RelationContradicts RelationType = "contradicts"
	RelationExpands     RelationType = "expands"
	RelationPrecedes    RelationType = "precedes"
	RelationInvolves    RelationType = "involves"
	RelationSupersedes  RelationType = "supersedes"
	RelationPartOf      RelationType = "part_of"
)

// ParseRelationType maps a model-produced string onto the closed edge
// enum. Unrecognized values land in the weakest bucket, expands.
func ParseRelationType(s string) RelationType {
	switch RelationType(strings.ToLower(strings.TrimSpace(s))) {
	case RelationCauses:
		return RelationCauses
	case RelationSupports:
		return RelationSupports
	case RelationContradicts:
		return RelationContradicts
	case RelationPrecedes:
		return RelationPrecedes
	case RelationInvolves:
		return RelationInvolves
	case RelationSupersedes:
		return RelationSupersedes
	case RelationPartOf:
		return RelationPartOf
	default:
		return RelationExpands
	}
}

// GapType classifies a research gap.
type GapType string

const (
	GapTemporal   GapType = "temporal"
	GapActor      GapType = "actor"
	GapTopic      GapType = "topic"
	GapEvidence   GapType = "evidence"
	GapGeographic GapType = "geographic"
)

// gapAliases maps the looser vocabulary the gap prompt elicits onto the
// closed enum. Anything unlisted falls through to GapTopic.
var gapAliases = map[string]GapType{
	"temporal":    GapTemporal,
	"actor":       GapActor,
	"topic":       GapTopic,
	"thematic":    GapTopic,
	"perspective": GapTopic,
	"evidence":    GapEvidence,
	"causal":      GapEvidence,
	"geographic":  GapGeographic,
}

// ParseGapType maps a model-produced string onto the closed gap enum.
func ParseGapType(s string) GapType {
	if g, ok := gapAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return g
	}
	return GapTopic
}

// Priority ranks a research gap. Unrecognized values default to medium.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// FindingRelationship is a typed, weighted edge between two findings.
type FindingRelationship struct {
	SourceID    string       `json:"source_id"`
	TargetID    string       `json:"target_id"`
	Type        RelationType `json:"type"`
	Description string       `json:"description"`
	Strength    float64      `json:"strength"`
}

// Contradiction records a pair of conflicting claims across findings.
type Contradiction struct {
	FindingID1   string `json:"finding_id_1"`
	FindingID2   string `json:"finding_id_2"`
	Claim1       string `json:"claim_1"`
	Claim2       string `json:"claim_2"`
	Source1      string `json:"source_1"`
	Source2      string `json:"source_2"`
	Significance string `json:"significance"`
	Resolution   string `json:"resolution_hint,omitempty"`
}

// ResearchGap names something the gathered findings fail to cover.
type ResearchGap struct {
	Type              GapType  `json:"type"`
	Description       string   `json:"description"`
	Priority          Priority `json:"priority"`
	SuggestedQueries  []string `json:"suggested_queries"`
	RelatedFindingIDs []string `json:"related_finding_ids"`
}

// CausalChain is an ordered sequence of findings with a description for
// each link between consecutive entries.
type CausalChain struct {
	Name             string   `json:"name"`
	FindingIDs       []string `json:"finding_ids"`
	LinkDescriptions []string `json:"link_descriptions"`
}

// Graph is the merged output of the four extraction passes. A failed
// pass contributes its empty zero value.
type Graph struct {
	Relationships  []FindingRelationship `json:"relationships"`
	Contradictions []Contradiction       `json:"contradictions"`
	Gaps           []ResearchGap         `json:"gaps"`
	CausalChains   []CausalChain         `json:"causal_chains"`
}
