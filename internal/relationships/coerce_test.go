package relationships

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeList(t *testing.T, s string) []interface{} {
	t.Helper()
	var list []interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &list))
	return list
}

func TestParseGapType(t *testing.T) {
	assert.Equal(t, GapEvidence, ParseGapType("causal"))
	assert.Equal(t, GapTopic, ParseGapType("weird"))
	assert.Equal(t, GapTopic, ParseGapType("thematic"))
	assert.Equal(t, GapTemporal, ParseGapType(" Temporal "))
	assert.Equal(t, GapGeographic, ParseGapType("geographic"))
}

func TestParseRelationTypeDefault(t *testing.T) {
	assert.Equal(t, RelationCauses, ParseRelationType("causes"))
	assert.Equal(t, RelationPartOf, ParseRelationType("PART_OF"))
	assert.Equal(t, RelationExpands, ParseRelationType("related_to_somehow"))
}

func TestParsePriorityDefault(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority("high"))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent"))
}

func TestCoerceRelationshipsDropsUnknownIDs(t *testing.T) {
	known := KnownIDs([]string{"f_1", "f_2"})
	raw := decodeList(t, `[
		{"source_id": "f_1", "target_id": "f_2", "type": "causes", "strength": 0.8},
		{"source_id": "f_1", "target_id": "f_99", "type": "supports", "strength": 0.5},
		{"source_id": "f_2", "target_id": "f_1", "type": "novel_type", "strength": 1.7}
	]`)

	rels := CoerceRelationships(raw, known)
	require.Len(t, rels, 2)
	assert.Equal(t, RelationCauses, rels[0].Type)
	assert.Equal(t, 0.8, rels[0].Strength)
	assert.Equal(t, RelationExpands, rels[1].Type)
	assert.Equal(t, 1.0, rels[1].Strength)
}

func TestCoerceRelationshipsCap(t *testing.T) {
	known := KnownIDs([]string{"f_1", "f_2"})
	var raw []interface{}
	for i := 0; i < MaxRelationships+5; i++ {
		raw = append(raw, map[string]interface{}{
			"source_id": "f_1", "target_id": "f_2",
			"type": "supports", "strength": 0.5,
		})
	}
	assert.Len(t, CoerceRelationships(raw, known), MaxRelationships)
}

func TestCoerceContradictions(t *testing.T) {
	known := KnownIDs([]string{"f_1", "f_2"})
	raw := decodeList(t, `[
		{"finding_id_1": "f_1", "finding_id_2": "f_2", "claim_1": "a", "claim_2": "b", "significance": "high"},
		{"finding_id_1": "f_1", "finding_id_2": "f_7", "claim_1": "a", "claim_2": "c"}
	]`)

	out := CoerceContradictions(raw, known)
	require.Len(t, out, 1)
	assert.Equal(t, "f_2", out[0].FindingID2)
}

func TestCoerceGapsFiltersAndCaps(t *testing.T) {
	known := KnownIDs([]string{"f_1"})
	var raw []interface{}
	raw = append(raw, map[string]interface{}{
		"gap_type": "causal", "description": "missing link",
		"priority":            "high",
		"related_finding_ids": []interface{}{"f_1", "f_404"},
	})
	raw = append(raw, map[string]interface{}{"gap_type": "actor"}) // no description
	for i := 0; i < MaxGaps+3; i++ {
		raw = append(raw, map[string]interface{}{
			"gap_type": "temporal", "description": fmt.Sprintf("gap %d", i),
		})
	}

	gaps := CoerceGaps(raw, known)
	require.Len(t, gaps, MaxGaps)
	assert.Equal(t, GapEvidence, gaps[0].Type)
	assert.Equal(t, PriorityHigh, gaps[0].Priority)
	assert.Equal(t, []string{"f_1"}, gaps[0].RelatedFindingIDs)
}

func TestCoerceChainsDropsShortChains(t *testing.T) {
	known := KnownIDs([]string{"f_1", "f_2", "f_3"})
	raw := decodeList(t, `[
		{"name": "escalation", "finding_ids": ["f_1", "f_2", "f_3"], "link_descriptions": ["led to", "forced"]},
		{"name": "phantom", "finding_ids": ["f_8", "f_9", "f_1"], "link_descriptions": ["x", "y"]}
	]`)

	chains := CoerceChains(raw, known)
	require.Len(t, chains, 1)
	assert.Equal(t, "escalation", chains[0].Name)
	assert.Len(t, chains[0].FindingIDs, 3)
}
