package relationships

// Coercion from decoded model output into graph records. Each function
// tolerates missing keys and drops records that reference finding ids
// not present in the known set.

// KnownIDs builds the membership set used to validate model-produced
// finding references.
func KnownIDs(ids []string) map[string]bool {
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return known
}

// CoerceRelationships converts raw edge records, dropping edges whose
// endpoints are unknown and capping the result at MaxRelationships.
func CoerceRelationships(rawList []interface{}, known map[string]bool) []FindingRelationship {
	out := make([]FindingRelationship, 0, len(rawList))
	for _, item := range rawList {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		rel := FindingRelationship{
			SourceID:    stringAt(raw, "source_id"),
			TargetID:    stringAt(raw, "target_id"),
			Type:        ParseRelationType(stringAt(raw, "type")),
			Description: stringAt(raw, "description"),
			Strength:    clamp01(floatAt(raw, "strength")),
		}
		if !known[rel.SourceID] || !known[rel.TargetID] {
			continue
		}
		out = append(out, rel)
		if len(out) == MaxRelationships {
			break
		}
	}
	return out
}

// CoerceContradictions converts raw contradiction records, dropping any
// whose finding ids are unknown.
func CoerceContradictions(rawList []interface{}, known map[string]bool) []Contradiction {
	out := make([]Contradiction, 0, len(rawList))
	for _, item := range rawList {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		c := Contradiction{
			FindingID1:   stringAt(raw, "finding_id_1"),
			FindingID2:   stringAt(raw, "finding_id_2"),
			Claim1:       stringAt(raw, "claim_1"),
			Claim2:       stringAt(raw, "claim_2"),
			Source1:      stringAt(raw, "source_1"),
			Source2:      stringAt(raw, "source_2"),
			Significance: stringAt(raw, "significance"),
			Resolution:   stringAt(raw, "resolution_hint"),
		}
		if !known[c.FindingID1] || !known[c.FindingID2] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// CoerceGaps converts raw gap records, filtering unknown related-finding
// ids and capping the result at MaxGaps. A gap with no description is
// dropped.
func CoerceGaps(rawList []interface{}, known map[string]bool) []ResearchGap {
	out := make([]ResearchGap, 0, len(rawList))
	for _, item := range rawList {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		g := ResearchGap{
			Type:             ParseGapType(stringAt(raw, "gap_type")),
			Description:      stringAt(raw, "description"),
			Priority:         ParsePriority(stringAt(raw, "priority")),
			SuggestedQueries: stringsAt(raw, "suggested_queries"),
		}
		if g.Description == "" {
			continue
		}
		for _, id := range stringsAt(raw, "related_finding_ids") {
			if known[id] {
				g.RelatedFindingIDs = append(g.RelatedFindingIDs, id)
			}
		}
		out = append(out, g)
		if len(out) == MaxGaps {
			break
		}
	}
	return out
}

// CoerceChains converts raw causal chains. Unknown finding ids are
// removed from each chain; a chain left with fewer than two findings is
// dropped.
func CoerceChains(rawList []interface{}, known map[string]bool) []CausalChain {
	out := make([]CausalChain, 0, len(rawList))
	for _, item := range rawList {
		raw, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		chain := CausalChain{
			Name:             stringAt(raw, "name"),
			LinkDescriptions: stringsAt(raw, "link_descriptions"),
		}
		for _, id := range stringsAt(raw, "finding_ids") {
			if known[id] {
				chain.FindingIDs = append(chain.FindingIDs, id)
			}
		}
		if len(chain.FindingIDs) < 2 {
			continue
		}
		out = append(out, chain)
	}
	return out
}

func stringAt(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func stringsAt(m map[string]interface{}, key string) []string {
	list, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func floatAt(m map[string]interface{}, key string) float64 {
	if f, ok := m[key].(float64); ok {
		return f
	}
	return 0
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
