package perspectives

// Coerce builds a typed Analysis from a decoded model response. Missing
// fields get zero values and enum fields fall back to their
// lowest-confidence grade, so a sparse or sloppy response still produces
// a usable record.
func Coerce(p Persona, raw map[string]interface{}) Analysis {
	a := Analysis{
		Persona:           p,
		Narrative:         stringAt(raw, "narrative"),
		Implications:      stringsAt(raw, "implications"),
		RelatedFindingIDs: stringsAt(raw, "related_finding_ids"),
	}
	if a.Narrative == "" {
		a.Narrative = stringAt(raw, "analysis")
	}

	switch p {
	case PersonaHistorical:
		a.Historical = &HistoricalDetail{
			Parallels:    stringsAt(raw, "parallels"),
			Patterns:     stringsAt(raw, "patterns"),
			Consequences: stringsAt(raw, "consequences"),
		}
	case PersonaFinancial:
		d := &FinancialDetail{
			CuiBono:    stringsAt(raw, "cui_bono"),
			Mechanisms: stringsAt(raw, "mechanisms"),
		}
		for _, item := range listAt(raw, "money_flows") {
			d.MoneyFlows = append(d.MoneyFlows, MoneyFlow{
				From:      stringAt(item, "from"),
				To:        stringAt(item, "to"),
				Mechanism: stringAt(item, "mechanism"),
			})
		}
		a.Financial = d
	case PersonaJournalist:
		d := &JournalistDetail{
			PropagandaIndicators: stringsAt(raw, "propaganda_indicators"),
			Verification:         ParseVerification(stringAt(raw, "verification_status")),
		}
		for _, item := range listAt(raw, "contradictions") {
			d.Contradictions = append(d.Contradictions, ContradictionDetail{
				Claim1:       stringAt(item, "claim_1"),
				Claim2:       stringAt(item, "claim_2"),
				Source1:      stringAt(item, "source_1"),
				Source2:      stringAt(item, "source_2"),
				Significance: stringAt(item, "significance"),
			})
		}
		a.Journalist = d
	case PersonaConspirator:
		a.Conspirator = &ConspiratorDetail{
			Theory:               stringAt(raw, "theory"),
			Probability:          ParseProbability(stringAt(raw, "probability")),
			SupportingFindingIDs: stringsAt(raw, "supporting_finding_ids"),
			CounterFindingIDs:    stringsAt(raw, "counter_finding_ids"),
		}
	case PersonaNetwork:
		d := &NetworkDetail{}
		for _, item := range listAt(raw, "relationships") {
			d.Relationships = append(d.Relationships, RevealedRelationship{
				Actor1:           stringAt(item, "actor1"),
				Actor2:           stringAt(item, "actor2"),
				RelationshipType: stringAt(item, "relationship_type"),
				Evidence:         stringAt(item, "evidence"),
			})
		}
		a.Network = d
	}
	return a
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

// listAt returns the object elements of a list field, skipping any
// non-object entries.
func listAt(m map[string]interface{}, key string) []map[string]interface{} {
	list, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, v := range list {
		if obj, ok := v.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
