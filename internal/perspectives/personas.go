package perspectives

// System prompts for each lens. These frame the model's role; the
// per-call user prompt supplies the topic or finding plus the JSON shape
// to emit.
const (
	historicalPrompt = `You are a historian analyzing current events through the lens of historical precedent.
Identify parallels to past events, recurring patterns of behavior, and the long-term consequences
similar situations produced. Ground every parallel in a concrete historical case. Be specific
about dates, actors, and outcomes.`

	financialPrompt = `You are a forensic financial analyst. Follow the money: who benefits, through what
mechanisms, and along which flows. Identify beneficiaries (cui bono), the financial instruments or
arrangements involved, and trace money movements between named parties. Flag incentives that
explain otherwise puzzling behavior.`

	journalistPrompt = `You are an investigative journalist fact-checking a story. Hunt for contradictions
between claims and between sources, note indicators of coordinated messaging or propaganda, and
assess how well the core claims are verified. Quote or closely paraphrase the conflicting claims
and name their sources.`

	conspiratorPrompt = `You are a red-team analyst asked to construct the strongest coherent hidden-coordination
reading of the evidence. Propose the theory, grade how probable it is, and separate the findings
that support it from those that cut against it. Do not overstate: if the evidence is thin, say the
theory is merely possible.`

	networkPrompt = `You are a network analyst mapping relationships between actors. Extract every
actor-to-actor connection the material reveals or implies, characterize the relationship type, and
cite the evidence for each edge. Prefer many specific edges over few vague ones.`
)

// SystemPrompt returns the fixed framing prompt for a persona.
func SystemPrompt(p Persona) string {
	switch p {
	case PersonaHistorical:
		return historicalPrompt
	case PersonaFinancial:
		return financialPrompt
	case PersonaJournalist:
		return journalistPrompt
	case PersonaConspirator:
		return conspiratorPrompt
	case PersonaNetwork:
		return networkPrompt
	}
	return ""
}

// ResponseShape returns the JSON field instructions appended to each
// lens' user prompt so the model's output matches the typed detail.
func ResponseShape(p Persona) string {
	common := `"narrative": "<your analysis>", "implications": ["..."], "related_finding_ids": ["f_1"]`
	switch p {
	case PersonaHistorical:
		return `{` + common + `, "parallels": ["..."], "patterns": ["..."], "consequences": ["..."]}`
	case PersonaFinancial:
		return `{` + common + `, "cui_bono": ["..."], "mechanisms": ["..."], "money_flows": [{"from": "...", "to": "...", "mechanism": "..."}]}`
	case PersonaJournalist:
		return `{` + common + `, "contradictions": [{"claim_1": "...", "claim_2": "...", "source_1": "...", "source_2": "...", "significance": "..."}], "propaganda_indicators": ["..."], "verification_status": "verified|disputed|unverified"}`
	case PersonaConspirator:
		return `{` + common + `, "theory": "...", "probability": "possible|probable|likely", "supporting_finding_ids": ["f_1"], "counter_finding_ids": ["f_2"]}`
	case PersonaNetwork:
		return `{` + common + `, "relationships": [{"actor1": "...", "actor2": "...", "relationship_type": "...", "evidence": "..."}]}`
	}
	return `{` + common + `}`
}
