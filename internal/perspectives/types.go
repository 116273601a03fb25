// Package perspectives defines the five analytical lenses applied to
// research topics and findings, and the tolerant coercion from raw model
// output into their typed shapes.
package perspectives

import "strings"

// Persona identifies one analytical lens.
type Persona string

const (
	PersonaHistorical  Persona = "historical"
	PersonaFinancial   Persona = "financial"
	PersonaJournalist  Persona = "journalist"
	PersonaConspirator Persona = "conspirator"
	PersonaNetwork     Persona = "network"
)

// All returns the full persona set in a stable order.
func All() []Persona {
	return []Persona{
		PersonaHistorical,
		PersonaFinancial,
		PersonaJournalist,
		PersonaConspirator,
		PersonaNetwork,
	}
}

// ParsePersona maps a string to a known persona.
func ParsePersona(s string) (Persona, bool) {
	p := Persona(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PersonaHistorical, PersonaFinancial, PersonaJournalist, PersonaConspirator, PersonaNetwork:
		return p, true
	}
	return "", false
}

// Probability grades a conspirator theory. Unparseable values default to
// the lowest-confidence grade.
type Probability string

const (
	ProbabilityPossible Probability = "possible"
	ProbabilityProbable Probability = "probable"
	ProbabilityLikely   Probability = "likely"
)

func ParseProbability(s string) Probability {
	switch Probability(strings.ToLower(strings.TrimSpace(s))) {
	case ProbabilityProbable:
		return ProbabilityProbable
	case ProbabilityLikely:
		return ProbabilityLikely
	default:
		return ProbabilityPossible
	}
}

// Verification grades a journalist claim check. Unparseable values default
// to unverified.
type Verification string

const (
	VerificationVerified   Verification = "verified"
	VerificationDisputed   Verification = "disputed"
	VerificationUnverified Verification = "unverified"
)

func ParseVerification(s string) Verification {
	switch Verification(strings.ToLower(strings.TrimSpace(s))) {
	case VerificationVerified:
		return VerificationVerified
	case VerificationDisputed:
		return VerificationDisputed
	default:
		return VerificationUnverified
	}
}

// MoneyFlow is one money-movement triple in a financial analysis.
type MoneyFlow struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Mechanism string `json:"mechanism"`
}

// ContradictionDetail is a pair of conflicting claims found by the
// journalist lens.
type ContradictionDetail struct {
	Claim1       string `json:"claim_1"`
	Claim2       string `json:"claim_2"`
	Source1      string `json:"source_1"`
	Source2      string `json:"source_2"`
	Significance string `json:"significance"`
}

// RevealedRelationship is one actor-to-actor edge surfaced by the network
// lens.
type RevealedRelationship struct {
	Actor1           string `json:"actor1"`
	Actor2           string `json:"actor2"`
	RelationshipType string `json:"relationship_type"`
	Evidence         string `json:"evidence"`
}

// HistoricalDetail carries the historical lens' structured fields.
type HistoricalDetail struct {
	Parallels    []string `json:"parallels"`
	Patterns     []string `json:"patterns"`
	Consequences []string `json:"consequences"`
}

// FinancialDetail carries the financial lens' structured fields.
type FinancialDetail struct {
	CuiBono    []string    `json:"cui_bono"`
	Mechanisms []string    `json:"mechanisms"`
	MoneyFlows []MoneyFlow `json:"money_flows"`
}

// JournalistDetail carries the journalist lens' structured fields.
type JournalistDetail struct {
	Contradictions       []ContradictionDetail `json:"contradictions"`
	PropagandaIndicators []string              `json:"propaganda_indicators"`
	Verification         Verification          `json:"verification_status"`
}

// ConspiratorDetail carries the conspirator lens' structured fields.
type ConspiratorDetail struct {
	Theory               string      `json:"theory"`
	Probability          Probability `json:"probability"`
	SupportingFindingIDs []string    `json:"supporting_finding_ids"`
	CounterFindingIDs    []string    `json:"counter_finding_ids"`
}

// NetworkDetail carries the network lens' structured fields.
type NetworkDetail struct {
	Relationships []RevealedRelationship `json:"relationships"`
}

// Analysis is one lens' output for a topic or a single finding. Exactly
// one detail pointer is set, matching Persona.
type Analysis struct {
	Persona           Persona  `json:"persona"`
	Narrative         string   `json:"narrative"`
	Implications      []string `json:"implications"`
	RelatedFindingIDs []string `json:"related_finding_ids"`

	Historical  *HistoricalDetail  `json:"historical,omitempty"`
	Financial   *FinancialDetail   `json:"financial,omitempty"`
	Journalist  *JournalistDetail  `json:"journalist,omitempty"`
	Conspirator *ConspiratorDetail `json:"conspirator,omitempty"`
	Network     *NetworkDetail     `json:"network,omitempty"`
}

// FindingPerspectives pairs one finding with whatever lens analyses
// succeeded for it. Analyses may be empty but the record itself is never
// dropped, so output lists stay 1:1 with their input findings.
type FindingPerspectives struct {
	FindingID string               `json:"finding_id"`
	Analyses  map[Persona]Analysis `json:"analyses"`
}
