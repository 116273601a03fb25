package perspectives

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestCoerceHistorical(t *testing.T) {
	raw := decode(t, `{
		"narrative": "echoes of 1973",
		"implications": ["supply shocks recur"],
		"related_finding_ids": ["f_1", "f_3"],
		"parallels": ["1973 oil embargo"],
		"patterns": ["cartel signaling"],
		"consequences": ["price controls"]
	}`)

	a := Coerce(PersonaHistorical, raw)
	assert.Equal(t, PersonaHistorical, a.Persona)
	assert.Equal(t, "echoes of 1973", a.Narrative)
	assert.Equal(t, []string{"f_1", "f_3"}, a.RelatedFindingIDs)
	require.NotNil(t, a.Historical)
	assert.Equal(t, []string{"1973 oil embargo"}, a.Historical.Parallels)
	assert.Nil(t, a.Financial)
	assert.Nil(t, a.Journalist)
}

func TestCoerceFinancialMoneyFlows(t *testing.T) {
	raw := decode(t, `{
		"analysis": "follows the money",
		"cui_bono": ["Acme Corp"],
		"money_flows": [
			{"from": "fund A", "to": "shell B", "mechanism": "consulting fees"},
			"not an object",
			{"from": "shell B", "to": "campaign C"}
		]
	}`)

	a := Coerce(PersonaFinancial, raw)
	// "analysis" is accepted as an alias when "narrative" is absent.
	assert.Equal(t, "follows the money", a.Narrative)
	require.NotNil(t, a.Financial)
	require.Len(t, a.Financial.MoneyFlows, 2)
	assert.Equal(t, "consulting fees", a.Financial.MoneyFlows[0].Mechanism)
	assert.Equal(t, "", a.Financial.MoneyFlows[1].Mechanism)
}

func TestCoerceJournalistVerificationDefault(t *testing.T) {
	a := Coerce(PersonaJournalist, decode(t, `{"verification_status": "totally confirmed"}`))
	require.NotNil(t, a.Journalist)
	assert.Equal(t, VerificationUnverified, a.Journalist.Verification)

	a = Coerce(PersonaJournalist, decode(t, `{"verification_status": "Disputed"}`))
	assert.Equal(t, VerificationDisputed, a.Journalist.Verification)
}

func TestCoerceConspiratorProbabilityDefault(t *testing.T) {
	a := Coerce(PersonaConspirator, decode(t, `{"theory": "coordination", "probability": "certain"}`))
	require.NotNil(t, a.Conspirator)
	assert.Equal(t, ProbabilityPossible, a.Conspirator.Probability)

	a = Coerce(PersonaConspirator, decode(t, `{"probability": "LIKELY"}`))
	assert.Equal(t, ProbabilityLikely, a.Conspirator.Probability)
}

func TestCoerceNetworkEmptyResponse(t *testing.T) {
	a := Coerce(PersonaNetwork, map[string]interface{}{})
	assert.Equal(t, "", a.Narrative)
	require.NotNil(t, a.Network)
	assert.Empty(t, a.Network.Relationships)
}

func TestParsePersona(t *testing.T) {
	p, ok := ParsePersona(" Financial ")
	assert.True(t, ok)
	assert.Equal(t, PersonaFinancial, p)

	_, ok = ParsePersona("astrologer")
	assert.False(t, ok)
}

func TestAllPersonasHavePrompts(t *testing.T) {
	for _, p := range All() {
		assert.NotEmpty(t, SystemPrompt(p), "persona %s", p)
		shape := ResponseShape(p)
		assert.Contains(t, shape, `"narrative"`, "persona %s", p)
	}
}
