package llm

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw json.RawMessage) map[string]interface{} {
	t.Helper()
	var v map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestExtractJSONBareObject(t *testing.T) {
	raw, parseErr := ExtractJSON(`{"needs_decomposition": true, "strategy": "temporal"}`)
	require.Empty(t, parseErr)
	v := mustParse(t, raw)
	assert.Equal(t, true, v["needs_decomposition"])
}

func TestExtractJSONFencedMatchesBare(t *testing.T) {
	bare := `{"a": 1, "b": ["x", "y"]}`
	fenced := "```json\n" + bare + "\n```"

	rawBare, errBare := ExtractJSON(bare)
	rawFenced, errFenced := ExtractJSON(fenced)

	require.Empty(t, errBare)
	require.Empty(t, errFenced)
	assert.Equal(t, mustParse(t, rawBare), mustParse(t, rawFenced))
}

func TestExtractJSONEmbeddedInProse(t *testing.T) {
	text := "Sure, here is the analysis you asked for:\n" +
		`{"themes": ["energy", "security"]}` +
		"\nLet me know if you need anything else."
	raw, parseErr := ExtractJSON(text)
	require.Empty(t, parseErr)
	v := mustParse(t, raw)
	assert.Len(t, v["themes"], 2)
}

func TestExtractJSONArray(t *testing.T) {
	raw, parseErr := ExtractJSON("Results:\n[{\"id\": \"f1\"}, {\"id\": \"f2\"}]")
	require.Empty(t, parseErr)
	var v []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Len(t, v, 2)
}

func TestExtractJSONFenceWithoutLanguageTag(t *testing.T) {
	raw, parseErr := ExtractJSON("```\n{\"k\": \"v\"}\n```")
	require.Empty(t, parseErr)
	assert.Equal(t, "v", mustParse(t, raw)["k"])
}

func TestExtractJSONUnrecoverable(t *testing.T) {
	for _, text := range []string{
		"",
		"I could not produce the requested format.",
		"{not json at all]",
		"42",
	} {
		raw, parseErr := ExtractJSON(text)
		assert.Nil(t, raw, "input %q", text)
		assert.NotEmpty(t, parseErr, "input %q", text)
	}
}
