package llm

import (
	"encoding/json"
	"strings"

	"github.com/dossierlab/dossier/internal/metrics"
)

// ExtractJSON recovers a JSON value from model output. It tolerates raw
// JSON, JSON fenced in a markdown code block, and JSON embedded in prose.
// On failure it returns nil plus a descriptive message; it never panics
// and callers must treat the message as data, not an error.
func ExtractJSON(text string) (json.RawMessage, string) {
	candidate := strings.TrimSpace(stripCodeFences(text))
	if candidate == "" {
		metrics.JSONParseFallbacks.WithLabelValues("empty").Inc()
		return nil, "empty response"
	}

	if raw, ok := validJSON(candidate); ok {
		return raw, ""
	}

	// Re-scan for the outermost object, then the outermost array.
	for _, pair := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(candidate, pair[0])
		end := strings.LastIndex(candidate, pair[1])
		if start == -1 || end <= start {
			continue
		}
		if raw, ok := validJSON(candidate[start : end+1]); ok {
			metrics.JSONParseFallbacks.WithLabelValues("bracket_scan").Inc()
			return raw, ""
		}
	}

	metrics.JSONParseFallbacks.WithLabelValues("unrecoverable").Inc()
	return nil, "no valid JSON object or array found in response"
}

func validJSON(s string) (json.RawMessage, bool) {
	var v interface{}
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		return json.RawMessage(s), true
	}
	// Bare strings/numbers are not useful structured output.
	return nil, false
}

// stripCodeFences removes a leading markdown code fence (```json ... ```)
// around the payload, leaving inner content untouched.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	// Drop the opening fence line, including any language tag.
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		trimmed = trimmed[idx+1:]
	} else {
		return s
	}
	if idx := strings.LastIndex(trimmed, "```"); idx != -1 {
		trimmed = trimmed[:idx]
	}
	return trimmed
}
