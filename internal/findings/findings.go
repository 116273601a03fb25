// Package findings defines the atomic unit of extracted knowledge and the
// chronological timeline built from event findings.
package findings

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dossierlab/dossier/internal/dates"
)

// Type classifies a finding. The set is closed.
type Type string

const (
	TypeEvent        Type = "event"
	TypeActor        Type = "actor"
	TypeRelationship Type = "relationship"
	TypeEvidence     Type = "evidence"
	TypePattern      Type = "pattern"
	TypeGap          Type = "gap"
)

// ParseType maps a free-form string onto the closed type set. Unrecognized
// values land in the generic evidence bucket rather than failing.
func ParseType(s string) Type {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeEvent:
		return TypeEvent
	case TypeActor:
		return TypeActor
	case TypeRelationship:
		return TypeRelationship
	case TypeEvidence:
		return TypeEvidence
	case TypePattern:
		return TypePattern
	case TypeGap:
		return TypeGap
	default:
		return TypeEvidence
	}
}

// Finding is one atomic extracted fact, event, actor, or pattern.
type Finding struct {
	ID       string   `json:"id"`
	Type     Type     `json:"type"`
	Content  string   `json:"content"`
	Summary  string   `json:"summary,omitempty"`
	DateText string   `json:"date_text,omitempty"`
	Actors   []string `json:"actors,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}

// Coerce builds a Finding from a dict-shaped record, substituting defaults
// for missing or mistyped keys. It never fails; a record without content
// yields a Finding with empty Content that CoerceList will drop.
func Coerce(raw map[string]interface{}, fallbackID string) Finding {
	f := Finding{ID: stringAt(raw, "id"), Summary: stringAt(raw, "summary")}
	if f.ID == "" {
		f.ID = fallbackID
	}
	f.Type = ParseType(stringAt(raw, "type"))
	f.Content = stringAt(raw, "content")
	f.DateText = stringAt(raw, "date")
	if f.DateText == "" {
		f.DateText = stringAt(raw, "date_text")
	}
	f.Actors = stringsAt(raw, "actors")
	f.Sources = stringsAt(raw, "sources")
	return f
}

// CoerceList converts a decoded JSON array of dict-shaped records into
// findings, assigning sequential ids where missing and dropping records
// with no content (content is the one required field).
func CoerceList(rawList []interface{}) []Finding {
	out := make([]Finding, 0, len(rawList))
	for i, item := range rawList {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		f := Coerce(m, fmt.Sprintf("f_%d", i+1))
		if strings.TrimSpace(f.Content) == "" {
			continue
		}
		out = append(out, f)
	}
	return out
}

func stringAt(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func stringsAt(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TimelineEvent is one event finding placed on the timeline. Date is nil
// for undated events.
type TimelineEvent struct {
	FindingID string      `json:"finding_id"`
	Content   string      `json:"content"`
	Summary   string      `json:"summary,omitempty"`
	Date      *dates.Date `json:"date,omitempty"`
	DateText  string      `json:"date_text,omitempty"`
}

// BuildTimeline arranges event-type findings chronologically. The date is
// taken from the finding's own date text first, falling back to a scan of
// its content. Dated events sort ascending by (year, month, day); undated
// events follow in their original relative order and are never dropped.
func BuildTimeline(items []Finding) []TimelineEvent {
	var dated, undated []TimelineEvent
	for _, f := range items {
		if f.Type != TypeEvent {
			continue
		}
		ev := TimelineEvent{
			FindingID: f.ID,
			Content:   f.Content,
			Summary:   f.Summary,
			DateText:  f.DateText,
		}
		var d dates.Date
		var ok bool
		if f.DateText != "" {
			d, ok = dates.First(f.DateText)
		}
		if !ok {
			d, ok = dates.First(f.Content)
		}
		if ok {
			dc := d
			ev.Date = &dc
			if ev.DateText == "" {
				ev.DateText = dc.ISO()
			}
			dated = append(dated, ev)
		} else {
			undated = append(undated, ev)
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Date.Before(*dated[j].Date)
	})
	return append(dated, undated...)
}
