package findings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	assert.Equal(t, TypeEvent, ParseType("event"))
	assert.Equal(t, TypeActor, ParseType(" Actor "))
	assert.Equal(t, TypeGap, ParseType("GAP"))
	assert.Equal(t, TypeEvidence, ParseType("something-else"))
	assert.Equal(t, TypeEvidence, ParseType(""))
}

func TestCoerceDefaults(t *testing.T) {
	f := Coerce(map[string]interface{}{
		"content": "Minsk II was signed",
		"type":    "event",
		"date":    "February 2015",
		"actors":  []interface{}{"Ukraine", "Russia", 42},
	}, "f_7")

	assert.Equal(t, "f_7", f.ID)
	assert.Equal(t, TypeEvent, f.Type)
	assert.Equal(t, "February 2015", f.DateText)
	assert.Equal(t, []string{"Ukraine", "Russia"}, f.Actors)
	assert.Empty(t, f.Summary)
	assert.Empty(t, f.Sources)
}

func TestCoerceListDropsEmptyContent(t *testing.T) {
	out := CoerceList([]interface{}{
		map[string]interface{}{"id": "a", "content": "something happened", "type": "event"},
		map[string]interface{}{"id": "b", "content": "   "},
		"not even a map",
		map[string]interface{}{"type": "actor", "content": "Wagner Group"},
	})

	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].ID)
	// Missing id gets a positional fallback.
	assert.Equal(t, "f_4", out[1].ID)
	assert.Equal(t, TypeActor, out[1].Type)
}

func TestBuildTimelineOrdering(t *testing.T) {
	items := []Finding{
		{ID: "f1", Type: TypeEvent, Content: "Ceasefire signed", DateText: "2015-02-12"},
		{ID: "f2", Type: TypeEvent, Content: "Protests began in Kyiv in November 2013"},
		{ID: "f3", Type: TypeEvent, Content: "Crimea annexed", DateText: "March 2014"},
		{ID: "f4", Type: TypeEvent, Content: "Undated rumor, origin unknown"},
		{ID: "f5", Type: TypeActor, Content: "An actor, not an event"},
		{ID: "f6", Type: TypeEvent, Content: "Another undated report"},
	}

	tl := BuildTimeline(items)
	require.Len(t, tl, 5)

	// Dated ascending: Nov 2013 (from content scan), Mar 2014, Feb 2015.
	assert.Equal(t, "f2", tl[0].FindingID)
	assert.Equal(t, "f3", tl[1].FindingID)
	assert.Equal(t, "f1", tl[2].FindingID)

	// Undated events follow, preserving their original relative order.
	assert.Equal(t, "f4", tl[3].FindingID)
	assert.Equal(t, "f6", tl[4].FindingID)
	assert.Nil(t, tl[3].Date)
	assert.Nil(t, tl[4].Date)
}

func TestBuildTimelinePrefersDateTextOverContent(t *testing.T) {
	tl := BuildTimeline([]Finding{
		{ID: "x", Type: TypeEvent, Content: "Looking back from 2020, the pact of 1939 still matters", DateText: "1939-08-23"},
	})
	require.Len(t, tl, 1)
	require.NotNil(t, tl[0].Date)
	assert.Equal(t, 1939, tl[0].Date.Year)
	assert.Equal(t, 8, tl[0].Date.Month)
}

func TestBuildTimelineEmpty(t *testing.T) {
	assert.Empty(t, BuildTimeline(nil))
	assert.Empty(t, BuildTimeline([]Finding{{ID: "a", Type: TypeActor, Content: "not an event"}}))
}
