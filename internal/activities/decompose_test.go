package activities

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
	"go.uber.org/zap"

	"github.com/dossierlab/dossier/internal/config"
	"github.com/dossierlab/dossier/internal/llm"
)

// skipIfNoListeners skips tests in sandboxes that forbid binding ports.
func skipIfNoListeners(t *testing.T) {
	t.Helper()
	if ln6, err6 := net.Listen("tcp6", "[::1]:0"); err6 == nil {
		_ = ln6.Close()
	} else if ln4, err4 := net.Listen("tcp4", "127.0.0.1:0"); err4 == nil {
		_ = ln4.Close()
	} else {
		t.Skip("port binding not permitted in this environment; skipping")
	}
}

// fakeLLMServer serves canned model output per agent id, wrapped in the
// LLM service response envelope.
func fakeLLMServer(t *testing.T, byAgent map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID := r.Header.Get("X-Agent-ID")
		text, ok := byAgent[agentID]
		if !ok {
			t.Errorf("unexpected agent id %q", agentID)
			http.Error(w, "unknown agent", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success":     true,
			"response":    text,
			"tokens_used": 42,
			"model_used":  "test-model",
			"provider":    "openai",
			"metadata": map[string]interface{}{
				"input_tokens":  30,
				"output_tokens": 12,
				"cost_usd":      0.001,
			},
		})
	}))
}

func newTestActivities(srvURL string) *Activities {
	return NewActivities(llm.NewClient(srvURL, zap.NewNop()), zap.NewNop(), nil, nil, nil)
}

func TestDecomposeQueryPositiveVerdict(t *testing.T) {
	skipIfNoListeners(t)

	srv := fakeLLMServer(t, map[string]string{
		"decomposer": `{"needs_decomposition": true, "strategy": "temporal",
			"reasoning": "decade-long span",
			"themes": ["elections", "protest movements"],
			"suggested_splits": [
				{"focus": "early period", "time_period": "2010-2014", "priority": "high"},
				{"focus": "late period", "time_period": "2015-2020", "priority": "medium"}
			]}`,
	})
	defer srv.Close()

	a := newTestActivities(srv.URL)
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a.DecomposeQuery)

	val, err := env.ExecuteActivity(a.DecomposeQuery, DecomposeInput{
		Query: "political shifts between 2010 and 2020",
	})
	require.NoError(t, err)
	var out DecomposeResult
	require.NoError(t, val.Get(&out))

	assert.True(t, out.NeedsDecomposition)
	assert.Equal(t, StrategyTemporal, out.Strategy)
	require.Len(t, out.Splits, 2)
	assert.Equal(t, "early period", out.Splits[0].Focus)
	require.NotNil(t, out.DateRange)
	assert.Equal(t, 10, out.DateRange.SpanYears)
	assert.Equal(t, 42, out.TokensUsed)
}

func TestDecomposeQueryUnparseableDefaultsToNegative(t *testing.T) {
	skipIfNoListeners(t)

	srv := fakeLLMServer(t, map[string]string{
		"decomposer": "I would rather write prose than JSON.",
	})
	defer srv.Close()

	a := newTestActivities(srv.URL)
	ts := &testsuite.WorkflowTestSuite{}

	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a.DecomposeQuery)
	val, err := env.ExecuteActivity(a.DecomposeQuery, DecomposeInput{Query: "short question"})
	require.NoError(t, err)
	var out DecomposeResult
	require.NoError(t, val.Get(&out))
	assert.False(t, out.NeedsDecomposition)
	assert.Equal(t, StrategyNone, out.Strategy)

	// Force still yields a decomposition, with the hybrid strategy.
	env = ts.NewTestActivityEnvironment()
	env.RegisterActivity(a.DecomposeQuery)
	val, err = env.ExecuteActivity(a.DecomposeQuery, DecomposeInput{Query: "short question", Force: true})
	require.NoError(t, err)
	require.NoError(t, val.Get(&out))
	assert.True(t, out.NeedsDecomposition)
	assert.Equal(t, StrategyHybrid, out.Strategy)
}

func TestGenerateSubQueriesAssignsIDsAndResolvesDeps(t *testing.T) {
	skipIfNoListeners(t)

	srv := fakeLLMServer(t, map[string]string{
		"subquery_planner": `{"sub_queries": [
			{"query": "protest coverage 2010-2014", "batch_order": 1,
			 "composition_role": "primary", "start_date": "2010-01-01", "end_date": "not-a-date"},
			{"query": "election results 2010", "batch_order": 0,
			 "composition_role": "background", "depends_on_indices": [0, 5]},
			{"query": "   "},
			{"query": "synthesis of both periods", "batch_order": 0,
			 "composition_role": "synthesis", "depends_on_indices": [3, 0, 2]}
		]}`,
	})
	defer srv.Close()

	a := newTestActivities(srv.URL)
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a.GenerateSubQueries)

	val, err := env.ExecuteActivity(a.GenerateSubQueries, SubQueryPlanInput{
		Query:    "political shifts between 2010 and 2020",
		Strategy: StrategyTemporal,
	})
	require.NoError(t, err)
	var out SubQueryPlanResult
	require.NoError(t, val.Get(&out))

	// The blank entry neither appears nor consumes an id slot, so every
	// id the plan references names a real sub-query; stable sort by
	// batch order keeps tied entries in list order.
	require.Len(t, out.SubQueries, 3)
	assert.Equal(t, "sq_2", out.SubQueries[0].ID)
	assert.Equal(t, "sq_3", out.SubQueries[1].ID)
	assert.Equal(t, "sq_1", out.SubQueries[2].ID)

	first := out.SubQueries[2]
	assert.Equal(t, RolePrimary, first.Role)
	assert.Equal(t, "2010-01-01", first.StartDate)
	assert.Empty(t, first.EndDate)

	// Self, forward, and out-of-range indices are dropped, as are
	// references to the blank slot; earlier kept entries resolve.
	assert.Equal(t, []string{"sq_1"}, out.SubQueries[0].DependsOn)
	assert.Equal(t, []string{"sq_1"}, out.SubQueries[1].DependsOn)
	assert.Empty(t, out.SubQueries[2].DependsOn)
}

func TestGenerateSubQueriesCapsPlanSize(t *testing.T) {
	skipIfNoListeners(t)

	entries := make([]map[string]interface{}, 0, 8)
	for i := 0; i < 8; i++ {
		entries = append(entries, map[string]interface{}{
			"query":       "sub-query",
			"batch_order": i,
		})
	}
	plan, err := json.Marshal(map[string]interface{}{"sub_queries": entries})
	require.NoError(t, err)

	srv := fakeLLMServer(t, map[string]string{"subquery_planner": string(plan)})
	defer srv.Close()

	a := newTestActivities(srv.URL)
	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a.GenerateSubQueries)

	val, err := env.ExecuteActivity(a.GenerateSubQueries, SubQueryPlanInput{
		Query:    "a very broad question",
		Strategy: StrategyThematic,
	})
	require.NoError(t, err)
	var out SubQueryPlanResult
	require.NoError(t, val.Get(&out))
	assert.Len(t, out.SubQueries, MaxSubQueries)
}

func TestGenerateSubQueriesHonorsConfiguredCap(t *testing.T) {
	skipIfNoListeners(t)

	entries := make([]map[string]interface{}, 0, 4)
	for i := 0; i < 4; i++ {
		entries = append(entries, map[string]interface{}{
			"query":       "sub-query",
			"batch_order": i,
		})
	}
	plan, err := json.Marshal(map[string]interface{}{"sub_queries": entries})
	require.NoError(t, err)

	srv := fakeLLMServer(t, map[string]string{"subquery_planner": string(plan)})
	defer srv.Close()

	features := &config.Features{Research: config.DefaultResearch()}
	features.Research.MaxSubQueries = 2
	a := NewActivities(llm.NewClient(srv.URL, zap.NewNop()), zap.NewNop(), features, nil, nil)

	ts := &testsuite.WorkflowTestSuite{}
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a.GenerateSubQueries)

	val, err := env.ExecuteActivity(a.GenerateSubQueries, SubQueryPlanInput{
		Query:    "a very broad question",
		Strategy: StrategyThematic,
	})
	require.NoError(t, err)
	var out SubQueryPlanResult
	require.NoError(t, val.Get(&out))
	assert.Len(t, out.SubQueries, 2)
}
