package workflows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dossierlab/dossier/internal/activities"
)

func sq(id string, deps ...string) activities.SubQuery {
	return activities.SubQuery{ID: id, Query: "q " + id, DependsOn: deps}
}

func TestExecutionOrderNoDependencies(t *testing.T) {
	batches, cycle := ExecutionOrder([]activities.SubQuery{
		sq("sq_1"), sq("sq_2"), sq("sq_3"),
	})
	assert.False(t, cycle)
	require.Len(t, batches, 1)
	assert.ElementsMatch(t, []string{"sq_1", "sq_2", "sq_3"}, batches[0])
}

func TestExecutionOrderLinearChain(t *testing.T) {
	batches, cycle := ExecutionOrder([]activities.SubQuery{
		sq("sq_1"),
		sq("sq_2", "sq_1"),
		sq("sq_3", "sq_2"),
	})
	assert.False(t, cycle)
	require.Len(t, batches, 3)
	assert.Equal(t, []string{"sq_1"}, batches[0])
	assert.Equal(t, []string{"sq_2"}, batches[1])
	assert.Equal(t, []string{"sq_3"}, batches[2])
}

func TestExecutionOrderLayeredGraph(t *testing.T) {
	// sq_3 waits on sq_1 and sq_2, sq_4 waits on sq_3, sq_5 is free.
	batches, cycle := ExecutionOrder([]activities.SubQuery{
		sq("sq_1"),
		sq("sq_2"),
		sq("sq_3", "sq_1", "sq_2"),
		sq("sq_4", "sq_3"),
		sq("sq_5"),
	})
	assert.False(t, cycle)
	require.Len(t, batches, 3)
	assert.ElementsMatch(t, []string{"sq_1", "sq_2", "sq_5"}, batches[0])
	assert.Equal(t, []string{"sq_3"}, batches[1])
	assert.Equal(t, []string{"sq_4"}, batches[2])
}

func TestExecutionOrderCycleFallsBackToFinalBatch(t *testing.T) {
	batches, cycle := ExecutionOrder([]activities.SubQuery{
		sq("sq_1", "sq_2"),
		sq("sq_2", "sq_1"),
		sq("sq_3"),
	})
	assert.True(t, cycle)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"sq_3"}, batches[0])
	assert.ElementsMatch(t, []string{"sq_1", "sq_2"}, batches[1])
}

func TestExecutionOrderUnknownDependency(t *testing.T) {
	// A dependency on an id that does not exist can never be satisfied;
	// the guard still schedules the sub-query rather than hanging.
	batches, cycle := ExecutionOrder([]activities.SubQuery{
		sq("sq_1"),
		sq("sq_2", "sq_99"),
	})
	assert.True(t, cycle)
	require.Len(t, batches, 2)
	assert.Equal(t, []string{"sq_1"}, batches[0])
	assert.Equal(t, []string{"sq_2"}, batches[1])
}

func TestExecutionOrderSelfDependency(t *testing.T) {
	batches, cycle := ExecutionOrder([]activities.SubQuery{
		sq("sq_1", "sq_1"),
	})
	assert.True(t, cycle)
	require.Len(t, batches, 1)
	assert.Equal(t, []string{"sq_1"}, batches[0])
}

func TestExecutionOrderEmpty(t *testing.T) {
	batches, cycle := ExecutionOrder(nil)
	assert.False(t, cycle)
	assert.Empty(t, batches)
}
