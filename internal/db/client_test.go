package db

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockClient(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	conn := sqlx.NewDb(mockDB, "postgres")
	return newClientWithDB(conn, zap.NewNop()), mock
}

func TestSaveRunAssignsID(t *testing.T) {
	c, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO research_runs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	run := &ResearchRun{
		WorkflowID: "wf-1",
		Query:      "what happened",
		Strategy:   "temporal",
		Status:     "completed",
		StartedAt:  time.Now(),
	}
	require.NoError(t, c.saveRun(context.Background(), run))
	assert.NotEqual(t, uuid.Nil, run.ID)
	assert.False(t, run.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFindingsTransactional(t *testing.T) {
	c, mock := newMockClient(t)
	runID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO findings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO findings").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows := []FindingRow{
		{RunID: runID, FindingID: "f_1", Type: "event", Content: "a"},
		{RunID: runID, FindingID: "f_2", Type: "actor", Content: "b"},
	}
	require.NoError(t, c.saveFindings(context.Background(), rows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRunProcessedAsync(t *testing.T) {
	c, mock := newMockClient(t)

	mock.ExpectExec("INSERT INTO research_runs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	c.QueueRun(&ResearchRun{WorkflowID: "wf-async", Query: "q", StartedAt: time.Now()})

	// Close drains the queue and waits for the workers.
	mock.ExpectClose()
	require.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueFindingsEmptyNoop(t *testing.T) {
	c, mock := newMockClient(t)
	c.QueueFindings(nil)
	mock.ExpectClose()
	require.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}
