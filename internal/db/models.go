package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JSONB round-trips arbitrary JSON through a postgres jsonb column.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported jsonb scan type %T", value)
	}
	return json.Unmarshal(b, j)
}

// ResearchRun is one persisted pipeline execution.
type ResearchRun struct {
	ID          uuid.UUID  `db:"id"`
	WorkflowID  string     `db:"workflow_id"`
	SessionID   string     `db:"session_id"`
	Query       string     `db:"query"`
	Strategy    string     `db:"strategy"`
	QueryCount  int        `db:"query_count"`
	Synthesis   string     `db:"synthesis"`
	Status      string     `db:"status"`
	Errors      JSONB      `db:"errors"`
	Graph       JSONB      `db:"graph"`
	TokensUsed  int        `db:"tokens_used"`
	CostUSD     float64    `db:"cost_usd"`
	StartedAt   time.Time  `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

// FindingRow is one persisted finding tied to a run.
type FindingRow struct {
	ID        uuid.UUID `db:"id"`
	RunID     uuid.UUID `db:"run_id"`
	FindingID string    `db:"finding_id"`
	Type      string    `db:"type"`
	Content   string    `db:"content"`
	Summary   string    `db:"summary"`
	DateText  string    `db:"date_text"`
	Payload   JSONB     `db:"payload"`
	CreatedAt time.Time `db:"created_at"`
}
