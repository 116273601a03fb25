package activities

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/dossierlab/dossier/internal/db"
	"github.com/dossierlab/dossier/internal/findings"
	"github.com/dossierlab/dossier/internal/relationships"
	"github.com/dossierlab/dossier/internal/session"
)

// RecordRunInput carries everything persisted at the end of a pipeline
// run.
type RecordRunInput struct {
	SessionID  string               `json:"session_id,omitempty"`
	WorkflowID string               `json:"workflow_id"`
	Query      string               `json:"query"`
	Strategy   Strategy             `json:"strategy"`
	QueryCount int                  `json:"query_count"`
	Synthesis  string               `json:"synthesis,omitempty"`
	Findings   []findings.Finding   `json:"findings,omitempty"`
	Graph      *relationships.Graph `json:"graph,omitempty"`
	Errors     []string             `json:"errors,omitempty"`
	TokensUsed int                  `json:"tokens_used"`
	CostUSD    float64              `json:"cost_usd"`
	StartedAt  time.Time            `json:"started_at"`
}

// RecordResearchRun writes the run summary to the session store and
// queues the full record for persistence. Bookkeeping failures are
// logged, never returned: a finished research run is not failed over
// its own receipt.
func (a *Activities) RecordResearchRun(ctx context.Context, in RecordRunInput) error {
	logger := activity.GetLogger(ctx)
	now := time.Now()

	if a.sessions != nil && in.SessionID != "" {
		err := a.sessions.RecordRun(ctx, in.SessionID, session.RunRecord{
			RunID:        in.WorkflowID,
			Query:        in.Query,
			Strategy:     string(in.Strategy),
			QueryCount:   in.QueryCount,
			FindingCount: len(in.Findings),
			ErrorCount:   len(in.Errors),
			TokensUsed:   in.TokensUsed,
			CostUSD:      in.CostUSD,
			CompletedAt:  now,
		})
		if err != nil {
			logger.Warn("Session recording failed", "session_id", in.SessionID, "error", err)
		}
	}

	if a.store == nil {
		return nil
	}

	status := "completed"
	if len(in.Errors) > 0 {
		status = "completed_with_errors"
	}
	run := &db.ResearchRun{
		ID:          uuid.New(),
		WorkflowID:  in.WorkflowID,
		SessionID:   in.SessionID,
		Query:       in.Query,
		Strategy:    string(in.Strategy),
		QueryCount:  in.QueryCount,
		Synthesis:   in.Synthesis,
		Status:      status,
		TokensUsed:  in.TokensUsed,
		CostUSD:     in.CostUSD,
		StartedAt:   in.StartedAt,
		CompletedAt: &now,
	}
	if len(in.Errors) > 0 {
		run.Errors = db.JSONB{"errors": in.Errors}
	}
	if in.Graph != nil {
		run.Graph = toJSONB(in.Graph)
	}
	a.store.QueueRun(run)

	rows := make([]db.FindingRow, 0, len(in.Findings))
	for _, f := range in.Findings {
		rows = append(rows, db.FindingRow{
			RunID:     run.ID,
			FindingID: f.ID,
			Type:      string(f.Type),
			Content:   f.Content,
			Summary:   f.Summary,
			DateText:  f.DateText,
			Payload:   toJSONB(f),
		})
	}
	a.store.QueueFindings(rows)

	logger.Info("Research run recorded",
		"workflow_id", in.WorkflowID,
		"findings", len(rows),
		"status", status,
	)
	return nil
}

func toJSONB(v interface{}) db.JSONB {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m db.JSONB
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}
