package session

import (
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned when a session doesn't exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExpired is returned when a session has expired.
	ErrSessionExpired = errors.New("session expired")
)

// Session is one research session: a sequence of research runs sharing
// context, with accumulated token and cost accounting.
type Session struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	ExpiresAt time.Time              `json:"expires_at"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Runs      []RunRecord            `json:"runs"`

	TotalTokensUsed int     `json:"total_tokens_used"`
	TotalCostUSD    float64 `json:"total_cost_usd"`
}

// RunRecord summarizes one completed research run within a session.
type RunRecord struct {
	RunID        string    `json:"run_id"`
	Query        string    `json:"query"`
	Strategy     string    `json:"strategy"`
	QueryCount   int       `json:"query_count"`
	FindingCount int       `json:"finding_count"`
	ErrorCount   int       `json:"error_count"`
	TokensUsed   int       `json:"tokens_used"`
	CostUSD      float64   `json:"cost_usd"`
	CompletedAt  time.Time `json:"completed_at"`
}

// IsExpired reports whether the session has passed its TTL.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// RecordRun appends one run summary and folds its usage into the
// session totals.
func (s *Session) RecordRun(r RunRecord) {
	s.Runs = append(s.Runs, r)
	s.TotalTokensUsed += r.TokensUsed
	s.TotalCostUSD += r.CostUSD
	s.UpdatedAt = time.Now()
}

// RecentRuns returns the most recent run summaries.
func (s *Session) RecentRuns(count int) []RunRecord {
	if len(s.Runs) <= count {
		return s.Runs
	}
	return s.Runs[len(s.Runs)-count:]
}
