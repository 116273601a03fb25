// Package db persists research runs and findings to Postgres. Writes go
// through an async queue so the pipeline never blocks on persistence;
// the pipeline hands over fully-formed records and moves on.
package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/dossierlab/dossier/internal/metrics"
)

// Config holds database connection settings.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	IdleConnections int
	MaxLifetime     time.Duration
}

// DSN renders the postgres connection string.
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// WriteKind tags an async write request.
type WriteKind string

const (
	WriteRun      WriteKind = "run"
	WriteFindings WriteKind = "findings"
)

// writeRequest is one queued persistence operation.
type writeRequest struct {
	kind WriteKind
	run  *ResearchRun
	rows []FindingRow
}

const (
	writeQueueSize = 1000
	writeWorkers   = 4
	writeTimeout   = 10 * time.Second
)

// Client manages the Postgres connection and the async write queue.
type Client struct {
	db     *sqlx.DB
	logger *zap.Logger

	queue  chan writeRequest
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewClient connects to Postgres and starts the write workers.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if cfg.MaxConnections > 0 {
		conn.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.IdleConnections > 0 {
		conn.SetMaxIdleConns(cfg.IdleConnections)
	}
	if cfg.MaxLifetime > 0 {
		conn.SetConnMaxLifetime(cfg.MaxLifetime)
	}

	c := newClientWithDB(conn, logger)
	logger.Info("Database client ready",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database),
	)
	return c, nil
}

// newClientWithDB wires a client around an existing connection. Used by
// tests with a mock driver.
func newClientWithDB(conn *sqlx.DB, logger *zap.Logger) *Client {
	c := &Client{
		db:     conn,
		logger: logger,
		queue:  make(chan writeRequest, writeQueueSize),
		stopCh: make(chan struct{}),
	}
	for i := 0; i < writeWorkers; i++ {
		c.wg.Add(1)
		go c.writeWorker()
	}
	return c
}

// QueueRun persists a research run asynchronously. A full queue falls
// back to a synchronous write rather than dropping the record.
func (c *Client) QueueRun(run *ResearchRun) {
	c.enqueue(writeRequest{kind: WriteRun, run: run})
}

// QueueFindings persists a run's findings asynchronously.
func (c *Client) QueueFindings(rows []FindingRow) {
	if len(rows) == 0 {
		return
	}
	c.enqueue(writeRequest{kind: WriteFindings, rows: rows})
}

func (c *Client) enqueue(req writeRequest) {
	select {
	case c.queue <- req:
		metrics.DBWritesQueued.WithLabelValues(string(req.kind)).Inc()
	default:
		c.logger.Warn("Write queue full, writing synchronously",
			zap.String("kind", string(req.kind)))
		c.process(req)
	}
}

func (c *Client) writeWorker() {
	defer c.wg.Done()
	for {
		select {
		case req := <-c.queue:
			c.process(req)
		case <-c.stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case req := <-c.queue:
					c.process(req)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) process(req writeRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	var err error
	switch req.kind {
	case WriteRun:
		err = c.saveRun(ctx, req.run)
	case WriteFindings:
		err = c.saveFindings(ctx, req.rows)
	}
	if err != nil {
		metrics.DBWriteErrors.WithLabelValues(string(req.kind)).Inc()
		c.logger.Error("Persistence write failed",
			zap.String("kind", string(req.kind)),
			zap.Error(err),
		)
	}
}

// saveRun inserts or updates one run record, idempotent by workflow id.
func (c *Client) saveRun(ctx context.Context, run *ResearchRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO research_runs (
			id, workflow_id, session_id, query, strategy, query_count,
			synthesis, status, errors, graph, tokens_used, cost_usd,
			started_at, completed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (workflow_id) DO UPDATE SET
			status = EXCLUDED.status,
			synthesis = EXCLUDED.synthesis,
			errors = EXCLUDED.errors,
			graph = EXCLUDED.graph,
			tokens_used = EXCLUDED.tokens_used,
			cost_usd = EXCLUDED.cost_usd,
			completed_at = EXCLUDED.completed_at`

	_, err := c.db.ExecContext(ctx, query,
		run.ID, run.WorkflowID, nullable(run.SessionID), run.Query, run.Strategy,
		run.QueryCount, run.Synthesis, run.Status, run.Errors, run.Graph,
		run.TokensUsed, run.CostUSD, run.StartedAt, run.CompletedAt, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save research run: %w", err)
	}
	return nil
}

func (c *Client) saveFindings(ctx context.Context, rows []FindingRow) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO findings (id, run_id, finding_id, type, content, summary, date_text, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, finding_id) DO NOTHING`

	for i := range rows {
		row := &rows[i]
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = time.Now()
		}
		if _, err := tx.ExecContext(ctx, query,
			row.ID, row.RunID, row.FindingID, row.Type, row.Content,
			row.Summary, row.DateText, row.Payload, row.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save finding %s: %w", row.FindingID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit findings: %w", err)
	}
	return nil
}

// RecentRuns loads the newest runs for a session, newest first.
func (c *Client) RecentRuns(ctx context.Context, sessionID string, limit int) ([]ResearchRun, error) {
	var runs []ResearchRun
	err := c.db.SelectContext(ctx, &runs, `
		SELECT * FROM research_runs
		WHERE session_id = $1
		ORDER BY started_at DESC
		LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load runs: %w", err)
	}
	return runs, nil
}

// Close stops the write workers, drains the queue, and closes the pool.
func (c *Client) Close() error {
	close(c.stopCh)
	c.wg.Wait()
	return c.db.Close()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
