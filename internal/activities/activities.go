// Package activities holds the Temporal activities behind the research
// pipeline. Every LLM call the workflows make goes through an activity in
// this package; workflows themselves stay deterministic.
package activities

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dossierlab/dossier/internal/config"
	"github.com/dossierlab/dossier/internal/db"
	"github.com/dossierlab/dossier/internal/llm"
	"github.com/dossierlab/dossier/internal/session"
)

// Activities bundles the dependencies shared by all activity methods.
type Activities struct {
	llm      *llm.Client
	logger   *zap.Logger
	research config.Research
	sessions *session.Manager
	store    *db.Client
}

// NewActivities wires the activity set. features, sessions and store may
// be nil; missing features fall back to the built-in knobs and the
// recording activities become no-ops.
func NewActivities(client *llm.Client, logger *zap.Logger, features *config.Features, sessions *session.Manager, store *db.Client) *Activities {
	if logger == nil {
		logger = zap.NewNop()
	}
	research := config.DefaultResearch()
	if features != nil {
		research = features.Research
	}
	return &Activities{
		llm:      client,
		logger:   logger,
		research: research,
		sessions: sessions,
		store:    store,
	}
}

// ResearchDefaults reports the worker's configured pipeline knobs.
// Workflows cannot read config files directly, so they resolve per-run
// inputs against this activity's result.
func (a *Activities) ResearchDefaults(ctx context.Context) (*config.Research, error) {
	r := a.research
	return &r, nil
}

// maxSubQueries is the configured plan size cap.
func (a *Activities) maxSubQueries() int {
	if a.research.MaxSubQueries > 0 {
		return a.research.MaxSubQueries
	}
	return MaxSubQueries
}

// truncateStr cuts s to at most n bytes without splitting a rune.
func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
