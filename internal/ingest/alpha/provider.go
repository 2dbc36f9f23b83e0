package alpha

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/claude/replift/internal/ingest"
	"github.com/claude/replift/internal/models"
)

// SessionStore is the part of the session log the provider writes to.
type SessionStore interface {
	Sessions() []models.Session
	AddSessions(ctx context.Context, sessions []models.Session, now time.Time) ([]models.Session, error)
}

// Provider imports Alpha Progression CSV exports into the session log.
type Provider struct {
	store SessionStore
	loc   *time.Location
	log   *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider. Export times
// are read in loc.
func NewProvider(store SessionStore, loc *time.Location, log *slog.Logger) *Provider {
	return &Provider{store: store, loc: loc, log: log}
}

// Ingest parses a CSV export and adds every workout whose start time is not
// already in the log, so re-importing the same export is a no-op. With
// dryRun nothing is written.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, now time.Time, dryRun bool) (*ingest.Result, error) {
	sessions, err := Sessions(r, p.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing CSV: %w", ingest.ErrInvalidInput, err)
	}

	existing := make(map[int64]struct{})
	for _, s := range p.store.Sessions() {
		existing[s.Date.Unix()] = struct{}{}
	}

	result := &ingest.Result{Source: "alpha", SessionsReceived: len(sessions), DryRun: dryRun}
	var fresh []models.Session
	for _, s := range sessions {
		sets := 0
		for _, ex := range s.Exercises {
			sets += len(ex.Series)
		}
		result.SetsReceived += sets
		if _, dup := existing[s.Date.Unix()]; dup {
			result.SessionsSkipped++
			continue
		}
		existing[s.Date.Unix()] = struct{}{}
		fresh = append(fresh, s)
		result.SetsInserted += sets
	}
	result.SessionsInserted = len(fresh)

	if dryRun || len(fresh) == 0 {
		return result, nil
	}
	if _, err := p.store.AddSessions(ctx, fresh, now); err != nil {
		return nil, fmt.Errorf("storing sessions: %w", err)
	}
	p.log.Info("alpha import complete",
		"received", result.SessionsReceived,
		"inserted", result.SessionsInserted,
		"skipped", result.SessionsSkipped)
	return result, nil
}
