// Package tracker is the application service shared by the HTTP API, the MCP
// server and the admin CLI. It serializes access to the document store and the
// analytics engine, which both assume a single caller at a time.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/ingest"
	"github.com/claude/replift/internal/ingest/alpha"
	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/models"
	"github.com/claude/replift/internal/storage"
)

var (
	// ErrNoActiveSession is returned when an operation needs an in-progress
	// session and there is none.
	ErrNoActiveSession = errors.New("no active session")

	// ErrEmptySession is returned when finishing a session with no logged set.
	ErrEmptySession = errors.New("session has no logged set")
)

// Service is safe for concurrent use.
type Service struct {
	mu      sync.Mutex
	store   *storage.Store
	engine  *analytics.Engine
	alpha   *alpha.Provider
	metrics *metrics.Manager
	log     *slog.Logger
}

// New creates a Service. The engine must read from store, and the cache
// behind the engine must be the store's invalidator.
func New(store *storage.Store, engine *analytics.Engine, m *metrics.Manager, log *slog.Logger) *Service {
	s := &Service{
		store:   store,
		engine:  engine,
		alpha:   alpha.NewProvider(store, engine.Location(), log),
		metrics: m,
		log:     log,
	}
	m.GaugeSessions.Set(float64(store.SessionCount()))
	return s
}

// Location returns the time zone used for calendar days.
func (s *Service) Location() *time.Location {
	return s.engine.Location()
}

// sync picks up writes made by other processes sharing the store. When the
// reload fails the loaded copy keeps being served. Callers hold mu.
func (s *Service) sync(ctx context.Context) {
	changed, err := s.store.Refresh(ctx)
	if err != nil {
		s.log.Warn("reloading document failed, serving the loaded copy", "error", err)
		return
	}
	if changed {
		s.metrics.GaugeSessions.Set(float64(s.store.SessionCount()))
	}
}

// mutated records the outcome of a store mutation. Callers hold mu.
func (s *Service) mutated(op string, err error) {
	s.metrics.Mutation(op, err)
	if err != nil {
		s.log.Error("store mutation failed", "op", op, "error", err)
		return
	}
	s.metrics.GaugeSessions.Set(float64(s.store.SessionCount()))
}

// --- Analytics ---

// Overview returns the dashboard headline.
func (s *Service) Overview(ctx context.Context, now time.Time) analytics.Overview {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.engine.Overview(now)
}

// Summary returns the statistics page.
func (s *Service) Summary(ctx context.Context, now time.Time) analytics.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.engine.Summary(now)
}

// Calendar returns the heatmap for one month.
func (s *Service) Calendar(ctx context.Context, year int, month time.Month, now time.Time) analytics.CalendarMonth {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.engine.Calendar(year, month, now)
}

// Records returns up to limit personal records, heaviest first.
func (s *Service) Records(ctx context.Context, limit int) []analytics.PersonalRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.engine.PersonalRecords(limit)
}

// Evolutions returns the first-to-last trend of every exercise.
func (s *Service) Evolutions(ctx context.Context) []analytics.ExerciseTrend {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.engine.ExerciseEvolutions()
}

// Evolution returns one exercise's max-weight series over period.
func (s *Service) Evolution(ctx context.Context, name string, period analytics.Period, now time.Time) analytics.EvolutionSeries {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.engine.ExerciseEvolution(name, period, now)
}

// Achievements is the evaluated badge list together with the recently
// earned ones.
type Achievements struct {
	Badges      []analytics.Achievement `json:"badges"`
	Earned      int                     `json:"earned"`
	Recent      []analytics.Achievement `json:"recent"`
	NewlyEarned []analytics.BadgeID     `json:"newly_earned,omitempty"`
}

// Achievements evaluates every badge. Badges earned for the first time are
// recorded in the persisted recent list; nothing is written when the earned
// set has not changed.
func (s *Service) Achievements(ctx context.Context, now time.Time) (*Achievements, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync(ctx)
	badges := s.engine.Achievements(now)
	earned := analytics.EarnedIDs(badges)
	state, fresh, changed := analytics.RecentlyEarned(earned, s.store.Achievements())
	if changed {
		err := s.store.SaveAchievements(ctx, state)
		s.mutated("save_achievements", err)
		if err != nil {
			return nil, err
		}
		for _, id := range fresh {
			s.metrics.CounterBadgesEarned.WithLabelValues(string(id)).Inc()
		}
		s.log.Info("achievements earned", "badges", fresh)
	}

	byID := make(map[analytics.BadgeID]analytics.Achievement, len(badges))
	for _, b := range badges {
		byID[b.ID] = b
	}
	out := &Achievements{
		Badges:      badges,
		Earned:      len(earned),
		Recent:      []analytics.Achievement{},
		NewlyEarned: fresh,
	}
	for _, id := range state.Recent {
		if b, ok := byID[analytics.BadgeID(id)]; ok {
			out.Recent = append(out.Recent, b)
		}
	}
	return out, nil
}

// --- Sessions ---

// SessionFilter narrows a session listing. Zero fields match everything.
type SessionFilter struct {
	Start   time.Time
	End     time.Time
	Program string // case-insensitive substring of the program name
}

func (f SessionFilter) match(sess models.Session) bool {
	if !f.Start.IsZero() && sess.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && sess.Date.After(f.End) {
		return false
	}
	if f.Program != "" && !strings.Contains(strings.ToLower(sess.ProgramName), strings.ToLower(f.Program)) {
		return false
	}
	return true
}

// Sessions lists sessions matching f, most recent first.
func (s *Service) Sessions(ctx context.Context, f SessionFilter) []models.Session {
	s.mu.Lock()
	s.sync(ctx)
	all := s.store.Sessions()
	s.mu.Unlock()

	out := make([]models.Session, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if f.match(all[i]) {
			out = append(out, all[i])
		}
	}
	return out
}

// Session returns one session.
func (s *Service) Session(ctx context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.store.Session(id)
}

// AddSession logs a completed session.
func (s *Service) AddSession(ctx context.Context, sess models.Session, now time.Time) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.store.AddSession(ctx, sess, now)
	s.mutated("add_session", err)
	return added, err
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.DeleteSession(ctx, id)
	s.mutated("delete_session", err)
	return err
}

// --- Programs ---

// Programs lists program templates in creation order.
func (s *Service) Programs(ctx context.Context) []models.Program {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.store.Programs()
}

// Program returns one program template.
func (s *Service) Program(ctx context.Context, id string) (models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.store.Program(id)
}

// LastSessionForProgram returns the most recent session logged with the
// program.
func (s *Service) LastSessionForProgram(ctx context.Context, id string) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	sess, ok := s.store.LastSessionForProgram(id)
	if !ok {
		return models.Session{}, fmt.Errorf("last session for program %s: %w", id, storage.ErrNotFound)
	}
	return sess, nil
}

// AddProgram stores a new program template.
func (s *Service) AddProgram(ctx context.Context, p models.Program, now time.Time) (models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	added, err := s.store.AddProgram(ctx, p, now)
	s.mutated("add_program", err)
	return added, err
}

// UpdateProgram replaces a program template.
func (s *Service) UpdateProgram(ctx context.Context, id string, p models.Program) (models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated, err := s.store.UpdateProgram(ctx, id, p)
	s.mutated("update_program", err)
	return updated, err
}

// DeleteProgram removes a program template.
func (s *Service) DeleteProgram(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.DeleteProgram(ctx, id)
	s.mutated("delete_program", err)
	return err
}

// --- Bulk ---

// Import replaces all data with doc. The incoming achievement state is
// dropped so badges are re-announced against the imported log.
func (s *Service) Import(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc = doc.Clone()
	doc.Achievements = models.AchievementState{}
	err := s.store.Import(ctx, doc)
	s.mutated("import", err)
	return err
}

// ImportAlpha adds the workouts of an Alpha Progression CSV export that are
// not logged yet.
func (s *Service) ImportAlpha(ctx context.Context, r io.Reader, now time.Time, dryRun bool) (*ingest.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	res, err := s.alpha.Ingest(ctx, r, now, dryRun)
	if !dryRun {
		s.mutated("import_alpha", err)
	}
	return res, err
}

// Export returns a copy of the whole document.
func (s *Service) Export(ctx context.Context) *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	return s.store.Export()
}

// Reset deletes all data.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.store.Reset(ctx)
	s.mutated("reset", err)
	return err
}
