package mcp

import (
	"context"
	"time"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/models"
	"github.com/claude/replift/internal/tracker"
)

// Tracker abstracts the training data for MCP tools. Local (in-process) and
// HTTPClient (remote via REST API) satisfy this interface.
type Tracker interface {
	Overview(ctx context.Context) (*analytics.Overview, error)
	Summary(ctx context.Context) (*analytics.Summary, error)
	Calendar(ctx context.Context, year int, month time.Month) (*analytics.CalendarMonth, error)
	Records(ctx context.Context, limit int) ([]analytics.PersonalRecord, error)
	Evolutions(ctx context.Context) ([]analytics.ExerciseTrend, error)
	Evolution(ctx context.Context, exercise string, period analytics.Period) (*analytics.EvolutionSeries, error)
	Achievements(ctx context.Context) (*tracker.Achievements, error)
	Sessions(ctx context.Context, filter tracker.SessionFilter) ([]models.Session, error)
	Programs(ctx context.Context) ([]models.Program, error)
}

// Local serves a Tracker from an in-process service.
type Local struct {
	svc *tracker.Service
	now func() time.Time
}

// Compile-time check: Local satisfies Tracker.
var _ Tracker = (*Local)(nil)

// NewLocal wraps svc. Time-relative metrics use the wall clock.
func NewLocal(svc *tracker.Service) *Local {
	return &Local{svc: svc, now: time.Now}
}

func (l *Local) Overview(ctx context.Context) (*analytics.Overview, error) {
	o := l.svc.Overview(ctx, l.now())
	return &o, nil
}

func (l *Local) Summary(ctx context.Context) (*analytics.Summary, error) {
	s := l.svc.Summary(ctx, l.now())
	return &s, nil
}

// Calendar returns the heatmap for year and month. A zero year or month
// selects the current one.
func (l *Local) Calendar(ctx context.Context, year int, month time.Month) (*analytics.CalendarMonth, error) {
	now := l.now()
	local := now.In(l.svc.Location())
	if year == 0 {
		year = local.Year()
	}
	if month == 0 {
		month = local.Month()
	}
	c := l.svc.Calendar(ctx, year, month, now)
	return &c, nil
}

func (l *Local) Records(ctx context.Context, limit int) ([]analytics.PersonalRecord, error) {
	return l.svc.Records(ctx, limit), nil
}

func (l *Local) Evolutions(ctx context.Context) ([]analytics.ExerciseTrend, error) {
	return l.svc.Evolutions(ctx), nil
}

func (l *Local) Evolution(ctx context.Context, exercise string, period analytics.Period) (*analytics.EvolutionSeries, error) {
	e := l.svc.Evolution(ctx, exercise, period, l.now())
	return &e, nil
}

func (l *Local) Achievements(ctx context.Context) (*tracker.Achievements, error) {
	return l.svc.Achievements(ctx, l.now())
}

func (l *Local) Sessions(ctx context.Context, filter tracker.SessionFilter) ([]models.Session, error) {
	return l.svc.Sessions(ctx, filter), nil
}

func (l *Local) Programs(ctx context.Context) ([]models.Program, error) {
	return l.svc.Programs(ctx), nil
}
