// Package analytics derives every computed training fact from the session log:
// totals, records, streaks, the activity calendar, trends and achievements.
//
// Engine methods are pure functions of the log (and of an explicit "now" for
// time-relative metrics). Every result is read through a memo.Cache, which
// the store flushes on mutation. Time-relative results are keyed by the local
// calendar day of "now", so they stay valid for the rest of that day unless
// new data arrives.
package analytics

import (
	"time"

	"github.com/claude/replift/internal/memo"
	"github.com/claude/replift/internal/models"
)

// LogSource provides a snapshot of the session log in log order.
type LogSource interface {
	Sessions() []models.Session
}

// Engine computes derived metrics over a LogSource.
type Engine struct {
	src   LogSource
	cache *memo.Cache
	loc   *time.Location
}

// New creates an Engine. Calendar days are computed in loc; a nil loc means
// time.Local.
func New(src LogSource, cache *memo.Cache, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{src: src, cache: cache, loc: loc}
}

// Location returns the time zone used for calendar-day bucketing.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Cache keys. Parameterized and time-relative keys are built with the
// helpers below.
const (
	keyLog         = "log"
	keyTotals      = "totals"
	keyRecords     = "records"
	keyFrequency   = "frequency"
	keyActiveDays  = "days"
	keyActiveWeeks = "weeks"
	keyOccurrences = "occurrences"
	keyEvolutions  = "evolutions"
	keyBalance     = "balance"
)

// sessions returns the log snapshot through the cache.
func (e *Engine) sessions() []models.Session {
	return memo.Load(e.cache, keyLog, e.src.Sessions)
}

// day truncates t to local midnight.
func (e *Engine) day(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

// bucket is the cache-key suffix for metrics relative to now.
func (e *Engine) bucket(now time.Time) string {
	return dayKey(e.day(now))
}

// monthStart returns local midnight on the first day of t's month.
func (e *Engine) monthStart(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, e.loc)
}

// weekStart returns the Monday of day's week. day must be a local midnight.
func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func dayKey(day time.Time) string {
	return day.Format(time.DateOnly)
}

// within reports whether t lies in [from, to].
func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
