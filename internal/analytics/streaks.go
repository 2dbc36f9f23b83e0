package analytics

import (
	"time"

	"github.com/claude/replift/internal/memo"
)

// activeDays is the set of local calendar days holding at least one session.
func (e *Engine) activeDays() map[string]struct{} {
	return memo.Load(e.cache, keyActiveDays, func() map[string]struct{} {
		days := make(map[string]struct{})
		for _, s := range e.sessions() {
			days[dayKey(e.day(s.Date))] = struct{}{}
		}
		return days
	})
}

// activeWeeks is the set of Monday week starts holding at least one session.
func (e *Engine) activeWeeks() map[string]struct{} {
	return memo.Load(e.cache, keyActiveWeeks, func() map[string]struct{} {
		weeks := make(map[string]struct{})
		for _, s := range e.sessions() {
			weeks[dayKey(weekStart(e.day(s.Date)))] = struct{}{}
		}
		return weeks
	})
}

// DailyStreak counts consecutive training days ending today, or ending
// yesterday when nothing has been logged yet today.
func (e *Engine) DailyStreak(now time.Time) int {
	return memo.Load(e.cache, "streak:daily:"+e.bucket(now), func() int {
		days := e.activeDays()
		if len(days) == 0 {
			return 0
		}
		check := e.day(now)
		if _, ok := days[dayKey(check)]; !ok {
			check = check.AddDate(0, 0, -1)
		}
		streak := 0
		for {
			if _, ok := days[dayKey(check)]; !ok {
				return streak
			}
			streak++
			check = check.AddDate(0, 0, -1)
		}
	})
}

// WeeklyStreak counts consecutive Monday-start weeks with at least one
// session, ending with the current week. An empty current week yields 0.
func (e *Engine) WeeklyStreak(now time.Time) int {
	return memo.Load(e.cache, "streak:weekly:"+e.bucket(now), func() int {
		weeks := e.activeWeeks()
		check := weekStart(e.day(now))
		streak := 0
		for {
			if _, ok := weeks[dayKey(check)]; !ok {
				return streak
			}
			streak++
			check = check.AddDate(0, 0, -7)
		}
	})
}
