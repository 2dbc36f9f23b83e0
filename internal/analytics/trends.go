package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/claude/replift/internal/memo"
)

// PeriodComparison compares volume over two consecutive periods.
type PeriodComparison struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	ChangePercent int     `json:"change_percent"`
	Label         string  `json:"label"`
}

// MonthComparison compares the current calendar month with the previous one.
type MonthComparison struct {
	Month         string `json:"month"`
	PreviousMonth string `json:"previous_month"`
	PeriodComparison
}

// WeekStats counts sessions over the rolling last 7 days and the 7 before.
type WeekStats struct {
	ThisWeek int `json:"this_week"`
	LastWeek int `json:"last_week"`
	Change   int `json:"change"`
}

// percentChange returns the rounded relative change and its display label.
// A zero baseline yields "+100%" when there is current volume and "-" when
// there is none.
func percentChange(current, previous float64) (int, string) {
	if previous == 0 {
		if current == 0 {
			return 0, "-"
		}
		return 100, "+100%"
	}
	pct := int(math.Round((current - previous) / previous * 100))
	if pct >= 0 {
		return pct, fmt.Sprintf("+%d%%", pct)
	}
	return pct, fmt.Sprintf("%d%%", pct)
}

func (e *Engine) volumeBetween(from, to time.Time) float64 {
	var total float64
	for _, s := range e.sessions() {
		if !s.Date.Before(from) && s.Date.Before(to) {
			total += s.Volume()
		}
	}
	return total
}

func (e *Engine) countBetween(from, to time.Time) int {
	n := 0
	for _, s := range e.sessions() {
		if !s.Date.Before(from) && s.Date.Before(to) {
			n++
		}
	}
	return n
}

// VolumeProgression compares volume over the last 30 days with the 30 days
// before that.
func (e *Engine) VolumeProgression(now time.Time) PeriodComparison {
	return memo.Load(e.cache, "trend:volume30:"+e.bucket(now), func() PeriodComparison {
		end := now.Add(time.Nanosecond)
		mid := now.AddDate(0, 0, -30)
		start := now.AddDate(0, 0, -60)
		c := PeriodComparison{
			Current:  e.volumeBetween(mid, end),
			Previous: e.volumeBetween(start, mid),
		}
		c.ChangePercent, c.Label = percentChange(c.Current, c.Previous)
		return c
	})
}

// MonthComparison compares the volume of now's calendar month with the
// previous month; January compares against December of the previous year.
func (e *Engine) MonthComparison(now time.Time) MonthComparison {
	return memo.Load(e.cache, "trend:month:"+e.bucket(now), func() MonthComparison {
		cur := e.monthStart(now)
		prev := cur.AddDate(0, -1, 0)
		next := cur.AddDate(0, 1, 0)
		c := MonthComparison{
			Month:         cur.Format("2006-01"),
			PreviousMonth: prev.Format("2006-01"),
			PeriodComparison: PeriodComparison{
				Current:  e.volumeBetween(cur, next),
				Previous: e.volumeBetween(prev, cur),
			},
		}
		c.ChangePercent, c.Label = percentChange(c.Current, c.Previous)
		return c
	})
}

// SessionsThisMonth counts sessions in now's calendar month.
func (e *Engine) SessionsThisMonth(now time.Time) int {
	return memo.Load(e.cache, "count:month:"+e.bucket(now), func() int {
		cur := e.monthStart(now)
		return e.countBetween(cur, cur.AddDate(0, 1, 0))
	})
}

// WeekStats compares session counts over the last 7 days and the 7 before.
func (e *Engine) WeekStats(now time.Time) WeekStats {
	return memo.Load(e.cache, "count:week:"+e.bucket(now), func() WeekStats {
		end := now.Add(time.Nanosecond)
		weekAgo := now.AddDate(0, 0, -7)
		twoWeeksAgo := now.AddDate(0, 0, -14)
		w := WeekStats{
			ThisWeek: e.countBetween(weekAgo, end),
			LastWeek: e.countBetween(twoWeeksAgo, weekAgo),
		}
		w.Change = w.ThisWeek - w.LastWeek
		return w
	})
}

// ExerciseRate is the monthly weight growth of one exercise.
type ExerciseRate struct {
	Exercise     string  `json:"exercise"`
	FirstWeight  float64 `json:"first_weight"`
	LastWeight   float64 `json:"last_weight"`
	Months       float64 `json:"months"`
	RatePerMonth float64 `json:"rate_per_month"`
}

// ProgressionRate is the mean monthly weight growth across exercises.
type ProgressionRate struct {
	AveragePerMonth float64        `json:"average_per_month"`
	Exercises       []ExerciseRate `json:"exercises"`
}

// progressionWindow is how far back ProgressionRate looks.
const progressionWindow = 3

// ProgressionRate computes, for each exercise with at least two weighted
// sessions in the trailing three months, the first-to-last weight change in
// percent divided by the months elapsed, then averages over exercises.
//
// This is a coarse linear rate between two samples, not a regression fit.
// Spans shorter than a month count as one month.
func (e *Engine) ProgressionRate(now time.Time) ProgressionRate {
	return memo.Load(e.cache, "trend:rate:"+e.bucket(now), func() ProgressionRate {
		since := now.AddDate(0, -progressionWindow, 0)
		occ := e.occurrences()
		out := ProgressionRate{Exercises: []ExerciseRate{}}
		var sum float64
		for _, name := range occ.order {
			var first, last *EvolutionPoint
			n := 0
			for i, p := range occ.points[name] {
				if !within(p.Date, since, now) {
					continue
				}
				if first == nil {
					first = &occ.points[name][i]
				}
				last = &occ.points[name][i]
				n++
			}
			if n < 2 {
				continue
			}
			months := math.Max(last.Date.Sub(first.Date).Hours()/24/30, 1)
			rate := (last.Weight - first.Weight) / first.Weight * 100 / months
			out.Exercises = append(out.Exercises, ExerciseRate{
				Exercise:     name,
				FirstWeight:  first.Weight,
				LastWeight:   last.Weight,
				Months:       months,
				RatePerMonth: rate,
			})
			sum += rate
		}
		if len(out.Exercises) > 0 {
			out.AveragePerMonth = sum / float64(len(out.Exercises))
		}
		return out
	})
}
