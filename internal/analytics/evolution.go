package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/claude/replift/internal/memo"
)

// Trend is the direction of an exercise's working weight.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// trendThreshold is the first-to-last change, in percent, beyond which a
// trend is reported as up or down.
const trendThreshold = 5.0

// EvolutionPoint is one session's performance on an exercise.
type EvolutionPoint struct {
	Date   time.Time `json:"date"`
	Weight float64   `json:"weight"`
	Reps   int       `json:"reps"`
	Volume float64   `json:"volume"`
}

// occurrenceIndex holds, per exercise, the weighted sessions in date order.
type occurrenceIndex struct {
	order  []string
	points map[string][]EvolutionPoint
}

func (e *Engine) occurrences() occurrenceIndex {
	return memo.Load(e.cache, keyOccurrences, func() occurrenceIndex {
		idx := occurrenceIndex{points: make(map[string][]EvolutionPoint)}
		for _, s := range e.sessions() {
			for _, ex := range s.Exercises {
				w := ex.MaxWeight()
				if ex.Name == "" || w <= 0 {
					continue
				}
				if _, ok := idx.points[ex.Name]; !ok {
					idx.order = append(idx.order, ex.Name)
				}
				idx.points[ex.Name] = append(idx.points[ex.Name], EvolutionPoint{
					Date:   s.Date,
					Weight: w,
					Reps:   ex.TotalReps(),
					Volume: ex.Volume(),
				})
			}
		}
		for _, pts := range idx.points {
			sort.SliceStable(pts, func(i, j int) bool { return pts[i].Date.Before(pts[j].Date) })
		}
		return idx
	})
}

// ExerciseTrend summarizes the weight evolution of one exercise.
type ExerciseTrend struct {
	Exercise    string  `json:"exercise"`
	Sessions    int     `json:"sessions"`
	FirstWeight float64 `json:"first_weight"`
	LastWeight  float64 `json:"last_weight"`
	BestWeight  float64 `json:"best_weight"`
	Trend       Trend   `json:"trend"`
	Progress    int     `json:"progress"`
}

// ExerciseEvolutions lists every exercise logged with a non-zero weight in at
// least two sessions, most frequent first.
func (e *Engine) ExerciseEvolutions() []ExerciseTrend {
	list := memo.Load(e.cache, keyEvolutions, func() []ExerciseTrend {
		occ := e.occurrences()
		out := []ExerciseTrend{}
		for _, name := range occ.order {
			pts := occ.points[name]
			if len(pts) < 2 {
				continue
			}
			first, last := pts[0].Weight, pts[len(pts)-1].Weight
			change := (last - first) / first * 100
			t := ExerciseTrend{
				Exercise:    name,
				Sessions:    len(pts),
				FirstWeight: first,
				LastWeight:  last,
				Trend:       TrendStable,
				Progress:    int(math.Round(math.Abs(change))),
			}
			for _, p := range pts {
				t.BestWeight = math.Max(t.BestWeight, p.Weight)
			}
			switch {
			case change > trendThreshold:
				t.Trend = TrendUp
			case change < -trendThreshold:
				t.Trend = TrendDown
			}
			out = append(out, t)
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Sessions > out[j].Sessions })
		return out
	})
	return head(list, 0)
}

// Period selects a trailing window for ExerciseEvolution.
type Period string

const (
	PeriodWeek     Period = "7d"
	PeriodMonth    Period = "30d"
	PeriodQuarter  Period = "3m"
	PeriodHalfYear Period = "6m"
	PeriodYear     Period = "1y"
	PeriodAll      Period = "all"
)

// DefaultPeriod is used when no period is requested.
const DefaultPeriod = PeriodQuarter

// ParsePeriod validates a period name. An empty string selects the default.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return DefaultPeriod, nil
	case PeriodWeek, PeriodMonth, PeriodQuarter, PeriodHalfYear, PeriodYear, PeriodAll:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q (want 7d, 30d, 3m, 6m, 1y or all)", s)
}

// since returns the start of the window ending at now. ok is false for an
// unbounded window.
func (p Period) since(now time.Time) (time.Time, bool) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7), true
	case PeriodMonth:
		return now.AddDate(0, 0, -30), true
	case PeriodQuarter:
		return now.AddDate(0, -3, 0), true
	case PeriodHalfYear:
		return now.AddDate(0, -6, 0), true
	case PeriodYear:
		return now.AddDate(-1, 0, 0), true
	}
	return time.Time{}, false
}

// EvolutionSeries is the per-session history of one exercise over a period.
type EvolutionSeries struct {
	Exercise           string           `json:"exercise"`
	Period             Period           `json:"period"`
	Points             []EvolutionPoint `json:"points"`
	ProgressionPercent int              `json:"progression_percent"`
	ProgressionLabel   string           `json:"progression_label"`
	BestWeight         float64          `json:"best_weight"`
	LastWeight         float64          `json:"last_weight"`
}

// ExerciseEvolution returns the weighted sessions of one exercise within the
// period. An unknown exercise yields an empty series, not an error.
//
// Only logged exercises get a cache entry, so lookups of arbitrary names do
// not grow the cache.
func (e *Engine) ExerciseEvolution(name string, period Period, now time.Time) EvolutionSeries {
	empty := EvolutionSeries{Exercise: name, Period: period, Points: []EvolutionPoint{}, ProgressionLabel: "-"}
	if _, ok := e.occurrences().points[name]; !ok {
		return empty
	}
	key := fmt.Sprintf("evolution:%s:%s:%s", period, e.bucket(now), name)
	return memo.Load(e.cache, key, func() EvolutionSeries {
		out := empty
		since, bounded := period.since(now)
		for _, p := range e.occurrences().points[name] {
			if bounded && p.Date.Before(since) {
				continue
			}
			out.Points = append(out.Points, p)
			out.BestWeight = math.Max(out.BestWeight, p.Weight)
		}
		if len(out.Points) == 0 {
			return out
		}
		first := out.Points[0].Weight
		out.LastWeight = out.Points[len(out.Points)-1].Weight
		out.ProgressionPercent, out.ProgressionLabel = percentChange(out.LastWeight, first)
		return out
	})
}
