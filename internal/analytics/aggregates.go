package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/claude/replift/internal/memo"
)

// DefaultTop is the length of the records and favorites rankings.
const DefaultTop = 5

// Totals are whole-log reductions.
type Totals struct {
	Sessions        int     `json:"sessions"`
	Reps            int     `json:"reps"`
	Volume          float64 `json:"volume"`
	UniqueExercises int     `json:"unique_exercises"`
	MaxWeight       float64 `json:"max_weight"`
}

func (e *Engine) totals() Totals {
	return memo.Load(e.cache, keyTotals, func() Totals {
		var t Totals
		names := make(map[string]struct{})
		for _, s := range e.sessions() {
			t.Sessions++
			for _, ex := range s.Exercises {
				if ex.Name != "" {
					names[ex.Name] = struct{}{}
				}
				for _, sr := range ex.Series {
					t.Reps += sr.Reps.Int()
					t.Volume += sr.Volume()
					if w := sr.Weight.Float(); w > t.MaxWeight {
						t.MaxWeight = w
					}
				}
			}
		}
		t.UniqueExercises = len(names)
		return t
	})
}

// TotalSessions returns the number of logged sessions.
func (e *Engine) TotalSessions() int { return e.totals().Sessions }

// TotalReps returns the number of reps over every set.
func (e *Engine) TotalReps() int { return e.totals().Reps }

// TotalVolume returns Σ weight × reps over every set.
func (e *Engine) TotalVolume() float64 { return e.totals().Volume }

// UniqueExercises counts distinct exercise names, compared exactly.
func (e *Engine) UniqueExercises() int { return e.totals().UniqueExercises }

// MaxWeight returns the heaviest single set ever logged.
func (e *Engine) MaxWeight() float64 { return e.totals().MaxWeight }

// AverageVolumePerSession returns total volume over session count, rounded
// to the nearest kilogram; 0 with no sessions.
func (e *Engine) AverageVolumePerSession() float64 {
	t := e.totals()
	if t.Sessions == 0 {
		return 0
	}
	return math.Round(t.Volume / float64(t.Sessions))
}

// AverageIntensity returns the rep-weighted mean load, Σ(w×r)/Σr; 0 with no
// reps.
func (e *Engine) AverageIntensity() float64 {
	t := e.totals()
	if t.Reps == 0 {
		return 0
	}
	return t.Volume / float64(t.Reps)
}

// PersonalRecord is the heaviest set logged for an exercise.
type PersonalRecord struct {
	Exercise string    `json:"exercise"`
	Weight   float64   `json:"weight"`
	Date     time.Time `json:"date"`
}

func (e *Engine) records() []PersonalRecord {
	return memo.Load(e.cache, keyRecords, func() []PersonalRecord {
		index := make(map[string]int)
		var out []PersonalRecord
		for _, s := range e.sessions() {
			for _, ex := range s.Exercises {
				w := ex.MaxWeight()
				if ex.Name == "" || w <= 0 {
					continue
				}
				i, ok := index[ex.Name]
				if !ok {
					index[ex.Name] = len(out)
					out = append(out, PersonalRecord{Exercise: ex.Name, Weight: w, Date: s.Date})
					continue
				}
				r := &out[i]
				if w > r.Weight || (w == r.Weight && s.Date.Before(r.Date)) {
					r.Weight = w
					r.Date = s.Date
				}
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
		return out
	})
}

// PersonalRecords returns per-exercise maxima, heaviest first. Equal weights
// keep the earliest date. limit <= 0 returns every record.
func (e *Engine) PersonalRecords(limit int) []PersonalRecord {
	return head(e.records(), limit)
}

// TopRecords returns the five heaviest personal records.
func (e *Engine) TopRecords() []PersonalRecord {
	return e.PersonalRecords(DefaultTop)
}

// ExerciseCount is the number of sessions featuring an exercise.
type ExerciseCount struct {
	Exercise string `json:"exercise"`
	Sessions int    `json:"sessions"`
}

func (e *Engine) frequency() []ExerciseCount {
	return memo.Load(e.cache, keyFrequency, func() []ExerciseCount {
		index := make(map[string]int)
		var out []ExerciseCount
		for _, s := range e.sessions() {
			seen := make(map[string]struct{}, len(s.Exercises))
			for _, ex := range s.Exercises {
				if ex.Name == "" {
					continue
				}
				if _, dup := seen[ex.Name]; dup {
					continue
				}
				seen[ex.Name] = struct{}{}
				i, ok := index[ex.Name]
				if !ok {
					index[ex.Name] = len(out)
					out = append(out, ExerciseCount{Exercise: ex.Name})
					i = len(out) - 1
				}
				out[i].Sessions++
			}
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Sessions > out[j].Sessions })
		return out
	})
}

// FavoriteExercises ranks exercises by the number of sessions they appear
// in. Ties keep first-appearance order. limit <= 0 returns every exercise.
func (e *Engine) FavoriteExercises(limit int) []ExerciseCount {
	return head(e.frequency(), limit)
}

// BestExercise returns the most frequently trained exercise, or "".
func (e *Engine) BestExercise() string {
	f := e.frequency()
	if len(f) == 0 {
		return ""
	}
	return f[0].Exercise
}

// LastSessionDate returns the date of the most recent session.
func (e *Engine) LastSessionDate() (time.Time, bool) {
	var last time.Time
	found := false
	for _, s := range e.sessions() {
		if !found || s.Date.After(last) {
			last = s.Date
			found = true
		}
	}
	return last, found
}

// head returns a copy of the first n items, or all of them when n <= 0.
func head[T any](items []T, n int) []T {
	if n <= 0 || n > len(items) {
		n = len(items)
	}
	return append(make([]T, 0, n), items[:n]...)
}
