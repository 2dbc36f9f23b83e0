package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/claude/replift/internal/memo"
)

// Intensity buckets a calendar day's volume.
type Intensity string

const (
	IntensityNone   Intensity = "none"
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
	IntensityFuture Intensity = "future"
)

// CalendarDay is one cell of the month heatmap.
type CalendarDay struct {
	Date      string    `json:"date"`
	Day       int       `json:"day"`
	Volume    float64   `json:"volume"`
	Sessions  int       `json:"sessions"`
	Intensity Intensity `json:"intensity"`
}

// CalendarMonth is the heatmap for one month. Weeks start on Monday; nil
// cells pad the first week.
type CalendarMonth struct {
	Year          int              `json:"year"`
	Month         int              `json:"month"`
	LeadingBlanks int              `json:"leading_blanks"`
	Days          []CalendarDay    `json:"days"`
	Weeks         [][]*CalendarDay `json:"weeks"`
	TotalVolume   float64          `json:"total_volume"`
	ActiveDays    int              `json:"active_days"`
	LowThreshold  float64          `json:"low_threshold"`
	HighThreshold float64          `json:"high_threshold"`
}

// Thresholds returns the 33rd and 66th percentile of the non-zero volumes,
// taken at index floor(n×0.33) and floor(n×0.66) of the ascending sort.
// ok is false when no volume is positive.
func Thresholds(volumes []float64) (low, high float64, ok bool) {
	var nonZero []float64
	for _, v := range volumes {
		if v > 0 {
			nonZero = append(nonZero, v)
		}
	}
	if len(nonZero) == 0 {
		return 0, 0, false
	}
	sort.Float64s(nonZero)
	n := float64(len(nonZero))
	return nonZero[int(n*0.33)], nonZero[int(n*0.66)], true
}

// Classify buckets a volume against the two thresholds. Boundary values
// fall into the lower bucket.
func Classify(volume, low, high float64) Intensity {
	switch {
	case volume <= 0:
		return IntensityNone
	case volume <= low:
		return IntensityLow
	case volume <= high:
		return IntensityMedium
	default:
		return IntensityHigh
	}
}

// Calendar builds the heatmap for the given month. Days after today are
// marked future and report no volume.
func (e *Engine) Calendar(year int, month time.Month, now time.Time) CalendarMonth {
	first := time.Date(year, month, 1, 0, 0, 0, 0, e.loc)
	key := fmt.Sprintf("calendar:%d:%d:%s", first.Year(), int(first.Month()), e.bucket(now))
	return memo.Load(e.cache, key, func() CalendarMonth {
		return e.calendar(first, e.day(now))
	})
}

func (e *Engine) calendar(first, today time.Time) CalendarMonth {
	next := first.AddDate(0, 1, 0)
	volumes := make(map[int]float64)
	sessions := make(map[int]int)
	for _, s := range e.sessions() {
		d := e.day(s.Date)
		if d.Before(first) || !d.Before(next) {
			continue
		}
		volumes[d.Day()] += s.Volume()
		sessions[d.Day()]++
	}

	cal := CalendarMonth{
		Year:          first.Year(),
		Month:         int(first.Month()),
		LeadingBlanks: (int(first.Weekday()) + 6) % 7,
	}

	daysInMonth := next.AddDate(0, 0, -1).Day()
	var past []float64
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, e.loc)
		day := CalendarDay{Date: dayKey(date), Day: d}
		if date.After(today) {
			day.Intensity = IntensityFuture
		} else {
			day.Volume = volumes[d]
			day.Sessions = sessions[d]
			past = append(past, day.Volume)
			cal.TotalVolume += day.Volume
			if day.Sessions > 0 {
				cal.ActiveDays++
			}
		}
		cal.Days = append(cal.Days, day)
	}

	low, high, ok := Thresholds(past)
	if ok {
		cal.LowThreshold, cal.HighThreshold = low, high
	}
	for i := range cal.Days {
		if cal.Days[i].Intensity == IntensityFuture {
			continue
		}
		cal.Days[i].Intensity = Classify(cal.Days[i].Volume, low, high)
	}

	week := make([]*CalendarDay, cal.LeadingBlanks, 7)
	for i := range cal.Days {
		week = append(week, &cal.Days[i])
		if len(week) == 7 {
			cal.Weeks = append(cal.Weeks, week)
			week = make([]*CalendarDay, 0, 7)
		}
	}
	if len(week) > 0 {
		cal.Weeks = append(cal.Weeks, week)
	}
	return cal
}
