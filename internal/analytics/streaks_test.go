package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/claude/replift/internal/memo"
	"github.com/claude/replift/internal/models"
)

func sessionsOn(days ...time.Time) []models.Session {
	out := make([]models.Session, 0, len(days))
	for _, d := range days {
		out = append(out, sess(d, ex("Squat", set(100, 5))))
	}
	return out
}

// TestDailyStreak verifies streak continuity, including the grace period when
// nothing has been logged yet today.
func TestDailyStreak(t *testing.T) {
	today := now
	day := func(offset int) time.Time { return today.AddDate(0, 0, -offset) }

	tests := []struct {
		name string
		days []time.Time
		want int
	}{
		{"empty", nil, 0},
		{"three consecutive ending today", []time.Time{day(0), day(1), day(2)}, 3},
		{"gap yesterday", []time.Time{day(0), day(2)}, 1},
		{"yesterday only", []time.Time{day(1)}, 1},
		{"broken two days ago", []time.Time{day(2), day(3)}, 0},
		{"several sessions on one day", []time.Time{day(0), day(0).Add(-2 * time.Hour), day(1)}, 2},
		{"older run ignored", []time.Time{day(12), day(13), day(14)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newEngine(sessionsOn(tt.days...)...)
			assert.Equal(t, tt.want, e.DailyStreak(today))
		})
	}
}

// TestDailyStreakMonthBoundary verifies counting across the end of February
// in a leap year.
func TestDailyStreakMonthBoundary(t *testing.T) {
	e, _, _ := newEngine(sessionsOn(at(2024, 2, 28), at(2024, 2, 29), at(2024, 3, 1), at(2024, 3, 2))...)
	assert.Equal(t, 4, e.DailyStreak(at(2024, 3, 2)))
	assert.Equal(t, 4, e.DailyStreak(at(2024, 3, 3)), "anchored on yesterday")
	assert.Equal(t, 0, e.DailyStreak(at(2024, 3, 4)))
}

// TestDailyStreakUsesLocalDays verifies that day boundaries follow the
// engine's location rather than UTC.
func TestDailyStreakUsesLocalDays(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	// 23:30 UTC on March 11 is already March 12 in Paris.
	log := &fakeLog{sessions: sessionsOn(
		time.Date(2024, 3, 11, 23, 30, 0, 0, time.UTC),
		time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC),
	)}
	e := New(log, memo.New(), paris)
	assert.Equal(t, 2, e.DailyStreak(now))
}

// TestWeeklyStreak verifies Monday-start week bucketing.
func TestWeeklyStreak(t *testing.T) {
	// now is Wednesday 2024-03-13; its week starts Monday 2024-03-11.
	tests := []struct {
		name string
		days []time.Time
		want int
	}{
		{"empty", nil, 0},
		{"three weeks any weekday", []time.Time{at(2024, 3, 11), at(2024, 3, 10), at(2024, 2, 26)}, 3},
		{"sunday belongs to the previous week", []time.Time{at(2024, 3, 12), at(2024, 3, 10)}, 2},
		{"gap week", []time.Time{at(2024, 3, 13), at(2024, 2, 28)}, 1},
		{"current week empty", []time.Time{at(2024, 3, 8), at(2024, 3, 1)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, _ := newEngine(sessionsOn(tt.days...)...)
			assert.Equal(t, tt.want, e.WeeklyStreak(now))
		})
	}
}

// TestStreakKeyedByDay verifies that a cached streak is not reused on the
// next calendar day even without any mutation.
func TestStreakKeyedByDay(t *testing.T) {
	e, _, _ := newEngine(sessionsOn(at(2024, 3, 12), at(2024, 3, 13))...)
	assert.Equal(t, 2, e.DailyStreak(now))
	assert.Equal(t, 2, e.DailyStreak(now.Add(3*time.Hour)), "same day")
	assert.Equal(t, 2, e.DailyStreak(now.AddDate(0, 0, 1)), "tomorrow anchors on today")
	assert.Equal(t, 0, e.DailyStreak(now.AddDate(0, 0, 2)))
}
