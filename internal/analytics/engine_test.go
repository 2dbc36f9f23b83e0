package analytics

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/replift/internal/memo"
	"github.com/claude/replift/internal/models"
)

// fakeLog is a LogSource that counts snapshot requests.
type fakeLog struct {
	sessions []models.Session
	calls    int
}

func (f *fakeLog) Sessions() []models.Session {
	f.calls++
	return slices.Clone(f.sessions)
}

func set(weight float64, reps int) models.Series {
	return models.Series{Weight: models.Number(weight), Reps: models.Number(reps)}
}

func ex(name string, sets ...models.Series) models.ExerciseEntry {
	return models.ExerciseEntry{Name: name, Series: sets}
}

// at returns 15:00 UTC on the given day.
func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 0, 0, 0, time.UTC)
}

func sess(date time.Time, entries ...models.ExerciseEntry) models.Session {
	return models.Session{ID: date.Format(time.RFC3339), Date: date, ProgramName: "Test", Exercises: entries}
}

func newEngine(sessions ...models.Session) (*Engine, *fakeLog, *memo.Cache) {
	log := &fakeLog{sessions: sessions}
	cache := memo.New()
	return New(log, cache, time.UTC), log, cache
}

// now is a Wednesday afternoon.
var now = at(2024, time.March, 13)

// TestTotals verifies whole-log reductions, including exact-match exercise
// name counting and the rounded per-session average.
func TestTotals(t *testing.T) {
	e, _, _ := newEngine(
		sess(at(2024, 3, 1), ex("Squat", set(100, 5), set(100, 5)), ex("Bench", set(60, 8))),
		sess(at(2024, 3, 3), ex("squat", set(50, 10)), ex("Dips", set(0, 12))),
	)

	assert.Equal(t, 2, e.TotalSessions())
	assert.Equal(t, 5+5+8+10+12, e.TotalReps())
	assert.Equal(t, 1000.0+480+500, e.TotalVolume())
	assert.Equal(t, 990.0, e.AverageVolumePerSession())
	assert.Equal(t, 4, e.UniqueExercises(), "names are case-sensitive")
	assert.Equal(t, 100.0, e.MaxWeight())
	assert.Equal(t, "Squat", e.BestExercise())
}

// TestEmptyLog verifies that every metric has a defined value without data.
func TestEmptyLog(t *testing.T) {
	e, _, _ := newEngine()

	assert.Zero(t, e.TotalSessions())
	assert.Zero(t, e.AverageVolumePerSession())
	assert.Zero(t, e.AverageIntensity())
	assert.Zero(t, e.DailyStreak(now))
	assert.Zero(t, e.WeeklyStreak(now))
	assert.Empty(t, e.TopRecords())
	assert.Empty(t, e.ExerciseEvolutions())
	assert.Equal(t, "-", e.VolumeProgression(now).Label)
	assert.Equal(t, BalanceUnknown, e.MuscleBalance().Label)
	assert.Zero(t, e.ProgressionRate(now).AveragePerMonth)

	_, ok := e.LastSessionDate()
	assert.False(t, ok)

	o := e.Overview(now)
	assert.Nil(t, o.LastSession)
}

// TestQueriesReadThroughCache verifies that repeated queries compute from a
// single log snapshot until the cache is invalidated.
func TestQueriesReadThroughCache(t *testing.T) {
	e, log, cache := newEngine(sess(at(2024, 3, 12), ex("Squat", set(100, 5))))

	for range 3 {
		e.Summary(now)
		e.Overview(now)
		e.Calendar(2024, time.March, now)
	}
	assert.Equal(t, 1, log.calls)

	cache.InvalidateAll()
	e.TotalVolume()
	assert.Equal(t, 2, log.calls)
}

// TestInvalidationReflectsNewSession verifies that a session with volume 500
// raises total volume by exactly 500 once the cache is invalidated.
func TestInvalidationReflectsNewSession(t *testing.T) {
	e, log, cache := newEngine(sess(at(2024, 3, 10), ex("Squat", set(100, 5))))
	before := e.TotalVolume()

	log.sessions = append(log.sessions, sess(at(2024, 3, 12), ex("Bench", set(50, 10))))
	cache.InvalidateAll()

	assert.Equal(t, before+500, e.TotalVolume())
	assert.Equal(t, 2, e.TotalSessions())
}

// TestPersonalRecordTieKeepsEarliest verifies that equal maxima keep the date
// of the earlier session, whatever the log order.
func TestPersonalRecordTieKeepsEarliest(t *testing.T) {
	early, late := at(2024, 2, 1), at(2024, 3, 1)

	for name, log := range map[string][]models.Session{
		"chronological": {sess(early, ex("Squat", set(100, 3))), sess(late, ex("Squat", set(100, 5)))},
		"reversed":      {sess(late, ex("Squat", set(100, 5))), sess(early, ex("Squat", set(100, 3)))},
	} {
		t.Run(name, func(t *testing.T) {
			e, _, _ := newEngine(log...)
			records := e.TopRecords()
			require.Len(t, records, 1)
			assert.Equal(t, 100.0, records[0].Weight)
			assert.True(t, records[0].Date.Equal(early), "got %v", records[0].Date)
		})
	}
}

// TestPersonalRecordsRanking verifies descending order and the top-five cut.
func TestPersonalRecordsRanking(t *testing.T) {
	e, _, _ := newEngine(
		sess(at(2024, 3, 1),
			ex("Curl", set(20, 10)),
			ex("Squat", set(140, 3), set(120, 5)),
			ex("Bench", set(100, 3)),
			ex("Row", set(80, 8)),
			ex("Press", set(60, 5)),
			ex("Deadlift", set(180, 1)),
			ex("Plank", set(0, 60)),
		),
		sess(at(2024, 3, 5), ex("Bench", set(105, 1))),
	)

	records := e.TopRecords()
	var names []string
	for _, r := range records {
		names = append(names, r.Exercise)
	}
	assert.Equal(t, []string{"Deadlift", "Squat", "Bench", "Row", "Press"}, names)
	assert.Equal(t, 105.0, records[2].Weight)
	assert.Len(t, e.PersonalRecords(0), 6, "bodyweight-only exercises hold no record")
}

// TestFavoriteExercises verifies ranking by sessions rather than sets, with
// ties kept in first-appearance order.
func TestFavoriteExercises(t *testing.T) {
	e, _, _ := newEngine(
		sess(at(2024, 3, 1), ex("Bench", set(60, 8), set(60, 8), set(60, 8), set(60, 8)), ex("Squat", set(100, 5))),
		sess(at(2024, 3, 3), ex("Squat", set(100, 5)), ex("Row", set(60, 8))),
		sess(at(2024, 3, 5), ex("Squat", set(100, 5)), ex("Squat", set(90, 5)), ex("Curl", set(15, 10))),
	)

	assert.Equal(t, []ExerciseCount{
		{"Squat", 3},
		{"Bench", 1},
		{"Row", 1},
		{"Curl", 1},
	}, e.FavoriteExercises(DefaultTop))
	assert.Len(t, e.FavoriteExercises(2), 2)
}

// TestAverageIntensity verifies the rep-weighted mean load.
func TestAverageIntensity(t *testing.T) {
	e, _, _ := newEngine(sess(at(2024, 3, 1), ex("Squat", set(100, 5)), ex("Lunge", set(50, 10))))
	assert.InDelta(t, 1000.0/15, e.AverageIntensity(), 1e-9)
}

// TestOverview verifies the dashboard bundle.
func TestOverview(t *testing.T) {
	e, _, _ := newEngine(
		sess(at(2024, 2, 27), ex("Squat", set(100, 5))),
		sess(at(2024, 3, 4), ex("Squat", set(100, 5))),
		sess(at(2024, 3, 12), ex("Squat", set(110, 5))),
		sess(at(2024, 3, 13), ex("Bench", set(80, 5))),
	)

	o := e.Overview(now)
	assert.Equal(t, 4, o.TotalSessions)
	assert.Equal(t, 3, o.SessionsThisMonth)
	assert.Equal(t, 2, o.DailyStreak)
	assert.Equal(t, 3, o.WeeklyStreak)
	assert.Equal(t, 110.0, o.MaxWeight)
	assert.Equal(t, "Squat", o.BestExercise)
	require.NotNil(t, o.LastSession)
	assert.True(t, o.LastSession.Equal(at(2024, 3, 13)))
	assert.Equal(t, WeekStats{ThisWeek: 2, LastWeek: 1, Change: 1}, o.Week)
}
