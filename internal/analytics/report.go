package analytics

import "time"

// Overview is the dashboard headline.
type Overview struct {
	TotalSessions     int        `json:"total_sessions"`
	SessionsThisMonth int        `json:"sessions_this_month"`
	DailyStreak       int        `json:"daily_streak"`
	WeeklyStreak      int        `json:"weekly_streak"`
	TotalVolume       float64    `json:"total_volume"`
	MaxWeight         float64    `json:"max_weight"`
	BestExercise      string     `json:"best_exercise"`
	LastSession       *time.Time `json:"last_session,omitempty"`
	Week              WeekStats  `json:"week"`
}

// Overview assembles the dashboard headline.
func (e *Engine) Overview(now time.Time) Overview {
	o := Overview{
		TotalSessions:     e.TotalSessions(),
		SessionsThisMonth: e.SessionsThisMonth(now),
		DailyStreak:       e.DailyStreak(now),
		WeeklyStreak:      e.WeeklyStreak(now),
		TotalVolume:       e.TotalVolume(),
		MaxWeight:         e.MaxWeight(),
		BestExercise:      e.BestExercise(),
		Week:              e.WeekStats(now),
	}
	if last, ok := e.LastSessionDate(); ok {
		o.LastSession = &last
	}
	return o
}

// Summary is the full statistics page.
type Summary struct {
	TotalSessions     int              `json:"total_sessions"`
	TotalReps         int              `json:"total_reps"`
	TotalVolume       float64          `json:"total_volume"`
	AverageVolume     float64          `json:"average_volume"`
	AverageIntensity  float64          `json:"average_intensity"`
	UniqueExercises   int              `json:"unique_exercises"`
	PersonalRecords   []PersonalRecord `json:"personal_records"`
	Favorites         []ExerciseCount  `json:"favorites"`
	VolumeProgression PeriodComparison `json:"volume_progression"`
	Month             MonthComparison  `json:"month"`
	Balance           MuscleBalance    `json:"balance"`
	Progression       ProgressionRate  `json:"progression"`
}

// Summary assembles the statistics page.
func (e *Engine) Summary(now time.Time) Summary {
	return Summary{
		TotalSessions:     e.TotalSessions(),
		TotalReps:         e.TotalReps(),
		TotalVolume:       e.TotalVolume(),
		AverageVolume:     e.AverageVolumePerSession(),
		AverageIntensity:  e.AverageIntensity(),
		UniqueExercises:   e.UniqueExercises(),
		PersonalRecords:   e.TopRecords(),
		Favorites:         e.FavoriteExercises(DefaultTop),
		VolumeProgression: e.VolumeProgression(now),
		Month:             e.MonthComparison(now),
		Balance:           e.MuscleBalance(),
		Progression:       e.ProgressionRate(now),
	}
}
