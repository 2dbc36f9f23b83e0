package analytics

import (
	"slices"
	"time"

	"github.com/claude/replift/internal/models"
)

// BadgeID identifies an achievement.
type BadgeID string

const (
	BadgeFirstSession BadgeID = "first_session"
	BadgeStreak7      BadgeID = "streak_7"
	BadgeVolume10k    BadgeID = "volume_10k"
	BadgeDiversity    BadgeID = "diversity_10"
	BadgeMarathon     BadgeID = "sessions_50"
	BadgeLegend       BadgeID = "volume_100k"
	BadgeReps1000     BadgeID = "reps_1000"
	BadgeWeekly4      BadgeID = "weekly_4"
	BadgeStreak30     BadgeID = "streak_30"
	BadgeCenturion    BadgeID = "sessions_100"
)

// RecentLimit bounds the recently-earned list.
const RecentLimit = 3

// Snapshot is the set of metrics achievement predicates are evaluated on.
type Snapshot struct {
	Sessions        int     `json:"sessions"`
	TotalVolume     float64 `json:"total_volume"`
	TotalReps       int     `json:"total_reps"`
	UniqueExercises int     `json:"unique_exercises"`
	DailyStreak     int     `json:"daily_streak"`
	WeeklyStreak    int     `json:"weekly_streak"`
}

// Badge is an achievement definition.
type Badge struct {
	ID          BadgeID
	Icon        string
	Title       string
	Description string
	Requirement string
	Earned      func(Snapshot) bool
}

// Badges is the ordered achievement table.
var Badges = []Badge{
	{BadgeFirstSession, "🎯", "Première Séance", "Commencer le voyage", "1 séance",
		func(s Snapshot) bool { return s.Sessions >= 1 }},
	{BadgeStreak7, "🔥", "Streak 7 jours", "Une semaine complète", "7 jours consécutifs",
		func(s Snapshot) bool { return s.DailyStreak >= 7 }},
	{BadgeVolume10k, "💪", "Volume Master", "10 000 kg soulevés", "10 000 kg",
		func(s Snapshot) bool { return s.TotalVolume >= 10_000 }},
	{BadgeDiversity, "🏆", "Diversité", "10 exercices différents", "10 exercices",
		func(s Snapshot) bool { return s.UniqueExercises >= 10 }},
	{BadgeMarathon, "⚡", "Marathon", "50 séances complétées", "50 séances",
		func(s Snapshot) bool { return s.Sessions >= 50 }},
	{BadgeLegend, "🥇", "Légende", "100 000 kg soulevés", "100 000 kg",
		func(s Snapshot) bool { return s.TotalVolume >= 100_000 }},
	{BadgeReps1000, "🔁", "Mille Reps", "1 000 répétitions au total", "1 000 reps",
		func(s Snapshot) bool { return s.TotalReps >= 1_000 }},
	{BadgeWeekly4, "📅", "Régularité", "4 semaines d'affilée", "4 semaines consécutives",
		func(s Snapshot) bool { return s.WeeklyStreak >= 4 }},
	{BadgeStreak30, "🌋", "Inarrêtable", "30 jours sans pause", "30 jours consécutifs",
		func(s Snapshot) bool { return s.DailyStreak >= 30 }},
	{BadgeCenturion, "👑", "Centurion", "100 séances complétées", "100 séances",
		func(s Snapshot) bool { return s.Sessions >= 100 }},
}

// Achievement is the evaluated state of one badge.
type Achievement struct {
	ID          BadgeID `json:"id"`
	Icon        string  `json:"icon"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Requirement string  `json:"requirement"`
	Earned      bool    `json:"earned"`
}

// Evaluate derives every badge from the snapshot, in table order.
func Evaluate(s Snapshot) []Achievement {
	out := make([]Achievement, len(Badges))
	for i, b := range Badges {
		out[i] = Achievement{
			ID:          b.ID,
			Icon:        b.Icon,
			Title:       b.Title,
			Description: b.Description,
			Requirement: b.Requirement,
			Earned:      b.Earned(s),
		}
	}
	return out
}

// EarnedIDs returns the ids of earned badges, in table order.
func EarnedIDs(list []Achievement) []BadgeID {
	var ids []BadgeID
	for _, a := range list {
		if a.Earned {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// Snapshot gathers the metrics the badge predicates need.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	t := e.totals()
	return Snapshot{
		Sessions:        t.Sessions,
		TotalVolume:     t.Volume,
		TotalReps:       t.Reps,
		UniqueExercises: t.UniqueExercises,
		DailyStreak:     e.DailyStreak(now),
		WeeklyStreak:    e.WeeklyStreak(now),
	}
}

// Achievements evaluates every badge against the current log.
func (e *Engine) Achievements(now time.Time) []Achievement {
	return Evaluate(e.Snapshot(now))
}

// RecentlyEarned diffs the earned badges against the persisted state. Badges
// never surfaced before are prepended to the recent list, which is then cut
// to RecentLimit entries. It returns the next state, the newly earned ids and
// whether anything changed. Applying it again to its own output with the same
// earned set reports no change.
func RecentlyEarned(earned []BadgeID, state models.AchievementState) (models.AchievementState, []BadgeID, bool) {
	seen := make(map[string]struct{}, len(state.Seen)+len(state.Recent))
	for _, id := range state.Seen {
		seen[id] = struct{}{}
	}
	for _, id := range state.Recent {
		seen[id] = struct{}{}
	}

	var fresh []BadgeID
	for _, id := range earned {
		if _, ok := seen[string(id)]; !ok {
			fresh = append(fresh, id)
			seen[string(id)] = struct{}{}
		}
	}
	if len(fresh) == 0 {
		return state, nil, false
	}

	recent := make([]string, 0, len(fresh)+len(state.Recent))
	for _, id := range fresh {
		recent = append(recent, string(id))
	}
	recent = append(recent, state.Recent...)
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}

	next := models.AchievementState{
		Recent: recent,
		Seen:   slices.Clone(state.Seen),
	}
	for _, id := range state.Recent {
		if !slices.Contains(next.Seen, id) {
			next.Seen = append(next.Seen, id)
		}
	}
	for _, id := range fresh {
		next.Seen = append(next.Seen, string(id))
	}
	return next, fresh, true
}

// BadgeByID returns the definition for id.
func BadgeByID(id BadgeID) (Badge, bool) {
	for _, b := range Badges {
		if b.ID == id {
			return b, true
		}
	}
	return Badge{}, false
}
