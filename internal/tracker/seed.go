package tracker

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/claude/replift/internal/models"
)

// seedExercise describes how one sample exercise progresses week over week.
// Bodyweight exercises progress in reps, the others in weight.
type seedExercise struct {
	name        string
	sets, reps  int
	startWeight float64
	progression float64 // kg per week
	bodyweight  bool
	startReps   float64
	repsProg    float64 // reps per week
}

var seedPrograms = []struct {
	name      string
	exercises []seedExercise
}{
	{"Push Day", []seedExercise{
		{name: "Développé Couché", sets: 3, reps: 8, startWeight: 60, progression: 1.0},
		{name: "Développé Incliné", sets: 3, reps: 10, startWeight: 45, progression: 0.8},
		{name: "Dips", sets: 2, reps: 12, bodyweight: true, startReps: 8, repsProg: 0.2},
	}},
	{"Pull Day", []seedExercise{
		{name: "Tractions", sets: 3, reps: 6, bodyweight: true, startReps: 4, repsProg: 0.15},
		{name: "Rowing Barre", sets: 3, reps: 8, startWeight: 50, progression: 0.7},
		{name: "Curl Biceps", sets: 2, reps: 10, startWeight: 15, progression: 0.4},
	}},
	{"Leg Day", []seedExercise{
		{name: "Squat", sets: 3, reps: 8, startWeight: 80, progression: 1.2},
		{name: "Soulevé de Terre", sets: 2, reps: 5, startWeight: 100, progression: 1.5},
		{name: "Leg Press", sets: 2, reps: 12, startWeight: 120, progression: 2.0},
	}},
}

const (
	seedWeeks      = 12
	seedDaySpacing = 2 // days between the sessions of one week
)

// SeedResult reports what Seed created.
type SeedResult struct {
	Programs int `json:"programs"`
	Sessions int `json:"sessions"`
}

// Seed replaces all data with three months of sample training: a push, pull
// and leg program, each run once a week for twelve weeks starting three
// months before now, with steady progression plus noise drawn from rnd.
func (s *Service) Seed(ctx context.Context, now time.Time, rnd *rand.Rand) (*SeedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.seed(ctx, now, rnd)
	s.mutated("seed", err)
	if err != nil {
		return nil, err
	}
	res := &SeedResult{Programs: len(seedPrograms), Sessions: s.store.SessionCount()}
	s.log.Info("sample data generated", "programs", res.Programs, "sessions", res.Sessions)
	return res, nil
}

func (s *Service) seed(ctx context.Context, now time.Time, rnd *rand.Rand) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}

	programs := make([]models.Program, len(seedPrograms))
	for i, def := range seedPrograms {
		p := models.Program{Name: def.name}
		for _, ex := range def.exercises {
			tmpl := models.TemplateExercise{Name: ex.name, Series: make([]models.Series, ex.sets)}
			for j := range tmpl.Series {
				tmpl.Series[j] = models.Series{Reps: models.Number(ex.reps)}
			}
			p.Exercises = append(p.Exercises, tmpl)
		}
		added, err := s.store.AddProgram(ctx, p, now)
		if err != nil {
			return fmt.Errorf("seeding program %s: %w", def.name, err)
		}
		programs[i] = added
	}

	start := now.AddDate(0, -3, 0)
	var sessions []models.Session
	for week := range seedWeeks {
		for day, def := range seedPrograms {
			sess := models.Session{
				Date:        start.AddDate(0, 0, week*7+day*seedDaySpacing),
				ProgramID:   programs[day].ID,
				ProgramName: programs[day].Name,
			}
			for _, ex := range def.exercises {
				entry := models.ExerciseEntry{Name: ex.name}
				for range ex.sets {
					entry.Series = append(entry.Series, ex.set(week, rnd))
				}
				sess.Exercises = append(sess.Exercises, entry)
			}
			sessions = append(sessions, sess)
		}
	}
	if _, err := s.store.AddSessions(ctx, sessions, now); err != nil {
		return fmt.Errorf("seeding sessions: %w", err)
	}
	return nil
}

// set draws one set for the given week. Weights are rounded to the nearest
// half kilogram and never drop below 5 kg.
func (ex seedExercise) set(week int, rnd *rand.Rand) models.Series {
	if ex.bodyweight {
		reps := math.Floor(ex.startReps + float64(week)*ex.repsProg + float64(rnd.IntN(2)))
		return models.Series{Reps: models.Number(max(1, reps))}
	}
	noise := (rnd.Float64() - 0.5) * 5
	weight := math.Round((ex.startWeight+float64(week)*ex.progression+noise)*2) / 2
	reps := ex.reps + rnd.IntN(3) - 1
	return models.Series{
		Weight: models.Number(max(5, weight)),
		Reps:   models.Number(max(1, reps)),
	}
}
