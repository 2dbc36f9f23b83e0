package tracker

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/claude/replift/internal/models"
)

// StartSession begins a session from a program template, replacing any
// session already in progress. Each exercise gets as many rows as the larger
// of its template and the last session logged with this program, at least
// one. Rows are prefilled with last time's values, falling back to the
// template's.
func (s *Service) StartSession(ctx context.Context, programID string, now time.Time) (*models.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sync(ctx)
	p, err := s.store.Program(programID)
	if err != nil {
		return nil, err
	}
	last, hasLast := s.store.LastSessionForProgram(programID)

	a := models.ActiveSession{
		ProgramID:   p.ID,
		ProgramName: p.Name,
		StartTime:   now,
		Exercises:   make([]models.ExerciseEntry, 0, len(p.Exercises)),
	}
	for _, tmpl := range p.Exercises {
		var ghost models.ExerciseEntry
		if hasLast {
			if i := slices.IndexFunc(last.Exercises, func(e models.ExerciseEntry) bool { return e.Name == tmpl.Name }); i >= 0 {
				ghost = last.Exercises[i]
				a.Ghost = append(a.Ghost, ghost)
			} else {
				a.Ghost = append(a.Ghost, models.ExerciseEntry{Name: tmpl.Name, Series: []models.Series{}})
			}
		}

		rows := max(len(tmpl.Series), len(ghost.Series), 1)
		entry := models.ExerciseEntry{Name: tmpl.Name, Series: make([]models.Series, rows)}
		for i := range rows {
			var row models.Series
			if i < len(tmpl.Series) {
				row = tmpl.Series[i]
			}
			if i < len(ghost.Series) {
				g := ghost.Series[i]
				if g.Weight != 0 {
					row.Weight = g.Weight
				}
				if g.Reps != 0 {
					row.Reps = g.Reps
				}
			}
			entry.Series[i] = row
		}
		a.Exercises = append(a.Exercises, entry)
	}

	err = s.store.SaveActiveSession(ctx, a)
	s.mutated("start_session", err)
	if err != nil {
		return nil, err
	}
	s.log.Info("session started", "program", p.Name, "ghost", hasLast)
	return &a, nil
}

// ActiveSession returns the session in progress.
func (s *Service) ActiveSession(ctx context.Context) (*models.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	a := s.store.ActiveSession()
	if a == nil {
		return nil, ErrNoActiveSession
	}
	return a, nil
}

// UpdateActiveSession replaces the exercises of the session in progress.
func (s *Service) UpdateActiveSession(ctx context.Context, exercises []models.ExerciseEntry) (*models.ActiveSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	a := s.store.ActiveSession()
	if a == nil {
		return nil, ErrNoActiveSession
	}
	a.Exercises = exercises
	if a.Exercises == nil {
		a.Exercises = []models.ExerciseEntry{}
	}
	err := s.store.SaveActiveSession(ctx, *a)
	s.mutated("update_session", err)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// FinishSession logs the session in progress dated now and clears it in the
// same write. Blank rows and exercises left without a set are dropped.
func (s *Service) FinishSession(ctx context.Context, now time.Time) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	a := s.store.ActiveSession()
	if a == nil {
		return models.Session{}, ErrNoActiveSession
	}
	exercises := models.NormalizeEntries(a.Exercises)
	if len(exercises) == 0 {
		return models.Session{}, ErrEmptySession
	}

	sess, err := s.store.FinishActiveSession(ctx, models.Session{
		Date:        now,
		ProgramID:   a.ProgramID,
		ProgramName: a.ProgramName,
		Exercises:   exercises,
	}, now)
	s.mutated("finish_session", err)
	if err != nil {
		return models.Session{}, fmt.Errorf("logging session: %w", err)
	}
	s.log.Info("session finished", "id", sess.ID, "program", sess.ProgramName, "exercises", len(sess.Exercises))
	return sess, nil
}

// DiscardActiveSession drops the session in progress.
func (s *Service) DiscardActiveSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sync(ctx)
	if s.store.ActiveSession() == nil {
		return ErrNoActiveSession
	}
	err := s.store.ClearActiveSession(ctx)
	s.mutated("discard_session", err)
	return err
}
