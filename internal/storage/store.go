package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/claude/replift/internal/models"
)

// UnknownProgram is the program name recorded for a session whose program
// cannot be resolved.
const UnknownProgram = "Inconnu"

// errUnchanged aborts an update that has nothing to write.
var errUnchanged = errors.New("unchanged")

// Invalidator is notified after every successful analytic mutation.
type Invalidator interface {
	InvalidateAll()
}

// Store owns the decoded training document. Every mutation persists the new
// document first; only when the write succeeds is the in-memory copy swapped
// and the invalidator called, before the mutation returns.
//
// Several processes may open a Store on the same key. Each write stamps a
// fresh revision, and Refresh reloads the document when the stored revision
// differs from the one held in memory. Mutations refresh before applying, so
// they build on the latest stored document rather than overwrite it.
//
// Store is not safe for concurrent use; callers serialize access.
type Store struct {
	blobs   Blobs
	key     string
	inv     Invalidator
	log     *slog.Logger
	doc     *models.Document
	present bool // a document is stored under key
}

// Open loads the document stored under key, or starts from an empty one when
// nothing is stored yet.
func Open(ctx context.Context, blobs Blobs, key string, inv Invalidator, log *slog.Logger) (*Store, error) {
	s := &Store{blobs: blobs, key: key, inv: inv, log: log}

	data, err := blobs.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNoDocument):
		s.doc = models.NewDocument()
		log.Info("no stored document, starting empty", "key", key)
	case err != nil:
		return nil, fmt.Errorf("loading document: %w", err)
	default:
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		s.doc = doc
		s.present = true
		log.Info("document loaded", "key", key, "sessions", len(doc.Sessions), "programs", len(doc.Programs))
	}
	return s, nil
}

func decodeDocument(data []byte) (*models.Document, error) {
	doc := models.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decoding stored document: %w", err)
	}
	doc.Normalize()
	return doc, nil
}

// Refresh reloads the document when another writer has changed it in
// storage, and reports whether it did. A reload flushes the invalidator.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	data, err := s.blobs.Get(ctx, s.key)
	switch {
	case errors.Is(err, ErrNoDocument):
		if !s.present {
			return false, nil
		}
		s.doc = models.NewDocument()
		s.present = false
	case err != nil:
		return false, fmt.Errorf("loading document: %w", err)
	default:
		var head struct {
			Revision string `json:"revision"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return false, fmt.Errorf("decoding stored document: %w", err)
		}
		if s.present && head.Revision == s.doc.Revision {
			return false, nil
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return false, err
		}
		s.doc = doc
		s.present = true
	}
	s.inv.InvalidateAll()
	s.log.Info("document changed in storage, reloaded", "key", s.key, "sessions", len(s.doc.Sessions))
	return true, nil
}

// update refreshes the document, applies fn to a copy and persists it under a
// new revision. On success the copy becomes current and, when analytic is
// set, the cache is flushed. When fn returns errUnchanged nothing is written.
func (s *Store) update(ctx context.Context, analytic bool, fn func(next *models.Document) error) error {
	if _, err := s.Refresh(ctx); err != nil {
		return err
	}
	next := s.doc.Clone()
	if err := fn(next); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}

	rev, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating revision: %w", err)
	}
	next.Version = models.DocumentVersion
	next.Revision = rev.String()
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := s.blobs.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	s.doc = next
	s.present = true
	if analytic {
		s.inv.InvalidateAll()
	}
	return nil
}

// Sessions returns a copy of the session log in date order.
func (s *Store) Sessions() []models.Session {
	out := make([]models.Session, len(s.doc.Sessions))
	for i, sess := range s.doc.Sessions {
		out[i] = sess.Clone()
	}
	return out
}

// SessionCount returns the number of logged sessions.
func (s *Store) SessionCount() int {
	return len(s.doc.Sessions)
}

// Programs returns a copy of the programs in creation order.
func (s *Store) Programs() []models.Program {
	out := make([]models.Program, len(s.doc.Programs))
	for i, p := range s.doc.Programs {
		out[i] = p.Clone()
	}
	return out
}

// Session returns the session with the given id.
func (s *Store) Session(id string) (models.Session, error) {
	for _, sess := range s.doc.Sessions {
		if sess.ID == id {
			return sess.Clone(), nil
		}
	}
	return models.Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
}

// Program returns the program with the given id.
func (s *Store) Program(id string) (models.Program, error) {
	for _, p := range s.doc.Programs {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return models.Program{}, fmt.Errorf("program %s: %w", id, ErrNotFound)
}

// LastSessionForProgram returns the most recent session logged for the
// program.
func (s *Store) LastSessionForProgram(programID string) (models.Session, bool) {
	for i := len(s.doc.Sessions) - 1; i >= 0; i-- {
		if s.doc.Sessions[i].ProgramID == programID {
			return s.doc.Sessions[i].Clone(), true
		}
	}
	return models.Session{}, false
}

// ActiveSession returns the in-progress session, or nil.
func (s *Store) ActiveSession() *models.ActiveSession {
	if s.doc.ActiveSession == nil {
		return nil
	}
	a := s.doc.ActiveSession.Clone()
	return &a
}

// User returns the profile settings.
func (s *Store) User() models.User {
	return s.doc.User
}

// Achievements returns the persisted achievement state.
func (s *Store) Achievements() models.AchievementState {
	return models.AchievementState{
		Recent: slices.Clone(s.doc.Achievements.Recent),
		Seen:   slices.Clone(s.doc.Achievements.Seen),
	}
}

// Export returns a deep copy of the whole document.
func (s *Store) Export() *models.Document {
	return s.doc.Clone()
}

// complete fills what a new session may leave out: a missing id is
// generated, a zero date becomes now and a missing program name is resolved
// from doc's programs or set to UnknownProgram.
func complete(doc *models.Document, sess models.Session, now time.Time) (models.Session, error) {
	if sess.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return models.Session{}, fmt.Errorf("generating session id: %w", err)
		}
		sess.ID = id.String()
	}
	if sess.Date.IsZero() {
		sess.Date = now
	}
	if sess.ProgramName == "" {
		sess.ProgramName = UnknownProgram
		if i := slices.IndexFunc(doc.Programs, func(p models.Program) bool { return p.ID == sess.ProgramID }); i >= 0 && doc.Programs[i].Name != "" {
			sess.ProgramName = doc.Programs[i].Name
		}
	}
	sess.Exercises = models.NormalizeEntries(sess.Exercises)
	return sess, nil
}

// appendSessions completes each session, appends it to doc and keeps the
// log in date order.
func appendSessions(doc *models.Document, sessions []models.Session, now time.Time) ([]models.Session, error) {
	added := make([]models.Session, 0, len(sessions))
	for _, sess := range sessions {
		sess, err := complete(doc, sess, now)
		if err != nil {
			return nil, err
		}
		added = append(added, sess)
		doc.Sessions = append(doc.Sessions, sess.Clone())
	}
	sort.SliceStable(doc.Sessions, func(i, j int) bool {
		return doc.Sessions[i].Date.Before(doc.Sessions[j].Date)
	})
	return added, nil
}

// AddSession appends a session to the log. A missing id is generated, a zero
// date becomes now and a missing program name is resolved from the program
// list or set to UnknownProgram.
func (s *Store) AddSession(ctx context.Context, sess models.Session, now time.Time) (models.Session, error) {
	added, err := s.AddSessions(ctx, []models.Session{sess}, now)
	if err != nil {
		return models.Session{}, err
	}
	return added[0], nil
}

// AddSessions appends several sessions with a single write and a single
// invalidation. Each session is completed as in AddSession.
func (s *Store) AddSessions(ctx context.Context, sessions []models.Session, now time.Time) ([]models.Session, error) {
	if len(sessions) == 0 {
		return []models.Session{}, nil
	}
	var added []models.Session
	err := s.update(ctx, true, func(next *models.Document) error {
		var err error
		added, err = appendSessions(next, sessions, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("sessions added", "count", len(added))
	return added, nil
}

// FinishActiveSession logs sess and clears the in-progress session in a
// single write.
func (s *Store) FinishActiveSession(ctx context.Context, sess models.Session, now time.Time) (models.Session, error) {
	var added []models.Session
	err := s.update(ctx, true, func(next *models.Document) error {
		if next.ActiveSession == nil {
			return fmt.Errorf("active session: %w", ErrNotFound)
		}
		var err error
		added, err = appendSessions(next, []models.Session{sess}, now)
		next.ActiveSession = nil
		return err
	})
	if err != nil {
		return models.Session{}, err
	}
	return added[0], nil
}

// DeleteSession removes a session from the log.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.update(ctx, true, func(next *models.Document) error {
		before := len(next.Sessions)
		next.Sessions = slices.DeleteFunc(next.Sessions, func(sess models.Session) bool { return sess.ID == id })
		if len(next.Sessions) == before {
			return fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// AddProgram stores a new program template.
func (s *Store) AddProgram(ctx context.Context, p models.Program, now time.Time) (models.Program, error) {
	if p.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return models.Program{}, fmt.Errorf("generating program id: %w", err)
		}
		p.ID = id.String()
	}
	p.CreatedAt = now
	if p.Exercises == nil {
		p.Exercises = []models.TemplateExercise{}
	}

	err := s.update(ctx, true, func(next *models.Document) error {
		next.Programs = append(next.Programs, p.Clone())
		return nil
	})
	if err != nil {
		return models.Program{}, err
	}
	return p, nil
}

// UpdateProgram replaces a program's name and exercises. Its id and creation
// time are kept.
func (s *Store) UpdateProgram(ctx context.Context, id string, p models.Program) (models.Program, error) {
	if p.Exercises == nil {
		p.Exercises = []models.TemplateExercise{}
	}
	err := s.update(ctx, true, func(next *models.Document) error {
		idx := slices.IndexFunc(next.Programs, func(q models.Program) bool { return q.ID == id })
		if idx < 0 {
			return fmt.Errorf("program %s: %w", id, ErrNotFound)
		}
		p.ID = id
		p.CreatedAt = next.Programs[idx].CreatedAt
		next.Programs[idx] = p.Clone()
		return nil
	})
	if err != nil {
		return models.Program{}, err
	}
	return p, nil
}

// DeleteProgram removes a program template. Sessions logged with it keep
// their program id and name.
func (s *Store) DeleteProgram(ctx context.Context, id string) error {
	return s.update(ctx, true, func(next *models.Document) error {
		before := len(next.Programs)
		next.Programs = slices.DeleteFunc(next.Programs, func(p models.Program) bool { return p.ID == id })
		if len(next.Programs) == before {
			return fmt.Errorf("program %s: %w", id, ErrNotFound)
		}
		return nil
	})
}

// Import replaces the whole document.
func (s *Store) Import(ctx context.Context, doc *models.Document) error {
	err := s.update(ctx, true, func(next *models.Document) error {
		*next = *doc.Clone()
		next.Normalize()
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("document imported", "sessions", len(s.doc.Sessions), "programs", len(s.doc.Programs))
	return nil
}

// Reset deletes the stored document and starts over empty.
func (s *Store) Reset(ctx context.Context) error {
	if err := s.blobs.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("resetting document: %w", err)
	}
	s.doc = models.NewDocument()
	s.present = false
	s.inv.InvalidateAll()
	s.log.Info("document reset", "key", s.key)
	return nil
}

// SaveActiveSession stores the in-progress session.
func (s *Store) SaveActiveSession(ctx context.Context, a models.ActiveSession) error {
	return s.update(ctx, false, func(next *models.Document) error {
		a := a.Clone()
		next.ActiveSession = &a
		return nil
	})
}

// ClearActiveSession removes the in-progress session.
func (s *Store) ClearActiveSession(ctx context.Context) error {
	return s.update(ctx, false, func(next *models.Document) error {
		if next.ActiveSession == nil {
			return errUnchanged
		}
		next.ActiveSession = nil
		return nil
	})
}

// SaveAchievements stores the achievement state.
func (s *Store) SaveAchievements(ctx context.Context, state models.AchievementState) error {
	return s.update(ctx, false, func(next *models.Document) error {
		next.Achievements = state
		return nil
	})
}

// SaveUser stores the profile settings.
func (s *Store) SaveUser(ctx context.Context, u models.User) error {
	return s.update(ctx, false, func(next *models.Document) error {
		next.User = u
		return nil
	})
}
