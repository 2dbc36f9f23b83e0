package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claude/replift/internal/models"
)

// memBlobs is an in-memory Blobs whose writes can be made to fail.
type memBlobs struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut bool
	puts    int
}

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, ErrNoDocument
	}
	return d, nil
}

func (m *memBlobs) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("disk full")
	}
	m.puts++
	m.data[key] = append([]byte(nil), data...)
	return nil
}

func (m *memBlobs) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memBlobs) Close() error { return nil }

type countingInvalidator struct{ n int }

func (c *countingInvalidator) InvalidateAll() { c.n++ }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var now = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

func openStore(t *testing.T, b Blobs) (*Store, *countingInvalidator) {
	t.Helper()
	inv := &countingInvalidator{}
	s, err := Open(context.Background(), b, "replift_data", inv, discardLogger())
	require.NoError(t, err)
	return s, inv
}

func squat(weight float64, reps int) models.ExerciseEntry {
	return models.ExerciseEntry{Name: "Squat", Series: []models.Series{{Weight: models.Number(weight), Reps: models.Number(reps)}}}
}

// TestOpenEmpty verifies that a missing document yields an empty log.
func TestOpenEmpty(t *testing.T) {
	s, _ := openStore(t, newMemBlobs())
	assert.Empty(t, s.Sessions())
	assert.Empty(t, s.Programs())
	assert.Nil(t, s.ActiveSession())
}

// TestOpenLegacyDocument verifies that a stored document with legacy keys is
// decoded and normalized on load.
func TestOpenLegacyDocument(t *testing.T) {
	b := newMemBlobs()
	b.data["replift_data"] = []byte(`{
		"programs": [{"id": "1", "nom": "Push", "exercices": [{"nom": "Dips", "series": 3}]}],
		"sessions": [
			{"id": "b", "date": "2024-03-05T10:00:00Z", "exercices": [{"nom": "Squat", "series": [{"poids": "100", "reps": 5}]}]},
			{"id": "a", "date": "2024-03-01T10:00:00Z", "exercices": [{"nom": "", "series": [{"poids": 1, "reps": 1}]}]}
		]
	}`)

	s, _ := openStore(t, b)
	sessions := s.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, "a", sessions[0].ID, "sorted by date")
	assert.Empty(t, sessions[0].Exercises)
	assert.Equal(t, 100.0, sessions[1].Exercises[0].Series[0].Weight.Float())

	p, err := s.Program("1")
	require.NoError(t, err)
	assert.Equal(t, "Push", p.Name)
	assert.Len(t, p.Exercises[0].Series, 3)
}

// TestOpenCorrupt verifies that an undecodable document is an error rather
// than silently discarded.
func TestOpenCorrupt(t *testing.T) {
	b := newMemBlobs()
	b.data["replift_data"] = []byte(`not json`)
	_, err := Open(context.Background(), b, "replift_data", &countingInvalidator{}, discardLogger())
	assert.Error(t, err)
}

// TestAddSession verifies id generation, program name resolution,
// persistence and synchronous invalidation.
func TestAddSession(t *testing.T) {
	b := newMemBlobs()
	s, inv := openStore(t, b)

	prog, err := s.AddProgram(context.Background(), models.Program{Name: "Legs"}, now)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.n)

	sess, err := s.AddSession(context.Background(), models.Session{
		ProgramID: prog.ID,
		Exercises: []models.ExerciseEntry{squat(100, 5), {Name: "Lunge", Series: []models.Series{{}}}},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, 2, inv.n)

	id, err := uuid.Parse(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, "Legs", sess.ProgramName)
	assert.True(t, sess.Date.Equal(now))
	assert.Len(t, sess.Exercises, 1, "blank sets are dropped")

	var stored models.Document
	require.NoError(t, json.Unmarshal(b.data["replift_data"], &stored))
	assert.Equal(t, models.DocumentVersion, stored.Version)
	require.Len(t, stored.Sessions, 1)
	assert.Equal(t, sess.ID, stored.Sessions[0].ID)
}

// TestAddSessionUnknownProgram verifies the fallback program name.
func TestAddSessionUnknownProgram(t *testing.T) {
	s, _ := openStore(t, newMemBlobs())
	sess, err := s.AddSession(context.Background(), models.Session{ProgramID: "gone", Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
	require.NoError(t, err)
	assert.Equal(t, UnknownProgram, sess.ProgramName)
}

// TestFailedWriteLeavesStateUntouched verifies that a failed persist neither
// changes the in-memory document nor invalidates the cache.
func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	b := newMemBlobs()
	s, inv := openStore(t, b)
	_, err := s.AddSession(context.Background(), models.Session{Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
	require.NoError(t, err)
	invalidations := inv.n

	b.failPut = true
	_, err = s.AddSession(context.Background(), models.Session{Exercises: []models.ExerciseEntry{squat(120, 5)}}, now)
	require.Error(t, err)

	assert.Len(t, s.Sessions(), 1)
	assert.Equal(t, invalidations, inv.n)
}

// TestDeleteSession verifies removal and the not-found sentinel.
func TestDeleteSession(t *testing.T) {
	s, inv := openStore(t, newMemBlobs())
	sess, err := s.AddSession(context.Background(), models.Session{Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
	require.NoError(t, err)

	require.NoError(t, s.DeleteSession(context.Background(), sess.ID))
	assert.Empty(t, s.Sessions())
	assert.Equal(t, 2, inv.n)

	err = s.DeleteSession(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, inv.n)

	_, err = s.Session(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestUpdateProgramKeepsIdentity verifies that id and creation time survive
// an update and that deleting a program leaves its sessions alone.
func TestUpdateProgramKeepsIdentity(t *testing.T) {
	s, _ := openStore(t, newMemBlobs())
	ctx := context.Background()

	p, err := s.AddProgram(ctx, models.Program{Name: "Push"}, now)
	require.NoError(t, err)
	_, err = s.AddSession(ctx, models.Session{ProgramID: p.ID, Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
	require.NoError(t, err)

	updated, err := s.UpdateProgram(ctx, p.ID, models.Program{ID: "other", Name: "Push A", CreatedAt: now.AddDate(1, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, p.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(now))
	assert.Equal(t, "Push A", updated.Name)

	_, err = s.UpdateProgram(ctx, "missing", models.Program{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteProgram(ctx, p.ID))
	assert.Empty(t, s.Programs())
	require.Len(t, s.Sessions(), 1)
	assert.Equal(t, "Push", s.Sessions()[0].ProgramName)
}

// TestLastSessionForProgram verifies that the latest session by date wins.
func TestLastSessionForProgram(t *testing.T) {
	s, _ := openStore(t, newMemBlobs())
	ctx := context.Background()
	for _, d := range []time.Time{now.AddDate(0, 0, -2), now, now.AddDate(0, 0, -7)} {
		_, err := s.AddSession(ctx, models.Session{ID: d.Format(time.DateOnly), Date: d, ProgramID: "p1", Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
		require.NoError(t, err)
	}

	last, ok := s.LastSessionForProgram("p1")
	require.True(t, ok)
	assert.Equal(t, "2024-03-13", last.ID)

	_, ok = s.LastSessionForProgram("p2")
	assert.False(t, ok)
}

// TestNonAnalyticWritesDoNotInvalidate verifies that active-session,
// achievement and profile writes persist without flushing the cache.
func TestNonAnalyticWritesDoNotInvalidate(t *testing.T) {
	b := newMemBlobs()
	s, inv := openStore(t, b)
	ctx := context.Background()

	require.NoError(t, s.SaveActiveSession(ctx, models.ActiveSession{ProgramID: "p1", StartTime: now}))
	require.NoError(t, s.SaveAchievements(ctx, models.AchievementState{Recent: []string{"first_session"}, Seen: []string{"first_session"}}))
	require.NoError(t, s.SaveUser(ctx, models.User{Name: "Sam"}))
	assert.Zero(t, inv.n)

	reopened, _ := openStore(t, b)
	require.NotNil(t, reopened.ActiveSession())
	assert.Equal(t, "p1", reopened.ActiveSession().ProgramID)
	assert.Equal(t, []string{"first_session"}, reopened.Achievements().Recent)
	assert.Equal(t, "Sam", reopened.User().Name)

	require.NoError(t, s.ClearActiveSession(ctx))
	assert.Nil(t, s.ActiveSession())
	assert.Zero(t, inv.n)
}

// TestImportAndReset verifies whole-document replacement and clearing.
func TestImportAndReset(t *testing.T) {
	b := newMemBlobs()
	s, inv := openStore(t, b)
	ctx := context.Background()

	doc := models.NewDocument()
	doc.Sessions = []models.Session{
		{ID: "2", Date: now, Exercises: []models.ExerciseEntry{squat(100, 5)}},
		{ID: "1", Date: now.AddDate(0, 0, -1), Exercises: []models.ExerciseEntry{squat(90, 5)}},
	}
	require.NoError(t, s.Import(ctx, doc))
	assert.Equal(t, 1, inv.n)
	require.Len(t, s.Sessions(), 2)
	assert.Equal(t, "1", s.Sessions()[0].ID)

	doc.Sessions[0].ID = "mutated"
	assert.NotEqual(t, "mutated", s.Sessions()[1].ID, "import copies its input")

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, 2, inv.n)
	assert.Empty(t, s.Sessions())
	_, err := b.Get(ctx, "replift_data")
	assert.ErrorIs(t, err, ErrNoDocument)
}

// TestSnapshotsAreCopies verifies that callers cannot mutate the stored log.
func TestSnapshotsAreCopies(t *testing.T) {
	s, _ := openStore(t, newMemBlobs())
	_, err := s.AddSession(context.Background(), models.Session{Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
	require.NoError(t, err)

	snap := s.Sessions()
	snap[0].Exercises[0].Series[0].Weight = 999
	assert.Equal(t, 100.0, s.Sessions()[0].Exercises[0].Series[0].Weight.Float())

	exported := s.Export()
	exported.Sessions = nil
	assert.Len(t, s.Sessions(), 1)
}

// TestRefreshPicksUpForeignWrite verifies that a store sharing a key with
// another writer reloads on a newer revision, flushes its cache, and builds
// its own writes on the reloaded document.
func TestRefreshPicksUpForeignWrite(t *testing.T) {
	b := newMemBlobs()
	ctx := context.Background()
	first, _ := openStore(t, b)
	second, inv := openStore(t, b)

	_, err := first.AddSession(ctx, models.Session{ID: "a", Exercises: []models.ExerciseEntry{squat(100, 5)}}, now)
	require.NoError(t, err)

	changed, err := second.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, inv.n)
	assert.Len(t, second.Sessions(), 1)

	changed, err = second.Refresh(ctx)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, inv.n)

	_, err = first.AddSession(ctx, models.Session{ID: "b", Exercises: []models.ExerciseEntry{squat(110, 5)}}, now)
	require.NoError(t, err)
	require.NoError(t, second.SaveAchievements(ctx, models.AchievementState{Recent: []string{"first_session"}, Seen: []string{"first_session"}}))

	reopened, _ := openStore(t, b)
	assert.Len(t, reopened.Sessions(), 2)
	assert.Equal(t, []string{"first_session"}, reopened.Achievements().Recent)

	require.NoError(t, first.Reset(ctx))
	changed, err = second.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Empty(t, second.Sessions())
}
