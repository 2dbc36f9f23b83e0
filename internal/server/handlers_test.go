package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/claude/replift/internal/analytics"
	"github.com/claude/replift/internal/memo"
	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/models"
	"github.com/claude/replift/internal/storage"
	"github.com/claude/replift/internal/tracker"
)

const testKey = "secret"

var testNow = time.Date(2024, 3, 13, 15, 0, 0, 0, time.UTC)

// newTestServer wires a server over a file-backed store in a temp dir.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	blobs, err := storage.NewFileBlobs(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlobs: %v", err)
	}
	return newTestServerOn(t, blobs)
}

func newTestServerOn(t *testing.T, blobs storage.Blobs) *Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewManager("replift", "test", reg)
	cache := memo.New(memo.WithObserver(m))
	store, err := storage.Open(context.Background(), blobs, "replift_data", cache, log)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	svc := tracker.New(store, analytics.New(store, cache, time.UTC), m, log)

	s := New(svc, m, reg, testKey, log)
	s.now = func() time.Time { return testNow }
	return s
}

func do(t *testing.T, s *Server, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if auth {
		req.Header.Set("X-API-Key", testKey)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rec.Body.String())
	}
	return v
}

// TestMutationsRequireKey verifies that writes are rejected without the API
// key while reads are open.
func TestMutationsRequireKey(t *testing.T) {
	s := newTestServer(t)

	if rec := do(t, s, http.MethodPost, "/api/v1/sessions", `{}`, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("POST without key = %d, want 401", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/reset", "", false); rec.Code != http.StatusUnauthorized {
		t.Errorf("reset without key = %d, want 401", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/overview", "", false); rec.Code != http.StatusOK {
		t.Errorf("GET overview = %d, want 200", rec.Code)
	}
}

// TestSessionLifecycle verifies adding, reading and deleting a session and
// that the overview follows.
func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/sessions",
		`{"date":"2024-03-13T10:00:00Z","programName":"Push","exercices":[{"nom":"Bench","series":[{"poids":"60","reps":8}]}]}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST session = %d: %s", rec.Code, rec.Body.String())
	}
	sess := decode[models.Session](t, rec)
	if sess.ID == "" {
		t.Fatal("session id not assigned")
	}

	o := decode[analytics.Overview](t, do(t, s, http.MethodGet, "/api/v1/overview", "", false))
	if o.TotalSessions != 1 || o.TotalVolume != 480 {
		t.Errorf("overview = %d sessions / %v volume, want 1 / 480", o.TotalSessions, o.TotalVolume)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+sess.ID, "", false); rec.Code != http.StatusOK {
		t.Errorf("GET session = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, "/api/v1/sessions/"+sess.ID, "", true); rec.Code != http.StatusNoContent {
		t.Errorf("DELETE session = %d, want 204", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/api/v1/sessions/"+sess.ID, "", false); rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted session = %d, want 404", rec.Code)
	}

	o = decode[analytics.Overview](t, do(t, s, http.MethodGet, "/api/v1/overview", "", false))
	if o.TotalSessions != 0 {
		t.Errorf("sessions after delete = %d, want 0", o.TotalSessions)
	}
}

// TestActiveSessionFlow verifies start, update, finish and the 404 once no
// session is in progress.
func TestActiveSessionFlow(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/api/v1/programs", `{"name":"Legs","exercises":[{"name":"Squat","series":3}]}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST program = %d: %s", rec.Code, rec.Body.String())
	}
	p := decode[models.Program](t, rec)

	rec = do(t, s, http.MethodPost, "/api/v1/active-session", `{"program_id":"`+p.ID+`"}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start = %d: %s", rec.Code, rec.Body.String())
	}
	a := decode[models.ActiveSession](t, rec)
	if len(a.Exercises) != 1 || len(a.Exercises[0].Series) != 3 {
		t.Fatalf("active exercises = %+v, want 1 exercise with 3 rows", a.Exercises)
	}

	rec = do(t, s, http.MethodPut, "/api/v1/active-session", `{"exercises":[{"name":"Squat","series":[{"weight":100,"reps":5},{"weight":0,"reps":0}]}]}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("update = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodPost, "/api/v1/active-session/finish", "", true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("finish = %d: %s", rec.Code, rec.Body.String())
	}
	sess := decode[models.Session](t, rec)
	if sess.ProgramName != "Legs" || len(sess.Exercises[0].Series) != 1 {
		t.Errorf("finished session = %+v", sess)
	}

	if rec := do(t, s, http.MethodGet, "/api/v1/active-session", "", false); rec.Code != http.StatusNotFound {
		t.Errorf("GET active after finish = %d, want 404", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/api/v1/programs/"+p.ID+"/last-session", "", false)
	if rec.Code != http.StatusOK {
		t.Errorf("last-session = %d, want 200", rec.Code)
	}
}

// TestImportExport verifies that an exported document imports back and that
// non-documents are rejected.
func TestImportExport(t *testing.T) {
	s := newTestServer(t)

	legacy := `{"programmes":[{"id":1,"nom":"Push","exercices":[{"nom":"Bench","series":3}]}],
		"seances":[{"id":7,"date":"2024-03-01T10:00:00Z","programmeId":1,"exercices":[{"nom":"Bench","series":[{"poids":80,"reps":5}]}]}]}`
	rec := do(t, s, http.MethodPost, "/api/v1/import", legacy, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(t, s, http.MethodGet, "/api/v1/export", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("export = %d", rec.Code)
	}
	want := `attachment; filename="replift_backup_2024-03-13.json"`
	if got := rec.Header().Get("Content-Disposition"); got != want {
		t.Errorf("Content-Disposition = %q, want %q", got, want)
	}
	doc := decode[models.Document](t, rec)
	if len(doc.Programs) != 1 || len(doc.Sessions) != 1 || doc.Sessions[0].ProgramID != "1" {
		t.Errorf("exported = %+v", doc)
	}

	if rec := do(t, s, http.MethodPost, "/api/v1/import", `{"foo":1}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("import non-document = %d, want 400", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/v1/reset", "", true); rec.Code != http.StatusNoContent {
		t.Errorf("reset = %d, want 204", rec.Code)
	}
	doc = decode[models.Document](t, do(t, s, http.MethodGet, "/api/v1/export", "", false))
	if len(doc.Sessions) != 0 {
		t.Errorf("sessions after reset = %d, want 0", len(doc.Sessions))
	}
}

// TestImportAlphaErrors verifies that an unreadable export is a client
// error while a storage failure is reported as a server error.
func TestImportAlphaErrors(t *testing.T) {
	blobs, err := storage.NewFileBlobs(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBlobs: %v", err)
	}
	failing := &failingBlobs{Blobs: blobs}
	s := newTestServerOn(t, failing)

	if rec := do(t, s, http.MethodPost, "/api/v1/import/alpha", "1;80;5;1\n", true); rec.Code != http.StatusBadRequest {
		t.Errorf("import malformed CSV = %d, want 400", rec.Code)
	}

	csv := "\"Push · Day 1\";\"2024-03-01 5:04 h\";\"1:00 hr\"\n" +
		"\"1. Bench Press · Barbell · 6 reps\"\n" +
		"#;KG;REPS;RIR\n" +
		"1;80;6;1\n"
	failing.fail = true
	rec := do(t, s, http.MethodPost, "/api/v1/import/alpha", csv, true)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("import with failing store = %d, want 500: %s", rec.Code, rec.Body.String())
	}

	failing.fail = false
	rec = do(t, s, http.MethodPost, "/api/v1/import/alpha", csv, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("import = %d: %s", rec.Code, rec.Body.String())
	}
	if res := decode[map[string]any](t, rec); res["sessions_inserted"] != float64(1) {
		t.Errorf("sessions_inserted = %v, want 1", res["sessions_inserted"])
	}
}

// failingBlobs rejects writes while fail is set.
type failingBlobs struct {
	storage.Blobs
	fail bool
}

func (f *failingBlobs) Put(ctx context.Context, key string, data []byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Blobs.Put(ctx, key, data)
}

// TestQueryValidation verifies 400 responses for malformed parameters.
func TestQueryValidation(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{
		"/api/v1/calendar?month=13",
		"/api/v1/calendar?year=abc",
		"/api/v1/exercises/evolution/Bench?period=2w",
		"/api/v1/sessions?start=yesterday",
	} {
		if rec := do(t, s, http.MethodGet, path, "", false); rec.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d, want 400", path, rec.Code)
		}
	}
}

// TestCalendarDefaultsToCurrentMonth verifies the calendar default.
func TestCalendarDefaultsToCurrentMonth(t *testing.T) {
	s := newTestServer(t)
	cal := decode[analytics.CalendarMonth](t, do(t, s, http.MethodGet, "/api/v1/calendar", "", false))
	if cal.Year != 2024 || cal.Month != 3 {
		t.Errorf("calendar = %d-%d, want 2024-3", cal.Year, cal.Month)
	}
	if len(cal.Days) != 31 {
		t.Errorf("days = %d, want 31", len(cal.Days))
	}
}

// TestMetricsEndpoint verifies that collectors are served in the Prometheus
// text format.
func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodGet, "/api/v1/overview", "", false)

	rec := do(t, s, http.MethodGet, "/metrics", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `replift_test_requests_total{method="GET",route="/api/v1/overview",status="200"} 1`) {
		t.Errorf("request counter missing from:\n%s", rec.Body.String())
	}
}
