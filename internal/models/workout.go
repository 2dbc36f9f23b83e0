package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Series is a single logged set.
type Series struct {
	Weight Number `json:"weight"`
	Reps   Number `json:"reps"`
	Note   string `json:"note,omitempty"`
}

// Volume returns weight × reps for the set.
func (s Series) Volume() float64 {
	return s.Weight.Float() * float64(s.Reps.Int())
}

// Empty reports whether the set carries neither a weight nor reps.
func (s Series) Empty() bool {
	return s.Weight.Float() == 0 && s.Reps.Int() == 0
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var raw struct {
		Weight *Number `json:"weight"`
		Poids  *Number `json:"poids"`
		Reps   Number  `json:"reps"`
		Note   string  `json:"note"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding series: %w", err)
	}
	*s = Series{Reps: raw.Reps, Note: raw.Note}
	switch {
	case raw.Weight != nil:
		s.Weight = *raw.Weight
	case raw.Poids != nil:
		s.Weight = *raw.Poids
	}
	return nil
}

// ExerciseEntry is one exercise performed within a session.
type ExerciseEntry struct {
	Name   string   `json:"name"`
	Series []Series `json:"series"`
}

// MaxWeight returns the heaviest single set of the entry.
func (e ExerciseEntry) MaxWeight() float64 {
	var best float64
	for _, s := range e.Series {
		if w := s.Weight.Float(); w > best {
			best = w
		}
	}
	return best
}

// TotalReps sums reps across the entry's sets.
func (e ExerciseEntry) TotalReps() int {
	var total int
	for _, s := range e.Series {
		total += s.Reps.Int()
	}
	return total
}

// Volume sums weight × reps across the entry's sets.
func (e ExerciseEntry) Volume() float64 {
	var total float64
	for _, s := range e.Series {
		total += s.Volume()
	}
	return total
}

func (e *ExerciseEntry) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name   string          `json:"name"`
		Nom    string          `json:"nom"`
		Series json.RawMessage `json:"series"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding exercise: %w", err)
	}
	e.Name = firstNonEmpty(raw.Name, raw.Nom)
	series, err := decodeSeries(raw.Series)
	if err != nil {
		return err
	}
	e.Series = series
	return nil
}

// Session is one completed workout. Sessions are immutable once stored.
type Session struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	ProgramID   string          `json:"programId,omitempty"`
	ProgramName string          `json:"programName"`
	Exercises   []ExerciseEntry `json:"exercises"`
}

// Volume sums weight × reps over every set of the session.
func (s Session) Volume() float64 {
	var total float64
	for _, ex := range s.Exercises {
		total += ex.Volume()
	}
	return total
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            json.RawMessage `json:"id"`
		Date          json.RawMessage `json:"date"`
		ProgramID     json.RawMessage `json:"programId"`
		ProgrammeID   json.RawMessage `json:"programmeId"`
		ProgramName   string          `json:"programName"`
		ProgrammeName string          `json:"programmeName"`
		Exercises     []ExerciseEntry `json:"exercises"`
		Exercices     []ExerciseEntry `json:"exercices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding session: %w", err)
	}
	date, err := parseTimestamp(raw.Date)
	if err != nil {
		return fmt.Errorf("decoding session date: %w", err)
	}
	*s = Session{
		ID:          idString(raw.ID),
		Date:        date,
		ProgramID:   firstNonEmpty(idString(raw.ProgramID), idString(raw.ProgrammeID)),
		ProgramName: firstNonEmpty(raw.ProgramName, raw.ProgrammeName),
		Exercises:   raw.Exercises,
	}
	if len(s.Exercises) == 0 {
		s.Exercises = raw.Exercices
	}
	return nil
}

// TemplateExercise is an exercise slot in a program.
type TemplateExercise struct {
	Name        string   `json:"name"`
	Series      []Series `json:"series"`
	RestSeconds int      `json:"restSeconds,omitempty"`
}

func (e *TemplateExercise) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string          `json:"name"`
		Nom         string          `json:"nom"`
		Series      json.RawMessage `json:"series"`
		RestSeconds Number          `json:"restSeconds"`
		Repos       Number          `json:"repos"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding program exercise: %w", err)
	}
	e.Name = firstNonEmpty(raw.Name, raw.Nom)
	series, err := decodeSeries(raw.Series)
	if err != nil {
		return err
	}
	e.Series = series
	e.RestSeconds = raw.RestSeconds.Int()
	if e.RestSeconds == 0 {
		e.RestSeconds = raw.Repos.Int()
	}
	return nil
}

// Program is a reusable workout template.
type Program struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	CreatedAt time.Time          `json:"createdAt"`
	Exercises []TemplateExercise `json:"exercises"`
}

func (p *Program) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        json.RawMessage    `json:"id"`
		Name      string             `json:"name"`
		Nom       string             `json:"nom"`
		CreatedAt json.RawMessage    `json:"createdAt"`
		Exercises []TemplateExercise `json:"exercises"`
		Exercices []TemplateExercise `json:"exercices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding program: %w", err)
	}
	created, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return fmt.Errorf("decoding program createdAt: %w", err)
	}
	*p = Program{
		ID:        idString(raw.ID),
		Name:      firstNonEmpty(raw.Name, raw.Nom),
		CreatedAt: created,
		Exercises: raw.Exercises,
	}
	if len(p.Exercises) == 0 {
		p.Exercises = raw.Exercices
	}
	return nil
}

// ActiveSession is the in-progress workout being captured. It never feeds
// analytics until it is promoted to a Session.
type ActiveSession struct {
	ProgramID   string          `json:"programId"`
	ProgramName string          `json:"programName"`
	StartTime   time.Time       `json:"startTime"`
	Exercises   []ExerciseEntry `json:"exercises"`
	// Ghost holds the values of the last session for the same program,
	// index-aligned with Exercises, for display as placeholders.
	Ghost []ExerciseEntry `json:"ghost,omitempty"`
}

// User holds profile settings.
type User struct {
	Name string `json:"name"`
}

const maxTemplateSeries = 50

// decodeSeries accepts an array of sets or, for program templates written by
// older clients, a bare set count.
func decodeSeries(data json.RawMessage) ([]Series, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if data[0] == '[' {
		var series []Series
		if err := json.Unmarshal(data, &series); err != nil {
			return nil, fmt.Errorf("decoding series list: %w", err)
		}
		return series, nil
	}
	var count Number
	_ = json.Unmarshal(data, &count)
	return make([]Series, min(count.Int(), maxTemplateSeries)), nil
}

// idString renders a JSON id that may be a string or a number.
func idString(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return s
	}
	return string(data)
}

// parseTimestamp accepts RFC 3339, a plain date, or epoch milliseconds.
// A missing value yields the zero time. Values without an offset are read
// as UTC, the zone every stored timestamp is written in, so a document
// decodes to the same instants whatever zone the reader runs in.
func parseTimestamp(data json.RawMessage) (time.Time, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return time.Time{}, nil
	}
	if data[0] != '"' {
		ms, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid timestamp %s", data)
		}
		return time.UnixMilli(int64(ms)).UTC(), nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, err
	}
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
