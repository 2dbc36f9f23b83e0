package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
)

// DocumentVersion is written into every persisted document.
const DocumentVersion = 2

// AchievementState is the persisted part of achievement tracking. Recent is
// the bounded, most-recent-first list shown to the user; Seen holds every
// badge id ever surfaced so truncation never re-announces a badge.
type AchievementState struct {
	Recent []string `json:"recent"`
	Seen   []string `json:"seen"`
}

// Document is the single persisted unit holding all user data.
type Document struct {
	Version       int              `json:"version"`
	// Revision is replaced on every write to storage.
	Revision      string           `json:"revision,omitempty"`
	Programs      []Program        `json:"programs"`
	Sessions      []Session        `json:"sessions"`
	ActiveSession *ActiveSession   `json:"activeSession,omitempty"`
	User          User             `json:"user"`
	Achievements  AchievementState `json:"achievements"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Version:  DocumentVersion,
		Programs: []Program{},
		Sessions: []Session{},
		Achievements: AchievementState{
			Recent: []string{},
			Seen:   []string{},
		},
	}
}

// UnmarshalJSON decodes programs and sessions strictly and every optional
// field leniently: a malformed user, active session or achievement block is
// dropped rather than failing the whole document.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		Version       Number          `json:"version"`
		Revision      string          `json:"revision"`
		Programs      []Program       `json:"programs"`
		Programmes    []Program       `json:"programmes"`
		Sessions      []Session       `json:"sessions"`
		Seances       []Session       `json:"seances"`
		ActiveSession json.RawMessage `json:"activeSession"`
		User          json.RawMessage `json:"user"`
		Achievements  json.RawMessage `json:"achievements"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}

	*d = Document{
		Version:  raw.Version.Int(),
		Revision: raw.Revision,
		Programs: raw.Programs,
		Sessions: raw.Sessions,
	}
	if d.Programs == nil {
		d.Programs = raw.Programmes
	}
	if d.Sessions == nil {
		d.Sessions = raw.Seances
	}

	if len(raw.ActiveSession) > 0 {
		var active ActiveSession
		if err := json.Unmarshal(raw.ActiveSession, &active); err == nil && active.ProgramID != "" {
			d.ActiveSession = &active
		}
	}
	if len(raw.User) > 0 {
		_ = json.Unmarshal(raw.User, &d.User)
	}
	if len(raw.Achievements) > 0 {
		var state AchievementState
		if err := json.Unmarshal(raw.Achievements, &state); err == nil {
			d.Achievements = state
		}
	}
	return nil
}

// Normalize fills defaults and drops unusable entries in place: nil slices
// become empty, nameless exercises and blank sets are removed from sessions,
// and sessions are ordered by date (stable, so same-instant sessions keep
// their log order).
func (d *Document) Normalize() {
	d.Version = DocumentVersion
	if d.Programs == nil {
		d.Programs = []Program{}
	}
	if d.Sessions == nil {
		d.Sessions = []Session{}
	}
	if d.Achievements.Recent == nil {
		d.Achievements.Recent = []string{}
	}
	if d.Achievements.Seen == nil {
		d.Achievements.Seen = []string{}
	}

	for i := range d.Programs {
		p := &d.Programs[i]
		p.Exercises = slices.DeleteFunc(p.Exercises, func(e TemplateExercise) bool { return e.Name == "" })
		if p.Exercises == nil {
			p.Exercises = []TemplateExercise{}
		}
		for j := range p.Exercises {
			if p.Exercises[j].Series == nil {
				p.Exercises[j].Series = []Series{}
			}
		}
	}

	for i := range d.Sessions {
		d.Sessions[i].Exercises = NormalizeEntries(d.Sessions[i].Exercises)
	}
	sort.SliceStable(d.Sessions, func(i, j int) bool {
		return d.Sessions[i].Date.Before(d.Sessions[j].Date)
	})
}

// NormalizeEntries removes nameless exercises and blank sets. Exercises left
// without any set are removed as well.
func NormalizeEntries(entries []ExerciseEntry) []ExerciseEntry {
	out := make([]ExerciseEntry, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		series := make([]Series, 0, len(e.Series))
		for _, s := range e.Series {
			if s.Empty() {
				continue
			}
			series = append(series, s)
		}
		if len(series) == 0 {
			continue
		}
		out = append(out, ExerciseEntry{Name: e.Name, Series: series})
	}
	return out
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := &Document{
		Version:  d.Version,
		Revision: d.Revision,
		Programs: make([]Program, len(d.Programs)),
		Sessions: make([]Session, len(d.Sessions)),
		User:     d.User,
		Achievements: AchievementState{
			Recent: slices.Clone(d.Achievements.Recent),
			Seen:   slices.Clone(d.Achievements.Seen),
		},
	}
	for i, p := range d.Programs {
		c.Programs[i] = p.Clone()
	}
	for i, s := range d.Sessions {
		c.Sessions[i] = s.Clone()
	}
	if d.ActiveSession != nil {
		a := d.ActiveSession.Clone()
		c.ActiveSession = &a
	}
	return c
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	s.Exercises = cloneEntries(s.Exercises)
	return s
}

// Clone returns a deep copy of the active session.
func (a ActiveSession) Clone() ActiveSession {
	a.Exercises = cloneEntries(a.Exercises)
	a.Ghost = cloneEntries(a.Ghost)
	return a
}

// Clone returns a deep copy of the program.
func (p Program) Clone() Program {
	exercises := make([]TemplateExercise, len(p.Exercises))
	for i, e := range p.Exercises {
		exercises[i] = TemplateExercise{
			Name:        e.Name,
			Series:      slices.Clone(e.Series),
			RestSeconds: e.RestSeconds,
		}
	}
	p.Exercises = exercises
	return p
}

func cloneEntries(entries []ExerciseEntry) []ExerciseEntry {
	if entries == nil {
		return nil
	}
	out := make([]ExerciseEntry, len(entries))
	for i, e := range entries {
		out[i] = ExerciseEntry{Name: e.Name, Series: slices.Clone(e.Series)}
	}
	return out
}
