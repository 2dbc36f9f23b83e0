// Package alpha reads Alpha Progression CSV exports and turns them into
// training sessions.
package alpha

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claude/replift/internal/models"
)

// Workout is one session block of the export.
type Workout struct {
	Name      string
	Date      time.Time
	Duration  string
	Exercises []Exercise
}

// Exercise is one numbered exercise block within a workout.
type Exercise struct {
	Number     int
	Name       string
	Equipment  string
	TargetReps int
	Sets       []Set
}

// Set is a warmup or working set. For bodyweight-plus sets Weight is the
// added load.
type Set struct {
	Number         int
	Weight         float64
	BodyweightPlus bool
	Reps           int
	RIR            float64
	Warmup         bool
}

var (
	// "Session Name";"2026-02-19 4:54 h";"1:02 hr"
	workoutHeaderRe = regexp.MustCompile(`^"(.+)";"(\d{4}-\d{2}-\d{2}\s+\d+:\d+)\s+h";"(.+)"$`)

	// "1. Exercise Name · Equipment · 8 reps[· modifiers]"[;"warmup info"]
	exerciseHeaderRe = regexp.MustCompile(`^"(\d+)\.\s+(.+?)(?:\s+·\s+(\S.*?))?\s+·\s+(\d+)\s+reps(.*?)"(?:;"(.+)")?$`)

	// 1;115;8;1
	setRowRe = regexp.MustCompile(`^(\d+);(.+);(\d+);(.+)$`)

	// WU1 · 37,5 kg · 9 reps
	warmupRe = regexp.MustCompile(`WU(\d+)\s+·\s+(.+?)\s+kg\s+·\s+(\d+)\s+reps`)

	columnHeaderRe = regexp.MustCompile(`^#;KG;REPS;RIR$`)
)

// parser accumulates the workout and exercise currently being read.
type parser struct {
	loc      *time.Location
	workouts []Workout
	workout  *Workout
	exercise *Exercise
}

func (p *parser) closeExercise() {
	if p.exercise != nil {
		p.workout.Exercises = append(p.workout.Exercises, *p.exercise)
		p.exercise = nil
	}
}

func (p *parser) closeWorkout() {
	if p.workout == nil {
		return
	}
	p.closeExercise()
	p.workouts = append(p.workouts, *p.workout)
	p.workout = nil
}

func (p *parser) line(line string) error {
	if line == "" {
		p.closeWorkout()
		return nil
	}
	if columnHeaderRe.MatchString(line) {
		return nil
	}

	if m := workoutHeaderRe.FindStringSubmatch(line); m != nil {
		p.closeWorkout()
		date, err := parseWorkoutDate(m[2], p.loc)
		if err != nil {
			return err
		}
		p.workout = &Workout{Name: m[1], Date: date, Duration: m[3]}
		return nil
	}

	if m := exerciseHeaderRe.FindStringSubmatch(line); m != nil {
		if p.workout == nil {
			return fmt.Errorf("exercise without session: %q", line)
		}
		p.closeExercise()
		num, _ := strconv.Atoi(m[1])
		target, _ := strconv.Atoi(m[4])
		p.exercise = &Exercise{
			Number:     num,
			Name:       strings.TrimSpace(m[2]),
			Equipment:  strings.TrimSpace(m[3]),
			TargetReps: target,
		}
		if m[6] != "" {
			p.exercise.Sets = append(p.exercise.Sets, parseWarmups(m[6])...)
		}
		return nil
	}

	if m := setRowRe.FindStringSubmatch(line); m != nil {
		if p.exercise == nil {
			return fmt.Errorf("set data without exercise: %q", line)
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		p.exercise.Sets = append(p.exercise.Sets, Set{
			Number:         num,
			Weight:         weight,
			BodyweightPlus: bw,
			Reps:           reps,
			RIR:            models.ParseNumber(m[4]),
		})
	}
	// Anything else is a note or metadata line.
	return nil
}

// Parse reads an export. Workout times carry no zone in the file and are
// interpreted in loc.
func Parse(r io.Reader, loc *time.Location) ([]Workout, error) {
	if loc == nil {
		loc = time.Local
	}
	p := &parser{loc: loc}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := p.line(strings.TrimSpace(scanner.Text())); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading export: %w", err)
	}
	p.closeWorkout()
	return p.workouts, nil
}

// Sessions parses an export and converts it to sessions. Warmup sets are
// left out; the workout name becomes the program name.
func Sessions(r io.Reader, loc *time.Location) ([]models.Session, error) {
	workouts, err := Parse(r, loc)
	if err != nil {
		return nil, err
	}
	out := make([]models.Session, 0, len(workouts))
	for _, w := range workouts {
		out = append(out, w.Session())
	}
	return out, nil
}

// Session converts the workout's working sets.
func (w Workout) Session() models.Session {
	s := models.Session{Date: w.Date, ProgramName: w.Name}
	for _, ex := range w.Exercises {
		entry := models.ExerciseEntry{Name: ex.Name}
		for _, set := range ex.Sets {
			if set.Warmup {
				continue
			}
			entry.Series = append(entry.Series, models.Series{
				Weight: models.Number(set.Weight),
				Reps:   models.Number(set.Reps),
			})
		}
		s.Exercises = append(s.Exercises, entry)
	}
	s.Exercises = models.NormalizeEntries(s.Exercises)
	return s
}

// parseWorkoutDate parses "2026-02-19 4:54" or "2026-02-19 16:54".
func parseWorkoutDate(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02 3:04"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing session date %q", s)
}

// parseWarmups reads "WU1 · 37,5 kg · 9 reps<br>WU2 · 72,5 kg · 7 reps".
func parseWarmups(s string) []Set {
	var sets []Set
	for _, part := range strings.Split(s, "<br>") {
		m := warmupRe.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		weight, bw := parseWeight(m[2])
		reps, _ := strconv.Atoi(m[3])
		sets = append(sets, Set{
			Number:         num,
			Weight:         weight,
			BodyweightPlus: bw,
			Reps:           reps,
			Warmup:         true,
		})
	}
	return sets
}

// parseWeight reads "102,5" or the bodyweight-plus form "+35".
func parseWeight(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return models.ParseNumber(rest), true
	}
	return models.ParseNumber(s), false
}
