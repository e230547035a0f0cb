package loop

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// DefaultBPM is used when a loop carries no usable tempo.
	DefaultBPM = 120.0
	// MinBPM and MaxBPM bound the playable tempo range.
	MinBPM = 20.0
	MaxBPM = 400.0
	// Bars is the fixed length of every loop.
	Bars = 2
	// BeatsPerBar assumes 4/4 throughout.
	BeatsPerBar = 4
)

// ErrInvalidLoop reports a loop document that does not have the expected shape.
var ErrInvalidLoop = errors.New("invalid loop")

// InstrumentType names the synthesis unit a track plays through.
type InstrumentType string

const (
	Kick  InstrumentType = "kick"
	Snare InstrumentType = "snare"
	HiHat InstrumentType = "hihat"
	Bass  InstrumentType = "bass"
	Synth InstrumentType = "synth"
	Pluck InstrumentType = "pluck"
)

// Types lists the instrument types a generator may emit.
var Types = []InstrumentType{Kick, Snare, HiHat, Bass, Synth, Pluck}

// Known reports whether t is one of the six recognized types.
func (t InstrumentType) Known() bool {
	for _, k := range Types {
		if t == k {
			return true
		}
	}
	return false
}

// NoteEvent is a single trigger within a loop.
type NoteEvent struct {
	Time     string  `json:"time"`
	Note     string  `json:"note"`
	Duration string  `json:"duration"`
	Velocity float64 `json:"velocity"`
}

// Track is an instrument lane.
type Track struct {
	ID    string         `json:"id"`
	Type  InstrumentType `json:"type"`
	Name  string         `json:"name"`
	Notes []NoteEvent    `json:"notes"`
	Muted bool           `json:"muted,omitempty"`
}

// Loop is a complete generated pattern.
type Loop struct {
	Name        string  `json:"name"`
	BPM         float64 `json:"bpm"`
	Key         string  `json:"key"`
	Description string  `json:"description"`
	Tracks      []Track `json:"tracks"`
}

// Tempo returns the loop's BPM clamped to [MinBPM, MaxBPM], or DefaultBPM
// when unset or not a positive number.
func (l *Loop) Tempo() float64 {
	if l == nil || !(l.BPM > 0) {
		return DefaultBPM
	}
	return math.Min(math.Max(l.BPM, MinBPM), MaxBPM)
}

// Track returns the track with the given id.
func (l *Loop) Track(id string) (*Track, bool) {
	for i := range l.Tracks {
		if l.Tracks[i].ID == id {
			return &l.Tracks[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (l *Loop) Clone() *Loop {
	if l == nil {
		return nil
	}
	out := *l
	out.Tracks = make([]Track, len(l.Tracks))
	for i, t := range l.Tracks {
		t.Notes = append([]NoteEvent(nil), t.Notes...)
		out.Tracks[i] = t
	}
	return &out
}

// Decode parses a loop document and checks its structure.
func Decode(r io.Reader) (*Loop, error) {
	var raw struct {
		Loop
		Tracks *[]Track `json:"tracks"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLoop, err)
	}
	if raw.Tracks == nil {
		return nil, fmt.Errorf("%w: missing tracks", ErrInvalidLoop)
	}
	l := raw.Loop
	l.Tracks = *raw.Tracks
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// DecodeString is Decode for an in-memory document.
func DecodeString(s string) (*Loop, error) {
	return Decode(strings.NewReader(s))
}

// Validate checks field shapes. Unknown instrument types are allowed and
// resolve to the fallback instrument at playback.
func (l *Loop) Validate() error {
	if l == nil {
		return fmt.Errorf("%w: nil loop", ErrInvalidLoop)
	}
	for i, t := range l.Tracks {
		if t.Type == "" {
			return fmt.Errorf("%w: track %d has no type", ErrInvalidLoop, i)
		}
		for j, n := range t.Notes {
			if n.Time == "" {
				return fmt.Errorf("%w: track %d note %d has no time", ErrInvalidLoop, i, j)
			}
		}
	}
	return nil
}

// RepairIDs assigns a synthetic id to every track whose id is empty or
// already used by an earlier track.
func (l *Loop) RepairIDs() {
	seen := make(map[string]struct{}, len(l.Tracks))
	for i := range l.Tracks {
		id := l.Tracks[i].ID
		if _, dup := seen[id]; id == "" || dup {
			id = fmt.Sprintf("track-%d-%s", i, uuid.NewString()[:8])
			l.Tracks[i].ID = id
		}
		seen[id] = struct{}{}
	}
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// FileName derives a download name from the loop name.
func (l *Loop) FileName(ext string) string {
	name := ""
	if l != nil {
		name = l.Name
	}
	if strings.TrimSpace(name) == "" {
		name = "loop"
	}
	return whitespaceRun.ReplaceAllString(name, "-") + ext
}
