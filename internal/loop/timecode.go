package loop

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// PPQ is the clock resolution in ticks per quarter note.
	PPQ = 192
	// TicksPerBar is the length of one 4/4 bar.
	TicksPerBar = PPQ * BeatsPerBar
	// LoopTicks is the length of a whole loop.
	LoopTicks = TicksPerBar * Bars
)

var (
	ErrBadTime     = errors.New("malformed time")
	ErrBadDuration = errors.New("malformed duration")
	ErrBadPitch    = errors.New("malformed pitch")
)

// Span is a symbolic amount of musical time. Tick-based values follow the
// tempo; Seconds does not.
type Span struct {
	Ticks   float64
	Seconds float64
}

// TicksAt converts the span to ticks at the given tempo.
func (s Span) TicksAt(bpm float64) float64 {
	return s.Ticks + s.Seconds*bpm/60*PPQ
}

// SecondsAt converts the span to seconds at the given tempo.
func (s Span) SecondsAt(bpm float64) float64 {
	return s.Seconds + s.Ticks*60/(bpm*PPQ)
}

// ParseTime parses a time token:
//
//	"1:2:3"  bars:quarters:sixteenths (trailing fields optional, fractions allowed)
//	"4n"     note value; "8n." dotted; "8t" triplet
//	"2m"     measures
//	"96i"    raw ticks
//	"0.25"   seconds
func ParseTime(s string) (Span, error) {
	tok := strings.TrimSpace(s)
	if tok == "" {
		return Span{}, fmt.Errorf("%w: empty", ErrBadTime)
	}
	if strings.Contains(tok, ":") {
		return parseBarsBeats(tok)
	}
	lower := strings.ToLower(tok)
	switch {
	case strings.HasSuffix(lower, "n."):
		n, err := parseDivisor(lower[:len(lower)-2])
		if err != nil {
			return Span{}, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		return Span{Ticks: TicksPerBar / n * 1.5}, nil
	case strings.HasSuffix(lower, "n"):
		n, err := parseDivisor(lower[:len(lower)-1])
		if err != nil {
			return Span{}, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		return Span{Ticks: TicksPerBar / n}, nil
	case strings.HasSuffix(lower, "t"):
		n, err := parseDivisor(lower[:len(lower)-1])
		if err != nil {
			return Span{}, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		return Span{Ticks: TicksPerBar / n * 2 / 3}, nil
	case strings.HasSuffix(lower, "m"):
		v, err := parseNonNegative(lower[:len(lower)-1])
		if err != nil {
			return Span{}, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		return Span{Ticks: v * TicksPerBar}, nil
	case strings.HasSuffix(lower, "i"):
		v, err := parseNonNegative(lower[:len(lower)-1])
		if err != nil {
			return Span{}, fmt.Errorf("%w: %q", ErrBadTime, s)
		}
		return Span{Ticks: v}, nil
	}
	v, err := parseNonNegative(lower)
	if err != nil {
		return Span{}, fmt.Errorf("%w: %q", ErrBadTime, s)
	}
	return Span{Seconds: v}, nil
}

func parseBarsBeats(tok string) (Span, error) {
	parts := strings.Split(tok, ":")
	if len(parts) > 3 {
		return Span{}, fmt.Errorf("%w: %q", ErrBadTime, tok)
	}
	scale := [3]float64{TicksPerBar, PPQ, PPQ / 4}
	var ticks float64
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		v, err := parseNonNegative(p)
		if err != nil {
			return Span{}, fmt.Errorf("%w: %q", ErrBadTime, tok)
		}
		ticks += v * scale[i]
	}
	return Span{Ticks: ticks}, nil
}

func parseDivisor(s string) (float64, error) {
	v, err := parseNonNegative(s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, errors.New("zero divisor")
	}
	return v, nil
}

func parseNonNegative(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("out of range: %v", v)
	}
	return v, nil
}

// PositionTicks resolves a note start to an integer tick offset within the
// loop. Starts at or past LoopTicks are rejected.
func PositionTicks(s string, bpm float64) (int64, error) {
	span, err := ParseTime(s)
	if err != nil {
		return 0, err
	}
	ticks := math.Round(span.TicksAt(bpm))
	if !(ticks < LoopTicks) {
		return 0, fmt.Errorf("%w: %q starts after the loop ends", ErrBadTime, s)
	}
	return int64(ticks), nil
}

// ParseDuration resolves a note length. Zero-length durations are rejected.
func ParseDuration(s string) (Span, error) {
	span, err := ParseTime(s)
	if err != nil {
		return Span{}, fmt.Errorf("%w: %q", ErrBadDuration, s)
	}
	if span.Ticks <= 0 && span.Seconds <= 0 {
		return Span{}, fmt.Errorf("%w: %q is zero", ErrBadDuration, s)
	}
	return span, nil
}

var noteName = regexp.MustCompile(`^([A-Ga-g])(##|#|bb|b|x)?(-?\d+)$`)

var semitone = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

// MIDINote parses scientific pitch notation ("C4" = 60).
func MIDINote(s string) (int, error) {
	m := noteName.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, s)
	}
	n := semitone[strings.ToLower(m[1])[0]]
	switch m[2] {
	case "#":
		n++
	case "##", "x":
		n += 2
	case "b":
		n--
	case "bb":
		n -= 2
	}
	oct, err := strconv.Atoi(m[3])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, s)
	}
	return (oct+1)*12 + n, nil
}

// Frequency parses a note name or a frequency ("440", "440hz") into Hz.
func Frequency(s string) (float64, error) {
	if n, err := MIDINote(s); err == nil {
		return MIDIToFreq(n), nil
	}
	tok := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "hz")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrBadPitch, s)
	}
	return v, nil
}

func MIDIToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// FreqToMIDI returns the nearest MIDI note for a frequency.
func FreqToMIDI(freq float64) int {
	return int(math.Round(69 + 12*math.Log2(freq/440)))
}
