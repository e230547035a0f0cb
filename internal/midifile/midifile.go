// Package midifile writes a loop as a Standard MIDI File.
package midifile

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/cbegin/loopgen-go/internal/loop"
)

// DrumChannel is General MIDI channel 10.
const DrumChannel = 9

// drumKeys maps percussion tracks to General MIDI drum notes.
var drumKeys = map[loop.InstrumentType]uint8{
	loop.Kick:  36,
	loop.Snare: 38,
	loop.HiHat: 42,
}

type noteEvent struct {
	tick uint32
	on   bool
	key  uint8
	vel  uint8
}

// Encode renders l as a format 1 SMF with one tempo track followed by one
// track per loop track. Notes that cannot be resolved are skipped.
func Encode(l *loop.Loop) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Write(w io.Writer, l *loop.Loop) error {
	if l == nil {
		return fmt.Errorf("encode midi: %w", loop.ErrInvalidLoop)
	}
	bpm := l.Tempo()
	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(loop.PPQ)

	var tempo smf.Track
	if l.Name != "" {
		tempo.Add(0, smf.MetaTrackSequenceName(l.Name))
	}
	tempo.Add(0, smf.MetaMeter(loop.BeatsPerBar, 4))
	tempo.Add(0, smf.MetaTempo(bpm))
	tempo.Close(loop.LoopTicks)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("add tempo track: %w", err)
	}

	next := uint8(0)
	for _, t := range l.Tracks {
		ch := uint8(DrumChannel)
		if _, drum := drumKeys[t.Type]; !drum {
			ch = next
			next++
			if next == DrumChannel {
				next++
			}
			if next > 15 {
				next = 0
			}
		}
		track := encodeTrack(t, ch, bpm)
		if err := sm.Add(track); err != nil {
			return fmt.Errorf("add track %q: %w", t.ID, err)
		}
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

func encodeTrack(t loop.Track, ch uint8, bpm float64) smf.Track {
	var track smf.Track
	name := t.Name
	if name == "" {
		name = t.ID
	}
	track.Add(0, smf.MetaTrackSequenceName(name))

	events := make([]noteEvent, 0, len(t.Notes)*2)
	for _, n := range t.Notes {
		start, err := loop.PositionTicks(n.Time, bpm)
		if err != nil {
			continue
		}
		dur, err := loop.ParseDuration(n.Duration)
		if err != nil {
			continue
		}
		key, ok := resolveKey(t.Type, n.Note)
		if !ok {
			continue
		}
		length := int64(math.Round(math.Min(dur.TicksAt(bpm), loop.LoopTicks)))
		if length < 1 {
			length = 1
		}
		end := min(start+length, int64(loop.LoopTicks))
		vel := velocity(n.Velocity)
		events = append(events,
			noteEvent{tick: uint32(start), on: true, key: key, vel: vel},
			noteEvent{tick: uint32(end), key: key},
		)
	}
	// releases sort ahead of attacks on the same tick
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})

	var last uint32
	for _, ev := range events {
		delta := ev.tick - last
		last = ev.tick
		if ev.on {
			track.Add(delta, midi.NoteOn(ch, ev.key, ev.vel))
		} else {
			track.Add(delta, midi.NoteOff(ch, ev.key))
		}
	}
	track.Close(loop.LoopTicks - last)
	return track
}

func resolveKey(typ loop.InstrumentType, note string) (uint8, bool) {
	if key, ok := drumKeys[typ]; ok {
		return key, true
	}
	n, err := loop.MIDINote(note)
	if err != nil {
		freq, ferr := loop.Frequency(note)
		if ferr != nil {
			return 0, false
		}
		n = loop.FreqToMIDI(freq)
	}
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

func velocity(v float64) uint8 {
	if v != v || v <= 0 {
		return 1
	}
	if v > 1 {
		v = 1
	}
	return uint8(max(1, math.Round(v*127)))
}
