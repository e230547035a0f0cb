package poly

import (
	"math"
	"testing"
)

func TestOscillatorsProduceOutput(t *testing.T) {
	for _, osc := range []Oscillator{OscSine, OscTriangle, OscSquare, OscSawtooth, OscFatSawtooth} {
		t.Run(string(osc), func(t *testing.T) {
			p := PadParams()
			p.Oscillator = osc
			e, err := New(48000, p)
			if err != nil {
				t.Fatalf("new engine: %v", err)
			}
			e.NoteOn(261.63, 0.9)
			var maxAbs float64
			for i := 0; i < 4000; i++ {
				l, _ := e.RenderFrame()
				maxAbs = math.Max(maxAbs, math.Abs(float64(l)))
			}
			if maxAbs < 0.001 {
				t.Errorf("oscillator %s produced no output", osc)
			}
		})
	}
}

func TestChordUsesSeparateVoices(t *testing.T) {
	e, err := New(48000, PadParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	ids := []int{e.NoteOn(261.63, 1), e.NoteOn(329.63, 1), e.NoteOn(392.0, 1)}
	e.RenderFrame()
	if got := e.ActiveVoiceCount(); got != 3 {
		t.Fatalf("expected 3 voices, got %d", got)
	}
	for _, id := range ids {
		e.NoteOff(id)
	}
	for i := 0; i < 2*48000; i++ {
		e.RenderFrame()
	}
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("voices should finish after release, got %d", got)
	}
}

func TestVoiceStealingWhenFull(t *testing.T) {
	p := PluckParams()
	p.Voices = 2
	e, err := New(48000, p)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.NoteOn(220, 1)
	e.NoteOn(330, 1)
	e.NoteOn(440, 1)
	e.RenderFrame()
	if got := e.ActiveVoiceCount(); got != 2 {
		t.Fatalf("expected voice count capped at 2, got %d", got)
	}
}

func TestPluckDecaysWithoutNoteOff(t *testing.T) {
	e, err := New(48000, PluckParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.NoteOn(440, 1)
	for i := 0; i < 48000; i++ {
		e.RenderFrame()
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("zero-sustain pluck should die out on its own")
	}
}

func TestUnknownOscillatorRejected(t *testing.T) {
	p := DefaultParams()
	p.Oscillator = "wobble"
	if _, err := New(48000, p); err == nil {
		t.Fatalf("expected error for unknown oscillator")
	}
}
