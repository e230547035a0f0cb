package membrane

import (
	"math"
	"testing"
)

func TestKickPitchDropsToTarget(t *testing.T) {
	e, err := New(48000, KickParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	const c1 = 32.70
	e.NoteOn(c1, 1)
	if got := e.Frequency(); math.Abs(got-c1*10) > 1e-6 {
		t.Fatalf("start frequency = %v, want %v", got, c1*10)
	}
	for i := 0; i < 48000/20+1; i++ {
		e.RenderFrame()
	}
	if got := e.Frequency(); math.Abs(got-c1) > 1e-6 {
		t.Fatalf("frequency after pitch decay = %v, want %v", got, c1)
	}
}

func TestSnareProducesOutputAndDecays(t *testing.T) {
	e, err := New(48000, SnareParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.NoteOn(73.42, 0.9)
	var maxAbs float64
	for i := 0; i < 2000; i++ {
		l, _ := e.RenderFrame()
		maxAbs = math.Max(maxAbs, math.Abs(float64(l)))
	}
	if maxAbs < 0.01 {
		t.Fatalf("expected snare output")
	}
	for i := 0; i < 48000; i++ {
		e.RenderFrame()
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("snare should decay to silence")
	}
}

func TestInvalidOctaves(t *testing.T) {
	p := KickParams()
	p.Octaves = 0
	if _, err := New(48000, p); err == nil {
		t.Fatalf("expected error")
	}
}
