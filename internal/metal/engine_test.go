package metal

import (
	"math"
	"testing"
)

func TestStrikeProducesShortBurst(t *testing.T) {
	e, err := New(48000, HiHatParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.Strike(0.8)
	var maxAbs float64
	for i := 0; i < 2400; i++ {
		l, _ := e.RenderFrame()
		maxAbs = math.Max(maxAbs, math.Abs(float64(l)))
	}
	if maxAbs < 0.001 {
		t.Fatalf("expected output from strike")
	}
	for i := 0; i < 48000/4; i++ {
		e.RenderFrame()
	}
	if e.ActiveVoiceCount() != 0 {
		t.Fatalf("hihat should be silent after its decay")
	}
}

func TestOutputHasLittleLowFrequencyContent(t *testing.T) {
	e, err := New(48000, HiHatParams())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	e.Strike(1)
	// The running mean approximates DC; a high-passed signal should hover near zero.
	var sum float64
	n := 2000
	for i := 0; i < n; i++ {
		l, _ := e.RenderFrame()
		sum += float64(l)
	}
	if mean := math.Abs(sum / float64(n)); mean > 0.05 {
		t.Fatalf("unexpected DC offset %v", mean)
	}
}

func TestInvalidParams(t *testing.T) {
	p := HiHatParams()
	p.Resonance = 0
	if _, err := New(48000, p); err == nil {
		t.Fatalf("expected error")
	}
}
