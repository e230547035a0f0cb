package master

import (
	"math"
	"testing"
)

func TestBusNeverExceedsCeiling(t *testing.T) {
	b := New(48000, DefaultConfig())
	b.Prepare()
	ceiling := b.Ceiling()
	for i := 0; i < 48000; i++ {
		in := float32(2.5 * math.Sin(float64(i)*0.03))
		l, r := b.Process(in, in)
		if math.Abs(float64(l)) > float64(ceiling) || math.Abs(float64(r)) > float64(ceiling) {
			t.Fatalf("frame %d exceeded ceiling %f: %f %f", i, ceiling, l, r)
		}
	}
	if want := float32(math.Pow(10, -1.0/20)); math.Abs(float64(ceiling-want)) > 1e-6 {
		t.Fatalf("ceiling = %f, want %f", ceiling, want)
	}
}

func TestRecorderCapturesOnlyWhileArmed(t *testing.T) {
	b := New(48000, DefaultConfig())
	b.Prepare()
	b.Process(0.1, 0.1)
	rec := b.Recorder()
	rec.Start()
	for i := 0; i < 100; i++ {
		b.Process(0.1, -0.1)
	}
	if rec.Frames() != 100 {
		t.Fatalf("frames = %d, want 100", rec.Frames())
	}
	take := rec.Stop()
	if len(take) != 200 {
		t.Fatalf("take length = %d, want 200", len(take))
	}
	b.Process(0.1, 0.1)
	if rec.Recording() || rec.Frames() != 0 {
		t.Fatalf("recorder should be idle after Stop")
	}
}

func TestReverbAddsTailAfterPrepare(t *testing.T) {
	b := New(48000, DefaultConfig())
	if b.Prepared() {
		t.Fatalf("bus should not be prepared yet")
	}
	b.Prepare()
	b.Process(0.8, 0.8)
	var tail float64
	for i := 0; i < 48000/2; i++ {
		l, _ := b.Process(0, 0)
		tail += math.Abs(float64(l))
	}
	if tail == 0 {
		t.Fatalf("expected reverb tail on the bus")
	}
}
