package transport

import (
	"math"
	"testing"
	"time"
)

const ppq = 192

func TestOccurrencesFireInTimeOrder(t *testing.T) {
	c := New(48000, ppq)
	var got []int64
	record := func(ev Event) { got = append(got, ev.Tick) }
	c.Register(1, 300, 0, record)
	c.Register(1, 0, 0, record)
	c.Register(1, 96, 0, record)
	c.Start()
	c.Advance(48000)
	want := []int64{0, 96, 300}
	if len(got) != len(want) {
		t.Fatalf("fired %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fired %v, want %v", got, want)
		}
	}
	if c.Active() != 0 {
		t.Fatalf("one-shot registrations should be removed after firing, %d left", c.Active())
	}
}

func TestPeriodicRegistrationRepeats(t *testing.T) {
	c := New(48000, ppq)
	var cycles []int64
	c.Register(1, 0, 4*ppq, func(ev Event) { cycles = append(cycles, ev.Cycle) })
	c.Start()
	// 120 BPM: one bar of 4/4 is 2s; render 5.9s -> occurrences at 0, 2, 4 seconds.
	c.Advance(48000 * 59 / 10)
	if len(cycles) != 3 || cycles[2] != 2 {
		t.Fatalf("cycles = %v", cycles)
	}
}

func TestDueFrameMatchesTempo(t *testing.T) {
	c := New(48000, ppq)
	c.SetBPM(124)
	var frame int64 = -1
	c.Register(1, ppq, 0, func(ev Event) { frame = ev.Frame })
	c.Start()
	c.Advance(48000)
	f := 48000.0 * 60 / 124
	want := int64(f)
	if d := frame - want; d < -1 || d > 1 {
		t.Fatalf("due frame %d, want ~%d", frame, want)
	}
}

func TestLookaheadDispatchesEarly(t *testing.T) {
	c := New(48000, ppq)
	c.SetLookahead(20 * time.Millisecond)
	var dispatchedAt, due int64 = -1, -1
	c.Register(1, ppq, 0, func(ev Event) {
		dispatchedAt = c.Frame()
		due = ev.Frame
	})
	c.Start()
	c.Advance(48000)
	if dispatchedAt >= due {
		t.Fatalf("expected dispatch before due frame: dispatched=%d due=%d", dispatchedAt, due)
	}
	if due-dispatchedAt > 48000*20/1000+1 {
		t.Fatalf("dispatched too early: %d frames ahead", due-dispatchedAt)
	}
}

func TestCancelOwnerLeavesOthers(t *testing.T) {
	c := New(48000, ppq)
	fired := map[Owner]int{}
	for i := 0; i < 3; i++ {
		c.Register(1, int64(i*10), 0, func(Event) { fired[1]++ })
		c.Register(2, int64(i*10), 0, func(Event) { fired[2]++ })
	}
	if n := c.CancelOwner(1); n != 3 {
		t.Fatalf("cancelled %d, want 3", n)
	}
	c.Start()
	c.Advance(48000)
	if fired[1] != 0 || fired[2] != 3 {
		t.Fatalf("fired = %v", fired)
	}
}

func TestCancelAllAndCancel(t *testing.T) {
	c := New(48000, ppq)
	h := c.Register(1, 0, ppq, func(Event) {})
	c.Register(2, 0, ppq, func(Event) {})
	if !c.Cancel(h) || c.Cancel(h) {
		t.Fatalf("cancel should succeed exactly once")
	}
	if c.CancelAll() != 1 || c.Active() != 0 {
		t.Fatalf("expected empty clock after CancelAll")
	}
}

func TestStoppedClockDoesNotDispatch(t *testing.T) {
	c := New(48000, ppq)
	n := 0
	c.Register(1, 0, ppq, func(Event) { n++ })
	c.Advance(48000)
	if n != 0 {
		t.Fatalf("stopped clock dispatched %d events", n)
	}
	c.Start()
	c.Advance(480)
	c.Stop()
	if c.Position() != 0 {
		t.Fatalf("stop should rewind")
	}
	before := n
	c.Advance(48000)
	if n != before {
		t.Fatalf("dispatch after stop")
	}
	if c.Frame() != 48000+480+48000 {
		t.Fatalf("frame counter = %d", c.Frame())
	}
}

func TestSetBPMIgnoresNonPositive(t *testing.T) {
	c := New(48000, ppq)
	c.SetBPM(0)
	c.SetBPM(-3)
	c.SetBPM(math.NaN())
	if c.BPM() != 120 {
		t.Fatalf("bpm = %v", c.BPM())
	}
}

func TestSetBPMClampsRunawayTempo(t *testing.T) {
	c := New(48000, ppq)
	c.SetBPM(1e8)
	if c.BPM() != MaxBPM {
		t.Fatalf("bpm = %v, want %v", c.BPM(), MaxBPM)
	}
	n := 0
	for i := 0; i < 16; i++ {
		c.Register(1, int64(i*96), 16*96, func(Event) { n++ })
	}
	c.Start()
	// 1000 BPM at 192 PPQ is 3200 ticks per second: 20ms visits 64 ticks.
	c.Advance(960)
	if n == 0 || n > 16 {
		t.Fatalf("fired %d occurrences in 20ms", n)
	}
}
