package transport

import (
	"math"
	"time"
)

const (
	defaultBPM       = 120.0
	defaultLookahead = 25 * time.Millisecond
)

// MaxBPM caps the tempo. Advance visits every tick, so render cost grows
// with tempo.
const MaxBPM = 1000.0

// Handle identifies one registration on a Clock.
type Handle uint64

// Owner groups registrations so they can be cancelled together.
type Owner uint64

// Event describes one scheduled occurrence of a registration.
type Event struct {
	Handle Handle
	Tick   int64 // transport tick of this occurrence
	Frame  int64 // absolute output frame at which the occurrence is due
	Cycle  int64 // repetition index for periodic registrations
}

type Callback func(Event)

type registration struct {
	handle    Handle
	owner     Owner
	tick      int64
	period    int64 // 0 = fire once
	cb        Callback
	cancelled bool
}

type pending struct {
	reg   *registration
	cycle int64
}

// Clock is a sample-driven musical transport. It advances only when the
// output pulls frames, and dispatches callbacks slightly ahead of their due
// frame so receivers can schedule sample-accurately, including small
// negative offsets.
type Clock struct {
	sampleRate float64
	bpm        float64
	running    bool
	frame      int64   // frames rendered since creation
	anchor     int64   // frame at which transport tick 0 fell
	tickPos    float64 // transport position in ticks
	scheduled  int64   // ticks below this have been dispatched
	lookahead  float64 // seconds
	ppq        int
	regs       []*registration
	nextHandle Handle
	due        []pending
}

func New(sampleRate int, ppq int) *Clock {
	return &Clock{
		sampleRate: float64(sampleRate),
		bpm:        defaultBPM,
		lookahead:  defaultLookahead.Seconds(),
		ppq:        ppq,
	}
}

// SetLookahead sets how far ahead of their due frame callbacks run.
func (c *Clock) SetLookahead(d time.Duration) {
	if d < 0 {
		d = 0
	}
	c.lookahead = d.Seconds()
}

// SetBPM changes the tempo. Non-positive values are ignored and values above
// MaxBPM are clamped. A running transport keeps its musical position.
func (c *Clock) SetBPM(bpm float64) {
	if !(bpm > 0) {
		return
	}
	c.bpm = math.Min(bpm, MaxBPM)
	if c.running {
		c.anchor = c.frame - int64(math.Round(c.tickPos/c.ticksPerFrame()))
	}
}

func (c *Clock) BPM() float64 { return c.bpm }

// Start runs the transport from tick zero. Starting a running clock is a no-op.
func (c *Clock) Start() {
	if c.running {
		return
	}
	c.running = true
	c.tickPos = 0
	c.scheduled = 0
	c.anchor = c.frame
}

// Stop halts the transport and rewinds it to tick zero.
func (c *Clock) Stop() {
	c.running = false
	c.tickPos = 0
	c.scheduled = 0
}

func (c *Clock) Running() bool     { return c.running }
func (c *Clock) Frame() int64      { return c.frame }
func (c *Clock) Position() float64 { return c.tickPos }

// Seconds converts a tick count to seconds at the current tempo.
func (c *Clock) Seconds(ticks float64) float64 {
	return ticks * 60 / (c.bpm * float64(c.ppq))
}

func (c *Clock) ticksPerFrame() float64 {
	return c.bpm * float64(c.ppq) / (60 * c.sampleRate)
}

// Register schedules cb at tick, repeating every period ticks when period > 0.
func (c *Clock) Register(owner Owner, tick, period int64, cb Callback) Handle {
	c.nextHandle++
	c.regs = append(c.regs, &registration{
		handle: c.nextHandle,
		owner:  owner,
		tick:   tick,
		period: period,
		cb:     cb,
	})
	return c.nextHandle
}

// Cancel removes one registration.
func (c *Clock) Cancel(h Handle) bool {
	return c.remove(func(r *registration) bool { return r.handle == h }) > 0
}

// CancelOwner removes every registration made by owner.
func (c *Clock) CancelOwner(owner Owner) int {
	return c.remove(func(r *registration) bool { return r.owner == owner })
}

// CancelAll removes every registration.
func (c *Clock) CancelAll() int {
	return c.remove(func(*registration) bool { return true })
}

func (c *Clock) remove(match func(*registration) bool) int {
	kept := c.regs[:0]
	n := 0
	for _, r := range c.regs {
		if match(r) {
			r.cancelled = true
			n++
			continue
		}
		kept = append(kept, r)
	}
	clear(c.regs[len(kept):])
	c.regs = kept
	return n
}

// Active returns the number of live registrations.
func (c *Clock) Active() int { return len(c.regs) }

// Advance moves the clock forward by frames, dispatching every occurrence
// that comes within the lookahead window. It returns the first frame of the
// advanced block.
func (c *Clock) Advance(frames int) int64 {
	base := c.frame
	for f := 0; f < frames && c.running; f++ {
		tpf := c.ticksPerFrame()
		horizon := int64(math.Floor(c.tickPos + c.lookahead*c.sampleRate*tpf))
		for c.running && c.scheduled <= horizon {
			c.dispatch(c.scheduled)
			c.scheduled++
		}
		c.frame = base + int64(f) + 1
		c.tickPos += tpf
	}
	c.frame = base + int64(frames)
	return base
}

func (c *Clock) dispatch(tick int64) {
	c.due = c.due[:0]
	for _, r := range c.regs {
		if tick < r.tick {
			continue
		}
		var cycle int64
		if r.period > 0 {
			off := tick - r.tick
			if off%r.period != 0 {
				continue
			}
			cycle = off / r.period
		} else if tick != r.tick {
			continue
		}
		c.due = append(c.due, pending{reg: r, cycle: cycle})
	}
	if len(c.due) == 0 {
		return
	}
	frame := c.anchor + int64(math.Round(float64(tick)/c.ticksPerFrame()))
	for _, p := range c.due {
		if p.reg.cancelled {
			continue
		}
		if p.reg.period == 0 {
			c.Cancel(p.reg.handle)
		}
		p.reg.cb(Event{Handle: p.reg.handle, Tick: tick, Frame: frame, Cycle: p.cycle})
	}
}
