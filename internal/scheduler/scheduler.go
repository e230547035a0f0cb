package scheduler

import (
	"log"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cbegin/loopgen-go/internal/instrument"
	"github.com/cbegin/loopgen-go/internal/loop"
	"github.com/cbegin/loopgen-go/internal/transport"
)

// DefaultHumanize is the half-width of the timing jitter window.
const DefaultHumanize = 7500 * time.Microsecond

// Dispatch describes a note handed to an instrument.
type Dispatch struct {
	TrackID string
	Note    loop.NoteEvent
	Nominal int64 // due frame on the grid
	Frame   int64 // start frame after humanization
	Cycle   int64
}

type Options struct {
	// Humanize returns a timing offset in seconds for one note.
	Humanize  func() float64
	OnTrigger func(Dispatch)
	// OnCycle receives the number of completed loop cycles.
	OnCycle func(completed int64)
	Logger  *log.Logger
}

// Jitter returns a uniform offset source over [-half, +half).
func Jitter(half time.Duration) func() float64 {
	h := half.Seconds()
	return func() float64 {
		return rand.Float64()*2*h - h
	}
}

type trackState struct {
	id    string
	muted atomic.Bool
	unit  *instrument.Unit
}

// part is the set of clock registrations playing one track.
type part struct {
	track   *trackState
	handles []transport.Handle
}

func (p *part) dispose(c *transport.Clock) {
	for _, h := range p.handles {
		c.Cancel(h)
	}
	p.handles = nil
}

// Scheduler turns a loaded loop into periodic clock registrations that
// trigger instrument units. It is not safe for concurrent use; the owner
// serializes calls with rendering.
type Scheduler struct {
	clock      *transport.Clock
	bank       *instrument.Bank
	sampleRate int
	opts       Options
	generation transport.Owner
	parts      []*part
	tracks     map[string]*trackState
	skipped    int
}

func New(clock *transport.Clock, bank *instrument.Bank, sampleRate int, opts Options) *Scheduler {
	if opts.Humanize == nil {
		opts.Humanize = Jitter(DefaultHumanize)
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Scheduler{
		clock:      clock,
		bank:       bank,
		sampleRate: sampleRate,
		opts:       opts,
		tracks:     make(map[string]*trackState),
	}
}

// Load discards everything scheduled for the previous loop and registers the
// new one. The caller stops the transport first.
func (s *Scheduler) Load(l *loop.Loop) {
	s.Unload()
	bpm := l.Tempo()
	s.clock.SetBPM(bpm)
	s.generation++
	owner := s.generation

	for _, t := range l.Tracks {
		if len(t.Notes) == 0 {
			continue
		}
		ts := &trackState{id: t.ID, unit: s.bank.GetOrCreate(t)}
		ts.muted.Store(t.Muted)
		s.tracks[t.ID] = ts
		p := &part{track: ts}
		for _, n := range t.Notes {
			tick, err := loop.PositionTicks(n.Time, bpm)
			if err != nil {
				s.skip(t.ID, n, err.Error())
				continue
			}
			note := &scheduledNote{event: n}
			h := s.clock.Register(owner, tick, loop.LoopTicks, func(ev transport.Event) {
				s.fire(ts, note, ev)
			})
			p.handles = append(p.handles, h)
		}
		s.parts = append(s.parts, p)
	}
	s.clock.Register(owner, loop.LoopTicks, loop.LoopTicks, func(ev transport.Event) {
		if s.opts.OnCycle != nil {
			s.opts.OnCycle(ev.Cycle + 1)
		}
	})
}

// Unload cancels every outstanding registration and tears down instruments.
func (s *Scheduler) Unload() {
	s.clock.CancelAll()
	for _, p := range s.parts {
		p.dispose(s.clock)
	}
	s.parts = nil
	s.tracks = make(map[string]*trackState)
	s.bank.Dispose()
	s.skipped = 0
}

func (s *Scheduler) skip(trackID string, n loop.NoteEvent, reason string) {
	s.skipped++
	s.opts.Logger.Printf("warning: track %q: skipping note at %q: %s", trackID, n.Time, reason)
}

type scheduledNote struct {
	event  loop.NoteEvent
	warned bool
}

func (s *Scheduler) fire(ts *trackState, n *scheduledNote, ev transport.Event) {
	if ts.muted.Load() {
		return
	}
	at := ev.Frame + int64(math.Round(s.opts.Humanize()*float64(s.sampleRate)))
	if at < 0 {
		at = 0
	}
	if err := s.trigger(ts, n.event, at); err != nil {
		if !n.warned {
			n.warned = true
			s.opts.Logger.Printf("warning: track %q: note %q at %q failed: %v", ts.id, n.event.Note, n.event.Time, err)
		}
		return
	}
	if s.opts.OnTrigger != nil {
		s.opts.OnTrigger(Dispatch{TrackID: ts.id, Note: n.event, Nominal: ev.Frame, Frame: at, Cycle: ev.Cycle})
	}
}

// maxNoteSeconds bounds how long a single note may hold.
const maxNoteSeconds = 60

func (s *Scheduler) trigger(ts *trackState, n loop.NoteEvent, at int64) error {
	dur, err := loop.ParseDuration(n.Duration)
	if err != nil {
		return err
	}
	secs := math.Min(dur.SecondsAt(s.clock.BPM()), maxNoteSeconds)
	length := int64(math.Round(secs * float64(s.sampleRate)))
	return ts.unit.Trigger(instrument.Note{
		Pitch:    n.Note,
		Frame:    at,
		Length:   length,
		Velocity: n.Velocity,
	})
}

// SetMuted flips a track's mute flag. It reports false for unknown tracks.
func (s *Scheduler) SetMuted(trackID string, muted bool) bool {
	ts, ok := s.tracks[trackID]
	if !ok {
		return false
	}
	ts.muted.Store(muted)
	return true
}

func (s *Scheduler) Muted(trackID string) (muted, ok bool) {
	ts, ok := s.tracks[trackID]
	if !ok {
		return false, false
	}
	return ts.muted.Load(), true
}

// Parts returns the number of scheduled tracks.
func (s *Scheduler) Parts() int { return len(s.parts) }

// Skipped returns the number of notes dropped at load time.
func (s *Scheduler) Skipped() int { return s.skipped }
