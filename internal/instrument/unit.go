package instrument

import (
	"errors"
	"fmt"

	"github.com/cbegin/loopgen-go/internal/effects"
	"github.com/cbegin/loopgen-go/internal/loop"
)

// ErrDisposed is returned when triggering a unit that has been torn down.
var ErrDisposed = errors.New("instrument disposed")

// Note is a fully timed trigger for a unit.
type Note struct {
	Pitch    string // resolved by pitched units, ignored by unpitched ones
	Frame    int64  // absolute start frame
	Length   int64  // frames until release
	Velocity float64
}

type event struct {
	frame int64
	key   uint64
	on    func() int // nil for a release
}

// Unit is one track's synthesis chain. All methods must be called from the
// render goroutine or under the owner's lock.
type Unit struct {
	ID       string
	Type     loop.InstrumentType
	Kind     Kind
	Fallback bool

	voice    Voice
	post     effects.Effector
	gain     float32
	trigger  func(Note) error
	queue    []event
	live     map[uint64]int
	nextKey  uint64
	disposed bool
}

func newUnit(id string, typ loop.InstrumentType, spec Spec, voice Voice, sampleRate int) (*Unit, error) {
	u := &Unit{
		ID:    id,
		Type:  typ,
		Kind:  spec.Kind,
		voice: voice,
		gain:  dbToGain(spec.VolumeDB),
		live:  make(map[uint64]int),
	}
	if spec.HighPass > 0 {
		u.post = effects.NewHighPass(sampleRate, spec.HighPass, 1)
	}
	switch spec.Kind {
	case MonoPitched, PolyPitched:
		pv, ok := voice.(PitchedVoice)
		if !ok {
			return nil, fmt.Errorf("%s voice %T cannot play pitches", typ, voice)
		}
		u.trigger = func(n Note) error {
			freq, err := loop.Frequency(n.Pitch)
			if err != nil {
				return err
			}
			vel := clampVelocity(n.Velocity)
			u.schedule(n, func() int { return pv.NoteOn(freq, vel) })
			return nil
		}
	case Unpitched:
		sv, ok := voice.(StrikeVoice)
		if !ok {
			return nil, fmt.Errorf("%s voice %T cannot be struck", typ, voice)
		}
		u.trigger = func(n Note) error {
			vel := clampVelocity(n.Velocity)
			u.schedule(n, func() int { return sv.Strike(vel) })
			return nil
		}
	default:
		return nil, fmt.Errorf("unknown instrument kind %d", spec.Kind)
	}
	return u, nil
}

// Trigger schedules an attack at n.Frame and a release n.Length frames later.
func (u *Unit) Trigger(n Note) error {
	if u.disposed {
		return ErrDisposed
	}
	return u.trigger(n)
}

func (u *Unit) schedule(n Note, on func() int) {
	if n.Length < 1 {
		n.Length = 1
	}
	u.nextKey++
	key := u.nextKey
	u.insert(event{frame: n.Frame, key: key, on: on})
	u.insert(event{frame: n.Frame + n.Length, key: key})
}

// insert keeps the queue ordered by frame, FIFO among equal frames.
func (u *Unit) insert(ev event) {
	i := len(u.queue)
	for i > 0 && u.queue[i-1].frame > ev.frame {
		i--
	}
	u.queue = append(u.queue, event{})
	copy(u.queue[i+1:], u.queue[i:])
	u.queue[i] = ev
}

// Render applies events due at frame and returns the unit's output.
func (u *Unit) Render(frame int64) (float32, float32) {
	for len(u.queue) > 0 && u.queue[0].frame <= frame {
		ev := u.queue[0]
		u.queue = u.queue[1:]
		if ev.on != nil {
			u.live[ev.key] = ev.on()
			continue
		}
		if id, ok := u.live[ev.key]; ok {
			u.voice.NoteOff(id)
			delete(u.live, ev.key)
		}
	}
	l, r := u.voice.RenderFrame()
	if u.post != nil {
		l, r = u.post.Process(l, r)
	}
	return l * u.gain, r * u.gain
}

// CancelPending drops attacks scheduled at or after frame. Notes already
// sounding keep their releases.
func (u *Unit) CancelPending(frame int64) {
	dropped := make(map[uint64]struct{})
	kept := u.queue[:0]
	for _, ev := range u.queue {
		if ev.on != nil && ev.frame >= frame {
			dropped[ev.key] = struct{}{}
			continue
		}
		if _, ok := dropped[ev.key]; ok && ev.on == nil {
			continue
		}
		kept = append(kept, ev)
	}
	u.queue = kept
}

// Pending returns the number of queued attacks and releases.
func (u *Unit) Pending() int { return len(u.queue) }

// Sounding returns the number of voices still producing output.
func (u *Unit) Sounding() int { return u.voice.ActiveVoiceCount() }

// Dispose silences the unit and rejects further triggers.
func (u *Unit) Dispose() {
	u.voice.Reset()
	u.queue = nil
	clear(u.live)
	u.disposed = true
}

func clampVelocity(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
