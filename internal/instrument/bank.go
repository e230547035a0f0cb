package instrument

import (
	"errors"
	"fmt"
	"log"

	"github.com/cbegin/loopgen-go/internal/loop"
)

var errNoBuilder = errors.New("no builder for instrument")

type Option func(*Bank)

// WithSpecs replaces the per-type configuration table.
func WithSpecs(specs map[loop.InstrumentType]Spec) Option {
	return func(b *Bank) {
		b.specs = specs
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(b *Bank) {
		b.logger = logger
	}
}

// Bank owns one synthesis unit per track id and mixes their output.
type Bank struct {
	sampleRate int
	specs      map[loop.InstrumentType]Spec
	fallback   Spec
	units      map[string]*Unit
	order      []*Unit
	logger     *log.Logger
}

func NewBank(sampleRate int, opts ...Option) *Bank {
	b := &Bank{
		sampleRate: sampleRate,
		specs:      DefaultSpecs(),
		fallback:   FallbackSpec(),
		units:      make(map[string]*Unit),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// GetOrCreate returns the unit for track.ID, building it on first use.
// Construction failures fall back to the generic polyphonic unit.
func (b *Bank) GetOrCreate(track loop.Track) *Unit {
	if u, ok := b.units[track.ID]; ok {
		return u
	}
	spec, known := b.specs[track.Type]
	if !known {
		spec = b.fallback
	}
	fallback := !known
	u, err := b.build(track, spec)
	if err != nil {
		b.logger.Printf("warning: instrument %q (%s) failed to build, using fallback: %v", track.ID, track.Type, err)
		fallback = true
		if u, err = b.build(track, b.fallback); err != nil {
			b.logger.Printf("warning: fallback instrument for %q failed, track will be silent: %v", track.ID, err)
			u, _ = newUnit(track.ID, track.Type, Spec{Kind: PolyPitched}, silence{}, b.sampleRate)
		}
	}
	u.Fallback = fallback
	b.units[track.ID] = u
	b.order = append(b.order, u)
	return u
}

func (b *Bank) build(track loop.Track, spec Spec) (u *Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			u, err = nil, fmt.Errorf("build panicked: %v", r)
		}
	}()
	if spec.Build == nil {
		return nil, errNoBuilder
	}
	voice, err := spec.Build(b.sampleRate)
	if err != nil {
		return nil, err
	}
	return newUnit(track.ID, track.Type, spec, voice, b.sampleRate)
}

func (b *Bank) Get(id string) (*Unit, bool) {
	u, ok := b.units[id]
	return u, ok
}

func (b *Bank) Len() int { return len(b.order) }

// Units returns units in creation order.
func (b *Bank) Units() []*Unit {
	return append([]*Unit(nil), b.order...)
}

// Render mixes every unit for one frame.
func (b *Bank) Render(frame int64) (float32, float32) {
	var l, r float32
	for _, u := range b.order {
		ul, ur := u.Render(frame)
		l += ul
		r += ur
	}
	return l, r
}

// CancelPending drops queued attacks at or after frame on every unit.
func (b *Bank) CancelPending(frame int64) {
	for _, u := range b.order {
		u.CancelPending(frame)
	}
}

// Dispose tears down every unit and empties the bank.
func (b *Bank) Dispose() {
	for _, u := range b.order {
		u.Dispose()
	}
	b.units = make(map[string]*Unit)
	b.order = nil
}

type silence struct{}

func (silence) NoteOn(float64, float64) int     { return 0 }
func (silence) NoteOff(int)                     {}
func (silence) RenderFrame() (float32, float32) { return 0, 0 }
func (silence) ActiveVoiceCount() int           { return 0 }
func (silence) Reset()                          {}
