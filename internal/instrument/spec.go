package instrument

import (
	"math"

	"github.com/cbegin/loopgen-go/internal/fm"
	"github.com/cbegin/loopgen-go/internal/loop"
	"github.com/cbegin/loopgen-go/internal/membrane"
	"github.com/cbegin/loopgen-go/internal/metal"
	"github.com/cbegin/loopgen-go/internal/poly"
)

// Kind selects how a unit is triggered.
type Kind int

const (
	// MonoPitched units play one pitch at a time.
	MonoPitched Kind = iota
	// PolyPitched units play overlapping pitches.
	PolyPitched
	// Unpitched units ignore the note's pitch.
	Unpitched
)

func (k Kind) String() string {
	switch k {
	case MonoPitched:
		return "mono"
	case PolyPitched:
		return "poly"
	case Unpitched:
		return "unpitched"
	}
	return "unknown"
}

// Voice is a synthesis engine as the bank drives it.
type Voice interface {
	NoteOff(id int)
	RenderFrame() (float32, float32)
	ActiveVoiceCount() int
	Reset()
}

// PitchedVoice starts notes at a frequency.
type PitchedVoice interface {
	Voice
	NoteOn(freq float64, velocity float64) int
}

// StrikeVoice starts notes with no pitch.
type StrikeVoice interface {
	Voice
	Strike(velocity float64) int
}

// Spec describes how to build the unit for one instrument type.
type Spec struct {
	Kind     Kind
	VolumeDB float64
	HighPass float64 // post-filter cutoff in Hz, 0 = none
	Build    func(sampleRate int) (Voice, error)
}

// DefaultSpecs is the per-type configuration table.
func DefaultSpecs() map[loop.InstrumentType]Spec {
	return map[loop.InstrumentType]Spec{
		loop.Kick: {
			Kind: MonoPitched,
			Build: func(sr int) (Voice, error) {
				return membrane.New(sr, membrane.KickParams())
			},
		},
		loop.Snare: {
			Kind:     MonoPitched,
			VolumeDB: -2,
			Build: func(sr int) (Voice, error) {
				return membrane.New(sr, membrane.SnareParams())
			},
		},
		loop.HiHat: {
			Kind:     Unpitched,
			VolumeDB: -8,
			HighPass: 1500,
			Build: func(sr int) (Voice, error) {
				return metal.New(sr, metal.HiHatParams())
			},
		},
		loop.Bass: {
			Kind:     MonoPitched,
			VolumeDB: -4,
			Build: func(sr int) (Voice, error) {
				return fm.New(sr, fm.BassParams())
			},
		},
		loop.Synth: {
			Kind:     PolyPitched,
			VolumeDB: -8,
			Build: func(sr int) (Voice, error) {
				return poly.New(sr, poly.PadParams())
			},
		},
		loop.Pluck: {
			Kind:     PolyPitched,
			VolumeDB: -6,
			Build: func(sr int) (Voice, error) {
				return poly.New(sr, poly.PluckParams())
			},
		},
	}
}

// FallbackSpec is used for unknown types and for types whose construction fails.
func FallbackSpec() Spec {
	return Spec{
		Kind: PolyPitched,
		Build: func(sr int) (Voice, error) {
			return poly.New(sr, poly.DefaultParams())
		},
	}
}

func dbToGain(db float64) float32 {
	return float32(math.Pow(10, db/20))
}
