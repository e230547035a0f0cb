package membrane

import (
	"errors"
	"math"

	"github.com/cbegin/loopgen-go/internal/envelope"
)

const twoPi = math.Pi * 2

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSquare
	WaveTriangle
)

// Params describes a pitched drum: the oscillator starts Octaves above the
// played pitch and glides down to it over PitchDecay seconds.
type Params struct {
	PitchDecay float64
	Octaves    float64
	Wave       Waveform
	Env        envelope.ADSR
	MasterGain float64
}

func DefaultParams() Params {
	return KickParams()
}

func KickParams() Params {
	return Params{
		PitchDecay: 0.05,
		Octaves:    10,
		Wave:       WaveSine,
		Env:        envelope.ADSR{Attack: 0.001, Decay: 0.4, Sustain: 0.01, Release: 1.4},
		MasterGain: 0.9,
	}
}

func SnareParams() Params {
	return Params{
		PitchDecay: 0.01,
		Octaves:    4,
		Wave:       WaveSquare,
		Env:        envelope.ADSR{Attack: 0.001, Decay: 0.2, Sustain: 0, Release: 0.2},
		MasterGain: 0.5,
	}
}

func (p Params) Validate() error {
	if p.PitchDecay < 0 {
		return errors.New("membrane: pitch decay must be non-negative")
	}
	if p.Octaves < 1 {
		return errors.New("membrane: octaves must be at least 1")
	}
	return p.Env.Validate()
}

// Engine is a monophonic membrane drum.
type Engine struct {
	sampleRate float64
	params     Params
	env        envelope.Env
	phase      float64
	freq       float64
	target     float64
	glide      float64 // per-frame frequency ratio during the pitch drop
	glideLeft  int
	velocity   float64
	currentID  int
	nextID     int
}

func New(sampleRate int, params Params) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("membrane: sample rate must be positive")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		env:        envelope.New(sampleRate, params.Env),
		currentID:  -1,
	}, nil
}

func (e *Engine) NoteOn(freq float64, velocity float64) int {
	id := e.nextID
	e.nextID++
	e.currentID = id
	e.velocity = clamp(velocity, 0, 1)
	e.target = freq
	e.freq = freq * e.params.Octaves
	e.glideLeft = int(e.params.PitchDecay * e.sampleRate)
	if e.glideLeft > 0 {
		// exponential ramp from freq*octaves down to freq
		e.glide = math.Pow(1/e.params.Octaves, 1/float64(e.glideLeft))
	} else {
		e.freq = freq
	}
	e.phase = 0
	e.env.Trigger()
	return id
}

func (e *Engine) NoteOff(id int) {
	if id == e.currentID {
		e.env.Release()
	}
}

func (e *Engine) ActiveVoiceCount() int {
	if e.env.Active() {
		return 1
	}
	return 0
}

func (e *Engine) RenderFrame() (float32, float32) {
	if !e.env.Active() {
		return 0, 0
	}
	amp := e.env.Next()
	sig := e.wave() * amp * e.velocity * e.params.MasterGain
	e.phase += e.freq / e.sampleRate
	if e.phase >= 1 {
		e.phase -= 1
	}
	if e.glideLeft > 0 {
		e.glideLeft--
		e.freq *= e.glide
		if e.glideLeft == 0 {
			e.freq = e.target
		}
	}
	s := float32(clamp(sig, -1, 1))
	return s, s
}

func (e *Engine) wave() float64 {
	switch e.params.Wave {
	case WaveSquare:
		if e.phase < 0.5 {
			return 1
		}
		return -1
	case WaveTriangle:
		return 2*math.Abs(2*e.phase-1) - 1
	default:
		return math.Sin(twoPi * e.phase)
	}
}

func (e *Engine) Reset() {
	e.env.Reset()
	e.currentID = -1
	e.glideLeft = 0
}

// Frequency reports the oscillator's current frequency.
func (e *Engine) Frequency() float64 { return e.freq }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
