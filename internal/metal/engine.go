package metal

import (
	"errors"
	"math"

	"github.com/cbegin/loopgen-go/internal/envelope"
)

const twoPi = math.Pi * 2

// inharmonic ratios of the six oscillator pairs
var partialRatios = [6]float64{1.0, 1.483, 1.932, 2.546, 2.630, 3.897}

// Params describes a cymbal-like tone with no definite pitch: six square FM
// pairs at inharmonic ratios, high-passed by a cutoff that sweeps down with
// the envelope.
type Params struct {
	Frequency   float64 // base frequency of the lowest pair
	Harmonicity float64
	ModIndex    float64
	Resonance   float64 // resting high-pass cutoff in Hz
	Octaves     float64 // cutoff sweep above Resonance at envelope peak
	Env         envelope.ADSR
	MasterGain  float64
}

func DefaultParams() Params {
	return HiHatParams()
}

func HiHatParams() Params {
	return Params{
		Frequency:   400,
		Harmonicity: 5.1,
		ModIndex:    32,
		Resonance:   4000,
		Octaves:     1.5,
		Env:         envelope.ADSR{Attack: 0.001, Decay: 0.05, Sustain: 0, Release: 0.01},
		MasterGain:  0.4,
	}
}

func (p Params) Validate() error {
	if p.Frequency <= 0 || p.Harmonicity <= 0 {
		return errors.New("metal: frequency and harmonicity must be positive")
	}
	if p.Resonance <= 0 || p.Octaves < 0 {
		return errors.New("metal: invalid resonance sweep")
	}
	return p.Env.Validate()
}

type pair struct {
	carrier   float64
	modulator float64
}

// Engine is a monophonic metallic percussion voice.
type Engine struct {
	sampleRate float64
	params     Params
	pairs      [6]pair
	env        envelope.Env
	velocity   float64
	currentID  int
	nextID     int
	hpPrevIn   float64
	hpPrevOut  float64
}

func New(sampleRate int, params Params) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("metal: sample rate must be positive")
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

// Strike starts the voice. There is no pitch argument.
func (e *Engine) Strike(velocity float64) int {
	id := e.nextID
	e.nextID++
	e.currentID = id
	e.velocity = clamp(velocity, 0, 1)
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
	var sum float64
	for i := range e.pairs {
		p := &e.pairs[i]
		f := e.params.Frequency * partialRatios[i]
		mod := square(p.modulator) * e.params.ModIndex
		sum += square(p.carrier + mod/twoPi)
		p.carrier = wrap(p.carrier + f/e.sampleRate)
		p.modulator = wrap(p.modulator + f*e.params.Harmonicity/e.sampleRate)
	}
	sum /= float64(len(e.pairs))

	cutoff := e.params.Resonance * math.Pow(2, e.params.Octaves*amp)
	sig := e.highPass(sum, cutoff) * amp * e.velocity * e.params.MasterGain
	s := float32(clamp(sig, -1, 1))
	return s, s
}

// highPass is a one-pole RC high-pass with a per-frame cutoff.
func (e *Engine) highPass(x, cutoff float64) float64 {
	if cutoff >= e.sampleRate/2 {
		cutoff = e.sampleRate/2 - 1
	}
	rc := 1.0 / (twoPi * cutoff)
	dt := 1.0 / e.sampleRate
	a := rc / (rc + dt)
	y := a * (e.hpPrevOut + x - e.hpPrevIn)
	e.hpPrevIn = x
	e.hpPrevOut = y
	return y
}

func (e *Engine) Reset() {
	e.env.Reset()
	e.currentID = -1
	e.hpPrevIn, e.hpPrevOut = 0, 0
}

func square(phase float64) float64 {
	if phase-math.Floor(phase) < 0.5 {
		return 1
	}
	return -1
}

func wrap(p float64) float64 {
	if p >= 1 {
		return p - 1
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
