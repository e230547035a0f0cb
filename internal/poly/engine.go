package poly

import (
	"errors"
	"fmt"
	"math"

	"github.com/cbegin/loopgen-go/internal/envelope"
)

const twoPi = math.Pi * 2

type Oscillator string

const (
	OscSine        Oscillator = "sine"
	OscTriangle    Oscillator = "triangle"
	OscSquare      Oscillator = "square"
	OscSawtooth    Oscillator = "sawtooth"
	OscFatSawtooth Oscillator = "fatsawtooth"
)

type Params struct {
	Voices     int
	Oscillator Oscillator
	FatCount   int     // detuned copies for fat oscillators
	FatSpread  float64 // total detune spread in cents
	Env        envelope.ADSR
	MasterGain float64
}

func DefaultParams() Params {
	return Params{
		Voices:     32,
		Oscillator: OscTriangle,
		Env:        envelope.ADSR{Attack: 0.005, Decay: 0.1, Sustain: 0.3, Release: 1},
		MasterGain: 0.35,
	}
}

// PadParams is a detuned sawtooth chord voice.
func PadParams() Params {
	return Params{
		Voices:     32,
		Oscillator: OscFatSawtooth,
		FatCount:   3,
		FatSpread:  20,
		Env:        envelope.ADSR{Attack: 0.05, Decay: 0.3, Sustain: 0.3, Release: 1},
		MasterGain: 0.3,
	}
}

// PluckParams is a short triangle pluck.
func PluckParams() Params {
	return Params{
		Voices:     32,
		Oscillator: OscTriangle,
		Env:        envelope.ADSR{Attack: 0.01, Decay: 0.3, Sustain: 0, Release: 0.3},
		MasterGain: 0.4,
	}
}

func (p Params) Validate() error {
	switch p.Oscillator {
	case OscSine, OscTriangle, OscSquare, OscSawtooth:
	case OscFatSawtooth:
		if p.FatCount <= 0 {
			return errors.New("poly: fat oscillator needs at least one voice")
		}
	default:
		return fmt.Errorf("poly: unknown oscillator %q", p.Oscillator)
	}
	return p.Env.Validate()
}

type voice struct {
	active   bool
	id       int
	age      int
	freq     float64
	phases   []float64
	detune   []float64
	velocity float64
	env      envelope.Env
}

type Engine struct {
	sampleRate float64
	params     Params
	voices     []voice
	nextID     int
	dcPrevInL  float64
	dcPrevOutL float64
	dcPrevInR  float64
	dcPrevOutR float64
}

func New(sampleRate int, params Params) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("poly: sample rate must be positive")
	}
	if params.Voices <= 0 {
		params.Voices = 32
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		voices:     make([]voice, params.Voices),
	}
	detune := detuneRatios(params)
	for i := range e.voices {
		e.voices[i].env = envelope.New(sampleRate, params.Env)
		e.voices[i].detune = detune
		e.voices[i].phases = make([]float64, len(detune))
	}
	return e, nil
}

// detuneRatios spreads fat copies evenly across the configured cents.
func detuneRatios(p Params) []float64 {
	if p.Oscillator != OscFatSawtooth || p.FatCount == 1 {
		return []float64{1}
	}
	out := make([]float64, p.FatCount)
	for i := range out {
		cents := -p.FatSpread/2 + p.FatSpread*float64(i)/float64(p.FatCount-1)
		out[i] = math.Pow(2, cents/1200)
	}
	return out
}

func (e *Engine) NoteOn(freq float64, velocity float64) int {
	slot := e.stealVoice()
	id := e.nextID
	e.nextID++
	v := &e.voices[slot]
	v.active = true
	v.id = id
	v.age = 0
	v.freq = freq
	v.velocity = clamp(velocity, 0, 1)
	for i := range v.phases {
		// stagger fat copies so they don't start phase-locked
		v.phases[i] = float64(i) / float64(len(v.phases))
	}
	v.env.Reset()
	v.env.Trigger()
	return id
}

func (e *Engine) NoteOff(id int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.id == id {
			v.env.Release()
		}
	}
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) RenderFrame() (float32, float32) {
	var sig float64
	gain := e.params.MasterGain
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		v.age++
		env := v.env.Next()
		if !v.env.Active() {
			v.active = false
			continue
		}
		sig += e.renderWave(v) * env * v.velocity * gain
	}
	l := e.dcBlockL(sig)
	r := e.dcBlockR(sig)
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

func (e *Engine) dcBlockL(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevInL + r*e.dcPrevOutL
	e.dcPrevInL = x
	e.dcPrevOutL = y
	return y
}

func (e *Engine) dcBlockR(x float64) float64 {
	const r = 0.995
	y := x - e.dcPrevInR + r*e.dcPrevOutR
	e.dcPrevInR = x
	e.dcPrevOutR = y
	return y
}

// polyBLEP reduces aliasing at waveform discontinuities.
// t is the phase position [0,1), dt is the phase increment per sample.
func polyBLEP(t, dt float64) float64 {
	if t < dt {
		t /= dt
		return t + t - t*t - 1
	}
	if t > 1-dt {
		t = (t - 1) / dt
		return t*t + t + t + 1
	}
	return 0
}

func (e *Engine) renderWave(v *voice) float64 {
	var out float64
	for i := range v.phases {
		dt := v.freq * v.detune[i] / e.sampleRate
		p := v.phases[i] + dt
		if p >= 1 {
			p -= 1
		}
		v.phases[i] = p
		switch e.params.Oscillator {
		case OscSawtooth, OscFatSawtooth:
			out += 2*p - 1 - polyBLEP(p, dt)
		case OscSquare:
			s := -1.0
			if p < 0.5 {
				s = 1
			}
			s += polyBLEP(p, dt)
			s -= polyBLEP(math.Mod(p+0.5, 1), dt)
			out += s
		case OscTriangle:
			out += 2*math.Abs(2*p-1) - 1
		default:
			out += math.Sin(twoPi * p)
		}
	}
	return out / float64(len(v.phases))
}

func (e *Engine) stealVoice() int {
	// Prefer an inactive slot.
	for i := range e.voices {
		if !e.voices[i].active {
			return i
		}
	}
	// Steal the oldest releasing voice, or failing that the oldest active voice.
	oldestRelease := -1
	oldestReleaseAge := -1
	oldestActive := 0
	oldestActiveAge := -1
	for i := range e.voices {
		v := &e.voices[i]
		if v.env.Stage() == envelope.Release && v.age > oldestReleaseAge {
			oldestRelease = i
			oldestReleaseAge = v.age
		}
		if v.age > oldestActiveAge {
			oldestActive = i
			oldestActiveAge = v.age
		}
	}
	if oldestRelease >= 0 {
		return oldestRelease
	}
	return oldestActive
}

// Reset silences every voice immediately.
func (e *Engine) Reset() {
	for i := range e.voices {
		e.voices[i].active = false
		e.voices[i].env.Reset()
	}
	e.dcPrevInL, e.dcPrevOutL, e.dcPrevInR, e.dcPrevOutR = 0, 0, 0, 0
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
