package fm

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
	WaveSaw
)

// Params configures a monophonic two-operator FM voice: a modulator feeding
// the phase of a carrier.
type Params struct {
	Harmonicity float64   // modulator frequency / carrier frequency
	ModIndex    float64   // peak phase deviation in radians
	Partials    []float64 // carrier harmonic amplitudes; empty means sine
	ModWave     Waveform
	Amp         envelope.ADSR
	Mod         envelope.ADSR
	MasterGain  float64
	LPFCutoff   float64 // lowpass filter cutoff in Hz (0 = disabled)
}

func DefaultParams() Params {
	return Params{
		Harmonicity: 3,
		ModIndex:    10,
		ModWave:     WaveSine,
		Amp:         envelope.ADSR{Attack: 0.01, Decay: 0.01, Sustain: 1, Release: 0.5},
		Mod:         envelope.ADSR{Attack: 0.5, Decay: 0, Sustain: 1, Release: 0.5},
		MasterGain:  0.5,
	}
}

// BassParams is a hollow FM bass: even-harmonic carrier under a square modulator.
func BassParams() Params {
	return Params{
		Harmonicity: 1,
		ModIndex:    3.5,
		Partials:    []float64{0, 1, 0, 2},
		ModWave:     WaveSquare,
		Amp:         envelope.ADSR{Attack: 0.01, Decay: 0.2, Sustain: 0.8, Release: 0.5},
		Mod:         envelope.ADSR{Attack: 0.1, Decay: 0.2, Sustain: 0.3, Release: 0.01},
		MasterGain:  0.6,
		LPFCutoff:   6000,
	}
}

func (p Params) Validate() error {
	if p.Harmonicity <= 0 {
		return errors.New("fm: harmonicity must be positive")
	}
	if p.ModIndex < 0 {
		return errors.New("fm: modulation index must be non-negative")
	}
	if err := p.Amp.Validate(); err != nil {
		return err
	}
	return p.Mod.Validate()
}

type operator struct {
	phase float64
	env   envelope.Env
}

// Engine plays one note at a time; a new note retriggers the sounding one.
type Engine struct {
	sampleRate float64
	params     Params
	partials   []float64
	carrier    operator
	modulator  operator
	freq       float64
	velocity   float64
	currentID  int
	nextID     int
	lpfL       float64
	lpfR       float64
	lpfAlpha   float64
}

func New(sampleRate int, params Params) (*Engine, error) {
	if sampleRate <= 0 {
		return nil, errors.New("fm: sample rate must be positive")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		sampleRate: float64(sampleRate),
		params:     params,
		partials:   normalizePartials(params.Partials),
		carrier:    operator{env: envelope.New(sampleRate, params.Amp)},
		modulator:  operator{env: envelope.New(sampleRate, params.Mod)},
		currentID:  -1,
	}
	if params.LPFCutoff > 0 && params.LPFCutoff < float64(sampleRate)/2 {
		rc := 1.0 / (twoPi * params.LPFCutoff)
		dt := 1.0 / float64(sampleRate)
		e.lpfAlpha = dt / (rc + dt)
	}
	return e, nil
}

func normalizePartials(p []float64) []float64 {
	var sum float64
	for _, a := range p {
		sum += math.Abs(a)
	}
	if sum == 0 {
		return nil
	}
	out := make([]float64, len(p))
	for i, a := range p {
		out[i] = a / sum
	}
	return out
}

func (e *Engine) NoteOn(freq float64, velocity float64) int {
	id := e.nextID
	e.nextID++
	e.currentID = id
	e.freq = freq
	e.velocity = clamp(velocity, 0, 1)
	if !e.carrier.env.Active() {
		e.carrier.phase = 0
		e.modulator.phase = 0
	}
	e.carrier.env.Trigger()
	e.modulator.env.Trigger()
	return id
}

// NoteOff releases the voice only if id is still the sounding note.
func (e *Engine) NoteOff(id int) {
	if id != e.currentID {
		return
	}
	e.carrier.env.Release()
	e.modulator.env.Release()
}

func (e *Engine) ActiveVoiceCount() int {
	if e.carrier.env.Active() {
		return 1
	}
	return 0
}

func (e *Engine) RenderFrame() (float32, float32) {
	if !e.carrier.env.Active() {
		return e.filter(0)
	}
	amp := e.carrier.env.Next()
	modEnv := e.modulator.env.Next()
	mod := waveformSample(e.modulator.phase, e.params.ModWave) * modEnv * e.params.ModIndex
	sig := e.carrierSample(e.carrier.phase+mod) * amp * e.velocity * e.params.MasterGain

	e.carrier.phase += twoPi * e.freq / e.sampleRate
	if e.carrier.phase > twoPi {
		e.carrier.phase -= twoPi
	}
	e.modulator.phase += twoPi * e.freq * e.params.Harmonicity / e.sampleRate
	if e.modulator.phase > twoPi {
		e.modulator.phase -= twoPi
	}
	return e.filter(sig)
}

func (e *Engine) filter(sig float64) (float32, float32) {
	l, r := sig, sig
	if e.lpfAlpha > 0 {
		e.lpfL += e.lpfAlpha * (l - e.lpfL)
		e.lpfR += e.lpfAlpha * (r - e.lpfR)
		l, r = e.lpfL, e.lpfR
	}
	return float32(clamp(l, -1, 1)), float32(clamp(r, -1, 1))
}

// carrierSample sums the configured harmonics, or a plain sine.
func (e *Engine) carrierSample(phase float64) float64 {
	if len(e.partials) == 0 {
		return math.Sin(phase)
	}
	var s float64
	for i, a := range e.partials {
		if a != 0 {
			s += a * math.Sin(float64(i+1)*phase)
		}
	}
	return s
}

// Reset silences the voice immediately.
func (e *Engine) Reset() {
	e.carrier.env.Reset()
	e.modulator.env.Reset()
	e.currentID = -1
	e.lpfL, e.lpfR = 0, 0
}

func waveformSample(phase float64, waveform Waveform) float64 {
	switch waveform {
	case WaveSaw:
		return 1.0 - 2.0*math.Mod(phase, twoPi)/twoPi
	case WaveTriangle:
		return 2.0*math.Abs(2.0*math.Mod(phase, twoPi)/twoPi-1.0) - 1.0
	case WaveSquare:
		if math.Mod(phase, twoPi) < math.Pi {
			return 1.0
		}
		return -1.0
	default:
		return math.Sin(phase)
	}
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
