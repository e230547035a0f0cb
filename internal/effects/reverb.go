package effects

import "math"

// Reverb implements a Schroeder-style reverb with multiple comb filters
// and two allpass filters. Comb feedback is derived from a target decay time.
type Reverb struct {
	sampleRate int
	decay      float64
	wet        float32
	combs      [4]combFilter
	allpass    [2]allpassFilter
	ready      bool
}

type combFilter struct {
	buf []float32
	pos int
	fb  float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// delay line lengths in milliseconds (mutually prime-ish to avoid resonances)
var (
	combMs    = [4]float64{29.7, 37.1, 41.1, 43.7}
	allpassMs = [2]float64{5.0, 1.7}
)

// NewReverb creates a reverb effect.
// decaySec: time for the tail to fall by 60 dB
// wet: wet/dry mix 0..1
//
// The delay lines are not allocated until Generate is called; before that the
// reverb passes the dry signal through unchanged.
func NewReverb(sampleRate int, decaySec float64, wet float32) *Reverb {
	if decaySec <= 0 {
		decaySec = 0.001
	}
	return &Reverb{sampleRate: sampleRate, decay: decaySec, wet: clamp(wet, 0, 1)}
}

// Generate allocates the delay lines for the configured decay.
func (r *Reverb) Generate() {
	if r.ready {
		return
	}
	for i := range r.combs {
		n := msToFrames(r.sampleRate, combMs[i])
		// feedback for a 60 dB drop over the decay time
		g := math.Pow(10, -3*float64(n)/(r.decay*float64(r.sampleRate)))
		r.combs[i] = combFilter{buf: make([]float32, n), fb: float32(math.Min(g, 0.98))}
	}
	for i := range r.allpass {
		r.allpass[i] = allpassFilter{buf: make([]float32, msToFrames(r.sampleRate, allpassMs[i])), fb: 0.5}
	}
	r.ready = true
}

func (r *Reverb) Ready() bool { return r.ready }

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	if !r.ready {
		return l, r2
	}
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return l*(1-r.wet) + out*r.wet, r2*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		clear(r.combs[i].buf)
		r.combs[i].pos = 0
	}
	for i := range r.allpass {
		clear(r.allpass[i].buf)
		r.allpass[i].pos = 0
	}
}

func (c *combFilter) process(in float32) float32 {
	out := c.buf[c.pos]
	c.buf[c.pos] = in + out*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}

func msToFrames(sampleRate int, ms float64) int {
	n := int(float64(sampleRate) * ms / 1000)
	if n < 1 {
		n = 1
	}
	return n
}
