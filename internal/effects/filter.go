package effects

import "math"

// Biquad is a second-order IIR filter (RBJ cookbook coefficients).
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     [2]float64
	y1, y2     [2]float64
}

// NewHighPass creates a 12 dB/octave high-pass filter.
func NewHighPass(sampleRate int, cutoff, q float64) *Biquad {
	if q <= 0 {
		q = 1
	}
	nyquist := float64(sampleRate) / 2
	if cutoff >= nyquist {
		cutoff = nyquist * 0.99
	}
	w0 := 2 * math.Pi * cutoff / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / (2 * q)
	a0 := 1 + alpha
	return &Biquad{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f *Biquad) Process(l, r float32) (float32, float32) {
	return float32(f.step(0, float64(l))), float32(f.step(1, float64(r)))
}

func (f *Biquad) step(ch int, x float64) float64 {
	y := f.b0*x + f.b1*f.x1[ch] + f.b2*f.x2[ch] - f.a1*f.y1[ch] - f.a2*f.y2[ch]
	f.x2[ch], f.x1[ch] = f.x1[ch], x
	f.y2[ch], f.y1[ch] = f.y1[ch], y
	return y
}

func (f *Biquad) Reset() {
	f.x1, f.x2, f.y1, f.y2 = [2]float64{}, [2]float64{}, [2]float64{}, [2]float64{}
}
