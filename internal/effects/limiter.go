package effects

import "math"

// Limiter is a peak limiter with instant attack and a hard ceiling: no output
// sample ever exceeds the threshold.
type Limiter struct {
	ceiling float32
	release float32 // coefficient
	gain    float32
}

// NewLimiter creates a limiter.
// thresholdDB: ceiling in dBFS (e.g., -1)
// releaseMs: gain recovery time in ms
func NewLimiter(sampleRate int, thresholdDB, releaseMs float32) *Limiter {
	sr := float64(sampleRate)
	if releaseMs <= 0 {
		releaseMs = 1
	}
	return &Limiter{
		ceiling: float32(math.Pow(10, float64(thresholdDB)/20)),
		release: float32(1.0 - math.Exp(-1.0/(float64(releaseMs)*sr/1000.0))),
		gain:    1,
	}
}

func (c *Limiter) Process(l, r float32) (float32, float32) {
	if l != l {
		l = 0
	}
	if r != r {
		r = 0
	}
	peak := float32(math.Max(math.Abs(float64(l)), math.Abs(float64(r))))
	if peak*c.gain > c.ceiling {
		c.gain = c.ceiling / peak
	} else {
		c.gain += c.release * (1 - c.gain)
	}
	return clamp(l*c.gain, -c.ceiling, c.ceiling), clamp(r*c.gain, -c.ceiling, c.ceiling)
}

// Ceiling returns the linear output ceiling.
func (c *Limiter) Ceiling() float32 { return c.ceiling }

func (c *Limiter) Reset() {
	c.gain = 1
}
