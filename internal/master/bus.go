package master

import (
	"math"

	"github.com/cbegin/loopgen-go/internal/effects"
)

type Config struct {
	InputGainDB      float64
	ReverbDecay      float64 // seconds
	ReverbWet        float32
	LimiterDB        float32
	LimiterReleaseMs float32
}

func DefaultConfig() Config {
	return Config{
		ReverbDecay:      2,
		ReverbWet:        0.1,
		LimiterDB:        -1,
		LimiterReleaseMs: 50,
	}
}

// Bus is the shared output chain: input gain, reverb, limiter, then a
// recorder tap in parallel with the output.
type Bus struct {
	input    float32
	reverb   *effects.Reverb
	limiter  *effects.Limiter
	chain    *effects.Chain
	recorder *Recorder
}

func New(sampleRate int, cfg Config) *Bus {
	reverb := effects.NewReverb(sampleRate, cfg.ReverbDecay, cfg.ReverbWet)
	limiter := effects.NewLimiter(sampleRate, cfg.LimiterDB, cfg.LimiterReleaseMs)
	return &Bus{
		input:    float32(math.Pow(10, cfg.InputGainDB/20)),
		reverb:   reverb,
		limiter:  limiter,
		chain:    effects.NewChain(reverb, limiter),
		recorder: &Recorder{},
	}
}

// Prepare builds resources that are too costly to create on the audio path.
func (b *Bus) Prepare() {
	b.reverb.Generate()
}

func (b *Bus) Prepared() bool { return b.reverb.Ready() }

func (b *Bus) Process(l, r float32) (float32, float32) {
	l, r = b.chain.Process(l*b.input, r*b.input)
	b.recorder.write(l, r)
	return l, r
}

// ProcessBuffer runs Process over an interleaved stereo buffer in place.
func (b *Bus) ProcessBuffer(buf []float32) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = b.Process(buf[i], buf[i+1])
	}
}

func (b *Bus) Recorder() *Recorder { return b.recorder }

// Ceiling is the highest absolute sample value the bus can emit.
func (b *Bus) Ceiling() float32 { return b.limiter.Ceiling() }

func (b *Bus) Reset() {
	b.chain.Reset()
}

// Recorder captures interleaved stereo output while armed.
type Recorder struct {
	recording bool
	samples   []float32
}

// Start arms the recorder and discards any previous take.
func (r *Recorder) Start() {
	r.recording = true
	r.samples = r.samples[:0]
}

// Stop disarms the recorder and returns the take.
func (r *Recorder) Stop() []float32 {
	r.recording = false
	out := r.samples
	r.samples = nil
	return out
}

func (r *Recorder) Recording() bool { return r.recording }

// Frames returns the number of stereo frames captured so far.
func (r *Recorder) Frames() int { return len(r.samples) / 2 }

func (r *Recorder) write(l, rr float32) {
	if r.recording {
		r.samples = append(r.samples, l, rr)
	}
}
