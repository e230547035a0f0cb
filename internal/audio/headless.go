package audio

import (
	"context"
	"sync"
	"time"
)

// BlockDuration is the amount of audio a Headless output renders per tick.
const BlockDuration = 20 * time.Millisecond

// Headless pulls a SampleSource at real-time rate without an audio device,
// handing each block to an optional sink. It lets servers and CI run the
// engine where no sound card exists.
type Headless struct {
	source SampleSource
	sink   func([]float32)
	frames int

	mu      sync.Mutex
	playing bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewHeadless(sampleRate int, source SampleSource, sink func([]float32)) *Headless {
	return &Headless{
		source: source,
		sink:   sink,
		frames: int(float64(sampleRate) * BlockDuration.Seconds()),
	}
}

// Play starts the render loop. Calling Play while playing is a no-op.
func (h *Headless) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playing {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan struct{})
	h.playing = true
	go h.run(ctx, h.done)
}

func (h *Headless) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(BlockDuration)
	defer ticker.Stop()
	buf := make([]float32, h.frames*2)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.source.Process(buf)
			if h.sink != nil {
				h.sink(buf)
			}
		}
	}
}

// Pause stops the render loop and waits for it to exit.
func (h *Headless) Pause() {
	h.mu.Lock()
	if !h.playing {
		h.mu.Unlock()
		return
	}
	h.playing = false
	cancel, done := h.cancel, h.done
	h.mu.Unlock()
	cancel()
	<-done
}

func (h *Headless) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *Headless) Close() error {
	h.Pause()
	return nil
}
