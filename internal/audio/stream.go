package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	bytesPerFrame = 8 // stereo float32

	// MaxBlockFrames bounds a single Process call. Device reads larger than
	// this are rendered in several blocks.
	MaxBlockFrames = 1024

	deviceBufferSize = 50 * time.Millisecond
)

// SampleSource fills dst with interleaved stereo float32 frames.
type SampleSource interface {
	Process(dst []float32)
}

// StreamReader turns a SampleSource into the little-endian float32 byte
// stream ebiten pulls. A trailing partial frame in p is left unwritten.
type StreamReader struct {
	mu     sync.Mutex
	source SampleSource
	block  []float32
}

func NewStreamReader(source SampleSource) *StreamReader {
	return &StreamReader{
		source: source,
		block:  make([]float32, MaxBlockFrames*2),
	}
}

func (r *StreamReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := len(p) / bytesPerFrame
	for done := 0; done < total; {
		n := min(MaxBlockFrames, total-done)
		buf := r.block[:n*2]
		r.source.Process(buf)
		out := p[done*bytesPerFrame:]
		for i, v := range buf {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		done += n
	}
	return total * bytesPerFrame, nil
}

func (r *StreamReader) Close() error { return nil }

var (
	deviceOnce sync.Once
	device     *ebitaudio.Context
	deviceRate int
)

// sharedContext returns the process-wide ebiten context. ebiten allows only
// one, so every Player must agree on the sample rate.
func sharedContext(sampleRate int) (*ebitaudio.Context, error) {
	deviceOnce.Do(func() {
		deviceRate = sampleRate
		device = ebitaudio.NewContext(sampleRate)
	})
	if deviceRate != sampleRate {
		return nil, fmt.Errorf("audio device already opened at %d Hz, cannot reopen at %d Hz", deviceRate, sampleRate)
	}
	return device, nil
}

// Player plays a SampleSource on the system audio device.
type Player struct {
	player *ebitaudio.Player
	stream *StreamReader
}

func NewPlayer(sampleRate int, source SampleSource) (*Player, error) {
	ctx, err := sharedContext(sampleRate)
	if err != nil {
		return nil, err
	}
	stream := NewStreamReader(source)
	pl, err := ctx.NewPlayerF32(stream)
	if err != nil {
		return nil, fmt.Errorf("open device player: %w", err)
	}
	pl.SetBufferSize(deviceBufferSize)
	return &Player{player: pl, stream: stream}, nil
}

func (p *Player) Play()           { p.player.Play() }
func (p *Player) Pause()          { p.player.Pause() }
func (p *Player) IsPlaying() bool { return p.player.IsPlaying() }

func (p *Player) Close() error {
	p.player.Pause()
	if err := p.player.Close(); err != nil {
		return err
	}
	return p.stream.Close()
}
