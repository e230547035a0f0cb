package loopgen

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cbegin/loopgen-go/internal/artifact"
	intaudio "github.com/cbegin/loopgen-go/internal/audio"
	"github.com/cbegin/loopgen-go/internal/instrument"
	"github.com/cbegin/loopgen-go/internal/loop"
	"github.com/cbegin/loopgen-go/internal/master"
	"github.com/cbegin/loopgen-go/internal/scheduler"
	"github.com/cbegin/loopgen-go/internal/transport"
)

type (
	Loop      = loop.Loop
	Track     = loop.Track
	NoteEvent = loop.NoteEvent
)

const DefaultSampleRate = 48000

var (
	ErrNotInitialized = errors.New("engine not initialized")
	ErrNoLoop         = errors.New("no loop loaded")
)

// PlaybackEvent carries trigger and loop events from Watch().
type PlaybackEvent struct {
	Kind    int // EventLoopCompleted or EventTrigger
	TrackID string
	Note    string
	Frame   int64
	Cycle   int64
}

const (
	EventLoopCompleted int = iota
	EventTrigger
)

type ExportMode string

const (
	// ExportRealtime records the live graph for two bars of wall-clock time.
	ExportRealtime ExportMode = "realtime"
	// ExportOffline renders the same two bars as fast as the CPU allows.
	ExportOffline ExportMode = "offline"
)

// Output is the device end of the engine. It pulls samples from the engine
// while playing.
type Output interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

type OutputFactory func(sampleRate int, src intaudio.SampleSource) (Output, error)

// DeviceOutput plays through the system audio device.
func DeviceOutput(sampleRate int, src intaudio.SampleSource) (Output, error) {
	return intaudio.NewPlayer(sampleRate, src)
}

// HeadlessOutput pulls the engine in real time and discards the audio.
func HeadlessOutput(sampleRate int, src intaudio.SampleSource) (Output, error) {
	return intaudio.NewHeadless(sampleRate, src, nil), nil
}

type Option func(*engineConfig)

type engineConfig struct {
	sampleRate int
	output     OutputFactory
	store      artifact.Store
	exportMode ExportMode
	humanize   time.Duration
	logger     *log.Logger
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		sampleRate: DefaultSampleRate,
		output:     DeviceOutput,
		exportMode: ExportRealtime,
		humanize:   scheduler.DefaultHumanize,
		logger:     log.Default(),
	}
}

func WithSampleRate(sampleRate int) Option {
	return func(cfg *engineConfig) {
		cfg.sampleRate = sampleRate
	}
}

func WithOutput(factory OutputFactory) Option {
	return func(cfg *engineConfig) {
		cfg.output = factory
	}
}

// WithArtifactStore sets where exported files are kept. The default keeps
// the most recent exports in memory.
func WithArtifactStore(store artifact.Store) Option {
	return func(cfg *engineConfig) {
		cfg.store = store
	}
}

func WithExportMode(mode ExportMode) Option {
	return func(cfg *engineConfig) {
		cfg.exportMode = mode
	}
}

// WithHumanize sets the half-width of the timing jitter window. Zero
// disables humanization.
func WithHumanize(half time.Duration) Option {
	return func(cfg *engineConfig) {
		cfg.humanize = half
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(cfg *engineConfig) {
		cfg.logger = logger
	}
}

// graph is everything between the clock and the master bus output.
type graph struct {
	sampleRate int
	clock      *transport.Clock
	bank       *instrument.Bank
	sched      *scheduler.Scheduler
	bus        *master.Bus
}

func newGraph(sampleRate int, humanize time.Duration, logger *log.Logger, opts scheduler.Options) *graph {
	clock := transport.New(sampleRate, loop.PPQ)
	bank := instrument.NewBank(sampleRate, instrument.WithLogger(logger))
	opts.Logger = logger
	if humanize > 0 {
		opts.Humanize = scheduler.Jitter(humanize)
	} else {
		opts.Humanize = func() float64 { return 0 }
	}
	return &graph{
		sampleRate: sampleRate,
		clock:      clock,
		bank:       bank,
		sched:      scheduler.New(clock, bank, sampleRate, opts),
		bus:        master.New(sampleRate, master.DefaultConfig()),
	}
}

func (g *graph) render(dst []float32) {
	frames := len(dst) / 2
	base := g.clock.Advance(frames)
	for f := 0; f < frames; f++ {
		l, r := g.bank.Render(base + int64(f))
		dst[f*2], dst[f*2+1] = g.bus.Process(l, r)
	}
}

// stop halts the transport and drops attacks that were queued ahead of time.
func (g *graph) stop() {
	g.clock.Stop()
	g.bank.CancelPending(g.clock.Frame())
}

// Engine is the loop playback engine. Control methods are meant to be
// called by one logical caller at a time; rendering runs concurrently on the
// output's goroutine and is fenced by the engine's lock.
type Engine struct {
	*graph

	mu          sync.Mutex
	cfg         engineConfig
	out         Output
	initialized bool
	current     *loop.Loop
	sleep       func(context.Context, time.Duration) error
	eventCh     chan PlaybackEvent
	eventChMu   sync.Mutex
}

func New(opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sampleRate must be positive")
	}
	if cfg.output == nil {
		return nil, errors.New("output factory is required")
	}
	if cfg.logger == nil {
		cfg.logger = log.Default()
	}
	if cfg.store == nil {
		cfg.store = artifact.NewMemoryStore("/exports", artifact.DefaultRetain)
	}
	e := &Engine{cfg: cfg, sleep: sleepContext}
	e.graph = newGraph(cfg.sampleRate, cfg.humanize, cfg.logger, scheduler.Options{
		OnTrigger: func(d scheduler.Dispatch) {
			e.sendEvent(PlaybackEvent{Kind: EventTrigger, TrackID: d.TrackID, Note: d.Note.Note, Frame: d.Frame, Cycle: d.Cycle})
		},
		OnCycle: func(completed int64) {
			e.sendEvent(PlaybackEvent{Kind: EventLoopCompleted, Cycle: completed})
		},
	})
	return e, nil
}

// Initialize prepares the reverb and opens the output. It is idempotent.
func (e *Engine) Initialize(ctx context.Context) error {
	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.bus.Prepare()
	e.mu.Unlock()

	out, err := e.cfg.output(e.cfg.sampleRate, e)
	if err != nil {
		return fmt.Errorf("open audio output: %w", err)
	}
	out.Play()

	e.mu.Lock()
	e.out = out
	e.initialized = true
	e.mu.Unlock()
	return nil
}

// Process renders interleaved stereo frames. Outputs call it from their
// own goroutine.
func (e *Engine) Process(dst []float32) {
	e.mu.Lock()
	e.render(dst)
	e.mu.Unlock()
}

// LoadLoop stops playback, tears down the previous loop and schedules l.
func (e *Engine) LoadLoop(l *loop.Loop) error {
	if l == nil {
		return ErrNoLoop
	}
	cp := l.Clone()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stop()
	e.sched.Load(cp)
	e.current = cp
	return nil
}

// Play resumes the output if needed and starts the transport from the top
// of the loop.
func (e *Engine) Play() error {
	e.mu.Lock()
	if !e.initialized {
		e.mu.Unlock()
		return ErrNotInitialized
	}
	out := e.out
	e.mu.Unlock()

	if !out.IsPlaying() {
		out.Play()
	}
	e.mu.Lock()
	e.clock.Start()
	e.mu.Unlock()
	return nil
}

// Stop halts the transport. It is idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stop()
	e.mu.Unlock()
}

// Toggle flips between playing and stopped and reports the new state.
func (e *Engine) Toggle() bool {
	if e.Playing() {
		e.Stop()
		return false
	}
	if err := e.Play(); err != nil {
		e.cfg.logger.Printf("warning: toggle: %v", err)
		return false
	}
	return true
}

func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.Running()
}

// Tempo returns the transport tempo in BPM.
func (e *Engine) Tempo() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock.BPM()
}

// Current returns a copy of the loaded loop, or nil.
func (e *Engine) Current() *loop.Loop {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return nil
	}
	return e.current.Clone()
}

// SetMuted sets a track's mute flag. It reports false when the track is not
// scheduled.
func (e *Engine) SetMuted(trackID string, muted bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.sched.SetMuted(trackID, muted) {
		return false
	}
	if t, ok := e.current.Track(trackID); ok {
		t.Muted = muted
	}
	return true
}

// ExportWAV renders two bars at the current tempo through the master bus
// and returns a locator for the resulting WAV file. Playback is stopped
// afterwards.
func (e *Engine) ExportWAV(ctx context.Context) (string, error) {
	e.mu.Lock()
	initialized, cur := e.initialized, e.current
	e.mu.Unlock()
	if !initialized {
		return "", ErrNotInitialized
	}
	if cur == nil {
		return "", ErrNoLoop
	}

	var (
		samples []float32
		err     error
	)
	if e.cfg.exportMode == ExportOffline {
		samples, err = e.exportOffline(ctx)
	} else {
		samples, err = e.exportRealtime(ctx)
	}
	if err != nil {
		return "", err
	}
	data := EncodeWAVFloat32LE(samples, e.cfg.sampleRate, 2)
	locator, err := e.cfg.store.Put(cur.FileName(".wav"), data)
	if err != nil {
		return "", fmt.Errorf("store export: %w", err)
	}
	return locator, nil
}

// startRecording restarts the transport from the top with the recorder
// armed and returns the export length.
func (e *Engine) startRecording() time.Duration {
	e.stop()
	e.bus.Recorder().Start()
	e.clock.Start()
	return ExportDuration(e.clock.BPM())
}

func (e *Engine) finishRecording() []float32 {
	e.stop()
	return e.bus.Recorder().Stop()
}

func (e *Engine) exportRealtime(ctx context.Context) ([]float32, error) {
	e.mu.Lock()
	wait := e.startRecording()
	out := e.out
	e.mu.Unlock()
	if !out.IsPlaying() {
		out.Play()
	}

	err := e.sleep(ctx, wait)

	e.mu.Lock()
	samples := e.finishRecording()
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return samples, nil
}

const offlineBlockFrames = 512

func (e *Engine) exportOffline(ctx context.Context) ([]float32, error) {
	e.mu.Lock()
	out := e.out
	e.mu.Unlock()
	resume := out.IsPlaying()
	out.Pause()
	if resume {
		defer out.Play()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	total := int(durationFrames(e.startRecording(), e.cfg.sampleRate))
	buf := make([]float32, offlineBlockFrames*2)
	for done := 0; done < total; done += offlineBlockFrames {
		if err := ctx.Err(); err != nil {
			e.finishRecording()
			return nil, err
		}
		n := min(offlineBlockFrames, total-done)
		e.render(buf[:n*2])
	}
	return e.finishRecording(), nil
}

func (e *Engine) sendEvent(ev PlaybackEvent) {
	e.eventChMu.Lock()
	ch := e.eventCh
	e.eventChMu.Unlock()
	if ch != nil {
		select {
		case ch <- ev:
		default:
			// Channel full; drop event
		}
	}
}

// Watch returns a channel that receives playback events:
//   - EventTrigger: a note was dispatched to an instrument
//   - EventLoopCompleted: a two-bar cycle finished (Cycle is the count)
//
// The channel is buffered (cap 8); receive in a goroutine to avoid dropping
// events. Only the most recent Watch() channel receives events.
func (e *Engine) Watch() <-chan PlaybackEvent {
	ch := make(chan PlaybackEvent, 8)
	e.eventChMu.Lock()
	e.eventCh = ch
	e.eventChMu.Unlock()
	return ch
}

// Close stops playback, releases the output and disposes every instrument.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.stop()
	out := e.out
	e.out = nil
	e.initialized = false
	e.mu.Unlock()

	var err error
	if out != nil {
		err = out.Close()
	}
	e.mu.Lock()
	e.sched.Unload()
	e.current = nil
	e.mu.Unlock()
	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
