// Package studio is the session controller between user intents and the
// playback engine.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/cbegin/loopgen-go/internal/generator"
	"github.com/cbegin/loopgen-go/internal/loop"
)

const (
	GenerationFailedMessage = "Failed to generate loop. Please try again."
	DownloadFailedMessage   = "Download failed. Try again."

	variationSuffix = " (make a variation)"
)

var (
	ErrGenerationFailed = errors.New("generation failed")
	ErrDownloadFailed   = errors.New("download failed")
	ErrNoLoop           = errors.New("no loop loaded")
	ErrNoPrompt         = errors.New("no previous prompt")
)

// UserMessage maps a failure to the text shown to the user. Export failures
// have their own message; everything else reads as a generation failure.
func UserMessage(err error) string {
	if errors.Is(err, ErrDownloadFailed) {
		return DownloadFailedMessage
	}
	return GenerationFailedMessage
}

// Player is the engine surface the studio drives.
type Player interface {
	Initialize(ctx context.Context) error
	LoadLoop(l *loop.Loop) error
	Play() error
	Stop()
	Toggle() bool
	Playing() bool
	ExportWAV(ctx context.Context) (string, error)
	SetMuted(trackID string, muted bool) bool
}

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Export is a finished download.
type Export struct {
	URL      string `json:"url"`
	FileName string `json:"filename"`
}

type State struct {
	Loop    *loop.Loop `json:"loop"`
	Playing bool       `json:"playing"`
	History []Message  `json:"history"`
}

type Option func(*Studio)

func WithLogger(logger *log.Logger) Option {
	return func(s *Studio) {
		s.logger = logger
	}
}

// Studio serializes user actions against one player.
type Studio struct {
	mu      sync.Mutex
	player  Player
	gen     generator.Generator
	logger  *log.Logger
	current *loop.Loop
	history []Message
}

func New(player Player, gen generator.Generator, opts ...Option) *Studio {
	s := &Studio{
		player: player,
		gen:    gen,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate stops playback, asks the generator for a loop, loads it and starts
// playing. On failure the previous loop stays loaded.
func (s *Studio) Generate(ctx context.Context, prompt string) (*loop.Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generate(ctx, prompt)
}

// Regenerate asks for a variation of the most recent prompt.
func (s *Studio) Regenerate(ctx context.Context) (*loop.Loop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.history) - 1; i >= 0; i-- {
		if s.history[i].Role == RoleUser {
			return s.generate(ctx, s.history[i].Text+variationSuffix)
		}
	}
	return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, ErrNoPrompt)
}

func (s *Studio) generate(ctx context.Context, prompt string) (*loop.Loop, error) {
	if err := s.player.Initialize(ctx); err != nil {
		return nil, s.failGeneration(err)
	}
	if s.player.Playing() {
		s.player.Stop()
	}

	texts := make([]string, len(s.history))
	for i, m := range s.history {
		texts[i] = m.Text
	}
	l, err := s.gen.Generate(ctx, generator.Request{Prompt: prompt, History: texts})
	if err != nil {
		return nil, s.failGeneration(err)
	}
	if err := s.player.LoadLoop(l); err != nil {
		return nil, s.failGeneration(err)
	}
	s.current = l.Clone()
	if err := s.player.Play(); err != nil {
		s.logger.Printf("warning: autoplay failed: %v", err)
	}
	s.history = append(s.history,
		Message{Role: RoleUser, Text: prompt},
		Message{Role: RoleModel, Text: "Generated: " + l.Name + " (" + formatBPM(l.BPM) + " BPM)"},
	)
	return l.Clone(), nil
}

func (s *Studio) failGeneration(err error) error {
	s.logger.Printf("generation failed: %v", err)
	return fmt.Errorf("%w: %w", ErrGenerationFailed, err)
}

func formatBPM(bpm float64) string {
	return strconv.FormatFloat(bpm, 'f', -1, 64)
}

// Toggle flips playback and reports the new state.
func (s *Studio) Toggle() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false, ErrNoLoop
	}
	return s.player.Toggle(), nil
}

func (s *Studio) Play() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false, ErrNoLoop
	}
	if err := s.player.Play(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Studio) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.player.Stop()
	return false
}

// Download renders the current loop and returns where to fetch it.
func (s *Studio) Download(ctx context.Context) (Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Export{}, ErrNoLoop
	}
	url, err := s.player.ExportWAV(ctx)
	if err != nil {
		s.logger.Printf("download failed: %v", err)
		return Export{}, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	return Export{URL: url, FileName: s.current.FileName(".wav")}, nil
}

// SetMuted sets a track's mute flag on the engine and in the session copy.
func (s *Studio) SetMuted(trackID string, muted bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	t, ok := s.current.Track(trackID)
	if !ok {
		return false
	}
	t.Muted = muted
	// empty tracks are never scheduled, so the engine may not know them
	s.player.SetMuted(trackID, muted)
	return true
}

// Current returns a copy of the loaded loop, or nil.
func (s *Studio) Current() *loop.Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *Studio) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Loop:    s.current.Clone(),
		Playing: s.player.Playing(),
		History: append([]Message{}, s.history...),
	}
}
