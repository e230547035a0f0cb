// Package generator turns a text prompt into a loop using a language model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"

	"github.com/cbegin/loopgen-go/internal/loop"
)

const (
	DefaultModel       = "gemini-2.5-flash"
	DefaultTemperature = 0.65
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"
)

var ErrEmptyResponse = errors.New("no response from model")

// Request is one generation call.
type Request struct {
	Prompt  string
	History []string
}

// Generator produces a loop for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*loop.Loop, error)
}

// contentGenerator is the slice of the genai Models API we call.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	Logger      *log.Logger
}

// Gemini generates loops with Gemini structured output.
type Gemini struct {
	models      contentGenerator
	model       string
	temperature float32
	system      string
	logger      *log.Logger
}

func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, cfg), nil
}

func newGemini(models contentGenerator, cfg Config) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Gemini{
		models:      models,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		system:      SystemInstruction(),
		logger:      cfg.Logger,
	}
}

func (g *Gemini) Generate(ctx context.Context, req Request) (*loop.Loop, error) {
	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()
	transaction.SetTag("model", g.model)

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: g.system}},
		},
		ResponseMIMEType: mimeTypeJSON,
		ResponseSchema:   ResponseSchema(),
		Temperature:      genai.Ptr(g.temperature),
	}
	contents := []*genai.Content{{
		Role:  geminiUserRole,
		Parts: []*genai.Part{{Text: ContextPrompt(req)}},
	}}

	start := time.Now()
	result, err := g.models.GenerateContent(transaction.Context(), g.model, contents, config)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	g.logger.Printf("gemini: %s responded in %v", g.model, time.Since(start))

	text := responseText(result)
	if text == "" {
		transaction.SetTag("success", "false")
		return nil, ErrEmptyResponse
	}
	l, err := loop.DecodeString(text)
	if err != nil {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	l.RepairIDs()
	transaction.SetTag("success", "true")
	return l, nil
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	c := result.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var text string
	for _, p := range c.Content.Parts {
		if p != nil {
			text += p.Text
		}
	}
	return text
}

// ResponseSchema is the JSON shape the model must produce.
func ResponseSchema() *genai.Schema {
	types := make([]string, len(loop.Types))
	for i, t := range loop.Types {
		types[i] = string(t)
	}
	note := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"time":     {Type: genai.TypeString},
			"note":     {Type: genai.TypeString},
			"duration": {Type: genai.TypeString},
			"velocity": {Type: genai.TypeNumber},
		},
		Required: []string{"time", "note", "duration", "velocity"},
	}
	track := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"id":    {Type: genai.TypeString},
			"type":  {Type: genai.TypeString, Enum: types},
			"name":  {Type: genai.TypeString},
			"notes": {Type: genai.TypeArray, Items: note},
		},
		Required: []string{"id", "type", "name", "notes"},
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        {Type: genai.TypeString, Description: "Creative name for the loop"},
			"description": {Type: genai.TypeString, Description: "Short description of the vibe and production techniques used"},
			"bpm": {
				Type:        genai.TypeNumber,
				Description: "Tempo in BPM",
				Minimum:     genai.Ptr(loop.MinBPM),
				Maximum:     genai.Ptr(loop.MaxBPM),
			},
			"key":    {Type: genai.TypeString, Description: "Musical Key (e.g. C Minor)"},
			"tracks": {Type: genai.TypeArray, Items: track},
		},
		Required: []string{"name", "bpm", "key", "tracks"},
	}
}
