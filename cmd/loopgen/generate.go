package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbegin/loopgen-go/internal/generator"
)

var generateCmd = &cobra.Command{
	Use:   "generate PROMPT...",
	Short: "Generate a loop JSON file from a text prompt",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&flags.output, "output", "o", "", "write the loop to a file instead of stdout")
}

func newGenerator(cmd *cobra.Command) (*generator.Gemini, error) {
	return generator.NewGemini(cmd.Context(), generator.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.Model,
		Temperature: float32(cfg.Temperature),
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	gen, err := newGenerator(cmd)
	if err != nil {
		return err
	}
	l, err := gen.Generate(cmd.Context(), generator.Request{Prompt: strings.Join(args, " ")})
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if flags.output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(flags.output, data, 0o644)
}
