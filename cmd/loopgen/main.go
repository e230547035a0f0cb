package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cbegin/loopgen-go"
	"github.com/cbegin/loopgen-go/internal/config"
	"github.com/cbegin/loopgen-go/internal/loop"
)

const sentryFlushTimeout = 2 * time.Second

var (
	Version = "dev"

	cfg config.Config

	flags struct {
		headless bool
		loops    int
		output   string
		realtime bool
	}
)

var rootCmd = &cobra.Command{
	Use:   "loopgen",
	Short: "Generate, play and export short multi-track loops",
	Long: `loopgen turns a text prompt into a two-bar multi-track loop, plays it
through a synthesized instrument bank and renders it to WAV or MIDI.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("headless") {
			cfg.Headless = flags.headless
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flags.headless, "headless", false,
		"render in real time without opening a sound device")
	rootCmd.AddCommand(serveCmd, playCmd, exportCmd, generateCmd, midiCmd)
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg = config.Load()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
			Release:     "loopgen@" + Version,
		}); err != nil {
			log.Printf("Failed to initialize Sentry: %v", err)
		} else {
			defer sentry.Flush(sentryFlushTimeout)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		sentry.Flush(sentryFlushTimeout)
		os.Exit(1)
	}
}

// engineOptions maps the loaded configuration onto engine options.
func engineOptions() ([]loopgen.Option, error) {
	opts := []loopgen.Option{
		loopgen.WithSampleRate(cfg.SampleRate),
		loopgen.WithHumanize(cfg.Humanize),
	}
	switch mode := loopgen.ExportMode(cfg.ExportMode); mode {
	case loopgen.ExportRealtime, loopgen.ExportOffline:
		opts = append(opts, loopgen.WithExportMode(mode))
	default:
		return nil, fmt.Errorf("invalid LOOPGEN_EXPORT_MODE %q (expected realtime|offline)", cfg.ExportMode)
	}
	if cfg.Headless {
		opts = append(opts, loopgen.WithOutput(loopgen.HeadlessOutput))
	}
	return opts, nil
}

func readLoop(path string) (*loop.Loop, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	l, err := loop.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.RepairIDs()
	return l, nil
}
