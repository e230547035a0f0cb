package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cbegin/loopgen-go"
	"github.com/cbegin/loopgen-go/internal/artifact"
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Render two bars of a loop to a WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&flags.output, "output", "o", "", "output path (default: <export dir>/<loop name>.wav)")
	exportCmd.Flags().BoolVar(&flags.realtime, "realtime", false, "record the live graph in real time instead of rendering offline")
}

// pathStore writes every artifact to one fixed path.
type pathStore string

func (p pathStore) Put(_ string, data []byte) (string, error) {
	if err := os.WriteFile(string(p), data, 0o644); err != nil {
		return "", err
	}
	return string(p), nil
}

func runExport(cmd *cobra.Command, args []string) error {
	l, err := readLoop(args[0])
	if err != nil {
		return err
	}
	opts, err := engineOptions()
	if err != nil {
		return err
	}
	mode := loopgen.ExportOffline
	if flags.realtime {
		mode = loopgen.ExportRealtime
	}
	var store artifact.Store = artifact.NewFileStore(cfg.ExportDir)
	if flags.output != "" {
		store = pathStore(flags.output)
	}
	// offline renders never reach the device
	opts = append(opts,
		loopgen.WithOutput(loopgen.HeadlessOutput),
		loopgen.WithExportMode(mode),
		loopgen.WithArtifactStore(store),
	)
	eng, err := loopgen.New(opts...)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := eng.Initialize(ctx); err != nil {
		return err
	}
	if err := eng.LoadLoop(l); err != nil {
		return err
	}
	fmt.Printf("rendering %q (%v)\n", l.Name, loopgen.ExportDuration(eng.Tempo()))
	locator, err := eng.ExportWAV(ctx)
	if err != nil {
		return err
	}
	fmt.Println(locator)
	return nil
}
