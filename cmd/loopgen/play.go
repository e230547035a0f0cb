package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cbegin/loopgen-go"
)

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Play a loop JSON file",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().IntVarP(&flags.loops, "loops", "n", 2, "stop after N loops (0 = loop until interrupted)")
}

func runPlay(cmd *cobra.Command, args []string) error {
	l, err := readLoop(args[0])
	if err != nil {
		return err
	}
	opts, err := engineOptions()
	if err != nil {
		return err
	}
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
	ch := eng.Watch()
	if err := eng.Play(); err != nil {
		return err
	}
	fmt.Printf("playing %q at %g BPM\n", l.Name, eng.Tempo())
	for {
		select {
		case <-ctx.Done():
			eng.Stop()
			return nil
		case event := <-ch:
			switch event.Kind {
			case loopgen.EventLoopCompleted:
				fmt.Printf("loop %d completed\n", event.Cycle)
				if flags.loops > 0 && event.Cycle >= int64(flags.loops) {
					eng.Stop()
					return nil
				}
			case loopgen.EventTrigger:
				fmt.Printf("trigger %s %s (cycle %d)\n", event.TrackID, event.Note, event.Cycle)
			}
		}
	}
}
