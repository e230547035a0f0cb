package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cbegin/loopgen-go/internal/midifile"
)

var midiCmd = &cobra.Command{
	Use:   "midi FILE",
	Short: "Convert a loop JSON file to a Standard MIDI File",
	Args:  cobra.ExactArgs(1),
	RunE:  runMIDI,
}

func init() {
	midiCmd.Flags().StringVarP(&flags.output, "output", "o", "", "output path (default: <loop name>.mid)")
}

func runMIDI(cmd *cobra.Command, args []string) error {
	l, err := readLoop(args[0])
	if err != nil {
		return err
	}
	data, err := midifile.Encode(l)
	if err != nil {
		return err
	}
	out := flags.output
	if out == "" {
		out = l.FileName(".mid")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
