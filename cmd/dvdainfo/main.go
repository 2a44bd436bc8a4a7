// Command dvdainfo is a read-only probe tool exercising the dvda read
// path end to end: it opens a disc's AUDIO_TS directory, validates the
// AMG magic, and -- given explicit sector-range flags, since IFO
// navigation is an external collaborator -- probes a track's
// codec and stream parameters.
//
// It writes no audio; it only prints what it probed.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "dvdainfo",
	Short: "Probe a DVD-Audio AUDIO_TS tree and print one track's stream parameters",
}
