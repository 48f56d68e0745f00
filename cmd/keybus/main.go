// Command keybus drives a DSC Classic keybus Interface from the command
// line: live decoding, recording and replay of bus traces, virtual keypad
// injection, a terminal status monitor, and a Prometheus exporter.
package main

import (
	"os"
	"time"

	logp "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "keybus",
})

func main() {
	cmd := &cobra.Command{
		Use:  "keybus",
		Args: cobra.ExactArgs(0),
	}

	cmd.AddCommand(liveCommand())
	cmd.AddCommand(recordCommand())
	cmd.AddCommand(replayCommand())
	cmd.AddCommand(writeCommand())
	cmd.AddCommand(monitorCommand())
	cmd.AddCommand(serveCommand())

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
