package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	keybus "github.com/cskzoli/dscKeybusInterface"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	replayPollInterval = 2 * time.Millisecond
	replayDrainGrace   = 50 * time.Millisecond
)

func replayCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "replay FILE",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			return runReplay(cfg, args[0])
		},
	}
}

// runReplay drives an Interface from a recorded trace instead of live
// hardware: one goroutine decodes the gob stream onto a channel, the other
// drains it through the same Loop/print path live would use.
func runReplay(cfg Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	edges := make(chan keybus.RecordedEdge, 100)

	var g errgroup.Group
	g.Go(func() error { return keybus.ReadRecording(edges, f) })
	g.Go(func() error { return drainReplay(cfg, edges) })

	return g.Wait()
}

// drainReplay runs the Interface against a ReplayBus fed by edges,
// printing each decoded frame, and stops once the channel has been empty
// for longer than the capture engine's own sample delay needs to settle.
func drainReplay(cfg Config, edges <-chan keybus.RecordedEdge) error {
	bus := keybus.NewReplayBus(edges)

	iface := keybus.New(cfg.interfaceConfig())
	iface.SetOutput(os.Stdout)
	if err := iface.Begin(bus); err != nil {
		return err
	}
	defer iface.Stop()

	ticker := time.NewTicker(replayPollInterval)
	defer ticker.Stop()

	var idleSince time.Time
	for range ticker.C {
		if iface.Loop() {
			iface.PrintPanelMessage()
			os.Stdout.Write([]byte("\n"))
			idleSince = time.Time{}
			continue
		}
		if len(edges) > 0 {
			idleSince = time.Time{}
			continue
		}
		if idleSince.IsZero() {
			idleSince = time.Now()
			continue
		}
		if time.Since(idleSince) > replayDrainGrace {
			return nil
		}
	}
	return nil
}
