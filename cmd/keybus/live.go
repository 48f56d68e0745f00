package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	keybus "github.com/cskzoli/dscKeybusInterface"
	"github.com/spf13/cobra"
)

var livePollInterval = 5 * time.Millisecond

func liveCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "live",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			return runLive(cfg)
		},
	}
}

func runLive(cfg Config) error {
	bus, err := cfg.openBus()
	if err != nil {
		return err
	}

	iface := keybus.New(cfg.interfaceConfig())
	iface.SetOutput(os.Stdout)
	if err := iface.Begin(bus); err != nil {
		return err
	}
	defer iface.Stop()

	ctx := listenStop()
	ticker := time.NewTicker(livePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if iface.Loop() {
				iface.PrintPanelMessage()
				os.Stdout.Write([]byte("\n"))
			}
			if cfg.ProcessModuleData && iface.HandleModule() {
				iface.PrintModuleMessage()
				os.Stdout.Write([]byte("\n"))
			}
		}
	}
}

// listenStop returns a context canceled on SIGINT, the same pattern the
// pack's other keybus-adjacent sniffer CLI uses to let a polling loop exit
// cleanly on Ctrl-C.
func listenStop() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx
}
