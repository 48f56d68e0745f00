package main

import (
	"time"

	"github.com/caarlos0/env/v11"
	keybus "github.com/cskzoli/dscKeybusInterface"
	"github.com/spf13/cobra"
)

var writePollInterval = 5 * time.Millisecond

func writeCommand() *cobra.Command {
	var blocking bool
	cmd := &cobra.Command{
		Use:   "write KEYS",
		Short: "Inject a virtual keypad key sequence onto the keybus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			return runWrite(cfg, args[0], blocking)
		},
	}
	cmd.Flags().BoolVar(&blocking, "wait", true, "wait until the last key of the sequence has been queued for transmission")
	return cmd
}

func runWrite(cfg Config, keys string, blocking bool) error {
	bus, err := cfg.openBus()
	if err != nil {
		return err
	}

	iface := keybus.New(cfg.interfaceConfig())
	if err := iface.Begin(bus); err != nil {
		return err
	}
	defer iface.Stop()

	ctx := listenStop()
	done := make(chan error, 1)
	go func() { done <- iface.WriteKeys(keys, blocking) }()

	ticker := time.NewTicker(writePollInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			iface.Loop()
		}
	}
}
