package main

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	keybus "github.com/cskzoli/dscKeybusInterface"
	"github.com/spf13/cobra"
)

func recordCommand() *cobra.Command {
	return &cobra.Command{
		Use:  "record FILE",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			return runRecord(cfg, args[0])
		},
	}
}

func runRecord(cfg Config, path string) error {
	bus, err := cfg.openBus()
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating recording file: %w", err)
	}
	defer f.Close()

	recBus := keybus.NewRecordingBus(bus, f)

	iface := keybus.New(cfg.interfaceConfig())
	iface.SetOutput(os.Stdout)
	if err := iface.Begin(recBus); err != nil {
		return err
	}
	defer iface.Stop()

	log.Info("recording keybus traffic", "file", path)
	<-listenStop().Done()
	log.Info("stopped recording")
	return nil
}
