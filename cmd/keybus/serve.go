package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	keybus "github.com/cskzoli/dscKeybusInterface"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	readyGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "partition",
		Name:      "ready",
		Help:      "1 if the partition is ready to arm, 0 otherwise.",
	})
	armedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "partition",
		Name:      "armed",
		Help:      "1 if the partition is armed, 0 otherwise.",
	})
	alarmGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "partition",
		Name:      "alarm",
		Help:      "1 if the partition is in alarm, 0 otherwise.",
	})
	troubleGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "partition",
		Name:      "trouble",
		Help:      "1 if the partition has a trouble condition, 0 otherwise.",
	})
	fireGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "partition",
		Name:      "fire",
		Help:      "1 if a fire alarm is active, 0 otherwise.",
	})
	connectedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "bus",
		Name:      "connected",
		Help:      "1 if keybus traffic has been seen within the timeout, 0 otherwise.",
	})
	openZoneGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "zone",
		Name:      "open",
		Help:      "1 if the zone is open, 0 otherwise.",
	}, []string{"zone"})
	statusCodeGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "keybus",
		Subsystem: "partition",
		Name:      "status_code",
		Help:      "The current PowerSeries-compatible status byte.",
	})
)

func serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:  "serve",
		Args: cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg Config
			if err := env.Parse(&cfg); err != nil {
				return err
			}
			return runServe(cfg, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":9141", "address to serve /metrics on")
	return cmd
}

func boolGauge(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}

func runServe(cfg Config, addr string) error {
	bus, err := cfg.openBus()
	if err != nil {
		return err
	}

	iface := keybus.New(cfg.interfaceConfig())
	if err := iface.Begin(bus); err != nil {
		return err
	}
	defer iface.Stop()
	iface.ResetStatus()

	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for range ticker.C {
			if !iface.Loop() {
				continue
			}
			s := iface.Snapshot()
			boolGauge(readyGauge, s.Ready)
			boolGauge(armedGauge, s.Armed)
			boolGauge(alarmGauge, s.Alarm)
			boolGauge(troubleGauge, s.Trouble)
			boolGauge(fireGauge, s.Fire)
			boolGauge(connectedGauge, s.KeybusConnected)
			statusCodeGauge.Set(float64(s.StatusCode))

			for grp, b := range s.OpenZones {
				for bit := 0; bit < 8; bit++ {
					zone := grp*8 + bit + 1
					boolGauge(openZoneGauge.WithLabelValues(strconv.Itoa(zone)), b&(1<<bit) != 0)
				}
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux}

	ctx := listenStop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
