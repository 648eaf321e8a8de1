// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package cmd implements the warden subcommands.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grimm.is/warden/internal/api"
	"grimm.is/warden/internal/config"
	"grimm.is/warden/internal/correlate"
	"grimm.is/warden/internal/decoylog"
	"grimm.is/warden/internal/defense"
	"grimm.is/warden/internal/detector"
	"grimm.is/warden/internal/enforce"
	"grimm.is/warden/internal/flow"
	"grimm.is/warden/internal/history"
	"grimm.is/warden/internal/logging"
	"grimm.is/warden/internal/metrics"
	"grimm.is/warden/internal/netutil"
	"grimm.is/warden/internal/presence"
	"grimm.is/warden/internal/registry"
	"grimm.is/warden/internal/trust"
)

// RunDaemon starts the gateway in the foreground and blocks until SIGINT
// or SIGTERM.
func RunDaemon(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "/etc/warden/warden.hcl", "configuration file")
	debug := fs.Bool("debug", false, "enable debug logging")
	sim := fs.Bool("sim", false, "in-memory enforcement, no nftables mutations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if *debug {
		logCfg.Level = logging.LevelDebug
	}
	logging.SetDefault(logging.New(logCfg))
	logger := logging.WithComponent("main")

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New(cfg.Data.DevicesJSON())
	if err := reg.Load(); err != nil {
		return err
	}

	store, err := history.Open(cfg.Data.HistoryDB())
	if err != nil {
		return err
	}
	defer store.Close()

	det := detector.New(cfg.Defense, store, history.NewCSVLog(cfg.Data.BehaviorCSV()))

	trinity := presence.NewTrinity(
		presence.NewLeaseFileSource(cfg.Network.LeaseFiles),
		presence.NewNeighborSource(),
		presence.NewStationSource(cfg.Network.APInterface),
	)

	var enforcer enforce.Enforcer
	if *sim {
		enforcer = enforce.NewSimEnforcer()
		logger.Info("Simulated enforcement, no firewall mutations")
	} else {
		enforcer, err = enforce.NewPlatform(ctx, cfg.Network.APInterface, cfg.Decoy.DecoyPortMap())
		if err != nil {
			return err
		}
	}

	archiver := enforce.NewArchiver(cfg.Data.Dir, []string{
		cfg.Data.BehaviorCSV(),
		cfg.Data.HoneypotCSV(),
		cfg.Data.AuditLog(),
	})
	responder := enforce.NewResponder(enforcer, enforce.NewAuditLog(cfg.Data.AuditLog()), archiver)

	decoy := decoylog.New(cfg.Data.HoneypotCSV())
	met := metrics.New()
	det.OnRetrain = met.RetrainsTotal.Inc
	det.Start(ctx)

	feed := decoylog.NewFeed(decoy, 256)
	feed.OnRecord = func(decoylog.Interaction) { met.DecoyTouches.Inc() }
	feed.Start(ctx)

	// DHCP identity gleaned from captured traffic fills in names the lease
	// file does not have yet.
	enrich := func(e flow.Enrichment) {
		mac, err := netutil.CanonicalMAC(e.MAC)
		if err != nil {
			return
		}
		reg.Lock()
		defer reg.Unlock()
		if dev := reg.GetLocked(mac); dev != nil {
			if e.Hostname != "" && dev.Hostname == "" {
				dev.Hostname = e.Hostname
			}
			if e.Vendor != "" && dev.Vendor == "" {
				dev.Vendor = e.Vendor
			}
		}
	}

	loop := defense.NewLoop(cfg, defense.Deps{
		Registry:  reg,
		Trinity:   trinity,
		Source:    flow.NewLiveSource(cfg.Network.APInterface, enrich),
		Detector:  det,
		Engine:    trust.NewEngine(cfg.Defense),
		Correlate: correlate.NewEngine(cfg.Defense, decoy),
		Responder: responder,
		Metrics:   met,
	})

	server := api.NewServer(cfg, loop, decoy, feed, met)
	server.Start()

	logger.Info("Warden gateway starting", "interface", cfg.Network.APInterface, "data", cfg.Data.Dir)
	loop.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Warn("API shutdown failed", "error", err)
	}
	return nil
}

// Version is stamped at build time.
var Version = "dev"

// RunVersion prints the build version.
func RunVersion() {
	fmt.Fprintf(os.Stdout, "warden %s\n", Version)
}
