// Copyright 2026 The Gecko Audio Authors
// SPDX-License-Identifier: Apache-2.0

// geckoctl-server is the control plane for a fleet of Gecko Audio
// streaming endpoints. It listens for client connections on a TCP
// JSON control channel, tracks every client's state in an in-memory
// registry, synchronizes that state with per-client JSON config files,
// and announces itself over DNS-SD so endpoints need no configuration.
//
// With --dashboard the process additionally takes over the terminal
// with a read-only fleet view; quitting the dashboard shuts the server
// down, matching its role as an operator console rather than a
// detached daemon in that mode.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/gecko-audio/geckoctl/confsync"
	"github.com/gecko-audio/geckoctl/control"
	"github.com/gecko-audio/geckoctl/dashboard"
	"github.com/gecko-audio/geckoctl/discovery"
	"github.com/gecko-audio/geckoctl/lib/clock"
	"github.com/gecko-audio/geckoctl/lib/config"
	"github.com/gecko-audio/geckoctl/lib/version"
	"github.com/gecko-audio/geckoctl/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var listenAddress string
	var configDir string
	var logFormat string
	var withDashboard bool

	flagSet := pflag.NewFlagSet("geckoctl-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "",
		"path to the YAML config file (default: $GECKOCTL_CONFIG, else built-in defaults)")
	flagSet.StringVar(&listenAddress, "listen", "", "override the control channel listen address")
	flagSet.StringVar(&configDir, "config-dir", "", "override the client config directory")
	flagSet.StringVar(&logFormat, "log-format", "", "log format: text or json")
	flagSet.BoolVar(&withDashboard, "dashboard", false, "show the fleet dashboard in this terminal")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing, like the other binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("geckoctl-server")
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if listenAddress != "" {
		cfg.Control.ListenAddress = listenAddress
	}
	if configDir != "" {
		cfg.ConfSync.Dir = configDir
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := buildLogger(cfg.Log, withDashboard)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	// The dashboard's quit key also ends the process.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := state.NewRegistry(logger)

	server := control.NewServer(control.Config{
		ListenAddress:   cfg.Control.ListenAddress,
		ReadIdleTimeout: cfg.Control.ReadIdleTimeout.Std(),
		WriteTimeout:    cfg.Control.WriteTimeout.Std(),
	}, registry, logger)
	if err := server.Listen(); err != nil {
		return err
	}

	if !cfg.Discovery.Disable {
		port := server.Address().(*net.TCPAddr).Port
		announcer, err := discovery.Announce(cfg.Discovery.Instance, cfg.Discovery.Service, port, logger)
		if err != nil {
			return err
		}
		defer announcer.Shutdown()
	}

	engine := confsync.NewEngine(confsync.Config{
		Dir:         cfg.ConfSync.Dir,
		QuietPeriod: cfg.ConfSync.QuietPeriod.Std(),
	}, registry, clock.Real(), logger)
	if err := engine.Watch(); err != nil {
		return err
	}

	engineDone := make(chan error, 1)
	go func() { engineDone <- engine.Run(ctx) }()

	serveDone := make(chan error, 1)
	go func() { serveDone <- server.Serve(ctx) }()

	if withDashboard {
		if err := dashboard.Run(ctx, registry, cfg.Dashboard.PollInterval.Std()); err != nil {
			logger.Error("dashboard failed", "error", err)
		}
		cancel()
	}

	<-ctx.Done()
	if err := <-serveDone; err != nil {
		return err
	}
	if err := <-engineDone; err != nil {
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}

// buildLogger constructs the process logger from config. In dashboard
// mode logging is discarded entirely; slog output would fight
// bubbletea for the terminal.
func buildLogger(cfg config.LogConfig, dashboardMode bool) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	if dashboardMode {
		return slog.New(slog.DiscardHandler), nil
	}

	options := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, options)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(os.Stderr, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Gecko Audio control-plane server.

Accepts client connections on a TCP JSON control channel, mirrors
client state to per-client JSON files under the config directory, and
announces the service over DNS-SD.

Usage:
  geckoctl-server [flags]

Flags:
%s`, flagSet.FlagUsages())
}
