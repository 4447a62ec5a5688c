// Copyright 2026 The Easel Authors
// SPDX-License-Identifier: Apache-2.0

// easel-server is the MCP server that bridges AI assistants to Adobe
// Illustrator. It speaks JSON-RPC 2.0 over stdio to the assistant,
// listens on a loopback WebSocket for the Illustrator panel, and
// optionally serves a small HTTP side channel for curl-style
// debugging.
//
// Run it from an MCP client configuration:
//
//	easel-server --config ~/.config/easel/config.yaml
//
// Configuration also loads from the EASEL_CONFIG environment variable;
// without either, built-in defaults apply (WebSocket on 8081, side
// channel off).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/easel-foundation/easel/bridge"
	"github.com/easel-foundation/easel/lib/config"
	"github.com/easel-foundation/easel/lib/logging"
	"github.com/easel-foundation/easel/lib/scriptlib"
	"github.com/easel-foundation/easel/lib/version"
	"github.com/easel-foundation/easel/mcp"
	"github.com/easel-foundation/easel/proxy"
	"github.com/easel-foundation/easel/tools"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "easel-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath     string
		listLibraries  bool
		showVersion    bool
		wsPortOverride int
	)

	flagSet := pflag.NewFlagSet("easel-server", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to YAML config (default: $EASEL_CONFIG, then built-in defaults)")
	flagSet.BoolVar(&listLibraries, "list-libraries", false, "print the script library manifest and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")
	flagSet.IntVar(&wsPortOverride, "ws-port", 0, "override the WebSocket listen port")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Println("easel-server " + version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if wsPortOverride != 0 {
		cfg.Listen.WebSocketPort = wsPortOverride
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return err
	}

	if listLibraries {
		return printLibraries(resolver)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.New(level, logging.Format(cfg.Log.Format))
	logger.Info("starting easel-server",
		"version", version.Short(),
		"ws_port", cfg.Listen.WebSocketPort,
		"http_enabled", cfg.Listen.HTTPEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	broker := &bridge.Bridge{
		Port:        cfg.Listen.WebSocketPort,
		CallTimeout: time.Duration(cfg.CallTimeoutSeconds) * time.Second,
		Logger:      logger.With("component", "bridge"),
	}
	if err := broker.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer broker.Stop()

	if cfg.Listen.HTTPEnabled {
		side, err := proxy.New(proxy.Config{
			Addr:     fmt.Sprintf("127.0.0.1:%d", cfg.Listen.HTTPPort),
			Broker:   broker,
			Resolver: resolver,
			Logger:   logger,
		})
		if err != nil {
			return err
		}
		if err := side.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			side.Stop(shutdownCtx)
		}()
	}

	catalog := tools.Catalog(tools.Deps{
		Broker:   broker,
		Resolver: resolver,
		Logger:   logger.With("component", "tools"),
	})
	server := mcp.NewServer("easel", catalog, logger.With("component", "mcp"))

	// Serve returns when the MCP client closes stdin; that is normal
	// shutdown.
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("stdin closed, shutting down")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func buildResolver(cfg *config.Config) (*scriptlib.Resolver, error) {
	if cfg.Libraries.Manifest == "" {
		return scriptlib.NewEmbedded()
	}
	// The manifest names fragment files relative to its own directory.
	return scriptlib.NewFromDir(filepath.Dir(cfg.Libraries.Manifest))
}
