package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/replift/internal/config"
	"github.com/claude/replift/internal/logging"
	"github.com/claude/replift/internal/mcp"
	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (local mode)")
	serverURL := flag.String("server", "", "RepLift server base URL (remote mode)")
	flag.Parse()

	if (*configPath == "") == (*serverURL == "") {
		fmt.Fprintf(os.Stderr, "Usage: replift-mcp -config config.yaml | -server https://replift.tailnet.ts.net\n")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// stdout carries the protocol; logs go to stderr or the configured file.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var t mcp.Tracker
	if *serverURL != "" {
		t = mcp.NewHTTPClient(*serverURL)
		log.Info("RepLift MCP starting", "version", Version, "mode", "remote", "server", *serverURL)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		fileLog, closer, err := logging.New(cfg.Log, os.Stderr)
		if err != nil {
			log.Error("failed to set up logging", "error", err)
			os.Exit(1)
		}
		defer closer.Close()
		log = fileLog

		svc, blobs, err := tracker.Open(context.Background(), cfg, metrics.NewManager("replift", "mcp", nil), log)
		if err != nil {
			log.Error("failed to open storage", "error", err)
			os.Exit(1)
		}
		defer blobs.Close()
		t = mcp.NewLocal(svc)
		log.Info("RepLift MCP starting", "version", Version, "mode", "local", "driver", cfg.Storage.Driver)
	}

	if err := server.ServeStdio(mcp.New(t, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
