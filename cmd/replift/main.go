package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"tailscale.com/tsnet"

	"github.com/claude/replift/internal/config"
	"github.com/claude/replift/internal/logging"
	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/server"
	"github.com/claude/replift/internal/storage"
	"github.com/claude/replift/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run migrations and exit")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, logCloser, err := logging.New(cfg.Log, os.Stdout)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	log.Info("RepLift starting", "version", Version)

	if *migrateOnly {
		if cfg.Storage.Driver != config.DriverPostgres {
			log.Info("migrate-only: nothing to migrate", "driver", cfg.Storage.Driver)
			return
		}
		if err := storage.RunMigrations(cfg.Storage.Postgres.DSN(), storage.MigrationsDir); err != nil {
			log.Error("migration failed", "error", err)
			os.Exit(1)
		}
		log.Info("migrate-only: exiting")
		return
	}

	if err := cfg.RequireAPIKey(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// Metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewManager("replift", "api", reg)

	// Open storage and the service
	ctx := context.Background()
	svc, blobs, err := tracker.Open(ctx, cfg, m, log)
	if err != nil {
		log.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer blobs.Close()

	srv := server.New(svc, m, reg, cfg.Auth.APIKey, log)

	// Start server on tsnet or plain TCP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		logTailnetName(ctx, tsServer, log)
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

// logTailnetName logs the MagicDNS name the server is reachable at.
func logTailnetName(ctx context.Context, ts *tsnet.Server, log *slog.Logger) {
	lc, err := ts.LocalClient()
	if err != nil {
		log.Warn("tsnet local client failed", "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	st, err := lc.StatusWithoutPeers(ctx)
	if err != nil || st.Self == nil {
		log.Warn("tsnet status unavailable", "error", err)
		return
	}
	log.Info("reachable on tailnet", "dns_name", st.Self.DNSName)
}
