package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/claude/replift/internal/config"
	"github.com/claude/replift/internal/logging"
	"github.com/claude/replift/internal/metrics"
	"github.com/claude/replift/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path." type:"path" default:"config.yaml"`

	Import ImportCmd `cmd:"" help:"Import a backup document or an Alpha Progression CSV export."`
	Export ExportCmd `cmd:"" help:"Write the training document to a backup file."`
	Reset  ResetCmd  `cmd:"" help:"Delete every session, program and setting."`
	Seed   SeedCmd   `cmd:"" help:"Replace the data with three programs and three months of generated sessions."`
	Stats  StatsCmd  `cmd:"" help:"Print the overview and summary metrics as JSON."`
}

// Context is passed to every command's Run method.
type Context struct {
	Svc *tracker.Service
	Out io.Writer
	Now func() time.Time
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("replift-admin"),
		kong.Description("Maintenance tool for the RepLift training log"),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// stdout is reserved for command output.
	log, closer, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	svc, blobs, err := tracker.Open(context.Background(), cfg, metrics.NewManager("replift", "admin", nil), log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer blobs.Close()

	err = ctx.Run(&Context{Svc: svc, Out: os.Stdout, Now: time.Now})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		blobs.Close()
		os.Exit(1)
	}
}
