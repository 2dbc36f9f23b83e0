package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/claude/replift/internal/ingest/document"
)

type ImportCmd struct {
	File   string `arg:"" help:"File to import." type:"existingfile"`
	Alpha  bool   `help:"Treat the file as an Alpha Progression CSV export and append its workouts."`
	DryRun bool   `help:"Parse and report without writing (Alpha only)."`
}

func (c *ImportCmd) Run(ctx *Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	if c.Alpha {
		res, err := ctx.Svc.ImportAlpha(context.Background(), f, ctx.Now(), c.DryRun)
		if err != nil {
			return err
		}
		return printJSON(ctx, res)
	}
	if c.DryRun {
		return errors.New("--dry-run only applies to --alpha imports")
	}

	doc, err := document.Decode(f)
	if err != nil {
		return err
	}
	if err := ctx.Svc.Import(context.Background(), doc); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Imported %d sessions and %d programs from %s\n", len(doc.Sessions), len(doc.Programs), c.File)
	return nil
}

type ExportCmd struct {
	Output string `short:"o" help:"Output file. Defaults to replift_backup_<date>.json; '-' writes to stdout."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	doc := ctx.Svc.Export(context.Background())
	if c.Output == "-" {
		return document.Encode(ctx.Out, doc)
	}
	name := c.Output
	if name == "" {
		name = document.BackupFilename(ctx.Now())
	}
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := document.Encode(f, doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Wrote %d sessions to %s\n", len(doc.Sessions), name)
	return nil
}

type ResetCmd struct {
	Yes bool `help:"Confirm the reset."`
}

func (c *ResetCmd) Run(ctx *Context) error {
	if !c.Yes {
		return errors.New("refusing to reset without --yes")
	}
	if err := ctx.Svc.Reset(context.Background()); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, "All data deleted")
	return nil
}

type SeedCmd struct {
	Seed uint64 `help:"Random seed; 0 picks one." default:"0"`
	Yes  bool   `help:"Confirm replacing the existing data."`
}

func (c *SeedCmd) Run(ctx *Context) error {
	if !c.Yes {
		return errors.New("seeding replaces all data; pass --yes")
	}
	seed := c.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	res, err := ctx.Svc.Seed(context.Background(), ctx.Now(), rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "Seeded %d programs and %d sessions (seed %d)\n", res.Programs, res.Sessions, seed)
	return nil
}

type StatsCmd struct{}

func (c *StatsCmd) Run(ctx *Context) error {
	now := ctx.Now()
	return printJSON(ctx, map[string]any{
		"overview": ctx.Svc.Overview(context.Background(), now),
		"summary":  ctx.Svc.Summary(context.Background(), now),
	})
}

func printJSON(ctx *Context, v any) error {
	enc := json.NewEncoder(ctx.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
