package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zeusync/arena/internal/config"
	"github.com/zeusync/arena/internal/core/npc"
	"github.com/zeusync/arena/internal/core/observability/log"
	"github.com/zeusync/arena/internal/core/roster"
	"github.com/zeusync/arena/internal/sim"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "simulate:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts := sim.DefaultOptions()
	flag.IntVar(&opts.Runs, "n", opts.Runs, "number of battles")
	flag.IntVar(&opts.Workers, "workers", opts.Workers, "battles played in parallel")
	flag.Int64Var(&opts.Seed, "seed", cfg.ResolveSeed(), "base seed")
	brainName := flag.String("brain", cfg.BrainFile, "builtin brain name or tree file")
	outcomes := flag.Bool("outcomes", false, "include every battle in the output")
	flag.Parse()

	logger := log.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	opts.RosterSize = cfg.RosterSize
	opts.TeamSize = cfg.TeamSize
	opts.Battle = cfg.Battle()
	opts.Logger = logger
	if opts.Table, err = roster.LoadTable(cfg.RosterFile); err != nil {
		return err
	}
	if opts.Brain, err = npc.LoadConfig(*brainName); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, results, err := sim.Run(ctx, opts)
	if err != nil {
		return err
	}

	report := struct {
		Seed     int64         `json:"seed"`
		Summary  sim.Summary   `json:"summary"`
		Outcomes []sim.Outcome `json:"outcomes,omitempty"`
	}{Seed: opts.Seed, Summary: summary}
	if *outcomes {
		report.Outcomes = results
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
