package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"campscout/internal/backend"
	"campscout/internal/config"
	"campscout/internal/contact"
	"campscout/internal/daemon"
	"campscout/internal/directory"
	"campscout/internal/discovery"
	"campscout/internal/llm"
	"campscout/internal/search"
)

func main() {
	var (
		configPath    string
		workers       int
		citySlug      string
		verbose       bool
		directoryOnce bool
		contactOnce   bool
		discoveryOnce bool
	)

	flag.StringVar(&configPath, "config", "config/config.yaml", "path to the configuration file")
	flag.IntVar(&workers, "workers", 0, "number of concurrent workers (overrides config, clamped to 1-10)")
	flag.IntVar(&workers, "w", 0, "shorthand for --workers")
	flag.StringVar(&citySlug, "city", "", "only claim requests for this city slug")
	flag.StringVar(&citySlug, "c", "", "shorthand for --city")
	flag.BoolVar(&verbose, "verbose", false, "echo logs and agent output to stdout")
	flag.BoolVar(&verbose, "v", false, "shorthand for --verbose")
	flag.BoolVar(&directoryOnce, "directory", false, "process one directory queue batch and exit")
	flag.BoolVar(&directoryOnce, "d", false, "shorthand for --directory")
	flag.BoolVar(&contactOnce, "contact", false, "run one contact enrichment pass and exit")
	flag.BoolVar(&discoveryOnce, "discovery", false, "run one discovery task and exit")
	flag.BoolVar(&discoveryOnce, "D", false, "shorthand for --discovery")
	flag.Parse()

	cfg := config.Load(configPath)
	if workers > 0 {
		cfg.Worker.Count = workers
	}
	if cfg.Backend.URL == "" {
		fmt.Fprintln(os.Stderr, "backend URL is not configured; set backend.url or the BACKEND_URL environment variable")
		os.Exit(1)
	}

	scratch, err := daemon.NewScratchpad(cfg.Scratchpad)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logFile, err := scratch.OpenLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logFile.Close()

	var sink io.Writer = logFile
	level := slog.LevelInfo
	if verbose {
		sink = io.MultiWriter(logFile, os.Stdout)
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}))

	client := backend.New(cfg.Backend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if directoryOnce || contactOnce || discoveryOnce {
		os.Exit(runOnce(ctx, cfg, client, logger, directoryOnce, contactOnce, discoveryOnce))
	}

	sup := daemon.New(cfg, client, scratch, logger, daemon.Options{
		CitySlug: citySlug,
		Verbose:  verbose,
	})
	if err := sup.Run(ctx); err != nil {
		logger.Error("daemon failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runOnce executes the selected auxiliary loops a single time, for
// cron-style operation and debugging.
func runOnce(ctx context.Context, cfg *config.Config, client *backend.Client, logger *slog.Logger, dir, cont, disc bool) int {
	extractor, _, _, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		logger.Warn("no llm extractor available, AI extraction disabled", "err", err)
		extractor = nil
	}

	code := 0

	if dir {
		if err := directory.New(cfg.Directory, cfg.Browser, client, logger).RunOnce(ctx); err != nil {
			logger.Error("directory pass failed", "err", err)
			code = 1
		}
	}
	if cont {
		if err := contact.New(cfg.Contact, cfg.Browser, client, extractor, logger).RunOnce(ctx); err != nil {
			logger.Error("contact pass failed", "err", err)
			code = 1
		}
	}
	if disc {
		provider, err := search.NewProviderFromConfig(cfg, extractor, logger)
		if err != nil {
			logger.Error("search provider unavailable", "err", err)
			return 1
		}
		if err := discovery.New(cfg.Discovery, cfg.Browser, client, provider, logger).RunOnce(ctx); err != nil {
			logger.Error("discovery pass failed", "err", err)
			code = 1
		}
	}
	return code
}
