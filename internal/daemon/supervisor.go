package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"campscout/internal/agent"
	"campscout/internal/backend"
	"campscout/internal/config"
	"campscout/internal/contact"
	"campscout/internal/directory"
	"campscout/internal/discovery"
	"campscout/internal/explore"
	"campscout/internal/llm"
	"campscout/internal/search"
	"campscout/internal/status"
)

const (
	minWorkers = 1
	maxWorkers = 10

	defaultPollInterval = 5 * time.Second

	directoryInterval = 30 * time.Second
	contactInterval   = 60 * time.Second
	discoveryInterval = 30 * time.Second

	// The auxiliary loops start staggered so the daemon does not slam
	// the backend with four query bursts at once.
	directoryStartDelay = 5 * time.Second
	contactStartDelay   = 10 * time.Second
	discoveryStartDelay = 15 * time.Second

	shutdownGrace = 1 * time.Second
)

// Options are the command-line knobs that shape one daemon run.
type Options struct {
	CitySlug string
	Verbose  bool
}

// Supervisor owns the worker pool, the three auxiliary loops, and the
// status server, and coordinates their shutdown.
type Supervisor struct {
	cfg     *config.Config
	backend *backend.Client
	scratch *Scratchpad
	logger  *slog.Logger
	opts    Options

	workers   []*Worker
	directory *directory.Processor
	contact   *contact.Enricher
	discovery *discovery.Runner
	server    *status.Server

	city *backend.City

	wg sync.WaitGroup
}

// New assembles the daemon. A missing LLM key degrades exploration and
// contact enrichment rather than failing startup; code generation and
// testing do not need it.
func New(cfg *config.Config, client *backend.Client, scratch *Scratchpad, logger *slog.Logger, opts Options) *Supervisor {
	extractor, provider, model, err := llm.NewClientFromConfig(cfg)
	if err != nil {
		logger.Warn("no llm extractor available, AI extraction disabled", "err", err)
		extractor = nil
	} else {
		logger.Info("llm extractor ready", "provider", provider, "model", model)
	}

	explorer := explore.New(cfg, extractor, logger)
	runner := agent.NewRunner(cfg.Agent, logger)

	count := ClampWorkers(cfg.Worker.Count)
	workers := make([]*Worker, count)
	for i := range workers {
		id := fmt.Sprintf("worker-%d-%s", i+1, uuid.NewString()[:8])
		workers[i] = NewWorker(id, cfg, client, explorer, runner, scratch, logger, opts.Verbose)
	}

	searchProvider, err := search.NewProviderFromConfig(cfg, extractor, logger)
	if err != nil {
		logger.Warn("search provider unavailable, discovery loop disabled", "err", err)
		searchProvider = nil
	}

	s := &Supervisor{
		cfg:       cfg,
		backend:   client,
		scratch:   scratch,
		logger:    logger,
		opts:      opts,
		workers:   workers,
		directory: directory.New(cfg.Directory, cfg.Browser, client, logger),
		contact:   contact.New(cfg.Contact, cfg.Browser, client, extractor, logger),
	}
	if searchProvider != nil {
		s.discovery = discovery.New(cfg.Discovery, cfg.Browser, client, searchProvider, logger)
	}
	if cfg.Status.Port > 0 {
		s.server = status.NewServer(cfg.Status, client, s.Snapshot, logger)
	}
	return s
}

// ClampWorkers bounds the configured worker count to [1, 10].
func ClampWorkers(n int) int {
	if n < minWorkers {
		return minWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}

// ResolveCity maps a city slug to its record: exact slug match first,
// then a unique substring match on slug or name.
func ResolveCity(ctx context.Context, client *backend.Client, slug string) (*backend.City, error) {
	cities, err := client.ListAllCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(slug))
	for i := range cities {
		if strings.ToLower(cities[i].Slug) == needle {
			return &cities[i], nil
		}
	}

	var matches []*backend.City
	for i := range cities {
		if strings.Contains(strings.ToLower(cities[i].Slug), needle) ||
			strings.Contains(strings.ToLower(cities[i].Name), needle) {
			matches = append(matches, &cities[i])
		}
	}
	if len(matches) == 1 {
		return matches[0], nil
	}

	slugs := make([]string, 0, len(cities))
	for _, c := range cities {
		slugs = append(slugs, c.Slug)
	}
	sort.Strings(slugs)
	if len(matches) > 1 {
		return nil, fmt.Errorf("city %q is ambiguous; available: %s", slug, strings.Join(slugs, ", "))
	}
	return nil, fmt.Errorf("city %q not found; available: %s", slug, strings.Join(slugs, ", "))
}

// Snapshot reports live state for the status server.
func (s *Supervisor) Snapshot() status.Snapshot {
	snap := status.Snapshot{}
	if s.city != nil {
		snap.City = s.city.Slug
	}
	for _, w := range s.workers {
		snap.Workers = append(snap.Workers, w.Status())
	}
	return snap
}

// Run blocks until ctx is cancelled, then drains: auxiliary loops stop,
// agent subprocesses are signalled, and in-flight pipelines get a short
// grace period.
func (s *Supervisor) Run(ctx context.Context) error {
	if s.opts.CitySlug != "" {
		city, err := ResolveCity(ctx, s.backend, s.opts.CitySlug)
		if err != nil {
			return err
		}
		s.city = city
		s.logger.Info("city filter active", "slug", city.Slug, "name", city.Name)
	}

	s.logger.Info("daemon started", "workers", len(s.workers))
	s.scratch.WriteStatus(fmt.Sprintf("daemon started with %d workers", len(s.workers)))

	if s.server != nil {
		go func() {
			if err := s.server.Start(); err != nil {
				s.logger.Error("status server stopped", "err", err)
			}
		}()
	}

	s.startLoop(ctx, "directory", directoryStartDelay,
		loopInterval(s.cfg.Directory.IntervalMs, directoryInterval), s.directory.RunOnce)
	s.startLoop(ctx, "contact", contactStartDelay,
		loopInterval(s.cfg.Contact.IntervalMs, contactInterval), s.contact.RunOnce)
	if s.discovery != nil {
		s.startLoop(ctx, "discovery", discoveryStartDelay,
			loopInterval(s.cfg.Discovery.IntervalMs, discoveryInterval), s.discovery.RunOnce)
	}

	s.poll(ctx)

	s.shutdown()
	return nil
}

// loopInterval converts a configured millisecond interval, keeping the
// built-in default when the config leaves it unset.
func loopInterval(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

// startLoop runs fn on a fixed interval after an initial delay. Each
// loop runs in a single goroutine, so a pass can never overlap itself;
// a slow pass simply delays the next tick.
func (s *Supervisor) startLoop(ctx context.Context, name string, delay, interval time.Duration, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					s.logger.Warn("loop pass failed", "loop", name, "err", err)
				}
			}
		}
	}()
}

// poll is the main scheduling loop: every tick, each idle worker gets
// one chance to claim work.
func (s *Supervisor) poll(ctx context.Context) {
	interval := time.Duration(s.cfg.Worker.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cityID := ""
	if s.city != nil {
		cityID = s.city.ID
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, w := range s.workers {
			if !w.Idle() {
				continue
			}
			req, err := s.backend.GetNextAndClaim(ctx, w.ID(), cityID)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("claim failed", "worker", w.ID(), "err", err)
				}
				break
			}
			if req == nil {
				break
			}
			if !w.TryAcquire(req) {
				continue
			}

			s.wg.Add(1)
			go func(w *Worker, req *backend.DevelopmentRequest) {
				defer s.wg.Done()
				defer w.Release()
				if err := w.Process(ctx, req); err != nil && ctx.Err() == nil {
					s.logger.Error("pipeline error", "worker", w.ID(), "request", req.ID, "err", err)
				}
			}(w, req)
		}
	}
}

// shutdown signals agent subprocesses and waits briefly for pipelines
// to notice the cancelled context.
func (s *Supervisor) shutdown() {
	s.logger.Info("shutting down")
	s.scratch.WriteStatus("shutting down")

	for _, w := range s.workers {
		w.KillChild()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownGrace):
		s.logger.Warn("shutdown grace elapsed with work in flight")
	}

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = s.server.Shutdown(ctx)
	}

	s.logger.Info("daemon stopped")
	s.scratch.WriteStatus("stopped")
}
