package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"campscout/internal/backend"
	"campscout/internal/config"
	"campscout/internal/directory"
	"campscout/internal/search"
)

const (
	defaultMaxResults = 10
	queryPause        = 2 * time.Second
	maxComboQueries   = 2
	maxDirectoryCrawl = 5
	maxFailureLen     = 500
)

// Runner executes discovery tasks: region-wide search sweeps that turn
// queries like "summer camps in Portland" into candidate organization
// URLs for the backend to fold into its catalog.
type Runner struct {
	cfg      config.DiscoveryConfig
	backend  *backend.Client
	provider search.Provider
	fetcher  *directory.Fetcher
	logger   *slog.Logger
}

func New(cfg config.DiscoveryConfig, browserCfg config.BrowserConfig, client *backend.Client, provider search.Provider, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:      cfg,
		backend:  client,
		provider: provider,
		fetcher:  directory.NewFetcher(browserCfg, "", logger),
		logger:   logger,
	}
}

// RunOnce claims and works at most one discovery task. Tasks run for
// minutes; one per pass keeps the loop from monopolizing the browser.
func (r *Runner) RunOnce(ctx context.Context) error {
	tasks, err := r.backend.GetPendingDiscoveryTasks(ctx, 1)
	if err != nil {
		return fmt.Errorf("list pending discovery tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}
	task := tasks[0]

	sessionID := uuid.NewString()
	claimed, err := r.backend.ClaimDiscoveryTask(ctx, task.ID, sessionID)
	if err != nil {
		return fmt.Errorf("claim discovery task: %w", err)
	}
	if !claimed {
		return nil
	}

	r.logger.Info("discovery task claimed", "task", task.ID, "region", task.RegionName, "session", sessionID)

	if err := r.run(ctx, task); err != nil {
		msg := err.Error()
		if len(msg) > maxFailureLen {
			msg = msg[:maxFailureLen]
		}
		if failErr := r.backend.FailDiscoveryTask(ctx, task.ID, msg); failErr != nil {
			r.logger.Error("discovery failure not recorded", "task", task.ID, "err", failErr)
		}
		return fmt.Errorf("discovery task %s: %w", task.ID, err)
	}
	return nil
}

func (r *Runner) run(ctx context.Context, task backend.DiscoveryTask) error {
	collector := NewCollector()
	maxResults := task.MaxSearchResults
	if maxResults <= 0 {
		maxResults = r.cfg.MaxSearchResults
	}
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	// Phase 1: the task's own query sweep.
	for i, query := range task.SearchQueries {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.searchInto(ctx, collector, query, maxResults)
		if err := r.backend.UpdateDiscoveryProgress(ctx, task.ID, "queries",
			i+1, len(collector.URLs), len(collector.DirectoryURLs)); err != nil {
			r.logger.Warn("discovery progress not recorded", "task", task.ID, "err", err)
		}
		r.pause(ctx)
	}

	// Phase 2: combination queries pairing discovered organization
	// names, which surface directory pages listing all of them.
	if len(collector.Names) >= 3 {
		for i, query := range comboQueries(collector.Names, task.RegionName) {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.searchInto(ctx, collector, query, maxResults)
			if err := r.backend.UpdateDiscoveryProgress(ctx, task.ID, "combinations",
				len(task.SearchQueries)+i+1, len(collector.URLs), len(collector.DirectoryURLs)); err != nil {
				r.logger.Warn("discovery progress not recorded", "task", task.ID, "err", err)
			}
			r.pause(ctx)
		}
	}

	// Phase 3: crawl the directory and listicle hits for the external
	// organization links they aggregate.
	crawl := collector.DirectoryURLs
	if len(crawl) > maxDirectoryCrawl {
		crawl = crawl[:maxDirectoryCrawl]
	}
	for _, dirURL := range crawl {
		if err := ctx.Err(); err != nil {
			return err
		}
		added := r.crawlDirectory(ctx, collector, dirURL)
		r.logger.Info("directory crawled", "url", dirURL, "added", added)
	}

	outcome, err := r.backend.ProcessDiscoveryResults(ctx, task.ID, collector.URLs)
	if err != nil {
		return fmt.Errorf("process discovery results: %w", err)
	}
	if err := r.backend.CompleteDiscoveryTask(ctx, task.ID,
		outcome.OrgsCreated, outcome.OrgsExisted, outcome.SourcesCreated); err != nil {
		return fmt.Errorf("complete discovery task: %w", err)
	}

	r.logger.Info("discovery task complete", "task", task.ID,
		"urls", len(collector.URLs),
		"orgsCreated", outcome.OrgsCreated,
		"orgsExisted", outcome.OrgsExisted,
		"sourcesCreated", outcome.SourcesCreated)
	return nil
}

// searchInto runs one query and folds its hits. Individual query
// failures are logged and skipped; the sweep continues.
func (r *Runner) searchInto(ctx context.Context, collector *Collector, query string, limit int) {
	results, err := r.provider.Search(ctx, query, limit)
	if err != nil {
		r.logger.Warn("search query failed", "query", query, "err", err)
		return
	}
	added := 0
	for _, hit := range results {
		if collector.Add(hit) {
			added++
		}
	}
	r.logger.Info("search query done", "query", query, "hits", len(results), "new", added)
}

// comboQueries pairs the first discovered names into quoted queries.
// Pages mentioning several known organizations together are almost
// always directories.
func comboQueries(names []string, region string) []string {
	queries := make([]string, 0, maxComboQueries)
	for i := 0; i+1 < len(names) && len(queries) < maxComboQueries; i += 2 {
		q := fmt.Sprintf("%q %q %s summer camps", names[i], names[i+1], region)
		queries = append(queries, strings.TrimSpace(q))
	}
	return queries
}

// crawlDirectory loads one directory page, through the browser when
// the plain fetch is blocked, and folds its external links into the
// collector.
func (r *Runner) crawlDirectory(ctx context.Context, collector *Collector, dirURL string) int {
	html, err := r.fetcher.FetchHTML(ctx, dirURL)
	if err != nil {
		r.logger.Warn("directory crawl failed", "url", dirURL, "err", err)
		return 0
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0
	}

	added := 0
	for _, link := range directory.ExtractLinks(doc, dirURL, nil, "") {
		if collector.AddURL(link.URL) {
			added++
		}
	}
	return added
}

func (r *Runner) pause(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(queryPause):
	}
}
