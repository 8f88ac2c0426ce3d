package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/temoto/robotstxt"

	"campscout/internal/backend"
	"campscout/internal/config"
)

const defaultBatchSize = 3

// Processor drains the directory queue: it fetches each claimed
// directory page, extracts organization links matching the item's
// pattern, and reports them back so the backend can fan out scraper
// development requests.
type Processor struct {
	cfg     config.DirectoryConfig
	backend *backend.Client
	fetcher *Fetcher
	logger  *slog.Logger
}

func New(cfg config.DirectoryConfig, browserCfg config.BrowserConfig, client *backend.Client, logger *slog.Logger) *Processor {
	return &Processor{
		cfg:     cfg,
		backend: client,
		fetcher: NewFetcher(browserCfg, cfg.UserAgent, logger),
		logger:  logger,
	}
}

// RunOnce claims and processes up to one batch of pending directory
// items. A failed claim means another worker got there first and is not
// an error.
func (p *Processor) RunOnce(ctx context.Context) error {
	batch := p.cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	items, err := p.backend.GetPendingDirectories(ctx, batch)
	if err != nil {
		return fmt.Errorf("list pending directories: %w", err)
	}

	for _, item := range items {
		claimed, err := p.backend.ClaimQueueItem(ctx, item.ID)
		if err != nil {
			p.logger.Warn("directory claim failed", "item", item.ID, "err", err)
			continue
		}
		if !claimed {
			continue
		}

		result := p.process(ctx, item)
		if result.Success {
			p.logger.Info("directory processed", "url", item.URL, "links", result.LinksFound)
		} else {
			p.logger.Warn("directory failed", "url", item.URL, "err", result.Error)
		}
		if err := p.backend.CompleteQueueItem(ctx, item.ID, result); err != nil {
			p.logger.Error("directory completion not recorded", "item", item.ID, "err", err)
		}
	}
	return nil
}

func (p *Processor) process(ctx context.Context, item backend.DirectoryQueueItem) backend.DirectoryResult {
	var pattern *regexp.Regexp
	if item.LinkPattern != "" {
		var err error
		pattern, err = regexp.Compile(item.LinkPattern)
		if err != nil {
			return backend.DirectoryResult{Error: fmt.Sprintf("invalid link pattern %q: %v", item.LinkPattern, err)}
		}
	}

	if p.cfg.RespectRobots && !p.robotsAllowed(ctx, item.URL) {
		return backend.DirectoryResult{Error: "fetch disallowed by robots.txt"}
	}

	html, err := p.fetcher.FetchHTML(ctx, item.URL)
	if err != nil {
		return backend.DirectoryResult{Error: err.Error()}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return backend.DirectoryResult{Error: fmt.Sprintf("parse directory page: %v", err)}
	}

	links := ExtractLinks(doc, item.URL, pattern, item.BaseURLFilter)
	urls := make([]string, 0, len(links))
	for _, l := range links {
		urls = append(urls, l.URL)
	}

	return backend.DirectoryResult{
		Success:       true,
		LinksFound:    len(links),
		ExtractedURLs: urls,
	}
}

// robotsAllowed fetches and evaluates robots.txt for the page. An
// unreachable or unparseable robots.txt allows the fetch.
func (p *Processor) robotsAllowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil {
		return true
	}
	robotsURL := u.Scheme + "://" + u.Host + "/robots.txt"

	resp, err := p.fetcher.Get(ctx, robotsURL)
	if err != nil {
		return true
	}
	defer resp.Body.Close()

	group, err := robotstxt.FromResponse(resp)
	if err != nil {
		return true
	}
	return group.FindGroup(p.fetcher.UserAgent()).Test(u.Path)
}
