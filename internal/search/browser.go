package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"campscout/internal/browser"
	"campscout/internal/config"
	"campscout/internal/llm"
)

// defaultEngineURL is the query-prefix form of the search engine the
// browser provider drives when no SearxNG instance is configured.
const defaultEngineURL = "https://www.bing.com/search?q="

var consentTitleRe = regexp.MustCompile(`(?i)before you continue|consent|verify|captcha|robot|unusual traffic`)

// acceptConsentJS clicks the first visible button that reads like a
// consent acceptance, reporting whether anything was clicked.
const acceptConsentJS = `() => {
  const labels = /^(accept|accept all|i agree|agree|got it)$/i;
  for (const el of document.querySelectorAll("button, input[type=submit]")) {
    const text = (el.textContent || el.value || "").trim();
    if (labels.test(text)) { el.click(); return true; }
  }
  return false;
}`

// collectResultsJS harvests organic result links from a rendered
// results page. Engine-specific markup varies, so it keys on headings
// wrapped in anchors, the one structure every engine shares.
const collectResultsJS = `() => {
  const out = [];
  const seen = new Set();
  for (const node of document.querySelectorAll("h2 a[href], h3 a[href]")) {
    const href = node.href;
    if (!href || !href.startsWith("http") || seen.has(href)) continue;
    seen.add(href);
    out.push({ url: href, title: (node.textContent || "").trim() });
  }
  return out.slice(0, 30);
}`

var resultFields = []llm.FieldSpec{
	{Name: "results", Description: "organic search results on this page, each with title and url; skip ads and navigation", Type: "array"},
}

type extractedResults struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}

// BrowserProvider runs queries by driving a real search engine results
// page in the browser. It is the fallback when no SearxNG instance is
// available; engines rate-limit and throw consent walls, so callers
// should pace their queries.
type BrowserProvider struct {
	browserCfg config.BrowserConfig
	engineURL  string
	extractor  llm.Client
	logger     *slog.Logger
}

func NewBrowserProvider(browserCfg config.BrowserConfig, engineURL string, extractor llm.Client, logger *slog.Logger) *BrowserProvider {
	if engineURL == "" {
		engineURL = defaultEngineURL
	}
	return &BrowserProvider{
		browserCfg: browserCfg,
		engineURL:  engineURL,
		extractor:  extractor,
		logger:     logger,
	}
}

func (p *BrowserProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	session, err := browser.Open(ctx, p.browserCfg, p.extractor)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Goto(p.engineURL+url.QueryEscape(query), browser.WaitNetworkIdle); err != nil {
		return nil, err
	}
	session.Settle()

	if title, err := session.Title(); err == nil && consentTitleRe.MatchString(title) {
		var clicked bool
		if err := session.Eval(acceptConsentJS, &clicked); err == nil && clicked {
			session.Settle()
		}
		if title, err := session.Title(); err == nil && consentTitleRe.MatchString(title) {
			return nil, fmt.Errorf("search engine blocked the query with a consent or captcha page")
		}
	}

	results := p.extractResults(ctx, session, limit)
	if len(results) == 0 {
		return nil, fmt.Errorf("no results extracted for query %q", query)
	}
	return results, nil
}

// extractResults asks the LLM extractor first, which tolerates engine
// markup changes, and falls back to heading-anchor DOM harvesting.
func (p *BrowserProvider) extractResults(ctx context.Context, session *browser.Session, limit int) []Result {
	if p.extractor != nil {
		var extracted extractedResults
		err := session.Extract(ctx, "List the organic search results on this page with their titles and full URLs. Ignore ads, images, and navigation links.", resultFields, &extracted)
		if err == nil && len(extracted.Results) > 0 {
			out := make([]Result, 0, limit)
			for _, r := range extracted.Results {
				if !strings.HasPrefix(r.URL, "http") {
					continue
				}
				out = append(out, Result{Title: r.Title, URL: r.URL})
				if len(out) >= limit {
					break
				}
			}
			if len(out) > 0 {
				return out
			}
		}
		if err != nil {
			p.logger.Debug("llm result extraction failed, using DOM harvest", "err", err)
		}
	}

	var harvested []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	}
	if err := session.Eval(collectResultsJS, &harvested); err != nil {
		p.logger.Warn("DOM result harvest failed", "err", err)
		return nil
	}

	out := make([]Result, 0, limit)
	for _, r := range harvested {
		out = append(out, Result{Title: r.Title, URL: r.URL})
		if len(out) >= limit {
			break
		}
	}
	return out
}
