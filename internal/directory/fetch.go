package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"campscout/internal/browser"
	"campscout/internal/config"
)

const (
	fetchTimeout     = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxBodyBytes     = 4 << 20
)

// Fetcher loads listing pages for the directory and discovery loops.
// It tries a plain HTTP GET first; sites behind bot protection answer
// 403 or reset the connection, and those fall back to a real browser
// page load.
type Fetcher struct {
	browserCfg config.BrowserConfig
	userAgent  string
	http       *http.Client
	logger     *slog.Logger
}

func NewFetcher(browserCfg config.BrowserConfig, userAgent string, logger *slog.Logger) *Fetcher {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Fetcher{
		browserCfg: browserCfg,
		userAgent:  userAgent,
		http:       &http.Client{Timeout: fetchTimeout},
		logger:     logger,
	}
}

func (f *Fetcher) UserAgent() string {
	return f.userAgent
}

// Get issues a plain GET with the fetcher's user agent. The caller owns
// the response body.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	return f.http.Do(req)
}

// FetchHTML returns the rendered HTML of pageURL, through the browser
// when the plain fetch is blocked.
func (f *Fetcher) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.http.Do(req)
	if err != nil {
		f.logger.Info("page fetch failed, falling back to browser", "url", pageURL, "err", err)
		return f.fetchWithBrowser(ctx, pageURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests {
		f.logger.Info("page fetch blocked, falling back to browser", "url", pageURL, "status", resp.StatusCode)
		return f.fetchWithBrowser(ctx, pageURL)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("page fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("page fetch: %w", err)
	}
	return string(body), nil
}

func (f *Fetcher) fetchWithBrowser(ctx context.Context, pageURL string) (string, error) {
	session, err := browser.Open(ctx, f.browserCfg, nil)
	if err != nil {
		return "", fmt.Errorf("browser fallback: %w", err)
	}
	defer session.Close()

	if err := session.Goto(pageURL, browser.WaitNetworkIdle); err != nil {
		return "", fmt.Errorf("browser fallback: %w", err)
	}
	session.Settle()
	return session.HTML()
}
