package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campscout/internal/config"
	"campscout/internal/llm"
)

// Result is a single search hit.
type Result struct {
	Title       string
	URL         string
	Description string
}

// Provider runs one web search query and returns normalized hits.
// Implementations respect limit where the engine allows it.
type Provider interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// NewProviderFromConfig picks the search provider. A configured SearxNG
// instance wins; otherwise queries go through the browser provider
// against a public search engine.
func NewProviderFromConfig(cfg *config.Config, extractor llm.Client, logger *slog.Logger) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Search.Provider)) {
	case "searxng":
		return NewSearxngProvider(cfg.Search.Searxng)
	case "browser":
		return NewBrowserProvider(cfg.Browser, cfg.Discovery.SearchEngineURL, extractor, logger), nil
	case "":
		if cfg.Search.Searxng.BaseURL != "" {
			return NewSearxngProvider(cfg.Search.Searxng)
		}
		return NewBrowserProvider(cfg.Browser, cfg.Discovery.SearchEngineURL, extractor, logger), nil
	default:
		return nil, fmt.Errorf("unsupported search provider: %s", cfg.Search.Provider)
	}
}

// SearxngProvider queries a SearxNG instance with the JSON API enabled.
type SearxngProvider struct {
	baseURL      string
	client       *http.Client
	defaultLimit int
}

func NewSearxngProvider(cfg config.SearxngConfig) (*SearxngProvider, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("searxng.baseURL is required for the searxng provider")
	}

	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = 10
	}

	return &SearxngProvider{
		baseURL:      base,
		client:       &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		defaultLimit: defaultLimit,
	}, nil
}

type searxngResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (p *SearxngProvider) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = p.defaultLimit
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("format", "json")
	values.Set("limit", strconv.Itoa(limit))
	values.Set("categories", "general")

	// SearxNG serves /search and by default expects POST; form-encoded
	// POST avoids method-restriction 403s.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/search", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("searxng search failed with status %d", resp.StatusCode)
	}

	var payload searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}

	out := make([]Result, 0, limit)
	for _, r := range payload.Results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, Result{Title: r.Title, URL: r.URL, Description: r.Content})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
