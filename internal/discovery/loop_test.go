package discovery

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"campscout/internal/config"
	"campscout/internal/directory"
)

const crawlPageHTML = `
<html><body>
  <a href="/about">About this guide</a>
  <a href="?page=2">More camps</a>
  <a href="https://campalpha.example/summer">Camp Alpha</a>
  <a href="https://campbeta.example/programs">Camp Beta</a>
  <a href="https://facebook.com/campalpha">Camp Alpha on Facebook</a>
</body></html>`

func TestCrawlDirectoryCollectsExternalLinks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, crawlPageHTML)
	}))
	defer server.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := &Runner{
		fetcher: directory.NewFetcher(config.BrowserConfig{}, "", logger),
		logger:  logger,
	}

	collector := NewCollector()
	added := r.crawlDirectory(context.Background(), collector, server.URL+"/best-summer-camps")

	if added != 2 {
		t.Fatalf("added = %d, want 2", added)
	}
	for _, u := range collector.URLs {
		if u == server.URL+"/about" {
			t.Fatalf("crawled page's own link collected: %s", u)
		}
	}
}
