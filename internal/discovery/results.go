package discovery

import (
	"net/url"
	"strings"

	"campscout/internal/explore"
	"campscout/internal/search"
)

// denyHosts never lead to a camp organization's own site: search
// engines, encyclopedias, social networks, review aggregators.
var denyHosts = []string{
	"google.com", "bing.com", "duckduckgo.com", "yahoo.com",
	"wikipedia.org", "wikihow.com",
	"facebook.com", "instagram.com", "twitter.com", "x.com",
	"youtube.com", "linkedin.com", "pinterest.com", "tiktok.com",
	"yelp.com", "tripadvisor.com", "reddit.com", "nextdoor.com",
	"amazon.com", "groupon.com", "indeed.com", "glassdoor.com",
	"care.com", "greatschools.org",
}

// Collector accumulates search hits across all discovery phases,
// deduplicating by registrable-ish domain so a heavily ranked site
// contributes one candidate no matter how many queries surface it.
type Collector struct {
	seenDomain map[string]bool

	// URLs are deduplicated candidate organization sites, in discovery
	// order.
	URLs []string
	// Names are the result titles of non-directory candidates, feeding
	// the combination-query phase.
	Names []string
	// DirectoryURLs are hits on known directory or listicle pages,
	// queued for the crawl phase instead of direct org creation.
	DirectoryURLs []string
}

func NewCollector() *Collector {
	return &Collector{seenDomain: make(map[string]bool)}
}

// Add folds one search hit into the collector. It reports whether the
// hit contributed a new candidate.
func (c *Collector) Add(hit search.Result) bool {
	normalized, host, ok := normalizeCandidate(hit.URL)
	if !ok {
		return false
	}
	if c.seenDomain[host] {
		return false
	}
	c.seenDomain[host] = true

	if explore.IsLikelyDirectory(normalized, "") {
		c.DirectoryURLs = append(c.DirectoryURLs, normalized)
		return true
	}

	c.URLs = append(c.URLs, normalized)
	if name := cleanName(hit.Title); name != "" {
		c.Names = append(c.Names, name)
	}
	return true
}

// AddURL folds a bare URL with no title, used by the directory-crawl
// phase.
func (c *Collector) AddURL(rawURL string) bool {
	return c.Add(search.Result{URL: rawURL})
}

// Found is the total candidate count across both buckets.
func (c *Collector) Found() int {
	return len(c.URLs) + len(c.DirectoryURLs)
}

// normalizeCandidate validates and canonicalizes a hit URL: http(s)
// only, deny-listed hosts dropped, fragments and tracking noise
// stripped.
func normalizeCandidate(rawURL string) (normalized, host string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", "", false
	}

	host = strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, denied := range denyHosts {
		if host == denied || strings.HasSuffix(host, "."+denied) {
			return "", "", false
		}
	}

	u.Fragment = ""
	q := u.Query()
	for param := range q {
		if strings.HasPrefix(param, "utm_") || param == "fbclid" || param == "gclid" {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	return u.String(), host, true
}

// cleanName strips the engine decoration search titles carry, keeping
// the part that reads like an organization name.
func cleanName(title string) string {
	name := title
	for _, sep := range []string{" | ", " - ", " – ", " — ", ": "} {
		if idx := strings.Index(name, sep); idx > 0 {
			name = name[:idx]
		}
	}
	name = strings.TrimSpace(name)
	if len(name) < 3 || len(name) > 80 {
		return ""
	}
	return name
}
