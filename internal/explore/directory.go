package explore

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"campscout/internal/backend"
)

// knownDirectoryHosts are listing sites that aggregate many camp
// organizations; a request pointing at one of these is a fan-out job,
// not a single-source scrape.
var knownDirectoryHosts = []string{
	"kidsoutandabout.com",
	"parentmap.com",
	"activityhero.com",
	"hisawyer.com",
	"sawyer.com",
	"acacamps.org",
	"macaronikid.com",
	"mommypoppins.com",
	"redtri.com",
}

var directoryPathRe = regexp.MustCompile(`/guide|/list|/directory|/best-|/top-`)

// IsLikelyDirectory applies the directory heuristic: a known directory
// host, a listing-shaped path, or a page claiming more than 20 camps.
func IsLikelyDirectory(rawURL, estimatedCampCount string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
	for _, known := range knownDirectoryHosts {
		if host == known || strings.HasSuffix(host, "."+known) {
			return true
		}
	}

	if directoryPathRe.MatchString(strings.ToLower(u.Path)) {
		return true
	}

	if n, err := strconv.Atoi(strings.TrimSpace(estimatedCampCount)); err == nil && n > 20 {
		return true
	}
	return false
}

// RawLink is one anchor pulled from the rendered DOM before filtering.
type RawLink struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// linkCollectorJS gathers every anchor on the page; filtering and
// dedup happen Go-side where they are testable.
const linkCollectorJS = `() => Array.from(document.querySelectorAll("a[href]"))
	.map(a => ({url: a.href, name: (a.textContent || "").trim()}))`

var (
	excludedPathRe = regexp.MustCompile(`/search|/login|/cart|/page/\d+|/category/|/tag/`)
	assetExtRe     = regexp.MustCompile(`(?i)\.(pdf|jpe?g|png|gif|svg|ico|css|js|zip|mp4|webp|doc|docx)$`)

	socialDomains = []string{
		"facebook.com", "twitter.com", "x.com", "instagram.com",
		"youtube.com", "linkedin.com", "pinterest.com", "tiktok.com",
		"yelp.com", "tripadvisor.com", "wikipedia.org", "google.com",
	}

	campDetailPathRes = []*regexp.Regexp{
		regexp.MustCompile(`/content/[^/]*camp`),
		regexp.MustCompile(`/camps/.+`),
		regexp.MustCompile(`/programs/.+`),
		regexp.MustCompile(`/activities/.+`),
		regexp.MustCompile(`/classes/.+`),
		regexp.MustCompile(`/listings/.+`),
		regexp.MustCompile(`/providers/.+`),
		regexp.MustCompile(`-\d{4}$`),
	}
	campLinkTextRe = regexp.MustCompile(`(?i)camp|program|class|activity|workshop|lesson`)
)

// FilterDirectoryLinks classifies raw anchors into directory links.
// Internal links are deduped by full URL and kept only when they look
// like camp detail pages; external links are deduped by domain with one
// URL per domain. The result is idempotent for a given input ordering.
func FilterDirectoryLinks(baseURL string, raw []RawLink) []backend.DirectoryLink {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	baseHost := strings.ToLower(strings.TrimPrefix(base.Hostname(), "www."))

	seenInternal := make(map[string]struct{})
	seenDomain := make(map[string]struct{})
	var links []backend.DirectoryLink

	for _, rl := range raw {
		href := strings.TrimSpace(rl.URL)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") {
			continue
		}

		u, err := base.Parse(href)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		u.Fragment = ""

		path := strings.ToLower(u.Path)
		if excludedPathRe.MatchString(path) || assetExtRe.MatchString(path) {
			continue
		}

		host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
		if isSocialDomain(host) {
			continue
		}

		if host == baseHost {
			if !isCampDetailLink(path, rl.Name) {
				continue
			}
			if _, dup := seenInternal[u.String()]; dup {
				continue
			}
			seenInternal[u.String()] = struct{}{}
			links = append(links, backend.DirectoryLink{URL: u.String(), Name: rl.Name, IsInternal: true})
			continue
		}

		if _, dup := seenDomain[host]; dup {
			continue
		}
		seenDomain[host] = struct{}{}
		links = append(links, backend.DirectoryLink{URL: u.String(), Name: rl.Name, IsInternal: false})
	}

	return links
}

func isSocialDomain(host string) bool {
	for _, d := range socialDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isCampDetailLink(path, text string) bool {
	for _, re := range campDetailPathRes {
		if re.MatchString(path) {
			return true
		}
	}
	return campLinkTextRe.MatchString(text)
}
