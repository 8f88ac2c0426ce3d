package directory

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"campscout/internal/backend"
)

var assetExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
	".css", ".js", ".pdf", ".zip", ".xml", ".rss",
}

var socialHosts = []string{
	"facebook.com", "twitter.com", "x.com", "instagram.com",
	"youtube.com", "linkedin.com", "pinterest.com", "tiktok.com",
}

// ExtractLinks pulls candidate organization links out of a directory
// page. linkPattern, when present, must match either the resolved URL
// or the anchor text; baseURLFilter, when present, must be a substring
// of the resolved URL. Links back to the directory's own host are
// navigation, not organizations, and are skipped; the rest deduplicate
// to one link per domain so a heavily cross-linked directory yields one
// request per organization, not one per mention.
func ExtractLinks(doc *goquery.Document, pageURL string, linkPattern *regexp.Regexp, baseURLFilter string) []backend.DirectoryLink {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	pageHost := normalizeHost(base.Hostname())

	var links []backend.DirectoryLink
	seenDomain := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		full := resolved.String()
		host := normalizeHost(resolved.Hostname())
		text := strings.TrimSpace(sel.Text())

		if hasAssetExtension(resolved.Path) || isSocialHost(host) {
			return
		}
		if baseURLFilter != "" && !strings.Contains(full, baseURLFilter) {
			return
		}
		if linkPattern != nil && !linkPattern.MatchString(full) && !linkPattern.MatchString(text) {
			return
		}

		if host == pageHost {
			return
		}

		if seenDomain[host] {
			return
		}
		seenDomain[host] = true
		links = append(links, backend.DirectoryLink{URL: full, Name: text, IsInternal: false})
	})

	return links
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}

func hasAssetExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range assetExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func isSocialHost(host string) bool {
	for _, social := range socialHosts {
		if host == social || strings.HasSuffix(host, "."+social) {
			return true
		}
	}
	return false
}
