package explore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"campscout/internal/backend"
	"campscout/internal/browser"
)

// campIndicatorRe matches generic vocabulary that shows up in camp
// catalog payloads regardless of the organization's own naming.
var campIndicatorRe = regexp.MustCompile(`(?i)camp|session|program|registration|enroll|price|cost|age|grade`)

const (
	// minIndicatorHits is the score a response needs on generic
	// indicators alone to count as a camp API.
	minIndicatorHits = 5
	sampleDataLimit  = 2048
)

// ScoreResponses turns sniffed JSON responses into DiscoveredAPI records,
// keeping only responses whose body mentions the site's search terms or
// enough generic camp vocabulary. Results are sorted by matchCount
// descending so the strongest candidate leads the prompt.
func ScoreResponses(responses []browser.SniffedResponse, terms []string) []backend.DiscoveredAPI {
	apis := make([]backend.DiscoveredAPI, 0, len(responses))

	for _, resp := range responses {
		lower := strings.ToLower(resp.Body)

		termHits := 0
		for _, term := range terms {
			termHits += strings.Count(lower, term)
		}
		indicatorHits := len(campIndicatorRe.FindAllStringIndex(resp.Body, -1))

		if termHits == 0 && indicatorHits < minIndicatorHits {
			continue
		}

		apis = append(apis, backend.DiscoveredAPI{
			URL:           resp.URL,
			Method:        resp.Method,
			ContentType:   resp.ContentType,
			ResponseSize:  len(resp.Body),
			MatchCount:    termHits + indicatorHits,
			StructureHint: structureHint(resp.Body),
			URLPattern:    GeneralizeURL(resp.URL),
			SampleData:    sampleData(resp.Body),
		})
	}

	sort.SliceStable(apis, func(i, j int) bool {
		return apis[i].MatchCount > apis[j].MatchCount
	})
	return apis
}

// structureHint summarizes the top-level JSON shape for the prompt.
func structureHint(body string) string {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case []any:
		return fmt.Sprintf("Array[%d]", len(t))
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if len(keys) > 8 {
			keys = append(keys[:8], "...")
		}
		return "Object with keys: " + strings.Join(keys, ", ")
	default:
		return ""
	}
}

var (
	uuidSegmentRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hex24SegmentRe = regexp.MustCompile(`^[0-9a-f]{24}$`)
	numericRe      = regexp.MustCompile(`^\d+$`)
)

// GeneralizeURL rewrites identifier-shaped path segments so similar
// endpoints collapse to one pattern: numeric ids become {id}, UUIDs
// {uuid}, 24-hex ids {objectId}. The query string is left untouched.
func GeneralizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	segments := strings.Split(u.Path, "/")
	for i, seg := range segments {
		switch {
		case seg == "":
		case uuidSegmentRe.MatchString(seg):
			segments[i] = "{uuid}"
		case hex24SegmentRe.MatchString(seg):
			segments[i] = "{objectId}"
		case numericRe.MatchString(seg):
			segments[i] = "{id}"
		}
	}
	u.Path = strings.Join(segments, "/")
	return u.String()
}

// sampleData pretty-prints the first part of the body for the prompt,
// marking truncation explicitly.
func sampleData(body string) string {
	pretty := body
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(body), "", "  "); err == nil {
		pretty = buf.String()
	}
	if len(pretty) > sampleDataLimit {
		return pretty[:sampleDataLimit] + "\n... (truncated)"
	}
	return pretty
}
