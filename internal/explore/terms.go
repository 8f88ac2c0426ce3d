package explore

import (
	"net/url"
	"regexp"
	"strings"
)

// stopwords are tokens too generic to identify a site's own API traffic.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "of": {}, "for": {}, "a": {}, "an": {}, "in": {},
	"at": {}, "to": {}, "with": {}, "on": {}, "by": {},
	"summer": {}, "camp": {}, "camps": {}, "kids": {}, "kid": {},
	"youth": {}, "children": {}, "child": {}, "teen": {}, "teens": {},
	"program": {}, "programs": {}, "class": {}, "classes": {},
	"www": {}, "com": {}, "org": {}, "net": {}, "edu": {},
	"html": {}, "htm": {}, "php": {}, "index": {},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

const maxSearchTerms = 5

// DeriveSearchTerms tokenizes the source name and URL path into up to
// five lowercase terms used to score sniffed API responses. The output
// is a deterministic function of the inputs.
func DeriveSearchTerms(sourceName, sourceURL string) []string {
	var tokens []string
	tokens = append(tokens, splitTokens(sourceName)...)

	if u, err := url.Parse(sourceURL); err == nil {
		tokens = append(tokens, splitTokens(u.Path)...)
	}

	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, maxSearchTerms)
	for _, tok := range tokens {
		if len(tok) < 3 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
		if len(terms) >= maxSearchTerms {
			break
		}
	}
	return terms
}

func splitTokens(s string) []string {
	s = strings.ToLower(s)
	parts := nonAlnum.Split(s, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
