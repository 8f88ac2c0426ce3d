package diagnose

import (
	"net/url"
	"strings"
)

// FeedbackBy identifies diagnosis-generated feedback in a request's
// feedback history, distinguishing it from human review.
const FeedbackBy = "auto-diagnosis"

// maxErrorLen bounds how much of the raw test error is quoted in the
// feedback text.
const maxErrorLen = 500

// SiteKind is the diagnosis view of what kind of site the scraper is up
// against, derived from the source URL alone.
type SiteKind string

const (
	SiteActiveCommunities SiteKind = "active_communities"
	SiteReactSPA          SiteKind = "react_spa"
	SiteUnknown           SiteKind = "unknown"
)

// ClassifySite maps a source URL to a site kind. Subdomains like
// secure., portal., and app. almost always front a JavaScript app
// rather than server-rendered pages.
func ClassifySite(sourceURL string) SiteKind {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return SiteUnknown
	}
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, "activecommunities.com") {
		return SiteActiveCommunities
	}
	for _, prefix := range []string{"secure.", "portal.", "app."} {
		if strings.HasPrefix(host, prefix) {
			return SiteReactSPA
		}
	}
	return SiteUnknown
}

// Diagnosis is the structured result of analyzing a failed test run.
type Diagnosis struct {
	SiteKind       SiteKind
	PossibleIssues []string
	SuggestedFixes []string
}

// Analyze inspects the failing scraper code together with the test
// error and collects likely causes with concrete fixes. It never
// executes anything; this is pattern matching over the code text.
func Analyze(code, sourceURL, testError string) *Diagnosis {
	d := &Diagnosis{SiteKind: ClassifySite(sourceURL)}

	usesDOMSelectors := strings.Contains(code, "querySelector") ||
		strings.Contains(code, ".locator(") ||
		strings.Contains(code, "$$eval") || strings.Contains(code, "$eval")
	usesAIExtract := strings.Contains(code, "page.extract(")
	waitsForIdle := strings.Contains(code, "networkidle")
	hasSleep := strings.Contains(code, "waitForTimeout") || strings.Contains(code, "setTimeout")
	hasPaginationParam := strings.Contains(code, "page=") || strings.Contains(code, "offset=") ||
		strings.Contains(code, "pageNumber")
	hasPaginationLoop := strings.Contains(code, "while") &&
		(strings.Contains(code, "nextPage") || strings.Contains(code, "hasMore") ||
			strings.Contains(code, "page++") || strings.Contains(code, "offset +="))

	switch d.SiteKind {
	case SiteActiveCommunities:
		d.PossibleIssues = append(d.PossibleIssues,
			"ActiveCommunities pages render through React and the server HTML carries no activity data")
		d.SuggestedFixes = append(d.SuggestedFixes,
			"Build the activity search URL with activity_select_param and center_ids query parameters and read the JSON responses the page fetches, instead of scraping the DOM")
	case SiteReactSPA:
		d.PossibleIssues = append(d.PossibleIssues,
			"The host looks like a single-page application; content appears only after client-side rendering")
		d.SuggestedFixes = append(d.SuggestedFixes,
			"Wait for network idle plus an explicit settle delay before extracting, or call the site's JSON API directly")
	}

	if usesDOMSelectors && !usesAIExtract {
		d.PossibleIssues = append(d.PossibleIssues,
			"The scraper relies on exact DOM selectors, which break when the page structure shifts")
		d.SuggestedFixes = append(d.SuggestedFixes,
			"Use page.extract() with a field description instead of hand-written selectors")
	}

	if !waitsForIdle && !hasSleep && usesDOMSelectors {
		d.PossibleIssues = append(d.PossibleIssues,
			"The scraper reads the page without waiting for dynamic content to load")
		d.SuggestedFixes = append(d.SuggestedFixes,
			"Wait for the network to go idle or add page.waitForTimeout(3000) after navigation")
	}

	if hasPaginationParam && !hasPaginationLoop {
		d.PossibleIssues = append(d.PossibleIssues,
			"The target URL is paginated but the scraper fetches only one page")
		d.SuggestedFixes = append(d.SuggestedFixes,
			"Loop over pages until a page returns no sessions, accumulating results")
	}

	if len(d.PossibleIssues) == 0 && testError != "" {
		d.PossibleIssues = append(d.PossibleIssues,
			"The failure cause is not apparent from the code; the test error below is the best lead")
	}

	return d
}

// Feedback renders a diagnosis as the feedback text submitted to the
// backend for the next generation attempt.
func Feedback(d *Diagnosis, testError string) string {
	var b strings.Builder

	if d.SiteKind == SiteActiveCommunities {
		b.WriteString("⚠️ CRITICAL: This is an ActiveCommunities site. ")
		b.WriteString("The previous scraper failed because ActiveCommunities search pages are React apps with no activity data in the initial HTML. ")
		b.WriteString("You MUST query the activity API with activity_select_param and center_ids parameters rather than scraping rendered markup.\n\n")
	}

	b.WriteString("Automated diagnosis of the failed test run:\n")

	if len(d.PossibleIssues) > 0 {
		b.WriteString("\nPossible issues:\n")
		for _, issue := range d.PossibleIssues {
			b.WriteString("- " + issue + "\n")
		}
	}
	if len(d.SuggestedFixes) > 0 {
		b.WriteString("\nSuggested fixes:\n")
		for _, fix := range d.SuggestedFixes {
			b.WriteString("- " + fix + "\n")
		}
	}

	if testError != "" {
		msg := testError
		if len(msg) > maxErrorLen {
			msg = msg[:maxErrorLen] + "..."
		}
		b.WriteString("\nTest error:\n" + msg + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
