package prompt

import (
	"strings"
	"testing"

	"campscout/internal/backend"
)

func TestRenderSections(t *testing.T) {
	template := "Hello {{NAME}}.\n{{#EXTRA}}Extra: {{EXTRA_TEXT}}\n{{/EXTRA}}Bye."

	withSection := Render(template,
		map[string]string{"NAME": "world", "EXTRA_TEXT": "detail"},
		map[string]bool{"EXTRA": true})
	if withSection != "Hello world.\nExtra: detail\nBye." {
		t.Fatalf("rendered = %q", withSection)
	}

	withoutSection := Render(template,
		map[string]string{"NAME": "world", "EXTRA_TEXT": "detail"},
		map[string]bool{})
	if withoutSection != "Hello world.\nBye." {
		t.Fatalf("rendered = %q", withoutSection)
	}
}

func TestBuildFirstAttempt(t *testing.T) {
	req := &backend.DevelopmentRequest{
		ID:         "req1",
		SourceName: "Trackers Earth",
		SourceURL:  "https://trackersearth.com/camps",
	}

	out := Build("", req, nil, "/tmp/scraper-req1.ts")

	if !strings.Contains(out, "Trackers Earth") || !strings.Contains(out, "https://trackersearth.com/camps") {
		t.Fatalf("prompt missing source identity:\n%s", out)
	}
	if !strings.Contains(out, "/tmp/scraper-req1.ts") {
		t.Fatalf("prompt missing output file path")
	}
	if strings.Contains(out, "Feedback on scraper version") {
		t.Fatalf("first attempt should carry no feedback section")
	}
	if strings.Contains(out, "Previous attempt:") {
		t.Fatalf("first attempt should carry no previous code")
	}
}

func TestBuildRetryCarriesFeedbackAndCode(t *testing.T) {
	req := &backend.DevelopmentRequest{
		ID:                   "req2",
		SourceName:           "Example Camp",
		SourceURL:            "https://example.com",
		ScraperVersion:       2,
		GeneratedScraperCode: "export async function scrape(page) { return []; }",
		FeedbackHistory: []backend.FeedbackEntry{
			{Feedback: "old feedback", ScraperVersionBefore: 1},
			{Feedback: "latest: wait for network idle", ScraperVersionBefore: 2},
		},
	}

	out := Build("", req, nil, "/tmp/out.ts")

	if !strings.Contains(out, "latest: wait for network idle") {
		t.Fatalf("prompt should carry the most recent feedback")
	}
	if strings.Contains(out, "old feedback") {
		t.Fatalf("prompt should not carry stale feedback entries")
	}
	if !strings.Contains(out, "export async function scrape(page)") {
		t.Fatalf("prompt should include the previous code")
	}
}

func TestBuildWithExplorationPrefersAPIs(t *testing.T) {
	exploration := &backend.SiteExploration{
		SiteType: "single_list",
		DiscoveredAPIs: []backend.DiscoveredAPI{
			{
				URL:           "https://example.com/api/activities?siteId=4",
				Method:        "GET",
				StructureHint: "Array[40]",
				ResponseSize:  20480,
				MatchCount:    12,
			},
		},
	}
	req := &backend.DevelopmentRequest{SourceName: "X", SourceURL: "https://example.com"}

	out := Build("", req, exploration, "/tmp/out.ts")

	if !strings.Contains(out, "Strongly prefer calling these APIs") {
		t.Fatalf("prompt should push the agent toward discovered APIs")
	}
	if !strings.Contains(out, "https://example.com/api/activities?siteId=4") {
		t.Fatalf("prompt should name the discovered endpoint")
	}
	if !strings.Contains(out, "const res = await fetch(") {
		t.Fatalf("prompt should include the fetch skeleton")
	}
}

func TestSiteGuidance(t *testing.T) {
	if g := SiteGuidance("https://anc.apm.activecommunities.com/portlandparks"); !strings.Contains(g, "activity_select_param") {
		t.Errorf("ActiveCommunities guidance missing, got %q", g)
	}
	if g := SiteGuidance("https://trackersearth.com"); g != "" {
		t.Errorf("unknown host should have no guidance, got %q", g)
	}
}
