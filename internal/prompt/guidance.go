package prompt

import (
	"fmt"
	"net/url"
	"strings"

	"campscout/internal/backend"
)

// siteFamily pairs a host fragment with prose about that platform's
// known pitfalls.
type siteFamily struct {
	hostContains string
	guidance     string
}

var siteFamilies = []siteFamily{
	{
		hostContains: "activecommunities.com",
		guidance: "This site runs on ActiveCommunities. The activity search page is a React SPA that loads results through URL parameters, not through the initial HTML. Build search URLs with the activity_select_param and center_ids query parameters and read the JSON the page fetches. Do not rely on DOM selectors against the server-rendered page, because it contains no activity data.",
	},
	{
		hostContains: "campbrainregistration.com",
		guidance: "This is a CampBrain registration portal. Session listings live behind a season selector; pick the upcoming summer season first, then enumerate the program list. Prices are shown per-session on the detail pane, not in the list view.",
	},
	{
		hostContains: "ultracamp.com",
		guidance: "This is an UltraCamp portal. Camp listings are paginated server-side and filtered by a CampId query parameter. Collect every page before extracting, and watch for duplicate sessions listed once per age bracket.",
	},
	{
		hostContains: "amilia.com",
		guidance: "This store runs on Amilia SmartRec. Activities load from a JSON API under /api/ on the same host; prefer calling it directly over walking the storefront DOM, which hydrates late and reorders cards.",
	},
	{
		hostContains: "hisawyer.com",
		guidance: "This is a Sawyer marketplace page. Listings hydrate from XHR calls after load; wait for the network to go idle and allow extra settle time, or the card grid will be empty at extraction time.",
	},
	{
		hostContains: "recdesk.com",
		guidance: "This is a RecDesk community portal. The program list is a plain server-rendered table but session dates are only on the per-program detail pages, so the scraper must follow each program link.",
	},
}

// SiteGuidance returns pitfall prose for known site families, or an
// empty string for unrecognized hosts.
func SiteGuidance(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, fam := range siteFamilies {
		if strings.Contains(host, fam.hostContains) {
			return fam.guidance
		}
	}
	return ""
}

// promptSampleLimit caps how much sample payload each discovered API
// contributes to the prompt.
const promptSampleLimit = 1536

// ExplorationSummary renders a SiteExploration as prompt prose plus
// fenced blocks for locations and discovered APIs. When APIs were
// discovered the summary tells the agent to call them instead of
// scraping HTML.
func ExplorationSummary(exp *backend.SiteExploration) string {
	var b strings.Builder

	b.WriteString("Site exploration results:\n")
	fmt.Fprintf(&b, "- Site type: %s\n", exp.SiteType)
	if exp.HasMultipleLocations {
		fmt.Fprintf(&b, "- The organization has %d locations; sessions must be collected per location.\n", len(exp.Locations))
	}
	if exp.HasCategories {
		fmt.Fprintf(&b, "- Camps are grouped into categories: %s\n", strings.Join(exp.Categories, ", "))
	}
	if exp.RegistrationSystem != "" {
		fmt.Fprintf(&b, "- Registration happens on an external platform: %s\n", exp.RegistrationSystem)
	}
	for _, note := range exp.NavigationNotes {
		fmt.Fprintf(&b, "- %s\n", note)
	}

	if len(exp.Locations) > 0 {
		b.WriteString("\nLocations:\n```\n")
		for _, loc := range exp.Locations {
			line := loc.Name
			if loc.URL != "" {
				line += " | " + loc.URL
			}
			if loc.SiteID != "" {
				line += " | site=" + loc.SiteID
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("```\n")
	}

	if len(exp.DiscoveredAPIs) > 0 {
		b.WriteString("\nIMPORTANT: exploration discovered JSON APIs serving this site's camp data. Strongly prefer calling these APIs with fetch() instead of HTML scraping; the responses below already contain the session data.\n")
		for _, api := range exp.DiscoveredAPIs {
			fmt.Fprintf(&b, "\n%s %s\n", api.Method, api.URL)
			if api.StructureHint != "" {
				fmt.Fprintf(&b, "Response shape: %s (%d bytes)\n", api.StructureHint, api.ResponseSize)
			}
			if api.URLPattern != "" && api.URLPattern != api.URL {
				fmt.Fprintf(&b, "URL pattern: %s\n", api.URLPattern)
			}
			if api.SampleData != "" {
				sample := api.SampleData
				if len(sample) > promptSampleLimit {
					sample = sample[:promptSampleLimit] + "\n... (truncated)"
				}
				b.WriteString("```json\n" + sample + "\n```\n")
			}
		}
		b.WriteString("\nSkeleton:\n```typescript\nexport async function scrape(page): Promise<ExtractedSession[]> {\n  const res = await fetch(\"" + exp.DiscoveredAPIs[0].URL + "\");\n  const data = await res.json();\n  // map data entries to ExtractedSession records\n}\n```\n")
	}

	return strings.TrimRight(b.String(), "\n")
}
