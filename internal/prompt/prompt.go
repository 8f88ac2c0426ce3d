package prompt

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"campscout/internal/backend"
)

// fallbackTemplate is used when no template file is configured or the
// configured file cannot be read.
const fallbackTemplate = `Write a TypeScript scraper for {{SOURCE_NAME}} at {{SOURCE_URL}}.

Export an async function ` + "`scrape(page): Promise<ExtractedSession[]>`" + ` that returns every
summer camp session (name, startDate, endDate, priceInCents, minAge, maxAge, location).
Write the finished module to {{OUTPUT_FILE}} and nothing else.

{{#NOTES}}Operator notes:
{{NOTES}}

{{/NOTES}}{{#FEEDBACK}}Feedback on scraper version {{FEEDBACK_VERSION}}:
{{FEEDBACK_TEXT}}

{{/FEEDBACK}}{{#PREVIOUS_CODE}}Previous attempt:
` + "```typescript" + `
{{PREVIOUS_CODE}}
` + "```" + `

{{/PREVIOUS_CODE}}{{#SITE_GUIDANCE}}{{SITE_GUIDANCE}}

{{/SITE_GUIDANCE}}{{#EXPLORATION}}{{EXPLORATION_RESULTS}}

{{/EXPLORATION}}`

var sectionRe = regexp.MustCompile(`(?s)\{\{#([A-Z_]+)\}\}(.*?)\{\{/([A-Z_]+)\}\}`)

// Render substitutes {{PLACEHOLDER}} markers and strips
// {{#SECTION}}...{{/SECTION}} blocks whose section is disabled.
func Render(template string, values map[string]string, sections map[string]bool) string {
	out := sectionRe.ReplaceAllStringFunc(template, func(m string) string {
		sub := sectionRe.FindStringSubmatch(m)
		if sub[1] != sub[3] {
			return m
		}
		if sections[sub[1]] {
			return sub[2]
		}
		return ""
	})

	for key, val := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", val)
	}
	return out
}

// Build assembles the code-generation prompt for one request from the
// template, the accumulated feedback history, and the exploration result.
func Build(templatePath string, req *backend.DevelopmentRequest, exploration *backend.SiteExploration, outputFile string) string {
	template := fallbackTemplate
	if templatePath != "" {
		if data, err := os.ReadFile(templatePath); err == nil && len(data) > 0 {
			template = string(data)
		}
	}

	values := map[string]string{
		"SOURCE_NAME": req.SourceName,
		"SOURCE_URL":  req.SourceURL,
		"OUTPUT_FILE": outputFile,
		"NOTES":       req.Notes,
	}
	sections := map[string]bool{
		"NOTES": req.Notes != "",
	}

	if n := len(req.FeedbackHistory); n > 0 {
		last := req.FeedbackHistory[n-1]
		values["FEEDBACK_VERSION"] = fmt.Sprintf("%d", last.ScraperVersionBefore)
		values["FEEDBACK_TEXT"] = last.Feedback
		sections["FEEDBACK"] = true
	} else {
		values["FEEDBACK_VERSION"] = ""
		values["FEEDBACK_TEXT"] = ""
	}

	if req.GeneratedScraperCode != "" {
		values["PREVIOUS_CODE"] = req.GeneratedScraperCode
		sections["PREVIOUS_CODE"] = true
	} else {
		values["PREVIOUS_CODE"] = ""
	}

	if guidance := SiteGuidance(req.SourceURL); guidance != "" {
		values["SITE_GUIDANCE"] = guidance
		sections["SITE_GUIDANCE"] = true
	} else {
		values["SITE_GUIDANCE"] = ""
	}

	if exploration != nil {
		values["EXPLORATION_RESULTS"] = ExplorationSummary(exploration)
		sections["EXPLORATION"] = true
	} else {
		values["EXPLORATION_RESULTS"] = ""
	}

	return Render(template, values, sections)
}
