package testharness

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ZeroSessionsVerdict explains whether a zero-session success is a
// legitimate off-season state or a broken scraper.
type ZeroSessionsVerdict struct {
	Valid bool
	// Note records why zero was accepted, for the feedback trail.
	Note string
	// CheckAfter is an ISO date suggesting when to retry, when the
	// evidence names a month.
	CheckAfter string
}

var notPublishedRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)not yet (?:published|available|posted|announced)`),
	regexp.MustCompile(`(?i)coming soon`),
	regexp.MustCompile(`(?i)check back (?:later|soon|in)`),
	regexp.MustCompile(`(?i)registration (?:opens|begins|starts)`),
	regexp.MustCompile(`(?i)schedule (?:is )?not (?:yet )?available`),
	regexp.MustCompile(`(?i)(?:early|mid|late)[- ](?:january|february|march|april|may|june)`),
}

var monthRe = regexp.MustCompile(`(?i)\b(january|february|march|april|may|june|july|august|september|october|november|december)\b`)

var monthNumbers = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
}

// seasonalHosts publish schedules on a known yearly cadence and are
// routinely empty off-season.
var seasonalHosts = []string{
	"pcc.edu",
}

// EvaluateZeroSessions decides whether a successful run that found no
// sessions should count as a pass. Evidence comes from the generated
// code itself (agents leave comments quoting the page) and from the
// source host: community-college and university sites publish summer
// schedules late and are legitimately empty most of the year.
func EvaluateZeroSessions(code, sourceURL string, now time.Time) ZeroSessionsVerdict {
	for _, re := range notPublishedRes {
		loc := re.FindStringIndex(code)
		if loc == nil {
			continue
		}
		// A month mention usually trails the evidence phrase, as in
		// "registration opens in May".
		window := code[loc[0]:]
		if len(window) > len(code[loc[0]:loc[1]])+40 {
			window = window[:loc[1]-loc[0]+40]
		}
		return ZeroSessionsVerdict{
			Valid:      true,
			Note:       fmt.Sprintf("zero sessions accepted: code notes %q", code[loc[0]:loc[1]]),
			CheckAfter: checkAfterFrom(window, now),
		}
	}

	if host := hostOf(sourceURL); host != "" {
		for _, seasonal := range seasonalHosts {
			if host == seasonal || strings.HasSuffix(host, "."+seasonal) {
				return ZeroSessionsVerdict{
					Valid: true,
					Note:  "zero sessions accepted: " + host + " publishes schedules seasonally",
				}
			}
		}
		if strings.HasSuffix(host, ".edu") ||
			strings.Contains(host, "college") || strings.Contains(host, "university") {
			return ZeroSessionsVerdict{
				Valid: true,
				Note:  "zero sessions accepted: academic host " + host + " publishes schedules seasonally",
			}
		}
	}

	return ZeroSessionsVerdict{Valid: false}
}

// checkAfterFrom turns a month mention into the first of that month,
// this year or next depending on whether it already passed.
func checkAfterFrom(evidence string, now time.Time) string {
	m := monthRe.FindString(evidence)
	if m == "" {
		return ""
	}
	month := monthNumbers[strings.ToLower(m)]
	candidate := time.Date(now.Year(), month, 1, 0, 0, 0, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.AddDate(1, 0, 0)
	}
	return candidate.Format("2006-01-02")
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))
}
