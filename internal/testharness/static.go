package testharness

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"campscout/internal/backend"
)

var (
	weekLiteralRe   = regexp.MustCompile(`\{\s*(?:start|startDate)\s*:\s*['"]\d{4}-\d{2}-\d{2}`)
	isoDateRe       = regexp.MustCompile(`['"](\d{4})-(\d{2})-(\d{2})['"]`)
	locationFieldRe = regexp.MustCompile(`location\s*:\s*['"]([^'"]{2,80})['"]`)
	priceCentsRe    = regexp.MustCompile(`price(?:InCents|_in_cents)?\s*:\s*(\d{3,7})\b`)
	dailyHintRe     = regexp.MustCompile(`(?i)daily|per[ _]?day`)
	minAgeRe        = regexp.MustCompile(`minAge\s*:\s*(\d{1,2})`)
	maxAgeRe        = regexp.MustCompile(`maxAge\s*:\s*(\d{1,2})`)
	sessionNameRe   = regexp.MustCompile(`name\s*:\s*['"]([^'"]{3,80})['"]`)
)

// summerWeekEstimate is the session count assumed for code that spans
// June through August without an enumerable week table: ten weekly
// sessions over a typical summer.
const summerWeekEstimate = 10

// staticSampleCap bounds how many fabricated samples static estimation
// produces.
const staticSampleCap = 5

// EstimateSessions inspects programmatic code without running it and
// predicts how many sessions it would produce. It counts week literals
// and sessions.push call sites, and falls back to a ten-week summer
// estimate when the code mentions the June-August range but has no
// countable table. The outcome is marked Estimated.
func EstimateSessions(code string) *Outcome {
	count := len(weekLiteralRe.FindAllString(code, -1))

	if count == 0 {
		// Distinct push sites each contribute at least one session.
		count = strings.Count(code, "sessions.push(")
	}

	if count <= 1 && spansSummer(code) {
		count = summerWeekEstimate
	}

	if count == 0 {
		return &Outcome{
			Success:   false,
			Estimated: true,
			Err:       "static analysis found no session-producing code",
		}
	}

	return &Outcome{
		Success:      true,
		SessionCount: count,
		Samples:      fabricateSamples(code, count),
		Estimated:    true,
	}
}

// spansSummer reports whether the code's date literals reach from June
// into August, or it names both months in prose.
func spansSummer(code string) bool {
	sawJune, sawAugust := false, false
	for _, m := range isoDateRe.FindAllStringSubmatch(code, -1) {
		month, _ := strconv.Atoi(m[2])
		if month == 6 {
			sawJune = true
		}
		if month == 8 {
			sawAugust = true
		}
	}
	if sawJune && sawAugust {
		return true
	}
	lower := strings.ToLower(code)
	return strings.Contains(lower, "june") && strings.Contains(lower, "august")
}

// fabricateSamples builds representative sample records from whatever
// literals the code carries: dates, one location, a price, an age
// range. Missing fields stay empty rather than invented.
func fabricateSamples(code string, count int) []backend.TestSample {
	n := count
	if n > staticSampleCap {
		n = staticSampleCap
	}

	location := ""
	if m := locationFieldRe.FindStringSubmatch(code); m != nil {
		location = m[1]
	}

	price := ""
	if m := priceCentsRe.FindStringSubmatch(code); m != nil {
		cents, _ := strconv.Atoi(m[1])
		if dailyHintRe.MatchString(code) {
			cents *= 5
		}
		price = fmt.Sprintf("$%d.%02d", cents/100, cents%100)
	}

	ages := ""
	minM := minAgeRe.FindStringSubmatch(code)
	maxM := maxAgeRe.FindStringSubmatch(code)
	switch {
	case minM != nil && maxM != nil:
		ages = minM[1] + "-" + maxM[1]
	case minM != nil:
		ages = minM[1] + "+"
	}

	names := sessionNameRe.FindAllStringSubmatch(code, n)
	dates := isoDateRe.FindAllString(code, -1)

	samples := make([]backend.TestSample, 0, n)
	for i := 0; i < n; i++ {
		s := backend.TestSample{
			Location:  location,
			Price:     price,
			Ages:      ages,
			Available: true,
		}
		if i < len(names) {
			s.Name = names[i][1]
		} else {
			s.Name = fmt.Sprintf("Week %d", i+1)
		}
		if i*2+1 < len(dates) {
			s.Dates = strings.Trim(dates[i*2], `'"`) + " to " + strings.Trim(dates[i*2+1], `'"`)
		} else if i < len(dates) {
			s.Dates = strings.Trim(dates[i], `'"`)
		}
		samples = append(samples, s)
	}
	return samples
}
