package testharness

import (
	"regexp"
	"strings"
)

// Kind is the execution strategy a piece of generated code needs.
type Kind string

const (
	// KindProgrammatic code computes its sessions (hardcoded week
	// tables, generator loops) and runs against a mock page.
	KindProgrammatic Kind = "programmatic"
	// KindBrowser code navigates or reads the DOM and needs a live
	// browser harness.
	KindBrowser Kind = "browser"
)

var (
	browserIndicators = []string{
		"page.goto(",
		"page.extract(",
		"querySelectorAll",
		".click(",
		"waitFor",
	}

	weeksArrayRe    = regexp.MustCompile(`(?:const\s+weeks\s*=\s*\[|weeks:\s*(?:Array<[^>]*>|\[[^\]]*\])\s*=\s*\[)`)
	weeksLoopRe     = regexp.MustCompile(`weeks\.forEach|for\s*\([^)]*weeks\.length`)
	genericLoopRe   = regexp.MustCompile(`\bfor\s*\(|\bwhile\s*\(`)
	sessionsPushLit = "sessions.push"
)

// Classify decides how generated code should be tested. It is a pure
// function of the code string: same code, same classification. The
// conservative default is browser-dependent.
func Classify(code string) Kind {
	for _, indicator := range browserIndicators {
		if strings.Contains(code, indicator) {
			return KindBrowser
		}
	}

	hasPush := strings.Contains(code, sessionsPushLit)

	if weeksArrayRe.MatchString(code) && hasPush && weeksLoopRe.MatchString(code) {
		return KindProgrammatic
	}

	if strings.Contains(code, "generateWeeklySessions") && hasPush {
		return KindProgrammatic
	}

	if genericLoopRe.MatchString(code) && hasPush {
		return KindProgrammatic
	}

	return KindBrowser
}
