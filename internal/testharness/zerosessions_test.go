package testharness

import (
	"testing"
	"time"
)

var zsNow = time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

func TestEvaluateZeroSessionsNotYetPublished(t *testing.T) {
	code := `
	// The page says "Summer 2026 schedule not yet published. Registration opens March 1."
	export async function scrape(page) { return []; }
	`
	v := EvaluateZeroSessions(code, "https://example.com/camps", zsNow)
	if !v.Valid {
		t.Fatalf("expected valid zero-session verdict")
	}
	if v.Note == "" {
		t.Fatalf("verdict should carry a note")
	}
}

func TestEvaluateZeroSessionsCheckAfter(t *testing.T) {
	code := `// registration opens in May`
	v := EvaluateZeroSessions(code, "https://example.com", zsNow)
	if !v.Valid {
		t.Fatalf("expected valid verdict")
	}
	if v.CheckAfter != "2026-05-01" {
		t.Fatalf("CheckAfter = %q, want 2026-05-01", v.CheckAfter)
	}
}

func TestEvaluateZeroSessionsCheckAfterRollsOver(t *testing.T) {
	// When the named month already passed this year, retry next year.
	now := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	v := EvaluateZeroSessions(`// coming soon, check back in May`, "https://example.com", now)
	if v.CheckAfter != "2027-05-01" {
		t.Fatalf("CheckAfter = %q, want 2027-05-01", v.CheckAfter)
	}
}

func TestEvaluateZeroSessionsSeasonalHost(t *testing.T) {
	for _, u := range []string{
		"https://www.pcc.edu/community/youth/summer/",
		"https://climb.pcc.edu/camps",
		"https://ceed.oregonstate.edu/precollege",
		"https://portlandcommunitycollege.org/camps",
	} {
		v := EvaluateZeroSessions("export async function scrape() { return []; }", u, zsNow)
		if !v.Valid {
			t.Errorf("expected seasonal host %s to validate zero sessions", u)
		}
	}
}

func TestEvaluateZeroSessionsInvalid(t *testing.T) {
	v := EvaluateZeroSessions("export async function scrape() { return []; }",
		"https://trackersearth.com/camps", zsNow)
	if v.Valid {
		t.Fatalf("plain commercial site with no evidence should not validate zero sessions")
	}
}
