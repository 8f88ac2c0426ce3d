package testharness

import (
	"strings"
	"testing"
)

func TestEstimateSessionsCountsWeekLiterals(t *testing.T) {
	code := `
	const weeks = [
	  { start: "2026-06-15", end: "2026-06-19" },
	  { start: "2026-06-22", end: "2026-06-26" },
	  { start: "2026-06-29", end: "2026-07-03" },
	];
	weeks.forEach(w => sessions.push({ name: "Forest Camp", location: "Hoyt Arboretum", priceInCents: 42500, minAge: 6, maxAge: 12 }));
	`

	out := EstimateSessions(code)
	if !out.Success || !out.Estimated {
		t.Fatalf("expected estimated success, got %+v", out)
	}
	if out.SessionCount != 3 {
		t.Fatalf("SessionCount = %d, want 3", out.SessionCount)
	}
	if len(out.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(out.Samples))
	}
	if out.Samples[0].Location != "Hoyt Arboretum" {
		t.Errorf("sample location = %q", out.Samples[0].Location)
	}
	if out.Samples[0].Price != "$425.00" {
		t.Errorf("sample price = %q", out.Samples[0].Price)
	}
	if out.Samples[0].Ages != "6-12" {
		t.Errorf("sample ages = %q", out.Samples[0].Ages)
	}
}

func TestEstimateSessionsSummerFallback(t *testing.T) {
	code := `
	// Sessions run weekly from June through August.
	const start = "2026-06-15";
	const end = "2026-08-21";
	sessions.push(buildSession(start, end));
	`

	out := EstimateSessions(code)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.SessionCount != 10 {
		t.Fatalf("SessionCount = %d, want 10 for a June-August span", out.SessionCount)
	}
	if len(out.Samples) > staticSampleCap {
		t.Fatalf("samples = %d, want at most %d", len(out.Samples), staticSampleCap)
	}
}

func TestEstimateSessionsNothingToCount(t *testing.T) {
	out := EstimateSessions(`export async function scrape() { return []; }`)
	if out.Success {
		t.Fatalf("expected failure for code with no sessions, got %+v", out)
	}
	if !strings.Contains(out.Err, "no session-producing code") {
		t.Fatalf("Err = %q", out.Err)
	}
}

func TestEstimateSessionsDailyPrice(t *testing.T) {
	code := `
	const weeks = [{ start: "2026-07-06", end: "2026-07-10" }];
	sessions.push({ name: "Day Camp", price: 9500, daily: true });
	`
	out := EstimateSessions(code)
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Samples[0].Price != "$475.00" {
		t.Fatalf("daily price should be multiplied by 5, got %q", out.Samples[0].Price)
	}
}
