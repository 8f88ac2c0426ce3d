package testharness

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"campscout/internal/config"
)

func TestParseMockResult(t *testing.T) {
	output := `npm warn config ignoring workspace config
__RESULT__{"success":true,"sessionCount":8,"sessions":[{"name":"Week 1","startDate":"2026-06-15","endDate":"2026-06-19","price":35000}]}
`
	res, ok := parseMockResult(output)
	if !ok {
		t.Fatalf("sentinel line not found")
	}
	if !res.Success || res.SessionCount != 8 {
		t.Fatalf("parsed %+v", res)
	}
	if len(res.Sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(res.Sessions))
	}

	sample := res.Sessions[0].normalize()
	if sample.Dates != "2026-06-15 to 2026-06-19" {
		t.Errorf("dates = %q", sample.Dates)
	}
	if sample.Price != "$350.00" {
		t.Errorf("price = %q", sample.Price)
	}
}

func TestParseMockResultAbsent(t *testing.T) {
	if _, ok := parseMockResult("tsx crashed\nstack trace here\n"); ok {
		t.Fatalf("should not parse output without sentinel")
	}
}

func TestParseHarnessResult(t *testing.T) {
	output := `Launching browser...
Navigated to https://example.com
__JSON_START__{"success":true,"sessionCount":2,"samples":[
  {"name":"Art Camp","dates":"Jun 15-19","location":"Studio A","ages":"7-10","price":"$395","available":true},
  {"name":"Robotics Camp","dates":"Jun 22-26","location":"Lab","ages":"9-13","price":"$450","available":false}
]}__JSON_END__
done
`
	res, ok := parseHarnessResult(output)
	if !ok {
		t.Fatalf("sentinel block not found")
	}
	if !res.Success || res.SessionCount != 2 || len(res.Samples) != 2 {
		t.Fatalf("parsed %+v", res)
	}

	samples := normalizeSamples(res.Samples, 10)
	if samples[1].Available {
		t.Errorf("second sample should be unavailable")
	}
	if samples[0].Price != "$395" {
		t.Errorf("string price should pass through, got %q", samples[0].Price)
	}
}

// A zero-session success must stay distinguishable from one session: the
// count-only fallback parses the number exactly.
func TestSuccessLineFallback(t *testing.T) {
	for _, tt := range []struct {
		line string
		want int
	}{
		{"SUCCESS: Found 0 sessions", 0},
		{"SUCCESS: Found 1 sessions", 1},
		{"SUCCESS: Found 42 sessions", 42},
	} {
		m := successLineRe.FindStringSubmatch(tt.line)
		if m == nil {
			t.Fatalf("no match for %q", tt.line)
		}
		got, err := strconv.Atoi(m[1])
		if err != nil || got != tt.want {
			t.Fatalf("line %q parsed as %q, want %d", tt.line, m[1], tt.want)
		}
	}
}

// Two workers sharing one scratch directory must each test their own
// code. The fake runtime sleeps before reading the scraper file and
// reports its byte count, so a clobbered file shows up as the wrong
// count.
func TestBrowserHarnessIsolatesConcurrentRuns(t *testing.T) {
	scratch := t.TempDir()
	cfg := config.TestConfig{
		Runtime: "/bin/sh",
		RuntimeArgs: []string{"-c",
			`sleep 0.4; printf '__JSON_START__{"success":true,"sessionCount":%s}__JSON_END__' "$(wc -c <"$1")"`},
		HarnessScript: "harness",
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	codeA := strings.Repeat("A", 10)
	codeB := strings.Repeat("B", 25)

	run := func(code string, out chan<- *Outcome) {
		h := &BrowserHarness{cfg: cfg, scratchDir: scratch, logger: logger}
		outcome, err := h.Run(context.Background(), code, "https://example.com/camps")
		if err != nil {
			t.Error(err)
			out <- nil
			return
		}
		out <- outcome
	}

	chA := make(chan *Outcome, 1)
	chB := make(chan *Outcome, 1)
	go run(codeA, chA)
	time.Sleep(150 * time.Millisecond)
	go run(codeB, chB)

	outA, outB := <-chA, <-chB
	if outA == nil || outB == nil {
		t.Fatal("harness run failed")
	}
	if outA.SessionCount != len(codeA) {
		t.Fatalf("first run read %d bytes, want its own %d", outA.SessionCount, len(codeA))
	}
	if outB.SessionCount != len(codeB) {
		t.Fatalf("second run read %d bytes, want its own %d", outB.SessionCount, len(codeB))
	}
}

func TestNormalizeSamplesDropsEmpties(t *testing.T) {
	raw := []rawSample{
		{Name: "Real Camp", Dates: "Jun 1-5"},
		{},
		{Name: "Another", StartDate: "2026-07-06"},
	}
	samples := normalizeSamples(raw, 10)
	if len(samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(samples))
	}
}
