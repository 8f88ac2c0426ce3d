package testharness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"campscout/internal/config"
)

const (
	jsonStartSentinel = "__JSON_START__"
	jsonEndSentinel   = "__JSON_END__"

	// defaultLiveTimeout bounds one live harness run, long enough for a
	// real site to load and paginate but short enough to keep a worker
	// from stalling on a hung page.
	defaultLiveTimeout = 3 * time.Minute
)

var successLineRe = regexp.MustCompile(`SUCCESS: Found (\d+) sessions`)

// BrowserHarness runs browser-dependent scraper code through the
// external test-scraper script against the live site. The script owns
// the browser; this side only supervises the subprocess and parses the
// sentinel-delimited result from its output.
type BrowserHarness struct {
	cfg        config.TestConfig
	scratchDir string
	logger     *slog.Logger
}

type harnessResult struct {
	Success      bool        `json:"success"`
	SessionCount int         `json:"sessionCount"`
	Samples      []rawSample `json:"samples"`
	Sessions     []rawSample `json:"sessions"`
	Error        string      `json:"error"`
}

func (h *BrowserHarness) Run(ctx context.Context, code, sourceURL string) (*Outcome, error) {
	if h.cfg.HarnessScript == "" {
		return nil, fmt.Errorf("browser harness script is not configured")
	}

	// Each run gets its own workspace so concurrent workers sharing the
	// scratch directory never test each other's code.
	dir, err := os.MkdirTemp(h.scratchDir, "harness-run-")
	if err != nil {
		return nil, fmt.Errorf("harness workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	scraperPath := filepath.Join(dir, "scraper.ts")
	if err := os.WriteFile(scraperPath, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("write harness scraper: %w", err)
	}

	timeout := defaultLiveTimeout
	if h.cfg.LiveTimeoutMs > 0 {
		timeout = time.Duration(h.cfg.LiveTimeoutMs) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runtime := h.cfg.Runtime
	if runtime == "" {
		runtime = "npx"
	}
	args := h.cfg.RuntimeArgs
	if len(args) == 0 && runtime == "npx" {
		args = []string{"tsx"}
	}
	args = append(append([]string{}, args...), h.cfg.HarnessScript, scraperPath, sourceURL)

	cmd := exec.CommandContext(runCtx, runtime, args...)
	output, runErr := cmd.CombinedOutput()
	text := string(output)

	if runCtx.Err() == context.DeadlineExceeded {
		return &Outcome{
			Success: false,
			Err:     fmt.Sprintf("test harness timed out after %s", timeout),
		}, nil
	}

	if res, ok := parseHarnessResult(text); ok {
		if !res.Success {
			return &Outcome{Success: false, Err: res.Error}, nil
		}
		raw := res.Samples
		if len(raw) == 0 {
			raw = res.Sessions
		}
		count := res.SessionCount
		if count == 0 {
			count = len(raw)
		}
		return &Outcome{
			Success:      true,
			SessionCount: count,
			Samples:      normalizeSamples(raw, maxSamples(h.cfg)),
		}, nil
	}

	// Older harness builds print only a count line. Trust the count but
	// persist no samples; placeholders are worse than nothing.
	if m := successLineRe.FindStringSubmatch(text); m != nil {
		count, _ := strconv.Atoi(m[1])
		return &Outcome{Success: true, SessionCount: count}, nil
	}

	if runErr != nil {
		return &Outcome{
			Success: false,
			Err:     fmt.Sprintf("test harness failed: %v: %s", runErr, truncateOutput(text)),
		}, nil
	}
	return &Outcome{
		Success: false,
		Err:     "test harness produced no parseable result: " + truncateOutput(text),
	}, nil
}

// parseHarnessResult extracts the JSON payload between the start and
// end sentinels. The payload may span lines; the last sentinel pair in
// the output wins.
func parseHarnessResult(output string) (*harnessResult, bool) {
	start := strings.LastIndex(output, jsonStartSentinel)
	if start < 0 {
		return nil, false
	}
	rest := output[start+len(jsonStartSentinel):]
	end := strings.Index(rest, jsonEndSentinel)
	if end < 0 {
		return nil, false
	}
	var res harnessResult
	if err := json.Unmarshal([]byte(rest[:end]), &res); err != nil {
		return nil, false
	}
	return &res, true
}
