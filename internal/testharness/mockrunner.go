package testharness

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"campscout/internal/config"
)

// resultSentinel prefixes the single JSON line the mock runner script
// prints with its findings.
const resultSentinel = "__RESULT__"

// defaultMockTimeout bounds one mock-page execution. Programmatic code
// computes its sessions in memory, so anything slower is stuck.
const defaultMockTimeout = 30 * time.Second

// mockRunnerScript drives the generated scraper against a stub page
// whose methods return empty values. Programmatic code never touches
// them; if the code does reach for the page, the stubs keep it from
// crashing before the result line is printed.
const mockRunnerScript = `import { scrape } from "./scraper";

const mockPage: any = {
  url: () => %q,
  goto: async () => {},
  content: async () => "",
  title: async () => "",
  extract: async () => ({}),
  evaluate: async () => null,
  waitForTimeout: async () => {},
  waitForSelector: async () => null,
};

(async () => {
  try {
    const sessions = await scrape(mockPage);
    const list = Array.isArray(sessions) ? sessions : [];
    console.log("__RESULT__" + JSON.stringify({
      success: true,
      sessionCount: list.length,
      sessions: list.slice(0, 10),
    }));
  } catch (err: any) {
    console.log("__RESULT__" + JSON.stringify({
      success: false,
      sessionCount: 0,
      error: String(err && err.message ? err.message : err),
    }));
  }
})();
`

// MockRunner executes programmatic scraper code against a stub page in
// a subprocess. When execution fails or yields nothing it falls back to
// static estimation, so hardcoded-schedule scrapers still get a
// plausible session count.
type MockRunner struct {
	cfg        config.TestConfig
	scratchDir string
	logger     *slog.Logger
}

type mockResult struct {
	Success      bool        `json:"success"`
	SessionCount int         `json:"sessionCount"`
	Sessions     []rawSample `json:"sessions"`
	Error        string      `json:"error"`
}

func (m *MockRunner) Run(ctx context.Context, code, sourceURL string) (*Outcome, error) {
	dir, err := os.MkdirTemp(m.scratchDir, "mock-run-")
	if err != nil {
		return nil, fmt.Errorf("mock runner workspace: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "scraper.ts"), []byte(code), 0o644); err != nil {
		return nil, err
	}
	runnerPath := filepath.Join(dir, "runner.ts")
	runner := fmt.Sprintf(mockRunnerScript, sourceURL)
	if err := os.WriteFile(runnerPath, []byte(runner), 0o644); err != nil {
		return nil, err
	}

	timeout := defaultMockTimeout
	if m.cfg.MockTimeoutMs > 0 {
		timeout = time.Duration(m.cfg.MockTimeoutMs) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	runtime := m.cfg.Runtime
	if runtime == "" {
		runtime = "npx"
	}
	args := m.cfg.RuntimeArgs
	if len(args) == 0 && runtime == "npx" {
		args = []string{"tsx"}
	}
	args = append(append([]string{}, args...), runnerPath)

	cmd := exec.CommandContext(runCtx, runtime, args...)
	cmd.Dir = dir
	output, runErr := cmd.CombinedOutput()

	if res, ok := parseMockResult(string(output)); ok {
		if res.Success && res.SessionCount > 0 {
			return &Outcome{
				Success:      true,
				SessionCount: res.SessionCount,
				Samples:      normalizeSamples(res.Sessions, maxSamples(m.cfg)),
			}, nil
		}
		m.logger.Info("mock run produced no sessions, using static estimate",
			"error", res.Error)
		return EstimateSessions(code), nil
	}

	if runErr != nil {
		m.logger.Info("mock run failed, using static estimate",
			"err", runErr, "output", truncateOutput(string(output)))
	}
	return EstimateSessions(code), nil
}

// parseMockResult finds the sentinel line anywhere in the combined
// output; tooling chatter around it is ignored.
func parseMockResult(output string) (*mockResult, bool) {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, resultSentinel)
		if idx < 0 {
			continue
		}
		var res mockResult
		if err := json.Unmarshal([]byte(line[idx+len(resultSentinel):]), &res); err != nil {
			continue
		}
		return &res, true
	}
	return nil, false
}

func truncateOutput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 500 {
		return s[:500] + "..."
	}
	return s
}
