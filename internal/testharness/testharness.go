package testharness

import (
	"context"
	"log/slog"

	"campscout/internal/backend"
	"campscout/internal/config"
)

// Outcome is what a strategy learned about a piece of generated code.
type Outcome struct {
	Success      bool
	SessionCount int
	// Samples holds up to MaxSampleCount representative sessions.
	// Placeholder records fabricated from a count-only success line are
	// never included here.
	Samples []backend.TestSample
	// Estimated is set when the count came from static analysis rather
	// than executing the code.
	Estimated bool
	// Err carries the failure detail when Success is false.
	Err string
}

// Strategy executes generated scraper code and reports what it found.
type Strategy interface {
	Run(ctx context.Context, code, sourceURL string) (*Outcome, error)
}

// NewStrategy picks the execution strategy for the given classification.
// Programmatic code runs in a mock-page sandbox with static estimation
// as fallback; browser-dependent code goes to the live harness.
func NewStrategy(cfg config.TestConfig, kind Kind, scratchDir string, logger *slog.Logger) Strategy {
	if kind == KindProgrammatic {
		return &MockRunner{cfg: cfg, scratchDir: scratchDir, logger: logger}
	}
	return &BrowserHarness{cfg: cfg, scratchDir: scratchDir, logger: logger}
}

// maxSamples returns the configured sample cap, defaulting to 10.
func maxSamples(cfg config.TestConfig) int {
	if cfg.MaxSampleCount > 0 {
		return cfg.MaxSampleCount
	}
	return 10
}
