package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"campscout/internal/config"
)

const defaultScratchDir = ".scraper-development"

// Scratchpad is the daemon's working directory: the log, per-request
// prompts, generated code, agent transcripts, and the operator-facing
// status file all live here.
type Scratchpad struct {
	dir string
}

func NewScratchpad(cfg config.ScratchpadConfig) (*Scratchpad, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = defaultScratchDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create scratchpad %s: %w", dir, err)
	}
	return &Scratchpad{dir: dir}, nil
}

func (s *Scratchpad) Dir() string {
	return s.dir
}

// OpenLog truncates and opens the daemon log. Each run starts fresh;
// history worth keeping lives in the backend, not the scratchpad.
func (s *Scratchpad) OpenLog() (*os.File, error) {
	return os.OpenFile(filepath.Join(s.dir, "daemon.log"),
		os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
}

func (s *Scratchpad) PromptPath(requestID string) string {
	return filepath.Join(s.dir, "prompt-"+requestID+".md")
}

func (s *Scratchpad) ScraperPath(requestID string) string {
	return filepath.Join(s.dir, "scraper-"+requestID+".ts")
}

func (s *Scratchpad) TranscriptPath(requestID string) string {
	return filepath.Join(s.dir, "transcript-"+requestID+".txt")
}

// WriteStatus overwrites the one-line status file operators tail to see
// what the daemon is doing right now.
func (s *Scratchpad) WriteStatus(text string) {
	// Best effort; status display must never fail a pipeline.
	_ = os.WriteFile(filepath.Join(s.dir, "current-status.txt"), []byte(text+"\n"), 0o644)
}
