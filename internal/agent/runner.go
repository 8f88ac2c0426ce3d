package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"campscout/internal/config"
)

// Result summarizes one agent run.
type Result struct {
	ExitCode   int
	TimedOut   bool
	Model      string
	DurationMs int64
	CostUSD    float64
}

// ExitCodeTimeout mirrors the conventional timeout exit status and is
// what a timed-out agent run reports.
const ExitCodeTimeout = 124

// Runner supervises the code-generating agent subprocess. The agent is
// an opaque CLI that emits stream-json events on stdout and writes its
// finished code to the path given in SCRAPER_OUTPUT_FILE.
type Runner struct {
	cfg    config.AgentConfig
	logger *slog.Logger
}

func NewRunner(cfg config.AgentConfig, logger *slog.Logger) *Runner {
	return &Runner{cfg: cfg, logger: logger}
}

const (
	defaultTimeout   = 20 * time.Minute
	terminationGrace = 5 * time.Second
	previewLen       = 120
)

// Generate runs the agent with the given prompt. Every byte of stdout
// is mirrored to transcriptPath and returned for code extraction;
// onText receives incremental assistant text for operator echo; onStart
// receives the child process so the supervisor can signal it on
// shutdown. A timeout reports exit code 124.
func (r *Runner) Generate(ctx context.Context, prompt, outputFile, transcriptPath string, onText func(string), onStart func(*os.Process)) (*Result, []byte, error) {
	timeout := time.Duration(r.cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	command := r.cfg.Command
	if command == "" {
		return nil, nil, errors.New("agent command is not configured")
	}
	args := r.cfg.Args
	if len(args) == 0 {
		args = []string{"--print", "--output-format", "stream-json"}
	}
	args = append(append([]string{}, args...), prompt)

	cmd := exec.CommandContext(runCtx, command, args...)
	// Stdin must be closed, not merely empty: with an open stdin the
	// agent waits for interactive input and never starts.
	cmd.Stdin = nil
	cmd.Env = buildEnv(outputFile, r.cfg.ExtraPath)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = terminationGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("agent spawn: %w", err)
	}
	if onStart != nil {
		onStart(cmd.Process)
	}

	transcript, err := os.Create(transcriptPath)
	if err != nil {
		// Transcript capture is diagnostic only; keep going without it.
		r.logger.Warn("transcript file unavailable", "path", transcriptPath, "err", err)
		transcript = nil
	}
	if transcript != nil {
		defer transcript.Close()
	}

	result := &Result{}
	captured := r.consumeStream(stdout, transcript, result, onText)

	waitErr := cmd.Wait()

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = ExitCodeTimeout
		return result, captured, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, captured, waitErr
		}
	}

	if msg := strings.TrimSpace(stderr.String()); msg != "" && !isDebuggerNoise(msg) {
		r.logger.Warn("agent stderr", "output", truncate(msg, 2000))
	}

	return result, captured, nil
}

// consumeStream folds the agent's event stream, mirroring every raw
// line to the transcript and an in-memory buffer.
func (r *Runner) consumeStream(stdout io.Reader, transcript io.Writer, result *Result, onText func(string)) []byte {
	var captured bytes.Buffer
	parser := NewParser(stdout)

	// Track the longest assistant text seen so incremental events echo
	// only their new suffix.
	var lastText string

	for {
		ev, raw, err := parser.Next()
		if err != nil {
			break
		}

		captured.WriteString(raw)
		captured.WriteByte('\n')
		if transcript != nil {
			io.WriteString(transcript, raw+"\n")
		}

		switch ev.Type {
		case "":
			// Unparseable line; already mirrored verbatim.
		case "system":
			if ev.Subtype == "init" && ev.Model != "" {
				result.Model = ev.Model
				r.logger.Info("agent started", "model", ev.Model)
			}
		case "assistant":
			if ev.Message == nil {
				continue
			}
			for _, block := range ev.Message.Content {
				switch block.Type {
				case "text":
					text := block.Text
					if strings.HasPrefix(text, lastText) {
						if onText != nil && len(text) > len(lastText) {
							onText(text[len(lastText):])
						}
						lastText = text
					} else {
						if onText != nil {
							onText(text)
						}
						lastText = text
					}
				case "tool_use":
					r.logger.Info("agent tool use", "tool", block.Name,
						"args", truncate(string(block.Input), previewLen))
				}
			}
		case "tool_result":
			r.logger.Debug("agent tool result", "preview", truncate(rawPreview(ev), previewLen))
		case "result":
			result.DurationMs = ev.DurationMs
			result.CostUSD = ev.TotalCostUSD
			r.logger.Info("agent finished", "durationMs", ev.DurationMs, "costUsd", ev.TotalCostUSD)
		}
	}

	return captured.Bytes()
}

func rawPreview(ev Event) string {
	if ev.Message == nil || len(ev.Message.Content) == 0 {
		return ev.Result
	}
	return string(ev.Message.Content[0].Content)
}

func buildEnv(outputFile, extraPath string) []string {
	env := os.Environ()
	env = append(env, "SCRAPER_OUTPUT_FILE="+outputFile)
	if extraPath != "" {
		env = append(env, "PATH="+extraPath+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
	return env
}

func isDebuggerNoise(msg string) bool {
	return strings.HasPrefix(msg, "Debugger attached") ||
		strings.HasPrefix(msg, "Waiting for the debugger")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
