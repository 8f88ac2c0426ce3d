package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"campscout/internal/agent"
	"campscout/internal/backend"
	"campscout/internal/config"
	"campscout/internal/diagnose"
	"campscout/internal/explore"
	"campscout/internal/prompt"
	"campscout/internal/status"
	"campscout/internal/testharness"
)

const (
	// maxDirectoryExternal and maxDirectoryInternal cap how many scraper
	// requests one directory can fan out into.
	maxDirectoryExternal = 30
	maxDirectoryInternal = 50

	// maxAutoFeedbackVersion stops the diagnose-and-retry loop after this
	// many generated versions; past that a human needs to look.
	maxAutoFeedbackVersion = 3
)

// Worker owns one concurrent development pipeline: claim a request,
// explore the site, prompt the agent, test the result, report back.
type Worker struct {
	id       string
	cfg      *config.Config
	backend  *backend.Client
	explorer *explore.Explorer
	runner   *agent.Runner
	scratch  *Scratchpad
	logger   *slog.Logger
	verbose  bool

	mu             sync.Mutex
	busy           bool
	currentRequest string
	currentURL     string
	child          *os.Process
}

func NewWorker(id string, cfg *config.Config, client *backend.Client, explorer *explore.Explorer, runner *agent.Runner, scratch *Scratchpad, logger *slog.Logger, verbose bool) *Worker {
	return &Worker{
		id:       id,
		cfg:      cfg,
		backend:  client,
		explorer: explorer,
		runner:   runner,
		scratch:  scratch,
		logger:   logger.With("worker", id),
		verbose:  verbose,
	}
}

func (w *Worker) ID() string {
	return w.id
}

// Idle reports whether the worker can accept a claim.
func (w *Worker) Idle() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.busy
}

// TryAcquire marks the worker busy for the given request, returning
// false when it already holds one.
func (w *Worker) TryAcquire(req *backend.DevelopmentRequest) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return false
	}
	w.busy = true
	w.currentRequest = req.ID
	w.currentURL = req.SourceURL
	return true
}

// Release returns the worker to the idle pool. Deferred by the
// supervisor around every pipeline run so a panic or early return can
// never strand a worker in the busy state.
func (w *Worker) Release() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.currentRequest = ""
	w.currentURL = ""
	w.child = nil
}

func (w *Worker) Status() status.WorkerStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return status.WorkerStatus{
		ID:             w.id,
		Busy:           w.busy,
		CurrentRequest: w.currentRequest,
		SourceURL:      w.currentURL,
	}
}

// KillChild signals the worker's agent subprocess during shutdown.
func (w *Worker) KillChild() {
	w.mu.Lock()
	child := w.child
	w.mu.Unlock()
	if child != nil {
		_ = child.Kill()
	}
}

func (w *Worker) setChild(p *os.Process) {
	w.mu.Lock()
	w.child = p
	w.mu.Unlock()
}

// Process runs the full development pipeline for one claimed request.
// Errors are reported to the backend through the request record; the
// returned error is for logging only.
func (w *Worker) Process(ctx context.Context, req *backend.DevelopmentRequest) error {
	w.logger.Info("processing request", "request", req.ID, "source", req.SourceName, "url", req.SourceURL, "version", req.ScraperVersion)
	w.scratch.WriteStatus(fmt.Sprintf("[%s] exploring %s", w.id, req.SourceURL))

	exploration, err := w.explorer.Explore(ctx, req)
	if err != nil {
		// Exploration informs the prompt but is not required for it.
		w.logger.Warn("exploration failed, continuing without it", "request", req.ID, "err", err)
		exploration = nil
	}
	if exploration != nil && req.SiteExploration == nil {
		if err := w.backend.SaveExploration(ctx, req.ID, exploration); err != nil {
			w.logger.Warn("exploration not saved", "request", req.ID, "err", err)
		}
	}

	if exploration != nil && exploration.IsDirectory && len(exploration.DirectoryLinks) > 0 {
		return w.fanOutDirectory(ctx, req, exploration)
	}

	outputFile := w.scratch.ScraperPath(req.ID)
	promptText := prompt.Build(w.cfg.Prompt.TemplatePath, req, exploration, outputFile)
	if err := os.WriteFile(w.scratch.PromptPath(req.ID), []byte(promptText), 0o644); err != nil {
		w.logger.Warn("prompt file not written", "request", req.ID, "err", err)
	}

	w.scratch.WriteStatus(fmt.Sprintf("[%s] generating scraper for %s", w.id, req.SourceName))

	var onText func(string)
	if w.verbose {
		onText = func(text string) { fmt.Print(text) }
	}
	result, captured, err := w.runner.Generate(ctx, promptText, outputFile,
		w.scratch.TranscriptPath(req.ID), onText, w.setChild)
	if err != nil {
		return w.failWithDiagnosis(ctx, req, "", fmt.Sprintf("GENERATION_FAILED: %v", err))
	}
	if result.TimedOut {
		minutes := int(time.Duration(w.cfg.Agent.TimeoutMs) * time.Millisecond / time.Minute)
		if minutes <= 0 {
			minutes = 20
		}
		return w.failWithDiagnosis(ctx, req, "", fmt.Sprintf("Timeout after %d minutes", minutes))
	}

	code, ok := agent.ExtractCode(outputFile, captured)
	if !ok {
		return w.recordFailure(ctx, req, "Claude did not produce any scraper code")
	}

	if err := w.backend.UpdateScraperCode(ctx, req.ID, code); err != nil {
		return fmt.Errorf("update scraper code: %w", err)
	}

	w.scratch.WriteStatus(fmt.Sprintf("[%s] testing scraper for %s", w.id, req.SourceName))
	return w.test(ctx, req, code)
}

// test classifies and executes the generated code, then records the
// outcome and, on failure, feeds a diagnosis back for the next attempt.
func (w *Worker) test(ctx context.Context, req *backend.DevelopmentRequest, code string) error {
	kind := testharness.Classify(code)
	w.logger.Info("testing generated code", "request", req.ID, "strategy", kind)

	strategy := testharness.NewStrategy(w.cfg.Test, kind, w.scratch.Dir(), w.logger)
	outcome, err := strategy.Run(ctx, code, req.SourceURL)
	if err != nil {
		return w.failWithDiagnosis(ctx, req, code, fmt.Sprintf("TEST_FAILED: %v", err))
	}

	switch {
	case outcome.Success && outcome.SessionCount > 0:
		report := backend.TestReport{SessionsFound: outcome.SessionCount, Samples: outcome.Samples}
		if err := w.backend.RecordTestResults(ctx, req.ID, report); err != nil {
			return fmt.Errorf("record test results: %w", err)
		}
		w.logger.Info("scraper validated", "request", req.ID,
			"sessions", outcome.SessionCount, "estimated", outcome.Estimated)
		return nil

	case outcome.Success:
		verdict := testharness.EvaluateZeroSessions(code, req.SourceURL, time.Now())
		if verdict.Valid {
			report := backend.TestReport{Note: verdict.Note, CheckAfter: verdict.CheckAfter}
			if err := w.backend.RecordTestResults(ctx, req.ID, report); err != nil {
				return fmt.Errorf("record test results: %w", err)
			}
			w.logger.Info("zero sessions accepted", "request", req.ID,
				"note", verdict.Note, "checkAfter", verdict.CheckAfter)
			return nil
		}
		return w.failWithDiagnosis(ctx, req, code,
			"Scraper ran successfully but found 0 sessions")

	default:
		return w.failWithDiagnosis(ctx, req, code, outcome.Err)
	}
}

// failWithDiagnosis records the failure and, while the auto-retry
// budget lasts, submits diagnosis feedback that re-opens the request.
func (w *Worker) failWithDiagnosis(ctx context.Context, req *backend.DevelopmentRequest, code, testError string) error {
	if err := w.backend.RecordTestResults(ctx, req.ID, backend.TestReport{Error: testError}); err != nil {
		return fmt.Errorf("record test results: %w", err)
	}

	if req.ScraperVersion >= maxAutoFeedbackVersion {
		w.logger.Warn("auto-feedback budget exhausted, leaving for human review",
			"request", req.ID, "version", req.ScraperVersion)
		return nil
	}

	d := diagnose.Analyze(code, req.SourceURL, testError)
	feedback := diagnose.Feedback(d, testError)
	if err := w.backend.SubmitFeedback(ctx, req.ID, feedback, diagnose.FeedbackBy); err != nil {
		return fmt.Errorf("submit feedback: %w", err)
	}
	w.logger.Info("diagnosis feedback submitted", "request", req.ID, "siteKind", d.SiteKind)
	return nil
}

// recordFailure reports a terminal failure without feedback, for the
// cases where another generation attempt could not go differently.
func (w *Worker) recordFailure(ctx context.Context, req *backend.DevelopmentRequest, errMsg string) error {
	w.logger.Warn("pipeline failed", "request", req.ID, "err", errMsg)
	if err := w.backend.RecordTestResults(ctx, req.ID, backend.TestReport{Error: errMsg}); err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// fanOutDirectory converts a directory request into per-organization
// requests, capped so a mega-directory cannot flood the queue.
func (w *Worker) fanOutDirectory(ctx context.Context, req *backend.DevelopmentRequest, exploration *backend.SiteExploration) error {
	external, internal := 0, 0
	created := 0

	for _, link := range exploration.DirectoryLinks {
		if link.IsInternal {
			if internal >= maxDirectoryInternal {
				continue
			}
			internal++
		} else {
			if external >= maxDirectoryExternal {
				continue
			}
			external++
		}

		name := link.Name
		if name == "" {
			name = link.URL
		}
		notes := fmt.Sprintf("Discovered from directory %s", req.SourceURL)
		if err := w.backend.RequestScraperDevelopment(ctx, name, link.URL, req.CityID, notes, "directory-fanout"); err != nil {
			w.logger.Warn("fan-out request not created", "url", link.URL, "err", err)
			continue
		}
		created++
	}

	notes := fmt.Sprintf("Directory fan-out: %d links found, %d requests created (%d external, %d internal)",
		len(exploration.DirectoryLinks), created, external, internal)
	if err := w.backend.MarkDirectoryProcessed(ctx, req.ID, notes, len(exploration.DirectoryLinks), created); err != nil {
		return fmt.Errorf("mark directory processed: %w", err)
	}
	w.logger.Info("directory fanned out", "request", req.ID, "links", len(exploration.DirectoryLinks), "created", created)
	return nil
}
