package status

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"campscout/internal/backend"
	"campscout/internal/config"
)

// WorkerStatus is one worker's slice of the status snapshot.
type WorkerStatus struct {
	ID             string `json:"id"`
	Busy           bool   `json:"busy"`
	CurrentRequest string `json:"currentRequest,omitempty"`
	SourceURL      string `json:"sourceUrl,omitempty"`
}

// Snapshot is the daemon state served on /status.
type Snapshot struct {
	Workers []WorkerStatus `json:"workers"`
	City    string         `json:"city,omitempty"`
}

// SnapshotFunc lets the supervisor hand its live state to the server
// without a package dependency in that direction.
type SnapshotFunc func() Snapshot

// Server exposes the daemon's health and queue state over HTTP for
// operators watching a fleet of daemons.
type Server struct {
	app      *fiber.App
	cfg      config.StatusServerConfig
	backend  *backend.Client
	snapshot SnapshotFunc
	logger   *slog.Logger
	started  time.Time
}

func NewServer(cfg config.StatusServerConfig, client *backend.Client, snapshot SnapshotFunc, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
	})

	s := &Server{
		app:      app,
		cfg:      cfg,
		backend:  client,
		snapshot: snapshot,
		logger:   logger,
		started:  time.Now(),
	}

	app.Get("/healthz", s.handleHealthz)
	app.Get("/status", s.handleStatus)

	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.logger.Info("status server listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	snap := s.snapshot()

	queueDepth := -1
	reqCtx, cancel := context.WithTimeout(c.Context(), 10*time.Second)
	defer cancel()
	if pending, err := s.backend.GetPendingRequests(reqCtx); err == nil {
		queueDepth = len(pending)
	} else {
		s.logger.Warn("queue depth unavailable", "err", err)
	}

	busy := 0
	for _, w := range snap.Workers {
		if w.Busy {
			busy++
		}
	}

	return c.JSON(fiber.Map{
		"uptimeSeconds": int(time.Since(s.started).Seconds()),
		"city":          snap.City,
		"workers":       snap.Workers,
		"busyWorkers":   busy,
		"queueDepth":    queueDepth,
	})
}
