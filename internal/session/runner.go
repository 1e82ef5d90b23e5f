package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cutroom/cutroom-agent/internal/render"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// Renderer drives a frozen document through upload, submission and polling.
// Satisfied by render.Orchestrator.
type Renderer interface {
	Submit(ctx context.Context, doc timeline.Document) (string, error)
	Poll(ctx context.Context, renderID string) (render.Job, error)
}

// Runner drains pending exports one at a time. A single worker serializes
// the queue, so two exports never upload or render concurrently.
type Runner struct {
	repo         Repository
	renderer     Renderer
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(repo Repository, renderer Renderer, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		repo:         repo,
		renderer:     renderer,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("export runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("export runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextExport(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("export runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("export runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextExport(ctx context.Context) {
	exports, err := r.repo.ListPendingExports(ctx)
	if err != nil {
		r.logger.Error("failed to list pending exports", "error", err)
		return
	}
	if len(exports) == 0 {
		return
	}

	export := exports[0]
	r.logger.Info("processing export", "export_id", export.ID)

	var doc timeline.Document
	if err := json.Unmarshal([]byte(export.Document), &doc); err != nil {
		r.repo.UpdateExportStatus(ctx, export.ID, ExportStatusFailed, "stored document is unreadable")
		return
	}

	r.repo.UpdateExportStatus(ctx, export.ID, ExportStatusUploading, "")

	renderID, err := r.renderer.Submit(ctx, doc)
	if err != nil {
		r.logger.Error("export submission failed", "export_id", export.ID, "error", err)
		r.repo.UpdateExportStatus(ctx, export.ID, ExportStatusFailed, err.Error())
		return
	}

	r.repo.UpdateExportRenderID(ctx, export.ID, renderID)
	r.repo.UpdateExportStatus(ctx, export.ID, ExportStatusSubmitted, "")
	r.logger.Info("export submitted", "export_id", export.ID, "render_id", renderID)

	job, err := r.renderer.Poll(ctx, renderID)
	if err != nil {
		r.logger.Error("export render failed", "export_id", export.ID, "render_id", renderID, "error", err)
		r.repo.UpdateExportStatus(ctx, export.ID, ExportStatusFailed, err.Error())
		return
	}

	r.repo.UpdateExportURL(ctx, export.ID, job.URL)
	r.repo.UpdateExportStatus(ctx, export.ID, ExportStatusDone, "")
	r.logger.Info("export completed", "export_id", export.ID, "url", job.URL)
}

// CountActive reports exports that are mid-flight, for the tray display.
func (r *Runner) CountActive(ctx context.Context) int {
	exports, err := r.repo.ListExports(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, e := range exports {
		if e.Status == ExportStatusPending || e.Status == ExportStatusUploading || e.Status == ExportStatusSubmitted {
			count++
		}
	}
	return count
}
