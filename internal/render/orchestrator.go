package render

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cutroom/cutroom-agent/internal/ingest"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

const (
	DefaultPollInterval = 3 * time.Second
	DefaultPollTimeout  = 30 * time.Minute
)

// Orchestrator turns a document into a finished render: embedded asset
// sources are uploaded first, then the rewritten document is submitted and
// polled to a terminal state.
type Orchestrator struct {
	api          API
	ingestor     ingest.Ingestor
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *slog.Logger
}

func NewOrchestrator(api API, ingestor ingest.Ingestor, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		api:          api,
		ingestor:     ingestor,
		pollInterval: DefaultPollInterval,
		pollTimeout:  DefaultPollTimeout,
		logger:       logger,
	}
}

// SetPolling overrides the poll cadence and the overall deadline. A zero or
// negative timeout disables the bound (the caller's context still applies).
func (o *Orchestrator) SetPolling(interval, timeout time.Duration) {
	if interval > 0 {
		o.pollInterval = interval
	}
	o.pollTimeout = timeout
}

// Resolve uploads every embedded asset in the document and rewrites the clip
// sources to the returned remote URLs. Uploads run concurrently; the first
// failure cancels the rest and aborts. The input is not mutated.
func (o *Orchestrator) Resolve(ctx context.Context, doc timeline.Document) (timeline.Document, error) {
	out := doc.Clone()

	g, gctx := errgroup.WithContext(ctx)
	for ti := range out.Timeline.Tracks {
		for ci := range out.Timeline.Tracks[ti].Clips {
			clip := &out.Timeline.Tracks[ti].Clips[ci]
			if !clip.Asset.IsEmbedded() {
				continue
			}
			g.Go(func() error {
				payload, err := timeline.ParseDataURI(clip.Asset.Src)
				if err != nil {
					return fmt.Errorf("track %d clip %d: %w", ti, ci, err)
				}
				url, err := o.ingestor.Ingest(gctx, payload)
				if err != nil {
					return fmt.Errorf("track %d clip %d: %w", ti, ci, err)
				}
				clip.Asset.Src = url
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return timeline.Document{}, err
	}
	return out, nil
}

// Submit resolves embedded assets and submits the document, returning the
// remote job id.
func (o *Orchestrator) Submit(ctx context.Context, doc timeline.Document) (string, error) {
	resolved, err := o.Resolve(ctx, doc)
	if err != nil {
		return "", err
	}
	return o.api.Submit(ctx, resolved)
}

// Poll checks the job status once per interval until the job reaches done or
// failed. A failed job surfaces its terminal error; the result is never
// retried automatically. The loop stops on context cancellation or, when a
// poll timeout is configured, after that deadline.
func (o *Orchestrator) Poll(ctx context.Context, id string) (Job, error) {
	if o.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.pollTimeout)
		defer cancel()
	}

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Job{ID: id}, fmt.Errorf("render poll stopped: %w", ctx.Err())
		case <-ticker.C:
		}

		job, err := o.api.Status(ctx, id)
		if err != nil {
			return Job{ID: id}, err
		}
		o.logger.Debug("render status", "render_id", id, "status", job.Status)

		switch job.Status {
		case StatusDone:
			o.logger.Info("render finished", "render_id", id, "url", job.URL)
			return job, nil
		case StatusFailed:
			msg := job.Error
			if msg == "" {
				msg = "unknown error"
			}
			return job, fmt.Errorf("render failed: %s", msg)
		case StatusQueued, StatusFetching, StatusRendering:
			// keep polling
		default:
			return job, fmt.Errorf("render reported unknown status %q", job.Status)
		}
	}
}
