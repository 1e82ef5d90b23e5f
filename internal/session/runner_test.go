package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/render"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type fakeRenderer struct {
	submitCalled atomic.Int32
	pollCalled   atomic.Int32
	submitErr    error
	pollErr      error
	job          render.Job
}

func (f *fakeRenderer) Submit(ctx context.Context, doc timeline.Document) (string, error) {
	f.submitCalled.Add(1)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "render-1", nil
}

func (f *fakeRenderer) Poll(ctx context.Context, renderID string) (render.Job, error) {
	f.pollCalled.Add(1)
	if f.pollErr != nil {
		return render.Job{}, f.pollErr
	}
	job := f.job
	job.ID = renderID
	return job, nil
}

func queueExport(t *testing.T, repo Repository, doc timeline.Document) *Export {
	t.Helper()

	payload, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal document: %v", err)
	}
	now := time.Now()
	export := &Export{
		ID:        "exp-1",
		Status:    ExportStatusPending,
		Document:  string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateExport(context.Background(), export); err != nil {
		t.Fatalf("create export: %v", err)
	}
	return export
}

func TestRunner_ProcessExport_Done(t *testing.T) {
	repo := testRepo(t)
	fake := &fakeRenderer{job: render.Job{Status: render.StatusDone, URL: "https://cdn.example.com/out.mp4"}}
	runner := NewRunner(repo, fake, testLogger())

	export := queueExport(t, repo, seedDocument())
	runner.processNextExport(context.Background())

	updated, err := repo.GetExport(context.Background(), export.ID)
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if updated.Status != ExportStatusDone {
		t.Errorf("status = %s, want done", updated.Status)
	}
	if updated.RenderID != "render-1" {
		t.Errorf("render_id = %s, want render-1", updated.RenderID)
	}
	if updated.URL != "https://cdn.example.com/out.mp4" {
		t.Errorf("url = %s", updated.URL)
	}
	if fake.submitCalled.Load() != 1 || fake.pollCalled.Load() != 1 {
		t.Errorf("submit/poll calls = %d/%d, want 1/1", fake.submitCalled.Load(), fake.pollCalled.Load())
	}
}

func TestRunner_ProcessExport_SubmitFails(t *testing.T) {
	repo := testRepo(t)
	fake := &fakeRenderer{submitErr: fmt.Errorf("payload is 31.2 MB, the upload limit is 25 MB")}
	runner := NewRunner(repo, fake, testLogger())

	export := queueExport(t, repo, seedDocument())
	runner.processNextExport(context.Background())

	updated, _ := repo.GetExport(context.Background(), export.ID)
	if updated.Status != ExportStatusFailed {
		t.Errorf("status = %s, want failed", updated.Status)
	}
	if updated.Error == "" {
		t.Error("failed export should carry the error message")
	}
	if fake.pollCalled.Load() != 0 {
		t.Error("poll must not run after a failed submission")
	}
}

func TestRunner_ProcessExport_RenderFails(t *testing.T) {
	repo := testRepo(t)
	fake := &fakeRenderer{pollErr: fmt.Errorf("render failed: asset could not be fetched")}
	runner := NewRunner(repo, fake, testLogger())

	export := queueExport(t, repo, seedDocument())
	runner.processNextExport(context.Background())

	updated, _ := repo.GetExport(context.Background(), export.ID)
	if updated.Status != ExportStatusFailed {
		t.Errorf("status = %s, want failed", updated.Status)
	}
	if updated.RenderID != "render-1" {
		t.Errorf("render_id = %s, a submitted export keeps its render id", updated.RenderID)
	}
}

func TestRunner_ProcessExport_UnreadableDocument(t *testing.T) {
	repo := testRepo(t)
	fake := &fakeRenderer{}
	runner := NewRunner(repo, fake, testLogger())

	now := time.Now()
	repo.CreateExport(context.Background(), &Export{
		ID: "exp-bad", Status: ExportStatusPending, Document: "{not json",
		CreatedAt: now, UpdatedAt: now,
	})
	runner.processNextExport(context.Background())

	updated, _ := repo.GetExport(context.Background(), "exp-bad")
	if updated.Status != ExportStatusFailed {
		t.Errorf("status = %s, want failed", updated.Status)
	}
	if fake.submitCalled.Load() != 0 {
		t.Error("submit must not run for an unreadable document")
	}
}

func TestRunner_ProcessExport_OldestFirst(t *testing.T) {
	repo := testRepo(t)
	fake := &fakeRenderer{job: render.Job{Status: render.StatusDone, URL: "https://cdn.example.com/out.mp4"}}
	runner := NewRunner(repo, fake, testLogger())

	payload, _ := json.Marshal(seedDocument())
	first := &Export{ID: "exp-old", Status: ExportStatusPending, Document: string(payload),
		CreatedAt: time.Now().Add(-time.Minute), UpdatedAt: time.Now().Add(-time.Minute)}
	second := &Export{ID: "exp-new", Status: ExportStatusPending, Document: string(payload),
		CreatedAt: time.Now(), UpdatedAt: time.Now()}
	repo.CreateExport(context.Background(), first)
	repo.CreateExport(context.Background(), second)

	runner.processNextExport(context.Background())

	old, _ := repo.GetExport(context.Background(), "exp-old")
	fresh, _ := repo.GetExport(context.Background(), "exp-new")
	if old.Status != ExportStatusDone {
		t.Errorf("oldest export status = %s, want done", old.Status)
	}
	if fresh.Status != ExportStatusPending {
		t.Errorf("newer export status = %s, must stay queued", fresh.Status)
	}
}

func TestRunner_PauseResume(t *testing.T) {
	runner := NewRunner(testRepo(t), &fakeRenderer{}, testLogger())

	if runner.IsPaused() {
		t.Error("runner should start unpaused")
	}
	runner.Pause()
	if !runner.IsPaused() {
		t.Error("Pause() did not take effect")
	}
	runner.Resume()
	if runner.IsPaused() {
		t.Error("Resume() did not take effect")
	}
}
