package render

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type fakeAPI struct {
	mu        sync.Mutex
	submitted []timeline.Document
	submitErr error
	statuses  []Job
	statusErr error
	calls     int
}

func (f *fakeAPI) Submit(ctx context.Context, doc timeline.Document) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, doc)
	return "job-1", nil
}

func (f *fakeAPI) Status(ctx context.Context, id string) (Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return Job{}, f.statusErr
	}
	idx := f.calls
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	f.calls++
	job := f.statuses[idx]
	job.ID = id
	return job, nil
}

func (f *fakeAPI) statusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeIngestor struct {
	count atomic.Int32
	fail  bool
}

func (f *fakeIngestor) Ingest(ctx context.Context, payload timeline.DataURI) (string, error) {
	n := f.count.Add(1)
	if f.fail {
		return "", fmt.Errorf("payload is too large")
	}
	return fmt.Sprintf("https://cdn.example.com/resolved-%d", n), nil
}

func embeddedDoc(embedded, remote int) timeline.Document {
	tr := timeline.Track{}
	for i := 0; i < embedded; i++ {
		tr.Clips = append(tr.Clips, timeline.Clip{
			Asset:  timeline.Asset{Type: timeline.AssetImage, Src: timeline.DataURI{MIME: "image/gif", Data: []byte{1, 2}}.Encode()},
			Start:  float64(i * 10),
			Length: 5,
		})
	}
	for i := 0; i < remote; i++ {
		tr.Clips = append(tr.Clips, timeline.Clip{
			Asset:  timeline.Asset{Type: timeline.AssetVideo, Src: "https://cdn.example.com/keep.mp4"},
			Start:  float64(100 + i*10),
			Length: 10,
		})
	}
	return timeline.Document{
		Timeline: timeline.Timeline{Tracks: []timeline.Track{tr}},
		Output:   timeline.Output{Format: "mp4", Resolution: "sd"},
	}
}

func TestOrchestrator_Resolve_RewritesEmbeddedOnly(t *testing.T) {
	api := &fakeAPI{}
	ing := &fakeIngestor{}
	o := NewOrchestrator(api, ing, nil)

	doc := embeddedDoc(2, 1)
	resolved, err := o.Resolve(context.Background(), doc)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	clips := resolved.Timeline.Tracks[0].Clips
	for i := 0; i < 2; i++ {
		if !strings.HasPrefix(clips[i].Asset.Src, "https://cdn.example.com/resolved-") {
			t.Errorf("clip %d src = %s, want resolved URL", i, clips[i].Asset.Src)
		}
	}
	if clips[2].Asset.Src != "https://cdn.example.com/keep.mp4" {
		t.Errorf("remote clip src = %s, must be untouched", clips[2].Asset.Src)
	}
	if got := ing.count.Load(); got != 2 {
		t.Errorf("ingest count = %d, want 2", got)
	}

	// The input document must not be mutated.
	if !doc.Timeline.Tracks[0].Clips[0].Asset.IsEmbedded() {
		t.Error("Resolve() mutated its input")
	}
}

func TestOrchestrator_Resolve_FirstFailureAborts(t *testing.T) {
	api := &fakeAPI{}
	ing := &fakeIngestor{fail: true}
	o := NewOrchestrator(api, ing, nil)

	_, err := o.Resolve(context.Background(), embeddedDoc(3, 0))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Resolve() error = %v, want ingest failure", err)
	}
}

func TestOrchestrator_Submit_ResolvesBeforeSubmitting(t *testing.T) {
	api := &fakeAPI{}
	ing := &fakeIngestor{}
	o := NewOrchestrator(api, ing, nil)

	id, err := o.Submit(context.Background(), embeddedDoc(1, 0))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id != "job-1" {
		t.Errorf("id = %s, want job-1", id)
	}
	if len(api.submitted) != 1 {
		t.Fatalf("submit count = %d, want 1", len(api.submitted))
	}
	for _, c := range api.submitted[0].Timeline.Tracks[0].Clips {
		if c.Asset.IsEmbedded() {
			t.Error("submitted document still carries an embedded source")
		}
	}
}

func TestOrchestrator_Poll_TerminatesOnDone(t *testing.T) {
	api := &fakeAPI{statuses: []Job{
		{Status: StatusQueued},
		{Status: StatusRendering},
		{Status: StatusDone, URL: "https://cdn.example.com/out.mp4"},
	}}
	o := NewOrchestrator(api, &fakeIngestor{}, nil)
	o.SetPolling(time.Millisecond, time.Second)

	job, err := o.Poll(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if job.URL != "https://cdn.example.com/out.mp4" {
		t.Errorf("url = %s, want the stubbed URL", job.URL)
	}
	if got := api.statusCalls(); got != 3 {
		t.Errorf("status calls = %d, want 3", got)
	}
}

func TestOrchestrator_Poll_FailedSurfacesError(t *testing.T) {
	api := &fakeAPI{statuses: []Job{
		{Status: StatusFetching},
		{Status: StatusFailed, Error: "asset could not be fetched"},
	}}
	o := NewOrchestrator(api, &fakeIngestor{}, nil)
	o.SetPolling(time.Millisecond, time.Second)

	_, err := o.Poll(context.Background(), "job-1")
	if err == nil || !strings.Contains(err.Error(), "asset could not be fetched") {
		t.Errorf("Poll() error = %v, want terminal render error", err)
	}
}

func TestOrchestrator_Poll_Cancellable(t *testing.T) {
	api := &fakeAPI{statuses: []Job{{Status: StatusQueued}}}
	o := NewOrchestrator(api, &fakeIngestor{}, nil)
	o.SetPolling(time.Millisecond, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := o.Poll(ctx, "job-1")
	if err == nil || !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("Poll() error = %v, want cancellation", err)
	}
}

func TestOrchestrator_Poll_TimeoutBounded(t *testing.T) {
	api := &fakeAPI{statuses: []Job{{Status: StatusQueued}}}
	o := NewOrchestrator(api, &fakeIngestor{}, nil)
	o.SetPolling(time.Millisecond, 25*time.Millisecond)

	start := time.Now()
	_, err := o.Poll(context.Background(), "job-1")
	if err == nil {
		t.Fatal("Poll() should fail once the deadline passes")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Poll() ran %v, the deadline did not bound it", elapsed)
	}
}
