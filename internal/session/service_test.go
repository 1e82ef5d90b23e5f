package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cutroom/cutroom-agent/internal/db"
	"github.com/cutroom/cutroom-agent/internal/engine"
	"github.com/cutroom/cutroom-agent/internal/history"
	"github.com/cutroom/cutroom-agent/internal/timeline"
	"github.com/cutroom/cutroom-agent/internal/visual"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testRepo(t *testing.T) Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func seedDocument() timeline.Document {
	return timeline.Document{
		Timeline: timeline.Timeline{
			Tracks: []timeline.Track{
				{Clips: []timeline.Clip{
					{Asset: timeline.Asset{Type: timeline.AssetVideo, Src: "https://cdn.example.com/a.mp4"}, Start: 0, Length: 10},
					{Asset: timeline.Asset{Type: timeline.AssetVideo, Src: "https://cdn.example.com/b.mp4"}, Start: 10, Length: 5},
				}},
			},
		},
		Output: timeline.Output{Format: "mp4", Resolution: "sd"},
	}
}

func setupService(t *testing.T, apiKey string) *Service {
	t.Helper()
	eng := engine.NewMemory(seedDocument(), testLogger())
	hist := history.NewStack(testLogger())
	vis := visual.NewTimeline()
	return NewService(eng, hist, vis, testRepo(t), apiKey, testLogger())
}

func TestService_Select(t *testing.T) {
	svc := setupService(t, "")

	if err := svc.Select(0, 1); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	sel, ok := svc.Selected()
	if !ok || sel.TrackIndex != 0 || sel.ClipIndex != 1 {
		t.Errorf("Selected() = %+v, %v; want {0 1}, true", sel, ok)
	}

	if err := svc.Select(0, 9); err == nil {
		t.Error("Select() should reject an address with no clip")
	}
	if err := svc.Select(3, 0); err == nil {
		t.Error("Select() should reject a missing track")
	}

	svc.ClearSelection()
	if _, ok := svc.Selected(); ok {
		t.Error("selection should be cleared")
	}
}

func TestService_DeleteSelected(t *testing.T) {
	svc := setupService(t, "")

	if err := svc.Select(0, 0); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := svc.DeleteSelected(); err != nil {
		t.Fatalf("DeleteSelected() error = %v", err)
	}

	if _, ok := svc.Selected(); ok {
		t.Error("selection must be cleared by deletion")
	}

	doc := svc.Document()
	clips := doc.Timeline.Tracks[0].Clips
	if len(clips) != 1 {
		t.Fatalf("clip count = %d, want 1", len(clips))
	}
	if clips[0].Asset.Src != "https://cdn.example.com/b.mp4" {
		t.Errorf("surviving clip = %s, want b.mp4", clips[0].Asset.Src)
	}
}

func TestService_DeleteSelected_NoSelection(t *testing.T) {
	svc := setupService(t, "")

	err := svc.DeleteSelected()
	if !errors.Is(err, ErrNoSelection) {
		t.Errorf("DeleteSelected() error = %v, want ErrNoSelection", err)
	}
}

func TestService_UndoRestoresDeletedClip(t *testing.T) {
	svc := setupService(t, "")

	svc.Select(0, 0)
	if err := svc.DeleteSelected(); err != nil {
		t.Fatalf("DeleteSelected() error = %v", err)
	}

	applied, err := svc.Undo()
	if err != nil {
		t.Fatalf("Undo() error = %v", err)
	}
	if !applied {
		t.Fatal("Undo() applied = false, want true")
	}

	doc := svc.Document()
	if got := len(doc.Timeline.Tracks[0].Clips); got != 2 {
		t.Fatalf("clip count = %d, want 2", got)
	}
	if doc.FindClip(0, 0, 10, "https://cdn.example.com/a.mp4") < 0 {
		t.Error("deleted clip content was not restored")
	}

	applied, err = svc.Redo()
	if err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if !applied {
		t.Fatal("Redo() applied = false, want true")
	}
	if got := len(svc.Document().Timeline.Tracks[0].Clips); got != 1 {
		t.Errorf("clip count after redo = %d, want 1", got)
	}
}

func TestService_AddClip_Defaults(t *testing.T) {
	svc := setupService(t, "")

	clip, err := svc.AddClip(0, timeline.AssetImage, "https://cdn.example.com/pic.jpg")
	if err != nil {
		t.Fatalf("AddClip() error = %v", err)
	}
	if clip.Start != 15 {
		t.Errorf("image start = %v, want 15 (end of timeline)", clip.Start)
	}
	if clip.Length != 5 {
		t.Errorf("image length = %v, want 5", clip.Length)
	}

	clip, err = svc.AddClip(0, timeline.AssetVideo, "https://cdn.example.com/c.mp4")
	if err != nil {
		t.Fatalf("AddClip() error = %v", err)
	}
	if clip.Start != 20 {
		t.Errorf("video start = %v, want 20", clip.Start)
	}
	if clip.Length != 10 {
		t.Errorf("video length = %v, want 10", clip.Length)
	}
}

func TestService_AddClipClearsRedo(t *testing.T) {
	svc := setupService(t, "")

	svc.Select(0, 1)
	if err := svc.DeleteSelected(); err != nil {
		t.Fatalf("DeleteSelected() error = %v", err)
	}
	if _, err := svc.Undo(); err != nil {
		t.Fatalf("Undo() error = %v", err)
	}

	if _, err := svc.AddClip(0, timeline.AssetVideo, "https://cdn.example.com/new.mp4"); err != nil {
		t.Fatalf("AddClip() error = %v", err)
	}

	applied, err := svc.Redo()
	if err != nil {
		t.Fatalf("Redo() error = %v", err)
	}
	if applied {
		t.Error("Redo() applied = true, want no-op after a fresh edit")
	}
}

func TestService_Status(t *testing.T) {
	svc := setupService(t, "")

	svc.Select(0, 0)
	st := svc.Status()

	if st.Selection == nil || st.Selection.ClipIndex != 0 {
		t.Errorf("status selection = %+v, want clip 0", st.Selection)
	}
	if st.TrackCount != 1 || st.ClipCount != 2 {
		t.Errorf("tracks/clips = %d/%d, want 1/2", st.TrackCount, st.ClipCount)
	}
	if st.TotalDuration != 15 {
		t.Errorf("total duration = %v, want 15", st.TotalDuration)
	}

	svc.DeleteSelected()
	st = svc.Status()
	if st.UndoDepth != 1 {
		t.Errorf("undo depth = %d, want 1", st.UndoDepth)
	}
}

func TestService_StartExport_NoAPIKey(t *testing.T) {
	svc := setupService(t, "")

	_, err := svc.StartExport(context.Background())
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("StartExport() error = %v, want ErrNoAPIKey", err)
	}

	exports, err := svc.ListExports(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	if len(exports) != 0 {
		t.Errorf("export count = %d, nothing should be queued", len(exports))
	}
}

func TestService_StartExport_FreezesDocument(t *testing.T) {
	svc := setupService(t, "render-key")

	export, err := svc.StartExport(context.Background())
	if err != nil {
		t.Fatalf("StartExport() error = %v", err)
	}
	if export.Status != ExportStatusPending {
		t.Errorf("status = %s, want pending", export.Status)
	}

	// Edit after queuing; the stored document must not change.
	svc.Select(0, 0)
	svc.DeleteSelected()

	stored, err := svc.GetExport(context.Background(), export.ID)
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if stored.Document != export.Document {
		t.Error("stored document changed after a later edit")
	}

	var doc timeline.Document
	if err := json.Unmarshal([]byte(stored.Document), &doc); err != nil {
		t.Fatalf("stored document unreadable: %v", err)
	}
	if got := len(doc.Timeline.Tracks[0].Clips); got != 2 {
		t.Errorf("frozen clip count = %d, want 2", got)
	}
}
