// Package session implements the editing session controller: selection,
// keyboard-driven deletion, layered undo/redo, visual reconciliation and the
// export queue. All mutations are serialized under one lock so each edit is
// atomic with respect to the others.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cutroom/cutroom-agent/internal/engine"
	"github.com/cutroom/cutroom-agent/internal/history"
	"github.com/cutroom/cutroom-agent/internal/timeline"
	"github.com/cutroom/cutroom-agent/internal/visual"
)

// ErrNoAPIKey is returned when an export is requested without a render API
// key configured.
var ErrNoAPIKey = errors.New("render API key is not configured")

// ErrNoSelection is returned when a deletion is requested with nothing
// selected.
var ErrNoSelection = errors.New("no clip is selected")

const (
	defaultImageLength = 5.0
	defaultMediaLength = 10.0
)

// Service is the editing session controller. It owns the selection, the
// compensating history stack and the visual mirror, and it brokers every
// mutation to the engine.
type Service struct {
	mu        sync.Mutex
	eng       engine.Engine
	hist      *history.Stack
	vis       *visual.Timeline
	repo      Repository
	apiKey    string
	logger    *slog.Logger
	selection *Selection
}

func NewService(eng engine.Engine, hist *history.Stack, vis *visual.Timeline, repo Repository, apiKey string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		eng:    eng,
		hist:   hist,
		vis:    vis,
		repo:   repo,
		apiKey: apiKey,
		logger: logger,
	}
	visual.Rebuild(vis, eng.Document())
	return s
}

// Document returns a snapshot of the composition.
func (s *Service) Document() timeline.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.eng.Document()
}

// Selected returns the current selection, if any.
func (s *Service) Selected() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil {
		return Selection{}, false
	}
	return *s.selection, true
}

// Select points the selection at the clip addressed by track and clip index.
// The address must resolve to an existing clip.
func (s *Service) Select(trackIndex, clipIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eng.Clip(trackIndex, clipIndex); !ok {
		return fmt.Errorf("no clip at track %d index %d", trackIndex, clipIndex)
	}
	s.selection = &Selection{TrackIndex: trackIndex, ClipIndex: clipIndex}
	return nil
}

// ClearSelection drops the selection on both sides of the boundary.
func (s *Service) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSelectionLocked()
}

func (s *Service) clearSelectionLocked() {
	s.selection = nil
	s.eng.ClearSelection()
}

// DeleteSelected removes the selected clip. The selection is cleared before
// the engine mutates so no stale reference survives the deletion, the removal
// is recorded as a compensating action, and the visual mirror is patched
// without a full rebuild.
func (s *Service) DeleteSelected() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection == nil {
		return ErrNoSelection
	}
	sel := *s.selection

	clip, ok := s.eng.Clip(sel.TrackIndex, sel.ClipIndex)
	if !ok {
		s.clearSelectionLocked()
		return fmt.Errorf("selected clip no longer exists at track %d index %d", sel.TrackIndex, sel.ClipIndex)
	}

	s.clearSelectionLocked()

	if err := s.eng.DeleteClip(sel.TrackIndex, sel.ClipIndex); err != nil {
		return fmt.Errorf("delete clip: %w", err)
	}
	s.hist.RecordDeletion(sel.TrackIndex, clip)
	visual.Reconcile(s.vis, s.eng.Document())

	s.logger.Info("clip deleted",
		"track", sel.TrackIndex, "clip", sel.ClipIndex,
		"start", clip.Start, "length", clip.Length)
	return nil
}

// AddClip appends a media item to the end of a track, the drop-from-library
// gesture. Images get a shorter default length than video or audio.
func (s *Service) AddClip(trackIndex int, assetType, src string) (timeline.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	length := defaultMediaLength
	if assetType == timeline.AssetImage {
		length = defaultImageLength
	}

	clip := timeline.Clip{
		Asset:  timeline.Asset{Type: assetType, Src: src},
		Start:  s.eng.TotalDuration(),
		Length: length,
	}

	if err := s.eng.AddClip(trackIndex, clip); err != nil {
		return timeline.Clip{}, fmt.Errorf("add clip: %w", err)
	}
	s.hist.ClearRedo()
	visual.Rebuild(s.vis, s.eng.Document())

	s.logger.Info("clip added",
		"track", trackIndex, "type", assetType, "start", clip.Start, "length", clip.Length)
	return clip, nil
}

// Undo reverses the most recent edit. Insertions can land anywhere, so the
// visual mirror is rebuilt rather than patched.
func (s *Service) Undo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.hist.Undo(s.eng)
	if err != nil {
		return false, err
	}
	if applied {
		s.clearSelectionLocked()
		visual.Rebuild(s.vis, s.eng.Document())
	}
	return applied, nil
}

// Redo re-applies the most recently undone edit.
func (s *Service) Redo() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied, err := s.hist.Redo(s.eng)
	if err != nil {
		return false, err
	}
	if applied {
		s.clearSelectionLocked()
		visual.Rebuild(s.vis, s.eng.Document())
	}
	return applied, nil
}

// Status summarizes the session for the status endpoint and the tray.
type Status struct {
	Selection     *Selection `json:"selection,omitempty"`
	UndoDepth     int        `json:"undo_depth"`
	RedoDepth     int        `json:"redo_depth"`
	TotalDuration float64    `json:"total_duration"`
	TrackCount    int        `json:"track_count"`
	ClipCount     int        `json:"clip_count"`
}

func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.eng.Document()
	clips := 0
	for _, tr := range doc.Timeline.Tracks {
		clips += len(tr.Clips)
	}

	undo, redo := s.hist.Depths()
	st := Status{
		UndoDepth:     undo,
		RedoDepth:     redo,
		TotalDuration: doc.TotalDuration(),
		TrackCount:    len(doc.Timeline.Tracks),
		ClipCount:     clips,
	}
	if s.selection != nil {
		sel := *s.selection
		st.Selection = &sel
	}
	return st
}

// StartExport freezes the current document into a pending export. It fails
// up front when no render API key is configured; nothing is queued in that
// case. The background runner picks the export up and drives it to a
// terminal state.
func (s *Service) StartExport(ctx context.Context) (*Export, error) {
	if s.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	doc := s.Document()
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}

	now := time.Now()
	export := &Export{
		ID:        uuid.NewString(),
		Status:    ExportStatusPending,
		Document:  string(payload),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateExport(ctx, export); err != nil {
		return nil, fmt.Errorf("create export: %w", err)
	}

	s.logger.Info("export queued", "export_id", export.ID)
	return export, nil
}

// GetExport looks up one export by id.
func (s *Service) GetExport(ctx context.Context, id string) (*Export, error) {
	return s.repo.GetExport(ctx, id)
}

// ListExports returns recent exports, newest first.
func (s *Service) ListExports(ctx context.Context, limit int) ([]*Export, error) {
	return s.repo.ListExports(ctx, limit)
}
