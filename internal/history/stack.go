// Package history implements the compensating-action log layered over the
// engine's native undo/redo. The engine cannot reverse a clip deletion, so
// every deletion is recorded here with enough content to reconstruct the
// clip. Compensated actions take priority over native history at both entry
// points; the two histories are never merged.
package history

import (
	"fmt"
	"log/slog"

	"github.com/cutroom/cutroom-agent/internal/engine"
	"github.com/cutroom/cutroom-agent/internal/timeline"
)

type ActionType string

const ActionDeleteClip ActionType = "delete_clip"

// Action describes how to reverse one recorded mutation. The clip payload,
// not the positional index, is what identifies the clip later: indices shift
// as the track is edited.
type Action struct {
	Type       ActionType
	TrackIndex int
	Clip       timeline.Clip
}

type Stack struct {
	undo   []Action
	redo   []Action
	logger *slog.Logger
}

func NewStack(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{logger: logger}
}

// RecordDeletion pushes a compensating action for a clip that was just
// deleted. Recording a fresh action discards the redo stack: the history is
// linear, there is no branching redo past a new edit.
func (s *Stack) RecordDeletion(trackIndex int, clip timeline.Clip) {
	s.undo = append(s.undo, Action{
		Type:       ActionDeleteClip,
		TrackIndex: trackIndex,
		Clip:       clip,
	})
	s.redo = nil
}

// Undo reverses the most recent action. If the top of the compensating stack
// is a recorded deletion, the clip is re-inserted through the engine and the
// action moves to the redo stack. Otherwise the engine's native history gets
// the call. Returns false when there is nothing to undo.
func (s *Stack) Undo(eng engine.Engine) (bool, error) {
	if len(s.undo) == 0 {
		return eng.Undo(), nil
	}

	action := s.undo[len(s.undo)-1]
	if action.Type != ActionDeleteClip {
		return eng.Undo(), nil
	}
	s.undo = s.undo[:len(s.undo)-1]

	if err := eng.AddClip(action.TrackIndex, action.Clip); err != nil {
		// Re-insertion failed; keep the action so a later undo can retry.
		s.undo = append(s.undo, action)
		return false, fmt.Errorf("restore deleted clip: %w", err)
	}
	s.redo = append(s.redo, action)

	s.logger.Debug("undo restored deleted clip",
		"track", action.TrackIndex, "start", action.Clip.Start, "length", action.Clip.Length)
	return true, nil
}

// Redo re-applies the most recently undone action. For a recorded deletion
// the matching clip is located by content, since its position may have
// shifted, and deleted again. When no clip matches (a later edit altered it), the
// action is dropped and Redo reports false: the document is presumed already
// consistent with user intent, so this is a no-op, not an error.
func (s *Stack) Redo(eng engine.Engine) (bool, error) {
	if len(s.redo) == 0 {
		return eng.Redo(), nil
	}

	action := s.redo[len(s.redo)-1]
	if action.Type != ActionDeleteClip {
		return eng.Redo(), nil
	}
	s.redo = s.redo[:len(s.redo)-1]

	doc := eng.Document()
	idx := doc.FindClip(action.TrackIndex, action.Clip.Start, action.Clip.Length, action.Clip.Asset.Src)
	if idx < 0 {
		s.logger.Info("redo could not locate clip to delete, dropping action",
			"track", action.TrackIndex, "start", action.Clip.Start, "length", action.Clip.Length)
		return false, nil
	}

	if err := eng.DeleteClip(action.TrackIndex, idx); err != nil {
		return false, fmt.Errorf("re-delete clip: %w", err)
	}
	s.undo = append(s.undo, action)

	s.logger.Debug("redo re-deleted clip", "track", action.TrackIndex, "clip", idx)
	return true, nil
}

// ClearRedo discards the redo stack. Called when a fresh edit lands through
// a path that does not record a compensating action, keeping the history
// linear.
func (s *Stack) ClearRedo() {
	s.redo = nil
}

// Depths reports the undo and redo stack sizes.
func (s *Stack) Depths() (undo, redo int) {
	return len(s.undo), len(s.redo)
}
