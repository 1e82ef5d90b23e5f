// Package engine defines the boundary to the editing engine that owns the
// authoritative composition document. The session controller never mutates
// the document directly; every change goes through an Engine operation and
// each mutating call is treated as atomic from the caller's perspective.
package engine

import "github.com/cutroom/cutroom-agent/internal/timeline"

type Engine interface {
	// Document returns a deep copy of the authoritative document.
	Document() timeline.Document

	// Clip returns the clip at the given positional address. ok is false
	// when the address does not resolve.
	Clip(trackIndex, clipIndex int) (timeline.Clip, bool)

	AddClip(trackIndex int, clip timeline.Clip) error
	DeleteClip(trackIndex, clipIndex int) error

	// Undo and Redo drive the engine's native history. They report whether
	// anything was applied. The native history does not cover clip deletion;
	// reversing a deletion is the session controller's job.
	Undo() bool
	Redo() bool

	// ClearSelection drops the engine-side selection highlight.
	ClearSelection()

	TotalDuration() float64
}
