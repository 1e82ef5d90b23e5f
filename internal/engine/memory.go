package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// Memory is an in-process engine holding the document itself. It mimics the
// behavior of the embedded editing runtime: a linear native history that
// records clip insertions but not deletions, so a deleted clip cannot be
// recovered through the native undo path.
type Memory struct {
	mu      sync.Mutex
	doc     timeline.Document
	undo    []nativeEntry
	redo    []nativeEntry
	logger  *slog.Logger
	selectd bool
}

type nativeEntry struct {
	trackIndex int
	clip       timeline.Clip
}

func NewMemory(doc timeline.Document, logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{doc: doc.Clone(), logger: logger}
}

func (m *Memory) Document() timeline.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Clone()
}

func (m *Memory) Clip(trackIndex, clipIndex int) (timeline.Clip, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if trackIndex < 0 || trackIndex >= len(m.doc.Timeline.Tracks) {
		return timeline.Clip{}, false
	}
	clips := m.doc.Timeline.Tracks[trackIndex].Clips
	if clipIndex < 0 || clipIndex >= len(clips) {
		return timeline.Clip{}, false
	}
	return clips[clipIndex], true
}

func (m *Memory) AddClip(trackIndex int, clip timeline.Clip) error {
	if clip.Length <= 0 {
		return fmt.Errorf("clip length must be positive, got %v", clip.Length)
	}
	if clip.Start < 0 {
		return fmt.Errorf("clip start must not be negative, got %v", clip.Start)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if trackIndex < 0 {
		return fmt.Errorf("track index must not be negative, got %d", trackIndex)
	}
	for len(m.doc.Timeline.Tracks) <= trackIndex {
		m.doc.Timeline.Tracks = append(m.doc.Timeline.Tracks, timeline.Track{})
	}

	track := &m.doc.Timeline.Tracks[trackIndex]
	track.Clips = append(track.Clips, clip)

	m.undo = append(m.undo, nativeEntry{trackIndex: trackIndex, clip: clip})
	m.redo = nil
	return nil
}

func (m *Memory) DeleteClip(trackIndex, clipIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if trackIndex < 0 || trackIndex >= len(m.doc.Timeline.Tracks) {
		return fmt.Errorf("track %d does not exist", trackIndex)
	}
	track := &m.doc.Timeline.Tracks[trackIndex]
	if clipIndex < 0 || clipIndex >= len(track.Clips) {
		return fmt.Errorf("clip %d does not exist on track %d", clipIndex, trackIndex)
	}

	track.Clips = append(track.Clips[:clipIndex], track.Clips[clipIndex+1:]...)

	// Deletions are not recorded: the native history cannot restore them.
	m.logger.Debug("engine clip deleted", "track", trackIndex, "clip", clipIndex)
	return nil
}

func (m *Memory) Undo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.undo) == 0 {
		return false
	}
	entry := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]

	idx := m.doc.FindClip(entry.trackIndex, entry.clip.Start, entry.clip.Length, entry.clip.Asset.Src)
	if idx < 0 {
		// The inserted clip is gone; the entry no longer applies.
		return false
	}
	track := &m.doc.Timeline.Tracks[entry.trackIndex]
	track.Clips = append(track.Clips[:idx], track.Clips[idx+1:]...)
	m.redo = append(m.redo, entry)
	return true
}

func (m *Memory) Redo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.redo) == 0 {
		return false
	}
	entry := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]

	for len(m.doc.Timeline.Tracks) <= entry.trackIndex {
		m.doc.Timeline.Tracks = append(m.doc.Timeline.Tracks, timeline.Track{})
	}
	track := &m.doc.Timeline.Tracks[entry.trackIndex]
	track.Clips = append(track.Clips, entry.clip)
	m.undo = append(m.undo, entry)
	return true
}

func (m *Memory) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selectd = false
}

func (m *Memory) TotalDuration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.TotalDuration()
}
