package session

import (
	"time"
)

const (
	ExportStatusPending   = "pending"
	ExportStatusUploading = "uploading"
	ExportStatusSubmitted = "submitted"
	ExportStatusDone      = "done"
	ExportStatusFailed    = "failed"
)

// Export is one render request. The document is frozen at creation time so
// later edits do not change what gets rendered.
type Export struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	RenderID  string    `json:"render_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Document  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Selection points at one clip by position on the timeline.
type Selection struct {
	TrackIndex int `json:"track_index"`
	ClipIndex  int `json:"clip_index"`
}
