package api

import (
	"time"

	"github.com/cutroom/cutroom-agent/internal/library"
	"github.com/cutroom/cutroom-agent/internal/session"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State         string         `json:"state"`
	Session       session.Status `json:"session"`
	ExportsActive int            `json:"exports_active"`
	MediaCount    int            `json:"media_count"`
}

type SelectRequest struct {
	TrackIndex int `json:"track_index"`
	ClipIndex  int `json:"clip_index"`
}

type AddClipRequest struct {
	TrackIndex int    `json:"track_index"`
	Type       string `json:"type,omitempty"`
	Src        string `json:"src,omitempty"`
	MediaID    string `json:"media_id,omitempty"`
}

type ClipResponse struct {
	Type   string  `json:"type"`
	Src    string  `json:"src"`
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
}

type EditResponse struct {
	Applied bool `json:"applied"`
}

type MediaResponse struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MIME      string `json:"mime"`
	Kind      string `json:"kind"`
	SizeBytes int64  `json:"size_bytes"`
	CreatedAt string `json:"created_at"`
}

type MediaListResponse struct {
	Media []MediaResponse `json:"media"`
}

type ExportResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	RenderID  string `json:"render_id,omitempty"`
	URL       string `json:"url,omitempty"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type ExportsResponse struct {
	Exports []ExportResponse `json:"exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func MediaToResponse(m *library.MediaFile) MediaResponse {
	return MediaResponse{
		ID:        m.ID,
		Filename:  m.Filename,
		MIME:      m.MIME,
		Kind:      m.Kind,
		SizeBytes: m.SizeBytes,
		CreatedAt: m.CreatedAt.Format(time.RFC3339),
	}
}

func ExportToResponse(e *session.Export) ExportResponse {
	return ExportResponse{
		ID:        e.ID,
		Status:    e.Status,
		RenderID:  e.RenderID,
		URL:       e.URL,
		Error:     e.Error,
		CreatedAt: e.CreatedAt.Format(time.RFC3339),
		UpdatedAt: e.UpdatedAt.Format(time.RFC3339),
	}
}
