// Package ingest normalizes local media into a size- and format-bounded
// payload and uploads it to the remote asset store, returning a durable
// source URL.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

// MaxUploadBytes is the hard ceiling the asset store accepts for one upload.
const MaxUploadBytes = 25 * 1024 * 1024

// extByMIME maps media types to upload filename extensions. Unrecognized
// types fall back to mp4; the store keys off the bytes, not the name.
var extByMIME = map[string]string{
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
	"audio/mpeg":      "mp3",
	"audio/wav":       "wav",
	"audio/ogg":       "ogg",
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/gif":       "gif",
}

func extensionFor(mime string) string {
	if ext, ok := extByMIME[mime]; ok {
		return ext
	}
	return "mp4"
}

// SizeError reports a payload over the upload ceiling. The upload is never
// attempted and the payload is never truncated.
type SizeError struct {
	Size  int64
	Limit int64
}

func (e *SizeError) Error() string {
	return fmt.Sprintf("payload is %.1f MB, the upload limit is %d MB",
		float64(e.Size)/(1024*1024), e.Limit/(1024*1024))
}

// Ingestor resolves a local media payload to a remote source URL.
type Ingestor interface {
	Ingest(ctx context.Context, payload timeline.DataURI) (string, error)
}

// Client uploads media to the asset-ingest endpoint. Independent ingests may
// run concurrently; the client holds no mutable state between calls.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL, apiKey string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

type sourceResponse struct {
	Data struct {
		Attributes struct {
			Source string `json:"source"`
		} `json:"attributes"`
	} `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// Ingest prepares and uploads one payload. Images in recompressible formats
// are downscaled and re-encoded first; everything else passes through
// byte-exact. Payloads over MaxUploadBytes fail with a SizeError before any
// network call.
func (c *Client) Ingest(ctx context.Context, payload timeline.DataURI) (string, error) {
	prepared, err := Recompress(payload)
	if err != nil {
		return "", fmt.Errorf("prepare payload: %w", err)
	}

	if prepared.Size() > MaxUploadBytes {
		return "", &SizeError{Size: prepared.Size(), Limit: MaxUploadBytes}
	}

	filename := fmt.Sprintf("upload_%s.%s", uuid.NewString(), extensionFor(prepared.MIME))

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create multipart payload: %w", err)
	}
	if _, err := part.Write(prepared.Data); err != nil {
		return "", fmt.Errorf("write multipart payload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart payload: %w", err)
	}

	url := c.baseURL + "/sources"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-api-key", c.apiKey)

	c.logger.Info("uploading media",
		"filename", filename,
		"mime", prepared.MIME,
		"size_bytes", prepared.Size(),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e errorResponse
		if json.Unmarshal(respBody, &e) == nil && e.Message != "" {
			return "", fmt.Errorf("upload failed: %s", e.Message)
		}
		return "", fmt.Errorf("upload failed: HTTP %d", resp.StatusCode)
	}

	var result sourceResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if result.Data.Attributes.Source == "" {
		return "", fmt.Errorf("upload response carries no source URL")
	}

	c.logger.Info("media uploaded", "filename", filename, "source", result.Data.Attributes.Source)
	return result.Data.Attributes.Source, nil
}

// IngestFile reads a local file and ingests it. The MIME type is sniffed
// from the content.
func (c *Client) IngestFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read media file: %w", err)
	}
	return c.Ingest(ctx, timeline.DataURI{MIME: DetectMIME(path, data), Data: data})
}
