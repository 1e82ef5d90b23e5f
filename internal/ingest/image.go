package ingest

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"

	"github.com/cutroom/cutroom-agent/internal/timeline"
)

const (
	// maxImageEdge bounds the long edge of a recompressed image.
	maxImageEdge = 1280
	// jpegQuality is the fixed re-encode quality factor.
	jpegQuality = 70
)

// Recompress downscales and re-encodes images that are not already in an
// efficient delivery format. JPEG and PNG payloads are scaled to at most
// maxImageEdge on the long edge (aspect ratio preserved) and re-encoded as
// JPEG. GIFs keep their animation and pass through, as do non-images.
func Recompress(payload timeline.DataURI) (timeline.DataURI, error) {
	switch payload.MIME {
	case "image/jpeg", "image/png":
	default:
		return payload, nil
	}

	src, _, err := image.Decode(bytes.NewReader(payload.Data))
	if err != nil {
		return timeline.DataURI{}, fmt.Errorf("decode %s payload: %w", payload.MIME, err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if long := max(w, h); long > maxImageEdge {
		scale := float64(maxImageEdge) / float64(long)
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return timeline.DataURI{}, fmt.Errorf("encode jpeg: %w", err)
	}
	return timeline.DataURI{MIME: "image/jpeg", Data: buf.Bytes()}, nil
}

// mimeByExt covers the media extensions the agent handles. The stdlib table
// lacks most audio/video types, so this takes precedence.
var mimeByExt = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// DetectMIME derives a media type from the filename extension, falling back
// to content sniffing.
func DetectMIME(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := mimeByExt[ext]; ok {
		return t
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if t, _, err := mime.ParseMediaType(byExt); err == nil {
			return t
		}
	}
	sniffed := http.DetectContentType(data)
	if t, _, err := mime.ParseMediaType(sniffed); err == nil {
		return t
	}
	return "application/octet-stream"
}

// MediaKind buckets a MIME type into the asset types the document model
// knows. Anything unrecognized is treated as video, mirroring the upload
// extension fallback.
func MediaKind(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "audio/"):
		return timeline.AssetAudio
	case strings.HasPrefix(mimeType, "image/"):
		return timeline.AssetImage
	default:
		return timeline.AssetVideo
	}
}
