// Package library manages the local media library: files imported by hand or
// picked up from a watch folder, registered in sqlite and served to the UI
// for preview and timeline drops.
package library

import "time"

type MediaFile struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	MIME      string    `json:"mime"`
	Kind      string    `json:"kind"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

var mediaExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".webm": true,
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
}

// IsMediaFile reports whether the filename has a recognized media extension.
func IsMediaFile(filename string) bool {
	ext := ""
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			ext = filename[i:]
			break
		}
	}
	if ext == "" {
		return false
	}
	lower := make([]byte, len(ext))
	for i, c := range ext {
		if c >= 'A' && c <= 'Z' {
			lower[i] = byte(c + 32)
		} else {
			lower[i] = byte(c)
		}
	}
	return mediaExtensions[string(lower)]
}
