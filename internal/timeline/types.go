// Package timeline defines the composition document model shared between the
// editing engine, the session controller and the render service. The JSON
// shape matches the render service's edit format.
package timeline

const (
	AssetVideo = "video"
	AssetAudio = "audio"
	AssetImage = "image"
)

type Asset struct {
	Type string `json:"type"`
	Src  string `json:"src"`
}

// IsEmbedded reports whether the asset source is an embedded data URI rather
// than a remote URL. Embedded sources must be resolved to remote URLs before
// a document is submitted for rendering.
func (a Asset) IsEmbedded() bool {
	return len(a.Src) > 5 && a.Src[:5] == "data:"
}

// Clip is a timed placement of one asset on one track. A clip's index within
// its track is positional, not a stable identity; identity across mutations
// must be re-derived from content (start, length, asset source).
type Clip struct {
	Asset  Asset   `json:"asset"`
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
}

type Track struct {
	Clips []Clip `json:"clips"`
}

type Size struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

type Output struct {
	Format     string `json:"format"`
	Resolution string `json:"resolution,omitempty"`
	Size       *Size  `json:"size,omitempty"`
}

type Timeline struct {
	Background string  `json:"background,omitempty"`
	Tracks     []Track `json:"tracks"`
}

type Document struct {
	Timeline Timeline `json:"timeline"`
	Output   Output   `json:"output"`
}

// Clone returns a deep copy of the document. Export takes a snapshot so that
// in-flight uploads never observe later edits.
func (d Document) Clone() Document {
	out := d
	if d.Output.Size != nil {
		size := *d.Output.Size
		out.Output.Size = &size
	}
	out.Timeline.Tracks = make([]Track, len(d.Timeline.Tracks))
	for i, tr := range d.Timeline.Tracks {
		clips := make([]Clip, len(tr.Clips))
		copy(clips, tr.Clips)
		out.Timeline.Tracks[i] = Track{Clips: clips}
	}
	return out
}

// FindClip locates a clip on the given track by content match. It returns the
// positional index of the first clip whose start, length and asset source all
// equal the recorded values, or -1 when no clip matches. An empty src matches
// any source, which keeps older records usable.
func (d Document) FindClip(trackIndex int, start, length float64, src string) int {
	if trackIndex < 0 || trackIndex >= len(d.Timeline.Tracks) {
		return -1
	}
	for i, c := range d.Timeline.Tracks[trackIndex].Clips {
		if c.Start != start || c.Length != length {
			continue
		}
		if src != "" && c.Asset.Src != src {
			continue
		}
		return i
	}
	return -1
}

// TotalDuration returns the end time of the latest-ending clip, in seconds.
func (d Document) TotalDuration() float64 {
	var max float64
	for _, tr := range d.Timeline.Tracks {
		for _, c := range tr.Clips {
			if end := c.Start + c.Length; end > max {
				max = end
			}
		}
	}
	return max
}
