package timeline

import (
	"encoding/json"
	"testing"
)

func sampleDocument() Document {
	return Document{
		Timeline: Timeline{
			Background: "#000000",
			Tracks: []Track{
				{Clips: []Clip{
					{Asset: Asset{Type: AssetVideo, Src: "https://cdn.example.com/a.mp4"}, Start: 0, Length: 10},
					{Asset: Asset{Type: AssetImage, Src: "https://cdn.example.com/b.png"}, Start: 10, Length: 5},
				}},
				{Clips: []Clip{
					{Asset: Asset{Type: AssetAudio, Src: "https://cdn.example.com/c.mp3"}, Start: 0, Length: 15},
				}},
			},
		},
		Output: Output{Format: "mp4", Resolution: "sd"},
	}
}

func TestDocument_Clone_Independent(t *testing.T) {
	doc := sampleDocument()
	doc.Output.Size = &Size{Width: 1280, Height: 720}

	clone := doc.Clone()
	clone.Timeline.Tracks[0].Clips[0].Start = 99
	clone.Output.Size.Width = 1

	if doc.Timeline.Tracks[0].Clips[0].Start != 0 {
		t.Error("mutating clone changed original clip")
	}
	if doc.Output.Size.Width != 1280 {
		t.Error("mutating clone changed original output size")
	}
}

func TestDocument_FindClip(t *testing.T) {
	doc := sampleDocument()

	tests := []struct {
		name          string
		track         int
		start, length float64
		src           string
		want          int
	}{
		{"exact match", 0, 10, 5, "https://cdn.example.com/b.png", 1},
		{"match without src", 0, 0, 10, "", 0},
		{"src mismatch", 0, 0, 10, "https://cdn.example.com/other.mp4", -1},
		{"start shifted", 0, 1, 10, "", -1},
		{"track out of range", 5, 0, 10, "", -1},
		{"negative track", -1, 0, 10, "", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := doc.FindClip(tt.track, tt.start, tt.length, tt.src)
			if got != tt.want {
				t.Errorf("FindClip() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDocument_TotalDuration(t *testing.T) {
	doc := sampleDocument()
	if got := doc.TotalDuration(); got != 15 {
		t.Errorf("TotalDuration() = %v, want 15", got)
	}

	empty := Document{}
	if got := empty.TotalDuration(); got != 0 {
		t.Errorf("TotalDuration() on empty document = %v, want 0", got)
	}
}

func TestAsset_IsEmbedded(t *testing.T) {
	if !(Asset{Src: "data:image/png;base64,aGk="}).IsEmbedded() {
		t.Error("data URI should be embedded")
	}
	if (Asset{Src: "https://cdn.example.com/a.mp4"}).IsEmbedded() {
		t.Error("remote URL should not be embedded")
	}
	if (Asset{Src: ""}).IsEmbedded() {
		t.Error("empty src should not be embedded")
	}
}

func TestDocument_WireFormat(t *testing.T) {
	doc := sampleDocument()
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tl, ok := generic["timeline"].(map[string]any)
	if !ok {
		t.Fatal("missing timeline object")
	}
	if _, ok := tl["tracks"].([]any); !ok {
		t.Fatal("missing timeline.tracks array")
	}
	out, ok := generic["output"].(map[string]any)
	if !ok {
		t.Fatal("missing output object")
	}
	if out["format"] != "mp4" {
		t.Errorf("output.format = %v, want mp4", out["format"])
	}
}
