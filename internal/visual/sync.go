package visual

import "github.com/cutroom/cutroom-agent/internal/timeline"

// Reconcile trims stale visual clips so that, per track index, the mirror has
// no more entries than the document. Trailing entries are removed and their
// rendering nodes detached until the counts match.
//
// Reconcile never adds entries. Deletions are common and cheap to patch this
// way; an insertion needs positional and duration metadata that only a full
// Rebuild can place correctly, so growth is handled there.
//
// It is best-effort and defensive: a nil timeline, missing tracks or a
// document with fewer tracks than the mirror short-circuit per track with no
// mutation and no error. Calling it twice without an intervening mutation
// changes nothing.
func Reconcile(vis *Timeline, doc timeline.Document) {
	if vis == nil {
		return
	}
	for i, vt := range vis.Tracks {
		if vt == nil {
			continue
		}
		docCount := 0
		if i < len(doc.Timeline.Tracks) {
			docCount = len(doc.Timeline.Tracks[i].Clips)
		}
		for len(vt.Clips) > docCount {
			last := vt.Clips[len(vt.Clips)-1]
			vt.Clips = vt.Clips[:len(vt.Clips)-1]
			if last != nil && last.Node != nil {
				last.Node.Detach()
			}
		}
	}
}

// Rebuild discards the mirror's tracks and rebuilds them from the document.
// This is the heavier path used after insertions and after native undo/redo,
// where new entries need correct position and duration metadata.
func Rebuild(vis *Timeline, doc timeline.Document) {
	if vis == nil {
		return
	}
	if vis.Root == nil {
		vis.Root = NewNode()
	}
	for _, vt := range vis.Tracks {
		if vt == nil {
			continue
		}
		for _, vc := range vt.Clips {
			if vc != nil && vc.Node != nil {
				vc.Node.Detach()
			}
		}
		if vt.Node != nil {
			vt.Node.Detach()
		}
	}

	vis.Tracks = make([]*VisualTrack, len(doc.Timeline.Tracks))
	for i, tr := range doc.Timeline.Tracks {
		vt := &VisualTrack{Node: NewNode()}
		vis.Root.Attach(vt.Node)
		vt.Clips = make([]*VisualClip, len(tr.Clips))
		for j, c := range tr.Clips {
			vc := &VisualClip{Start: c.Start, Length: c.Length, Node: NewNode()}
			vt.Node.Attach(vc.Node)
			vt.Clips[j] = vc
		}
		vis.Tracks[i] = vt
	}
}
