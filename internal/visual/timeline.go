// Package visual maintains the separately rendered timeline mirror. The
// mirror owns no document data, it is strictly derived, and may transiently
// diverge from the document after out-of-band mutations until reconciled.
package visual

// Node is the rendering handle behind one visual element. Detaching a node
// removes it from its parent's child list so the renderer stops drawing it.
type Node struct {
	parent   *Node
	children []*Node
}

func NewNode() *Node {
	return &Node{}
}

// Attach adds child under n, detaching it from any previous parent first.
func (n *Node) Attach(child *Node) {
	if child == nil {
		return
	}
	child.Detach()
	child.parent = n
	n.children = append(n.children, child)
}

// Detach removes the node from its parent. Detaching an orphan is a no-op.
func (n *Node) Detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

func (n *Node) Parent() *Node {
	return n.parent
}

func (n *Node) ChildCount() int {
	return len(n.children)
}

// VisualClip mirrors one document clip. Start and Length are carried for
// drawing only; the document stays authoritative.
type VisualClip struct {
	Start  float64
	Length float64
	Node   *Node
}

type VisualTrack struct {
	Clips []*VisualClip
	Node  *Node
}

type Timeline struct {
	Tracks []*VisualTrack
	Root   *Node
}

func NewTimeline() *Timeline {
	return &Timeline{Root: NewNode()}
}
