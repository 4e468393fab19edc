package urdna

import "github.com/underlay/canonize/types"

// BlankNodeInfo holds the quads that mention one blank node in subject,
// object or graph position, plus its memoized first degree hash.
type BlankNodeInfo struct {
	ID    string
	Quads []*types.Quad

	hash   string
	hashed bool
}

// Hash returns the memoized first degree hash, if computed
func (info *BlankNodeInfo) Hash() (string, bool) { return info.hash, info.hashed }

// QuadIndex maps blank node ids to the quads that mention them
type QuadIndex struct {
	infos map[string]*BlankNodeInfo
	ids   []string
}

// BuildIndex indexes quads in a single pass. A quad is recorded once for
// every subject, object or graph position a node fills, so a self-loop
// appears twice in its node's entry. Blank node predicates are not
// indexed. The quads slice must outlive the index.
func BuildIndex(quads []types.Quad) *QuadIndex {
	index := &QuadIndex{infos: map[string]*BlankNodeInfo{}}
	for i := range quads {
		quad := &quads[i]
		index.add(quad, quad.Subject)
		index.add(quad, quad.Object)
		index.add(quad, quad.Graph)
	}
	return index
}

func (index *QuadIndex) add(quad *types.Quad, term types.Term) {
	if term.Type != types.BlankNodeType {
		return
	}

	info, has := index.infos[term.Value]
	if !has {
		info = &BlankNodeInfo{ID: term.Value}
		index.infos[term.Value] = info
		index.ids = append(index.ids, term.Value)
	}
	info.Quads = append(info.Quads, quad)
}

// Info returns the entry for id
func (index *QuadIndex) Info(id string) (*BlankNodeInfo, bool) {
	info, has := index.infos[id]
	return info, has
}

// IDs returns the indexed blank node ids in first-seen order
func (index *QuadIndex) IDs() []string { return index.ids }

// Len returns the number of distinct blank nodes
func (index *QuadIndex) Len() int { return len(index.ids) }
