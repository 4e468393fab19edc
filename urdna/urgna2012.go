package urdna

import (
	"github.com/emirpasic/gods/maps/treemap"

	"github.com/underlay/canonize/types"
)

// urgna2012 is the legacy variant: SHA-1, a fixed _:g placeholder for
// blank graph names, bare predicates and p/r positions with at most one
// related node per quad.
type urgna2012 struct{}

func (urgna2012) name() string               { return types.URGNA2012 }
func (urgna2012) defaultHash() HashAlgorithm { return SHA1 }

func (urgna2012) firstDegree(id string, term types.Term, position byte) types.Term {
	if term.Type != types.BlankNodeType {
		return term
	} else if position == 'g' {
		return blankG
	} else if term.Value == id {
		return blankA
	}
	return blankZ
}

func (urgna2012) relatedPredicate(quad *types.Quad) string {
	if quad.Predicate.Type == types.BlankNodeType {
		return "_:" + quad.Predicate.Value
	}
	return quad.Predicate.Value
}

func (urgna2012) related(r *run, id string, issuer *Issuer) *treemap.Map {
	groups := treemap.NewWithStringComparator()
	info, _ := r.index.Info(id)
	for _, quad := range info.Quads {
		var related, position string
		if quad.Subject.Type == types.BlankNodeType && quad.Subject.Value != id {
			related, position = quad.Subject.Value, "p"
		} else if quad.Object.Type == types.BlankNodeType && quad.Object.Value != id {
			related, position = quad.Object.Value, "r"
		} else {
			continue
		}
		appendGroup(groups, r.hashRelated(related, quad, issuer, position), related)
	}
	return groups
}
