package urdna

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/pkg/errors"

	"github.com/underlay/canonize/types"
)

// variant holds the rules that differ between URDNA2015 and URGNA2012
type variant interface {
	name() string
	defaultHash() HashAlgorithm

	// firstDegree replaces a blank node component while hashing the
	// first degree quads of id
	firstDegree(id string, term types.Term, position byte) types.Term

	// relatedPredicate is the predicate text fed to Hash Related Blank Node
	relatedPredicate(quad *types.Quad) string

	// related groups the blank nodes related to id by their related hash
	related(r *run, id string, issuer *Issuer) *treemap.Map
}

var (
	blankA = types.NewBlankNode("a")
	blankZ = types.NewBlankNode("z")
	blankG = types.NewBlankNode("g")
)

func lookupVariant(algorithm string) (variant, error) {
	switch algorithm {
	case types.RDFC10, types.URDNA2015:
		return urdna2015{algorithm}, nil
	case types.URGNA2012:
		return urgna2012{}, nil
	}
	return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q", algorithm)
}

type urdna2015 struct{ label string }

func (v urdna2015) name() string             { return v.label }
func (urdna2015) defaultHash() HashAlgorithm { return SHA256 }

func (urdna2015) firstDegree(id string, term types.Term, _ byte) types.Term {
	if term.Type != types.BlankNodeType {
		return term
	} else if term.Value == id {
		return blankA
	}
	return blankZ
}

func (urdna2015) relatedPredicate(quad *types.Quad) string {
	if quad.Predicate.Type == types.BlankNodeType {
		return "<_:" + quad.Predicate.Value + ">"
	}
	return "<" + quad.Predicate.Value + ">"
}

func (urdna2015) related(r *run, id string, issuer *Issuer) *treemap.Map {
	groups := treemap.NewWithStringComparator()
	info, _ := r.index.Info(id)
	for _, quad := range info.Quads {
		for _, c := range [...]struct {
			term     types.Term
			position string
		}{
			{quad.Subject, "s"},
			{quad.Object, "o"},
			{quad.Graph, "g"},
		} {
			if c.term.Type == types.BlankNodeType && c.term.Value != id {
				hash := r.hashRelated(c.term.Value, quad, issuer, c.position)
				appendGroup(groups, hash, c.term.Value)
			}
		}
	}
	return groups
}

func appendGroup(groups *treemap.Map, hash, id string) {
	if ids, has := groups.Get(hash); has {
		groups.Put(hash, append(ids.([]string), id))
	} else {
		groups.Put(hash, []string{id})
	}
}
