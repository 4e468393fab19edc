// Package store keeps canonical datasets addressed by the CID of their
// canonical N-Quads serialization.
package store

import (
	"context"
	"strings"

	cid "github.com/ipfs/go-cid"
	multihash "github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/types"
	"github.com/underlay/canonize/urdna"
)

// Identify returns the CIDv1 (raw codec, sha2-256) of a canonical document
func Identify(canonical string) cid.Cid {
	mh, err := multihash.Sum([]byte(canonical), multihash.SHA2_256, -1)
	if err != nil {
		// sha2-256 is always registered
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, mh)
}

// ErrMismatch indicates a stored document that does not hash to its id
var ErrMismatch = errors.New("stored dataset does not match its id")

// Config contains the options for a Store
type Config struct {
	// QuadStore defaults to an in-memory store
	QuadStore QuadStore

	// Documents, if set, also publishes every new canonical document
	Documents DocumentStore

	// Options configure canonicalization. Algorithm defaults to RDFC-1.0.
	Options canonize.Options
}

// A Store canonicalizes datasets and keeps them by id
type Store struct {
	Config *Config
}

// NewStore returns a Store for config
func NewStore(config *Config) *Store {
	if config == nil {
		config = &Config{}
	}
	if config.QuadStore == nil {
		config.QuadStore = NewMemoryStore()
	}
	if config.Options.Algorithm == "" {
		config.Options.Algorithm = types.Algorithm
	}
	return &Store{Config: config}
}

// Put canonicalizes quads and stores the result. Storing the same
// dataset twice, under any blank node labels, yields the same id.
func (s *Store) Put(ctx context.Context, quads []types.Quad) (cid.Cid, *urdna.Result, error) {
	opts := s.Config.Options
	opts.CanonicalIDMap = nil
	result, err := canonize.CanonizeDataset(ctx, quads, opts)
	if err != nil {
		return cid.Undef, nil, err
	}

	id := Identify(result.NQuads)
	has, err := s.Config.QuadStore.Has(ctx, id)
	if err != nil {
		return cid.Undef, nil, err
	} else if has {
		klog.V(2).Infof("store: %s already present", id)
		return id, result, nil
	}

	// A failed publish leaves nothing stored
	if s.Config.Documents != nil {
		published, err := s.Config.Documents(strings.NewReader(result.NQuads))
		if err != nil {
			return cid.Undef, nil, errors.Wrap(err, "failed to publish dataset")
		} else if !published.Equals(id) {
			klog.Warningf("store: published %s as %s", id, published)
		}
	}

	if err := s.Config.QuadStore.Set(ctx, id, []byte(result.NQuads)); err != nil {
		return cid.Undef, nil, err
	}

	klog.V(2).Infof("store: put %s (%d quads)", id, len(result.Quads))
	return id, result, nil
}

// PutNQuads parses and stores an N-Quads document
func (s *Store) PutNQuads(ctx context.Context, document string) (cid.Cid, *urdna.Result, error) {
	dataset, err := nquads.ParseString(document)
	if err != nil {
		return cid.Undef, nil, err
	}
	return s.Put(ctx, dataset)
}

// GetNQuads returns the canonical N-Quads stored under id
func (s *Store) GetNQuads(ctx context.Context, id cid.Cid) (string, error) {
	canonical, err := s.Config.QuadStore.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !Identify(string(canonical)).Equals(id) {
		return "", errors.Wrapf(ErrMismatch, "%s", id)
	}
	return string(canonical), nil
}

// Get returns the canonical dataset stored under id
func (s *Store) Get(ctx context.Context, id cid.Cid) (types.Dataset, error) {
	canonical, err := s.GetNQuads(ctx, id)
	if err != nil {
		return nil, err
	}
	return nquads.ParseString(canonical)
}

// Delete removes the dataset stored under id
func (s *Store) Delete(ctx context.Context, id cid.Cid) error {
	return s.Config.QuadStore.Delete(ctx, id)
}

// List iterates stored dataset ids from the given id onwards.
// Use cid.Undef to start at the beginning.
func (s *Store) List(ctx context.Context, from cid.Cid) Iterator {
	return s.Config.QuadStore.List(ctx, from)
}

// Skolemize replaces canonical blank nodes with IRIs naming them within
// the dataset id, like ul:<id>#_:c14n0. Blank predicates are kept.
func Skolemize(id cid.Cid, dataset types.Dataset, uri types.URI) types.Dataset {
	skolemize := func(term types.Term) types.Term {
		if term.Type == types.BlankNodeType {
			return types.NewIRI(uri.String(id, "_:"+term.Value))
		}
		return term
	}

	result := make(types.Dataset, len(dataset))
	for i, quad := range dataset {
		result[i] = types.Quad{
			Subject:   skolemize(quad.Subject),
			Predicate: quad.Predicate,
			Object:    skolemize(quad.Object),
			Graph:     skolemize(quad.Graph),
		}
	}
	return result
}

// Unskolemize reverses Skolemize for IRIs that name blank nodes of id
func Unskolemize(id cid.Cid, dataset types.Dataset, uri types.URI) types.Dataset {
	unskolemize := func(term types.Term) types.Term {
		if term.Type == types.IRIType && uri.Test(term.Value) {
			if c, fragment := uri.Parse(term.Value); fragment != "" && c.Equals(id) {
				return types.NewBlankNode(strings.TrimPrefix(fragment, "_:"))
			}
		}
		return term
	}

	result := make(types.Dataset, len(dataset))
	for i, quad := range dataset {
		result[i] = types.Quad{
			Subject:   unskolemize(quad.Subject),
			Predicate: quad.Predicate,
			Object:    unskolemize(quad.Object),
			Graph:     unskolemize(quad.Graph),
		}
	}
	return result
}
