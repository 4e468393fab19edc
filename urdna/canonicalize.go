package urdna

import (
	"context"
	"sort"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"

	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/types"
)

// Config selects the algorithm variant and its resource limits
type Config struct {
	// Algorithm is one of types.RDFC10, types.URDNA2015 or types.URGNA2012
	Algorithm string

	// HashAlgorithm overrides the variant's digest. Empty uses the default.
	HashAlgorithm HashAlgorithm

	// HMACKey keys every digest as an HMAC when non-empty
	HMACKey []byte

	// MaxDeepIterations bounds how often one blank node may be expanded
	// by Hash N-Degree Quads: a run with limit L aborts on the L+1th
	// expansion of a node, one earlier than rdf-canonize, which aborts
	// on the L+2th. Zero derives the bound from MaxWorkFactor.
	MaxDeepIterations int

	// MaxWorkFactor derives the bound as n^MaxWorkFactor, where n is the
	// number of blank nodes without a unique first degree hash.
	MaxWorkFactor int
}

// Canonicalizer labels blank nodes canonically. It holds no per-run
// state and may be used from several goroutines at once.
type Canonicalizer struct {
	config    Config
	variant   variant
	newDigest DigestFactory
}

// New validates config and returns a Canonicalizer
func New(config Config) (*Canonicalizer, error) {
	v, err := lookupVariant(config.Algorithm)
	if err != nil {
		return nil, err
	}

	if config.HashAlgorithm == "" {
		config.HashAlgorithm = v.defaultHash()
	}

	factory, err := NewDigestFactory(config.HashAlgorithm, config.HMACKey)
	if err != nil {
		return nil, err
	}

	return &Canonicalizer{config: config, variant: v, newDigest: factory}, nil
}

// Algorithm returns the configured algorithm name
func (c *Canonicalizer) Algorithm() string { return c.variant.name() }

// Result is the outcome of one canonicalization run
type Result struct {
	// Quads holds the relabeled quads, sorted by their N-Quads line
	Quads types.Dataset

	// NQuads is the canonical N-Quads document
	NQuads string

	// IDMap maps input blank node labels to canonical labels
	IDMap map[string]string

	// BlankNodes is the number of distinct blank nodes in the input
	BlankNodes int

	// DeepIterations is the number of Hash N-Degree Quads expansions
	DeepIterations int
}

// run is the state of a single canonicalization call
type run struct {
	*Canonicalizer
	index     *QuadIndex
	canonical *Issuer
	governor  *Governor
}

// hashResult pairs a Hash N-Degree Quads hash with the issuer that produced it
type hashResult struct {
	hash   string
	issuer *Issuer
}

// Canonicalize computes the canonical form of quads, which must already
// be free of duplicates. The input slice is not modified.
func (c *Canonicalizer) Canonicalize(ctx context.Context, quads []types.Quad) (*Result, error) {
	r := &run{
		Canonicalizer: c,
		index:         BuildIndex(quads),
		canonical:     NewIssuer(types.CanonicalPrefix),
		governor:      NewGovernor(ctx, c.config.MaxDeepIterations, c.config.MaxWorkFactor),
	}

	if err := r.governor.Poll(""); err != nil {
		return nil, err
	}

	// Hash every blank node and group them by first degree hash
	groups := treemap.NewWithStringComparator()
	for _, id := range r.index.IDs() {
		info, _ := r.index.Info(id)
		appendGroup(groups, r.hashFirstDegree(info), id)
	}

	// Unique hashes are labeled directly, in hash order
	var shared [][]string
	nonUnique := 0
	for it := groups.Iterator(); it.Next(); {
		ids := it.Value().([]string)
		if len(ids) > 1 {
			shared = append(shared, ids)
			nonUnique += len(ids)
			continue
		}
		r.canonical.GetID(ids[0])
	}

	r.governor.Start(nonUnique)
	if len(shared) > 0 {
		klog.V(2).Infof("%s: %d blank nodes, %d shared first degree hashes, deep iteration limit %d",
			c.variant.name(), r.index.Len(), len(shared), r.governor.Limit())
	}

	for _, ids := range shared {
		results := make([]hashResult, 0, len(ids))
		for _, id := range ids {
			if r.canonical.HasID(id) {
				continue
			}
			issuer := NewIssuer(types.TemporaryPrefix)
			issuer.GetID(id)
			hash, issuer, err := r.hashNDegree(id, issuer)
			if err != nil {
				klog.V(2).Infof("%s: aborted: %v", c.variant.name(), err)
				return nil, err
			}
			results = append(results, hashResult{hash, issuer})
		}

		sort.SliceStable(results, func(i, j int) bool { return results[i].hash < results[j].hash })
		for _, result := range results {
			for _, id := range result.issuer.IssuedIDs() {
				r.canonical.GetID(id)
			}
		}
	}

	return r.emit(quads)
}

// hashFirstDegree hashes the quads of info with the node itself as _:a
// and every other blank node as _:z. The hash never changes once
// computed, so it is memoized on info.
func (r *run) hashFirstDegree(info *BlankNodeInfo) string {
	if info.hashed {
		return info.hash
	}

	lines := make([]string, len(info.Quads))
	for i, quad := range info.Quads {
		lines[i] = nquads.SerializeQuad(&types.Quad{
			Subject:   r.variant.firstDegree(info.ID, quad.Subject, 's'),
			Predicate: quad.Predicate,
			Object:    r.variant.firstDegree(info.ID, quad.Object, 'o'),
			Graph:     r.variant.firstDegree(info.ID, quad.Graph, 'g'),
		})
	}
	sort.Strings(lines)

	digest := r.newDigest()
	for _, line := range lines {
		digest.Update(line)
	}
	info.hash, info.hashed = digest.Sum(), true
	return info.hash
}

// hashRelated hashes the relationship between a quad and one of its
// blank nodes, identifying the node by its canonical label, then its
// label in issuer, then its first degree hash.
func (r *run) hashRelated(related string, quad *types.Quad, issuer *Issuer, position string) string {
	var id string
	if label, has := r.canonical.Lookup(related); has {
		id = "_:" + label
	} else if label, has := issuer.Lookup(related); has {
		id = "_:" + label
	} else {
		info, _ := r.index.Info(related)
		id = r.hashFirstDegree(info)
	}

	digest := r.newDigest()
	digest.Update(position)
	if position != "g" {
		digest.Update(r.variant.relatedPredicate(quad))
	}
	digest.Update(id)
	return digest.Sum()
}

// hashNDegree distinguishes id from the other nodes that share its first
// degree hash by exploring every labeling of its related nodes, keeping
// the lexicographically least path for each group.
func (r *run) hashNDegree(id string, issuer *Issuer) (string, *Issuer, error) {
	if err := r.governor.Enter(id); err != nil {
		return "", nil, err
	}

	digest := r.newDigest()
	groups := r.variant.related(r, id, issuer)
	for it := groups.Iterator(); it.Next(); {
		digest.Update(it.Key().(string))

		var chosenPath string
		var chosenIssuer *Issuer
		for permuter := NewPermuter(it.Value().([]string)); permuter.HasNext(); {
			if err := r.governor.Poll(id); err != nil {
				return "", nil, err
			}

			permutation := permuter.Next()
			issuerCopy := issuer.Clone()
			var path strings.Builder
			var recursion []string
			pruned := false

			for i, related := range permutation {
				if label, has := r.canonical.Lookup(related); has {
					path.WriteString("_:")
					path.WriteString(label)
				} else {
					if !issuerCopy.HasID(related) {
						recursion = append(recursion, related)
					}
					path.WriteString("_:")
					path.WriteString(issuerCopy.GetID(related))
				}

				if chosenPath != "" && path.String() > chosenPath {
					permuter.Skip(i)
					pruned = true
					break
				}
			}
			if pruned {
				continue
			}

			for _, related := range recursion {
				hash, resultIssuer, err := r.hashNDegree(related, issuerCopy)
				if err != nil {
					return "", nil, err
				}

				path.WriteString("_:")
				path.WriteString(issuerCopy.GetID(related))
				path.WriteByte('<')
				path.WriteString(hash)
				path.WriteByte('>')
				issuerCopy = resultIssuer

				if chosenPath != "" && path.String() > chosenPath {
					pruned = true
					break
				}
			}
			if pruned {
				continue
			}

			if p := path.String(); chosenPath == "" || p < chosenPath {
				chosenPath, chosenIssuer = p, issuerCopy
			}
		}

		digest.Update(chosenPath)
		issuer = chosenIssuer
	}

	return digest.Sum(), issuer, nil
}

// emit relabels every blank subject, object and graph with its canonical
// label and sorts the result. Predicates keep their labels.
func (r *run) emit(quads []types.Quad) (*Result, error) {
	mapping := r.canonical.Mapping()
	seen := make(map[string]string, len(mapping))
	for id, label := range mapping {
		if other, has := seen[label]; has {
			return nil, errors.Wrapf(ErrInternal, "_:%s and _:%s both labeled _:%s", other, id, label)
		}
		seen[label] = id
	}

	relabel := func(term types.Term) (types.Term, error) {
		if term.Type != types.BlankNodeType {
			return term, nil
		}
		label, has := mapping[term.Value]
		if !has {
			return term, errors.Wrapf(ErrInternal, "no canonical label for _:%s", term.Value)
		}
		return types.NewBlankNode(label), nil
	}

	type line struct {
		text string
		quad types.Quad
	}

	lines := make([]line, len(quads))
	for i, quad := range quads {
		var err error
		if quad.Subject, err = relabel(quad.Subject); err != nil {
			return nil, err
		} else if quad.Object, err = relabel(quad.Object); err != nil {
			return nil, err
		} else if quad.Graph, err = relabel(quad.Graph); err != nil {
			return nil, err
		}
		if quad.Graph == (types.Term{}) {
			quad.Graph = types.Default
		}
		lines[i] = line{nquads.SerializeQuad(&quad), quad}
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].text < lines[j].text })

	result := &Result{
		Quads:          make(types.Dataset, len(lines)),
		IDMap:          mapping,
		BlankNodes:     r.index.Len(),
		DeepIterations: r.governor.Iterations(),
	}

	var b strings.Builder
	for i, l := range lines {
		result.Quads[i] = l.quad
		b.WriteString(l.text)
	}
	result.NQuads = b.String()
	return result, nil
}
