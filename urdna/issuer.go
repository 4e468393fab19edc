package urdna

import (
	"strconv"

	"github.com/emirpasic/gods/maps/linkedhashmap"
)

// Issuer issues sequential labels ("c14n0", "c14n1", ...) for
// blank node ids, remembering the order in which they were issued.
// Labels are stored without the "_:" prefix.
type Issuer struct {
	prefix  string
	counter int
	issued  *linkedhashmap.Map
}

// NewIssuer returns an empty issuer for the given prefix
func NewIssuer(prefix string) *Issuer {
	return &Issuer{prefix: prefix, issued: linkedhashmap.New()}
}

// Prefix returns the label prefix
func (issuer *Issuer) Prefix() string { return issuer.prefix }

// GetID returns the label for id, issuing a new one if necessary
func (issuer *Issuer) GetID(id string) string {
	if label, has := issuer.issued.Get(id); has {
		return label.(string)
	}
	label := issuer.next()
	issuer.issued.Put(id, label)
	return label
}

// NewID issues a label that is not bound to any id
func (issuer *Issuer) NewID() string {
	return issuer.next()
}

func (issuer *Issuer) next() string {
	label := issuer.prefix + strconv.Itoa(issuer.counter)
	issuer.counter++
	return label
}

// HasID reports whether id has already been issued a label
func (issuer *Issuer) HasID(id string) bool {
	_, has := issuer.issued.Get(id)
	return has
}

// Lookup returns the label issued for id without issuing one
func (issuer *Issuer) Lookup(id string) (string, bool) {
	if label, has := issuer.issued.Get(id); has {
		return label.(string), true
	}
	return "", false
}

// Len returns the number of issued ids
func (issuer *Issuer) Len() int { return issuer.issued.Size() }

// IssuedIDs returns the issued ids in issuance order
func (issuer *Issuer) IssuedIDs() []string {
	ids := make([]string, 0, issuer.issued.Size())
	issuer.issued.Each(func(key, _ interface{}) {
		ids = append(ids, key.(string))
	})
	return ids
}

// Mapping returns a copy of the id → label map
func (issuer *Issuer) Mapping() map[string]string {
	mapping := make(map[string]string, issuer.issued.Size())
	issuer.issued.Each(func(key, value interface{}) {
		mapping[key.(string)] = value.(string)
	})
	return mapping
}

// Clone returns an independent copy of the issuer
func (issuer *Issuer) Clone() *Issuer {
	clone := &Issuer{
		prefix:  issuer.prefix,
		counter: issuer.counter,
		issued:  linkedhashmap.New(),
	}
	issuer.issued.Each(func(key, value interface{}) {
		clone.issued.Put(key, value)
	})
	return clone
}
