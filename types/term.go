package types

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// TermType tags the kind of an RDF term
type TermType uint8

const (
	// IRIType is a named node
	IRIType TermType = iota
	// BlankNodeType is a blank node
	BlankNodeType
	// LiteralType is a literal
	LiteralType
	// DefaultGraphType is the default graph
	DefaultGraphType
)

var termTypeNames = [...]string{"NamedNode", "BlankNode", "Literal", "DefaultGraph"}

// ErrInvalidTermType is returned when decoding an unknown termType name
var ErrInvalidTermType = errors.New("invalid term type")

func (t TermType) String() string {
	if int(t) < len(termTypeNames) {
		return termTypeNames[t]
	}
	return "TermType(" + strconv.Itoa(int(t)) + ")"
}

// MarshalText uses the RDF/JS termType names
func (t TermType) MarshalText() ([]byte, error) {
	if int(t) >= len(termTypeNames) {
		return nil, ErrInvalidTermType
	}
	return []byte(termTypeNames[t]), nil
}

// UnmarshalText parses RDF/JS termType names
func (t *TermType) UnmarshalText(text []byte) error {
	for i, name := range termTypeNames {
		if name == string(text) {
			*t = TermType(i)
			return nil
		}
	}
	return errors.Wrapf(ErrInvalidTermType, "%q", string(text))
}

// A Term is an RDF term. Terms are comparable values; two terms are
// equal iff they are ==.
//
// Blank node values are labels without the "_:" prefix. Literal terms
// always carry a datatype: xsd:string for plain literals and
// rdf:langString for language-tagged ones.
type Term struct {
	Type     TermType `json:"termType"`
	Value    string   `json:"value"`
	Datatype string   `json:"datatype,omitempty"`
	Language string   `json:"language,omitempty"`
}

// Default is the default graph term
var Default = Term{Type: DefaultGraphType}

// NewIRI returns a named node
func NewIRI(value string) Term { return Term{Type: IRIType, Value: value} }

// NewBlankNode returns a blank node; a leading "_:" is stripped
func NewBlankNode(label string) Term {
	return Term{Type: BlankNodeType, Value: strings.TrimPrefix(label, "_:")}
}

// NewLiteral returns a literal. An empty datatype means xsd:string, or
// rdf:langString if language is set.
func NewLiteral(value, datatype, language string) Term {
	if language != "" {
		datatype = RDFLangString
	} else if datatype == "" {
		datatype = XSDString
	}
	return Term{Type: LiteralType, Value: value, Datatype: datatype, Language: language}
}

// IsBlank reports whether the term is a blank node
func (t Term) IsBlank() bool { return t.Type == BlankNodeType }

// IsIRI reports whether the term is a named node
func (t Term) IsIRI() bool { return t.Type == IRIType }

// IsLiteral reports whether the term is a literal
func (t Term) IsLiteral() bool { return t.Type == LiteralType }

// IsDefaultGraph reports whether the term is the default graph
func (t Term) IsDefaultGraph() bool { return t.Type == DefaultGraphType }
