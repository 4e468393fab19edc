package canonize

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/piprate/json-gold/ld"

	"github.com/underlay/canonize/types"
)

// FromJSONLD expands a JSON-LD document into a deduplicated dataset.
// The document may be JSON text (string, []byte or io.Reader) or an
// already decoded value.
func FromJSONLD(input interface{}, opts *Options) (types.Dataset, error) {
	var doc interface{}
	var err error
	switch t := input.(type) {
	case string:
		doc, err = ld.DocumentFromReader(strings.NewReader(t))
	case []byte:
		doc, err = ld.DocumentFromReader(bytes.NewReader(t))
	case io.Reader:
		doc, err = ld.DocumentFromReader(t)
	default:
		doc = input
	}
	if err != nil {
		return nil, err
	}

	options := ld.NewJsonLdOptions(opts.Base)
	if opts.DocumentLoader != nil {
		options.DocumentLoader = opts.DocumentLoader
	}

	rdf, err := ld.NewJsonLdProcessor().ToRDF(doc, options)
	if err != nil {
		return nil, err
	}

	dataset, is := rdf.(*ld.RDFDataset)
	if !is {
		return nil, &ConfigError{"input", "JSON-LD", ErrUnsupportedInput}
	}
	return FromRDFDataset(dataset), nil
}

// FromRDFDataset converts a json-gold dataset, visiting graphs in name order
func FromRDFDataset(dataset *ld.RDFDataset) types.Dataset {
	names := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		names = append(names, name)
	}
	sort.Strings(names)

	result := types.Dataset{}
	for _, name := range names {
		graph := types.Default
		if strings.HasPrefix(name, "_:") {
			graph = types.NewBlankNode(name)
		} else if name != types.DefaultGraphName {
			graph = types.NewIRI(name)
		}

		for _, quad := range dataset.Graphs[name] {
			result = append(result, types.Quad{
				Subject:   fromNode(quad.Subject),
				Predicate: fromNode(quad.Predicate),
				Object:    fromNode(quad.Object),
				Graph:     graph,
			})
		}
	}
	return result.Dedupe()
}

func fromNode(node ld.Node) types.Term {
	switch n := node.(type) {
	case *ld.IRI:
		return types.NewIRI(n.Value)
	case *ld.BlankNode:
		return types.NewBlankNode(n.Attribute)
	case *ld.Literal:
		return types.NewLiteral(n.Value, n.Datatype, n.Language)
	}
	return types.Default
}

// ToRDFDataset converts a dataset into json-gold's representation
func ToRDFDataset(dataset types.Dataset) *ld.RDFDataset {
	result := ld.NewRDFDataset()
	for _, quad := range dataset {
		name := types.DefaultGraphName
		switch quad.Graph.Type {
		case types.IRIType:
			if quad.Graph.Value != "" {
				name = quad.Graph.Value
			}
		case types.BlankNodeType:
			name = "_:" + quad.Graph.Value
		}
		result.Graphs[name] = append(result.Graphs[name], ld.NewQuad(
			toNode(quad.Subject),
			toNode(quad.Predicate),
			toNode(quad.Object),
			name,
		))
	}
	return result
}

func toNode(term types.Term) ld.Node {
	switch term.Type {
	case types.BlankNodeType:
		return ld.NewBlankNode("_:" + term.Value)
	case types.LiteralType:
		return ld.NewLiteral(term.Value, term.Datatype, term.Language)
	}
	return ld.NewIRI(term.Value)
}

// ToJSONLD converts a dataset into an expanded JSON-LD document
func ToJSONLD(dataset types.Dataset, base string) (interface{}, error) {
	options := ld.NewJsonLdOptions(base)
	return ld.NewJsonLdApi().FromRDF(ToRDFDataset(dataset), options)
}
