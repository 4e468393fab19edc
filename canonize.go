// Package canonize computes canonical N-Quads for RDF datasets using
// RDFC-1.0 (also known as URDNA2015) or the legacy URGNA2012 algorithm.
package canonize

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/types"
	"github.com/underlay/canonize/urdna"
)

// Canonize canonicalizes input according to opts.
//
// With an empty InputFormat, input must be a types.Dataset or []types.Quad.
// With application/n-quads it may be a string, []byte or io.Reader, and
// with application/ld+json it may also be a decoded JSON-LD document.
// The result is a string when Format is application/n-quads and a
// types.Dataset otherwise.
func Canonize(ctx context.Context, input interface{}, opts Options) (interface{}, error) {
	config, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	dataset, err := readInput(input, &opts)
	if err != nil {
		return nil, err
	}

	result, err := run(ctx, dataset, &opts, config)
	if err != nil {
		return nil, err
	}

	if opts.Format == types.Format {
		return result.NQuads, nil
	}
	return result.Quads, nil
}

// CanonizeDataset canonicalizes a parsed dataset. Duplicate quads are
// removed first.
func CanonizeDataset(ctx context.Context, quads []types.Quad, opts Options) (*urdna.Result, error) {
	config, err := opts.Validate()
	if err != nil {
		return nil, err
	}
	return run(ctx, types.Dataset(quads).Dedupe(), &opts, config)
}

// CanonizeNQuads canonicalizes an N-Quads document
func CanonizeNQuads(ctx context.Context, document string, opts Options) (string, error) {
	opts.InputFormat, opts.Format = types.Format, types.Format
	result, err := Canonize(ctx, document, opts)
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// CanonizeJSONLD expands a JSON-LD document to RDF and canonicalizes it
func CanonizeJSONLD(ctx context.Context, document interface{}, opts Options) (string, error) {
	opts.InputFormat, opts.Format = types.JSONLDFormat, types.Format
	result, err := Canonize(ctx, document, opts)
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func readInput(input interface{}, opts *Options) (types.Dataset, error) {
	switch opts.InputFormat {
	case types.Format:
		switch t := input.(type) {
		case string:
			return nquads.ParseString(t)
		case []byte:
			return nquads.Parse(bytes.NewReader(t))
		case io.Reader:
			return nquads.Parse(t)
		}
	case types.JSONLDFormat:
		return FromJSONLD(input, opts)
	default:
		switch t := input.(type) {
		case types.Dataset:
			return t.Dedupe(), nil
		case []types.Quad:
			return types.Dataset(t).Dedupe(), nil
		case nil:
			return nil, nil
		}
	}
	return nil, &ConfigError{"input", fmt.Sprintf("%T", input), ErrUnsupportedInput}
}

func run(ctx context.Context, dataset types.Dataset, opts *Options, config urdna.Config) (result *urdna.Result, err error) {
	canonicalizer, err := urdna.New(config)
	if err != nil {
		return nil, &ConfigError{"algorithm", config.Algorithm, err}
	}

	ctx, finish := startSpan(ctx, canonicalizer.Algorithm(), len(dataset))
	defer func() { finish(result, err) }()

	result, err = canonicalizer.Canonicalize(ctx, dataset)
	if err != nil {
		return nil, err
	}

	if opts.CanonicalIDMap != nil {
		for id, label := range result.IDMap {
			opts.CanonicalIDMap[id] = label
		}
	}
	return result, nil
}

// IDMapString formats an id map as sorted "_:old _:new" lines
func IDMapString(mapping map[string]string) string {
	lines := make([]string, 0, len(mapping))
	for id, label := range mapping {
		lines = append(lines, fmt.Sprintf("_:%s _:%s\n", id, label))
	}
	sort.Strings(lines)
	return strings.Join(lines, "")
}
