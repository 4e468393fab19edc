package canonize

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/piprate/json-gold/ld"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/types"
)

const simple = "_:b0 <urn:p0> _:b1 .\n_:b1 <urn:p1> \"v1\" .\n"

const simpleCanonical = "_:c14n0 <urn:p0> _:c14n1 .\n_:c14n1 <urn:p1> \"v1\" .\n"

const person = `{
	"@context": {
		"name": "http://xmlns.com/foaf/0.1/name",
		"knows": {"@id": "http://xmlns.com/foaf/0.1/knows", "@type": "@id"}
	},
	"name": "Alice",
	"knows": {"name": "Bob", "knows": {"name": "Carol"}}
}`

// symmetric links three subjects to three objects, never to their own index
const symmetric = `_:s0 <ex:p> _:o1 .
_:s0 <ex:p> _:o2 .
_:s1 <ex:p> _:o0 .
_:s1 <ex:p> _:o2 .
_:s2 <ex:p> _:o0 .
_:s2 <ex:p> _:o1 .
`

func TestCanonizeNQuads(t *testing.T) {
	idMap := map[string]string{}
	output, err := Canonize(context.Background(), simple, Options{
		Algorithm:      types.RDFC10,
		InputFormat:    types.Format,
		Format:         types.Format,
		CanonicalIDMap: idMap,
	})
	require.NoError(t, err)
	assert.Equal(t, simpleCanonical, output)
	assert.Equal(t, map[string]string{"b0": "c14n0", "b1": "c14n1"}, idMap)
	assert.Equal(t, "_:b0 _:c14n0\n_:b1 _:c14n1\n", IDMapString(idMap))

	text, err := CanonizeNQuads(context.Background(), simple, Options{Algorithm: types.URDNA2015})
	require.NoError(t, err)
	assert.Equal(t, simpleCanonical, text)

	text, err = CanonizeNQuads(context.Background(), "", Options{Algorithm: types.RDFC10})
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestCanonizeInputTypes(t *testing.T) {
	opts := Options{Algorithm: types.RDFC10, InputFormat: types.Format, Format: types.Format}
	for _, input := range []interface{}{simple, []byte(simple), strings.NewReader(simple)} {
		output, err := Canonize(context.Background(), input, opts)
		require.NoError(t, err)
		assert.Equal(t, simpleCanonical, output)
	}

	dataset, err := nquads.ParseString(simple)
	require.NoError(t, err)
	output, err := Canonize(context.Background(), []types.Quad(dataset), Options{Algorithm: types.RDFC10})
	require.NoError(t, err)
	require.IsType(t, types.Dataset{}, output)
	assert.Equal(t, simpleCanonical, nquads.Serialize(output.(types.Dataset)))

	output, err = Canonize(context.Background(), types.Dataset{}, Options{Algorithm: types.RDFC10, Format: types.Format})
	require.NoError(t, err)
	assert.Equal(t, "", output)

	_, err = Canonize(context.Background(), simple, Options{Algorithm: types.RDFC10})
	var configError *ConfigError
	require.True(t, errors.As(err, &configError))
	assert.Equal(t, "input", configError.Option)
	assert.True(t, errors.Is(err, ErrUnsupportedInput))
}

func TestCanonizeDataset(t *testing.T) {
	dataset, err := nquads.ParseString(simple)
	require.NoError(t, err)

	doubled := append(append(types.Dataset{}, dataset...), dataset...)
	result, err := CanonizeDataset(context.Background(), doubled, Options{Algorithm: types.RDFC10})
	require.NoError(t, err)
	assert.Equal(t, simpleCanonical, result.NQuads)
	assert.Len(t, result.Quads, 2)
}

func TestOptionErrors(t *testing.T) {
	tests := []struct {
		name   string
		opts   Options
		option string
		err    error
	}{
		{"missing algorithm", Options{}, "algorithm", ErrMissingAlgorithm},
		{"unknown algorithm", Options{Algorithm: "bogus"}, "algorithm", ErrUnknownAlgorithm},
		{"rejected URDNA2015", Options{Algorithm: types.URDNA2015, RejectURDNA2015: true}, "algorithm", ErrURDNA2015Rejected},
		{"input format", Options{Algorithm: types.RDFC10, InputFormat: "application/bogus"}, "inputFormat", ErrUnknownFormat},
		{"output format", Options{Algorithm: types.RDFC10, Format: "text/turtle"}, "format", ErrUnknownFormat},
		{"digest", Options{Algorithm: types.RDFC10, MessageDigestAlgorithm: "md5"}, "messageDigestAlgorithm", ErrUnsupportedDigest},
		{"fixed digest", Options{Algorithm: types.URDNA2015, MessageDigestAlgorithm: "sha384"}, "messageDigestAlgorithm", ErrUnsupportedDigest},
		{"sha1 for RDFC-1.0", Options{Algorithm: types.RDFC10, MessageDigestAlgorithm: "sha1"}, "messageDigestAlgorithm", ErrUnsupportedDigest},
		{"work factor", Options{Algorithm: types.RDFC10, MaxWorkFactor: -2}, "maxWorkFactor", ErrInvalidLimit},
		{"deep iterations", Options{Algorithm: types.RDFC10, MaxDeepIterations: -5}, "maxDeepIterations", ErrInvalidLimit},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// malformed input proves validation runs before parsing
			_, err := Canonize(context.Background(), "not n-quads", test.opts)
			var configError *ConfigError
			require.True(t, errors.As(err, &configError), "%v", err)
			assert.Equal(t, test.option, configError.Option)
			assert.True(t, errors.Is(err, test.err))
		})
	}
}

func TestValidOptions(t *testing.T) {
	for _, opts := range []Options{
		{Algorithm: types.RDFC10, MessageDigestAlgorithm: "SHA-384"},
		{Algorithm: types.URDNA2015, MessageDigestAlgorithm: "sha256"},
		{Algorithm: types.URGNA2012, MessageDigestAlgorithm: "sha1"},
		{Algorithm: types.RDFC10, MaxWorkFactor: Unbounded, MaxDeepIterations: Unbounded},
	} {
		_, err := opts.Validate()
		assert.NoError(t, err, "%+v", opts)
	}
}

func TestParseError(t *testing.T) {
	_, err := CanonizeNQuads(context.Background(), simple+"<urn:s> <urn:p> .\n", Options{Algorithm: types.RDFC10})
	var parseError *nquads.ParseError
	require.True(t, errors.As(err, &parseError))
	assert.Equal(t, 3, parseError.Line)
}

func TestCanonizeJSONLD(t *testing.T) {
	options := ld.NewJsonLdOptions("")
	options.Algorithm = types.URDNA2015
	options.Format = types.Format

	doc, err := ld.DocumentFromReader(strings.NewReader(person))
	require.NoError(t, err)
	expected, err := ld.NewJsonLdProcessor().Normalize(doc, options)
	require.NoError(t, err)

	output, err := CanonizeJSONLD(context.Background(), person, Options{Algorithm: types.RDFC10})
	require.NoError(t, err)
	assert.Equal(t, expected, output)
	assert.Equal(t, 3, strings.Count(output, "<http://xmlns.com/foaf/0.1/name>"))

	decoded, err := ld.DocumentFromReader(strings.NewReader(person))
	require.NoError(t, err)
	output, err = CanonizeJSONLD(context.Background(), decoded, Options{Algorithm: types.RDFC10})
	require.NoError(t, err)
	assert.Equal(t, expected, output)
}

func TestJSONLDRoundTrip(t *testing.T) {
	expected, err := CanonizeNQuads(context.Background(), simple, Options{Algorithm: types.RDFC10})
	require.NoError(t, err)

	dataset, err := nquads.ParseString(simple)
	require.NoError(t, err)
	doc, err := ToJSONLD(dataset, "")
	require.NoError(t, err)

	output, err := CanonizeJSONLD(context.Background(), doc, Options{Algorithm: types.RDFC10})
	require.NoError(t, err)
	assert.Equal(t, expected, output)
}

func TestTelemetry(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(previous)

	_, err := CanonizeNQuads(context.Background(), simple, Options{Algorithm: types.RDFC10})
	require.NoError(t, err)

	_, err = CanonizeNQuads(context.Background(), symmetric, Options{Algorithm: types.RDFC10, MaxDeepIterations: 1})
	require.True(t, errors.Is(err, ErrIterationBudgetExceeded))

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "canonize.Canonize", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Equal(t, codes.Error, spans[1].Status().Code)

	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, types.RDFC10, attrs["canonize.algorithm"])
	assert.Equal(t, int64(2), attrs["canonize.quads"])
	assert.Equal(t, int64(2), attrs["canonize.blank_nodes"])
}

func TestAbortHasNoOutput(t *testing.T) {
	idMap := map[string]string{}
	output, err := Canonize(context.Background(), symmetric, Options{
		Algorithm:         types.RDFC10,
		InputFormat:       types.Format,
		Format:            types.Format,
		MaxDeepIterations: 1,
		CanonicalIDMap:    idMap,
	})
	assert.Nil(t, output)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Empty(t, idMap)

	output, err = Canonize(context.Background(), symmetric, Options{
		Algorithm:     types.RDFC10,
		InputFormat:   types.Format,
		Format:        types.Format,
		MaxWorkFactor: Unbounded,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, strings.Count(output.(string), "\n"))
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canonize.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
algorithm: RDFC-1.0
format: application/n-quads
messageDigestAlgorithm: sha384
maxDeepIterations: 1000
`), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, types.RDFC10, opts.Algorithm)
	assert.Equal(t, types.Format, opts.Format)
	assert.Equal(t, "sha384", opts.MessageDigestAlgorithm)
	assert.Equal(t, 1000, opts.MaxDeepIterations)

	require.NoError(t, os.WriteFile(path, []byte("algorithm: URDNA2012\n"), 0o644))
	_, err = LoadOptions(path)
	assert.True(t, errors.Is(err, ErrUnknownAlgorithm))

	_, err = LoadOptions(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
