package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/store"
)

const document = `_:c14n0 <http://schema.org/name> "Alice" .
_:x <http://schema.org/knows> _:c14n0 .
_:x <http://schema.org/name> "Bob" .
`

const canonical = `_:c14n0 <http://schema.org/knows> _:c14n1 .
_:c14n0 <http://schema.org/name> "Bob" .
_:c14n1 <http://schema.org/name> "Alice" .
`

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var stdout bytes.Buffer
	cmd := newRootCommand(strings.NewReader(stdin), &stdout)
	cmd.SetArgs(args)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCanonizeStdin(t *testing.T) {
	out, err := execute(t, document)
	require.NoError(t, err)
	assert.Equal(t, canonical, out)

	out, err = execute(t, document, "--id-map")
	require.NoError(t, err)
	assert.Equal(t, "_:c14n0 _:c14n1\n_:x _:c14n0\n", out)

	out, err = execute(t, document, "id")
	require.NoError(t, err)
	assert.Equal(t, store.Identify(canonical).String()+"\n", out)
}

func TestCanonizeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bob.jsonld")
	doc := `{
		"@id": "_:bob",
		"http://schema.org/name": "Bob",
		"http://schema.org/knows": {"http://schema.org/name": "Alice"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	out, err := execute(t, "", path)
	require.NoError(t, err)
	assert.Equal(t, canonical, out)
}

func TestCanonizeErrors(t *testing.T) {
	_, err := execute(t, document, "--algorithm", "URDNA2012")
	assert.ErrorIs(t, err, canonize.ErrUnknownAlgorithm)

	_, err = execute(t, document, "--algorithm", "URDNA2015", "--reject-urdna2015")
	assert.ErrorIs(t, err, canonize.ErrURDNA2015Rejected)

	cycle := "_:a <http://example.com/p> _:b .\n_:b <http://example.com/p> _:c .\n_:c <http://example.com/p> _:a .\n"
	_, err = execute(t, cycle, "--max-deep-iterations", "1")
	assert.ErrorIs(t, err, canonize.ErrIterationBudgetExceeded)

	_, err = execute(t, document, "get", "not-a-cid")
	assert.Error(t, err)
}

func TestOptionsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "options.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algorithm: URGNA2012\nmaxDeepIterations: 1\n"), 0o644))

	cycle := "_:a <http://example.com/p> _:b .\n_:b <http://example.com/p> _:c .\n_:c <http://example.com/p> _:a .\n"
	_, err := execute(t, cycle, "--options", path)
	assert.ErrorIs(t, err, canonize.ErrIterationBudgetExceeded)

	out, err := execute(t, cycle, "--options", path, "--max-deep-iterations=-1")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"))
	assert.Contains(t, out, "_:c14n2")
}

func TestPutGet(t *testing.T) {
	t.Setenv("CANONIZE_PATH", t.TempDir())
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("IPFS_HOST", "")
	t.Setenv("CANONIZE_OPTIONS", "")

	out, err := execute(t, document, "put")
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.Equal(t, store.Identify(canonical).String(), id)

	out, err = execute(t, "", "get", id)
	require.NoError(t, err)
	assert.Equal(t, canonical, out)
}
