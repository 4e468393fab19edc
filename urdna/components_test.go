package urdna

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"math"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	tests := []struct {
		algorithm HashAlgorithm
		expected  string
	}{
		{SHA1, "da39a3ee5e6b4b0d3255bfef95601890afd80709"},
		{SHA256, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
	}
	for _, test := range tests {
		digest, err := NewDigest(test.algorithm, nil)
		require.NoError(t, err)
		assert.Equal(t, test.expected, digest.Sum(), test.algorithm)
	}

	digest, err := NewDigest(SHA256, nil)
	require.NoError(t, err)
	digest.Update("a")
	digest.Update("bc")
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", digest.Sum())
	assert.Panics(t, func() { digest.Sum() })

	_, err = NewDigest("md5", nil)
	assert.True(t, errors.Is(err, ErrUnsupportedDigest))
}

func TestDigestHMAC(t *testing.T) {
	key := []byte("secret")
	digest, err := NewDigest(SHA256, key)
	require.NoError(t, err)
	digest.Update("_:a <ex:p> _:z .\n")

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte("_:a <ex:p> _:z .\n"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), digest.Sum())
}

func TestParseHashAlgorithm(t *testing.T) {
	for name, expected := range map[string]HashAlgorithm{
		"SHA-256": SHA256,
		"sha384":  SHA384,
		"SHA-512": SHA512,
		"sha1":    SHA1,
	} {
		algorithm, err := ParseHashAlgorithm(name)
		require.NoError(t, err)
		assert.Equal(t, expected, algorithm)
	}
	_, err := ParseHashAlgorithm("blake3")
	assert.True(t, errors.Is(err, ErrUnsupportedDigest))
}

func TestIssuer(t *testing.T) {
	issuer := NewIssuer("c14n")
	assert.Equal(t, "c14n0", issuer.GetID("b7"))
	assert.Equal(t, "c14n1", issuer.GetID("b3"))
	assert.Equal(t, "c14n0", issuer.GetID("b7"))
	assert.Equal(t, "c14n2", issuer.NewID())
	assert.Equal(t, "c14n3", issuer.GetID("b0"))

	assert.True(t, issuer.HasID("b3"))
	assert.False(t, issuer.HasID("b9"))
	assert.Equal(t, []string{"b7", "b3", "b0"}, issuer.IssuedIDs())
	assert.Equal(t, map[string]string{"b7": "c14n0", "b3": "c14n1", "b0": "c14n3"}, issuer.Mapping())

	label, has := issuer.Lookup("b9")
	assert.False(t, has)
	assert.Empty(t, label)
	assert.False(t, issuer.HasID("b9"))
}

func TestIssuerClone(t *testing.T) {
	issuer := NewIssuer("b")
	issuer.GetID("x")

	clone := issuer.Clone()
	assert.Equal(t, "b1", clone.GetID("y"))
	assert.Equal(t, "b1", issuer.GetID("z"))

	assert.False(t, issuer.HasID("y"))
	assert.False(t, clone.HasID("z"))
	assert.Equal(t, []string{"x", "y"}, clone.IssuedIDs())
	assert.Equal(t, []string{"x", "z"}, issuer.IssuedIDs())
}

func collect(p *Permuter) [][]string {
	var result [][]string
	for p.HasNext() {
		result = append(result, p.Next())
	}
	return result
}

func TestPermuter(t *testing.T) {
	assert.Equal(t, [][]string{
		{"a", "b", "c"},
		{"a", "c", "b"},
		{"b", "a", "c"},
		{"b", "c", "a"},
		{"c", "a", "b"},
		{"c", "b", "a"},
	}, collect(NewPermuter([]string{"c", "a", "b"})))

	assert.Equal(t, [][]string{
		{"a", "a", "b"},
		{"a", "b", "a"},
		{"b", "a", "a"},
	}, collect(NewPermuter([]string{"b", "a", "a"})))

	assert.Equal(t, [][]string{{"x"}}, collect(NewPermuter([]string{"x"})))
}

func TestPermuterSkip(t *testing.T) {
	p := NewPermuter([]string{"a", "b", "c", "d"})
	assert.Equal(t, []string{"a", "b", "c", "d"}, p.Next())
	p.Skip(0)
	assert.Equal(t, []string{"b", "a", "c", "d"}, p.Next())
	p.Skip(1)
	assert.Equal(t, []string{"b", "c", "a", "d"}, p.Next())

	p = NewPermuter([]string{"a", "b", "c"})
	for p.HasNext() {
		if next := p.Next(); next[0] == "c" {
			p.Skip(0)
		}
	}
	assert.False(t, p.HasNext())
}

func TestGovernorLimit(t *testing.T) {
	tests := []struct {
		maxDeepIterations, maxWorkFactor, nonUnique, expected int
	}{
		{0, 0, 6, 6},
		{0, 2, 6, 36},
		{5, 3, 6, 5},
		{Unbounded, 1, 6, Unbounded},
		{0, Unbounded, 6, Unbounded},
		{0, 64, 10, math.MaxInt},
	}
	for _, test := range tests {
		g := NewGovernor(context.Background(), test.maxDeepIterations, test.maxWorkFactor)
		g.Start(test.nonUnique)
		assert.Equal(t, test.expected, g.Limit(), "%+v", test)
	}
}

func TestGovernorEnter(t *testing.T) {
	g := NewGovernor(context.Background(), 2, 0)
	g.Start(4)
	require.NoError(t, g.Enter("b0"))
	require.NoError(t, g.Enter("b0"))
	require.NoError(t, g.Enter("b1"))

	err := g.Enter("b0")
	var abort *AbortError
	require.True(t, errors.As(err, &abort))
	assert.Equal(t, "b0", abort.ID)
	assert.Equal(t, 3, abort.Iterations)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(err, ErrIterationBudgetExceeded))
	assert.False(t, errors.Is(err, ErrDeadlineExceeded))
	assert.Equal(t, 3, g.Iterations())
}

func TestGovernorContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewGovernor(ctx, 0, 0).Poll("b0")
	assert.True(t, errors.Is(err, ErrAborted))
	assert.True(t, errors.Is(err, ErrCancelled))

	ctx, cancel = context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err = NewGovernor(ctx, 0, 0).Enter("b0")
	assert.True(t, errors.Is(err, ErrDeadlineExceeded))
	assert.False(t, errors.Is(err, ErrCancelled))
}
