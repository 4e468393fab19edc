package urdna

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"

	"github.com/pkg/errors"
)

// HashAlgorithm names a message digest primitive
type HashAlgorithm string

// Supported message digest primitives
const (
	SHA1   HashAlgorithm = "sha1"
	SHA256 HashAlgorithm = "sha256"
	SHA384 HashAlgorithm = "sha384"
	SHA512 HashAlgorithm = "sha512"
)

var primitives = map[HashAlgorithm]func() hash.Hash{
	SHA1:   sha1.New,
	SHA256: sha256.New,
	SHA384: sha512.New384,
	SHA512: sha512.New,
}

// ParseHashAlgorithm resolves a digest name, accepting the hyphenated
// spellings ("SHA-256") used by the W3C and WebCrypto.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch name {
	case "sha1", "SHA1", "SHA-1", "sha-1":
		return SHA1, nil
	case "sha256", "SHA256", "SHA-256", "sha-256":
		return SHA256, nil
	case "sha384", "SHA384", "SHA-384", "sha-384":
		return SHA384, nil
	case "sha512", "SHA512", "SHA-512", "sha-512":
		return SHA512, nil
	}
	return "", errors.Wrapf(ErrUnsupportedDigest, "%q", name)
}

// A DigestFactory creates empty digests for one canonicalization run
type DigestFactory func() *Digest

// NewDigestFactory returns a factory for the given primitive, keyed as
// an HMAC when key is non-empty
func NewDigestFactory(algorithm HashAlgorithm, key []byte) (DigestFactory, error) {
	primitive, has := primitives[algorithm]
	if !has {
		return nil, errors.Wrapf(ErrUnsupportedDigest, "%q", string(algorithm))
	}

	if len(key) > 0 {
		key = append([]byte(nil), key...)
		return func() *Digest { return &Digest{h: hmac.New(primitive, key)} }, nil
	}
	return func() *Digest { return &Digest{h: primitive()} }, nil
}

// Digest accumulates UTF-8 text and produces a lowercase hex digest.
// Sum finalizes the digest; calling Update or Sum afterwards panics.
type Digest struct {
	h    hash.Hash
	done bool
}

// Update appends text to the digest input
func (d *Digest) Update(text string) {
	if d.done {
		panic("urdna: Update called on a finalized Digest")
	}
	io.WriteString(d.h, text)
}

// Sum returns the lowercase hex digest of everything written
func (d *Digest) Sum() string {
	if d.done {
		panic("urdna: Sum called twice on the same Digest")
	}
	d.done = true
	return hex.EncodeToString(d.h.Sum(nil))
}

// NewDigest returns an empty digest for the given primitive
func NewDigest(algorithm HashAlgorithm, key []byte) (*Digest, error) {
	factory, err := NewDigestFactory(algorithm, key)
	if err != nil {
		return nil, err
	}
	return factory(), nil
}
