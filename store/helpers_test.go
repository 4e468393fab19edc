package store

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	canonize "github.com/underlay/canonize"
	"github.com/underlay/canonize/types"
)

func canonizeOptions(maxDeepIterations int) canonize.Options {
	return canonize.Options{Algorithm: types.RDFC10, MaxDeepIterations: maxDeepIterations}
}

func readAll(t *testing.T, r io.Reader) string {
	data, err := io.ReadAll(r)
	assert.NoError(t, err)
	return string(data)
}
