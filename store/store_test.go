package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	badger "github.com/dgraph-io/badger/v2"
	cid "github.com/ipfs/go-cid"
	ipfs "github.com/ipfs/go-ipfs-api"
	"github.com/pkg/errors"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underlay/canonize/nquads"
	"github.com/underlay/canonize/types"
)

const first = `_:b0 <http://schema.org/name> "Alice" .
_:b0 <http://schema.org/knows> _:b1 .
_:b1 <http://schema.org/name> "Bob" .
`

const relabeled = `_:x <http://schema.org/name> "Bob" .
_:y <http://schema.org/knows> _:x .
_:y <http://schema.org/name> "Alice" .
`

const second = `<http://example.com/a> <http://schema.org/name> "A" .
`

func openBadger(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func openRedis(t *testing.T) redis.UniversalClient {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func backends(t *testing.T) map[string]QuadStore {
	return map[string]QuadStore{
		"memory": NewMemoryStore(),
		"badger": NewBadgerStore(openBadger(t)),
		"redis":  NewRedisStore(openRedis(t), ""),
	}
}

func collect(it Iterator) []cid.Cid {
	defer it.Close()
	var ids []cid.Cid
	for id, valid := it.Next(); valid; id, valid = it.Next() {
		ids = append(ids, id)
	}
	return ids
}

func TestIdentify(t *testing.T) {
	id := Identify("")
	assert.Equal(t, uint64(cid.Raw), id.Type())
	assert.Equal(t, uint64(1), id.Version())
	assert.Equal(t, "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", id.String())
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	for name, quadStore := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := NewStore(&Config{QuadStore: quadStore})

			id, result, err := s.PutNQuads(ctx, first)
			require.NoError(t, err)
			assert.Equal(t, Identify(result.NQuads), id)

			again, _, err := s.PutNQuads(ctx, relabeled)
			require.NoError(t, err)
			assert.Equal(t, id, again)

			other, _, err := s.PutNQuads(ctx, second)
			require.NoError(t, err)
			assert.NotEqual(t, id, other)

			canonical, err := s.GetNQuads(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, result.NQuads, canonical)

			dataset, err := s.Get(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, result.NQuads, nquads.Serialize(dataset))

			expected := []cid.Cid{id, other}
			if other.String() < id.String() {
				expected = []cid.Cid{other, id}
			}
			assert.Equal(t, expected, collect(s.List(ctx, cid.Undef)))
			assert.Equal(t, expected[1:], collect(s.List(ctx, expected[1])))

			require.NoError(t, s.Delete(ctx, id))
			_, err = s.Get(ctx, id)
			assert.True(t, errors.Is(err, ErrNotFound))
			assert.True(t, errors.Is(s.Delete(ctx, id), ErrNotFound))
			assert.Equal(t, []cid.Cid{other}, collect(s.List(ctx, cid.Undef)))
		})
	}
}

func TestStorePublishFailure(t *testing.T) {
	ctx := context.Background()
	var published []string
	down := true
	documents := func(reader io.Reader) (cid.Cid, error) {
		if down {
			return cid.Undef, errors.New("ipfs down")
		}
		document := readAll(t, reader)
		published = append(published, document)
		return Identify(document), nil
	}

	s := NewStore(&Config{Documents: documents})
	_, _, err := s.PutNQuads(ctx, first)
	require.Error(t, err)
	assert.Empty(t, collect(s.List(ctx, cid.Undef)))

	down = false
	id, result, err := s.PutNQuads(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []string{result.NQuads}, published)
	assert.Equal(t, []cid.Cid{id}, collect(s.List(ctx, cid.Undef)))

	_, _, err = s.PutNQuads(ctx, relabeled)
	require.NoError(t, err)
	assert.Len(t, published, 1)
}

func TestRedisListError(t *testing.T) {
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	s := NewStore(&Config{QuadStore: NewRedisStore(client, "")})

	server.Close()
	it := s.List(context.Background(), cid.Undef)
	defer it.Close()
	_, valid := it.Next()
	assert.False(t, valid)
	assert.Error(t, it.Err())
}

func TestStoreMismatch(t *testing.T) {
	ctx := context.Background()
	quadStore := NewMemoryStore()
	id := Identify(second)
	require.NoError(t, quadStore.Set(ctx, id, []byte(first)))

	_, err := NewStore(&Config{QuadStore: quadStore}).Get(ctx, id)
	assert.True(t, errors.Is(err, ErrMismatch))
}

func TestStoreAbort(t *testing.T) {
	s := NewStore(&Config{Options: canonizeOptions(1)})
	_, _, err := s.PutNQuads(context.Background(), `_:s0 <ex:p> _:o1 .
_:s0 <ex:p> _:o2 .
_:s1 <ex:p> _:o0 .
_:s1 <ex:p> _:o2 .
_:s2 <ex:p> _:o0 .
_:s2 <ex:p> _:o1 .
`)
	assert.Error(t, err)
	assert.Empty(t, collect(s.List(context.Background(), cid.Undef)))
}

func TestSkolemize(t *testing.T) {
	s := NewStore(nil)
	id, result, err := s.PutNQuads(context.Background(), first)
	require.NoError(t, err)

	for _, uri := range []types.URI{types.UnderlayURI, types.DwebURI, types.NewPrefixURI("https://example.com/datasets/")} {
		skolemized := Skolemize(id, result.Quads, uri)
		assert.Empty(t, skolemized.BlankNodes())
		assert.Contains(t, nquads.Serialize(skolemized), uri.String(id, "_:c14n0"))
		assert.Equal(t, result.Quads, Unskolemize(id, skolemized, uri))

		// IRIs naming another dataset's nodes stay IRIs
		assert.Empty(t, Unskolemize(Identify(second), skolemized, uri).BlankNodes())
	}
}

func TestShellDocumentStore(t *testing.T) {
	var received string
	var query string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/add", r.URL.Path)
		query = r.URL.RawQuery
		reader, err := r.MultipartReader()
		if !assert.NoError(t, err) {
			return
		}
		part, err := reader.NextPart()
		if !assert.NoError(t, err) {
			return
		}
		received = readAll(t, part)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"Name":"%s","Hash":"%s","Size":"%d"}`, Identify(received), Identify(received), len(received))
	}))
	defer server.Close()

	documents := NewShellDocumentStore(ipfs.NewShell(strings.TrimPrefix(server.URL, "http://")))
	s := NewStore(&Config{Documents: documents})
	id, result, err := s.PutNQuads(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, result.NQuads, received)
	assert.Equal(t, Identify(received), id)
	assert.Contains(t, query, "raw-leaves=true")
	assert.Contains(t, query, "cid-version=1")
}
