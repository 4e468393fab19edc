package store

import (
	"context"
	"sort"
	"sync"

	badger "github.com/dgraph-io/badger/v2"
	cid "github.com/ipfs/go-cid"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
	redis "github.com/redis/go-redis/v9"

	"github.com/underlay/canonize/types"
)

// ErrNotFound is returned for unknown dataset ids
var ErrNotFound = errors.New("dataset not found")

// QuadStore persists canonical N-Quads documents by dataset id.
// List iterates ids in ascending string order starting at from.
type QuadStore interface {
	Set(ctx context.Context, id cid.Cid, canonical []byte) error
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
	Delete(ctx context.Context, id cid.Cid) error
	List(ctx context.Context, from cid.Cid) Iterator
}

// Iterator walks dataset ids. Close must be called when done. Err
// reports a backend failure that ended the iteration early.
type Iterator interface {
	Next() (id cid.Cid, valid bool)
	Err() error
	Close()
}

func start(from cid.Cid) string {
	if from.Defined() {
		return from.String()
	}
	return ""
}

type memoryStore struct {
	lock     sync.RWMutex
	datasets map[string][]byte
	values   []string
}

// NewMemoryStore returns a QuadStore backed by a map
func NewMemoryStore() QuadStore {
	return &memoryStore{datasets: map[string][]byte{}, values: []string{}}
}

func (m *memoryStore) Set(_ context.Context, id cid.Cid, canonical []byte) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	value := id.String()
	if _, has := m.datasets[value]; !has {
		i := sort.SearchStrings(m.values, value)
		m.values = append(m.values, "")
		copy(m.values[i+1:], m.values[i:])
		m.values[i] = value
	}
	m.datasets[value] = append([]byte(nil), canonical...)
	return nil
}

func (m *memoryStore) Get(_ context.Context, id cid.Cid) ([]byte, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	if dataset, has := m.datasets[id.String()]; has {
		return dataset, nil
	}
	return nil, ErrNotFound
}

func (m *memoryStore) Has(_ context.Context, id cid.Cid) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, has := m.datasets[id.String()]
	return has, nil
}

func (m *memoryStore) Delete(_ context.Context, id cid.Cid) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	value := id.String()
	if _, has := m.datasets[value]; !has {
		return ErrNotFound
	}

	delete(m.datasets, value)
	i := sort.SearchStrings(m.values, value)
	m.values = append(m.values[:i], m.values[i+1:]...)
	return nil
}

func (m *memoryStore) List(_ context.Context, from cid.Cid) Iterator {
	m.lock.RLock()
	defer m.lock.RUnlock()
	i := sort.SearchStrings(m.values, start(from))
	return &sliceIterator{values: append([]string(nil), m.values[i:]...)}
}

// sliceIterator iterates over a snapshot of ids
type sliceIterator struct {
	values []string
	i      int
	err    error
}

func (it *sliceIterator) Close()     {}
func (it *sliceIterator) Err() error { return it.err }
func (it *sliceIterator) Next() (id cid.Cid, valid bool) {
	for it.i < len(it.values) {
		value := it.values[it.i]
		it.i++
		if c, err := cid.Decode(value); err == nil {
			return c, true
		}
	}
	return
}

type badgerStore struct{ db *badger.DB }

// NewBadgerStore returns a QuadStore that keeps datasets under
// types.DatasetPrefix keys in db
func NewBadgerStore(db *badger.DB) QuadStore { return &badgerStore{db: db} }

func datasetKey(value string) []byte {
	key := make([]byte, 1+len(value))
	key[0] = types.DatasetPrefix
	copy(key[1:], value)
	return key
}

func (b *badgerStore) Set(_ context.Context, id cid.Cid, canonical []byte) error {
	key := datasetKey(id.String())
	return b.db.Update(func(txn *badger.Txn) error { return txn.Set(key, canonical) })
}

func (b *badgerStore) Get(_ context.Context, id cid.Cid) (canonical []byte, err error) {
	err = b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(datasetKey(id.String()))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		canonical, err = item.ValueCopy(nil)
		return err
	})
	return
}

func (b *badgerStore) Has(ctx context.Context, id cid.Cid) (bool, error) {
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(datasetKey(id.String()))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	return err == nil, err
}

func (b *badgerStore) Delete(ctx context.Context, id cid.Cid) error {
	key := datasetKey(id.String())
	return b.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == badger.ErrKeyNotFound {
			return ErrNotFound
		} else if err != nil {
			return err
		}
		return txn.Delete(key)
	})
}

type badgerIterator struct {
	txn  *badger.Txn
	iter *badger.Iterator
}

func (bi *badgerIterator) Close()     { bi.iter.Close(); bi.txn.Discard() }
func (bi *badgerIterator) Err() error { return nil }
func (bi *badgerIterator) Next() (id cid.Cid, valid bool) {
	for bi.iter.Valid() {
		key := bi.iter.Item().KeyCopy(nil)
		bi.iter.Next()
		if c, err := cid.Decode(string(key[1:])); err == nil {
			return c, true
		}
	}
	return
}

func (b *badgerStore) List(_ context.Context, from cid.Cid) Iterator {
	txn := b.db.NewTransaction(false)
	iter := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: false,
		Prefix:         []byte{types.DatasetPrefix},
	})
	iter.Seek(datasetKey(start(from)))
	return &badgerIterator{txn, iter}
}

// DefaultRedisPrefix namespaces the keys written by a redis QuadStore
const DefaultRedisPrefix = "canonize"

type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a QuadStore that keeps each dataset under
// "<prefix>:dataset:<id>" and indexes ids in the sorted set
// "<prefix>:datasets".
func NewRedisStore(client redis.UniversalClient, prefix string) QuadStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &redisStore{client: client, prefix: prefix}
}

func (r *redisStore) key(id cid.Cid) string { return r.prefix + ":dataset:" + id.String() }
func (r *redisStore) index() string         { return r.prefix + ":datasets" }

func (r *redisStore) Set(ctx context.Context, id cid.Cid, canonical []byte) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(id), canonical, 0)
		pipe.ZAdd(ctx, r.index(), redis.Z{Score: 0, Member: id.String()})
		return nil
	})
	return err
}

func (r *redisStore) Get(ctx context.Context, id cid.Cid) ([]byte, error) {
	canonical, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return canonical, err
}

func (r *redisStore) Has(ctx context.Context, id cid.Cid) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(id)).Result()
	return n > 0, err
}

func (r *redisStore) Delete(ctx context.Context, id cid.Cid) error {
	var deleted *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		deleted = pipe.Del(ctx, r.key(id))
		pipe.ZRem(ctx, r.index(), id.String())
		return nil
	})
	if err != nil {
		return err
	} else if deleted.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisStore) List(ctx context.Context, from cid.Cid) Iterator {
	lower := "-"
	if from.Defined() {
		lower = "[" + from.String()
	}
	values, err := r.client.ZRangeByLex(ctx, r.index(), &redis.ZRangeBy{Min: lower, Max: "+"}).Result()
	if err != nil {
		klog.Errorf("store: list %s: %v", r.index(), err)
		return &sliceIterator{err: err}
	}
	return &sliceIterator{values: values}
}
