package kv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/paulmach/orb"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

const (
	pointSize = 16

	defaultWriteBatchSize = 64 * 1024
)

// LevelPoints stores points keyed by integer ids in a LevelDB database. Writes
// are collected in a batch which is written when it grows past its limit, on
// Flush and before reads.
type LevelPoints[K ~int64] struct {
	db *leveldb.DB

	mu    sync.Mutex
	batch *leveldb.Batch
	limit int
}

func OpenLevelPoints[K ~int64](path string) (*LevelPoints[K], error) {
	db, err := leveldb.OpenFile(path, &opt.Options{
		NoSync:             true,
		WriteBuffer:        32 * opt.MiB,
		BlockCacheCapacity: 64 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return NewLevelPoints[K](db), nil
}

func NewLevelPoints[K ~int64](db *leveldb.DB) *LevelPoints[K] {
	return &LevelPoints[K]{
		db:    db,
		batch: new(leveldb.Batch),
		limit: defaultWriteBatchSize,
	}
}

var _ KVS[int64, orb.Point] = (*LevelPoints[int64])(nil)

// Set implements KVS
func (kvs *LevelPoints[K]) Set(key K, value orb.Point) {
	kvs.mu.Lock()
	defer kvs.mu.Unlock()

	kvs.batch.Put(keyBytes(key), pointBytes(value))
	if kvs.batch.Len() >= kvs.limit {
		// a failed write leaves the batch in place for the next Flush
		if err := kvs.db.Write(kvs.batch, nil); err == nil {
			kvs.batch.Reset()
		}
	}
}

// Get implements KVS
func (kvs *LevelPoints[K]) Get(key K) (orb.Point, bool) {
	if err := kvs.Flush(); err != nil {
		return orb.Point{}, false
	}

	body, err := kvs.db.Get(keyBytes(key), nil)
	if err != nil || len(body) != pointSize {
		return orb.Point{}, false
	}
	return pointFromBytes(body), true
}

func (kvs *LevelPoints[K]) Range(f func(key K, value orb.Point) bool) {
	if err := kvs.Flush(); err != nil {
		return
	}

	iter := kvs.db.NewIterator(nil, nil)
	defer iter.Release()
	for iter.Next() {
		if len(iter.Key()) != 8 || len(iter.Value()) != pointSize {
			continue
		}
		key := K(int64(binary.BigEndian.Uint64(iter.Key())))
		if !f(key, pointFromBytes(iter.Value())) {
			return
		}
	}
}

func (kvs *LevelPoints[K]) Flush() error {
	kvs.mu.Lock()
	defer kvs.mu.Unlock()

	if kvs.batch.Len() == 0 {
		return nil
	}
	if err := kvs.db.Write(kvs.batch, nil); err != nil {
		return fmt.Errorf("failed to write batch: %w", err)
	}
	kvs.batch.Reset()
	return nil
}

// Close implements KVS
func (kvs *LevelPoints[K]) Close() error {
	return errors.Join(kvs.Flush(), kvs.db.Close())
}

// keys are big endian so iteration follows id order for non-negative ids
func keyBytes[K ~int64](key K) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(key))
	return b
}

func pointBytes(p orb.Point) []byte {
	b := make([]byte, pointSize)
	binary.LittleEndian.PutUint64(b[:8], math.Float64bits(p[0]))
	binary.LittleEndian.PutUint64(b[8:], math.Float64bits(p[1]))
	return b
}

func pointFromBytes(b []byte) orb.Point {
	return orb.Point{
		math.Float64frombits(binary.LittleEndian.Uint64(b[:8])),
		math.Float64frombits(binary.LittleEndian.Uint64(b[8:])),
	}
}
