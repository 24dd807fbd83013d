// Package storage is the on-disk key-value store behind the wallet profile.
package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Op is one write in an atomic batch.
type Op struct {
	Key    []byte // Key is the key to write
	Value  []byte // Value is the value to store, ignored for deletes
	Delete bool   // Delete removes Key instead of setting it
}

// Put returns an op storing value under key.
func Put(key, value []byte) Op {
	return Op{Key: key, Value: value}
}

// Remove returns an op deleting key.
func Remove(key []byte) Op {
	return Op{Key: key, Delete: true}
}

// Options configures a Storage.
type Options struct {
	InMemory bool // InMemory keeps everything in RAM, for tests and dry runs
}

// Storage is a Pebble database where every write is synced before returning.
// Wallet data is small and losing a factor source is not recoverable.
type Storage struct {
	db *pebble.DB // db is the underlying Pebble database
}

// Open opens or creates a store at path.
func Open(path string, opts Options) (*Storage, error) {
	pebbleOpts := &pebble.Options{
		Cache:        pebble.NewCache(8 << 20), // 8 MB cache
		MemTableSize: 4 << 20,                  // 4 MB memtable
	}
	defer pebbleOpts.Cache.Unref()

	if opts.InMemory {
		pebbleOpts.FS = vfs.NewMem()
	}

	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s:\n%w", path, err)
	}

	return &Storage{db: db}, nil
}

// Get retrieves the value for the given key.
// Returns nil if the key does not exist.
func (s *Storage) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is only valid until closer.Close()
	result := make([]byte, len(value))
	copy(result, value)

	return result, nil
}

// Has reports whether the key exists.
func (s *Storage) Has(key []byte) (bool, error) {
	value, err := s.Get(key)
	return value != nil, err
}

// Set stores a key-value pair durably.
func (s *Storage) Set(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

// Delete removes a key durably.
func (s *Storage) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// Apply commits all ops atomically. Either all are written or none.
func (s *Storage) Apply(ops []Op) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, op := range ops {
		var err error
		if op.Delete {
			err = batch.Delete(op.Key, nil)
		} else {
			err = batch.Set(op.Key, op.Value, nil)
		}
		if err != nil {
			return err
		}
	}

	return batch.Commit(pebble.Sync)
}

// IteratePrefix calls fn for each key-value pair with the given prefix, in key order.
// If fn returns an error, iteration stops and the error is returned.
// key and value are only valid during the call.
func (s *Storage) IteratePrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixUpperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		value, err := iter.ValueAndErr()
		if err != nil {
			return err
		}

		if err := fn(iter.Key(), value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// DeletePrefix removes every key with the given prefix.
func (s *Storage) DeletePrefix(prefix []byte) error {
	upper := prefixUpperBound(prefix)
	if upper == nil {
		return fmt.Errorf("refusing to delete unbounded prefix %x", prefix)
	}
	return s.db.DeleteRange(prefix, upper, pebble.Sync)
}

// prefixUpperBound computes the exclusive upper bound for a prefix scan.
// Increments the last byte; returns nil if prefix is all 0xFF (full range).
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)

	for i := len(upper) - 1; i >= 0; i-- {
		upper[i]++
		if upper[i] != 0 {
			return upper[:i+1]
		}
	}

	return nil
}

// Close closes the database.
func (s *Storage) Close() error {
	return s.db.Close()
}
