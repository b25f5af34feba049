// Package pebblestore implements the lodis.Storage contract on top of
// github.com/cockroachdb/pebble, an embeddable, byte-ordered,
// RocksDB-compatible LSM key-value store -- the durable storage engine
// adapter behind a Lodis server's default backend. It exposes a flat
// get/put/delete/scan/batch contract rather than a table-per-entity
// schema, since Lodis's three structures all share one byte-ordered
// keyspace partitioned by kind tag.
package pebblestore

import (
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/lodis-io/lodis"
)

// Store is a durable, single-process lodis.Storage backed by a Pebble
// database directory.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a Pebble database at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "pebblestore: open %q", dir)
	}
	return &Store{db: db}, nil
}

var _ lodis.Storage = (*Store)(nil)

func (s *Store) Get(key []byte) ([]byte, error) {
	v, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	closer.Close()
	return out, nil
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Set(key, value, pebble.Sync)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}

// ScanPrefix iterates every key in [prefix, prefixEnd) in ascending
// order, where prefixEnd is prefix with its last byte incremented (and
// trailing 0xff bytes stripped first), the standard Pebble idiom for
// bounding a prefix scan with an upper bound rather than checking
// bytes.HasPrefix on every key.
func (s *Store) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) WriteBatch(ops []lodis.BatchOp) error {
	batch := s.db.NewBatch()
	defer batch.Close()
	for _, op := range ops {
		var err error
		switch op.Kind {
		case lodis.OpDelete:
			err = batch.Delete(op.Key, nil)
		default:
			err = batch.Set(op.Key, op.Value, nil)
		}
		if err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// prefixEnd returns the smallest key that is strictly greater than every
// key beginning with prefix, or nil if prefix is all 0xff bytes (meaning
// there is no finite upper bound -- the scan runs to the end of the
// keyspace).
func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}
