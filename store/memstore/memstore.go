// Package memstore implements the lodis.Storage contract entirely
// in-process, on top of a scopedMap. It holds no durability guarantee
// across restarts; it exists for engine-level tests and for
// deployments that don't need a durable backend.
package memstore

import (
	"sort"
	"strings"
	"sync"

	"github.com/lodis-io/lodis"
)

// Store is an in-memory lodis.Storage. The zero value is not usable;
// construct one with New.
type Store struct {
	mu   sync.RWMutex
	root *scopedMap
}

// New returns an empty Store.
func New() *Store {
	return &Store{root: &scopedMap{}}
}

var _ lodis.Storage = (*Store)(nil)

func (s *Store) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.root.get(string(key))
	if v == nil {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.root.put(string(key), cp)
	return nil
}

func (s *Store) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root.del(string(key))
	return nil
}

// ScanPrefix takes a read lock, snapshots the matching keys and values
// in ascending order, then calls fn after releasing the lock -- so a
// slow or reentrant fn can't deadlock against a concurrent writer.
func (s *Store) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	p := string(prefix)

	s.mu.RLock()
	keys := make([]string, 0, len(s.root.m))
	for k := range s.root.m {
		if strings.HasPrefix(k, p) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	vals := make([][]byte, len(keys))
	for i, k := range keys {
		vals[i] = s.root.m[k]
	}
	s.mu.RUnlock()

	for i, k := range keys {
		if err := fn([]byte(k), vals[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch stages every op in a fresh scope and applies the scope to
// the root map in one step while holding the write lock, so a
// concurrent Get/ScanPrefix never observes a partially-applied batch.
func (s *Store) WriteBatch(ops []lodis.BatchOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope := s.root.newScope()
	for _, op := range ops {
		switch op.Kind {
		case lodis.OpDelete:
			scope.del(string(op.Key))
		default:
			cp := make([]byte, len(op.Value))
			copy(cp, op.Value)
			scope.put(string(op.Key), cp)
		}
	}
	scope.applyToOuter()
	return nil
}

func (s *Store) Close() error { return nil }
