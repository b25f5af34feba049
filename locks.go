package lodis

import (
	"sync"

	"github.com/rsms/go-log"
)

// lockKey identifies one name within one kind's namespace -- the unit of
// serialization the lock registry grants: two different names, even of
// the same kind, proceed in parallel, but every operation against the
// same (kind, name) is mutually exclusive.
type lockKey struct {
	kind byte
	name string
}

// entry is one keyed mutex plus a reference count. refs tracks how many
// goroutines currently hold or are waiting for this entry's mutex; the
// registry only deletes an entry from its map when refs drops to zero,
// which is what makes reclamation race-free -- a goroutine that already
// looked the entry up by key always gets to use the mutex it found, even
// if another goroutine is concurrently trying to reclaim a different,
// now-idle entry.
type entry struct {
	mu   sync.Mutex
	refs int
}

// LockRegistry hands out per-(kind,name) mutexes and reclaims them once
// idle, so the process's memory doesn't grow without bound as clients
// touch an ever-larger set of names over the server's lifetime.
type LockRegistry struct {
	Logger *log.Logger

	mu      sync.Mutex
	entries map[lockKey]*entry
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{entries: make(map[lockKey]*entry)}
}

// Acquire blocks until the (kind, name) lock is held and returns a
// release function the caller must call exactly once, as soon as the
// engine operation (not the response write) is finished.
func (r *LockRegistry) Acquire(kind byte, name []byte) (release func()) {
	key := lockKey{kind: kind, name: string(name)}

	r.mu.Lock()
	e, ok := r.entries[key]
	if !ok {
		e = &entry{}
		r.entries[key] = e
	}
	e.refs++
	r.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		r.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(r.entries, key)
			if r.Logger != nil {
				r.Logger.Debug("lock registry: reclaimed entry for kind=%d", kind)
			}
		}
		r.mu.Unlock()
	}
}

// Len reports the number of distinct (kind, name) locks currently
// tracked (held or waited-on). Exposed for tests.
func (r *LockRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
