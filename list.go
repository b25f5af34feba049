package lodis

import (
	"math/rand"

	"github.com/pkg/errors"
)

// ListEngine is a double-ended, cursor-indexed array of byte strings.
// The occupied range is [head, tail) in the slot keyspace; pushing
// extends one end, popping shrinks it, and removal from the middle
// (LDEL, RANDPOP) uses the swap-with-tail technique -- move the last
// element into the hole, then shrink tail -- so there is never a gap
// inside [head, tail) to skip over on a later scan.
//
// Every mutating method reads the current meta, computes the full set
// of storage edits, and applies them in one WriteBatch call.
type ListEngine struct {
	Storage Storage
}

func (e *ListEngine) readMeta(name []byte) (listMeta, error) {
	b, err := e.Storage.Get(listMetaKey(name))
	if err != nil {
		return listMeta{}, err
	}
	if b == nil {
		return listMeta{}, nil
	}
	m, ok := decodeListMeta(b)
	if !ok {
		return listMeta{}, errors.Wrap(ErrBadArgument, "corrupt list meta")
	}
	return m, nil
}

// Push appends elems one at a time to the left (left=true) or right
// (left=false) end of name, creating the list if it doesn't exist yet.
// Pushing e1, e2, e3 to the left leaves the list head-to-tail as
// e3, e2, e1, ... -- each push moves the new element to the very edge,
// one at a time, rather than inserting the whole batch as a block.
func (e *ListEngine) Push(name []byte, left bool, elems [][]byte) error {
	if len(elems) == 0 {
		return nil
	}
	m, err := e.readMeta(name)
	if err != nil {
		return err
	}
	ops := make([]BatchOp, 0, len(elems)+1)
	if left {
		for _, v := range elems {
			m.head--
			ops = append(ops, PutOp(listSlotKey(name, m.head), v))
		}
	} else {
		for _, v := range elems {
			ops = append(ops, PutOp(listSlotKey(name, m.tail), v))
			m.tail++
		}
	}
	ops = append(ops, PutOp(listMetaKey(name), encodeListMeta(m)))
	return e.Storage.WriteBatch(ops)
}

// Pop removes and returns the element at the left or right end of name.
// An empty or nonexistent list returns (nil, nil): popping nothing is
// success with an empty result, not an error.
func (e *ListEngine) Pop(name []byte, left bool) ([]byte, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return nil, err
	}
	if m.length() == 0 {
		return nil, nil
	}
	var idx int64
	if left {
		idx = m.head
		m.head++
	} else {
		m.tail--
		idx = m.tail
	}
	key := listSlotKey(name, idx)
	val, err := e.Storage.Get(key)
	if err != nil {
		return nil, err
	}
	ops := []BatchOp{DeleteOp(key)}
	ops = append(ops, metaOrDeleteOps(listMetaKey(name), m.length() == 0, encodeListMeta(m))...)
	if err := e.Storage.WriteBatch(ops); err != nil {
		return nil, err
	}
	return val, nil
}

// RandPop removes and returns a uniformly random element from name,
// using swap-with-tail to keep [head, tail) gap-free: the element at the
// chosen slot is read, the current last element is moved into that slot
// (unless they're the same slot), and tail shrinks by one.
func (e *ListEngine) RandPop(name []byte) ([]byte, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return nil, err
	}
	n := m.length()
	if n == 0 {
		return nil, nil
	}
	idx := m.head + rand.Int63n(n)
	return e.popAt(name, m, idx)
}

// DelAt removes the element at absolute offset k from the left (0 ==
// head), also via swap-with-tail, and reports whether anything was
// removed -- false if k is out of range or the list is empty/missing.
func (e *ListEngine) DelAt(name []byte, k int64) (bool, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return false, err
	}
	n := m.length()
	if k < 0 || k >= n {
		return false, nil
	}
	if _, err := e.popAt(name, m, m.head+k); err != nil {
		return false, err
	}
	return true, nil
}

func (e *ListEngine) popAt(name []byte, m listMeta, idx int64) ([]byte, error) {
	key := listSlotKey(name, idx)
	val, err := e.Storage.Get(key)
	if err != nil {
		return nil, err
	}
	lastIdx := m.tail - 1
	var ops []BatchOp
	if idx != lastIdx {
		lastKey := listSlotKey(name, lastIdx)
		lastVal, err := e.Storage.Get(lastKey)
		if err != nil {
			return nil, err
		}
		ops = append(ops, PutOp(key, lastVal), DeleteOp(lastKey))
	} else {
		ops = append(ops, DeleteOp(key))
	}
	m.tail = lastIdx
	ops = append(ops, metaOrDeleteOps(listMetaKey(name), m.length() == 0, encodeListMeta(m))...)
	if err := e.Storage.WriteBatch(ops); err != nil {
		return nil, err
	}
	return val, nil
}

// Range returns up to end-start elements starting at offset start
// (clamped to [0, length]), exclusive of end (also clamped), counting
// from the left (left=true) or scanning back-to-front from the right
// (left=false, i.e. RRANGE: position 0 is the last element, 1 the one
// before it, and so on).
func (e *ListEngine) Range(name []byte, start, end int64, left bool) ([][]byte, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return nil, err
	}
	n := m.length()
	start = clamp(start, 0, n)
	end = clamp(end, 0, n)
	if start >= end {
		return nil, nil
	}
	out := make([][]byte, 0, end-start)
	for p := start; p < end; p++ {
		var idx int64
		if left {
			idx = m.head + p
		} else {
			idx = m.tail - 1 - p
		}
		v, err := e.Storage.Get(listSlotKey(name, idx))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Index returns the element at absolute left-counted offset k, or
// (nil, nil) if k is out of range -- consistent with Pop's "empty is
// success" treatment of range misses.
func (e *ListEngine) Index(name []byte, k int64) ([]byte, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return nil, err
	}
	if k < 0 || k >= m.length() {
		return nil, nil
	}
	return e.Storage.Get(listSlotKey(name, m.head+k))
}

// Rand returns a uniformly random element without removing it.
func (e *ListEngine) Rand(name []byte) ([]byte, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return nil, err
	}
	n := m.length()
	if n == 0 {
		return nil, nil
	}
	idx := m.head + rand.Int63n(n)
	return e.Storage.Get(listSlotKey(name, idx))
}

// Len returns the number of elements currently in name.
func (e *ListEngine) Len(name []byte) (int64, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return 0, err
	}
	return m.length(), nil
}

// Remove deletes name entirely -- its meta record and every slot -- and
// reports whether it existed.
func (e *ListEngine) Remove(name []byte) (bool, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return false, err
	}
	if m.length() == 0 {
		existed, err := e.Storage.Get(listMetaKey(name))
		if err != nil {
			return false, err
		}
		if existed == nil {
			return false, nil
		}
		return true, e.Storage.Delete(listMetaKey(name))
	}
	ops := make([]BatchOp, 0, m.length()+1)
	for i := m.head; i < m.tail; i++ {
		ops = append(ops, DeleteOp(listSlotKey(name, i)))
	}
	ops = append(ops, DeleteOp(listMetaKey(name)))
	if err := e.Storage.WriteBatch(ops); err != nil {
		return false, err
	}
	return true, nil
}

// metaOrDeleteOps returns a single BatchOp: a delete of key if empty is
// true, otherwise a put of encoded. This is the "erase meta when empty"
// invariant -- an empty structure leaves no trace in Storage, so LLEN/
// HLEN/ALEN on a name nobody ever created and a name that was created
// and fully drained are indistinguishable.
func metaOrDeleteOps(key []byte, empty bool, encoded []byte) []BatchOp {
	if empty {
		return []BatchOp{DeleteOp(key)}
	}
	return []BatchOp{PutOp(key, encoded)}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
