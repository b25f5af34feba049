package lodis

import (
	"encoding/binary"
	"math/rand"
	"strconv"

	"github.com/pkg/errors"
)

// ArrayMapEngine composes a List's push/pop/range ordering with a
// HashMap's field-uniqueness, via two key spaces kept in sync in every
// WriteBatch call: the ordered slot space (arraySlotKey, exactly like
// ListEngine's slots but each holding a field+value pair) and the
// field->slot index (arrayIndexKey), which is what makes AGET/AEXISTS/
// ADEL O(1) instead of a scan.
//
// Writing the primary slot record and its index entry in the same
// batch keeps the two spaces from ever observably disagreeing -- a
// reader never sees an index entry whose slot doesn't exist yet, or
// vice versa.
type ArrayMapEngine struct {
	Storage Storage
}

func encodeArraySlot(field, value []byte) []byte {
	var buf Buffer
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(field)))
	buf.Write(lb[:])
	buf.Write(field)
	buf.Write(value)
	return buf.Bytes()
}

func decodeArraySlot(b []byte) (field, value []byte, ok bool) {
	if len(b) < 4 {
		return nil, nil, false
	}
	n := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	if uint64(n) > uint64(len(b)) {
		return nil, nil, false
	}
	return b[:n], b[n:], true
}

func encodeSlotIndex(i int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(i))
	return buf[:]
}

func decodeSlotIndex(b []byte) (int64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(b)), true
}

func (e *ArrayMapEngine) readMeta(name []byte) (listMeta, error) {
	b, err := e.Storage.Get(arrayMetaKey(name))
	if err != nil {
		return listMeta{}, err
	}
	if b == nil {
		return listMeta{}, nil
	}
	m, ok := decodeListMeta(b)
	if !ok {
		return listMeta{}, errors.Wrap(ErrBadArgument, "corrupt arraymap meta")
	}
	return m, nil
}

func (e *ArrayMapEngine) slotIndex(name, field []byte) (int64, bool, error) {
	b, err := e.Storage.Get(arrayIndexKey(name, field))
	if err != nil {
		return 0, false, err
	}
	if b == nil {
		return 0, false, nil
	}
	idx, ok := decodeSlotIndex(b)
	if !ok {
		return 0, false, errors.Wrap(ErrBadArgument, "corrupt arraymap index entry")
	}
	return idx, true, nil
}

// Push writes fields[i]=values[i] pairs, in order, to the left (left=
// true) or right end of name. If nx is false and any field already
// exists in name (or is repeated within this call), the entire batch is
// rejected -- no partial write. If nx is true, fields that already
// exist (in name or earlier in this same call) are silently skipped
// instead.
func (e *ArrayMapEngine) Push(name []byte, left, nx bool, fields, values [][]byte) error {
	if len(fields) == 0 {
		return nil
	}
	m, err := e.readMeta(name)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(fields))
	var keep []int
	for i, f := range fields {
		key := string(f)
		if seen[key] {
			if !nx {
				return errors.Wrapf(ErrBadArgument, "duplicate field %q in request", f)
			}
			continue
		}
		_, exists, err := e.slotIndex(name, f)
		if err != nil {
			return err
		}
		if exists {
			if !nx {
				return errors.Wrapf(ErrBadArgument, "field %q already exists", f)
			}
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return nil
	}

	ops := make([]BatchOp, 0, 2*len(keep)+1)
	if left {
		for _, i := range keep {
			m.head--
			ops = append(ops,
				PutOp(arraySlotKey(name, m.head), encodeArraySlot(fields[i], values[i])),
				PutOp(arrayIndexKey(name, fields[i]), encodeSlotIndex(m.head)))
		}
	} else {
		for _, i := range keep {
			ops = append(ops,
				PutOp(arraySlotKey(name, m.tail), encodeArraySlot(fields[i], values[i])),
				PutOp(arrayIndexKey(name, fields[i]), encodeSlotIndex(m.tail)))
			m.tail++
		}
	}
	ops = append(ops, PutOp(arrayMetaKey(name), encodeListMeta(m)))
	return e.Storage.WriteBatch(ops)
}

// Get returns field's value in name, or (nil, nil) if absent.
func (e *ArrayMapEngine) Get(name, field []byte) ([]byte, error) {
	idx, ok, err := e.slotIndex(name, field)
	if err != nil || !ok {
		return nil, err
	}
	b, err := e.Storage.Get(arraySlotKey(name, idx))
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, nil
	}
	_, value, decoded := decodeArraySlot(b)
	if !decoded {
		return nil, errors.Wrap(ErrBadArgument, "corrupt arraymap slot")
	}
	return value, nil
}

// Exists reports whether field is present in name.
func (e *ArrayMapEngine) Exists(name, field []byte) (bool, error) {
	_, ok, err := e.slotIndex(name, field)
	return ok, err
}

// Len returns the number of field/value pairs in name.
func (e *ArrayMapEngine) Len(name []byte) (int64, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return 0, err
	}
	return m.length(), nil
}

func (e *ArrayMapEngine) pairAt(name []byte, idx int64) (Pair, error) {
	b, err := e.Storage.Get(arraySlotKey(name, idx))
	if err != nil {
		return Pair{}, err
	}
	if b == nil {
		return Pair{}, nil
	}
	field, value, ok := decodeArraySlot(b)
	if !ok {
		return Pair{}, errors.Wrap(ErrBadArgument, "corrupt arraymap slot")
	}
	return Pair{Present: true, Field: field, Value: value}, nil
}

// Pop removes and returns the field/value pair at the left or right end
// of name. An empty or nonexistent name returns Pair{Present: false}.
func (e *ArrayMapEngine) Pop(name []byte, left bool) (Pair, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return Pair{}, err
	}
	if m.length() == 0 {
		return Pair{}, nil
	}
	var idx int64
	if left {
		idx = m.head
		m.head++
	} else {
		m.tail--
		idx = m.tail
	}
	p, err := e.pairAt(name, idx)
	if err != nil {
		return Pair{}, err
	}
	ops := []BatchOp{DeleteOp(arraySlotKey(name, idx)), DeleteOp(arrayIndexKey(name, p.Field))}
	ops = append(ops, metaOrDeleteOps(arrayMetaKey(name), m.length() == 0, encodeListMeta(m))...)
	if err := e.Storage.WriteBatch(ops); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// popSlot removes the pair at absolute slot idx using swap-with-tail:
// the current last slot (and its index entry) moves into idx's place,
// keeping [head, tail) gap-free.
func (e *ArrayMapEngine) popSlot(name []byte, m listMeta, idx int64) (Pair, error) {
	p, err := e.pairAt(name, idx)
	if err != nil {
		return Pair{}, err
	}
	lastIdx := m.tail - 1
	var ops []BatchOp
	if idx != lastIdx {
		lastPair, err := e.pairAt(name, lastIdx)
		if err != nil {
			return Pair{}, err
		}
		ops = append(ops,
			PutOp(arraySlotKey(name, idx), encodeArraySlot(lastPair.Field, lastPair.Value)),
			PutOp(arrayIndexKey(name, lastPair.Field), encodeSlotIndex(idx)),
			DeleteOp(arraySlotKey(name, lastIdx)),
		)
	} else {
		ops = append(ops, DeleteOp(arraySlotKey(name, idx)))
	}
	ops = append(ops, DeleteOp(arrayIndexKey(name, p.Field)))
	m.tail = lastIdx
	ops = append(ops, metaOrDeleteOps(arrayMetaKey(name), m.length() == 0, encodeListMeta(m))...)
	if err := e.Storage.WriteBatch(ops); err != nil {
		return Pair{}, err
	}
	return p, nil
}

// RandPop removes and returns a uniformly random field/value pair.
func (e *ArrayMapEngine) RandPop(name []byte) (Pair, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return Pair{}, err
	}
	n := m.length()
	if n == 0 {
		return Pair{}, nil
	}
	idx := m.head + rand.Int63n(n)
	return e.popSlot(name, m, idx)
}

// Del removes field from name (swap-with-tail) and reports whether it
// was present.
func (e *ArrayMapEngine) Del(name, field []byte) (bool, error) {
	idx, ok, err := e.slotIndex(name, field)
	if err != nil || !ok {
		return false, err
	}
	m, err := e.readMeta(name)
	if err != nil {
		return false, err
	}
	if _, err := e.popSlot(name, m, idx); err != nil {
		return false, err
	}
	return true, nil
}

// Range returns up to end-start pairs starting at offset start (clamped
// to [0, length]), exclusive of end, counting from the left (left=true,
// ALRANGE) or back-to-front from the right (left=false, ARRANGE; see
// ListEngine.Range for the indexing convention).
func (e *ArrayMapEngine) Range(name []byte, start, end int64, left bool) ([]Pair, error) {
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
	out := make([]Pair, 0, end-start)
	for p := start; p < end; p++ {
		var idx int64
		if left {
			idx = m.head + p
		} else {
			idx = m.tail - 1 - p
		}
		pair, err := e.pairAt(name, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, pair)
	}
	return out, nil
}

// Keys returns every field in name in array order (left to right),
// AKEYS.
func (e *ArrayMapEngine) Keys(name []byte) ([][]byte, error) {
	pairs, err := e.all(name)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pairs))
	for i, p := range pairs {
		out[i] = p.Field
	}
	return out, nil
}

// Vals returns every value in name in array order, AVALS.
func (e *ArrayMapEngine) Vals(name []byte) ([][]byte, error) {
	pairs, err := e.all(name)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(pairs))
	for i, p := range pairs {
		out[i] = p.Value
	}
	return out, nil
}

// All returns every field/value pair in name in array order, AALL.
func (e *ArrayMapEngine) All(name []byte) ([]Pair, error) { return e.all(name) }

func (e *ArrayMapEngine) all(name []byte) ([]Pair, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return nil, err
	}
	out := make([]Pair, 0, m.length())
	for i := m.head; i < m.tail; i++ {
		p, err := e.pairAt(name, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Rand returns a uniformly random field/value pair without removing it,
// ARAND.
func (e *ArrayMapEngine) Rand(name []byte) (Pair, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return Pair{}, err
	}
	n := m.length()
	if n == 0 {
		return Pair{}, nil
	}
	idx := m.head + rand.Int63n(n)
	return e.pairAt(name, idx)
}

// IncrBy parses field's current value (0 if absent) as a base-10 int64,
// adds delta, and writes the result back as a decimal string in place --
// the field keeps its existing array position. If field doesn't exist
// yet, it is appended at the right end with value=delta, mirroring
// HashMap.IncrBy's create-on-absent behavior.
func (e *ArrayMapEngine) IncrBy(name, field []byte, delta int64) error {
	idx, ok, err := e.slotIndex(name, field)
	if err != nil {
		return err
	}
	if !ok {
		return e.Push(name, false, false, [][]byte{field}, [][]byte{[]byte(strconv.FormatInt(delta, 10))})
	}
	b, err := e.Storage.Get(arraySlotKey(name, idx))
	if err != nil {
		return err
	}
	_, value, decoded := decodeArraySlot(b)
	if !decoded {
		return errors.Wrap(ErrBadArgument, "corrupt arraymap slot")
	}
	var n int64
	if len(value) > 0 {
		n, err = strconv.ParseInt(string(value), 10, 64)
		if err != nil {
			return errors.Wrap(ErrNotInteger, err.Error())
		}
	}
	n += delta
	next := encodeArraySlot(field, []byte(strconv.FormatInt(n, 10)))
	return e.Storage.Put(arraySlotKey(name, idx), next)
}

// Remove deletes name entirely -- every slot, every index entry, and the
// meta record -- and reports whether it existed, ARM.
func (e *ArrayMapEngine) Remove(name []byte) (bool, error) {
	m, err := e.readMeta(name)
	if err != nil {
		return false, err
	}
	b, err := e.Storage.Get(arrayMetaKey(name))
	if err != nil {
		return false, err
	}
	if b == nil {
		return false, nil
	}
	ops := make([]BatchOp, 0, 2*int(m.length())+1)
	for i := m.head; i < m.tail; i++ {
		p, err := e.pairAt(name, i)
		if err != nil {
			return false, err
		}
		ops = append(ops, DeleteOp(arraySlotKey(name, i)), DeleteOp(arrayIndexKey(name, p.Field)))
	}
	ops = append(ops, DeleteOp(arrayMetaKey(name)))
	if err := e.Storage.WriteBatch(ops); err != nil {
		return false, err
	}
	return true, nil
}
