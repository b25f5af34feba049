package lodis

import (
	"strconv"

	"github.com/pkg/errors"
)

// HashEngine is a field -> value map with a length-counter meta record,
// enumerated in key-byte order (not insertion order, since the
// underlying Storage has no notion of insertion order to preserve).
type HashEngine struct {
	Storage Storage
}

func (e *HashEngine) readMeta(name []byte) (hashMeta, bool, error) {
	b, err := e.Storage.Get(hashMetaKey(name))
	if err != nil {
		return hashMeta{}, false, err
	}
	if b == nil {
		return hashMeta{}, false, nil
	}
	m, ok := decodeHashMeta(b)
	if !ok {
		return hashMeta{}, false, errors.Wrap(ErrBadArgument, "corrupt hash meta")
	}
	return m, true, nil
}

// Get returns field's value, or (nil, nil) if name or field doesn't
// exist.
func (e *HashEngine) Get(name, field []byte) ([]byte, error) {
	return e.Storage.Get(hashFieldKey(name, field))
}

// Set writes field=value unconditionally, creating name if needed.
func (e *HashEngine) Set(name, field, value []byte) error {
	m, existed, err := e.readMeta(name)
	if err != nil {
		return err
	}
	key := hashFieldKey(name, field)
	cur, err := e.Storage.Get(key)
	if err != nil {
		return err
	}
	ops := []BatchOp{PutOp(key, value)}
	if cur == nil {
		m.count++
		ops = append(ops, PutOp(hashMetaKey(name), encodeHashMeta(m)))
	} else if !existed {
		// shouldn't happen (a field existing implies meta existed), but
		// keep meta consistent defensively
		m.count = 1
		ops = append(ops, PutOp(hashMetaKey(name), encodeHashMeta(m)))
	}
	return e.Storage.WriteBatch(ops)
}

// SetNX writes field=value only if field is not already set; a no-op
// otherwise. The command layer reports No regardless of which branch
// was taken -- callers can't tell from the response whether the write
// happened.
func (e *HashEngine) SetNX(name, field, value []byte) error {
	cur, err := e.Storage.Get(hashFieldKey(name, field))
	if err != nil {
		return err
	}
	if cur != nil {
		return nil
	}
	return e.Set(name, field, value)
}

// MSet writes every field[i]=values[i] pair atomically (HMSET).
func (e *HashEngine) MSet(name []byte, fields, values [][]byte) error {
	m, _, err := e.readMeta(name)
	if err != nil {
		return err
	}
	ops := make([]BatchOp, 0, len(fields)+1)
	seen := make(map[string]bool, len(fields))
	for i := range fields {
		key := hashFieldKey(name, fields[i])
		if !seen[string(fields[i])] {
			seen[string(fields[i])] = true
			cur, err := e.Storage.Get(key)
			if err != nil {
				return err
			}
			if cur == nil {
				m.count++
			}
		}
		ops = append(ops, PutOp(key, values[i]))
	}
	ops = append(ops, PutOp(hashMetaKey(name), encodeHashMeta(m)))
	return e.Storage.WriteBatch(ops)
}

// MGet returns one Option per requested field, Present=false for fields
// that don't exist, in request order (HMGET).
func (e *HashEngine) MGet(name []byte, fields [][]byte) ([]Option, error) {
	out := make([]Option, len(fields))
	for i, f := range fields {
		v, err := e.Storage.Get(hashFieldKey(name, f))
		if err != nil {
			return nil, err
		}
		out[i] = Option{Present: v != nil, Value: v}
	}
	return out, nil
}

// IncrBy parses field's current value (0 if absent) as a base-10 int64,
// adds delta, and writes the result back as a decimal string. It returns
// ErrNotInteger if the existing value doesn't parse.
func (e *HashEngine) IncrBy(name, field []byte, delta int64) error {
	key := hashFieldKey(name, field)
	cur, err := e.Storage.Get(key)
	if err != nil {
		return err
	}
	var n int64
	if cur != nil {
		n, err = strconv.ParseInt(string(cur), 10, 64)
		if err != nil {
			return errors.Wrap(ErrNotInteger, err.Error())
		}
	}
	n += delta
	next := []byte(strconv.FormatInt(n, 10))
	if cur == nil {
		m, _, err := e.readMeta(name)
		if err != nil {
			return err
		}
		m.count++
		return e.Storage.WriteBatch([]BatchOp{
			PutOp(key, next),
			PutOp(hashMetaKey(name), encodeHashMeta(m)),
		})
	}
	return e.Storage.Put(key, next)
}

// GetAll returns every field/value pair in name, in key-byte order
// (HGETALL).
func (e *HashEngine) GetAll(name []byte) ([]Pair, error) {
	prefix := hashFieldPrefix(name)
	var out []Pair
	err := e.Storage.ScanPrefix(prefix, func(key, value []byte) error {
		field := append([]byte(nil), fieldSuffix(key, prefix)...)
		out = append(out, Pair{Present: true, Field: field, Value: append([]byte(nil), value...)})
		return nil
	})
	return out, err
}

// Keys returns every field name in name, in key-byte order (HKEYS).
func (e *HashEngine) Keys(name []byte) ([][]byte, error) {
	prefix := hashFieldPrefix(name)
	var out [][]byte
	err := e.Storage.ScanPrefix(prefix, func(key, value []byte) error {
		out = append(out, append([]byte(nil), fieldSuffix(key, prefix)...))
		return nil
	})
	return out, err
}

// Vals returns every value in name, in key-byte (field) order (HVALS).
// This returns values, not field names -- easy to get backwards given
// how similar it looks to Keys.
func (e *HashEngine) Vals(name []byte) ([][]byte, error) {
	prefix := hashFieldPrefix(name)
	var out [][]byte
	err := e.Storage.ScanPrefix(prefix, func(key, value []byte) error {
		out = append(out, append([]byte(nil), value...))
		return nil
	})
	return out, err
}

// Exists reports whether field is set in name (HEXISTS).
func (e *HashEngine) Exists(name, field []byte) (bool, error) {
	v, err := e.Storage.Get(hashFieldKey(name, field))
	return v != nil, err
}

// Len returns the number of fields in name (HLEN).
func (e *HashEngine) Len(name []byte) (int64, error) {
	m, _, err := e.readMeta(name)
	return int64(m.count), err
}

// Del removes field from name and reports whether it was present
// (HDEL).
func (e *HashEngine) Del(name, field []byte) (bool, error) {
	key := hashFieldKey(name, field)
	cur, err := e.Storage.Get(key)
	if err != nil {
		return false, err
	}
	if cur == nil {
		return false, nil
	}
	m, _, err := e.readMeta(name)
	if err != nil {
		return false, err
	}
	m.count--
	ops := []BatchOp{DeleteOp(key)}
	ops = append(ops, metaOrDeleteOps(hashMetaKey(name), m.count == 0, encodeHashMeta(m))...)
	return true, e.Storage.WriteBatch(ops)
}

// Remove deletes name entirely -- every field and the meta record -- and
// reports whether it existed (HRM).
func (e *HashEngine) Remove(name []byte) (bool, error) {
	_, existed, err := e.readMeta(name)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	prefix := hashFieldPrefix(name)
	var ops []BatchOp
	err = e.Storage.ScanPrefix(prefix, func(key, value []byte) error {
		ops = append(ops, DeleteOp(append([]byte(nil), key...)))
		return nil
	})
	if err != nil {
		return false, err
	}
	ops = append(ops, DeleteOp(hashMetaKey(name)))
	return true, e.Storage.WriteBatch(ops)
}
