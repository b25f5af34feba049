package lodis

import "encoding/binary"

// Kind tags partition the flat Storage keyspace into the sub-spaces each
// engine owns. A key always begins with one of these, so two structures
// with the same name (e.g. a List "x" and a HashMap "x") never collide:
// a command dispatched against the wrong kind's tag space simply finds
// nothing, with no special-casing required in the engines.
const (
	kindListMeta   byte = 0x01
	kindListSlot   byte = 0x02
	kindHashMeta   byte = 0x03
	kindHashField  byte = 0x04
	kindArrayMeta  byte = 0x05
	kindArraySlot  byte = 0x06
	kindArrayIndex byte = 0x07
)

// biasInt64 flips the sign bit of a two's-complement int64 so that the
// resulting uint64, compared as big-endian bytes, sorts in the same order
// as the original signed values -- including negative ones. List and
// ArrayMap head cursors go negative after repeated left-pushes move the
// head leftward past slot 0, so slot keys need this to keep scanning in
// order.
func biasInt64(v int64) uint64 {
	return uint64(v) ^ (1 << 63)
}

func unbiasInt64(u uint64) int64 {
	return int64(u ^ (1 << 63))
}

// nameKey returns the shared prefix for every key belonging to name under
// the given kind tag: <tag:1><namelen:4 BE><name>. It is also a complete,
// self-contained key for kind tags that have no sub-key (the *Meta kinds).
func nameKey(kind byte, name []byte) []byte {
	var buf Buffer
	buf.Reserve(1 + 4 + len(name))
	buf.WriteByte(kind)
	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(name)))
	buf.Write(lenbuf[:])
	buf.Write(name)
	return buf.Bytes()
}

func slotKey(kind byte, name []byte, idx int64) []byte {
	base := nameKey(kind, name)
	var buf Buffer
	buf.Write(base)
	var idxbuf [8]byte
	binary.BigEndian.PutUint64(idxbuf[:], biasInt64(idx))
	buf.Write(idxbuf[:])
	return buf.Bytes()
}

// fieldKey appends a length-prefixed field to a name's key space:
// nameKey(kind, name) ++ <fieldlen:4 BE><field>. The length prefix isn't
// needed to keep fieldKey itself unambiguous (field is always the last
// component), but it keeps every sub-key in the Storage keyspace built
// from the same <len:4 BE><bytes> shape, and fieldSuffix below relies on
// it to recover a bare field from a scanned key.
func fieldKey(kind byte, name []byte, field []byte) []byte {
	base := nameKey(kind, name)
	var buf Buffer
	buf.Reserve(len(base) + 4 + len(field))
	buf.Write(base)
	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(field)))
	buf.Write(lenbuf[:])
	buf.Write(field)
	return buf.Bytes()
}

// fieldSuffix extracts the field/sub-key portion of a key produced by
// fieldKey, given the prefix (nameKey(kind, name)) it was built from.
// Used when enumerating HashMap fields via ScanPrefix, where the callback receives the full key and the caller
// needs just the trailing field bytes -- skipping past fieldKey's
// 4-byte length header.
func fieldSuffix(key, prefix []byte) []byte {
	return key[len(prefix)+4:]
}

func listMetaKey(name []byte) []byte          { return nameKey(kindListMeta, name) }
func listSlotKey(name []byte, i int64) []byte { return slotKey(kindListSlot, name, i) }
func listSlotPrefix(name []byte) []byte       { return nameKey(kindListSlot, name) }

func hashMetaKey(name []byte) []byte                { return nameKey(kindHashMeta, name) }
func hashFieldKey(name []byte, field []byte) []byte { return fieldKey(kindHashField, name, field) }
func hashFieldPrefix(name []byte) []byte            { return nameKey(kindHashField, name) }

func arrayMetaKey(name []byte) []byte          { return nameKey(kindArrayMeta, name) }
func arraySlotKey(name []byte, i int64) []byte { return slotKey(kindArraySlot, name, i) }
func arraySlotPrefix(name []byte) []byte       { return nameKey(kindArraySlot, name) }
func arrayIndexKey(name []byte, field []byte) []byte {
	return fieldKey(kindArrayIndex, name, field)
}
func arrayIndexPrefix(name []byte) []byte { return nameKey(kindArrayIndex, name) }

// listMeta is the head/tail cursor pair persisted at a List's/ArrayMap's
// meta key. head == tail means empty; the range [head, tail) is the set
// of occupied slots, a double-ended cursor that lets both ends grow or
// shrink independently without rewriting every slot key in between.
type listMeta struct {
	head, tail int64
}

func encodeListMeta(m listMeta) []byte {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(m.head))
	binary.BigEndian.PutUint64(buf[8:16], uint64(m.tail))
	return buf[:]
}

func decodeListMeta(b []byte) (listMeta, bool) {
	if len(b) != 16 {
		return listMeta{}, false
	}
	return listMeta{
		head: int64(binary.BigEndian.Uint64(b[0:8])),
		tail: int64(binary.BigEndian.Uint64(b[8:16])),
	}, true
}

func (m listMeta) length() int64 { return m.tail - m.head }

// hashMeta is the field-count persisted at a HashMap's meta key, used so
// HLEN is O(1) rather than requiring a full prefix scan.
type hashMeta struct {
	count uint64
}

func encodeHashMeta(m hashMeta) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], m.count)
	return buf[:]
}

func decodeHashMeta(b []byte) (hashMeta, bool) {
	if len(b) != 8 {
		return hashMeta{}, false
	}
	return hashMeta{count: binary.BigEndian.Uint64(b)}, true
}
