package lodis

import (
	"bytes"
	"sort"
	"testing"

	"github.com/rsms/go-testutil"
)

func TestNameKeyLayout(t *testing.T) {
	assert := testutil.NewAssert(t)

	k := listMetaKey([]byte("mylist"))
	assert.Eq("tag", k[0], kindListMeta)
	assert.Eq("len", len(k), 1+4+len("mylist"))
	assert.Eq("name", string(k[5:]), "mylist")
}

func TestSlotKeyOrdering(t *testing.T) {
	// Keys for consecutive slot indices, including negative ones (after
	// repeated left-pushes), must sort in numeric order as raw bytes --
	// that's what the bias trick buys.
	indices := []int64{-3, -2, -1, 0, 1, 2, 100}
	keys := make([][]byte, len(indices))
	for i, idx := range indices {
		keys[i] = listSlotKey([]byte("x"), idx)
	}
	shuffled := append([][]byte(nil), keys...)
	sort.Slice(shuffled, func(i, j int) bool {
		return bytes.Compare(shuffled[i], shuffled[j]) < 0
	})
	for i := range keys {
		if !bytes.Equal(keys[i], shuffled[i]) {
			t.Fatalf("slot key ordering mismatch at %d: byte-sort order != index order", i)
		}
	}
}

func TestBiasInt64RoundTrip(t *testing.T) {
	assert := testutil.NewAssert(t)
	for _, v := range []int64{0, 1, -1, 1 << 40, -(1 << 40)} {
		assert.Eq("round-trip", unbiasInt64(biasInt64(v)), v)
	}
}

func TestMetaKeysDistinctAcrossKinds(t *testing.T) {
	assert := testutil.NewAssert(t)
	// Two different kinds sharing a name must never collide.
	a := listMetaKey([]byte("shared"))
	b := hashMetaKey([]byte("shared"))
	assert.Ok("distinct kinds", !bytes.Equal(a, b))
}

func TestListMetaCodec(t *testing.T) {
	assert := testutil.NewAssert(t)
	m := listMeta{head: -5, tail: 10}
	enc := encodeListMeta(m)
	got, ok := decodeListMeta(enc)
	assert.Ok("decoded", ok)
	assert.Eq("head", got.head, m.head)
	assert.Eq("tail", got.tail, m.tail)
	assert.Eq("length", got.length(), int64(15))
}

func TestHashMetaCodec(t *testing.T) {
	assert := testutil.NewAssert(t)
	m := hashMeta{count: 42}
	got, ok := decodeHashMeta(encodeHashMeta(m))
	assert.Ok("decoded", ok)
	assert.Eq("count", got.count, m.count)
}

func TestFieldSuffix(t *testing.T) {
	assert := testutil.NewAssert(t)
	name := []byte("h")
	prefix := hashFieldPrefix(name)
	key := hashFieldKey(name, []byte("field1"))
	assert.Eq("suffix", string(fieldSuffix(key, prefix)), "field1")
}
