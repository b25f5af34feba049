package memstore

import (
	"testing"

	"github.com/rsms/go-testutil"

	"github.com/lodis-io/lodis"
)

func TestGetPutDelete(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := New()

	v, err := s.Get([]byte("k"))
	assert.Ok("no error", err == nil)
	assert.Ok("absent", v == nil)

	if err := s.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	v, err = s.Get([]byte("k"))
	assert.Ok("no error", err == nil)
	assert.Eq("value", string(v), "v")

	if err := s.Delete([]byte("k")); err != nil {
		t.Fatal(err)
	}
	v, _ = s.Get([]byte("k"))
	assert.Ok("deleted", v == nil)
}

func TestScanPrefixOrderedAndBounded(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := New()
	s.Put([]byte("p:b"), []byte("2"))
	s.Put([]byte("p:a"), []byte("1"))
	s.Put([]byte("p:c"), []byte("3"))
	s.Put([]byte("q:z"), []byte("other"))

	var keys []string
	err := s.ScanPrefix([]byte("p:"), func(k, v []byte) error {
		keys = append(keys, string(k))
		return nil
	})
	assert.Ok("no error", err == nil)
	assert.Eq("count", len(keys), 3)
	assert.Eq("ascending order", keys[0], "p:a")
	assert.Eq("ascending order", keys[1], "p:b")
	assert.Eq("ascending order", keys[2], "p:c")
}

func TestWriteBatchAtomicVisibility(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := New()
	s.Put([]byte("x"), []byte("old"))

	err := s.WriteBatch([]lodis.BatchOp{
		lodis.PutOp([]byte("x"), []byte("new")),
		lodis.PutOp([]byte("y"), []byte("fresh")),
		lodis.DeleteOp([]byte("x-missing")),
	})
	assert.Ok("no error", err == nil)

	v, _ := s.Get([]byte("x"))
	assert.Eq("overwritten", string(v), "new")
	v, _ = s.Get([]byte("y"))
	assert.Eq("added", string(v), "fresh")
}

func TestWriteBatchDelete(t *testing.T) {
	assert := testutil.NewAssert(t)
	s := New()
	s.Put([]byte("x"), []byte("v"))

	err := s.WriteBatch([]lodis.BatchOp{lodis.DeleteOp([]byte("x"))})
	assert.Ok("no error", err == nil)

	v, _ := s.Get([]byte("x"))
	assert.Ok("deleted", v == nil)
}

func TestReturnedBytesAreCopies(t *testing.T) {
	s := New()
	s.Put([]byte("k"), []byte("v"))
	v, _ := s.Get([]byte("k"))
	v[0] = 'x'
	v2, _ := s.Get([]byte("k"))
	if string(v2) != "v" {
		t.Fatal("mutating a returned value must not affect the stored value")
	}
}
