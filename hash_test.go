package lodis

import (
	"testing"

	"github.com/rsms/go-testutil"

	"github.com/lodis-io/lodis/store/memstore"
)

func newHashEngine() *HashEngine {
	return &HashEngine{Storage: memstore.New()}
}

func TestHashSetGet(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")

	if err := e.Set(name, []byte("f1"), []byte("v1")); err != nil {
		t.Fatal(err)
	}
	v, err := e.Get(name, []byte("f1"))
	assert.Ok("no error", err == nil)
	assert.Eq("value", string(v), "v1")

	n, err := e.Len(name)
	assert.Ok("no error", err == nil)
	assert.Eq("len", n, int64(1))
}

func TestHashSetNX(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")

	e.SetNX(name, []byte("f1"), []byte("first"))
	e.SetNX(name, []byte("f1"), []byte("second"))

	v, _ := e.Get(name, []byte("f1"))
	assert.Eq("first write wins", string(v), "first")
}

func TestHashIncrByCreatesOnAbsent(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")

	if err := e.IncrBy(name, []byte("counter"), 5); err != nil {
		t.Fatal(err)
	}
	v, _ := e.Get(name, []byte("counter"))
	assert.Eq("created at delta", string(v), "5")

	if err := e.IncrBy(name, []byte("counter"), -2); err != nil {
		t.Fatal(err)
	}
	v, _ = e.Get(name, []byte("counter"))
	assert.Eq("incremented", string(v), "3")
}

func TestHashIncrByNotIntegerError(t *testing.T) {
	e := newHashEngine()
	name := []byte("h")
	e.Set(name, []byte("f"), []byte("not-a-number"))
	if err := e.IncrBy(name, []byte("f"), 1); err == nil {
		t.Fatal("expected ErrNotInteger")
	}
}

func TestHashVals(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")
	e.MSet(name, [][]byte{[]byte("a"), []byte("b")}, [][]byte{[]byte("1"), []byte("2")})

	vals, err := e.Vals(name)
	assert.Ok("no error", err == nil)
	assert.Eq("count", len(vals), 2)
	// Regression test for the HVALS copy-paste bug: these must be values,
	// not field names.
	for _, v := range vals {
		if string(v) != "1" && string(v) != "2" {
			t.Fatalf("Vals returned a field name instead of a value: %q", v)
		}
	}
}

func TestHashMGetPreservesAbsence(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")
	e.Set(name, []byte("present"), []byte("v"))

	opts, err := e.MGet(name, [][]byte{[]byte("present"), []byte("absent")})
	assert.Ok("no error", err == nil)
	assert.Eq("count", len(opts), 2)
	assert.Ok("present", opts[0].Present)
	assert.Ok("absent", !opts[1].Present)
}

func TestHashDelAndRemove(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")
	e.MSet(name, [][]byte{[]byte("a"), []byte("b")}, [][]byte{[]byte("1"), []byte("2")})

	ok, err := e.Del(name, []byte("a"))
	assert.Ok("no error", err == nil)
	assert.Ok("existed", ok)

	n, _ := e.Len(name)
	assert.Eq("len after del", n, int64(1))

	ok, err = e.Remove(name)
	assert.Ok("no error", err == nil)
	assert.Ok("existed", ok)

	n, _ = e.Len(name)
	assert.Eq("len after remove", n, int64(0))
}

func TestHashMSetAtomicCount(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newHashEngine()
	name := []byte("h")
	e.Set(name, []byte("a"), []byte("1"))
	// overwriting an existing field plus adding a new one should only
	// grow the count by one.
	e.MSet(name, [][]byte{[]byte("a"), []byte("b")}, [][]byte{[]byte("11"), []byte("2")})

	n, _ := e.Len(name)
	assert.Eq("len", n, int64(2))
}
