package lodis

import (
	"testing"

	"github.com/rsms/go-testutil"

	"github.com/lodis-io/lodis/store/memstore"
)

func newListEngine() *ListEngine {
	return &ListEngine{Storage: memstore.New()}
}

func TestListPushPop(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newListEngine()
	name := []byte("l")

	if err := e.Push(name, false, [][]byte{[]byte("a"), []byte("b"), []byte("c")}); err != nil {
		t.Fatal(err)
	}
	n, err := e.Len(name)
	assert.Ok("no error", err == nil)
	assert.Eq("len", n, int64(3))

	v, err := e.Pop(name, true)
	assert.Ok("no error", err == nil)
	assert.Eq("left pop", string(v), "a")

	v, err = e.Pop(name, false)
	assert.Ok("no error", err == nil)
	assert.Eq("right pop", string(v), "c")

	n, _ = e.Len(name)
	assert.Eq("len after two pops", n, int64(1))
}

func TestListPushLeftOrder(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newListEngine()
	name := []byte("l")
	// pushing e1,e2,e3 left leaves e3,e2,e1 head-to-tail
	e.Push(name, true, [][]byte{[]byte("e1"), []byte("e2"), []byte("e3")})
	vs, err := e.Range(name, 0, 3, true)
	assert.Ok("no error", err == nil)
	assert.Eq("order", string(vs[0]), "e3")
	assert.Eq("order", string(vs[1]), "e2")
	assert.Eq("order", string(vs[2]), "e1")
}

func TestListPopEmptyIsNotError(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newListEngine()
	v, err := e.Pop([]byte("missing"), true)
	assert.Ok("no error", err == nil)
	assert.Ok("nil value", v == nil)
}

func TestListDropsMetaWhenEmpty(t *testing.T) {
	e := newListEngine()
	name := []byte("l")
	e.Push(name, false, [][]byte{[]byte("only")})
	e.Pop(name, false)

	v, err := e.Storage.Get(listMetaKey(name))
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected meta to be erased once list is empty, got %v", v)
	}
}

func TestListDelAtSwapWithTail(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newListEngine()
	name := []byte("l")
	e.Push(name, false, [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")})

	ok, err := e.DelAt(name, 1) // remove "b"
	assert.Ok("no error", err == nil)
	assert.Ok("removed", ok)

	n, _ := e.Len(name)
	assert.Eq("len", n, int64(3))

	vs, err := e.Range(name, 0, n, true)
	assert.Ok("no error", err == nil)
	assert.Eq("count", len(vs), 3)
	// "b" must be gone; no gaps; remaining elements still findable by
	// a contiguous range scan.
	for _, v := range vs {
		if string(v) == "b" {
			t.Fatal("deleted element still present")
		}
	}
}

func TestListDelAtOutOfRange(t *testing.T) {
	e := newListEngine()
	name := []byte("l")
	e.Push(name, false, [][]byte{[]byte("a")})
	ok, err := e.DelAt(name, 5)
	if err != nil || ok {
		t.Fatalf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestListRRangeCountsFromRight(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newListEngine()
	name := []byte("l")
	e.Push(name, false, [][]byte{[]byte("a"), []byte("b"), []byte("c")})

	vs, err := e.Range(name, 0, 3, false)
	assert.Ok("no error", err == nil)
	assert.Eq("first is last element", string(vs[0]), "c")
	assert.Eq("last is first element", string(vs[2]), "a")
}

func TestListIndexOutOfRange(t *testing.T) {
	e := newListEngine()
	name := []byte("l")
	e.Push(name, false, [][]byte{[]byte("a")})
	v, err := e.Index(name, 99)
	if err != nil || v != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", v, err)
	}
}

func TestListRemove(t *testing.T) {
	assert := testutil.NewAssert(t)
	e := newListEngine()
	name := []byte("l")
	e.Push(name, false, [][]byte{[]byte("a"), []byte("b")})

	ok, err := e.Remove(name)
	assert.Ok("no error", err == nil)
	assert.Ok("existed", ok)

	ok, err = e.Remove(name)
	assert.Ok("no error", err == nil)
	assert.Ok("doesn't exist anymore", !ok)

	n, _ := e.Len(name)
	assert.Eq("len", n, int64(0))
}

func TestListLengthIdentity(t *testing.T) {
	// Testable property: Len always equals the number of elements a full
	// Range returns.
	assert := testutil.NewAssert(t)
	e := newListEngine()
	name := []byte("l")
	for i := 0; i < 10; i++ {
		e.Push(name, i%2 == 0, [][]byte{[]byte{byte(i)}})
	}
	n, _ := e.Len(name)
	vs, err := e.Range(name, 0, n, true)
	assert.Ok("no error", err == nil)
	assert.Eq("length identity", int64(len(vs)), n)
}
