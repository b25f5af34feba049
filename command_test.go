package lodis

import (
	"testing"

	"github.com/rsms/go-testutil"

	"github.com/lodis-io/lodis/store/memstore"
)

func newDispatcher() *Dispatcher {
	s := memstore.New()
	return &Dispatcher{
		Lists:  &ListEngine{Storage: s},
		Hashes: &HashEngine{Storage: s},
		Arrays: &ArrayMapEngine{Storage: s},
		Locks:  NewLockRegistry(),
	}
}

func TestDispatchPing(t *testing.T) {
	d := newDispatcher()
	res, err := Dispatch(d, "PING", []byte(""), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.(No); !ok {
		t.Fatalf("expected No, got %T", res)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	d := newDispatcher()
	if _, err := Dispatch(d, "NOPE", []byte("n"), nil); err == nil {
		t.Fatal("expected ErrUnknownCommand")
	}
}

func TestDispatchBadArity(t *testing.T) {
	d := newDispatcher()
	// HSET requires exactly 2 args.
	if _, err := Dispatch(d, "HSET", []byte("h"), [][]byte{[]byte("onlyfield")}); err == nil {
		t.Fatal("expected ErrBadArity")
	}
}

func TestDispatchOddPairsRejected(t *testing.T) {
	d := newDispatcher()
	if _, err := Dispatch(d, "HMSET", []byte("h"), [][]byte{[]byte("f1"), []byte("v1"), []byte("f2")}); err == nil {
		t.Fatal("expected an odd-pairs arity error")
	}
}

func TestDispatchListRoundTrip(t *testing.T) {
	assert := testutil.NewAssert(t)
	d := newDispatcher()
	name := []byte("mylist")

	_, err := Dispatch(d, "RPUSH", name, [][]byte{[]byte("a"), []byte("b")})
	assert.Ok("no error", err == nil)

	res, err := Dispatch(d, "LLEN", name, nil)
	assert.Ok("no error", err == nil)
	assert.Eq("len", res.(Int), Int(2))

	res, err = Dispatch(d, "LPOP", name, nil)
	assert.Ok("no error", err == nil)
	assert.Eq("value", string(res.(Bytes)), "a")
}

func TestDispatchHashSetNXReturnsNoRegardlessOfOutcome(t *testing.T) {
	d := newDispatcher()
	name := []byte("h")

	res, err := Dispatch(d, "HSETNX", name, [][]byte{[]byte("f"), []byte("v1")})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.(No); !ok {
		t.Fatalf("expected No on first HSETNX, got %T", res)
	}

	res, err = Dispatch(d, "HSETNX", name, [][]byte{[]byte("f"), []byte("v2")})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := res.(No); !ok {
		t.Fatalf("expected No on no-op HSETNX too, got %T", res)
	}

	res, _ = Dispatch(d, "HGET", name, [][]byte{[]byte("f")})
	if string(res.(Bytes)) != "v1" {
		t.Fatal("HSETNX should not have overwritten the existing value")
	}
}

func TestDispatchArrayMapPushAndRange(t *testing.T) {
	assert := testutil.NewAssert(t)
	d := newDispatcher()
	name := []byte("arr")

	_, err := Dispatch(d, "ARPUSH", name, [][]byte{
		[]byte("f1"), []byte("v1"),
		[]byte("f2"), []byte("v2"),
	})
	assert.Ok("no error", err == nil)

	res, err := Dispatch(d, "ALEN", name, nil)
	assert.Ok("no error", err == nil)
	assert.Eq("len", res.(Int), Int(2))

	res, err = Dispatch(d, "ALRANGE", name, [][]byte{[]byte("0"), []byte("2")})
	assert.Ok("no error", err == nil)
	pairs := res.(Pairs)
	assert.Eq("count", len(pairs), 2)
	assert.Eq("f1 first", string(pairs[0].Field), "f1")
}

func TestDispatchReclaimsLocksAfterCompletion(t *testing.T) {
	// Mutual exclusion itself is covered in locks_test.go; this only
	// checks that once commands on two different names have completed,
	// Dispatch has released every lock it took and the registry is empty.
	d := newDispatcher()
	Dispatch(d, "LPUSH", []byte("a"), [][]byte{[]byte("x")})
	Dispatch(d, "LPUSH", []byte("b"), [][]byte{[]byte("y")})
	if n := d.Locks.Len(); n != 0 {
		t.Fatalf("expected all locks reclaimed after completion, got %d", n)
	}
}
