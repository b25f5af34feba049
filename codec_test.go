package lodis

import (
	"bytes"
	"testing"

	"github.com/rsms/go-testutil"
)

func TestParseArgsRoundTrip(t *testing.T) {
	assert := testutil.NewAssert(t)

	var body []byte
	body = AppendArg(body, []byte("foo"))
	body = AppendArg(body, []byte(""))
	body = AppendArg(body, []byte("bar"))

	args, err := ParseArgs(body)
	assert.Ok("no error", err == nil)
	assert.Eq("count", len(args), 3)
	assert.Eq("a0", string(args[0]), "foo")
	assert.Eq("a1", string(args[1]), "")
	assert.Eq("a2", string(args[2]), "bar")
}

func TestParseArgsEmptyBody(t *testing.T) {
	assert := testutil.NewAssert(t)
	args, err := ParseArgs(nil)
	assert.Ok("no error", err == nil)
	assert.Eq("count", len(args), 0)
}

func TestParseArgsTruncated(t *testing.T) {
	if _, err := ParseArgs([]byte{0, 0}); err == nil {
		t.Fatal("expected truncated-length error")
	}
	if _, err := ParseArgs([]byte{0, 0, 0, 5, 'a', 'b'}); err == nil {
		t.Fatal("expected truncated-body error")
	}
}

func TestEncodeResponseError(t *testing.T) {
	buf := EncodeResponse(nil, nil, ErrNotInteger)
	if buf[0] != statusError {
		t.Fatalf("expected status byte 0x01, got %#x", buf[0])
	}
	args, err := ParseArgs(buf[1:])
	if err != nil || len(args) != 1 {
		t.Fatalf("expected a single error-message frame, got %v %v", args, err)
	}
	if string(args[0]) != ErrNotInteger.Error() {
		t.Fatalf("message mismatch: %q", args[0])
	}
}

func TestEncodeResponseOK(t *testing.T) {
	buf := EncodeResponse(nil, Bytes("hello"), nil)
	if buf[0] != statusOK {
		t.Fatalf("expected status byte 0x30, got %#x", buf[0])
	}
	if string(buf[1:]) != "hello" {
		t.Fatalf("unexpected payload: %q", buf[1:])
	}
}

func TestNoEncodeIsEmpty(t *testing.T) {
	buf := No{}.Encode(nil)
	if len(buf) != 0 {
		t.Fatalf("No should encode to nothing, got %d bytes", len(buf))
	}
}

func TestBoolEncode(t *testing.T) {
	if got := Bool(true).Encode(nil); !bytes.Equal(got, []byte{1}) {
		t.Fatalf("Bool(true) = %v", got)
	}
	if got := Bool(false).Encode(nil); !bytes.Equal(got, []byte{0}) {
		t.Fatalf("Bool(false) = %v", got)
	}
}

func TestIntEncode(t *testing.T) {
	got := Int(1).Encode(nil)
	if len(got) != 4 || got[3] != 1 {
		t.Fatalf("Int(1) = %v", got)
	}
}

func TestListEncode(t *testing.T) {
	l := List{[]byte("a"), []byte("bb")}
	buf := l.Encode(nil)
	// no leading count, just two framed args
	if len(buf) != (4+1)+(4+2) {
		t.Fatalf("unexpected length %d", len(buf))
	}
}

func TestOptionEncodeAbsentIsSingleByte(t *testing.T) {
	buf := Option{Present: false}.encode(nil)
	if !bytes.Equal(buf, []byte{0x00}) {
		t.Fatalf("absent Option must encode to a single 0x00 byte, got %v", buf)
	}
}

func TestPairEncodeAbsent(t *testing.T) {
	buf := Pair{Present: false}.Encode(nil)
	if !bytes.Equal(buf, []byte{0x00}) {
		t.Fatalf("absent Pair must encode to a single 0x00 byte, got %v", buf)
	}
}

func TestPairsEncode(t *testing.T) {
	ps := Pairs{{Field: []byte("f1"), Value: []byte("v1")}}
	buf := ps.Encode(nil)
	if len(buf) != (4+2)+(4+2) {
		t.Fatalf("unexpected length %d", len(buf))
	}
}
