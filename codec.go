package lodis

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Wire framing: every request argument, and most response payloads, is a
// length-prefixed byte string, <len:4 BE><bytes>. The exceptions are
// noted on the individual Result types below, which don't all share that
// framing. ParseArgs turns a request body into the argument list the
// command layer dispatches on; the Result types below turn an engine's
// return value into the bytes an HTTP handler writes back.

// ParseArgs splits body into its length-prefixed argument frames. A
// truncated frame (a declared length that exceeds the remaining bytes)
// is ErrProtocol. An empty body is zero arguments, which is valid for
// commands like LPOP or HGETALL that take only the name from the path.
func ParseArgs(body []byte) ([][]byte, error) {
	var args [][]byte
	for len(body) > 0 {
		if len(body) < 4 {
			return nil, errors.Wrap(ErrProtocol, "truncated frame length")
		}
		n := binary.BigEndian.Uint32(body[:4])
		body = body[4:]
		if uint64(n) > uint64(len(body)) {
			return nil, errors.Wrap(ErrProtocol, "truncated frame body")
		}
		args = append(args, body[:n])
		body = body[n:]
	}
	return args, nil
}

// AppendArg appends a single length-prefixed argument frame to buf, the
// inverse of one step of ParseArgs. Used by tests and by any client-side
// helper that builds a request body.
func AppendArg(buf []byte, arg []byte) []byte {
	var lenbuf [4]byte
	binary.BigEndian.PutUint32(lenbuf[:], uint32(len(arg)))
	buf = append(buf, lenbuf[:]...)
	return append(buf, arg...)
}

// Response status byte, the first byte of every HTTP response body.
// statusOK is ASCII '0'; any other byte a client reads there means the
// rest of the body is an error message, not a Result payload.
const (
	statusOK    byte = 0x30
	statusError byte = 0x01
)

// Result is anything a command can return. Encode appends the response's
// payload (everything after the status byte, which the caller writes) to
// buf and returns the extended slice.
type Result interface {
	Encode(buf []byte) []byte
}

// EncodeResponse writes a full response -- status byte plus payload --
// for result. A nil err means result is used; a non-nil err encodes an
// Error response instead and result is ignored.
func EncodeResponse(buf []byte, result Result, err error) []byte {
	if err != nil {
		buf = append(buf, statusError)
		msg := []byte(err.Error())
		return AppendArg(buf, msg)
	}
	buf = append(buf, statusOK)
	if result == nil {
		return buf
	}
	return result.Encode(buf)
}

// No is returned by commands whose success carries no payload (PING,
// LPUSH, HSET, HINCRBY, ...): the whole family of fire-and-forget
// mutations returns No, not a value.
type No struct{}

func (No) Encode(buf []byte) []byte { return buf }

// Bytes wraps a single byte string result (HGET, LPOP, LINDEX, ...). It
// is written to the response with no length prefix -- a client recovers
// its length from the HTTP response body length minus the one status
// byte. (An Error response, by contrast, carries its message as one
// length-prefixed frame; see EncodeResponse.)
type Bytes []byte

func (b Bytes) Encode(buf []byte) []byte { return append(buf, []byte(b)...) }

// Bool wraps a single boolean result (HEXISTS, LDEL, HRM, ...).
type Bool bool

func (b Bool) Encode(buf []byte) []byte {
	v := byte(0)
	if b {
		v = 1
	}
	return append(buf, v)
}

// Int wraps a single unsigned result (LLEN, HLEN, ALEN). Lengths are
// never negative, so the wire encoding is a plain 4-byte big-endian
// unsigned integer; the Go type stays a uint64 for arithmetic
// convenience on the engine side and is narrowed on encode.
type Int uint64

func (n Int) Encode(buf []byte) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n))
	return append(buf, b[:]...)
}

// List wraps an ordered sequence of byte strings (LRANGE, HKEYS, HVALS,
// AKEYS, AVALS). It is written as the repeated <len:4 BE><bytes> frames
// back to back with no leading element count -- a client decodes frames
// until the HTTP body is exhausted, the same way Bytes relies on body
// length rather than carrying its own.
type List [][]byte

func (l List) Encode(buf []byte) []byte {
	for _, elem := range l {
		buf = AppendArg(buf, elem)
	}
	return buf
}

// Option is a possibly-absent byte string, the element type of
// ListOption (HMGET, where a field that doesn't exist contributes an
// absent entry rather than shortening the result).
type Option struct {
	Present bool
	Value   []byte
}

func (o Option) encode(buf []byte) []byte {
	if !o.Present {
		// "not present" is a single 0x00 byte, nothing following -- no
		// length/bytes region for an absent entry.
		return append(buf, 0x00)
	}
	buf = append(buf, 0x01)
	return AppendArg(buf, o.Value)
}

// ListOption wraps HMGET's result: one Option per requested field, in
// request order, with no leading element count -- a client already
// knows how many fields it asked for.
type ListOption []Option

func (l ListOption) Encode(buf []byte) []byte {
	for _, opt := range l {
		buf = opt.encode(buf)
	}
	return buf
}

// Pair wraps a single field/value result that may be absent (ALPOP,
// ARPOP, ARANDPOP, ARAND -- popping from an empty ArrayMap has nothing
// to return).
type Pair struct {
	Present bool
	Field   []byte
	Value   []byte
}

func (p Pair) Encode(buf []byte) []byte {
	if !p.Present {
		return append(buf, 0x00)
	}
	buf = append(buf, 0x01)
	buf = AppendArg(buf, p.Field)
	buf = AppendArg(buf, p.Value)
	return buf
}

// Pairs wraps an ordered sequence of field/value results (HGETALL,
// ALRANGE, ARRANGE, AALL), written as back-to-back field/value frame
// pairs with no leading element count -- the client reads pairs of
// frames until the body runs out.
type Pairs []Pair

func (ps Pairs) Encode(buf []byte) []byte {
	for _, p := range ps {
		buf = AppendArg(buf, p.Field)
		buf = AppendArg(buf, p.Value)
	}
	return buf
}
