package redisstore

import (
	"bufio"
	"errors"
	"strconv"
)

type RESPType = byte

const (
	RESPTypeSimpleString = RESPType('+')
	RESPTypeError        = RESPType('-')
	RESPTypeInteger      = RESPType(':')
	RESPTypeBulkString   = RESPType('$')
	RESPTypeArray        = RESPType('*')
)

// RReader is a low-level, allocation-light RESP reader, used by RawCmd
// to discard replies to MULTI/queued commands without radix's own
// reflection-based decoding.
type RReader struct {
	r   *bufio.Reader
	err error
	buf []byte
}

func (r *RReader) Err() error { return r.err }

func (r *RReader) SetErr(err error) {
	if r.err == nil {
		r.err = err
	}
}

// ListHeader reads an array header, returning the number of elements
// that follow. -1 signals a nil array, 0 an empty one.
func (r *RReader) ListHeader() int {
	if r.err == nil {
		t, b := r.readNext(nil)
		if t == RESPTypeArray {
			var i int64
			if r.err == nil {
				i, r.err = parseInt(b)
			}
			return int(i)
		} else if r.err == nil {
			r.err = errors.New("not an array")
		}
	}
	return -1
}

func (r *RReader) Bool() bool {
	if r.err != nil {
		return false
	}
	_, b := r.readNextDiscardArray(nil)
	return len(b) > 0 && b[0] != '0'
}

func (r *RReader) Int(bitsize int) int64 {
	var i int64
	if r.err == nil {
		_, b := r.readNextDiscardArray(nil)
		if r.err == nil {
			i, r.err = parseInt(b)
		}
	}
	return i
}

func (r *RReader) Uint(bitsize int) uint64 {
	var u uint64
	if r.err == nil {
		_, b := r.readNextDiscardArray(nil)
		if r.err == nil {
			u, r.err = parseUint(b)
		}
	}
	return u
}

func (r *RReader) Float(bitsize int) float64 {
	var f float64
	if r.err == nil {
		_, b := r.readNextDiscardArray(nil)
		if r.err == nil {
			f, r.err = strconv.ParseFloat(string(b), bitsize)
		}
	}
	return f
}

// Str reads the next message as a string. If it isn't a RESP string
// type, the empty string is returned.
func (r *RReader) Str() string {
	if r.err == nil {
		t, b := r.readNextDiscardArray(nil)
		if t == RESPTypeSimpleString || t == RESPTypeBulkString {
			return string(b)
		}
	}
	return ""
}

// Blob reads the next message uninterpreted.
func (r *RReader) Blob() []byte {
	return r.AnyData(nil)
}

// AnyData reads the next message uninterpreted, reusing buf's backing
// array when it's large enough.
func (r *RReader) AnyData(buf []byte) []byte {
	if r.err == nil {
		_, b := r.readNextDiscardArray(buf)
		return b
	}
	return nil
}

// Next reads whatever RESP message comes next without interpretation.
func (r *RReader) Next(buf []byte) (typ RESPType, data []byte) {
	if r.err == nil {
		typ, data = r.readNext(buf)
	}
	return
}

func (r *RReader) readNext(buf []byte) (typ RESPType, data []byte) {
	typ, _ = r.r.ReadByte()
	if typ == RESPTypeBulkString {
		z, err := readIntLine(r.r)
		if err != nil {
			r.err = err
		} else if z < 1 {
			if z == 0 {
				_, r.err = r.r.Discard(2)
			}
		} else {
			if cap(buf) >= int(z) {
				data = buf[:z]
			} else {
				data = make([]byte, z)
			}
			if !r.readBytes(data) {
				data = nil
			}
		}
	} else {
		data, r.err = respReadLine(r.r)
		if typ == RESPTypeError {
			r.err = errors.New("redis: " + string(data))
		}
	}
	return
}

// Discard reads & discards the next message, including entire arrays --
// used to skip over the "+QUEUED" and "+OK" replies MULTI/SET/DEL send
// back while building a batch, and the array reply EXEC sends back.
func (r *RReader) Discard() {
	typ, _ := r.r.ReadByte()
	if typ == RESPTypeBulkString {
		z, err := readIntLine(r.r)
		if err != nil {
			r.err = err
		} else if z >= 0 {
			_, r.err = r.r.Discard(int(z) + 2)
		}
	} else {
		var data []byte
		data, r.err = respReadLine(r.r)
		if typ == RESPTypeError {
			r.err = errors.New("redis: " + string(data))
		} else if typ == RESPTypeArray {
			r.discardArrayElements(data)
		}
	}
}

func (r *RReader) readNextDiscardArray(buf []byte) (typ RESPType, data []byte) {
	typ, data = r.readNext(buf)
	if typ == RESPTypeArray {
		r.discardArrayElements(data)
	}
	return
}

func (r *RReader) discardArrayElements(arrayHeader []byte) {
	z, err := parseInt(arrayHeader)
	if err != nil && r.err == nil {
		r.err = err
		return
	}
	for i := 0; i < int(z) && r.err == nil; i++ {
		r.Discard()
	}
}

func (r *RReader) readBytes(buf []byte) bool {
	n, err := r.r.Read(buf)
	if err != nil {
		r.err = err
		return false
	}
	if n < len(buf) {
		r.err = errors.New("i/o short read")
		return false
	}
	_, r.err = r.r.Discard(2)
	return r.err == nil
}
