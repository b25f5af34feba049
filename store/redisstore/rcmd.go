package redisstore

import (
	"bufio"
	"fmt"
	"io"

	"github.com/mediocregopher/radix/v3"
)

// RCmd adapts an arbitrary Encode/Decode function pair to radix's
// Marshaler/Unmarshaler interfaces -- a general-purpose escape hatch
// for one-off commands that don't warrant their own named type.
type RCmd struct {
	Encode func(w *RWriter) error
	Decode func(r *RReader) error
}

func (a *RCmd) Keys() []string { return []string{} }

func (a *RCmd) String() string {
	return fmt.Sprintf("RCmd{Encode:%v, Decode:%v}", a.Encode, a.Decode)
}

func (a *RCmd) Run(c radix.Conn) error {
	if err := c.Encode(a); err != nil {
		return err
	}
	return c.Decode(a)
}

func (a *RCmd) MarshalRESP(w io.Writer) error {
	writer := RWriter{buf: make([]byte, 0, 128)}
	if err := a.Encode(&writer); err != nil {
		return err
	}
	if len(writer.buf) > 0 {
		if _, err := w.Write(writer.buf); err != nil {
			return err
		}
	}
	return writer.err
}

func (a *RCmd) UnmarshalRESP(r *bufio.Reader) error {
	var buf [32]byte
	reader := RReader{r: r, buf: buf[:]}
	err := a.Decode(&reader)
	if err == nil {
		err = reader.err
	}
	return err
}
