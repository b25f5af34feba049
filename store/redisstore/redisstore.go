// Package redisstore implements the lodis.Storage contract against a
// Redis server -- the same engines that run on store/pebblestore run
// unmodified here, which is the point: Storage is a thin enough
// contract that an LSM-tree adapter and a networked key-value adapter
// can both satisfy it. Its connection-management shape (Open/
// OpenRetry/Close/Logger) and its hand-rolled RESP codec (resp.go,
// resp-read.go, resp-write.go, rcmd.go, util.go) are a generic RESP
// client; on top of it this package builds plain GET/SET/DEL/SCAN/
// MULTI-EXEC for the flat key-value contract Lodis needs.
package redisstore

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mediocregopher/radix/v3"
	"github.com/pkg/errors"
	"github.com/rsms/go-log"

	"github.com/lodis-io/lodis"
)

// Store is a networked lodis.Storage backed by a Redis server.
type Store struct {
	Logger *log.Logger

	pool *radix.Pool
}

var _ lodis.Storage = (*Store)(nil)

// Open connects to a Redis server at addr with a connection pool of the
// given size.
func Open(addr string, poolSize int) (*Store, error) {
	pool, err := radix.NewPool("tcp", addr, poolSize)
	if err != nil {
		return nil, errors.Wrapf(err, "redisstore: connect to %s", addr)
	}
	return &Store{pool: pool}, nil
}

// OpenRetry calls Open until it succeeds, backing off between attempts
// with an exponential/jittered schedule, capped at maxElapsed (zero
// means retry forever).
func OpenRetry(addr string, poolSize int, logger *log.Logger, maxElapsed time.Duration) (*Store, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed

	var s *Store
	op := func() error {
		var err error
		s, err = Open(addr, poolSize)
		if err != nil && logger != nil {
			logger.Warn("redisstore: %s; retrying", err)
		}
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return nil, err
	}
	s.Logger = logger
	return s, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.pool.Do(radix.FlatCmd(&value, "GET", key))
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) Put(key, value []byte) error {
	return s.pool.Do(radix.FlatCmd(nil, "SET", key, value))
}

func (s *Store) Delete(key []byte) error {
	return s.pool.Do(radix.FlatCmd(nil, "DEL", key))
}

// ScanPrefix enumerates every key matching prefix+"*" with radix's
// cursor-based Scanner (itself a thin wrapper around repeated SCAN
// calls), then fetches each key's value with a plain GET. Order is
// whatever Redis's hash-table-bucket iteration yields, not necessarily
// ascending byte order -- callers that depend on ordering (HGETALL/
// HKEYS/HVALS; ArrayMap reads its slots by key, not by scan) should
// prefer store/pebblestore or store/memstore for a
// deployment where enumeration order matters to a client.
func (s *Store) ScanPrefix(prefix []byte, fn func(key, value []byte) error) error {
	scanner := radix.NewScanner(s.pool, radix.ScanOpts{
		Command: "SCAN",
		Pattern: escapeGlob(prefix) + "*",
		Count:   1000,
	})
	var key string
	for scanner.Next(&key) {
		val, err := s.Get([]byte(key))
		if err != nil {
			return err
		}
		if err := fn([]byte(key), val); err != nil {
			return err
		}
	}
	return scanner.Close()
}

// escapeGlob backslash-escapes the glob metacharacters SCAN's MATCH
// pattern treats specially (*, ?, [, ], \) so that a prefix built from
// a client-supplied structure name is matched literally, not as a
// pattern -- a name containing e.g. "*" would otherwise glob-match
// unrelated keys.
func escapeGlob(prefix []byte) string {
	buf := make([]byte, 0, len(prefix))
	for _, c := range prefix {
		switch c {
		case '*', '?', '[', ']', '\\':
			buf = append(buf, '\\', c)
		default:
			buf = append(buf, c)
		}
	}
	return string(buf)
}

// constant commands without results, sent verbatim over a reserved
// connection when driving a MULTI/EXEC transaction by hand.
var (
	cmdDISCARD = RawCmd{[]byte("*1\r\n$7\r\nDISCARD\r\n")}
	cmdEXEC    = RawCmd{[]byte("*1\r\n$4\r\nEXEC\r\n")}
	cmdMULTI   = RawCmd{[]byte("*1\r\n$5\r\nMULTI\r\n")}
)

// WriteBatch applies ops atomically using Redis's own MULTI/EXEC
// transaction, over a single reserved connection (radix.WithConn),
// exactly the mechanism the keyed lock registry (locks.go) and the
// Storage contract expect: either every op lands, or (on a mid-batch
// error) none of them do, via DISCARD.
func (s *Store) WriteBatch(ops []lodis.BatchOp) error {
	return s.pool.Do(radix.WithConn("", func(conn radix.Conn) error {
		if err := conn.Do(&cmdMULTI); err != nil {
			return err
		}
		for _, op := range ops {
			cmd := &RawCmd{respAppendArray(nil, opArgs(op))}
			if err := conn.Do(cmd); err != nil {
				conn.Do(&cmdDISCARD)
				return err
			}
		}
		return conn.Do(&cmdEXEC)
	}))
}

func opArgs(op lodis.BatchOp) [][]byte {
	if op.Kind == lodis.OpDelete {
		return [][]byte{[]byte("DEL"), op.Key}
	}
	return [][]byte{[]byte("SET"), op.Key, op.Value}
}

func (s *Store) Close() error {
	return s.pool.Close()
}

// RawCmd sends verbatim RESP bytes over a connection and discards
// whatever reply comes back (the "+OK"/"+QUEUED"/array-of-replies a
// command issued inside a MULTI/EXEC transaction produces).
type RawCmd struct {
	Data []byte // never mutated
}

func (c *RawCmd) Keys() []string { return []string{} }

func (c *RawCmd) Run(conn radix.Conn) error {
	if err := conn.Encode(c); err != nil {
		return err
	}
	return conn.Decode(c)
}

func (c *RawCmd) MarshalRESP(w io.Writer) error {
	_, err := w.Write(c.Data)
	return err
}

func (c *RawCmd) UnmarshalRESP(r *bufio.Reader) error {
	var buf [32]byte
	reader := RReader{r: r, buf: buf[:]}
	reader.Discard()
	return reader.Err()
}

func (c *RawCmd) String() string {
	return fmt.Sprintf("RawCmd(%d bytes)", len(c.Data))
}
