package lodis

import "errors"

// Sentinel errors returned by the engine and command layers. Where they
// add detail (the unknown command's name, the duplicate field, the parse
// failure), they wrap these with github.com/pkg/errors without losing
// the sentinel for errors.Is. Storage adapter errors are passed through
// unwrapped.
var (
	// ErrNotFound names the "key has no value" case. No adapter or engine
	// in this module returns it: Storage.Get reports absence as (nil, nil),
	// since a missing name or field is absence, not failure.
	ErrNotFound = errors.New("lodis: not found")

	// ErrBadArity is returned by the command layer when a command receives
	// too few, too many, or an odd number of arguments where pairs are
	// required (HMSET, AL(R)PUSH{,NX}).
	ErrBadArity = errors.New("lodis: bad argument count")

	// ErrBadArgument is returned when an argument is present but malformed,
	// e.g. a non-empty name required where an empty one was given, or a
	// delta that doesn't parse as an integer (HINCRBY, AINCRBY).
	ErrBadArgument = errors.New("lodis: bad argument")

	// ErrProtocol is returned by the wire codec when a request body cannot
	// be parsed as a sequence of length-prefixed argument frames.
	ErrProtocol = errors.New("lodis: protocol error")

	// ErrUnknownCommand is returned when the path's <COMMAND> segment does
	// not match any entry in the dispatch table.
	ErrUnknownCommand = errors.New("lodis: unknown command")

	// ErrNotInteger is returned by HINCRBY/AINCRBY when the field's current
	// value does not parse as a base-10 int64. A delta argument that does
	// not parse is ErrBadArgument instead.
	ErrNotInteger = errors.New("lodis: value is not an integer")

	// ErrClosed names the "storage already closed" case. None of the
	// adapters in store/ return it; they do not track whether Close has
	// been called.
	ErrClosed = errors.New("lodis: storage is closed")
)
