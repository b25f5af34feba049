package lodis

import (
	"strconv"

	"github.com/pkg/errors"
)

// Dispatcher binds the three engines and the keyed lock registry that
// Dispatch uses to run a parsed command. cmd/lodis constructs one
// Dispatcher per process, backed by whichever Storage adapter the
// deployment chose, and hands it to internal/server.
type Dispatcher struct {
	Lists  *ListEngine
	Hashes *HashEngine
	Arrays *ArrayMapEngine
	Locks  *LockRegistry
}

// lock family tags for the keyed lock registry. These are coarser than
// the Storage key-schema kind tags in keys.go -- every List command
// locks on lockList regardless of whether it touches meta or a slot --
// but share the same (tag, name) shape.
const (
	lockNone byte = iota
	lockList
	lockHash
	lockArray
)

type commandSpec struct {
	minArgs int
	maxArgs int // -1 means unbounded
	pairs   bool
	lock    byte
	fn      func(d *Dispatcher, name []byte, args [][]byte) (Result, error)
}

func (s commandSpec) validate(args [][]byte) error {
	if len(args) < s.minArgs || (s.maxArgs >= 0 && len(args) > s.maxArgs) {
		return errors.Wrapf(ErrBadArity, "expected %d..%d arguments, got %d", s.minArgs, s.maxArgs, len(args))
	}
	if s.pairs && len(args)%2 != 0 {
		return errors.Wrap(ErrBadArity, "expected an even number of field/value arguments")
	}
	return nil
}

// commandTable maps a command name to its argument shape and
// implementation. Dispatch does exactly one lookup plus one function
// value call -- there is no per-command vtable beyond this map.
var commandTable = map[string]commandSpec{
	"PING": {minArgs: 0, maxArgs: 0, lock: lockNone, fn: cmdPing},

	"LPUSH":   {minArgs: 1, maxArgs: -1, lock: lockList, fn: cmdLPush},
	"RPUSH":   {minArgs: 1, maxArgs: -1, lock: lockList, fn: cmdRPush},
	"LPOP":    {minArgs: 0, maxArgs: 0, lock: lockList, fn: cmdLPop},
	"RPOP":    {minArgs: 0, maxArgs: 0, lock: lockList, fn: cmdRPop},
	"RANDPOP": {minArgs: 0, maxArgs: 0, lock: lockList, fn: cmdRandPop},
	"LRANGE":  {minArgs: 2, maxArgs: 2, lock: lockList, fn: cmdLRange},
	"RRANGE":  {minArgs: 2, maxArgs: 2, lock: lockList, fn: cmdRRange},
	"LINDEX":  {minArgs: 1, maxArgs: 1, lock: lockList, fn: cmdLIndex},
	"LRAND":   {minArgs: 0, maxArgs: 0, lock: lockList, fn: cmdLRand},
	"LLEN":    {minArgs: 0, maxArgs: 0, lock: lockList, fn: cmdLLen},
	"LDEL":    {minArgs: 1, maxArgs: 1, lock: lockList, fn: cmdLDel},
	"LRM":     {minArgs: 0, maxArgs: 0, lock: lockList, fn: cmdLRm},

	"HGET":    {minArgs: 1, maxArgs: 1, lock: lockHash, fn: cmdHGet},
	"HSET":    {minArgs: 2, maxArgs: 2, lock: lockHash, fn: cmdHSet},
	"HSETNX":  {minArgs: 2, maxArgs: 2, lock: lockHash, fn: cmdHSetNX},
	"HMSET":   {minArgs: 2, maxArgs: -1, pairs: true, lock: lockHash, fn: cmdHMSet},
	"HMGET":   {minArgs: 1, maxArgs: -1, lock: lockHash, fn: cmdHMGet},
	"HINCRBY": {minArgs: 2, maxArgs: 2, lock: lockHash, fn: cmdHIncrBy},
	"HGETALL": {minArgs: 0, maxArgs: 0, lock: lockHash, fn: cmdHGetAll},
	"HKEYS":   {minArgs: 0, maxArgs: 0, lock: lockHash, fn: cmdHKeys},
	"HVALS":   {minArgs: 0, maxArgs: 0, lock: lockHash, fn: cmdHVals},
	"HEXISTS": {minArgs: 1, maxArgs: 1, lock: lockHash, fn: cmdHExists},
	"HLEN":    {minArgs: 0, maxArgs: 0, lock: lockHash, fn: cmdHLen},
	"HDEL":    {minArgs: 1, maxArgs: 1, lock: lockHash, fn: cmdHDel},
	"HRM":     {minArgs: 0, maxArgs: 0, lock: lockHash, fn: cmdHRm},

	"ALPUSH":   {minArgs: 2, maxArgs: -1, pairs: true, lock: lockArray, fn: cmdALPush},
	"ARPUSH":   {minArgs: 2, maxArgs: -1, pairs: true, lock: lockArray, fn: cmdARPush},
	"ALPUSHNX": {minArgs: 2, maxArgs: -1, pairs: true, lock: lockArray, fn: cmdALPushNX},
	"ARPUSHNX": {minArgs: 2, maxArgs: -1, pairs: true, lock: lockArray, fn: cmdARPushNX},
	"AGET":     {minArgs: 1, maxArgs: 1, lock: lockArray, fn: cmdAGet},
	"AEXISTS":  {minArgs: 1, maxArgs: 1, lock: lockArray, fn: cmdAExists},
	"ALEN":     {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdALen},
	"ALPOP":    {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdALPop},
	"ARPOP":    {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdARPop},
	"ARANDPOP": {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdARandPop},
	"ADEL":     {minArgs: 1, maxArgs: 1, lock: lockArray, fn: cmdADel},
	"ALRANGE":  {minArgs: 2, maxArgs: 2, lock: lockArray, fn: cmdALRange},
	"ARRANGE":  {minArgs: 2, maxArgs: 2, lock: lockArray, fn: cmdARRange},
	"AKEYS":    {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdAKeys},
	"AVALS":    {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdAVals},
	"AALL":     {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdAAll},
	"ARAND":    {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdARand},
	"AINCRBY":  {minArgs: 2, maxArgs: 2, lock: lockArray, fn: cmdAIncrBy},
	"ARM":      {minArgs: 0, maxArgs: 0, lock: lockArray, fn: cmdARm},
}

// Dispatch looks up cmd in the table, validates args against its arity,
// acquires the (lock family, name) mutex if the command needs one, and
// runs it. PING bypasses the lock registry entirely -- it is a
// server-level command, not a structure-level one.
func Dispatch(d *Dispatcher, cmd string, name []byte, args [][]byte) (Result, error) {
	spec, ok := commandTable[cmd]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCommand, "%q", cmd)
	}
	if err := spec.validate(args); err != nil {
		return nil, err
	}
	if spec.lock == lockNone {
		return spec.fn(d, name, args)
	}
	release := d.Locks.Acquire(spec.lock, name)
	defer release()
	return spec.fn(d, name, args)
}

func splitPairs(args [][]byte) (firsts, seconds [][]byte) {
	n := len(args) / 2
	firsts = make([][]byte, n)
	seconds = make([][]byte, n)
	for i := 0; i < n; i++ {
		firsts[i] = args[2*i]
		seconds[i] = args[2*i+1]
	}
	return
}

func parseArgInt64(b []byte) (int64, error) {
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return 0, errors.Wrap(ErrBadArgument, err.Error())
	}
	return n, nil
}

func cmdPing(d *Dispatcher, name []byte, args [][]byte) (Result, error) { return No{}, nil }

// --- List ---

func cmdLPush(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	return No{}, d.Lists.Push(name, true, args)
}

func cmdRPush(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	return No{}, d.Lists.Push(name, false, args)
}

func cmdLPop(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	v, err := d.Lists.Pop(name, true)
	return Bytes(v), err
}

func cmdRPop(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	v, err := d.Lists.Pop(name, false)
	return Bytes(v), err
}

func cmdRandPop(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	v, err := d.Lists.RandPop(name)
	return Bytes(v), err
}

func cmdLRange(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	start, end, err := parseRange(args)
	if err != nil {
		return nil, err
	}
	vs, err := d.Lists.Range(name, start, end, true)
	return List(vs), err
}

func cmdRRange(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	start, end, err := parseRange(args)
	if err != nil {
		return nil, err
	}
	vs, err := d.Lists.Range(name, start, end, false)
	return List(vs), err
}

func parseRange(args [][]byte) (start, end int64, err error) {
	start, err = parseArgInt64(args[0])
	if err != nil {
		return 0, 0, err
	}
	end, err = parseArgInt64(args[1])
	return start, end, err
}

func cmdLIndex(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	k, err := parseArgInt64(args[0])
	if err != nil {
		return nil, err
	}
	v, err := d.Lists.Index(name, k)
	return Bytes(v), err
}

func cmdLRand(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	v, err := d.Lists.Rand(name)
	return Bytes(v), err
}

func cmdLLen(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	n, err := d.Lists.Len(name)
	return Int(uint64(n)), err
}

func cmdLDel(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	k, err := parseArgInt64(args[0])
	if err != nil {
		return nil, err
	}
	ok, err := d.Lists.DelAt(name, k)
	return Bool(ok), err
}

func cmdLRm(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Lists.Remove(name)
	return Bool(ok), err
}

// --- HashMap ---

func cmdHGet(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	v, err := d.Hashes.Get(name, args[0])
	return Bytes(v), err
}

func cmdHSet(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	return No{}, d.Hashes.Set(name, args[0], args[1])
}

func cmdHSetNX(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	return No{}, d.Hashes.SetNX(name, args[0], args[1])
}

func cmdHMSet(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	fields, values := splitPairs(args)
	return No{}, d.Hashes.MSet(name, fields, values)
}

func cmdHMGet(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	opts, err := d.Hashes.MGet(name, args)
	return ListOption(opts), err
}

func cmdHIncrBy(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	delta, err := parseArgInt64(args[1])
	if err != nil {
		return nil, err
	}
	return No{}, d.Hashes.IncrBy(name, args[0], delta)
}

func cmdHGetAll(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	pairs, err := d.Hashes.GetAll(name)
	return Pairs(pairs), err
}

func cmdHKeys(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ks, err := d.Hashes.Keys(name)
	return List(ks), err
}

func cmdHVals(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	vs, err := d.Hashes.Vals(name)
	return List(vs), err
}

func cmdHExists(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Hashes.Exists(name, args[0])
	return Bool(ok), err
}

func cmdHLen(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	n, err := d.Hashes.Len(name)
	return Int(uint64(n)), err
}

func cmdHDel(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Hashes.Del(name, args[0])
	return Bool(ok), err
}

func cmdHRm(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Hashes.Remove(name)
	return Bool(ok), err
}

// --- ArrayMap ---

func cmdALPush(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	fields, values := splitPairs(args)
	return No{}, d.Arrays.Push(name, true, false, fields, values)
}

func cmdARPush(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	fields, values := splitPairs(args)
	return No{}, d.Arrays.Push(name, false, false, fields, values)
}

func cmdALPushNX(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	fields, values := splitPairs(args)
	return No{}, d.Arrays.Push(name, true, true, fields, values)
}

func cmdARPushNX(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	fields, values := splitPairs(args)
	return No{}, d.Arrays.Push(name, false, true, fields, values)
}

func cmdAGet(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	v, err := d.Arrays.Get(name, args[0])
	return Bytes(v), err
}

func cmdAExists(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Arrays.Exists(name, args[0])
	return Bool(ok), err
}

func cmdALen(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	n, err := d.Arrays.Len(name)
	return Int(uint64(n)), err
}

func cmdALPop(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	p, err := d.Arrays.Pop(name, true)
	return p, err
}

func cmdARPop(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	p, err := d.Arrays.Pop(name, false)
	return p, err
}

func cmdARandPop(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	p, err := d.Arrays.RandPop(name)
	return p, err
}

func cmdADel(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Arrays.Del(name, args[0])
	return Bool(ok), err
}

func cmdALRange(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	start, end, err := parseRange(args)
	if err != nil {
		return nil, err
	}
	pairs, err := d.Arrays.Range(name, start, end, true)
	return Pairs(pairs), err
}

func cmdARRange(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	start, end, err := parseRange(args)
	if err != nil {
		return nil, err
	}
	pairs, err := d.Arrays.Range(name, start, end, false)
	return Pairs(pairs), err
}

func cmdAKeys(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ks, err := d.Arrays.Keys(name)
	return List(ks), err
}

func cmdAVals(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	vs, err := d.Arrays.Vals(name)
	return List(vs), err
}

func cmdAAll(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	pairs, err := d.Arrays.All(name)
	return Pairs(pairs), err
}

func cmdARand(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	p, err := d.Arrays.Rand(name)
	return p, err
}

func cmdAIncrBy(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	delta, err := parseArgInt64(args[1])
	if err != nil {
		return nil, err
	}
	return No{}, d.Arrays.IncrBy(name, args[0], delta)
}

func cmdARm(d *Dispatcher, name []byte, args [][]byte) (Result, error) {
	ok, err := d.Arrays.Remove(name)
	return Bool(ok), err
}
