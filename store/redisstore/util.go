package redisstore

import (
	"fmt"
	"math"
	"strconv"
)

func bufgrow(buf *[]byte, addlSizeNeeded int) {
	if cap(*buf)-len(*buf) < addlSizeNeeded {
		_bufgrow(buf, addlSizeNeeded)
	}
}

func _bufgrow(buf *[]byte, z int) {
	l := len(*buf)
	buf2 := make([]byte, l, cap(*buf)*2+z)
	copy(buf2, *buf)
	*buf = buf2
}

// parseInt is a specialized version of strconv.ParseInt, avoiding the
// allocation strconv.ParseInt(string(b), ...) would require.
func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, nil
	}
	var neg bool
	if b[0] == '-' || b[0] == '+' {
		neg = b[0] == '-'
		b = b[1:]
	}
	n, err := parseUint(b)
	if err != nil {
		return 0, err
	}
	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}

// parseUint is a specialized version of strconv.ParseUint.
func parseUint(b []byte) (uint64, error) {
	if len(b) == 1 {
		return uint64(b[0] - '0'), nil
	}
	return _parseUint(b)
}

func _parseUint(b []byte) (uint64, error) {
	var n uint64
	for i, c := range b {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("parseUint: invalid byte %c at %d", c, i)
		}
		n *= 10
		n += uint64(c - '0')
	}
	return n, nil
}

func appendFloat(b []byte, v float64, bitsize int) []byte {
	format := byte('f')
	abs := math.Abs(v)
	if abs != 0 {
		if bitsize == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bitsize == 32 && (float32(abs) < 1e-6 ||
				float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	return strconv.AppendFloat(b, v, format, -1, bitsize)
}
