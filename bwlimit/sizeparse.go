package bwlimit

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec is a parsed --bwlimit argument: independent transmit and receive
// rates in bytes per second. Rx mirrors Tx when the argument gives only
// one rate ("8M" means 8M each way); "TX:RX" gives them independently
// ("1M:512K"); 0 means unlimited.
type Spec struct {
	Tx int64
	Rx int64
}

// ParseSize parses one rsync-style size string: an optional decimal
// number, a unit suffix (K=1024, M=K^2, G=K^3, T=K^4, case-insensitive,
// a trailing "B" is ignored), and an optional "+N" byte adjustment
// ("8M", "1.5m", "2048k+1").
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("bwlimit: empty size")
	}
	adjust := int64(0)
	if i := strings.IndexByte(s, '+'); i >= 0 {
		n, err := strconv.ParseInt(s[i+1:], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bwlimit: invalid +adjustment in %q: %w", s, err)
		}
		adjust = n
		s = s[:i]
	}

	unit := int64(1)
	numPart := s
	if n := len(s); n > 0 {
		last := s[n-1]
		lastLower := last | 0x20
		if lastLower == 'b' && n > 1 {
			// Trailing "B" as in "512KB"; strip it and look at the real
			// unit letter before it.
			s = s[:n-1]
			n--
			last = s[n-1]
			lastLower = last | 0x20
		}
		switch lastLower {
		case 'k':
			unit = 1024
			numPart = s[:n-1]
		case 'm':
			unit = 1024 * 1024
			numPart = s[:n-1]
		case 'g':
			unit = 1024 * 1024 * 1024
			numPart = s[:n-1]
		case 't':
			unit = 1024 * 1024 * 1024 * 1024
			numPart = s[:n-1]
		default:
			numPart = s
		}
	}

	f, err := strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, fmt.Errorf("bwlimit: invalid size %q: %w", s, err)
	}
	return int64(f*float64(unit)) + adjust, nil
}

// ParseSpec parses a full --bwlimit argument, including the "TX:RX" form
// and the "off" sentinel, which disables shaping entirely.
func ParseSpec(s string) (Spec, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "off") {
		return Spec{}, nil
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		tx, err := ParseSize(s[:i])
		if err != nil {
			return Spec{}, err
		}
		rx, err := ParseSize(s[i+1:])
		if err != nil {
			return Spec{}, err
		}
		return Spec{Tx: tx, Rx: rx}, nil
	}
	n, err := ParseSize(s)
	if err != nil {
		return Spec{}, err
	}
	return Spec{Tx: n, Rx: n}, nil
}
