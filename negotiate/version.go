// Package negotiate implements the protocol negotiator: the
// version handshake, compat-flag exchange, checksum-seed exchange, and
// checksum/compression algorithm negotiation that precede every session.
package negotiate

import (
	"fmt"
	"io"

	"github.com/nthconn/rsyncgo/wire"
)

// MinProtocolVersion and MaxProtocolVersion bound the protocol versions
// this engine interoperates with (protocol versions 28-32).
const (
	MinProtocolVersion = 28
	MaxProtocolVersion = 32
)

// ProtocolVersion is the negotiated protocol number. Once negotiated it
// never changes.
type ProtocolVersion int

// Valid reports whether v is within the supported range.
func (v ProtocolVersion) Valid() bool {
	return v >= MinProtocolVersion && v <= MaxProtocolVersion
}

// SupportsCompatFlags reports whether this protocol version exchanges a
// compat-flag bitmask (protocol >= 30).
func (v ProtocolVersion) SupportsCompatFlags() bool {
	return v >= 30
}

// NegotiateVersion returns min(peerMax, localMax), capped at
// MaxProtocolVersion. It does not perform I/O itself - callers exchange
// each side's maximum as a 4-byte little-endian integer (WriteVersion/
// ReadVersion) over the prologue (pre-multiplex) connection and pass the
// peer's advertised value here.
func NegotiateVersion(localMax, peerMax int) (ProtocolVersion, error) {
	negotiated := localMax
	if peerMax < negotiated {
		negotiated = peerMax
	}
	if negotiated < MinProtocolVersion {
		return 0, fmt.Errorf("%w: negotiated protocol %d below minimum %d", ErrProtocolTooOld, negotiated, MinProtocolVersion)
	}
	if negotiated > MaxProtocolVersion {
		negotiated = MaxProtocolVersion
	}
	return ProtocolVersion(negotiated), nil
}

// DaemonGreeting formats the ASCII "@RSYNCD: <major>.<minor>\n" line used
// in daemon/legacy mode.
func DaemonGreeting(major, minor int) string {
	return fmt.Sprintf("@RSYNCD: %d.%d\n", major, minor)
}

// ParseDaemonGreeting extracts major/minor from a "@RSYNCD: X.Y\n" line.
func ParseDaemonGreeting(line string) (major, minor int, err error) {
	n, err := fmt.Sscanf(line, "@RSYNCD: %d.%d", &major, &minor)
	if err != nil || n != 2 {
		return 0, 0, fmt.Errorf("%w: malformed daemon greeting %q", ErrNegotiationTruncated, line)
	}
	return major, minor, nil
}

// WriteVersion and ReadVersion give callers a concrete binary-mode I/O
// path over the prologue writer/reader, matching wire's int32 helpers.
func WriteVersion(w io.Writer, v int) error {
	return wire.WriteInt32LE(w, int32(v))
}

func ReadVersion(r io.Reader) (int, error) {
	v, err := wire.ReadInt32LE(r)
	return int(v), err
}
