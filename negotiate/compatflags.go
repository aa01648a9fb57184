package negotiate

import (
	"io"

	"github.com/nthconn/rsyncgo/wire"
)

// CompatFlags is the 16-bit capability bitmask exchanged once after the
// version handshake on protocol >= 30.
type CompatFlags uint16

// Recognized compat-flag bits.
const (
	IncRecurse       CompatFlags = 0x01
	SymlinkTimes     CompatFlags = 0x02
	SymlinkIconv     CompatFlags = 0x04
	SafeFileList     CompatFlags = 0x08
	AvoidXattrOptim  CompatFlags = 0x10
	ChecksumSeedFix  CompatFlags = 0x20
	InplacePartialDir CompatFlags = 0x40
	VarintFlistFlags CompatFlags = 0x80
	ID0Names         CompatFlags = 0x100
)

// Has reports whether bit is set in f.
func (f CompatFlags) Has(bit CompatFlags) bool {
	return f&bit != 0
}

// Intersect computes the effective flag set: the bitwise AND of both
// peers' advertised flags: the bitwise AND of both sides.
func Intersect(local, peer CompatFlags) CompatFlags {
	return local & peer
}

// WriteCompatFlags writes f as a varint.
func WriteCompatFlags(w io.Writer, f CompatFlags) error {
	return wire.WriteVarint(w, int64(f))
}

// ReadCompatFlags reads a peer's advertised flag set.
func ReadCompatFlags(r io.Reader) (CompatFlags, error) {
	v, err := wire.ReadVarint(r)
	if err != nil {
		return 0, err
	}
	return CompatFlags(v), nil
}
