package negotiate

import (
	"io"
	"os"
	"time"

	"github.com/nthconn/rsyncgo/wire"
)

// GenerateSeed produces the sender-side checksum seed: timestamp XOR
// (pid << 6).
func GenerateSeed() int32 {
	return int32(time.Now().Unix()) ^ int32(os.Getpid()<<6)
}

// WriteSeed transmits the checksum seed as 4 little-endian bytes.
func WriteSeed(w io.Writer, seed int32) error {
	return wire.WriteInt32LE(w, seed)
}

// ReadSeed reads a checksum seed written by WriteSeed.
func ReadSeed(r io.Reader) (int32, error) {
	return wire.ReadInt32LE(r)
}

// SeedOrder reports whether the checksum seed is sent before the file list
// (CHECKSUM_SEED_FIX set) or after it (clear).
func SeedOrder(flags CompatFlags) SeedPosition {
	if flags.Has(ChecksumSeedFix) {
		return SeedBeforeFileList
	}
	return SeedAfterFileList
}

// SeedPosition names where in the session stream the checksum seed is
// exchanged relative to the file list.
type SeedPosition int

const (
	SeedBeforeFileList SeedPosition = iota
	SeedAfterFileList
)
