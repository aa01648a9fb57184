package checksum

import (
	"crypto/md5"
	"fmt"
	"hash"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/crypto/md4"
)

// Type identifies a strong-checksum algorithm.
type Type int

// Recognized strong-checksum algorithms, weakest to strongest within each
// era.
const (
	Md4 Type = iota
	Md5
	Xxh64
	Xxh3_64
	Xxh3_128
)

// String renders the algorithm's rsync wire name, used in the vstring
// preference lists exchanged during negotiation.
func (t Type) String() string {
	switch t {
	case Md4:
		return "md4"
	case Md5:
		return "md5"
	case Xxh64:
		return "xxh64"
	case Xxh3_64:
		return "xxh3"
	case Xxh3_128:
		return "xxh128"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// ParseType maps an rsync wire algorithm name back to a Type.
func ParseType(name string) (Type, bool) {
	for _, t := range []Type{Xxh3_128, Xxh3_64, Xxh64, Md5, Md4} {
		if t.String() == name {
			return t, true
		}
	}
	return 0, false
}

// DefaultLength returns the wire truncation length for t under the
// given protocol version.
func (t Type) DefaultLength(protocolVersion int) int {
	switch t {
	case Md4:
		return 2
	case Md5:
		if protocolVersion >= 30 {
			return 16
		}
		return 2
	case Xxh64:
		return 8
	case Xxh3_64:
		return 8
	case Xxh3_128:
		return 16
	default:
		return 2
	}
}

// seedsFirst reports whether t digests the checksum seed before the block
// bytes (XXHash variants) rather than after (MD4/MD5).
func (t Type) seedsFirst() bool {
	switch t {
	case Xxh64, Xxh3_64, Xxh3_128:
		return true
	default:
		return false
	}
}

// Digester incrementally computes a seeded strong checksum. Strong() is a
// finalizer: for the seed-last algorithms (MD4/MD5) each call appends the
// seed again, so it is called once per Digester - callers that need a
// fresh digest construct a new Digester.
type Digester interface {
	// Write feeds block bytes into the digest. Unlike hash.Hash.Write, the
	// seed is applied automatically by NewDigester before any block bytes
	// are written (or deferred until Strong(), for algorithms that seed
	// after the block); callers only ever write plain block bytes.
	Write(p []byte) (int, error)
	// Strong returns the full-length digest, truncated by the caller to
	// the negotiated strong_sum_length.
	Strong() []byte
}

// hashDigester wraps a stdlib/x-crypto hash.Hash. For seed-last algorithms
// (MD4/MD5) Strong is a one-shot finalizer: it writes the seed bytes and
// sums, exactly mirroring how a plain hash.Hash is normally used (write
// everything, then Sum once) - it is not meant to be called more than once
// per instance, which matches every call site in this module (signature
// generation and delta generation construct one Digester per block, and
// whole-file verification one per file).
type hashDigester struct {
	h         hash.Hash
	seed      int32
	seedsLast bool
}

// NewDigester returns a Digester for t, salted with seed. For MD4, MD5
// and XXH64 the seed is folded in as its 4 little-endian bytes, the same
// representation it is transmitted in; the XXH3 variants take it as the
// hash's seed parameter instead.
func NewDigester(t Type, seed int32) (Digester, error) {
	switch t {
	case Md4:
		return &hashDigester{h: md4.New(), seed: seed, seedsLast: true}, nil
	case Md5:
		return &hashDigester{h: md5.New(), seed: seed, seedsLast: true}, nil
	case Xxh64:
		d := &hashDigester{h: xxhash.New(), seed: seed, seedsLast: false}
		var buf [4]byte
		putSeedLE(buf[:], seed)
		_, _ = d.h.Write(buf[:])
		return d, nil
	case Xxh3_64:
		return newXxh3Digester(seed, false), nil
	case Xxh3_128:
		return newXxh3Digester(seed, true), nil
	default:
		return nil, fmt.Errorf("checksum: unknown strong type %d", int(t))
	}
}

func (d *hashDigester) Write(p []byte) (int, error) {
	return d.h.Write(p)
}

// Strong finalizes the digest. For seed-last algorithms this writes the
// seed bytes as the final input before summing, so it must be called
// exactly once per Digester (every call site in this module does so:
// signature generation and delta generation each build one Digester per
// block or per whole file).
func (d *hashDigester) Strong() []byte {
	if d.seedsLast {
		var buf [4]byte
		putSeedLE(buf[:], d.seed)
		_, _ = d.h.Write(buf[:])
	}
	return d.h.Sum(nil)
}

func putSeedLE(b []byte, v int32) {
	u := uint32(v)
	b[0] = byte(u)
	b[1] = byte(u >> 8)
	b[2] = byte(u >> 16)
	b[3] = byte(u >> 24)
}

// BlockStrong is a convenience for the common one-shot case: digest a
// single block (or the whole file) under t with seed in one call.
func BlockStrong(t Type, seed int32, block []byte) ([]byte, error) {
	d, err := NewDigester(t, seed)
	if err != nil {
		return nil, err
	}
	if _, err := d.Write(block); err != nil {
		return nil, err
	}
	return d.Strong(), nil
}
