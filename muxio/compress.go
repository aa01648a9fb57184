package muxio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionAlgo identifies a negotiated compression algorithm.
type CompressionAlgo int

// Recognized compression algorithms, listed weakest first; negotiation
// prefers them in the reverse order (zstd lz4 zlibx zlib none).
const (
	CompressNone CompressionAlgo = iota
	CompressZlib
	CompressZlibX
	CompressLz4
	CompressZstd
)

// String renders the algorithm's rsync wire name.
func (a CompressionAlgo) String() string {
	switch a {
	case CompressNone:
		return "none"
	case CompressZlib:
		return "zlib"
	case CompressZlibX:
		return "zlibx"
	case CompressLz4:
		return "lz4"
	case CompressZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int(a))
	}
}

// ParseCompressionAlgo maps an rsync wire algorithm name back to a
// CompressionAlgo.
func ParseCompressionAlgo(name string) (CompressionAlgo, bool) {
	for _, a := range []CompressionAlgo{CompressZstd, CompressLz4, CompressZlibX, CompressZlib, CompressNone} {
		if a.String() == name {
			return a, true
		}
	}
	return 0, false
}

// Compressor streams DATA-frame payloads through a negotiated codec.
// The zlib codecs keep encoder state across calls (the stream stack is
// Plain -> Multiplex -> Compress for the lifetime of the session, spec
// 4.1), flushing enough of the codec's internal buffer on each call that
// the peer can decode incrementally rather than waiting for session end;
// the lz4 and zstd codecs encode each chunk on its own.
type Compressor interface {
	CompressChunk(p []byte) ([]byte, error)
}

// Decompressor is the receive-side counterpart of Compressor.
type Decompressor interface {
	DecompressChunk(p []byte) ([]byte, error)
}

// NewCompressor builds the send-side codec for algo.
func NewCompressor(algo CompressionAlgo, level int) (Compressor, error) {
	switch algo {
	case CompressNone:
		return noopCompressor{}, nil
	case CompressZlib:
		return newZlibCompressor(level, false)
	case CompressZlibX:
		return newZlibCompressor(level, true)
	case CompressLz4:
		return newLz4Compressor(), nil
	case CompressZstd:
		return newZstdCompressor(level)
	default:
		return nil, fmt.Errorf("muxio: unknown compression algorithm %d", int(algo))
	}
}

// NewDecompressor builds the receive-side codec for algo.
func NewDecompressor(algo CompressionAlgo) (Decompressor, error) {
	switch algo {
	case CompressNone:
		return noopCompressor{}, nil
	case CompressZlib:
		return newZlibDecompressor(false)
	case CompressZlibX:
		return newZlibDecompressor(true)
	case CompressLz4:
		return newLz4Decompressor(), nil
	case CompressZstd:
		return newZstdDecompressor()
	default:
		return nil, fmt.Errorf("muxio: unknown compression algorithm %d", int(algo))
	}
}

type noopCompressor struct{}

func (noopCompressor) CompressChunk(p []byte) ([]byte, error)   { return p, nil }
func (noopCompressor) DecompressChunk(p []byte) ([]byte, error) { return p, nil }

// zlibCompressor wraps either a full zlib stream (Zlib) or a raw deflate
// stream (ZlibX - rsync's variant that skips the zlib header/adler32
// trailer since the multiplex framing already provides length and the
// whole-file strong checksum already provides integrity).
type zlibCompressor struct {
	out *bytes.Buffer
	raw bool
	zw  *zlib.Writer
	fw  *flate.Writer
}

func newZlibCompressor(level int, raw bool) (*zlibCompressor, error) {
	if level <= 0 {
		level = zlib.DefaultCompression
	}
	c := &zlibCompressor{out: &bytes.Buffer{}, raw: raw}
	var err error
	if raw {
		c.fw, err = flate.NewWriter(c.out, level)
	} else {
		c.zw, err = zlib.NewWriterLevel(c.out, level)
	}
	return c, err
}

func (c *zlibCompressor) CompressChunk(p []byte) ([]byte, error) {
	c.out.Reset()
	var err error
	if c.raw {
		_, err = c.fw.Write(p)
		if err == nil {
			err = c.fw.Flush()
		}
	} else {
		_, err = c.zw.Write(p)
		if err == nil {
			err = c.zw.Flush()
		}
	}
	if err != nil {
		return nil, err
	}
	out := make([]byte, c.out.Len())
	copy(out, c.out.Bytes())
	return out, nil
}

// zlibDecompressor inflates each chunk as an independent stream. This
// matches the sender side's Z_SYNC_FLUSH-per-chunk behavior: a sync flush
// pads the deflate bitstream out to a byte boundary with an empty
// stored block, which the standard library's flate reader accepts as a
// complete, self-contained stream (it stops at the first stored-block
// boundary rather than demanding the final-block bit), so a fresh reader
// per chunk decodes cleanly without cross-call state.
type zlibDecompressor struct {
	raw bool
}

func newZlibDecompressor(raw bool) (*zlibDecompressor, error) {
	return &zlibDecompressor{raw: raw}, nil
}

func (d *zlibDecompressor) DecompressChunk(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	var zr io.ReadCloser
	var err error
	if d.raw {
		zr = flate.NewReader(bytes.NewReader(p))
	} else {
		zr, err = zlib.NewReader(bytes.NewReader(p))
		if err != nil {
			return nil, err
		}
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return out, nil
}

type lz4Compressor struct{}

func newLz4Compressor() *lz4Compressor { return &lz4Compressor{} }

func (c *lz4Compressor) CompressChunk(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(p))+4)
	var compressor lz4.Compressor
	n, err := compressor.CompressBlock(p, dst[4:])
	if err != nil {
		return nil, err
	}
	// Prefix with the uncompressed length so the receiver can size its
	// decompression buffer (lz4 block mode, unlike the frame format,
	// carries no length of its own).
	putUint32LE(dst, uint32(len(p)))
	if n == 0 {
		// incompressible; lz4 reports 0 when the block didn't shrink.
		return append(dst[:4], p...), nil
	}
	return dst[:4+n], nil
}

type lz4Decompressor struct{}

func newLz4Decompressor() *lz4Decompressor { return &lz4Decompressor{} }

func (d *lz4Decompressor) DecompressChunk(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	if len(p) < 4 {
		return nil, fmt.Errorf("muxio: lz4 chunk too short")
	}
	origLen := getUint32LE(p[:4])
	dst := make([]byte, origLen)
	n, err := lz4.UncompressBlock(p[4:], dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}

func putUint32LE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func getUint32LE(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

type zstdCompressor struct {
	enc *zstd.Encoder
}

func newZstdCompressor(level int) (*zstdCompressor, error) {
	el := zstd.SpeedDefault
	if level > 0 {
		el = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(el))
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{enc: enc}, nil
}

func (c *zstdCompressor) CompressChunk(p []byte) ([]byte, error) {
	// EncodeAll is stateless per call; each chunk is a standalone zstd
	// frame so the decompressor needs no persistent state either.
	return c.enc.EncodeAll(p, nil), nil
}

type zstdDecompressor struct {
	dec *zstd.Decoder
}

func newZstdDecompressor() (*zstdDecompressor, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &zstdDecompressor{dec: dec}, nil
}

func (d *zstdDecompressor) DecompressChunk(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return d.dec.DecodeAll(p, nil)
}
