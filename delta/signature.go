// Package delta implements the three-stage delta pipeline:
// signature generation (receiver), hash-indexed delta generation (sender),
// and delta application with atomic temp-file-then-rename (receiver).
//
// The signature header carries rsync's sum header fields: number of
// blocks, block length, checksum length, remainder length.
package delta

import (
	"io"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/nthconn/rsyncgo/wire"
)

// Layout is the block geometry of a signature.
type Layout struct {
	BlockCount      int64
	BlockLength     int64
	StrongSumLength int
	FinalBlockLength int64
}

// NewLayout derives a Layout for a file of fileSize bytes, using the
// default block-length formula, clamp(round(sqrt(size)), 700, 131072),
// unless the caller overrides blockLength (0 means
// "compute the default").
func NewLayout(fileSize int64, blockLength int64, strongSumLength int) Layout {
	if blockLength <= 0 {
		blockLength = int64(checksum.ClampBlockLength(fileSize))
	}
	if fileSize == 0 {
		return Layout{BlockLength: blockLength, StrongSumLength: strongSumLength}
	}
	count := fileSize / blockLength
	remainder := fileSize % blockLength
	final := blockLength
	if remainder != 0 {
		count++
		final = remainder
	}
	return Layout{
		BlockCount:       count,
		BlockLength:      blockLength,
		StrongSumLength:  strongSumLength,
		FinalBlockLength: final,
	}
}

// blockSize returns the length of the block at index i (the final block
// may be shorter than BlockLength).
func (l Layout) blockSize(i int64) int64 {
	if i == l.BlockCount-1 && l.FinalBlockLength != 0 {
		return l.FinalBlockLength
	}
	return l.BlockLength
}

// BlockSignature is the rolling and truncated strong checksum of one
// basis block.
type BlockSignature struct {
	Rolling uint32
	Strong  []byte
}

// FileSignature is a Layout plus the ordered per-block signatures.
type FileSignature struct {
	Layout Layout
	Blocks []BlockSignature
}

// GenerateSignature computes the signature of basis. basis may be nil,
// in which case
// GenerateSignature returns a zero-block signature and the sender falls
// back to a pure-literal delta.
func GenerateSignature(basis io.ReaderAt, basisSize int64, layout Layout, strongType checksum.Type, seed int32) (FileSignature, error) {
	if basis == nil || basisSize == 0 {
		return FileSignature{Layout: Layout{StrongSumLength: layout.StrongSumLength}}, nil
	}
	blocks := make([]BlockSignature, layout.BlockCount)
	buf := make([]byte, layout.BlockLength)
	var offset int64
	for i := int64(0); i < layout.BlockCount; i++ {
		size := layout.blockSize(i)
		chunk := buf[:size]
		if _, err := basis.ReadAt(chunk, offset); err != nil && err != io.EOF {
			return FileSignature{}, err
		}
		rolling := checksum.NewRolling(chunk)
		strong, err := checksum.BlockStrong(strongType, seed, chunk)
		if err != nil {
			return FileSignature{}, err
		}
		if len(strong) > layout.StrongSumLength {
			strong = strong[:layout.StrongSumLength]
		}
		blocks[i] = BlockSignature{Rolling: rolling.Sum(), Strong: append([]byte(nil), strong...)}
		offset += size
	}
	return FileSignature{Layout: layout, Blocks: blocks}, nil
}

// WriteSignature transmits sig as "count, blength, s2length, remainder"
// followed by the block sequence.
func WriteSignature(w io.Writer, sig FileSignature) error {
	l := sig.Layout
	if err := wire.WriteVarint(w, l.BlockCount); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, l.BlockLength); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, int64(l.StrongSumLength)); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, l.FinalBlockLength); err != nil {
		return err
	}
	for _, b := range sig.Blocks {
		if err := wire.WriteInt32LE(w, int32(b.Rolling)); err != nil {
			return err
		}
		if _, err := w.Write(b.Strong); err != nil {
			return err
		}
	}
	return nil
}

// ReadSignature reads a signature written by WriteSignature.
func ReadSignature(r io.Reader) (FileSignature, error) {
	var l Layout
	count, err := wire.ReadVarint(r)
	if err != nil {
		return FileSignature{}, err
	}
	l.BlockCount = count
	if l.BlockLength, err = wire.ReadVarint(r); err != nil {
		return FileSignature{}, err
	}
	ssl, err := wire.ReadVarint(r)
	if err != nil {
		return FileSignature{}, err
	}
	l.StrongSumLength = int(ssl)
	if l.FinalBlockLength, err = wire.ReadVarint(r); err != nil {
		return FileSignature{}, err
	}
	blocks := make([]BlockSignature, l.BlockCount)
	for i := range blocks {
		rolling, err := wire.ReadInt32LE(r)
		if err != nil {
			return FileSignature{}, err
		}
		strong := make([]byte, l.StrongSumLength)
		if _, err := io.ReadFull(r, strong); err != nil {
			return FileSignature{}, err
		}
		blocks[i] = BlockSignature{Rolling: uint32(rolling), Strong: strong}
	}
	return FileSignature{Layout: l, Blocks: blocks}, nil
}
