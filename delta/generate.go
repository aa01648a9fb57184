package delta

import (
	"bytes"
	"io"

	"github.com/nthconn/rsyncgo/checksum"
)

// GenerateDelta runs the sender-side delta algorithm against
// the full content of source, using sig (the receiver's signature of the
// basis) to find reusable blocks. It writes the token stream (Copy/
// Literal tokens, an end marker, then the whole-file strong checksum,
// truncated to strongSumLength) to w.
//
// When sig.Layout.BlockCount == 0 (no basis, or the signature's block
// index can't be built), the emitted delta is pure literal.
func GenerateDelta(w io.Writer, source io.Reader, sig FileSignature, strongType checksum.Type, seed int32, strongSumLength int) error {
	data, err := io.ReadAll(source)
	if err != nil {
		return err
	}

	whole, err := checksum.BlockStrong(strongType, seed, data)
	if err != nil {
		return err
	}
	if len(whole) > strongSumLength {
		whole = whole[:strongSumLength]
	}

	tw := NewTokenWriter(w)

	if sig.Layout.BlockCount == 0 || sig.Layout.BlockLength <= 0 {
		if err := tw.WriteLiteral(data); err != nil {
			return err
		}
		if err := tw.End(); err != nil {
			return err
		}
		_, err = w.Write(whole)
		return err
	}

	// index maps a rolling sum to the block indices sharing it, in
	// ascending block-index order - iterating candidates in this order
	// and taking the first strong match means the lowest matching block
	// index always wins a tie.
	index := make(map[uint32][]int64, len(sig.Blocks))
	for i, b := range sig.Blocks {
		index[b.Rolling] = append(index[b.Rolling], int64(i))
	}

	blockLength := sig.Layout.BlockLength
	n := int64(len(data))
	var literal bytes.Buffer
	pos := int64(0)

	flushLiteral := func() error {
		if literal.Len() == 0 {
			return nil
		}
		if err := tw.WriteLiteral(literal.Bytes()); err != nil {
			return err
		}
		literal.Reset()
		return nil
	}

	findMatch := func(windowSum uint32, window []byte, windowLen int64) (int64, bool) {
		for _, idx := range index[windowSum] {
			if sig.Layout.blockSize(idx) != windowLen {
				continue
			}
			strongWindow, err := checksum.BlockStrong(strongType, seed, window)
			if err != nil {
				return 0, false
			}
			if len(strongWindow) > len(sig.Blocks[idx].Strong) {
				strongWindow = strongWindow[:len(sig.Blocks[idx].Strong)]
			}
			if bytes.Equal(strongWindow, sig.Blocks[idx].Strong) {
				return idx, true
			}
		}
		return 0, false
	}

	// Main scan: constant-width windows of blockLength, rolled one byte
	// at a time via checksum.Rolling.Roll until
	// fewer than blockLength bytes remain.
	if n >= blockLength {
		roll := checksum.NewRolling(data[pos : pos+blockLength])
		for pos+blockLength <= n {
			window := data[pos : pos+blockLength]
			if idx, ok := findMatch(roll.Sum(), window, blockLength); ok {
				if err := flushLiteral(); err != nil {
					return err
				}
				if err := tw.WriteCopy(idx, idx*blockLength, blockLength, true); err != nil {
					return err
				}
				pos += blockLength
				if pos+blockLength <= n {
					roll = checksum.NewRolling(data[pos : pos+blockLength])
				}
				continue
			}
			literal.WriteByte(data[pos])
			if pos+blockLength < n {
				roll.Roll(data[pos], data[pos+blockLength])
			}
			pos++
		}
	}

	// Tail: the remaining bytes are shorter than blockLength. They match
	// only if their length equals the signature's final block length and
	// their sums agree with the last block (FinalBlockLength exists
	// precisely so an unmodified
	// trailing partial block still counts as reusable).
	remaining := data[pos:n]
	if int64(len(remaining)) == sig.Layout.FinalBlockLength && len(remaining) > 0 {
		sum := checksum.NewRolling(remaining).Sum()
		if idx, ok := findMatch(sum, remaining, int64(len(remaining))); ok {
			if err := flushLiteral(); err != nil {
				return err
			}
			if err := tw.WriteCopy(idx, idx*blockLength, int64(len(remaining)), false); err != nil {
				return err
			}
			remaining = nil
		}
	}
	literal.Write(remaining)

	if err := flushLiteral(); err != nil {
		return err
	}
	if err := tw.End(); err != nil {
		return err
	}
	_, err = w.Write(whole)
	return err
}
