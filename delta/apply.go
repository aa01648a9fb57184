package delta

import (
	"bytes"
	"io"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/nthconn/rsyncgo/collab"
)

// Apply runs the receiver-side reconstruction: it reads a
// token stream produced by GenerateDelta from r, copies basis blocks or
// literal bytes into out, and verifies the trailing whole-file checksum
// (read and compared as exactly strongSumLength bytes). basis may be
// nil - GenerateDelta never emits a Copy
// token when its signature had zero blocks.
//
// Apply does not itself rename or fsync out; the caller (session) owns
// that sequencing since it depends on
// --fsync/--partial-dir policy this package has no opinion on.
func Apply(basis collab.BasisFile, r io.Reader, out io.WriterAt, layout Layout, strongType checksum.Type, seed int32, strongSumLength int) error {
	digester, err := checksum.NewDigester(strongType, seed)
	if err != nil {
		return err
	}

	tr := NewTokenReader(r)
	var outOffset int64
	for {
		tok, err := tr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if tok.IsCopy() {
			n, err := copyBlock(basis, out, layout, tok, outOffset)
			if err != nil {
				return err
			}
			if _, err := digester.Write(n); err != nil {
				return err
			}
			outOffset += int64(len(n))
			continue
		}
		if len(tok.Literal) > 0 {
			if _, err := out.WriteAt(tok.Literal, outOffset); err != nil {
				return err
			}
			if _, err := digester.Write(tok.Literal); err != nil {
				return err
			}
			outOffset += int64(len(tok.Literal))
		}
	}

	local := digester.Strong()
	if len(local) > strongSumLength {
		local = local[:strongSumLength]
	}
	expected := make([]byte, strongSumLength)
	if _, err := io.ReadFull(r, expected); err != nil {
		return err
	}
	if !bytes.Equal(local, expected) {
		return ErrChecksumMismatch
	}
	return nil
}

// copyBlock resolves a Copy token's basis range, writes it to out at
// outOffset, and returns the bytes copied (for the caller to feed into
// its running whole-file digest).
func copyBlock(basis collab.BasisFile, out io.WriterAt, layout Layout, tok Token, outOffset int64) ([]byte, error) {
	length := tok.Length
	if length < 0 {
		length = layout.blockSize(tok.BlockIndex)
	}
	if tok.BlockIndex < 0 || tok.BlockIndex >= layout.BlockCount || basis == nil {
		return nil, ErrBlockIndexOutOfRange
	}
	basisOffset := tok.SourceOffset
	if basisOffset < 0 {
		basisOffset = tok.BlockIndex * layout.BlockLength
	}
	buf := make([]byte, length)
	if _, err := basis.ReadAt(buf, basisOffset); err != nil && err != io.EOF {
		return nil, err
	}
	if _, err := out.WriteAt(buf, outOffset); err != nil {
		return nil, err
	}
	return buf, nil
}
