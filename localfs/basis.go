package localfs

import (
	"io"
	"os"

	"github.com/nthconn/rsyncgo/collab"
)

// basisFile adapts *os.File to collab.BasisFile.
type basisFile struct {
	f    *os.File
	size int64
}

func (b *basisFile) ReadAt(p []byte, off int64) (int, error) { return b.f.ReadAt(p, off) }
func (b *basisFile) Close() error                            { return b.f.Close() }
func (b *basisFile) Size() int64                              { return b.size }

// BasisOpener implements collab.BasisOpener over the local filesystem: the
// basis for a destination path is simply the file already at that path, if
// any.
type BasisOpener struct{}

// Open returns (nil, nil) when destPath does not exist, per
// collab.BasisOpener's contract: a missing basis means a zero-block
// signature, not an error.
func (BasisOpener) Open(destPath string) (collab.BasisFile, error) {
	f, err := os.Open(destPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, nil
	}
	return &basisFile{f: f, size: fi.Size()}, nil
}

var _ io.Closer = (*basisFile)(nil)
