package localfs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/nthconn/rsyncgo/collab"
)

var tempSerial int64

// OutputOpener implements collab.OutputOpener over the local filesystem:
// write to a uniquely-named sibling temp file, rename into place on
// Commit. Commit does not fsync; callers that want that call Sync first.
type OutputOpener struct {
	// Size, when non-zero, preallocates the output file before any
	// writes - callers that know the reconstructed length up front
	// should set this to reduce fragmentation.
	Size int64
}

type outputFile struct {
	f       *os.File
	tmpPath string
}

// Create opens a uniquely-named temp file alongside destPath, or inside
// partialDir when one is given (--partial-dir support).
func (o OutputOpener) Create(destPath, partialDir string) (collab.OutputFile, error) {
	dir := filepath.Dir(destPath)
	if partialDir != "" {
		dir = partialDir
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
	}
	base := filepath.Base(destPath)
	serial := atomic.AddInt64(&tempSerial, 1)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%d.tmp", base, serial))

	f, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}
	if o.Size > 0 {
		if err := preAllocate(o.Size, f); err != nil {
			// Best-effort hint only; continue without it.
			_ = err
		}
	}
	return &outputFile{f: f, tmpPath: tmpPath}, nil
}

func (o *outputFile) WriteAt(p []byte, off int64) (int, error) { return o.f.WriteAt(p, off) }
func (o *outputFile) Close() error                             { return o.f.Close() }
func (o *outputFile) Truncate(size int64) error                { return o.f.Truncate(size) }
func (o *outputFile) Sync() error                              { return o.f.Sync() }

// Commit renames the temp file into place at destPath, replacing any
// existing file there (the rename is the single atomic
// point of visibility for a reconstructed file).
func (o *outputFile) Commit(destPath string) error {
	if err := o.f.Close(); err != nil {
		return err
	}
	return os.Rename(o.tmpPath, destPath)
}

// Discard removes the temp file without renaming (checksum mismatch,
// redo-on-failure path).
func (o *outputFile) Discard() error {
	_ = o.f.Close()
	return os.Remove(o.tmpPath)
}
