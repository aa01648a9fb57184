package localfs

import (
	"os"

	"github.com/nthconn/rsyncgo/filelist"
)

// NodeCreator implements collab.NodeCreator over the local filesystem.
type NodeCreator struct{}

func (NodeCreator) EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (NodeCreator) CreateSymlink(path, target string) error {
	_ = os.Remove(path)
	return os.Symlink(target, path)
}

func (NodeCreator) CreateSpecial(path string, mode uint32, rdevMajor, rdevMinor uint32) error {
	_ = os.Remove(path)
	return mknod(path, mode, rdevMajor, rdevMinor)
}

// modeToFileType extracts the type bits mknod needs from a FileEntry's
// POSIX mode word; device/FIFO/socket are the only types CreateSpecial is
// ever called for (directories and symlinks go through EnsureDir/
// CreateSymlink instead).
func modeToFileType(mode uint32) uint32 {
	return mode & filelist.ModeTypeMask
}
