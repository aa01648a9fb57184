//go:build windows || plan9 || js

package localfs

import (
	"os"

	"github.com/nthconn/rsyncgo/collab"
)

// applyStatT is a no-op on platforms without a POSIX Stat_t; there are
// no meaningful uid/gid/rdev/inode values to carry.
func applyStatT(entry *collab.Entry, fi os.FileInfo) {}

func readDevice(fi os.FileInfo) (major, minor uint32) { return 0, 0 }
