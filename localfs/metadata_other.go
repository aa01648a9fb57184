//go:build windows || plan9 || js

package localfs

import (
	"os"
	"time"
)

// lChtimes does nothing on platforms without a symlink-targeted utimes
// call.
func lChtimes(name string, atime, mtime time.Time) error { return nil }

func lChmod(name string, mode os.FileMode) error { return nil }

func lChown(name string, uid, gid int) error { return nil }
