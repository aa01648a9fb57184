//go:build !windows && !plan9 && !js

package localfs

import (
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// lChtimes sets a symlink's own mtime/atime without following it.
func lChtimes(name string, atime, mtime time.Time) error {
	var utimes [2]unix.Timespec
	utimes[0] = unix.NsecToTimespec(atime.UnixNano())
	utimes[1] = unix.NsecToTimespec(mtime.UnixNano())
	if e := unix.UtimesNanoAt(unix.AT_FDCWD, name, utimes[0:], unix.AT_SYMLINK_NOFOLLOW); e != nil {
		return &os.PathError{Op: "lchtimes", Path: name, Err: e}
	}
	return nil
}

// syscallMode converts an os.FileMode to the raw syscall mode bits
// lchmod needs.
func syscallMode(i os.FileMode) (o uint32) {
	o |= uint32(i.Perm())
	if i&os.ModeSetuid != 0 {
		o |= syscall.S_ISUID
	}
	if i&os.ModeSetgid != 0 {
		o |= syscall.S_ISGID
	}
	if i&os.ModeSticky != 0 {
		o |= syscall.S_ISVTX
	}
	return o
}

// lChmod changes a symlink's own mode without following it. Linux doesn't
// support AT_SYMLINK_NOFOLLOW for fchmodat (returns ENOTSUP), so on Linux
// this is a deliberate no-op rather than an error.
func lChmod(name string, mode os.FileMode) error {
	if e := unix.Fchmodat(unix.AT_FDCWD, name, syscallMode(mode), unix.AT_SYMLINK_NOFOLLOW); e != nil {
		if e == unix.ENOTSUP {
			return nil
		}
		return &os.PathError{Op: "lchmod", Path: name, Err: e}
	}
	return nil
}

func lChown(name string, uid, gid int) error {
	return os.Lchown(name, uid, gid)
}
