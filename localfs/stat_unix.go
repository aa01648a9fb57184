//go:build !windows && !plan9 && !js

package localfs

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nthconn/rsyncgo/collab"
)

// applyStatT fills the uid/gid/inode/device-identity fields of entry from
// the platform's syscall.Stat_t via a type-assertion on fi.Sys().
func applyStatT(entry *collab.Entry, fi os.FileInfo) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return
	}
	entry.UID = st.Uid
	entry.GID = st.Gid
	entry.Inode = st.Ino
	entry.DeviceIdentity = int64(st.Dev)
	if fi.Mode()&os.ModeDevice != 0 {
		rdev := uint64(st.Rdev)
		entry.RdevMajor = uint32(unix.Major(rdev))
		entry.RdevMinor = uint32(unix.Minor(rdev))
	}
}

// readDevice turns a valid os.FileInfo for a device special file into its
// major/minor numbers.
func readDevice(fi os.FileInfo) (major, minor uint32) {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	rdev := uint64(st.Rdev)
	return uint32(unix.Major(rdev)), uint32(unix.Minor(rdev))
}
