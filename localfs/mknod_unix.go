//go:build !windows && !plan9 && !js

package localfs

import (
	"golang.org/x/sys/unix"

	"github.com/nthconn/rsyncgo/filelist"
)

// mknod creates a device, FIFO, or socket node via the unix mknod(2)
// syscall.
func mknod(path string, mode uint32, rdevMajor, rdevMinor uint32) error {
	t := modeToFileType(mode)
	perm := mode &^ filelist.ModeTypeMask
	switch t {
	case filelist.ModeTypeFIFO:
		return unix.Mkfifo(path, perm)
	case filelist.ModeTypeCharDev, filelist.ModeTypeBlockDev:
		dev := unix.Mkdev(rdevMajor, rdevMinor)
		return unix.Mknod(path, perm|posixTypeBits(t), int(dev))
	case filelist.ModeTypeSocket:
		return unix.Mknod(path, perm|posixTypeBits(t), 0)
	default:
		return nil
	}
}

func posixTypeBits(t uint32) uint32 {
	switch t {
	case filelist.ModeTypeFIFO:
		return unix.S_IFIFO
	case filelist.ModeTypeCharDev:
		return unix.S_IFCHR
	case filelist.ModeTypeBlockDev:
		return unix.S_IFBLK
	case filelist.ModeTypeSocket:
		return unix.S_IFSOCK
	default:
		return 0
	}
}
