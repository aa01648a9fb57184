//go:build windows || plan9 || js

package localfs

import "errors"

// mknod has no portable equivalent outside unix; device/FIFO/socket
// entries are skipped on these platforms rather than failing the whole
// transfer (metadata/node application
// degrades to a warning, the caller logs ErrSpecialUnsupported and moves
// on).
var ErrSpecialUnsupported = errors.New("localfs: special file creation unsupported on this platform")

func mknod(path string, mode uint32, rdevMajor, rdevMinor uint32) error {
	return ErrSpecialUnsupported
}
