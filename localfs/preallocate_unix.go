//go:build linux

package localfs

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Try FALLOC_FL_KEEP_SIZE
// first, fall back to also punching holes (needed on some ZFS setups), and
// disable fallocate entirely once both combinations are unsupported so we
// don't retry a syscall the kernel has already told us it doesn't have.
var (
	fallocFlags = [...]uint32{
		unix.FALLOC_FL_KEEP_SIZE,
		unix.FALLOC_FL_KEEP_SIZE | unix.FALLOC_FL_PUNCH_HOLE,
	}
	fallocFlagsIndex int32
)

func preAllocate(size int64, out *os.File) error {
	if size <= 0 {
		return nil
	}
	index := atomic.LoadInt32(&fallocFlagsIndex)
	for {
		if index >= int32(len(fallocFlags)) {
			return nil
		}
		err := unix.Fallocate(int(out.Fd()), fallocFlags[index], 0, size)
		if err == unix.ENOTSUP {
			index++
			atomic.StoreInt32(&fallocFlagsIndex, index)
			continue
		}
		return err
	}
}
