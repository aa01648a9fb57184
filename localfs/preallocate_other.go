//go:build !linux

package localfs

import "os"

// preAllocate is a no-op on platforms without a wired fallocate
// equivalent. A missing preallocation hint never affects correctness -
// the output is still produced by ordinary WriteAt calls.
func preAllocate(size int64, out *os.File) error { return nil }
