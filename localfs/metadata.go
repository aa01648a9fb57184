package localfs

import (
	"os"
	"strings"

	"github.com/pkg/xattr"

	"github.com/nthconn/rsyncgo/collab"
	"github.com/nthconn/rsyncgo/rlog"
)

const xattrPrefix = "user."

// MetadataApplier implements collab.MetadataApplier over the local
// filesystem: each field is applied independently and failures are
// logged, never fatal - a metadata error does not abort the transfer.
type MetadataApplier struct{}

func (MetadataApplier) Apply(path string, spec collab.MetadataSpec) error {
	if spec.SetOwner {
		var err error
		if spec.Symlink {
			err = lChown(path, int(spec.UID), int(spec.GID))
		} else {
			err = os.Chown(path, int(spec.UID), int(spec.GID))
		}
		if err != nil {
			rlog.Warnf(rlog.Fields{Source: path}, "chown: %v", err)
		}
	}

	if spec.SetMode {
		mode := os.FileMode(spec.Mode & 0o7777)
		var err error
		if spec.Symlink {
			err = lChmod(path, mode)
		} else {
			err = os.Chmod(path, mode)
		}
		if err != nil {
			rlog.Warnf(rlog.Fields{Source: path}, "chmod: %v", err)
		}
	}

	if spec.SetTime {
		atime := spec.AccessTime
		if !spec.SetAtime {
			atime = spec.ModTime
		}
		var err error
		if spec.Symlink {
			err = lChtimes(path, atime, spec.ModTime)
		} else {
			err = os.Chtimes(path, atime, spec.ModTime)
		}
		if err != nil {
			rlog.Warnf(rlog.Fields{Source: path}, "chtimes: %v", err)
		}
	}

	if spec.SetXattr {
		applyXattr(path, spec)
	}

	return nil
}

// applyXattr stores every key lowercased and under the "user." namespace
// prefix, which it adds to the key as given.
func applyXattr(path string, spec collab.MetadataSpec) {
	if !xattr.XATTR_SUPPORTED {
		return
	}
	for k, v := range spec.Xattr {
		k = xattrPrefix + strings.ToLower(k)
		var err error
		if spec.Symlink {
			err = xattr.LSet(path, k, []byte(v))
		} else {
			err = xattr.Set(path, k, []byte(v))
		}
		if err != nil {
			rlog.Warnf(rlog.Fields{Source: path}, "setxattr %s: %v", k, err)
		}
	}
}
