// Package localfs is the concrete local-filesystem implementation of the
// collab interfaces: a Walker that enumerates a source tree in
// file-list transmission order, a BasisOpener/OutputOpener pair for the
// delta pipeline's basis/temp-file handling, and a MetadataApplier.
package localfs

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/nthconn/rsyncgo/collab"
)

// Walker implements collab.Walker over the local filesystem.
type Walker struct {
	// OneFileSystem mirrors --one-file-system: when true, a Walk that
	// crosses a device
	// boundary reports it via Entry.DeviceIdentity so the caller's
	// policy can refuse to descend; this package only records device
	// identity, it never refuses on its own.
	OneFileSystem bool

	names *idNames
}

type namedInfo struct {
	name string
	rel  string
	fi   os.FileInfo
}

// Walk enumerates root, calling fn once per Entry in the order the
// file-list codec requires: a directory immediately followed by its
// children, children sorted lexicographically by raw byte name within
// their parent.
func (w *Walker) Walk(root string, fn func(collab.Entry) error) error {
	if w.names == nil {
		w.names = newIDNames()
	}
	rootFi, err := os.Lstat(root)
	if err != nil {
		return err
	}
	if err := fn(w.toEntry("", root, rootFi, true)); err != nil {
		return err
	}
	if !rootFi.IsDir() {
		return nil
	}
	return w.walkDir(root, "", fn)
}

func (w *Walker) walkDir(absDir, relDir string, fn func(collab.Entry) error) error {
	f, err := os.Open(absDir)
	if err != nil {
		return err
	}
	infos, err := f.Readdir(-1)
	closeErr := f.Close()
	if err != nil {
		return err
	}
	if closeErr != nil {
		return closeErr
	}

	entries := make([]namedInfo, 0, len(infos))
	for _, fi := range infos {
		rel := fi.Name()
		if relDir != "" {
			rel = relDir + "/" + fi.Name()
		}
		entries = append(entries, namedInfo{name: fi.Name(), rel: rel, fi: fi})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

	for _, e := range entries {
		absChild := filepath.Join(absDir, e.name)
		// Readdir's FileInfo already reflects Lstat semantics on the
		// platforms this matters for; re-Lstat defensively in case the
		// entry changed between Readdir and now.
		fi, err := os.Lstat(absChild)
		if err != nil {
			return err
		}
		entry := w.toEntry(e.rel, absChild, fi, false)
		if err := fn(entry); err != nil {
			return err
		}
		if fi.IsDir() {
			if err := w.walkDir(absChild, e.rel, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func (w *Walker) toEntry(rel, absPath string, fi os.FileInfo, topDir bool) collab.Entry {
	entry := collab.Entry{
		Path:    rel,
		Size:    fi.Size(),
		ModTime: fi.ModTime(),
		Mode:    uint32(fi.Mode()),
		TopDir:  topDir,
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		if target, err := os.Readlink(absPath); err == nil {
			entry.SymlinkTarget = target
		}
	}
	applyStatT(&entry, fi)
	entry.UserName = w.names.user(entry.UID)
	entry.GroupName = w.names.group(entry.GID)
	if !w.OneFileSystem {
		entry.DeviceIdentity = 0
	}
	if fi.Mode()&os.ModeDevice != 0 || fi.Mode()&os.ModeCharDevice != 0 {
		entry.RdevMajor, entry.RdevMinor = readDevice(fi)
	}
	return entry
}
