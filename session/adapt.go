package session

import (
	"github.com/nthconn/rsyncgo/collab"
	"github.com/nthconn/rsyncgo/filelist"
)

// collabEntry is a local alias so sender.go/receiver.go read naturally
// without repeating the full package-qualified name at every Walk
// callback site.
type collabEntry = collab.Entry

// fileEntryFromCollab adapts a Walker's collab.Entry into the
// filelist.FileEntry the codec transmits. It carries no hardlink
// information: the entry's DeviceIdentity and Inode are not used, and
// HardlinkGroup and HardlinkFirst are left zero.
func fileEntryFromCollab(e collab.Entry) filelist.FileEntry {
	fe := filelist.FileEntry{
		Path:      e.Path,
		Size:      e.Size,
		MtimeSec:  e.ModTime.Unix(),
		MtimeNsec: uint32(e.ModTime.Nanosecond()),
		Mode:      e.Mode,
		UID:       e.UID,
		GID:       e.GID,
		UserName:  e.UserName,
		GroupName: e.GroupName,
		RdevMajor: e.RdevMajor,
		RdevMinor: e.RdevMinor,
		TopDir:    e.TopDir,
	}
	if e.SymlinkTarget != "" {
		fe.SymlinkTarget = e.SymlinkTarget
	}
	return fe
}
