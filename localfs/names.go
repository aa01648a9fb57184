package localfs

import (
	"os/user"
	"strconv"
)

// idNames caches uid/gid to name lookups for one Walk. A tree usually
// spans a handful of owners, so the cache stays tiny while avoiding a
// passwd/group lookup per entry. A failed lookup caches "" (numeric-only
// transfer for that id).
type idNames struct {
	users  map[uint32]string
	groups map[uint32]string
}

func newIDNames() *idNames {
	return &idNames{users: make(map[uint32]string), groups: make(map[uint32]string)}
}

func (n *idNames) user(uid uint32) string {
	if name, ok := n.users[uid]; ok {
		return name
	}
	name := ""
	if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
		name = u.Username
	}
	n.users[uid] = name
	return name
}

func (n *idNames) group(gid uint32) string {
	if name, ok := n.groups[gid]; ok {
		return name
	}
	name := ""
	if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
		name = g.Name
	}
	n.groups[gid] = name
	return name
}
