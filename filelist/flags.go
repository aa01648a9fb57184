// Package filelist implements the file-list codec: the
// XMIT-flag-driven encoder/decoder for FileEntry records, with prefix-name
// sharing against the previous entry, SAME_* inheritance, legacy and
// varint size/time encodings, and the NDX_FLIST_EOF segment terminator
// used under INC_RECURSE.
package filelist

// XmitFlag is one bit of the primary (and, when EXTENDED_FLAGS is set,
// secondary) flags byte prefixing each file-list entry.
type XmitFlag uint16

// Primary flags byte bits.
const (
	XmitTopDir       XmitFlag = 0x01
	XmitSameMode     XmitFlag = 0x02
	XmitExtendedFlags XmitFlag = 0x04
	XmitSameUID      XmitFlag = 0x08
	XmitSameGID      XmitFlag = 0x10
	XmitSameName     XmitFlag = 0x20
	XmitLongName     XmitFlag = 0x40
	XmitSameTime     XmitFlag = 0x80
)

// Extended (second byte) flags bits, valid only when XmitExtendedFlags is
// set in the primary byte.
const (
	XmitSameRdevMajor   XmitFlag = 0x0100 // also NO_CONTENT_DIR, context-dependent
	XmitHlinked         XmitFlag = 0x0200
	XmitHlinkFirst      XmitFlag = 0x0400
	XmitModNsec         XmitFlag = 0x0800
	XmitSameAtime       XmitFlag = 0x1000
	XmitUserNameFollows XmitFlag = 0x2000
	XmitGroupNameFollows XmitFlag = 0x4000
	XmitCrtimeEqMtime   XmitFlag = 0x8000
)

// Has reports whether bit is set in f.
func (f XmitFlag) Has(bit XmitFlag) bool {
	return f&bit != 0
}

// primaryMask and extendedShift separate the two flag bytes when encoding
// the legacy (non-VARINT_FLIST_FLAGS) two-byte form.
const (
	primaryMask  = 0x00FF
	extendedShift = 8
)
