package filelist

import (
	"io"

	"github.com/nthconn/rsyncgo/wire"
)

// Options configures a Codec for one session's negotiated capabilities.
type Options struct {
	ProtocolVersion  int
	VarintFlistFlags bool // flags byte encoded as a varint
	SafeFileList     bool // reject unsafe paths
	ModNsec          bool // MOD_NSEC capability, protocol >= 31
	SymlinkTimes     bool // SYMLINK_TIMES compat flag in effect
	ID0Names         bool // ID0_NAMES compat flag: uid/gid 0 still sends a name
}

// varintSizes reports whether sizes/mtimes/mode use the protocol >= 30
// varint encodings rather than the legacy fixed-width forms.
func (o Options) varintSizes() bool { return o.ProtocolVersion >= 30 }

// Encoder streams FileEntry records to an underlying writer, maintaining
// the inheritance context (SAME_* flags, prefix-shared path) against the
// previously encoded entry.
type Encoder struct {
	opts Options
	prev *FileEntry
}

// NewEncoder returns an Encoder for opts. Each Encoder starts a fresh
// inheritance chain; INC_RECURSE segments each get their own Encoder.
func NewEncoder(opts Options) *Encoder {
	return &Encoder{opts: opts}
}

// Encode writes one entry. Call End when the list (or segment) is
// complete.
func (enc *Encoder) Encode(w io.Writer, e *FileEntry) error {
	if enc.opts.SafeFileList {
		if err := e.validateSafe(); err != nil {
			return err
		}
	}

	flags, prefixLen, suffix := enc.computeFlags(e)

	if err := writeFlags(w, flags, enc.opts.VarintFlistFlags); err != nil {
		return err
	}

	if flags.Has(XmitSameName) {
		if err := wire.WriteByte(w, byte(prefixLen)); err != nil {
			return err
		}
	}
	if err := writeNameSuffix(w, suffix, flags.Has(XmitLongName)); err != nil {
		return err
	}

	if enc.opts.varintSizes() {
		if err := wire.WriteVarint(w, e.Size); err != nil {
			return err
		}
	} else if err := wire.WriteInt64Legacy(w, e.Size); err != nil {
		return err
	}

	if !flags.Has(XmitSameTime) {
		if err := writeTimeField(w, e.MtimeSec, enc.opts.varintSizes()); err != nil {
			return err
		}
		if flags.Has(XmitModNsec) {
			if err := wire.WriteVarint(w, int64(e.MtimeNsec)); err != nil {
				return err
			}
		}
	}

	if !flags.Has(XmitSameMode) {
		if enc.opts.varintSizes() {
			if err := wire.WriteVarint(w, int64(e.Mode)); err != nil {
				return err
			}
		} else if err := wire.WriteInt32LE(w, int32(e.Mode)); err != nil {
			return err
		}
	}

	if !flags.Has(XmitSameUID) {
		if err := wire.WriteVarint(w, int64(e.UID)); err != nil {
			return err
		}
		if flags.Has(XmitUserNameFollows) {
			if err := wire.WriteVString(w, []byte(e.UserName)); err != nil {
				return err
			}
		}
	}
	if !flags.Has(XmitSameGID) {
		if err := wire.WriteVarint(w, int64(e.GID)); err != nil {
			return err
		}
		if flags.Has(XmitGroupNameFollows) {
			if err := wire.WriteVString(w, []byte(e.GroupName)); err != nil {
				return err
			}
		}
	}

	if IsDevice(e.Mode) {
		if !flags.Has(XmitSameRdevMajor) {
			if err := wire.WriteVarint(w, int64(e.RdevMajor)); err != nil {
				return err
			}
		}
		// RDEV_MINOR_8_PRE30:
		// below protocol 30 the minor device number is a single byte;
		// protocol >= 30 uses the modern varint form.
		if enc.opts.varintSizes() {
			if err := wire.WriteVarint(w, int64(e.RdevMinor)); err != nil {
				return err
			}
		} else if err := wire.WriteByte(w, byte(e.RdevMinor)); err != nil {
			return err
		}
	}

	if IsSymlink(e.Mode) {
		if err := wire.WriteVString(w, []byte(e.SymlinkTarget)); err != nil {
			return err
		}
		// SYMLINK_TIMES: rsync's upstream treats symlink mtimes as a
		// best-effort cosmetic field with no effect on delta decisions: a
		// symlink is always retransmitted whole when its target differs,
		// never delta-compared. Recording SymlinkMtime here is therefore
		// a no-op pass-through of whatever the collaborator supplied, not
		// a field this codec reasons about.
		if enc.opts.SymlinkTimes {
			if err := wire.WriteInt64Legacy(w, e.SymlinkMtime); err != nil {
				return err
			}
		}
	}

	if flags.Has(XmitHlinked) {
		if err := wire.WriteVarint(w, e.HardlinkGroup); err != nil {
			return err
		}
	}

	if err := wire.WriteVarint(w, e.ACLIndex); err != nil {
		return err
	}
	if err := wire.WriteVarint(w, e.XattrIndex); err != nil {
		return err
	}

	enc.prev = e
	return nil
}

// End writes the zero-flags terminator that ends a file list or segment
func (enc *Encoder) End(w io.Writer) error {
	return writeFlags(w, 0, enc.opts.VarintFlistFlags)
}

func (enc *Encoder) computeFlags(e *FileEntry) (flags XmitFlag, prefixLen int, suffix string) {
	suffix = e.Path
	if e.TopDir {
		flags |= XmitTopDir
	}
	if enc.prev != nil {
		prev := enc.prev
		if prev.Mode == e.Mode {
			flags |= XmitSameMode
		}
		if prev.UID == e.UID {
			flags |= XmitSameUID
		}
		if prev.GID == e.GID {
			flags |= XmitSameGID
		}
		if prev.MtimeSec == e.MtimeSec && prev.MtimeNsec == e.MtimeNsec {
			flags |= XmitSameTime
		}
		if IsDevice(e.Mode) && IsDevice(prev.Mode) && prev.RdevMajor == e.RdevMajor {
			flags |= XmitSameRdevMajor
		}
		prefixLen = commonPrefixLen(prev.Path, e.Path, 255)
		if prefixLen > 0 {
			flags |= XmitSameName
			suffix = e.Path[prefixLen:]
		}
	}

	if len(suffix) > 255 {
		flags |= XmitLongName
	}

	if enc.opts.ModNsec && e.HasMtimeNsec {
		flags |= XmitModNsec
	}
	if e.HardlinkGroup != 0 || e.HardlinkFirst {
		flags |= XmitHlinked
		if e.HardlinkFirst {
			flags |= XmitHlinkFirst
		}
	}
	// Id 0 is the one id every system shares, so its name travels only
	// when the ID0_NAMES capability was negotiated.
	if e.UserName != "" && (e.UID != 0 || enc.opts.ID0Names) {
		flags |= XmitUserNameFollows
	}
	if e.GroupName != "" && (e.GID != 0 || enc.opts.ID0Names) {
		flags |= XmitGroupNameFollows
	}
	if e.CrtimeEqMtime {
		flags |= XmitCrtimeEqMtime
	}

	// A zero flags value is the list terminator, so an entry that sets no
	// other bit still carries EXTENDED_FLAGS (with an empty second byte in
	// the two-byte form) to stay distinguishable from it.
	if flags&0xFF00 != 0 || flags == 0 {
		flags |= XmitExtendedFlags
	}
	return flags, prefixLen, suffix
}

// Decoder is the inverse of Encoder.
type Decoder struct {
	opts Options
	prev *FileEntry
}

// NewDecoder returns a Decoder for opts.
func NewDecoder(opts Options) *Decoder {
	return &Decoder{opts: opts}
}

// Decode reads one entry. It returns io.EOF (not wrapped) when it reads
// the zero-flags terminator, matching the sentinel callers check for when
// looping over a list or segment.
func (dec *Decoder) Decode(r io.Reader) (*FileEntry, error) {
	flags, err := readFlags(r, dec.opts.VarintFlistFlags)
	if err != nil {
		return nil, err
	}
	if flags == 0 {
		return nil, io.EOF
	}

	e := &FileEntry{TopDir: flags.Has(XmitTopDir)}

	if flags.Has(XmitSameName) {
		if dec.prev == nil {
			return nil, ErrNoPreviousEntry
		}
		prefixLen, err := wire.ReadByte(r)
		if err != nil {
			return nil, err
		}
		suffix, err := readNameSuffix(r, flags.Has(XmitLongName))
		if err != nil {
			return nil, err
		}
		if int(prefixLen) > len(dec.prev.Path) {
			return nil, ErrTruncatedEntry
		}
		e.Path = dec.prev.Path[:prefixLen] + suffix
	} else {
		suffix, err := readNameSuffix(r, flags.Has(XmitLongName))
		if err != nil {
			return nil, err
		}
		e.Path = suffix
	}

	if dec.opts.varintSizes() {
		e.Size, err = wire.ReadVarint(r)
	} else {
		e.Size, err = wire.ReadInt64Legacy(r)
	}
	if err != nil {
		return nil, err
	}

	if flags.Has(XmitSameTime) {
		if dec.prev == nil {
			return nil, ErrNoPreviousEntry
		}
		e.MtimeSec = dec.prev.MtimeSec
		e.MtimeNsec = dec.prev.MtimeNsec
	} else {
		e.MtimeSec, err = readTimeField(r, dec.opts.varintSizes())
		if err != nil {
			return nil, err
		}
		if flags.Has(XmitModNsec) {
			nsec, err := wire.ReadVarint(r)
			if err != nil {
				return nil, err
			}
			e.MtimeNsec = uint32(nsec)
			e.HasMtimeNsec = true
		}
	}

	if flags.Has(XmitSameMode) {
		if dec.prev == nil {
			return nil, ErrNoPreviousEntry
		}
		e.Mode = dec.prev.Mode
	} else if dec.opts.varintSizes() {
		v, err := wire.ReadVarint(r)
		if err != nil {
			return nil, err
		}
		e.Mode = uint32(v)
	} else {
		v, err := wire.ReadInt32LE(r)
		if err != nil {
			return nil, err
		}
		e.Mode = uint32(v)
	}

	if flags.Has(XmitSameUID) {
		if dec.prev == nil {
			return nil, ErrNoPreviousEntry
		}
		e.UID = dec.prev.UID
	} else {
		v, err := wire.ReadVarint(r)
		if err != nil {
			return nil, err
		}
		e.UID = uint32(v)
		if flags.Has(XmitUserNameFollows) {
			name, err := wire.ReadVString(r, maxNameLen)
			if err != nil {
				return nil, err
			}
			e.UserName = string(name)
		}
	}

	if flags.Has(XmitSameGID) {
		if dec.prev == nil {
			return nil, ErrNoPreviousEntry
		}
		e.GID = dec.prev.GID
	} else {
		v, err := wire.ReadVarint(r)
		if err != nil {
			return nil, err
		}
		e.GID = uint32(v)
		if flags.Has(XmitGroupNameFollows) {
			name, err := wire.ReadVString(r, maxNameLen)
			if err != nil {
				return nil, err
			}
			e.GroupName = string(name)
		}
	}

	if IsDevice(e.Mode) {
		if flags.Has(XmitSameRdevMajor) {
			if dec.prev == nil {
				return nil, ErrNoPreviousEntry
			}
			e.RdevMajor = dec.prev.RdevMajor
		} else {
			v, err := wire.ReadVarint(r)
			if err != nil {
				return nil, err
			}
			e.RdevMajor = uint32(v)
		}
		// RDEV_MINOR_8_PRE30:
		// below protocol 30 the minor device number is a single byte;
		// protocol >= 30 uses the modern varint form.
		if dec.opts.varintSizes() {
			v, err := wire.ReadVarint(r)
			if err != nil {
				return nil, err
			}
			e.RdevMinor = uint32(v)
		} else {
			b, err := wire.ReadByte(r)
			if err != nil {
				return nil, err
			}
			e.RdevMinor = uint32(b)
		}
	}

	if IsSymlink(e.Mode) {
		target, err := wire.ReadVString(r, maxPathLen)
		if err != nil {
			return nil, err
		}
		e.SymlinkTarget = string(target)
		if dec.opts.SymlinkTimes {
			e.SymlinkMtime, err = wire.ReadInt64Legacy(r)
			if err != nil {
				return nil, err
			}
			e.HasSymlinkMtime = true
		}
	}

	if flags.Has(XmitHlinked) {
		v, err := wire.ReadVarint(r)
		if err != nil {
			return nil, err
		}
		e.HardlinkGroup = v
		e.HardlinkFirst = flags.Has(XmitHlinkFirst)
	}

	e.ACLIndex, err = wire.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	e.XattrIndex, err = wire.ReadVarint(r)
	if err != nil {
		return nil, err
	}
	e.CrtimeEqMtime = flags.Has(XmitCrtimeEqMtime)

	dec.prev = e

	// The unsafe-path check runs only after the entry's bytes are fully
	// consumed, so the stream stays in sync and the caller can count the
	// violation and keep decoding.
	if dec.opts.SafeFileList {
		if err := e.validateSafe(); err != nil {
			return e, err
		}
	}
	return e, nil
}

const (
	maxNameLen = 1 << 16
	maxPathLen = 1 << 16
)

func writeFlags(w io.Writer, flags XmitFlag, varint bool) error {
	if varint {
		return wire.WriteVarint(w, int64(flags))
	}
	primary := byte(flags & primaryMask)
	if err := wire.WriteByte(w, primary); err != nil {
		return err
	}
	if primary&byte(XmitExtendedFlags) != 0 {
		return wire.WriteByte(w, byte(flags>>extendedShift))
	}
	return nil
}

func readFlags(r io.Reader, varint bool) (XmitFlag, error) {
	if varint {
		v, err := wire.ReadVarint(r)
		if err != nil {
			return 0, err
		}
		return XmitFlag(v), nil
	}
	b, err := wire.ReadByte(r)
	if err != nil {
		return 0, err
	}
	flags := XmitFlag(b)
	if flags.Has(XmitExtendedFlags) {
		b2, err := wire.ReadByte(r)
		if err != nil {
			return 0, err
		}
		flags |= XmitFlag(b2) << extendedShift
	}
	return flags, nil
}

func writeNameSuffix(w io.Writer, suffix string, longName bool) error {
	if longName {
		return wire.WriteVString(w, []byte(suffix))
	}
	return wire.WriteLegacyString(w, []byte(suffix))
}

func readNameSuffix(r io.Reader, longName bool) (string, error) {
	if longName {
		b, err := wire.ReadVString(r, maxPathLen)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	b, err := wire.ReadLegacyString(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeTimeField(w io.Writer, sec int64, varint bool) error {
	if varint {
		return wire.WriteVarint(w, sec)
	}
	return wire.WriteInt64Legacy(w, sec)
}

func readTimeField(r io.Reader, varint bool) (int64, error) {
	if varint {
		return wire.ReadVarint(r)
	}
	return wire.ReadInt64Legacy(r)
}

// commonPrefixLen returns the length of the common prefix of a and b,
// capped at max (the inherit_len field is a single byte).
func commonPrefixLen(a, b string, max int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n > max {
		n = max
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
