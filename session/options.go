// Package session implements the session orchestrator: the
// sender and receiver loops that drive per-file index requests, interleave
// file-list consumption with signature/delta/checksum exchange, and
// coordinate deletion timing and end-of-session statistics.
//
// Options follows the same functional-options constructor convention as
// bwlimit.NewLimiter.
package session

import (
	"time"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/nthconn/rsyncgo/collab"
	"github.com/nthconn/rsyncgo/filelist"
	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/negotiate"
)

// DeletionTiming selects when receiver-side extraneous files are removed
type DeletionTiming int

const (
	DeleteDuring DeletionTiming = iota // default when --delete is active
	DeleteBefore
	DeleteDelay
	DeleteAfter
)

// UpdatePolicy selects the predicate deciding whether a destination entry
// needs transfer.
type UpdatePolicy int

const (
	// PolicyQuickCheck is the default: size and mtime match within
	// ModifyWindow.
	PolicyQuickCheck UpdatePolicy = iota
	// PolicyChecksum forces a whole-file checksum comparison.
	PolicyChecksum
	// PolicySizeOnly compares size alone.
	PolicySizeOnly
	// PolicyIgnoreExisting skips any destination entry that already
	// exists, regardless of content.
	PolicyIgnoreExisting
	// PolicyExisting transfers only entries that already exist at the
	// destination.
	PolicyExisting
	// PolicyUpdate skips entries whose destination mtime is newer than
	// the source's (destination-newer-wins).
	PolicyUpdate
	// PolicyIgnoreTimes disables the mtime half of the quick check,
	// comparing size alone; NeedsTransfer treats it exactly like
	// PolicySizeOnly.
	PolicyIgnoreTimes
)

// Options configures one session's orchestrator. Built with functional
// options, following bwlimit.Option.
type Options struct {
	Role Role

	ProtocolVersion int
	// CompatFlags is the negotiated (intersected) capability set; it
	// selects the file-list wire encodings and incremental recursion.
	CompatFlags     negotiate.CompatFlags
	ChecksumType    checksum.Type
	ChecksumSeed    int32
	// SeedOrder places the checksum-seed exchange relative to the file
	// list. SeedBeforeFileList means the caller already exchanged it
	// during negotiation; SeedAfterFileList means the sender transmits it
	// (and the receiver reads it) right after the file list, before any
	// delta traffic.
	SeedOrder       negotiate.SeedPosition
	CompressionAlgo muxio.CompressionAlgo

	UpdatePolicy UpdatePolicy
	ModifyWindow time.Duration

	DeletionTiming DeletionTiming
	MaxDelete      int // 0 means unlimited

	PartialDir string
	Timeout    time.Duration

	Walker          collab.Walker
	MetadataApplier collab.MetadataApplier
	BasisOpener     collab.BasisOpener
	OutputOpener    collab.OutputOpener
	NodeCreator     collab.NodeCreator

	// SourceOpener resolves a sender-side file's readable content.
	// Reuses collab.BasisOpener's shape (ReaderAt+Close+Size is exactly
	// what delta generation needs to read a source file) rather than
	// introducing a near-duplicate interface in collab.
	SourceOpener collab.BasisOpener
}

// Role identifies which side of the transfer this session drives.
type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// Option mutates an Options during construction.
type Option func(*Options)

// NewOptions builds an Options from defaults plus the given Options,
// mirroring bwlimit.NewLimiter's defaults-then-apply shape.
func NewOptions(opts ...Option) Options {
	o := Options{
		ChecksumType: checksum.Md5,
		ModifyWindow: 0,
		Timeout:      0,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithRole(r Role) Option { return func(o *Options) { o.Role = r } }

func WithProtocolVersion(v int) Option { return func(o *Options) { o.ProtocolVersion = v } }

func WithCompatFlags(f negotiate.CompatFlags) Option {
	return func(o *Options) { o.CompatFlags = f }
}

func WithSeedOrder(p negotiate.SeedPosition) Option {
	return func(o *Options) { o.SeedOrder = p }
}

func WithChecksum(t checksum.Type, seed int32) Option {
	return func(o *Options) { o.ChecksumType = t; o.ChecksumSeed = seed }
}

func WithCompression(a muxio.CompressionAlgo) Option {
	return func(o *Options) { o.CompressionAlgo = a }
}

func WithUpdatePolicy(p UpdatePolicy) Option { return func(o *Options) { o.UpdatePolicy = p } }

func WithModifyWindow(d time.Duration) Option { return func(o *Options) { o.ModifyWindow = d } }

func WithDeletionTiming(t DeletionTiming, maxDelete int) Option {
	return func(o *Options) { o.DeletionTiming = t; o.MaxDelete = maxDelete }
}

func WithPartialDir(dir string) Option { return func(o *Options) { o.PartialDir = dir } }

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }

func WithCollaborators(w collab.Walker, m collab.MetadataApplier, b collab.BasisOpener, out collab.OutputOpener, nc collab.NodeCreator) Option {
	return func(o *Options) {
		o.Walker = w
		o.MetadataApplier = m
		o.BasisOpener = b
		o.OutputOpener = out
		o.NodeCreator = nc
	}
}

func WithSourceOpener(s collab.BasisOpener) Option {
	return func(o *Options) { o.SourceOpener = s }
}

// flistOptions derives the file-list codec configuration from the
// negotiated protocol version and compat flags, identically on both
// sides. The receiver validates paths even when the peer never advertised
// SAFE_FILE_LIST - a hostile sender must not escape the destination root
// by withholding the bit.
func (o Options) flistOptions() filelist.Options {
	return filelist.Options{
		ProtocolVersion:  o.ProtocolVersion,
		VarintFlistFlags: o.ProtocolVersion >= 30 && o.CompatFlags.Has(negotiate.VarintFlistFlags),
		SafeFileList:     o.CompatFlags.Has(negotiate.SafeFileList) || o.Role == RoleReceiver,
		ModNsec:          o.ProtocolVersion >= 31,
		SymlinkTimes:     o.CompatFlags.Has(negotiate.SymlinkTimes),
		ID0Names:         o.CompatFlags.Has(negotiate.ID0Names),
	}
}

// incRecurse reports whether both peers negotiated incremental recursion.
func (o Options) incRecurse() bool {
	return o.ProtocolVersion >= 30 && o.CompatFlags.Has(negotiate.IncRecurse)
}
