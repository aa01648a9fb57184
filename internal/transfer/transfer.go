// Package transfer wires negotiate, session, muxio, bwlimit, and localfs
// together into the one thing cmd/rsync and cmd/rsyncd both need: drive
// one side of a session over an already-connected transport. Kept out of
// cmd/* so each subcommand package stays a thin cobra.Command plus flag
// bindings.
package transfer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nthconn/rsyncgo/bwlimit"
	"github.com/nthconn/rsyncgo/localfs"
	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/session"
)

// Params is everything Run needs once the caller has decided which role
// this process plays and, for daemon connections, which negotiate.Mode
// applies.
type Params struct {
	Role Role
	Mode negotiate.Mode

	ProtocolMax int
	// PeerProtocolMax, when non-zero, is the peer's maximum protocol
	// version already learned via the daemon "@RSYNCD:" greeting (spec
	// 4.2 step 1's alternate daemon-mode form shares the same version
	// numbering space as the binary exchange) - Run uses it directly
	// instead of performing a second version round trip. Zero means no
	// daemon handshake preceded this call, so Run exchanges versions
	// itself (the ModeShell case).
	PeerProtocolMax int
	CompatFlags     negotiate.CompatFlags
	CompressionLvl  int    // compressor level, used only if compression is negotiated; 0 means the compressor's own default
	BandwidthSpec   string // --bwlimit value; "" disables shaping

	Path           string // source root (sender) or destination root (receiver)
	UpdatePolicy   session.UpdatePolicy
	ModifyWindow   time.Duration
	DeletionTiming session.DeletionTiming
	MaxDelete      int
	PartialDir     string
	Timeout        time.Duration
	OneFileSystem  bool
}

// Role mirrors session.Role at the transfer-wiring boundary so callers
// outside session don't need to import it just to build Params.
type Role = session.Role

const (
	RoleSender   = session.RoleSender
	RoleReceiver = session.RoleReceiver
)

// DefaultCompatFlags advertises every compat flag this engine actually
// implements end to end: incremental recursion,
// symlink times, the safe/varint file-list encodings, the fix-up checksum
// seed order, in-place partial-dir handling, and numeric-only id0 names.
// AvoidXattrOptim and SymlinkIconv are left unset - this engine has no
// xattr-diff optimization to avoid and no iconv transcoding layer.
const DefaultCompatFlags = negotiate.IncRecurse | negotiate.SymlinkTimes |
	negotiate.SafeFileList | negotiate.ChecksumSeedFix |
	negotiate.InplacePartialDir | negotiate.VarintFlistFlags | negotiate.ID0Names

// Run negotiates over rw (already past any daemon-level handshake) and
// drives the configured side of the session to completion. Once the
// session has started, Run returns its Stats even on error so the caller
// can still compute an exit code from partial progress; an error before
// that (bandwidth spec, negotiation, codec setup) comes with nil Stats.
func Run(ctx context.Context, rw io.ReadWriter, p Params) (*session.Stats, error) {
	rw = session.WithReadTimeout(rw, p.Timeout)
	shaped, err := shapeBandwidth(ctx, rw, p.BandwidthSpec)
	if err != nil {
		return nil, fmt.Errorf("transfer: parsing --bwlimit: %w", err)
	}

	isSender := p.Role == RoleSender
	neg := negotiate.NewNegotiator(shaped, p.ProtocolMax, p.CompatFlags, isSender, p.Mode)

	peerMax := p.PeerProtocolMax
	if peerMax == 0 {
		if err := negotiate.WriteVersion(shaped, p.ProtocolMax); err != nil {
			return nil, fmt.Errorf("transfer: writing version: %w", err)
		}
		peerMax, err = negotiate.ReadVersion(shaped)
		if err != nil {
			return nil, fmt.Errorf("transfer: reading peer version: %w", err)
		}
	}

	res, err := neg.Negotiate(peerMax)
	if err != nil {
		return nil, fmt.Errorf("transfer: negotiate: %w", err)
	}

	// With CHECKSUM_SEED_FIX in the negotiated set the seed travels here,
	// during the prologue; otherwise (any protocol 28/29 peer, where no
	// compat flags exist) the session exchanges it right after the file
	// list, over the multiplexed stream.
	seed := res.Seed
	if res.SeedOrder == negotiate.SeedBeforeFileList {
		seed, err = neg.ExchangeSeed(res.Seed)
		if err != nil {
			return nil, fmt.Errorf("transfer: exchanging checksum seed: %w", err)
		}
	}

	comp, decomp, err := buildCodecs(res.Algorithms.Compression, p.CompressionLvl)
	if err != nil {
		return nil, err
	}

	conn := session.NewConn(shaped)
	conn.Activate(comp, decomp)

	opts := session.NewOptions(
		session.WithRole(p.Role),
		session.WithProtocolVersion(int(res.Protocol)),
		session.WithCompatFlags(res.CompatFlags),
		session.WithSeedOrder(res.SeedOrder),
		session.WithChecksum(res.Algorithms.Checksum, seed),
		session.WithCompression(res.Algorithms.Compression),
		session.WithUpdatePolicy(p.UpdatePolicy),
		session.WithModifyWindow(p.ModifyWindow),
		session.WithDeletionTiming(p.DeletionTiming, p.MaxDelete),
		session.WithPartialDir(p.PartialDir),
		session.WithTimeout(p.Timeout),
		session.WithCollaborators(
			&localfs.Walker{OneFileSystem: p.OneFileSystem},
			localfs.MetadataApplier{},
			localfs.BasisOpener{},
			localfs.OutputOpener{},
			localfs.NodeCreator{},
		),
		session.WithSourceOpener(localfs.BasisOpener{}),
	)

	if isSender {
		s := session.NewSender(opts, conn)
		err := s.Run(p.Path, nil)
		return s.Stats(), err
	}
	r := session.NewReceiver(opts, conn)
	err = r.Run(p.Path)
	return r.Stats(), err
}

func buildCodecs(algo muxio.CompressionAlgo, level int) (muxio.Compressor, muxio.Decompressor, error) {
	if algo == muxio.CompressNone {
		return nil, nil, nil
	}
	comp, err := muxio.NewCompressor(algo, level)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: building compressor: %w", err)
	}
	decomp, err := muxio.NewDecompressor(algo)
	if err != nil {
		return nil, nil, fmt.Errorf("transfer: building decompressor: %w", err)
	}
	return comp, decomp, nil
}

func shapeBandwidth(ctx context.Context, rw io.ReadWriter, spec string) (io.ReadWriter, error) {
	if spec == "" {
		return rw, nil
	}
	s, err := bwlimit.ParseSpec(spec)
	if err != nil {
		return nil, err
	}
	pair := bwlimit.NewPair(s)
	return &shapedConn{
		r: bwlimit.NewReader(ctx, rw, pair.Rx),
		w: bwlimit.NewWriter(ctx, rw, pair.Tx),
	}, nil
}

// shapedConn combines a bwlimit.Reader and bwlimit.Writer (independent
// TX and RX rates) into the single io.ReadWriter the rest of
// this package's wiring expects.
type shapedConn struct {
	r *bwlimit.Reader
	w *bwlimit.Writer
}

func (c *shapedConn) Read(p []byte) (int, error)  { return c.r.Read(p) }
func (c *shapedConn) Write(p []byte) (int, error) { return c.w.Write(p) }
