package session

import (
	"errors"
	"io"
	"path/filepath"
	"time"

	"github.com/nthconn/rsyncgo/collab"
	"github.com/nthconn/rsyncgo/delta"
	"github.com/nthconn/rsyncgo/filelist"
	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/rerr"
	"github.com/nthconn/rsyncgo/rlog"
	"github.com/nthconn/rsyncgo/wire"
)

// Receiver drives the receiving side of a session: consume the file list,
// select entries needing transfer via the update policy, exchange
// signature/delta/checksum per entry, apply metadata, and process
// deletion/statistics at the end.
type Receiver struct {
	opts    Options
	conn    *Conn
	stats   *Stats
	pending *PendingSet
}

func NewReceiver(opts Options, conn *Conn) *Receiver {
	return &Receiver{opts: opts, conn: conn, stats: &Stats{}, pending: NewPendingSet()}
}

func (r *Receiver) Stats() *Stats { return r.stats }

// Run executes the full receiver loop, reconstructing files under
// destRoot.
func (r *Receiver) Run(destRoot string) error {
	r.conn.SetLegacyNdx(r.opts.ProtocolVersion > 0 && r.opts.ProtocolVersion < 30)
	ka := startKeepalive(r.conn, r.opts.Timeout)
	defer ka.Stop()

	dest, err := r.scanDest(destRoot)
	if err != nil {
		return err
	}

	incRecurse := r.opts.incRecurse()
	seedAfter := r.opts.SeedOrder == negotiate.SeedAfterFileList

	// Directory/symlink/device entries realize immediately, but content
	// transfers queue until the whole list is consumed: the sender's
	// delta responses follow its file-list bytes on the one data stream,
	// so a transfer's reads before list end would swallow list bytes as
	// token data. With the legacy seed order the seed also only arrives
	// once the list ends.
	type queuedTransfer struct {
		ndx      int32
		destPath string
		entry    *filelist.FileEntry
	}
	var queued []queuedTransfer

	var ndx int32
	for {
		dec := filelist.NewDecoder(r.opts.flistOptions())
		segEntries := 0
		for {
			entry, err := dec.Decode(r.conn.Demux)
			if err == io.EOF {
				break
			}
			if errors.Is(err, filelist.ErrUnsafePath) {
				r.stats.RecordIOErr(IOErrGeneral)
				rlog.Warnf(rlog.Fields{Role: "receiver", HasNDX: true, NDX: ndx}, "skipping unsafe path %q", entry.Path)
				ndx++
				segEntries++
				continue
			}
			if err != nil {
				return err
			}
			segEntries++

			r.drainDeletions()

			destPath := filepath.Join(destRoot, entry.Path)
			info := dest[entry.Path]

			if filelist.IsDir(entry.Mode) {
				if err := r.opts.NodeCreator.EnsureDir(destPath); err != nil {
					return err
				}
				r.applyMetadata(destPath, entry, false)
				ndx++
				continue
			}
			if filelist.IsSymlink(entry.Mode) {
				if err := r.opts.NodeCreator.CreateSymlink(destPath, entry.SymlinkTarget); err != nil {
					return err
				}
				r.applyMetadata(destPath, entry, true)
				ndx++
				continue
			}
			if filelist.IsDevice(entry.Mode) {
				if err := r.opts.NodeCreator.CreateSpecial(destPath, entry.Mode, entry.RdevMajor, entry.RdevMinor); err != nil {
					rlog.Warnf(rlog.Fields{Role: "receiver"}, "create special %s: %v", destPath, err)
				}
				r.applyMetadata(destPath, entry, false)
				ndx++
				continue
			}

			if !NeedsTransfer(r.opts.UpdatePolicy, entry, info, r.opts.ModifyWindow) {
				ndx++
				continue
			}

			queued = append(queued, queuedTransfer{ndx: ndx, destPath: destPath, entry: entry})
			ndx++
		}

		if !incRecurse {
			break
		}
		sep, err := r.conn.RecvNdx()
		if err != nil {
			return err
		}
		if sep != wire.NdxFlistEOF {
			return rerr.New(rerr.ClassProtocol, rerr.CodeProtocolStream,
				"session: expected NDX_FLIST_EOF between file-list segments", nil)
		}
		if segEntries == 0 {
			break
		}
	}

	if seedAfter {
		seed, err := wire.ReadInt32LE(r.conn.Demux)
		if err != nil {
			return err
		}
		r.opts.ChecksumSeed = seed
	}

	for _, q := range queued {
		if err := r.transferOne(q.ndx, q.destPath, q.entry); err != nil {
			return err
		}
	}

	if r.stats.IOErrFlags != 0 {
		if err := r.conn.SendControl(muxio.TagIOError, encodeNdxPayload(r.stats.IOErrFlags)); err != nil {
			return err
		}
	}
	if err := r.conn.SendNdx(wire.NdxDone); err != nil {
		return err
	}

	delNdx, err := r.conn.RecvNdx()
	if err != nil {
		return err
	}
	if delNdx == wire.NdxDelStats {
		counts, err := readDeletionCounts(r.conn.Demux)
		if err != nil {
			return err
		}
		r.stats.Deletions = counts
	}

	statsPayload, err := r.conn.Demux.AwaitControl(muxio.TagStats)
	if err != nil {
		return err
	}
	_ = statsPayload // peer-reported byte totals; this engine trusts its own counters for the exit code.

	return nil
}

func (r *Receiver) scanDest(destRoot string) (map[string]DestInfo, error) {
	dest := make(map[string]DestInfo)
	if r.opts.Walker == nil {
		return dest, nil
	}
	err := r.opts.Walker.Walk(destRoot, func(e collab.Entry) error {
		if e.Path == "" {
			return nil
		}
		dest[e.Path] = DestInfoFromEntry(e)
		return nil
	})
	return dest, err
}

// drainDeletions processes queued MSG_DELETED/NO_SEND notifications;
// deletion timing policy beyond "note it"
// belongs to the CLI collaborator driving --delete, so this only updates
// stats and logs.
func (r *Receiver) drainDeletions() {
	for _, cf := range r.conn.Demux.DrainControl() {
		switch cf.Tag {
		case muxio.TagDeleted:
			r.stats.Deletions.Files++
		case muxio.TagNoSend:
			r.stats.RecordVanished()
		}
	}
}

func (r *Receiver) applyMetadata(path string, entry *filelist.FileEntry, symlink bool) {
	spec := collab.MetadataSpec{
		Mode:     entry.Mode,
		SetMode:  true,
		ModTime:  time.Unix(entry.MtimeSec, int64(entry.MtimeNsec)),
		SetTime:  true,
		UID:      entry.UID,
		GID:      entry.GID,
		SetOwner: true,
		Symlink:  symlink,
	}
	if err := r.opts.MetadataApplier.Apply(path, spec); err != nil {
		rlog.Warnf(rlog.Fields{Role: "receiver"}, "apply metadata %s: %v", path, err)
	}
}

// transferOne runs the strict per-index sequence: request,
// local signature, remote delta, apply, verify, with exactly one redo on
// checksum mismatch.
func (r *Receiver) transferOne(ndx int32, destPath string, entry *filelist.FileEntry) error {
	p, err := r.pending.Start(ndx, entry.Path)
	if err != nil {
		return err
	}
	defer r.pending.Finish(ndx)

	for {
		if err := r.conn.SendNdx(ndx); err != nil {
			return err
		}
		if err := p.Advance(StateSignatureSent); err != nil {
			return err
		}

		basis, err := r.opts.BasisOpener.Open(destPath)
		if err != nil {
			return err
		}
		strongType := r.opts.ChecksumType
		strongLen := strongType.DefaultLength(r.opts.ProtocolVersion)
		var basisSize int64
		var basisReader io.ReaderAt
		if basis != nil {
			basisSize = basis.Size()
			basisReader = basis
		}
		layout := delta.NewLayout(basisSize, 0, strongLen)
		sig, err := delta.GenerateSignature(basisReader, basisSize, layout, strongType, r.opts.ChecksumSeed)
		if err != nil {
			if basis != nil {
				basis.Close()
			}
			return err
		}
		if err := delta.WriteSignature(r.conn.W, sig); err != nil {
			if basis != nil {
				basis.Close()
			}
			return err
		}

		if err := p.Advance(StateDeltaReceived); err != nil {
			return err
		}

		out, err := r.opts.OutputOpener.Create(destPath, r.opts.PartialDir)
		if err != nil {
			if basis != nil {
				basis.Close()
			}
			return err
		}

		if err := p.Advance(StateVerifying); err != nil {
			return err
		}
		applyErr := delta.Apply(basis, r.conn.Demux, out, sig.Layout, strongType, r.opts.ChecksumSeed, strongLen)
		if basis != nil {
			basis.Close()
		}

		if applyErr == nil {
			if err := out.Commit(destPath); err != nil {
				return err
			}
			r.applyMetadata(destPath, entry, false)
			r.stats.RecordTransfer(entry.Size)
			return p.Advance(StateDone)
		}

		_ = out.Discard()
		if p.Redone {
			r.stats.RecordPartialFailure()
			rlog.Errorf(rlog.Fields{Role: "receiver", HasNDX: true, NDX: ndx}, 23, "checksum mismatch after redo: %v", applyErr)
			return nil
		}
		p.Redone = true
		rlog.Warnf(rlog.Fields{Role: "receiver", HasNDX: true, NDX: ndx}, "checksum mismatch, retrying: %v", applyErr)
		if err := p.Advance(StateRedo); err != nil {
			return err
		}
	}
}
