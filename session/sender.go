package session

import (
	"bytes"
	"io"

	"github.com/nthconn/rsyncgo/delta"
	"github.com/nthconn/rsyncgo/filelist"
	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/rlog"
	"github.com/nthconn/rsyncgo/wire"
)

// Sender drives the sending side of a session: enumerate the source tree,
// transmit the file list, then service the receiver's per-file signature
// requests with generated deltas.
type Sender struct {
	opts  Options
	conn  *Conn
	stats *Stats
}

// NewSender builds a Sender over conn for the given Options. conn must
// already be past negotiation and, if compression was negotiated,
// Activated.
func NewSender(opts Options, conn *Conn) *Sender {
	return &Sender{opts: opts, conn: conn, stats: &Stats{}}
}

// Stats returns this sender's running statistics.
func (s *Sender) Stats() *Stats { return s.stats }

// Run executes the full sender loop against root. deletions, if non-nil,
// is consulted once the transfer phase completes to populate the
// NDX_DEL_STATS summary - computing extraneous-file deletions requires
// destination-side knowledge the Sender doesn't otherwise have, so that
// computation is the caller's.
func (s *Sender) Run(root string, deletions func() DeletionCounts) error {
	s.conn.SetLegacyNdx(s.opts.ProtocolVersion > 0 && s.opts.ProtocolVersion < 30)
	ka := startKeepalive(s.conn, s.opts.Timeout)
	defer ka.Stop()

	entries, err := s.sendFileList(root)
	if err != nil {
		return err
	}

	if s.opts.SeedOrder == negotiate.SeedAfterFileList {
		if err := wire.WriteInt32LE(s.conn.W, s.opts.ChecksumSeed); err != nil {
			return err
		}
	}

	byNdx := make(map[int32]filelist.FileEntry, len(entries))
	for i, e := range entries {
		byNdx[int32(i)] = e
	}

	for {
		ndx, err := s.conn.RecvNdx()
		if err != nil {
			return err
		}
		if ndx == wire.NdxDone {
			break
		}
		entry, ok := byNdx[ndx]
		if !ok {
			continue
		}
		if err := s.serveOne(ndx, entry); err != nil {
			return err
		}
	}

	counts := DeletionCounts{}
	if deletions != nil {
		counts = deletions()
	}
	if err := s.conn.SendNdx(wire.NdxDelStats); err != nil {
		return err
	}
	if err := writeDeletionCounts(s.conn.W, counts); err != nil {
		return err
	}
	s.drainPeerFlags()
	return s.sendStats()
}

// drainPeerFlags folds any IO_ERROR frames the receiver reported during
// the transfer phase into this side's counters.
func (s *Sender) drainPeerFlags() {
	for _, cf := range s.conn.Demux.DrainControl() {
		if cf.Tag == muxio.TagIOError && len(cf.Payload) >= 4 {
			s.stats.RecordIOErr(decodeInt32Payload(cf.Payload))
		}
	}
}

// sendStats emits the end-of-session STATS frame exactly once: three
// varints {files transferred, bytes transferred, reserved}.
func (s *Sender) sendStats() error {
	files, transferred := s.stats.Totals()
	var buf bytes.Buffer
	for _, v := range []int64{files, transferred, 0} {
		if err := wire.WriteVarint(&buf, v); err != nil {
			return err
		}
	}
	return s.conn.SendControl(muxio.TagStats, buf.Bytes())
}

// flistSegmentSize bounds how many entries one incremental file-list
// segment carries, limiting both sides' lookahead memory.
const flistSegmentSize = 1000

func (s *Sender) sendFileList(root string) ([]filelist.FileEntry, error) {
	fopts := s.opts.flistOptions()

	if !s.opts.incRecurse() {
		enc := filelist.NewEncoder(fopts)
		var entries []filelist.FileEntry
		err := s.opts.Walker.Walk(root, func(e collabEntry) error {
			fe := fileEntryFromCollab(e)
			entries = append(entries, fe)
			return enc.Encode(s.conn.W, &fe)
		})
		if err != nil {
			return nil, err
		}
		if err := enc.End(s.conn.W); err != nil {
			return nil, err
		}
		return entries, nil
	}

	// Incremental recursion: the list goes out in segments of at most
	// flistSegmentSize entries. Each segment is closed by its own zero
	// flags byte followed by NDX_FLIST_EOF, each starts a fresh encoder
	// (prefix/SAME_* inheritance never crosses a segment), and an empty
	// segment tells the receiver the list is complete - its zero flags
	// byte is the one that ends the whole list.
	enc := filelist.NewEncoder(fopts)
	inSegment := 0
	endSegment := func() error {
		if err := enc.End(s.conn.W); err != nil {
			return err
		}
		if err := s.conn.SendNdx(wire.NdxFlistEOF); err != nil {
			return err
		}
		enc = filelist.NewEncoder(fopts)
		inSegment = 0
		return nil
	}

	var entries []filelist.FileEntry
	err := s.opts.Walker.Walk(root, func(e collabEntry) error {
		if inSegment == flistSegmentSize {
			if err := endSegment(); err != nil {
				return err
			}
		}
		fe := fileEntryFromCollab(e)
		entries = append(entries, fe)
		inSegment++
		return enc.Encode(s.conn.W, &fe)
	})
	if err != nil {
		return nil, err
	}
	if inSegment > 0 {
		if err := endSegment(); err != nil {
			return nil, err
		}
	}
	if err := endSegment(); err != nil { // terminating empty segment
		return nil, err
	}
	return entries, nil
}

// serveOne handles one requested index: read its signature, generate a
// delta against the source content, and emit it. A
// vanished source is reported via MSG_NO_SEND rather than failing the
// session.
func (s *Sender) serveOne(ndx int32, entry filelist.FileEntry) error {
	sig, err := delta.ReadSignature(s.conn.Demux)
	if err != nil {
		return err
	}

	src, err := s.opts.SourceOpener.Open(entry.Path)
	if err != nil {
		return err
	}
	if src == nil {
		s.stats.RecordVanished()
		rlog.Warnf(rlog.Fields{Role: "sender", HasNDX: true, NDX: ndx}, "source vanished: %s", entry.Path)
		return s.conn.SendControl(muxio.TagNoSend, encodeNdxPayload(ndx))
	}
	defer src.Close()

	strongType := s.opts.ChecksumType
	strongLen := strongType.DefaultLength(s.opts.ProtocolVersion)
	sr := io.NewSectionReader(src, 0, src.Size())
	if err := delta.GenerateDelta(s.conn.W, sr, sig, strongType, s.opts.ChecksumSeed, strongLen); err != nil {
		return err
	}
	s.stats.RecordTransfer(entry.Size)
	return nil
}

func encodeNdxPayload(ndx int32) []byte {
	var buf [4]byte
	buf[0] = byte(ndx)
	buf[1] = byte(ndx >> 8)
	buf[2] = byte(ndx >> 16)
	buf[3] = byte(ndx >> 24)
	return buf[:]
}

func decodeInt32Payload(p []byte) int32 {
	return int32(p[0]) | int32(p[1])<<8 | int32(p[2])<<16 | int32(p[3])<<24
}

func writeDeletionCounts(w io.Writer, c DeletionCounts) error {
	for _, v := range []int64{c.Files, c.Dirs, c.Symlinks, c.Devices, c.Specials} {
		if err := wire.WriteVarint(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readDeletionCounts(r io.Reader) (DeletionCounts, error) {
	vals := make([]int64, 5)
	for i := range vals {
		v, err := wire.ReadVarint(r)
		if err != nil {
			return DeletionCounts{}, err
		}
		vals[i] = v
	}
	return DeletionCounts{Files: vals[0], Dirs: vals[1], Symlinks: vals[2], Devices: vals[3], Specials: vals[4]}, nil
}
