package session

import (
	"io"

	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/wire"
)

// ControlFrame is a non-TagData frame the Demuxer set aside while a caller
// was pulling bytes out of the TagData substream.
type ControlFrame struct {
	Tag     muxio.Tag
	Payload []byte
}

// Demuxer presents the TagData substream of a *muxio.Reader as a plain
// io.Reader (so filelist.Decoder, delta.TokenReader, and the NDX codec can
// read it without knowing about framing), while setting aside every
// control-tag frame (DELETED, NO_SEND, STATS, ERROR, ...) it encounters
// along the way for the orchestrator to drain explicitly.
type Demuxer struct {
	r       *muxio.Reader
	buf     []byte
	Control []ControlFrame
}

// NewDemuxer wraps an activated *muxio.Reader.
func NewDemuxer(r *muxio.Reader) *Demuxer {
	return &Demuxer{r: r}
}

// Read implements io.Reader over the TagData substream.
func (d *Demuxer) Read(p []byte) (int, error) {
	for len(d.buf) == 0 {
		tag, payload, err := d.r.RecvFrame()
		if err != nil {
			return 0, err
		}
		if tag == muxio.TagData {
			d.buf = payload
			break
		}
		d.Control = append(d.Control, ControlFrame{Tag: tag, Payload: payload})
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

// AwaitControl blocks until a frame tagged want arrives, queuing every
// other control frame it sees along the way and stashing any interleaved
// TagData bytes into the pending read buffer so a subsequent Read still
// sees them in order.
func (d *Demuxer) AwaitControl(want muxio.Tag) ([]byte, error) {
	for i, cf := range d.Control {
		if cf.Tag == want {
			d.Control = append(d.Control[:i:i], d.Control[i+1:]...)
			return cf.Payload, nil
		}
	}
	for {
		tag, payload, err := d.r.RecvFrame()
		if err != nil {
			return nil, err
		}
		if tag == want {
			return payload, nil
		}
		if tag == muxio.TagData {
			d.buf = append(d.buf, payload...)
			continue
		}
		d.Control = append(d.Control, ControlFrame{Tag: tag, Payload: payload})
	}
}

// DrainControl removes and returns all queued control frames without
// blocking, for callers that poll between protocol steps for queued
// MSG_DELETED and similar notifications.
func (d *Demuxer) DrainControl() []ControlFrame {
	drained := d.Control
	d.Control = nil
	return drained
}

// Conn bundles one session's multiplexed connection: the framed writer,
// the Demuxer view of its framed reader, and the pair of NdxCodecs each
// direction of the NDX stream needs (a codec is stateful per
// direction, never shared).
type Conn struct {
	W    *muxio.Writer
	R    *muxio.Reader
	Demux *Demuxer

	ndxOut    *wire.NdxCodec
	ndxIn     *wire.NdxCodec
	legacyNdx bool
}

// NewConn wraps rw for one session's post-negotiation transport. Callers
// activate compression (if negotiated) via Activate before using Conn.
func NewConn(rw io.ReadWriter) *Conn {
	r := muxio.NewReader(rw)
	return &Conn{
		W:      muxio.NewWriter(rw),
		R:      r,
		Demux:  NewDemuxer(r),
		ndxOut: wire.NewNdxCodec(),
		ndxIn:  wire.NewNdxCodec(),
	}
}

// Activate switches both directions into framed mode (after
// activation, Plain -> Multiplex -> Compress).
func (c *Conn) Activate(comp muxio.Compressor, decomp muxio.Decompressor) {
	c.W.Activate(comp)
	c.R.Activate(decomp)
}

// SetLegacyNdx selects the pre-protocol-30 NDX form: plain 4-byte LE
// integers instead of the delta-encoded stream. Sender and Receiver set
// it from the negotiated protocol version when they start.
func (c *Conn) SetLegacyNdx(on bool) { c.legacyNdx = on }

// SendNdx writes one NDX value to the TagData substream.
func (c *Conn) SendNdx(ndx int32) error {
	if c.legacyNdx {
		return wire.WriteInt32LE(c.W, ndx)
	}
	return c.ndxOut.WriteNdx(c.W, ndx)
}

// RecvNdx reads one NDX value from the TagData substream.
func (c *Conn) RecvNdx() (int32, error) {
	if c.legacyNdx {
		return wire.ReadInt32LE(c.Demux)
	}
	return c.ndxIn.ReadNdx(c.Demux)
}

// SendControl writes a control-tag frame (DELETED, NO_SEND, STATS, ...).
func (c *Conn) SendControl(tag muxio.Tag, payload []byte) error {
	return c.W.SendFrame(tag, payload)
}
