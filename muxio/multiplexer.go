package muxio

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"
)

// Writer frames outbound bytes. Before Activate is called, Write passes
// bytes straight through unframed (the negotiation prologue);
// after Activate, all writes go through SendFrame. Activation is one-shot
// per direction and is never reversed.
//
// Individual frames are written atomically under an internal mutex, so a
// keepalive goroutine can interleave NOOP frames with a transfer's DATA
// frames without corrupting the stream.
type Writer struct {
	w        io.Writer
	active   bool
	compress Compressor // nil when no compression negotiated

	mu       sync.Mutex
	lastSend time.Time
}

// NewWriter wraps w for unframed prologue writes.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Activate switches w into framed mode, stacking Plain -> Multiplex ->
// Compress. comp may be nil - callers that negotiated
// NegotiatedAlgorithms.compression == None pass nil here.
func (w *Writer) Activate(comp Compressor) {
	w.active = true
	w.compress = comp
}

// Write implements io.Writer for the prologue (pre-Activate) phase.
func (w *Writer) Write(p []byte) (int, error) {
	if w.active {
		if err := w.SendFrame(TagData, p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	return w.w.Write(p)
}

// LastSend reports when the most recent frame started going out, for
// keepalive idle detection.
func (w *Writer) LastSend() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSend
}

// SendFrame writes one tagged frame. Only TagData payloads are passed
// through the compressor (control tags bypass compression).
// Oversized payloads are split into multiple frames transparently so
// callers never need to chunk themselves.
func (w *Writer) SendFrame(tag Tag, payload []byte) error {
	if tag == TagData && w.compress != nil {
		compressed, err := w.compress.CompressChunk(payload)
		if err != nil {
			return err
		}
		payload = compressed
	}
	for len(payload) > maxPayload {
		if err := w.sendOne(tag, payload[:maxPayload]); err != nil {
			return err
		}
		payload = payload[maxPayload:]
	}
	return w.sendOne(tag, payload)
}

func (w *Writer) sendOne(tag Tag, payload []byte) error {
	header, err := encodeHeader(tag, len(payload))
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSend = time.Now()
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], header)
	if len(payload) == 0 {
		_, err := writeFull(w.w, hdr[:])
		return err
	}
	// net.Buffers gets header and payload out in one writev on
	// connections that support it (*net.TCPConn, *net.UnixConn) and
	// degrades to sequential full writes, with partial-write handling,
	// everywhere else.
	bufs := net.Buffers{hdr[:], payload}
	_, err = bufs.WriteTo(w.w)
	return err
}

func writeFull(w io.Writer, p []byte) (int, error) {
	total := 0
	for total < len(p) {
		n, err := w.Write(p[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, io.ErrShortWrite
		}
	}
	return total, nil
}

// Reader demultiplexes inbound bytes, symmetric to Writer.
type Reader struct {
	r      io.Reader
	active bool
	decomp Decompressor
}

// NewReader wraps r for unframed prologue reads.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Activate switches r into framed mode, symmetric to Writer.Activate.
func (r *Reader) Activate(decomp Decompressor) {
	r.active = true
	r.decomp = decomp
}

// Read implements io.Reader for the prologue phase; once active it is an
// error to call Read directly (use RecvFrame).
func (r *Reader) Read(p []byte) (int, error) {
	if r.active {
		return 0, errUseRecvFrame
	}
	return r.r.Read(p)
}

var errUseRecvFrame = errors.New("muxio: reader is active, call RecvFrame instead of Read")

// RecvFrame reads one tagged frame, transparently decompressing DATA
// payloads when a Decompressor was supplied to Activate.
func (r *Reader) RecvFrame() (Tag, []byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return 0, nil, ErrShortHeader
		}
		return 0, nil, err
	}
	header := binary.LittleEndian.Uint32(hdr[:])
	tag, length, err := decodeHeader(header)
	if err != nil {
		return 0, nil, err
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r.r, payload); err != nil {
			return 0, nil, ErrTruncatedPayload
		}
	}
	if tag == TagData && r.decomp != nil {
		decompressed, err := r.decomp.DecompressChunk(payload)
		if err != nil {
			return 0, nil, err
		}
		payload = decompressed
	}
	return tag, payload, nil
}
