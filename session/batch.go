package session

import (
	"io"

	"github.com/nthconn/rsyncgo/wire"
)

// BatchHeader is the fixed preamble of a batch file: the protocol
// version and checksum seed the recorded delta streams assume.
type BatchHeader struct {
	ProtocolVersion int32
	ChecksumSeed    int32
}

// BatchWriter records a session's per-file delta streams to an underlying
// writer for later replay via --read-batch, following the same
// length-prefixed-record shape the file-list and delta codecs already
// use elsewhere in this module rather than inventing a new framing.
type BatchWriter struct {
	w io.Writer
}

// NewBatchWriter writes header immediately and returns a BatchWriter
// ready to append file records.
func NewBatchWriter(w io.Writer, header BatchHeader) (*BatchWriter, error) {
	if err := wire.WriteInt32LE(w, header.ProtocolVersion); err != nil {
		return nil, err
	}
	if err := wire.WriteInt32LE(w, header.ChecksumSeed); err != nil {
		return nil, err
	}
	return &BatchWriter{w: w}, nil
}

// WriteFile appends one file's recorded delta stream, identified by its
// NDX and path, as a length-prefixed record.
func (bw *BatchWriter) WriteFile(ndx int32, path string, deltaStream []byte) error {
	if err := wire.WriteInt32LE(bw.w, ndx); err != nil {
		return err
	}
	if err := wire.WriteVString(bw.w, []byte(path)); err != nil {
		return err
	}
	return wire.WriteVString(bw.w, deltaStream)
}

// BatchReader replays a file written by BatchWriter.
type BatchReader struct {
	r io.Reader
}

// NewBatchReader reads and returns the header, leaving r positioned at
// the first file record.
func NewBatchReader(r io.Reader) (*BatchReader, BatchHeader, error) {
	var h BatchHeader
	v, err := wire.ReadInt32LE(r)
	if err != nil {
		return nil, h, err
	}
	h.ProtocolVersion = v
	seed, err := wire.ReadInt32LE(r)
	if err != nil {
		return nil, h, err
	}
	h.ChecksumSeed = seed
	return &BatchReader{r: r}, h, nil
}

// BatchRecord is one replayed file's recorded delta stream.
type BatchRecord struct {
	NDX         int32
	Path        string
	DeltaStream []byte
}

// ReadFile reads the next record, returning io.EOF when the stream is
// exhausted.
func (br *BatchReader) ReadFile() (BatchRecord, error) {
	ndx, err := wire.ReadInt32LE(br.r)
	if err != nil {
		return BatchRecord{}, err
	}
	path, err := wire.ReadVString(br.r, 4096)
	if err != nil {
		return BatchRecord{}, err
	}
	deltaStream, err := wire.ReadVString(br.r, 1<<24)
	if err != nil {
		return BatchRecord{}, err
	}
	return BatchRecord{NDX: ndx, Path: string(path), DeltaStream: deltaStream}, nil
}
