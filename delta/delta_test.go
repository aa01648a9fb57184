package delta

import (
	"bytes"
	"io"
	"testing"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/stretchr/testify/require"
)

// memBasis adapts a byte slice to collab.BasisFile for tests.
type memBasis struct{ data []byte }

func (m *memBasis) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
func (m *memBasis) Close() error { return nil }
func (m *memBasis) Size() int64  { return int64(len(m.data)) }

// memOutput adapts a byte slice to io.WriterAt for tests.
type memOutput struct{ data []byte }

func (m *memOutput) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.data)) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func roundtrip(t *testing.T, basisData, sourceData []byte) []byte {
	t.Helper()
	const seed = int32(12345)
	strongType := checksum.Md5
	strongLen := strongType.DefaultLength(31)

	layout := NewLayout(int64(len(basisData)), 0, strongLen)

	var basis *memBasis
	if len(basisData) > 0 {
		basis = &memBasis{data: basisData}
	}
	var basisReader io.ReaderAt
	if basis != nil {
		basisReader = basis
	}
	sig, err := GenerateSignature(basisReader, int64(len(basisData)), layout, strongType, seed)
	require.NoError(t, err)

	var deltaBuf bytes.Buffer
	require.NoError(t, GenerateDelta(&deltaBuf, bytes.NewReader(sourceData), sig, strongType, seed, strongLen))

	out := &memOutput{}
	require.NoError(t, Apply(basis, &deltaBuf, out, sig.Layout, strongType, seed, strongLen))
	return out.data
}

func TestRoundtripIdentity(t *testing.T) {
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i % 256)
	}
	got := roundtrip(t, data, data)
	require.Equal(t, data, got[:len(data)])
}

func TestRoundtripEmptyBasis(t *testing.T) {
	got := roundtrip(t, nil, []byte("hello\n"))
	require.Equal(t, []byte("hello\n"), got)
}

func TestRoundtripMiddleBlockEdit(t *testing.T) {
	a := bytes.Repeat([]byte{0xAA}, 1024)
	b := bytes.Repeat([]byte{0xBB}, 1024)
	c := bytes.Repeat([]byte{0xCC}, 1024)
	x := bytes.Repeat([]byte{0xDD}, 1024)

	basis := append(append(append([]byte{}, a...), x...), c...)
	source := append(append(append([]byte{}, a...), b...), c...)

	got := roundtrip(t, basis, source)
	require.Equal(t, source, got[:len(source)])
}

func TestRoundtripOneByteOverBlock(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 1025)
	got := roundtrip(t, data, data)
	require.Equal(t, data, got[:len(data)])
}

func TestPureLiteralFallback(t *testing.T) {
	source := []byte("no basis at all, pure literal content")
	var deltaBuf bytes.Buffer
	sig := FileSignature{Layout: Layout{StrongSumLength: 16}}
	require.NoError(t, GenerateDelta(&deltaBuf, bytes.NewReader(source), sig, checksum.Md5, 0, 16))

	tr := NewTokenReader(&deltaBuf)
	tok, err := tr.Read()
	require.NoError(t, err)
	require.False(t, tok.IsCopy())
	require.Equal(t, source, tok.Literal)

	_, err = tr.Read()
	require.ErrorIs(t, err, io.EOF)
}
