package delta

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTokenStreamWireBytes pins the exact byte forms: a short literal
// carries its length in the tag (high bit clear), a long literal escapes
// to a 4-byte high-bit length word, a sequential full-block copy is a
// single negative tag, and the explicit long copy carries block index,
// source offset, and length as varints.
func TestTokenStreamWireBytes(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTokenWriter(&buf)

	require.NoError(t, tw.WriteCopy(0, 0, 1024, true))      // step 1 from the initial -1
	require.NoError(t, tw.WriteCopy(1, 1024, 1024, true))   // step 1
	require.NoError(t, tw.WriteLiteral([]byte("hi")))       // short literal
	require.NoError(t, tw.WriteCopy(10, 10240, 1024, true)) // step 9
	require.NoError(t, tw.WriteCopy(5, 5120, 300, false))   // partial block: long form
	require.NoError(t, tw.End())

	require.Equal(t, []byte{
		0xFF,
		0xFF,
		0x02, 'h', 'i',
		0xF7,
		0xC0, 0x05, 0x80, 0x28, 0xAC, 0x02,
		0x00,
	}, buf.Bytes())
}

func TestTokenStreamLongLiteralWord(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 200)
	var buf bytes.Buffer
	tw := NewTokenWriter(&buf)
	require.NoError(t, tw.WriteLiteral(data))
	require.NoError(t, tw.End())

	want := append([]byte{0x80, 0x00, 0x00, 0xC8}, data...)
	want = append(want, 0x00)
	require.Equal(t, want, buf.Bytes())
}

func TestTokenStreamRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTokenWriter(&buf)
	require.NoError(t, tw.WriteCopy(0, 0, 1024, true))
	require.NoError(t, tw.WriteLiteral(bytes.Repeat([]byte{7}, 300)))
	require.NoError(t, tw.WriteCopy(100, 102400, 1024, true)) // step 100: long form
	require.NoError(t, tw.WriteCopy(101, 103424, 512, false))
	require.NoError(t, tw.End())

	tr := NewTokenReader(&buf)

	tok, err := tr.Read()
	require.NoError(t, err)
	require.True(t, tok.IsCopy())
	require.Equal(t, int64(0), tok.BlockIndex)
	require.Equal(t, int64(-1), tok.SourceOffset)
	require.Equal(t, int64(-1), tok.Length)

	tok, err = tr.Read()
	require.NoError(t, err)
	require.Len(t, tok.Literal, 300)

	tok, err = tr.Read()
	require.NoError(t, err)
	require.True(t, tok.IsCopy())
	require.Equal(t, int64(100), tok.BlockIndex)
	require.Equal(t, int64(102400), tok.SourceOffset)
	require.Equal(t, int64(1024), tok.Length)

	tok, err = tr.Read()
	require.NoError(t, err)
	require.Equal(t, int64(101), tok.BlockIndex)
	require.Equal(t, int64(512), tok.Length)

	_, err = tr.Read()
	require.ErrorIs(t, err, io.EOF)
}
