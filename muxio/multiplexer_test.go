package muxio_test

import (
	"bytes"
	"testing"

	"github.com/nthconn/rsyncgo/muxio"
	"github.com/stretchr/testify/require"
)

// TestMultiplexEcho checks that DATA, INFO, and NOOP frames sent in
// order are recovered in the same order with no leaked bytes between
// them.
func TestMultiplexEcho(t *testing.T) {
	var buf bytes.Buffer
	w := muxio.NewWriter(&buf)
	w.Activate(nil)

	require.NoError(t, w.SendFrame(muxio.TagData, []byte("hello")))
	require.NoError(t, w.SendFrame(muxio.TagInfo, []byte("info message")))
	require.NoError(t, w.SendFrame(muxio.TagNoop, nil))

	r := muxio.NewReader(&buf)
	r.Activate(nil)

	tag, payload, err := r.RecvFrame()
	require.NoError(t, err)
	require.Equal(t, muxio.TagData, tag)
	require.Equal(t, []byte("hello"), payload)

	tag, payload, err = r.RecvFrame()
	require.NoError(t, err)
	require.Equal(t, muxio.TagInfo, tag)
	require.Equal(t, []byte("info message"), payload)

	tag, payload, err = r.RecvFrame()
	require.NoError(t, err)
	require.Equal(t, muxio.TagNoop, tag)
	require.Empty(t, payload)
}

func TestWriterProloguePassthrough(t *testing.T) {
	var buf bytes.Buffer
	w := muxio.NewWriter(&buf)
	n, err := w.Write([]byte("@RSYNCD: 31.0\n"))
	require.NoError(t, err)
	require.Equal(t, 14, n)
	require.Equal(t, "@RSYNCD: 31.0\n", buf.String())
}

func TestReaderRejectsReadWhenActive(t *testing.T) {
	var buf bytes.Buffer
	r := muxio.NewReader(&buf)
	r.Activate(nil)
	_, err := r.Read(make([]byte, 1))
	require.Error(t, err)
}

// TestSendFrameSplitsOversizedPayload verifies a payload larger than one
// frame's 24-bit length field is split across multiple frames and
// reassembles correctly.
func TestSendFrameSplitsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	w := muxio.NewWriter(&buf)
	w.Activate(nil)

	payload := bytes.Repeat([]byte("x"), muxio.MaxPayload()+10)
	require.NoError(t, w.SendFrame(muxio.TagData, payload))

	r := muxio.NewReader(&buf)
	r.Activate(nil)

	var got []byte
	for len(got) < len(payload) {
		tag, chunk, err := r.RecvFrame()
		require.NoError(t, err)
		require.Equal(t, muxio.TagData, tag)
		got = append(got, chunk...)
	}
	require.Equal(t, payload, got)
}
