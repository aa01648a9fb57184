package wire_test

import (
	"bytes"
	"testing"

	"github.com/nthconn/rsyncgo/wire"
	"github.com/stretchr/testify/require"
)

func TestNdxCodecRoundtrip(t *testing.T) {
	seq := []int32{0, 1, 2, -1, 3, -2, wire.NdxDelStats, 100, -1, -1}
	var buf bytes.Buffer
	enc := wire.NewNdxCodec()
	for _, v := range seq {
		require.NoError(t, enc.WriteNdx(&buf, v))
	}
	dec := wire.NewNdxCodec()
	for _, want := range seq {
		got, err := dec.ReadNdx(&buf)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// TestNdxCodecWireBytes pins the exact upstream byte forms: one-byte
// positive deltas, the 0xFF prefix plus 0xFE two-byte zero-delta form for
// -1, and the single zero byte for NDX_DONE.
func TestNdxCodecWireBytes(t *testing.T) {
	var buf bytes.Buffer
	enc := wire.NewNdxCodec()
	for _, v := range []int32{0, 1, 2, -1, 3, -2} {
		require.NoError(t, enc.WriteNdx(&buf, v))
	}
	require.Equal(t,
		[]byte{0x01, 0x01, 0x01, 0xFF, 0xFE, 0x00, 0x00, 0x01, 0x00},
		buf.Bytes())
}

func TestNdxCodecArbitrary(t *testing.T) {
	seq := []int32{5, 5, 4, 3, 3, 0, -1, -2, -3, -1, 1000000, -1}
	var buf bytes.Buffer
	enc := wire.NewNdxCodec()
	for _, v := range seq {
		require.NoError(t, enc.WriteNdx(&buf, v))
	}
	dec := wire.NewNdxCodec()
	for _, want := range seq {
		got, err := dec.ReadNdx(&buf)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestLegacyInt32Roundtrip(t *testing.T) {
	for _, v := range []int32{0, 1, -1, -2, -3, 2147483647, -2147483648} {
		var buf bytes.Buffer
		require.NoError(t, wire.WriteInt32LE(&buf, v))
		got, err := wire.ReadInt32LE(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}
