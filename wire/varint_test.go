package wire_test

import (
	"bytes"
	"testing"

	"github.com/nthconn/rsyncgo/wire"
	"github.com/stretchr/testify/require"
)

func TestVarintBoundary(t *testing.T) {
	boundaries := []int64{0, 1, 126, 127, 128, 129, 16_383, 16_384, 16_385,
		2_097_151, 2_097_152, 2_097_153, int64(1<<31 - 1), int64(1 << 40)}
	for _, v := range boundaries {
		var buf bytes.Buffer
		require.NoError(t, wire.WriteVarint(&buf, v))
		got, err := wire.ReadVarint(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got, "roundtrip for %d", v)
	}
}

func TestVarintByteCounts(t *testing.T) {
	// 7 bits per byte: 127 fits in one byte, 128 needs two, etc.
	cases := []struct {
		v     int64
		bytes int
	}{
		{127, 1},
		{128, 2},
		{16_383, 2},
		{16_384, 3},
		{2_097_151, 3},
		{2_097_152, 4},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		require.NoError(t, wire.WriteVarint(&buf, c.v))
		require.Equal(t, c.bytes, buf.Len(), "value %d", c.v)
	}
}

func TestVStringRoundtrip(t *testing.T) {
	for _, s := range [][]byte{{}, []byte("a"), []byte("md5 xxh64 none"), bytes.Repeat([]byte("x"), 5000)} {
		var buf bytes.Buffer
		require.NoError(t, wire.WriteVString(&buf, s))
		got, err := wire.ReadVString(&buf, 1<<20)
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestVStringTooLong(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, wire.WriteVString(&buf, bytes.Repeat([]byte("x"), 100)))
	_, err := wire.ReadVString(&buf, 10)
	require.ErrorIs(t, err, wire.ErrStringTooLong)
}

func TestInt64LegacyRoundtrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 0x7FFFFFFF, 0x80000000, 1 << 40, -(1 << 40)} {
		var buf bytes.Buffer
		require.NoError(t, wire.WriteInt64Legacy(&buf, v))
		got, err := wire.ReadInt64Legacy(&buf)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}
