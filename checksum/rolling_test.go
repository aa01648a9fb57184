package checksum_test

import (
	"math/rand"
	"testing"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/stretchr/testify/require"
)

// TestRollingRoundtrip checks that the rolling sum computed fresh at
// position k matches the sum obtained by rolling from position 0.
func TestRollingRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	data := make([]byte, 4096)
	rng.Read(data)
	const n = 64

	r := checksum.NewRolling(data[:n])
	for k := 1; k+n <= len(data); k++ {
		r.Roll(data[k-1], data[k+n-1])
		fresh := checksum.NewRolling(data[k : k+n])
		require.Equal(t, fresh.Sum(), r.Sum(), "position %d", k)
	}
}

func TestRollingEmptyWindow(t *testing.T) {
	r := checksum.NewRolling(nil)
	require.Equal(t, uint32(0), r.Sum())
}

func TestRollingConstantWindow(t *testing.T) {
	data := make([]byte, 16)
	for i := range data {
		data[i] = 0x42
	}
	r := checksum.NewRolling(data)
	fresh := checksum.NewRolling(data)
	require.Equal(t, fresh.Sum(), r.Sum())
}

func TestClampBlockLength(t *testing.T) {
	require.Equal(t, 700, checksum.ClampBlockLength(0))
	require.Equal(t, 700, checksum.ClampBlockLength(1))
	require.Equal(t, 131072, checksum.ClampBlockLength(1<<40))
	require.InDelta(t, 1000, checksum.ClampBlockLength(1_000_000), 2)
}
