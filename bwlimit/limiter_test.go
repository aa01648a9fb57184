package bwlimit_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/nthconn/rsyncgo/bwlimit"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestUnlimitedDoesNotBlock(t *testing.T) {
	lim := bwlimit.NewLimiter()
	require.Equal(t, rate.Limit(rate.Inf), lim.Limit())

	start := time.Now()
	require.NoError(t, lim.WaitN(context.Background(), 10_000_000))
	require.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestSetRateDisables(t *testing.T) {
	lim := bwlimit.NewLimiter(bwlimit.BytesPerSecond(1024))
	require.Equal(t, rate.Limit(1024), lim.Limit())
	lim.SetRate(0)
	require.Equal(t, rate.Limit(rate.Inf), lim.Limit())
}

// TestLimiterRateCeiling checks that a bounded limiter does not admit
// more than its configured rate over a measured window.
func TestLimiterRateCeiling(t *testing.T) {
	const rateBytesPerSec = 200_000
	lim := bwlimit.NewLimiter(bwlimit.BytesPerSecond(rateBytesPerSec), bwlimit.Burst(rateBytesPerSec))

	start := time.Now()
	require.NoError(t, lim.WaitN(context.Background(), rateBytesPerSec)) // first burst is free
	require.NoError(t, lim.WaitN(context.Background(), rateBytesPerSec/2))
	elapsed := time.Since(start)

	// Admitting 1.5x the per-second rate (burst + half) must take at
	// least roughly half a second once the initial burst is spent.
	require.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
}

func TestShapedReaderWriterRoundtrip(t *testing.T) {
	lim := bwlimit.NewLimiter(bwlimit.BytesPerSecond(10_000_000), bwlimit.Burst(10_000_000))
	var buf bytes.Buffer
	w := bwlimit.NewWriter(context.Background(), &buf, lim)
	n, err := w.Write([]byte("hello world"))
	require.NoError(t, err)
	require.Equal(t, 11, n)

	r := bwlimit.NewReader(context.Background(), &buf, lim)
	out := make([]byte, 11)
	n, err = r.Read(out)
	require.NoError(t, err)
	require.Equal(t, "hello world", string(out[:n]))
}

func TestNewPairTxRxIndependent(t *testing.T) {
	pair := bwlimit.NewPair(bwlimit.Spec{Tx: 1024 * 1024, Rx: 512 * 1024})
	require.NotNil(t, pair.Tx)
	require.NotNil(t, pair.Rx)
	require.Equal(t, rate.Limit(1024*1024), pair.Tx.Limit())
	require.Equal(t, rate.Limit(512*1024), pair.Rx.Limit())
}
