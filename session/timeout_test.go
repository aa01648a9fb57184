package session

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nthconn/rsyncgo/muxio"
)

func TestKeepaliveEmitsNoopWhenIdle(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&buf)
	conn.Activate(nil, nil)

	ka := startKeepalive(conn, 40*time.Millisecond)
	time.Sleep(120 * time.Millisecond)
	ka.Stop()

	r := muxio.NewReader(&buf)
	r.Activate(nil)
	tag, payload, err := r.RecvFrame()
	require.NoError(t, err)
	require.Equal(t, muxio.TagNoop, tag)
	require.Empty(t, payload)
}

func TestKeepaliveDisabledWithoutTimeout(t *testing.T) {
	var buf bytes.Buffer
	conn := NewConn(&buf)
	conn.Activate(nil, nil)

	ka := startKeepalive(conn, 0)
	time.Sleep(30 * time.Millisecond)
	ka.Stop()
	require.Zero(t, buf.Len())
}

func TestWithReadTimeoutPassthrough(t *testing.T) {
	// bytes.Buffer has no SetReadDeadline, so the wrapper must return the
	// original stream untouched.
	var buf bytes.Buffer
	rw := WithReadTimeout(&buf, time.Second)
	require.Same(t, &buf, rw)
}
