package session

import (
	"io"
	"os"
	"time"

	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/rerr"
)

// deadlineSetter is the subset of net.Conn needed to arm read deadlines.
type deadlineSetter interface {
	SetReadDeadline(t time.Time) error
}

// WithReadTimeout wraps rw so every Read first arms a deadline of d, when
// the underlying connection supports deadlines (a *net.TCPConn does; the
// in-memory pipes tests use do not, and pass through unchanged). An
// expired deadline surfaces as a ClassTransport error carrying the
// data-timeout exit code.
func WithReadTimeout(rw io.ReadWriter, d time.Duration) io.ReadWriter {
	ds, ok := rw.(deadlineSetter)
	if !ok || d <= 0 {
		return rw
	}
	return &timeoutRW{rw: rw, ds: ds, d: d}
}

type timeoutRW struct {
	rw io.ReadWriter
	ds deadlineSetter
	d  time.Duration
}

func (t *timeoutRW) Read(p []byte) (int, error) {
	if err := t.ds.SetReadDeadline(time.Now().Add(t.d)); err != nil {
		return 0, err
	}
	n, err := t.rw.Read(p)
	if err != nil && os.IsTimeout(err) {
		return n, rerr.New(rerr.ClassTransport, rerr.CodeDataTimeout, "session: read timed out", err)
	}
	return n, err
}

func (t *timeoutRW) Write(p []byte) (int, error) { return t.rw.Write(p) }

// keepalive emits NOOP frames at half the timeout interval while the
// writer is otherwise idle, so a long local computation on one side does
// not trip the peer's read deadline.
type keepalive struct {
	stop chan struct{}
	done chan struct{}
}

func startKeepalive(conn *Conn, timeout time.Duration) *keepalive {
	k := &keepalive{stop: make(chan struct{}), done: make(chan struct{})}
	if timeout <= 0 {
		close(k.done)
		return k
	}
	interval := timeout / 2
	go func() {
		defer close(k.done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-k.stop:
				return
			case <-t.C:
				if time.Since(conn.W.LastSend()) < interval {
					continue
				}
				if err := conn.SendControl(muxio.TagNoop, nil); err != nil {
					return
				}
			}
		}
	}()
	return k
}

// Stop ends the keepalive loop and waits for it to finish, so no NOOP can
// race a caller's final frames.
func (k *keepalive) Stop() {
	select {
	case <-k.done:
		return
	default:
	}
	close(k.stop)
	<-k.done
}
