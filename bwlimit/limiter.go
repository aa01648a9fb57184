// Package bwlimit implements bandwidth shaping for a transfer session: a
// token-bucket limiter with independently configurable transmit/receive
// rates (separate golang.org/x/time/rate.Limiter instances, "off" to
// disable), plus the size-string parser rsync uses for --bwlimit
// arguments ("8M", "1M:512K", "2048k+1").
package bwlimit

import (
	"context"
	"io"

	"golang.org/x/time/rate"
)

// Unlimited disables shaping entirely; Limiter.WaitN becomes a no-op.
const Unlimited = rate.Inf

// Limiter shapes one direction of traffic (tx or rx) through a token
// bucket. Reads/writes of n bytes consume n tokens, blocking until the
// bucket has refilled enough to admit them.
type Limiter struct {
	bucket *rate.Limiter
	burst  int
}

// Option configures a Limiter at construction time.
type Option func(*limiterConfig)

type limiterConfig struct {
	bytesPerSecond float64
	burst          int
}

// BytesPerSecond sets the sustained rate. A non-positive value disables
// shaping (equivalent to the "off" rc setting).
func BytesPerSecond(n float64) Option {
	return func(c *limiterConfig) { c.bytesPerSecond = n }
}

// Burst sets the bucket's burst capacity in bytes; it defaults to the
// rate itself (one second's worth of traffic) when unset.
func Burst(n int) Option {
	return func(c *limiterConfig) { c.burst = n }
}

// NewLimiter builds a Limiter from options, following lib/pacer's
// functional-options constructor pattern.
func NewLimiter(opts ...Option) *Limiter {
	cfg := limiterConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	limit := rate.Limit(cfg.bytesPerSecond)
	burst := cfg.burst
	if cfg.bytesPerSecond <= 0 {
		limit = Unlimited
		burst = 0
	} else if burst <= 0 {
		burst = int(cfg.bytesPerSecond)
		if burst < 1 {
			burst = 1
		}
	}
	return &Limiter{bucket: rate.NewLimiter(limit, burst), burst: burst}
}

// SetRate reconfigures the limiter's sustained rate in place. A
// non-positive value disables shaping.
func (l *Limiter) SetRate(bytesPerSecond float64) {
	if bytesPerSecond <= 0 {
		l.bucket.SetLimit(Unlimited)
		return
	}
	l.bucket.SetLimit(rate.Limit(bytesPerSecond))
}

// Limit reports the limiter's current configured rate.
func (l *Limiter) Limit() rate.Limit {
	return l.bucket.Limit()
}

// WaitN blocks until n bytes' worth of tokens are available, or ctx is
// canceled. Requests larger than the bucket's burst are chunked internally
// against rate.Limiter's WaitN limitation (it refuses n > burst).
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l.bucket.Limit() == Unlimited {
		return nil
	}
	burst := l.bucket.Burst()
	if burst <= 0 {
		burst = 1
	}
	for n > 0 {
		chunk := n
		if chunk > burst {
			chunk = burst
		}
		if err := l.bucket.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Reader wraps r, shaping reads through a Limiter.
type Reader struct {
	r   io.Reader
	ctx context.Context
	lim *Limiter
}

// NewReader returns r shaped by lim. A nil lim leaves reads unshaped.
func NewReader(ctx context.Context, r io.Reader, lim *Limiter) *Reader {
	return &Reader{r: r, ctx: ctx, lim: lim}
}

func (sr *Reader) Read(p []byte) (int, error) {
	n, err := sr.r.Read(p)
	if n > 0 && sr.lim != nil {
		if werr := sr.lim.WaitN(sr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

// Writer wraps w, shaping writes through a Limiter.
type Writer struct {
	w   io.Writer
	ctx context.Context
	lim *Limiter
}

// NewWriter returns w shaped by lim. A nil lim leaves writes unshaped.
func NewWriter(ctx context.Context, w io.Writer, lim *Limiter) *Writer {
	return &Writer{w: w, ctx: ctx, lim: lim}
}

func (sw *Writer) Write(p []byte) (int, error) {
	if sw.lim != nil {
		if err := sw.lim.WaitN(sw.ctx, len(p)); err != nil {
			return 0, err
		}
	}
	return sw.w.Write(p)
}

// Pair bundles the independent transmit/receive limiters a session needs
// (--bwlimit TX:RX sets independent rates).
type Pair struct {
	Tx *Limiter
	Rx *Limiter
}

// NewPair builds a Pair from a parsed Spec.
func NewPair(spec Spec) Pair {
	var p Pair
	if spec.Tx > 0 {
		p.Tx = NewLimiter(BytesPerSecond(float64(spec.Tx)))
	}
	if spec.Rx > 0 {
		p.Rx = NewLimiter(BytesPerSecond(float64(spec.Rx)))
	}
	return p
}
