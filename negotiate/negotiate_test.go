package negotiate_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/nthconn/rsyncgo/checksum"
	"github.com/nthconn/rsyncgo/muxio"
	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/stretchr/testify/require"
)

func TestNegotiateVersionTakesMinimum(t *testing.T) {
	v, err := negotiate.NegotiateVersion(32, 30)
	require.NoError(t, err)
	require.Equal(t, negotiate.ProtocolVersion(30), v)

	v, err = negotiate.NegotiateVersion(29, 32)
	require.NoError(t, err)
	require.Equal(t, negotiate.ProtocolVersion(29), v)
}

func TestNegotiateVersionTooOld(t *testing.T) {
	_, err := negotiate.NegotiateVersion(27, 27)
	require.ErrorIs(t, err, negotiate.ErrProtocolTooOld)
}

func TestDaemonGreetingRoundtrip(t *testing.T) {
	line := negotiate.DaemonGreeting(31, 0)
	require.Equal(t, "@RSYNCD: 31.0\n", line)
	major, minor, err := negotiate.ParseDaemonGreeting(line)
	require.NoError(t, err)
	require.Equal(t, 31, major)
	require.Equal(t, 0, minor)
}

func TestCompatFlagsIntersect(t *testing.T) {
	local := negotiate.IncRecurse | negotiate.SafeFileList | negotiate.VarintFlistFlags
	peer := negotiate.SafeFileList | negotiate.VarintFlistFlags | negotiate.ID0Names
	eff := negotiate.Intersect(local, peer)
	require.True(t, eff.Has(negotiate.SafeFileList))
	require.True(t, eff.Has(negotiate.VarintFlistFlags))
	require.False(t, eff.Has(negotiate.IncRecurse))
	require.False(t, eff.Has(negotiate.ID0Names))
}

func TestCompatFlagsWireRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	want := negotiate.SafeFileList | negotiate.ChecksumSeedFix
	require.NoError(t, negotiate.WriteCompatFlags(&buf, want))
	got, err := negotiate.ReadCompatFlags(&buf)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSeedOrderFollowsChecksumSeedFix(t *testing.T) {
	require.Equal(t, negotiate.SeedBeforeFileList, negotiate.SeedOrder(negotiate.ChecksumSeedFix))
	require.Equal(t, negotiate.SeedAfterFileList, negotiate.SeedOrder(0))
}

func TestSeedWireRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	seed := negotiate.GenerateSeed()
	require.NoError(t, negotiate.WriteSeed(&buf, seed))
	got, err := negotiate.ReadSeed(&buf)
	require.NoError(t, err)
	require.Equal(t, seed, got)
}

func TestNameListWireRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, negotiate.WriteNameList(&buf, negotiate.ChecksumPreference))
	got, err := negotiate.ReadNameList(&buf)
	require.NoError(t, err)
	require.Equal(t, negotiate.ChecksumPreference, got)
}

func TestPickFirstMatch(t *testing.T) {
	reader := []string{"xxh128", "xxh3", "xxh64", "md5", "md4"}
	writer := []string{"xxh64", "md5", "md4"}
	got, ok := negotiate.PickFirstMatch(reader, writer)
	require.True(t, ok)
	require.Equal(t, "xxh64", got)

	_, ok = negotiate.PickFirstMatch(reader, []string{"sha256"})
	require.False(t, ok)
}

func TestNegotiateChecksumAndCompression(t *testing.T) {
	cs, err := negotiate.NegotiateChecksum(negotiate.ChecksumPreference, []string{"md5", "md4"})
	require.NoError(t, err)
	require.Equal(t, checksum.Md5, cs)

	comp, err := negotiate.NegotiateCompression(negotiate.CompressionPreference, []string{"zlib", "none"})
	require.NoError(t, err)
	require.Equal(t, muxio.CompressZlib, comp)
}

// TestNegotiatorShellModeBidirectional exercises a full two-sided
// handshake over an in-memory duplex pipe pair, mirroring how a
// remote-shell session negotiates (bidirectional; each
// side sends then reads).
func TestNegotiatorShellModeBidirectional(t *testing.T) {
	senderConn, receiverConn := newDuplexPair()

	senderFlags := negotiate.SafeFileList | negotiate.VarintFlistFlags | negotiate.ChecksumSeedFix
	receiverFlags := negotiate.SafeFileList | negotiate.VarintFlistFlags

	sender := negotiate.NewNegotiator(senderConn, negotiate.MaxProtocolVersion, senderFlags, true, negotiate.ModeShell)
	receiver := negotiate.NewNegotiator(receiverConn, negotiate.MaxProtocolVersion, receiverFlags, false, negotiate.ModeShell)

	type outcome struct {
		res Result
		err error
	}
	senderCh := make(chan outcome, 1)
	receiverCh := make(chan outcome, 1)

	go func() {
		res, err := sender.Negotiate(negotiate.MaxProtocolVersion)
		senderCh <- outcome{res, err}
	}()
	go func() {
		res, err := receiver.Negotiate(negotiate.MaxProtocolVersion)
		receiverCh <- outcome{res, err}
	}()

	sOut := <-senderCh
	rOut := <-receiverCh
	require.NoError(t, sOut.err)
	require.NoError(t, rOut.err)
	require.Equal(t, sOut.res.Protocol, rOut.res.Protocol)
	require.Equal(t, sOut.res.CompatFlags, rOut.res.CompatFlags)
	require.True(t, sOut.res.CompatFlags.Has(negotiate.SafeFileList))
	require.Equal(t, sOut.res.Algorithms, rOut.res.Algorithms)
}

type Result = negotiate.Result

// asyncBuffer is an unbounded, goroutine-safe byte queue: Write always
// returns immediately (no backpressure), Read blocks until data is
// available. Used to back a duplex test connection without the
// write-blocks-until-read rendezvous deadlock an io.Pipe pair would hit
// when both sides write before either reads (exactly what a bidirectional
// handshake does).
type asyncBuffer struct {
	mu   sync.Mutex
	cond *sync.Cond
	buf  bytes.Buffer
}

func newAsyncBuffer() *asyncBuffer {
	b := &asyncBuffer{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *asyncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	b.cond.Broadcast()
	return n, err
}

func (b *asyncBuffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.buf.Len() == 0 {
		b.cond.Wait()
	}
	return b.buf.Read(p)
}

// pipeRW adapts a pair of asyncBuffer halves (one per direction) into a
// single io.ReadWriter for one side of a duplex connection.
type pipeRW struct {
	r *asyncBuffer
	w *asyncBuffer
}

func (p *pipeRW) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeRW) Write(b []byte) (int, error) { return p.w.Write(b) }

// newDuplexPair wires two async buffers (one per direction) into a pair
// of io.ReadWriters, so each side's writes land on the other's reads.
func newDuplexPair() (*pipeRW, *pipeRW) {
	aToB := newAsyncBuffer()
	bToA := newAsyncBuffer()
	sideA := &pipeRW{r: bToA, w: aToB}
	sideB := &pipeRW{r: aToB, w: bToA}
	return sideA, sideB
}
