package main

import (
	"context"
	"os"

	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/rerr"
	"github.com/nthconn/rsyncgo/session"

	"github.com/nthconn/rsyncgo/internal/transfer"
)

// halfDuplex adapts a pair of unidirectional *os.File pipe ends into the
// io.ReadWriter internal/transfer expects: real kernel-buffered pipes,
// not a hand-rolled buffer, so a local push/pull exercises the same
// backpressure characteristics a socket would.
type halfDuplex struct {
	r *os.File
	w *os.File
}

func (h *halfDuplex) Read(p []byte) (int, error)  { return h.r.Read(p) }
func (h *halfDuplex) Write(p []byte) (int, error) { return h.w.Write(p) }
func (h *halfDuplex) Close() error {
	closeErr := h.r.Close()
	if werr := h.w.Close(); werr != nil && closeErr == nil {
		closeErr = werr
	}
	return closeErr
}

// newLoopback builds a connected sender/receiver pair of halfDuplex
// endpoints over two real OS pipes.
func newLoopback() (senderSide, receiverSide *halfDuplex, err error) {
	sToR_r, sToR_w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	rToS_r, rToS_w, err := os.Pipe()
	if err != nil {
		return nil, nil, err
	}
	return &halfDuplex{r: rToS_r, w: sToR_w}, &halfDuplex{r: sToR_r, w: rToS_w}, nil
}

// runLocal drives a local path to local path sync in-process: Sender and
// Receiver run concurrently, connected by newLoopback, each negotiating
// its own side of the protocol as ModeShell peers.
func runLocal(ctx context.Context, src, dst string, policy session.UpdatePolicy, timing session.DeletionTiming) error {
	senderConn, receiverConn, err := newLoopback()
	if err != nil {
		return err
	}
	defer senderConn.Close()
	defer receiverConn.Close()

	type outcome struct {
		stats *session.Stats
		err   error
	}
	senderDone := make(chan outcome, 1)
	receiverDone := make(chan outcome, 1)

	go func() {
		stats, err := transfer.Run(ctx, senderConn, baseParams(transfer.RoleSender, negotiate.ModeShell, src, policy, timing))
		senderDone <- outcome{stats, err}
	}()
	go func() {
		stats, err := transfer.Run(ctx, receiverConn, baseParams(transfer.RoleReceiver, negotiate.ModeShell, dst, policy, timing))
		receiverDone <- outcome{stats, err}
	}()

	senderOut := <-senderDone
	receiverOut := <-receiverDone

	code := rerr.CodeSuccess
	if senderOut.stats != nil {
		code = rerr.WorstCode(code, senderOut.stats.ExitCode())
	}
	if receiverOut.stats != nil {
		code = rerr.WorstCode(code, receiverOut.stats.ExitCode())
	}
	if senderOut.err != nil && code == rerr.CodeSuccess {
		code = rerr.CodeProtocolStream
	}
	if receiverOut.err != nil && code == rerr.CodeSuccess {
		code = rerr.CodeProtocolStream
	}

	if senderOut.err != nil || receiverOut.err != nil {
		os.Stderr.WriteString("rsync: transfer finished with errors\n")
	}
	if code != rerr.CodeSuccess {
		os.Exit(int(code))
	}
	return nil
}
