package main

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/nthconn/rsyncgo/daemon"
	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/rerr"
	"github.com/nthconn/rsyncgo/session"

	"github.com/nthconn/rsyncgo/internal/transfer"
)

// runDaemonPull dials an rsync daemon, completes the module handshake,
// and then pulls spec.Module into dst. spec.Rel, a sub-path within the
// module, is not forwarded - this thin client has no argv-exchange
// sub-protocol to request a module subset, so a pull always takes the
// module's configured root in full.
func runDaemonPull(ctx context.Context, spec daemonSpec, dst string, policy session.UpdatePolicy, timing session.DeletionTiming) error {
	addr := fmt.Sprintf("%s:%d", spec.Host, flagDaemonPort)
	conn, err := net.DialTimeout("tcp", addr, flagTimeout)
	if err != nil {
		if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
			return rerr.New(rerr.ClassTransport, rerr.CodeDaemonConnect,
				fmt.Sprintf("rsync: timed out connecting to %s", addr), err)
		}
		return fmt.Errorf("rsync: dialing %s: %w", addr, err)
	}
	defer conn.Close()

	password := os.Getenv("RSYNC_PASSWORD")
	handshake, err := daemon.DialHandshake(conn, negotiate.MaxProtocolVersion, spec.Module, flagUser, password)
	if err != nil {
		return fmt.Errorf("rsync: daemon handshake for module %q: %w", spec.Module, err)
	}

	params := baseParams(transfer.RoleReceiver, negotiate.ModeDaemonClient, dst, policy, timing)
	params.PeerProtocolMax = handshake.Protocol
	stats, err := transfer.Run(ctx, conn, params)
	return exitWithStats(err, stats)
}

func exitWithStats(err error, stats *session.Stats) error {
	if stats == nil {
		return err
	}
	code := stats.ExitCode()
	if err != nil && code == rerr.CodeSuccess {
		code = rerr.CodeProtocolStream
	}
	if code != rerr.CodeSuccess {
		os.Exit(int(code))
	}
	return nil
}
