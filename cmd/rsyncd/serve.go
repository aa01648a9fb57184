package main

import (
	"context"
	"net"

	"github.com/nthconn/rsyncgo/daemon"
	"github.com/nthconn/rsyncgo/negotiate"
	"github.com/nthconn/rsyncgo/rlog"

	"github.com/nthconn/rsyncgo/internal/transfer"
)

// serve accepts connections on addr until ctx is canceled, running one
// handshake+transfer per connection in its own goroutine.
func serve(ctx context.Context, addr string, registry *daemon.Registry, secrets fileSecrets) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	rlog.Infof(rlog.Fields{Role: "daemon"}, "listening on %s", addr)
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				rlog.Warnf(rlog.Fields{Role: "daemon"}, "accept: %v", err)
				continue
			}
		}
		go handleConn(ctx, conn, registry, secrets)
	}
}

func handleConn(ctx context.Context, conn net.Conn, registry *daemon.Registry, secrets fileSecrets) {
	defer conn.Close()

	var peerIP net.IP
	if tcpAddr, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		peerIP = tcpAddr.IP
	}

	res, err := daemon.ServeHandshake(conn, peerIP, registry, secrets, negotiate.MaxProtocolVersion)
	if err != nil {
		rlog.Warnf(rlog.Fields{Role: "daemon"}, "handshake from %s: %v", conn.RemoteAddr(), err)
		return
	}

	params := transfer.Params{
		Role:            transfer.RoleSender,
		Mode:            negotiate.ModeDaemonServer,
		ProtocolMax:     negotiate.MaxProtocolVersion,
		PeerProtocolMax: res.Protocol,
		CompatFlags:     transfer.DefaultCompatFlags,
		Path:            res.Module.Path,
		Timeout:         flagTimeout,
	}
	if _, err := transfer.Run(ctx, conn, params); err != nil {
		rlog.Warnf(rlog.Fields{Role: "daemon"}, "module %q transfer from %s: %v", res.Module.Name, conn.RemoteAddr(), err)
	}
}
