// Session orchestration for one daemon connection, tying together the
// greeting, module lookup, access control, and auth primitives in
// daemon.go/auth.go/access.go into the full client and server exchanges.
package daemon

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/nthconn/rsyncgo/rlog"
)

// ChallengeLength is the byte length of a generated auth challenge before
// base64 encoding.
const ChallengeLength = 16

// ServerResult is what a completed server-side handshake hands back to
// the caller so it can proceed into negotiate/session against the
// requested module's root.
type ServerResult struct {
	Module   Module
	Protocol int
	Digest   string
	User     string // "" when the module is anonymous
}

// ServeHandshake runs the daemon server side of the @RSYNCD exchange over
// rw, given the peer's address for access-control evaluation. maxProtocol
// is this daemon's own maximum protocol version. secrets may be nil when
// no module in registry requires auth.
func ServeHandshake(rw io.ReadWriter, peerAddr net.IP, registry *Registry, secrets SecretLookup, maxProtocol int) (ServerResult, error) {
	var res ServerResult

	if err := WriteGreeting(rw, maxProtocol, 0); err != nil {
		return res, err
	}

	br := bufio.NewReader(rw)
	peerMajor, _, peerDigests, err := ReadGreeting(br)
	if err != nil {
		return res, fmt.Errorf("daemon: reading client version line: %w", err)
	}
	digest, err := SelectDigest(peerDigests)
	if err != nil {
		return res, err
	}
	res.Digest = digest
	// The greeting's major is the client's maximum protocol version, in
	// the same numbering space the later binary handshake uses - record
	// it so the caller can
	// feed a negotiate.Negotiator without re-reading a version line.
	res.Protocol = peerMajor

	moduleLine, err := br.ReadString('\n')
	if err != nil {
		return res, fmt.Errorf("daemon: reading module request: %w", err)
	}
	moduleName := strings.TrimSpace(moduleLine)
	if moduleName == "" {
		if err := WriteModuleList(rw, registry); err != nil {
			return res, err
		}
		return res, fmt.Errorf("daemon: module listing only, no module selected")
	}

	mod, err := registry.Lookup(moduleName)
	if err != nil {
		writeError(rw, err)
		return res, err
	}
	res.Module = mod

	if !mod.AccessList.Permit(peerAddr, "") {
		err := fmt.Errorf("daemon: access denied for module %q", moduleName)
		writeError(rw, err)
		return res, err
	}

	if len(mod.Auth) > 0 {
		if secrets == nil {
			err := fmt.Errorf("daemon: module %q requires auth but no secret store configured", moduleName)
			writeError(rw, err)
			return res, err
		}
		challenge, err := GenerateChallenge(ChallengeLength)
		if err != nil {
			return res, err
		}
		if _, err := fmt.Fprintf(rw, "@RSYNCD: AUTHREQD %s\n", EncodeChallenge(challenge)); err != nil {
			return res, err
		}
		respLine, err := br.ReadString('\n')
		if err != nil {
			return res, fmt.Errorf("daemon: reading auth response: %w", err)
		}
		user, response, ok := strings.Cut(strings.TrimSpace(respLine), " ")
		if !ok {
			err := fmt.Errorf("daemon: malformed auth response")
			writeError(rw, err)
			return res, err
		}
		if !userAllowed(mod.Auth, user) {
			err := fmt.Errorf("daemon: user %q not permitted on module %q", user, moduleName)
			writeError(rw, err)
			return res, err
		}
		if err := CheckAuth(secrets, moduleName, digest, challenge, user, response); err != nil {
			writeError(rw, err)
			return res, err
		}
		res.User = user
	}

	if _, err := io.WriteString(rw, "@RSYNCD: OK\n"); err != nil {
		return res, err
	}
	rlog.Infof(rlog.Fields{Role: "daemon"}, "module %q session started (user=%q digest=%s)", moduleName, res.User, digest)
	return res, nil
}

func userAllowed(allowed []string, user string) bool {
	for _, u := range allowed {
		if u == user {
			return true
		}
	}
	return false
}

func writeError(rw io.ReadWriter, err error) {
	fmt.Fprintf(rw, "@ERROR: %s\n", err.Error())
}

// ClientResult is what a completed client-side handshake hands back.
type ClientResult struct {
	Protocol int
	Digest   string
}

// DialHandshake runs the client side of the @RSYNCD exchange over rw against
// a daemon already listening (the caller owns the TCP dial; this function
// only speaks the protocol once connected). maxProtocol is this client's
// maximum protocol version; module is the module name to request;
// user/password are empty for an anonymous module.
func DialHandshake(rw io.ReadWriter, maxProtocol int, module, user, password string) (ClientResult, error) {
	var res ClientResult

	br := bufio.NewReader(rw)
	peerMajor, _, serverDigests, err := ReadGreeting(br)
	if err != nil {
		return res, fmt.Errorf("daemon: reading server greeting: %w", err)
	}
	digest, err := SelectDigest(serverDigests)
	if err != nil {
		return res, err
	}
	res.Digest = digest
	res.Protocol = peerMajor

	if err := WriteGreeting(rw, maxProtocol, 0); err != nil {
		return res, err
	}

	if _, err := fmt.Fprintf(rw, "%s\n", module); err != nil {
		return res, err
	}

	line, err := br.ReadString('\n')
	if err != nil {
		return res, fmt.Errorf("daemon: reading module response: %w", err)
	}
	line = strings.TrimRight(line, "\n")

	if strings.HasPrefix(line, "@ERROR") {
		return res, fmt.Errorf("daemon: %s", strings.TrimPrefix(line, "@ERROR: "))
	}

	if strings.HasPrefix(line, "@RSYNCD: AUTHREQD") {
		challenge, err := DecodeChallenge(strings.TrimSpace(strings.TrimPrefix(line, "@RSYNCD: AUTHREQD")))
		if err != nil {
			return res, fmt.Errorf("daemon: malformed challenge: %w", err)
		}
		response, err := ComputeResponse(digest, challenge, password)
		if err != nil {
			return res, err
		}
		if _, err := fmt.Fprintf(rw, "%s %s\n", user, response); err != nil {
			return res, err
		}
		line, err = br.ReadString('\n')
		if err != nil {
			return res, fmt.Errorf("daemon: reading post-auth response: %w", err)
		}
		line = strings.TrimRight(line, "\n")
	}

	if !strings.HasPrefix(line, "@RSYNCD: OK") {
		return res, fmt.Errorf("daemon: unexpected daemon response %q", line)
	}
	return res, nil
}
