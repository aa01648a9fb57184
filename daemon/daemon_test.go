package daemon

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectDigestPrefersStrongest(t *testing.T) {
	d, err := SelectDigest([]string{"md5", "sha256"})
	require.NoError(t, err)
	require.Equal(t, "sha256", d)
}

func TestSelectDigestNoOverlap(t *testing.T) {
	_, err := SelectDigest([]string{"crc32"})
	require.Error(t, err)
}

func TestSelectDigestEmptyDefaultsToMd4(t *testing.T) {
	d, err := SelectDigest(nil)
	require.NoError(t, err)
	require.Equal(t, "md4", d)
}

func TestComputeAndVerifyResponseRoundtrip(t *testing.T) {
	challenge := []byte("fixed-test-challenge")
	resp, err := ComputeResponse("sha256", challenge, "s3cr3t")
	require.NoError(t, err)
	require.NoError(t, VerifyResponse("sha256", challenge, "s3cr3t", resp))
	require.ErrorIs(t, VerifyResponse("sha256", challenge, "wrong", resp), ErrAuthFailed)
}

func TestAccessListAllowListIsDefaultDeny(t *testing.T) {
	al := AccessList{Allow: ParseAccessList("10.0.0.0/8")}
	require.True(t, al.Permit(net.ParseIP("10.1.2.3"), ""))
	require.False(t, al.Permit(net.ParseIP("192.168.1.1"), ""))
}

func TestAccessListDenyListIsDefaultAllow(t *testing.T) {
	al := AccessList{Deny: ParseAccessList("192.168.0.0/16")}
	require.True(t, al.Permit(net.ParseIP("10.1.2.3"), ""))
	require.False(t, al.Permit(net.ParseIP("192.168.1.1"), ""))
}

func TestAccessListGlobHostname(t *testing.T) {
	al := AccessList{Allow: []AccessRule{ParseAccessRule("*.trusted.example")}}
	require.True(t, al.Permit(nil, "host.trusted.example"))
	require.False(t, al.Permit(nil, "host.untrusted.example"))
}

type memSecrets struct{ secrets map[string]string }

func (m memSecrets) Secret(module, user string) (string, bool) {
	s, ok := m.secrets[module+"/"+user]
	return s, ok
}

func TestServeAndDialHandshakeAnonymousModule(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Module{Name: "backup", Description: "backup module"})

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	var serverRes ServerResult
	var serverErr error
	var clientRes ClientResult
	var clientErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		serverRes, serverErr = ServeHandshake(serverConn, net.ParseIP("127.0.0.1"), registry, nil, 32)
	}()
	go func() {
		defer wg.Done()
		clientRes, clientErr = DialHandshake(clientConn, 32, "backup", "", "")
	}()
	wg.Wait()

	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	require.Equal(t, "backup", serverRes.Module.Name)
	require.Equal(t, serverRes.Digest, clientRes.Digest)
}

func TestServeAndDialHandshakeAuthenticatedModule(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Module{
		Name: "secure",
		Auth: []string{"alice"},
	})
	secrets := memSecrets{secrets: map[string]string{"secure/alice": "wonderland"}}

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	var serverRes ServerResult
	var serverErr error
	var clientErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		serverRes, serverErr = ServeHandshake(serverConn, net.ParseIP("127.0.0.1"), registry, secrets, 32)
	}()
	go func() {
		defer wg.Done()
		_, clientErr = DialHandshake(clientConn, 32, "secure", "alice", "wonderland")
	}()
	wg.Wait()

	require.NoError(t, serverErr)
	require.NoError(t, clientErr)
	require.Equal(t, "alice", serverRes.User)
}

func TestServeHandshakeRejectsWrongPassword(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Module{Name: "secure", Auth: []string{"alice"}})
	secrets := memSecrets{secrets: map[string]string{"secure/alice": "wonderland"}}

	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	var serverErr, clientErr error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, serverErr = ServeHandshake(serverConn, net.ParseIP("127.0.0.1"), registry, secrets, 32)
	}()
	go func() {
		defer wg.Done()
		_, clientErr = DialHandshake(clientConn, 32, "secure", "alice", "wrong-password")
	}()
	wg.Wait()

	require.Error(t, serverErr)
	require.Error(t, clientErr)
}
