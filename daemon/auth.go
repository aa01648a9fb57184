package daemon

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/crypto/md4"
)

// ErrAuthFailed is returned by VerifyResponse and CheckAuth when a
// response does not match the expected digest.
var ErrAuthFailed = errors.New("daemon: authentication failed")

// SecretLookup resolves a module user's shared secret, kept as a small
// external interface the same way collab
// keeps the filesystem out of the core: a daemon embedding this package
// supplies its own secrets-file, LDAP, or in-memory store.
type SecretLookup interface {
	Secret(module, user string) (string, bool)
}

// SelectDigest picks the strongest mutually supported digest from
// peerDigests, in SupportedDigests preference order (sha512,
// sha256, sha1, md5, md4). An empty peerDigests list (older peers that
// predate digest negotiation) selects md4, rsync's original default.
func SelectDigest(peerDigests []string) (string, error) {
	if len(peerDigests) == 0 {
		return "md4", nil
	}
	offered := make(map[string]bool, len(peerDigests))
	for _, d := range peerDigests {
		offered[d] = true
	}
	for _, d := range SupportedDigests {
		if offered[d] {
			return d, nil
		}
	}
	return "", fmt.Errorf("daemon: no mutually supported digest in %v", peerDigests)
}

func newHasher(digest string) (hash.Hash, error) {
	switch digest {
	case "sha512":
		return sha512.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "md5":
		return md5.New(), nil
	case "md4":
		return md4.New(), nil
	default:
		return nil, fmt.Errorf("daemon: unsupported digest %q", digest)
	}
}

// GenerateChallenge produces an n-byte random challenge.
func GenerateChallenge(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// EncodeChallenge/DecodeChallenge use unpadded standard base64, matching
// rsync's own challenge/response encoding (no trailing '=' padding).
func EncodeChallenge(b []byte) string {
	return base64.RawStdEncoding.EncodeToString(b)
}

func DecodeChallenge(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(s)
}

// ComputeResponse computes strong_hash(challenge || password) under
// digest and base64-encodes it.
func ComputeResponse(digest string, challenge []byte, password string) (string, error) {
	h, err := newHasher(digest)
	if err != nil {
		return "", err
	}
	h.Write(challenge)
	h.Write([]byte(password))
	return EncodeChallenge(h.Sum(nil)), nil
}

// VerifyResponse recomputes the expected response and compares it against
// response, returning ErrAuthFailed on mismatch.
func VerifyResponse(digest string, challenge []byte, password, response string) error {
	want, err := ComputeResponse(digest, challenge, password)
	if err != nil {
		return err
	}
	if want != response {
		return ErrAuthFailed
	}
	return nil
}

// CheckAuth resolves user's secret for module via secrets and verifies
// response against challenge under digest, in one call for the daemon
// server's module-access path.
func CheckAuth(secrets SecretLookup, module, digest string, challenge []byte, user, response string) error {
	secret, ok := secrets.Secret(module, user)
	if !ok {
		return ErrAuthFailed
	}
	return VerifyResponse(digest, challenge, secret, response)
}
