// Package daemon implements the rsync daemon wire protocol: the
// "@RSYNCD:" greeting, module listing, challenge/response
// authentication, and hosts allow/deny access control that precede a
// session's ordinary negotiate/session handshake when acting as or
// contacting an rsync:// daemon.
package daemon

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/nthconn/rsyncgo/negotiate"
)

// Module is one entry in the daemon's module table (module
// listing lines are '<name>\t<description>\n').
type Module struct {
	Name        string
	Description string
	Path        string // local filesystem root this module exposes

	// Auth, if non-empty, requires the listed users (and their secrets,
	// resolved via a SecretLookup) before a session against this module
	// proceeds; an empty Auth means the module is anonymous.
	Auth []string

	AccessList AccessList
}

// Registry holds the modules a daemon serves, keyed by name.
type Registry struct {
	modules map[string]Module
	order   []string // insertion order, for a stable module listing
}

// NewRegistry builds an empty module registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Add registers m, replacing any existing module of the same name without
// disturbing the listing order of the others.
func (r *Registry) Add(m Module) {
	if _, exists := r.modules[m.Name]; !exists {
		r.order = append(r.order, m.Name)
	}
	r.modules[m.Name] = m
}

// Lookup resolves a requested module name, returning an error naming the
// failure when the module does not exist.
func (r *Registry) Lookup(name string) (Module, error) {
	m, ok := r.modules[name]
	if !ok {
		return Module{}, fmt.Errorf("daemon: unknown module %q", name)
	}
	return m, nil
}

// SupportedDigests is the daemon auth digest preference order, strongest
// first.
var SupportedDigests = []string{"sha512", "sha256", "sha1", "md5", "md4"}

// WriteGreeting sends the initial daemon line, advertising maxProtocol and
// this daemon's supported digest list appended to the version line.
func WriteGreeting(w io.Writer, maxProtocol, subver int) error {
	line := negotiate.DaemonGreeting(maxProtocol, subver)
	line = strings.TrimSuffix(line, "\n") + " " + strings.Join(SupportedDigests, " ") + "\n"
	_, err := io.WriteString(w, line)
	return err
}

// ReadGreeting reads and parses a peer's initial daemon line, returning
// its protocol version and advertised digest list.
func ReadGreeting(r *bufio.Reader) (major, minor int, digests []string, err error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return 0, 0, nil, err
	}
	fields := strings.Fields(strings.TrimPrefix(line, "@RSYNCD:"))
	if len(fields) == 0 {
		return 0, 0, nil, fmt.Errorf("daemon: empty greeting")
	}
	major, minor, err = negotiate.ParseDaemonGreeting("@RSYNCD: " + fields[0] + "\n")
	if err != nil {
		return 0, 0, nil, err
	}
	return major, minor, fields[1:], nil
}

// WriteModuleList sends each module as a "<name>\t<description>\n" line,
// in registration order, terminated by "@RSYNCD: EXIT\n".
func WriteModuleList(w io.Writer, r *Registry) error {
	for _, name := range r.order {
		m := r.modules[name]
		if _, err := fmt.Fprintf(w, "%s\t%s\n", m.Name, m.Description); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "@RSYNCD: EXIT\n")
	return err
}

// ReadModuleList reads a module listing terminated by "@RSYNCD: EXIT\n",
// for the client side of an anonymous module-list request (an empty line
// sent in place of a module name).
func ReadModuleList(r *bufio.Reader) ([]Module, error) {
	var mods []Module
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\n")
		if strings.HasPrefix(line, "@RSYNCD: EXIT") {
			return mods, nil
		}
		name, desc, _ := strings.Cut(line, "\t")
		mods = append(mods, Module{Name: name, Description: desc})
	}
}
