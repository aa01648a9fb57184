package daemon

import (
	"net"
	"path"
	"strings"
)

// AccessRule is one entry of a "hosts allow"/"hosts deny" list: either a
// CIDR network or a glob matched against the connecting hostname.
type AccessRule struct {
	CIDR *net.IPNet // non-nil for a network rule
	Glob string     // non-empty for a hostname glob rule
}

// ParseAccessRule parses one space-separated rule token, trying CIDR
// first (falling back to a bare IP treated as a /32 or /128) and then a
// glob pattern.
func ParseAccessRule(tok string) AccessRule {
	if _, cidr, err := net.ParseCIDR(tok); err == nil {
		return AccessRule{CIDR: cidr}
	}
	if ip := net.ParseIP(tok); ip != nil {
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		return AccessRule{CIDR: &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}}
	}
	return AccessRule{Glob: tok}
}

// ParseAccessList splits a "hosts allow"/"hosts deny" config value (comma
// or space separated) into rules.
func ParseAccessList(value string) []AccessRule {
	fields := strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' })
	rules := make([]AccessRule, 0, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		rules = append(rules, ParseAccessRule(f))
	}
	return rules
}

// Match reports whether addr or hostname satisfies this rule.
func (r AccessRule) Match(addr net.IP, hostname string) bool {
	if r.CIDR != nil {
		return addr != nil && r.CIDR.Contains(addr)
	}
	if r.Glob != "" && hostname != "" {
		ok, err := path.Match(r.Glob, hostname)
		return err == nil && ok
	}
	return false
}

// AccessList is a module's "hosts allow"/"hosts deny" pair. Evaluation
// order matches rsyncd.conf semantics: if Allow is non-empty, the
// connecting peer must match an Allow rule (an implicit default-deny when
// any allow rule exists); Deny rules reject a peer regardless of Allow
// when Allow is empty (a default-allow, explicit-deny policy).
type AccessList struct {
	Allow []AccessRule
	Deny  []AccessRule
}

// Permit decides whether a connection from addr/hostname may proceed.
func (a AccessList) Permit(addr net.IP, hostname string) bool {
	if len(a.Allow) > 0 {
		for _, r := range a.Allow {
			if r.Match(addr, hostname) {
				return true
			}
		}
		return false
	}
	for _, r := range a.Deny {
		if r.Match(addr, hostname) {
			return false
		}
	}
	return true
}
