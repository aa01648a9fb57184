package main

import (
	"fmt"
	"strings"

	"github.com/nthconn/rsyncgo/session"
)

func parseUpdatePolicy(s string) (session.UpdatePolicy, error) {
	switch s {
	case "quick-check", "":
		return session.PolicyQuickCheck, nil
	case "checksum":
		return session.PolicyChecksum, nil
	case "size-only":
		return session.PolicySizeOnly, nil
	case "ignore-existing":
		return session.PolicyIgnoreExisting, nil
	case "existing":
		return session.PolicyExisting, nil
	case "update":
		return session.PolicyUpdate, nil
	case "ignore-times":
		return session.PolicyIgnoreTimes, nil
	default:
		return 0, fmt.Errorf("rsync: unknown --update-policy %q", s)
	}
}

func parseDeleteTiming(s string) (session.DeletionTiming, error) {
	switch s {
	case "during", "":
		return session.DeleteDuring, nil
	case "before":
		return session.DeleteBefore, nil
	case "after":
		return session.DeleteAfter, nil
	case "delay":
		return session.DeleteDelay, nil
	default:
		return 0, fmt.Errorf("rsync: unknown --delete-timing %q", s)
	}
}

// daemonSpec is a parsed HOST::MODULE/PATH (or rsync://HOST/MODULE/PATH)
// reference, the classic rsync daemon addressing syntax.
type daemonSpec struct {
	Host   string
	Module string
	Rel    string
}

// parseDaemonSpec recognizes the two conventional daemon address forms.
// Anything else is treated as a plain local path.
func parseDaemonSpec(s string) (daemonSpec, bool) {
	if rest, ok := cutPrefix(s, "rsync://"); ok {
		host, tail, _ := strings.Cut(rest, "/")
		module, rel, _ := strings.Cut(tail, "/")
		return daemonSpec{Host: host, Module: module, Rel: rel}, host != "" && module != ""
	}
	if host, tail, ok := strings.Cut(s, "::"); ok {
		module, rel, _ := strings.Cut(tail, "/")
		return daemonSpec{Host: host, Module: module, Rel: rel}, host != "" && module != ""
	}
	return daemonSpec{}, false
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}
