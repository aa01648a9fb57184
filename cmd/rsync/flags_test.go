package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nthconn/rsyncgo/session"
)

func TestParseUpdatePolicy(t *testing.T) {
	p, err := parseUpdatePolicy("checksum")
	require.NoError(t, err)
	require.Equal(t, session.PolicyChecksum, p)

	p, err = parseUpdatePolicy("")
	require.NoError(t, err)
	require.Equal(t, session.PolicyQuickCheck, p)

	_, err = parseUpdatePolicy("bogus")
	require.Error(t, err)
}

func TestParseDeleteTiming(t *testing.T) {
	d, err := parseDeleteTiming("delay")
	require.NoError(t, err)
	require.Equal(t, session.DeleteDelay, d)

	_, err = parseDeleteTiming("whenever")
	require.Error(t, err)
}

func TestParseDaemonSpecRsyncURL(t *testing.T) {
	spec, ok := parseDaemonSpec("rsync://backup.example/data/sub/dir")
	require.True(t, ok)
	require.Equal(t, daemonSpec{Host: "backup.example", Module: "data", Rel: "sub/dir"}, spec)
}

func TestParseDaemonSpecDoubleColon(t *testing.T) {
	spec, ok := parseDaemonSpec("backup.example::data/sub/dir")
	require.True(t, ok)
	require.Equal(t, daemonSpec{Host: "backup.example", Module: "data", Rel: "sub/dir"}, spec)
}

func TestParseDaemonSpecModuleRootOnly(t *testing.T) {
	spec, ok := parseDaemonSpec("backup.example::data")
	require.True(t, ok)
	require.Equal(t, daemonSpec{Host: "backup.example", Module: "data", Rel: ""}, spec)
}

func TestParseDaemonSpecLocalPathIsNotADaemonSpec(t *testing.T) {
	_, ok := parseDaemonSpec("/home/user/data")
	require.False(t, ok)

	_, ok = parseDaemonSpec("relative/path")
	require.False(t, ok)
}
