package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildRegistryAnonymousModule(t *testing.T) {
	registry, err := buildRegistry([]string{"backup=/srv/backup"}, nil)
	require.NoError(t, err)

	mod, err := registry.Lookup("backup")
	require.NoError(t, err)
	require.Equal(t, "/srv/backup", mod.Path)
	require.Empty(t, mod.Auth)
}

func TestBuildRegistryAuthUser(t *testing.T) {
	registry, err := buildRegistry(
		[]string{"secure=/srv/secure"},
		[]string{"secure:alice"},
	)
	require.NoError(t, err)

	mod, err := registry.Lookup("secure")
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, mod.Auth)
}

func TestBuildRegistryRejectsMalformedModule(t *testing.T) {
	_, err := buildRegistry([]string{"no-equals-sign"}, nil)
	require.Error(t, err)
}

func TestBuildRegistryRejectsAuthUserForUnknownModule(t *testing.T) {
	_, err := buildRegistry([]string{"backup=/srv/backup"}, []string{"ghost:alice"})
	require.Error(t, err)
}
