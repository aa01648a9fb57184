package main

import (
	"fmt"
	"strings"

	"github.com/nthconn/rsyncgo/daemon"
)

// buildRegistry turns --module NAME=PATH and --auth-user MODULE:USER flag
// values into a daemon.Registry. A module with no --auth-user entries is
// anonymous; one or more marks it as requiring auth for exactly those
// users.
func buildRegistry(moduleSpecs, authSpecs []string) (*daemon.Registry, error) {
	registry := daemon.NewRegistry()
	for _, spec := range moduleSpecs {
		name, path, ok := strings.Cut(spec, "=")
		if !ok || name == "" || path == "" {
			return nil, fmt.Errorf("rsyncd: invalid --module %q, want NAME=PATH", spec)
		}
		registry.Add(daemon.Module{Name: name, Description: path, Path: path})
	}

	for _, spec := range authSpecs {
		moduleName, user, ok := strings.Cut(spec, ":")
		if !ok || moduleName == "" || user == "" {
			return nil, fmt.Errorf("rsyncd: invalid --auth-user %q, want MODULE:USER", spec)
		}
		mod, err := registry.Lookup(moduleName)
		if err != nil {
			return nil, fmt.Errorf("rsyncd: --auth-user for unknown module %q", moduleName)
		}
		mod.Auth = append(mod.Auth, user)
		registry.Add(mod)
	}
	return registry, nil
}
