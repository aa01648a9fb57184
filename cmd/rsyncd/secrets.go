package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// fileSecrets implements daemon.SecretLookup over a MODULE/USER:PASSWORD
// per line secrets file, the conventional rsyncd "secrets file" format.
type fileSecrets struct {
	entries map[string]string
}

func (s fileSecrets) Secret(module, user string) (string, bool) {
	p, ok := s.entries[module+"/"+user]
	return p, ok
}

// loadSecrets reads path, returning an empty fileSecrets when path is "".
func loadSecrets(path string) (fileSecrets, error) {
	entries := make(map[string]string)
	if path == "" {
		return fileSecrets{entries: entries}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fileSecrets{}, fmt.Errorf("rsyncd: opening secrets file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, password, ok := strings.Cut(line, ":")
		if !ok {
			return fileSecrets{}, fmt.Errorf("rsyncd: malformed secrets line %q, want MODULE/USER:PASSWORD", line)
		}
		entries[key] = password
	}
	if err := scanner.Err(); err != nil {
		return fileSecrets{}, err
	}
	return fileSecrets{entries: entries}, nil
}
