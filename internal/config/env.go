package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ProjectEnvFiles are read from the working directory after the global file,
// in order; later files win.
var ProjectEnvFiles = []string{".relay.env", ".env"}

// LoadEnvFiles loads env files into the process environment.
// Load order (later wins): global (~/.config/relay/env), then ProjectEnvFiles.
// Actual environment variables always win; keys already set before loading are never overwritten.
func LoadEnvFiles() {
	loadEnvFiles(append([]string{GlobalEnvPath()}, ProjectEnvFiles...)...)
}

func loadEnvFiles(paths ...string) {
	// Snapshot keys present in the actual environment before we touch anything.
	origKeys := make(map[string]bool)
	for _, entry := range os.Environ() {
		if k, _, ok := strings.Cut(entry, "="); ok {
			origKeys[k] = true
		}
	}

	merged := make(map[string]string)
	for _, p := range paths {
		mergeEnvFile(merged, p)
	}

	for k, v := range merged {
		if !origKeys[k] {
			_ = os.Setenv(k, v)
		}
	}
}

// mergeEnvFile reads a dotenv file and merges into dst (later call overwrites earlier).
// Silently skips missing or unreadable files.
func mergeEnvFile(dst map[string]string, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	envs, err := ParseEnvFile(data)
	if err != nil {
		return
	}
	for k, v := range envs {
		dst[k] = v
	}
}

// ParseEnvFile parses dotenv-formatted data: KEY=VALUE lines, comments,
// quoted values and optional "export" prefixes.
func ParseEnvFile(data []byte) (map[string]string, error) {
	envs, err := godotenv.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing env file: %w", err)
	}
	return envs, nil
}

// GlobalEnvPath returns the path to the global relay env file.
func GlobalEnvPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "relay", "env")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "relay", "env")
}
