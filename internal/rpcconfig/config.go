// Package rpcconfig loads connection defaults (idle timeout, max frame
// length, framing mode, protocol keyword) from an optional YAML file, for
// callers (the demo CLI in particular) that want file-based configuration
// instead of wiring every pkg/rpcpeer.Option by hand. file:
// internal/rpcconfig/config.go
package rpcconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Settings is the on-disk shape of a connection-defaults file.
type Settings struct {
	Connection ConnectionSettings `yaml:"connection"`
}

// ConnectionSettings mirrors the subset of spec.md section 6's options that
// make sense to default from a file rather than pass per-call.
type ConnectionSettings struct {
	IdleTimeoutMillis int64  `yaml:"idle_timeout_ms"`
	MaxLen            int32  `yaml:"max_len"`
	JSONFraming       string `yaml:"json_framing"`
	ProtocolKeyword   string `yaml:"protocol_keyword"`
}

// New returns Settings populated with rpcpeer's documented defaults.
func New() *Settings {
	return &Settings{
		Connection: ConnectionSettings{
			IdleTimeoutMillis: 0,
			MaxLen:            0,
			JSONFraming:       "none",
			ProtocolKeyword:   "",
		},
	}
}

// ExpandPath expands a leading ~ to the current user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "rpcconfig: failed to resolve home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Load reads and parses a YAML settings file, starting from New()'s
// defaults so a partial file only overrides the fields it sets. An empty
// path returns the defaults unchanged.
func Load(path string) (*Settings, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}

	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, errors.Wrapf(err, "rpcconfig: failed to expand config path %q", path)
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, errors.Wrapf(err, "rpcconfig: failed to read config file %q", expanded)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "rpcconfig: failed to parse config file %q", expanded)
	}
	return cfg, nil
}
