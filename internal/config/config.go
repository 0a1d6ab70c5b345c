// Package config loads the optional promptrun TOML configuration file.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	configDirName  = ".promptrun"
	configFileName = "config.toml"
	sqliteFileName = "history.db"
)

// Config holds the optional settings read from ~/.promptrun/config.toml.
// Every field has a working default; the file may be absent entirely.
type Config struct {
	// BaseURL is the API root to send requests to.
	BaseURL string `toml:"base_url"`

	// Temperature is the default sampling temperature when the request
	// envelope does not carry one.
	Temperature *float64 `toml:"temperature"`

	// Record enables transcript recording for every successful request.
	Record bool `toml:"record"`

	// SQLitePath overrides where transcripts are stored.
	SQLitePath string `toml:"sqlite_path"`

	// Timeout is the per-request timeout as a duration string (e.g., "90s").
	Timeout string `toml:"timeout"`
}

// Load reads the config file at path. An empty path means the default
// location; a missing file at the default location yields zero-value config.
func Load(path string) (Config, error) {
	var cfg Config

	usingDefault := path == ""
	if usingDefault {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return cfg, err
		}
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && usingDefault {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "config file %s", path)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "could not parse config file %s", path)
	}

	return cfg, nil
}

// DefaultPath returns ~/.promptrun/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not resolve home directory")
	}

	return filepath.Join(home, configDirName, configFileName), nil
}

// RequestTimeout parses the configured timeout. Zero means "use the client
// default".
func (c Config) RequestTimeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid timeout %q", c.Timeout)
	}

	return d, nil
}

// ResolveSQLitePath picks the transcript database location: the explicit
// override wins, then the config file, then ~/.promptrun/history.db. The
// parent directory is created if needed.
func ResolveSQLitePath(override string, cfg Config) (string, error) {
	path := override
	if path == "" {
		path = cfg.SQLitePath
	}

	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "could not resolve home directory")
		}
		path = filepath.Join(home, configDirName, sqliteFileName)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create directory for %s", path)
	}

	return path, nil
}
