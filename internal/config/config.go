// Package config loads and validates the voxwatch configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const ledgerFileName = "processed_files.json"

type Config struct {
	WatchDir   string `toml:"watch_dir"`
	LedgerPath string `toml:"ledger_path"`

	Workers            int `toml:"workers"`
	QueueSize          int `toml:"queue_size"`
	SettleDelaySeconds int `toml:"settle_delay_seconds"`

	Extensions []string `toml:"extensions"`

	Model        string `toml:"model"`
	ModelDir     string `toml:"model_dir"`
	Language     string `toml:"language"`
	AutoDownload bool   `toml:"auto_download"`

	SilenceGate          bool    `toml:"silence_gate"`
	SilenceThresholdDBFS float64 `toml:"silence_threshold_dbfs"`

	JSONLogs      bool   `toml:"json_logs"`
	LogFile       string `toml:"log_file"`
	LogMaxSizeMB  int    `toml:"log_max_size_mb"`
	LogMaxBackups int    `toml:"log_max_backups"`
}

func Default() Config {
	return Config{
		Workers:              4,
		QueueSize:            1024,
		SettleDelaySeconds:   3,
		Extensions:           []string{".mp3", ".wav", ".mp4", ".mkv", ".mov", ".flv", ".aac", ".m4a"},
		Model:                "tiny",
		Language:             "en",
		AutoDownload:         true,
		SilenceGate:          true,
		SilenceThresholdDBFS: -65,
	}
}

// Load reads the TOML file at path on top of the defaults. A missing file is
// not an error; the caller decides whether a config file is mandatory.
func Load(path string) (Config, error) {
	cfg := Default()

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Normalize() {
	c.WatchDir = strings.TrimSpace(c.WatchDir)
	if c.WatchDir != "" {
		c.WatchDir = filepath.Clean(c.WatchDir)
	}
	if strings.TrimSpace(c.LedgerPath) == "" && c.WatchDir != "" {
		c.LedgerPath = filepath.Join(c.WatchDir, ledgerFileName)
	}
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	if c.Language == "" {
		c.Language = "auto"
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.WatchDir) == "" {
		return errors.New("watch_dir is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", c.QueueSize)
	}
	if c.SettleDelaySeconds < 0 {
		return fmt.Errorf("settle_delay_seconds must not be negative, got %d", c.SettleDelaySeconds)
	}
	if len(c.Extensions) == 0 {
		return errors.New("extensions must not be empty")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model is required")
	}
	return nil
}

func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}
