// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads and stores the stakeledger configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Storage backends.
const (
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// DefaultPoolAddress is the custody account that holds staked principal and
// undistributed rewards.
const DefaultPoolAddress = "0x0000000000000000000000000000000000001000"

const header = "# stakeledger configuration\n\n"

// Config holds the settings of a stakeledger data directory.
type Config struct {
	DataDir          string   `toml:"datadir"`
	Backend          string   `toml:"backend"`
	PoolAddress      string   `toml:"pool_address"`
	MetricsAddr      string   `toml:"metrics_addr"`
	LogLevel         string   `toml:"loglevel"`
	LogFile          string   `toml:"logfile"`
	RefusingAccounts []string `toml:"refusing_accounts"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() Config {
	return Config{
		DataDir:          DefaultDataDir(),
		Backend:          BackendBolt,
		PoolAddress:      DefaultPoolAddress,
		LogLevel:         "info",
		RefusingAccounts: []string{},
	}
}

// DefaultDataDir returns ~/.stakeledger, or .stakeledger when the home
// directory cannot be determined.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stakeledger"
	}
	return filepath.Join(home, ".stakeledger")
}

// ConfigPath returns the configuration file path inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.toml")
}

// LoadConfig reads the TOML file at path. Keys absent from the file keep their
// default values; unknown keys are ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: stat %s: %w", path, err)
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		var perr toml.ParseError
		if errors.As(err, &perr) {
			return cfg, fmt.Errorf("%w: %s: %w", ErrMalformedConfig, path, err)
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if cfg.RefusingAccounts == nil {
		cfg.RefusingAccounts = []string{}
	}
	return cfg, nil
}

// SaveConfig writes cfg to path, creating parent directories as needed.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0600)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}

// Pool returns the custody account address.
func (c Config) Pool() common.Address {
	return common.HexToAddress(c.PoolAddress)
}

// Refusing returns the parsed refusing accounts.
func (c Config) Refusing() []common.Address {
	out := make([]common.Address, 0, len(c.RefusingAccounts))
	for _, s := range c.RefusingAccounts {
		out = append(out, common.HexToAddress(s))
	}
	return out
}
