// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// ---------------------------------------------------------------------------
// DefaultConfig tests
// ---------------------------------------------------------------------------

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Backend", cfg.Backend, "bolt"},
		{"PoolAddress", cfg.PoolAddress, DefaultPoolAddress},
		{"MetricsAddr", cfg.MetricsAddr, ""},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFile", cfg.LogFile, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	if cfg.DataDir == "" {
		t.Error("DataDir should not be empty")
	}
	if len(cfg.RefusingAccounts) != 0 {
		t.Errorf("RefusingAccounts = %v, want empty", cfg.RefusingAccounts)
	}
}

// ---------------------------------------------------------------------------
// SaveConfig / LoadConfig round-trip tests
// ---------------------------------------------------------------------------

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	original := Config{
		DataDir:          "/tmp/test-stakeledger",
		Backend:          BackendMemory,
		PoolAddress:      "0x00000000000000000000000000000000000000aa",
		MetricsAddr:      ":9100",
		LogLevel:         "debug",
		LogFile:          "/tmp/stakeledger.log",
		RefusingAccounts: []string{"0x0000000000000000000000000000000000000bad"},
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"DataDir", loaded.DataDir, original.DataDir},
		{"Backend", loaded.Backend, original.Backend},
		{"PoolAddress", loaded.PoolAddress, original.PoolAddress},
		{"MetricsAddr", loaded.MetricsAddr, original.MetricsAddr},
		{"LogLevel", loaded.LogLevel, original.LogLevel},
		{"LogFile", loaded.LogFile, original.LogFile},
		{"RefusingAccounts", len(loaded.RefusingAccounts), 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.got != tc.want {
				t.Errorf("got %v, want %v", tc.got, tc.want)
			}
		})
	}

	refusing := loaded.Refusing()
	if len(refusing) != 1 || refusing[0] != common.HexToAddress("0xbad") {
		t.Errorf("Refusing() = %v", refusing)
	}
	if loaded.Pool() != common.HexToAddress("0xaa") {
		t.Errorf("Pool() = %s", loaded.Pool().Hex())
	}
}

func TestSaveConfigCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig should create parent dirs: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Config file not created: %v", err)
	}
}

// ---------------------------------------------------------------------------
// LoadConfig error tests
// ---------------------------------------------------------------------------

func TestLoadConfigNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.toml")
	if !errors.Is(err, ErrConfigNotFound) {
		t.Errorf("LoadConfig nonexistent: got %v, want ErrConfigNotFound", err)
	}
}

func TestLoadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := "this-is-not-key-value\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadConfig(path)
	if !errors.Is(err, ErrMalformedConfig) {
		t.Errorf("LoadConfig bad line: got %v, want ErrMalformedConfig", err)
	}
}

func TestLoadConfigCommentsAndBlanks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `# This is a comment
backend = "memory"

# Another comment
loglevel = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Backend != "memory" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "memory")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	// Unset fields should retain defaults.
	if cfg.PoolAddress != DefaultPoolAddress {
		t.Errorf("PoolAddress = %q, want default %q", cfg.PoolAddress, DefaultPoolAddress)
	}
}

func TestLoadConfigUnknownKeysIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := "futurekey = \"futurevalue\"\nbackend = \"memory\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig with unknown key: %v", err)
	}
	if cfg.Backend != "memory" {
		t.Errorf("Backend = %q, want %q", cfg.Backend, "memory")
	}
}

func TestLoadConfig_ArrayValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `refusing_accounts = [
  "0x0000000000000000000000000000000000000001",
  "0x0000000000000000000000000000000000000002",
]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.RefusingAccounts) != 2 {
		t.Fatalf("RefusingAccounts = %v, want 2 entries", cfg.RefusingAccounts)
	}
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig: %v", err)
	}
}

func TestLoadConfig_PermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission test not reliable on Windows")
	}
	if os.Getuid() == 0 {
		t.Skip("cannot test permission denial as root")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte("backend = \"memory\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(path, 0600) })

	_, err := LoadConfig(path)
	if err == nil {
		t.Fatal("LoadConfig on unreadable file: expected error, got nil")
	}
	if errors.Is(err, ErrConfigNotFound) {
		t.Error("LoadConfig on unreadable file should not return ErrConfigNotFound")
	}
}

// ---------------------------------------------------------------------------
// ValidateConfig tests
// ---------------------------------------------------------------------------

func TestValidateConfigDefaults(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfig(cfg); err != nil {
		t.Errorf("ValidateConfig(DefaultConfig()) = %v, want nil", err)
	}
}

func TestValidateConfigErrors(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{
			name:    "empty_datadir",
			modify:  func(c *Config) { c.DataDir = "" },
			wantErr: ErrEmptyDataDir,
		},
		{
			name:    "bad_backend",
			modify:  func(c *Config) { c.Backend = "leveldb" },
			wantErr: ErrInvalidBackend,
		},
		{
			name:    "bad_pool_address",
			modify:  func(c *Config) { c.PoolAddress = "pool" },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "bad_refusing_account",
			modify:  func(c *Config) { c.RefusingAccounts = []string{"0x12"} },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "pool_refusing",
			modify:  func(c *Config) { c.RefusingAccounts = []string{DefaultPoolAddress} },
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "bad_metrics_addr",
			modify:  func(c *Config) { c.MetricsAddr = "not-a-valid-addr" },
			wantErr: ErrInvalidMetricsAddr,
		},
		{
			name:    "bad_loglevel",
			modify:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: ErrInvalidLogLevel,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			err := ValidateConfig(cfg)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateConfig: got %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateConfigValidBackends(t *testing.T) {
	for _, backend := range []string{"bolt", "memory"} {
		cfg := DefaultConfig()
		cfg.Backend = backend
		if err := ValidateConfig(cfg); err != nil {
			t.Errorf("ValidateConfig with backend %q: %v", backend, err)
		}
	}
}

func TestValidateConfig_LogLevelCaseInsensitive(t *testing.T) {
	levels := []string{"INFO", "Debug", "WARN", "Error", "dEbUg"}
	for _, level := range levels {
		t.Run(level, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.LogLevel = level
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with LogLevel %q: %v", level, err)
			}
		})
	}
}

func TestValidateConfig_ValidMetricsAddrVariants(t *testing.T) {
	addrs := []string{
		"127.0.0.1:9100",
		"0.0.0.0:443",
		":9100",
		"localhost:3000",
		"[::1]:8080",
	}
	for _, addr := range addrs {
		t.Run(addr, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MetricsAddr = addr
			if err := ValidateConfig(cfg); err != nil {
				t.Errorf("ValidateConfig with MetricsAddr %q: %v", addr, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ConfigPath / DefaultDataDir tests
// ---------------------------------------------------------------------------

func TestConfigPath(t *testing.T) {
	got := ConfigPath("/home/user/.stakeledger")
	want := filepath.Join("/home/user/.stakeledger", "config.toml")
	if got != want {
		t.Errorf("ConfigPath = %q, want %q", got, want)
	}
}

func TestConfigPath_WithTrailingSlash(t *testing.T) {
	got := ConfigPath("/foo/")
	want := filepath.Join("/foo", "config.toml")
	if got != want {
		t.Errorf("ConfigPath(%q) = %q, want %q", "/foo/", got, want)
	}
}

func TestDefaultDataDir_EndsWith_DotStakeledger(t *testing.T) {
	dir := DefaultDataDir()
	if !strings.HasSuffix(dir, ".stakeledger") {
		t.Errorf("DefaultDataDir() = %q, want suffix %q", dir, ".stakeledger")
	}
}

// ---------------------------------------------------------------------------
// SaveConfig output format
// ---------------------------------------------------------------------------

func TestSaveConfig_OutputContainsHeaderAndKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveConfig(path, DefaultConfig()); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "# stakeledger configuration") {
		t.Error("saved config should start with header '# stakeledger configuration'")
	}
	for _, key := range []string{"datadir", "backend", "pool_address", "loglevel"} {
		if !strings.Contains(content, key+" = ") {
			t.Errorf("saved config should contain key %q", key)
		}
	}
}
