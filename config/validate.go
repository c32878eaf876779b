// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Backend != BackendBolt && cfg.Backend != BackendMemory {
		return ErrInvalidBackend
	}

	if !common.IsHexAddress(cfg.PoolAddress) {
		return fmt.Errorf("%w: pool_address %q", ErrInvalidAddress, cfg.PoolAddress)
	}
	pool := common.HexToAddress(cfg.PoolAddress)
	for _, acct := range cfg.RefusingAccounts {
		if !common.IsHexAddress(acct) {
			return fmt.Errorf("%w: refusing account %q", ErrInvalidAddress, acct)
		}
		if common.HexToAddress(acct) == pool {
			return fmt.Errorf("%w: pool account cannot refuse transfers", ErrInvalidAddress)
		}
	}

	// Metrics are disabled when no address is configured.
	if cfg.MetricsAddr != "" {
		if err := validateAddr(cfg.MetricsAddr); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidMetricsAddr, err)
		}
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	return nil
}

// validateAddr checks that addr is a valid host:port address.
func validateAddr(addr string) error {
	_, _, err := net.SplitHostPort(addr)
	return err
}
