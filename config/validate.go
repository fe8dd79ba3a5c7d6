// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validLogLevels lists the accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// MaxFeeRoundsLimit bounds the configurable fee round cap.
const MaxFeeRoundsLimit = 100

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.DataDir == "" {
		return ErrEmptyDataDir
	}

	if cfg.Network != "mainnet" && cfg.Network != "testnet" && cfg.Network != "regtest" {
		return ErrInvalidNetwork
	}

	if err := validateURL(cfg.ElectrumURL, "ws", "wss"); err != nil {
		return fmt.Errorf("%w: electrum: %w", ErrInvalidURL, err)
	}
	if err := validateURL(cfg.RPCURL, "http", "https"); err != nil {
		return fmt.Errorf("%w: rpc: %w", ErrInvalidURL, err)
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return ErrInvalidLogLevel
	}

	if cfg.MaxFeeRounds < 1 || cfg.MaxFeeRounds > MaxFeeRoundsLimit {
		return ErrInvalidFeeRounds
	}

	return nil
}

// validateURL accepts an empty string or an absolute URL with one of the
// given schemes.
func validateURL(raw string, schemes ...string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("scheme %q not in %v", u.Scheme, schemes)
}
