// Copyright (c) 2024 The BitFS developers
// Use of this source code is governed by the Open BSV License v5
// that can be found in the LICENSE file.

// Package config loads libcash settings from a key=value file and the
// LIBCASH_* environment.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "LIBCASH"

// Config holds the settings of a wallet process.
type Config struct {
	DataDir     string `envconfig:"DATA_DIR"`
	Network     string `envconfig:"NETWORK"`
	ElectrumURL string `envconfig:"ELECTRUM_URL"`
	RPCURL      string `envconfig:"RPC_URL"`
	RPCUser     string `envconfig:"RPC_USER"`
	RPCPassword string `envconfig:"RPC_PASS"`

	LogLevel string `envconfig:"LOG_LEVEL"`
	LogFile  string `envconfig:"LOG_FILE"`
	LogJSON  bool   `envconfig:"LOG_JSON"`

	// FeeRate is in sat/kB; zero asks the provider.
	FeeRate                uint64 `envconfig:"FEE_RATE"`
	DustLimit              uint64 `envconfig:"DUST_LIMIT"`
	CoinbaseMaturity       uint64 `envconfig:"COINBASE_MATURITY"`
	MaxFeeRounds           int    `envconfig:"MAX_FEE_ROUNDS"`
	TokenAware             bool   `envconfig:"TOKEN_AWARE"`
	SpendUnconfirmedTokens bool   `envconfig:"SPEND_UNCONFIRMED_TOKENS"`
}

// DefaultDataDir returns ~/.libcash, or .libcash when the home directory
// is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".libcash"
	}
	return filepath.Join(home, ".libcash")
}

// ConfigPath returns the config file location inside dataDir.
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config")
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		DataDir:                DefaultDataDir(),
		Network:                "mainnet",
		LogLevel:               "info",
		DustLimit:              546,
		CoinbaseMaturity:       100,
		MaxFeeRounds:           5,
		TokenAware:             true,
		SpendUnconfirmedTokens: true,
	}
}

// LoadConfig reads path over DefaultConfig. Blank lines and # comments are
// skipped and unknown keys ignored.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return cfg, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := parseKeyValue(line)
		if !ok {
			return cfg, fmt.Errorf("%w: line %d: %q", ErrInvalidConfigLine, lineNo, line)
		}
		if err := cfg.set(key, value); err != nil {
			return cfg, fmt.Errorf("%w: line %d: %w", ErrInvalidConfigLine, lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	return cfg, nil
}

// parseKeyValue splits on the first '='.
func parseKeyValue(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "datadir":
		c.DataDir = value
	case "network":
		c.Network = value
	case "electrum":
		c.ElectrumURL = value
	case "rpcurl":
		c.RPCURL = value
	case "rpcuser":
		c.RPCUser = value
	case "rpcpassword":
		c.RPCPassword = value
	case "loglevel":
		c.LogLevel = value
	case "logfile":
		c.LogFile = value
	case "logjson":
		c.LogJSON, err = strconv.ParseBool(value)
	case "feerate":
		c.FeeRate, err = strconv.ParseUint(value, 10, 64)
	case "dustlimit":
		c.DustLimit, err = strconv.ParseUint(value, 10, 64)
	case "coinbasematurity":
		c.CoinbaseMaturity, err = strconv.ParseUint(value, 10, 64)
	case "maxfeerounds":
		c.MaxFeeRounds, err = strconv.Atoi(value)
	case "tokenaware":
		c.TokenAware, err = strconv.ParseBool(value)
	case "spendunconfirmedtokens":
		c.SpendUnconfirmedTokens, err = strconv.ParseBool(value)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// SaveConfig writes cfg to path, creating parent directories.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}

	var b strings.Builder
	b.WriteString("# libcash configuration\n\n")
	fmt.Fprintf(&b, "datadir = %s\n", cfg.DataDir)
	fmt.Fprintf(&b, "network = %s\n", cfg.Network)
	fmt.Fprintf(&b, "electrum = %s\n", cfg.ElectrumURL)
	fmt.Fprintf(&b, "rpcurl = %s\n", cfg.RPCURL)
	fmt.Fprintf(&b, "rpcuser = %s\n", cfg.RPCUser)
	fmt.Fprintf(&b, "rpcpassword = %s\n", cfg.RPCPassword)
	b.WriteString("\n# Logging\n")
	fmt.Fprintf(&b, "loglevel = %s\n", cfg.LogLevel)
	fmt.Fprintf(&b, "logfile = %s\n", cfg.LogFile)
	fmt.Fprintf(&b, "logjson = %t\n", cfg.LogJSON)
	b.WriteString("\n# Spending policy\n")
	fmt.Fprintf(&b, "feerate = %d\n", cfg.FeeRate)
	fmt.Fprintf(&b, "dustlimit = %d\n", cfg.DustLimit)
	fmt.Fprintf(&b, "coinbasematurity = %d\n", cfg.CoinbaseMaturity)
	fmt.Fprintf(&b, "maxfeerounds = %d\n", cfg.MaxFeeRounds)
	fmt.Fprintf(&b, "tokenaware = %t\n", cfg.TokenAware)
	fmt.Fprintf(&b, "spendunconfirmedtokens = %t\n", cfg.SpendUnconfirmedTokens)

	if err := os.WriteFile(path, []byte(b.String()), 0600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays LIBCASH_* environment variables onto cfg. Unset
// variables leave fields unchanged.
func ApplyEnv(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEnv, err)
	}
	return nil
}

// Resolve builds the effective configuration: defaults, then the file at
// path when it exists, then the environment. The result is validated. An
// empty path means ConfigPath(DefaultDataDir()).
func Resolve(path string) (Config, error) {
	if path == "" {
		path = ConfigPath(DefaultDataDir())
	}
	cfg, err := LoadConfig(path)
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return Config{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
