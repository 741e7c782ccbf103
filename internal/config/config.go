// Package config handles the configuration management for the password vault.
// It provides functionality to load, save, and manage application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/vault-cli/pwvault/internal/store"
	"github.com/vault-cli/pwvault/internal/vault"
)

// Config represents the vault configuration
type Config struct {
	DataDir           string          `yaml:"data_dir"`
	DefaultUser       string          `yaml:"default_user"`
	ClipboardTTL      time.Duration   `yaml:"clipboard_ttl"`
	LogLevel          string          `yaml:"log_level"`
	KDF               KDFConfig       `yaml:"kdf"`
	PasswordGenerator GeneratorConfig `yaml:"password_generator"`
}

// KDFConfig holds the scrypt cost used for newly registered vaults.
// Existing vaults keep the parameters recorded in their header.
type KDFConfig struct {
	N uint32 `yaml:"n"`
	R uint32 `yaml:"r"`
	P uint32 `yaml:"p"`
}

// GeneratorConfig is the password generator policy.
type GeneratorConfig struct {
	Length           int  `yaml:"length"`
	IncludeUppercase bool `yaml:"include_uppercase"`
	IncludeNumbers   bool `yaml:"include_numbers"`
	IncludeSpecial   bool `yaml:"include_special"`
}

const (
	MinGeneratedLength = 4
	MaxGeneratedLength = 128
)

// DefaultPath returns ~/.config/pwvault/config.yaml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "pwvault", "config.yaml")
}

// DefaultDataDir returns the directory holding vault files.
func DefaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "pwvault")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:      DefaultDataDir(),
		ClipboardTTL: 30 * time.Second,
		LogLevel:     "warn",
		KDF: KDFConfig{
			N: vault.DefaultScryptN,
			R: vault.DefaultScryptR,
			P: vault.DefaultScryptP,
		},
		PasswordGenerator: GeneratorConfig{
			Length:           16,
			IncludeUppercase: true,
			IncludeNumbers:   true,
			IncludeSpecial:   true,
		},
	}
}

// Validate checks every field that has a restricted range.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.ClipboardTTL < 0 {
		return fmt.Errorf("clipboard_ttl cannot be negative")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	if err := vault.ValidateParams(vault.Params{N: c.KDF.N, R: c.KDF.R, P: c.KDF.P}); err != nil {
		return fmt.Errorf("invalid kdf: %w", err)
	}
	if l := c.PasswordGenerator.Length; l < MinGeneratedLength || l > MaxGeneratedLength {
		return fmt.Errorf("password_generator.length must be between %d and %d", MinGeneratedLength, MaxGeneratedLength)
	}
	return nil
}

// LoadConfig loads configuration from file or returns default
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		return cfg, nil
	}

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config file
		if err := SaveConfig(cfg, configPath); err != nil {
			return cfg, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, configPath string) error {
	cleanPath := filepath.Clean(configPath)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := store.AtomicWriteFile(cleanPath, data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

type field struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

var fields = map[string]field{
	"data_dir": {
		get: func(c *Config) string { return c.DataDir },
		set: func(c *Config, v string) error { c.DataDir = v; return nil },
	},
	"default_user": {
		get: func(c *Config) string { return c.DefaultUser },
		set: func(c *Config, v string) error { c.DefaultUser = v; return nil },
	},
	"clipboard_ttl": {
		get: func(c *Config) string { return c.ClipboardTTL.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			c.ClipboardTTL = d
			return nil
		},
	},
	"log_level": {
		get: func(c *Config) string { return c.LogLevel },
		set: func(c *Config, v string) error { c.LogLevel = strings.ToLower(v); return nil },
	},
	"kdf.n": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.KDF.N), 10) },
		set: func(c *Config, v string) error { return setUint32(&c.KDF.N, v) },
	},
	"kdf.r": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.KDF.R), 10) },
		set: func(c *Config, v string) error { return setUint32(&c.KDF.R, v) },
	},
	"kdf.p": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.KDF.P), 10) },
		set: func(c *Config, v string) error { return setUint32(&c.KDF.P, v) },
	},
	"password_generator.length": {
		get: func(c *Config) string { return strconv.Itoa(c.PasswordGenerator.Length) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid integer value: %w", err)
			}
			c.PasswordGenerator.Length = n
			return nil
		},
	},
	"password_generator.include_uppercase": {
		get: func(c *Config) string { return strconv.FormatBool(c.PasswordGenerator.IncludeUppercase) },
		set: func(c *Config, v string) error { return setBool(&c.PasswordGenerator.IncludeUppercase, v) },
	},
	"password_generator.include_numbers": {
		get: func(c *Config) string { return strconv.FormatBool(c.PasswordGenerator.IncludeNumbers) },
		set: func(c *Config, v string) error { return setBool(&c.PasswordGenerator.IncludeNumbers, v) },
	},
	"password_generator.include_special": {
		get: func(c *Config) string { return strconv.FormatBool(c.PasswordGenerator.IncludeSpecial) },
		set: func(c *Config, v string) error { return setBool(&c.PasswordGenerator.IncludeSpecial, v) },
	},
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func normalizeKey(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), "-", "_")
}

// Get returns the value of key formatted as text.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[normalizeKey(key)]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return f.get(c), nil
}

// Set parses value into key. The config is left unchanged when the new
// value fails validation.
func (c *Config) Set(key, value string) error {
	f, ok := fields[normalizeKey(key)]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	next := *c
	if err := f.set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func setUint32(dst *uint32, v string) error {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid integer value: %w", err)
	}
	*dst = uint32(n)
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid boolean value: %w", err)
	}
	*dst = b
	return nil
}
