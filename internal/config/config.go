// Package config loads server and client settings.
//
// Sources, lowest priority first:
//  1. Defaults
//  2. Config file (explicit path, else tada.toml in the working directory,
//     else tada/tada.toml under the user config dir)
//  3. Environment variables
//
// Command-line flags are applied by the binaries on top of the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const fileName = "tada.toml"

type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

type StoreConfig struct {
	SeedDefaults bool   `toml:"seed_defaults"`
	SeedFile     string `toml:"seed_file"`
}

type ClientConfig struct {
	ServerURL string        `toml:"server_url"`
	Timeout   time.Duration `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type UIConfig struct {
	Theme string `toml:"theme"`
}

// Config is the merged configuration of both binaries.
type Config struct {
	Server ServerConfig `toml:"server"`
	Store  StoreConfig  `toml:"store"`
	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
	UI     UIConfig     `toml:"ui"`

	// File is the config file that was read, empty when none was found.
	File string `toml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		Store: StoreConfig{SeedDefaults: true},
		Client: ClientConfig{
			ServerURL: "http://localhost:8080",
			Timeout:   10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		UI:  UIConfig{Theme: "classic"},
	}
}

// Load builds a Config from defaults, the config file and the environment.
// An explicit path must exist; the default locations are optional.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		file = findConfigFile()
	} else if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("config file %s: %w", file, err)
	}
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", file, err)
		}
		cfg.File = file
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings neither binary can run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.shutdown_timeout must be positive"))
	}
	if strings.TrimSpace(c.Client.ServerURL) == "" {
		errs = append(errs, errors.New("client.server_url is empty"))
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client.timeout must be positive"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q: want json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

func findConfigFile() string {
	if _, err := os.Stat(fileName); err == nil {
		return fileName
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	p := filepath.Join(dir, "tada", fileName)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

func loadFromEnv(cfg *Config) error {
	if v := os.Getenv("TADA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TADA_SERVER_URL"); v != "" {
		cfg.Client.ServerURL = v
	}
	if v := os.Getenv("TADA_SEED_FILE"); v != "" {
		cfg.Store.SeedFile = v
	}
	if v := os.Getenv("TADA_SEED_DEFAULTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TADA_SEED_DEFAULTS: %w", err)
		}
		cfg.Store.SeedDefaults = b
	}
	if v := os.Getenv("TADA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TADA_TIMEOUT: %w", err)
		}
		cfg.Client.Timeout = d
	}
	if v := os.Getenv("TADA_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	return nil
}
