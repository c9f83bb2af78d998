// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"gitlab.com/accumulatenetwork/starregistry/internal/logging"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

const (
	configDir  = "config"
	configFile = "starregistry.toml"

	// EnvPrefix is the prefix of environment variables that override the
	// configuration file, for example STARREGISTRY_STORAGE_TYPE.
	EnvPrefix = "STARREGISTRY"
)

type StorageType string

const (
	MemoryStorage  StorageType = "memory"
	BadgerStorage  StorageType = "badger"
	LevelDBStorage StorageType = "leveldb"
	BoltStorage    StorageType = "bolt"
)

// LogLevel defines the default and per-module log level.
type LogLevel struct {
	Default string
	Modules [][2]string
}

// Parse parses a string such as "error;ledger=info" into a LogLevel.
func (l LogLevel) Parse(s string) LogLevel {
	for _, s := range strings.Split(s, ";") {
		s := strings.SplitN(s, "=", 2)
		if len(s) == 1 {
			l.Default = s[0]
		} else {
			l.Modules = append(l.Modules, *(*[2]string)(s))
		}
	}
	return l
}

// SetDefault sets the default log level.
func (l LogLevel) SetDefault(level string) LogLevel {
	l.Default = level
	return l
}

// SetModule sets the log level for a module.
func (l LogLevel) SetModule(module, level string) LogLevel {
	l.Modules = append(l.Modules, [2]string{module, level})
	return l
}

// String converts the log level into a string, for example
// "error;ledger=debug".
func (l LogLevel) String() string {
	s := new(strings.Builder)
	s.WriteString(l.Default)
	for _, m := range l.Modules {
		fmt.Fprintf(s, ";%s=%s", m[0], m[1])
	}
	return s.String()
}

var DefaultLogLevels = LogLevel{}.
	SetDefault("info").
	SetModule("badger", "error").
	// SetModule("validation", "debug").
	String()

type Config struct {
	// RootDir is the working directory. It is not stored.
	RootDir string `toml:"-" mapstructure:"-"`

	Storage    Storage    `toml:"storage" mapstructure:"storage"`
	API        API        `toml:"api" mapstructure:"api"`
	Validation Validation `toml:"validation" mapstructure:"validation"`
	Logging    Logging    `toml:"logging" mapstructure:"logging"`
}

type Storage struct {
	Type StorageType `toml:"type" mapstructure:"type"`

	// Path is the location of the store, relative to the working directory
	Path string `toml:"path" mapstructure:"path"`
}

type API struct {
	ListenAddress     string        `toml:"listen-address" mapstructure:"listen-address"`
	ReadHeaderTimeout time.Duration `toml:"read-header-timeout" mapstructure:"read-header-timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

type Validation struct {
	// Window is the lifetime of a new validation request
	Window time.Duration `toml:"window" mapstructure:"window"`

	// SweepSchedule is a cron schedule for removing expired requests
	SweepSchedule string `toml:"sweep-schedule" mapstructure:"sweep-schedule"`

	// Network selects the address format: mainnet, testnet3, regtest, or simnet
	Network string `toml:"network" mapstructure:"network"`
}

type Logging struct {
	Level  string `toml:"level" mapstructure:"level"`
	Format string `toml:"format" mapstructure:"format"`
}

func Default() *Config {
	c := new(Config)
	c.Storage.Type = BadgerStorage
	c.Storage.Path = filepath.Join("data", "chaindb")
	c.API.ListenAddress = "tcp://127.0.0.1:8000"
	c.API.ReadHeaderTimeout = 10 * time.Second
	c.API.ShutdownTimeout = 10 * time.Second
	c.Validation.Window = 5 * time.Minute
	c.Validation.SweepSchedule = "@every 1m"
	c.Validation.Network = "mainnet"
	c.Logging.Level = DefaultLogLevels
	c.Logging.Format = logging.LogFormatPlain
	return c
}

// SetRoot sets the working directory.
func (c *Config) SetRoot(dir string) {
	c.RootDir = dir
}

// StoragePath returns the absolute location of the store.
func (c *Config) StoragePath() string {
	return MakeAbsolute(c.RootDir, c.Storage.Path)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case MemoryStorage:
	case BadgerStorage, LevelDBStorage, BoltStorage:
		if c.Storage.Path == "" {
			return errors.BadRequest.WithFormat("storage path is required for %s", c.Storage.Type)
		}
	default:
		return errors.BadRequest.WithFormat("unknown storage type %q", c.Storage.Type)
	}

	_, _, err := ParseListenAddress(c.API.ListenAddress)
	if err != nil {
		return err
	}

	if c.Validation.Window <= 0 {
		return errors.BadRequest.WithFormat("validation window must be positive, got %v", c.Validation.Window)
	}
	if _, err := cron.ParseStandard(c.Validation.SweepSchedule); err != nil {
		return errors.BadRequest.WithFormat("invalid sweep schedule %q: %w", c.Validation.SweepSchedule, err)
	}

	switch c.Validation.Network {
	case "mainnet", "testnet3", "regtest", "simnet":
	default:
		return errors.BadRequest.WithFormat("unknown network %q", c.Validation.Network)
	}

	if _, err := logging.NewLogger(io.Discard, c.Logging.Level, false); err != nil {
		return errors.BadRequest.WithFormat("invalid log level %q: %w", c.Logging.Level, err)
	}
	switch c.Logging.Format {
	case logging.LogFormatPlain, logging.LogFormatText, logging.LogFormatJSON:
	default:
		return errors.BadRequest.WithFormat("unknown log format %q", c.Logging.Format)
	}
	return nil
}

func MakeAbsolute(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// ParseListenAddress parses an address such as tcp://127.0.0.1:8000 into a
// network and an address suitable for [net.Listen].
func ParseListenAddress(addr string) (network, address string, err error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", "", errors.BadRequest.WithFormat("invalid URL %q: %w", addr, err)
	}
	if u.Scheme == "" {
		return "", "", errors.BadRequest.WithFormat("invalid URL %q: has no scheme, so this probably isn't a URL", addr)
	}
	if u.Scheme != "tcp" && u.Scheme != "tcp4" && u.Scheme != "tcp6" {
		return "", "", errors.BadRequest.WithFormat("invalid URL %q: unsupported scheme %q", addr, u.Scheme)
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return "", "", errors.BadRequest.WithFormat("invalid URL %q: %w", addr, err)
	}
	return u.Scheme, u.Host, nil
}

// Load reads the configuration from the working directory. Environment
// variables prefixed with STARREGISTRY override the file.
func Load(dir string) (*Config, error) {
	return loadFile(dir, filepath.Join(dir, configDir, configFile))
}

func loadFile(dir, file string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(file)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	err := v.ReadInConfig()
	if err != nil {
		return nil, errors.NotFound.WithFormat("read: %w", err)
	}

	config := Default()
	err = v.Unmarshal(config)
	if err != nil {
		return nil, errors.EncodingError.WithFormat("unmarshal: %w", err)
	}

	config.SetRoot(dir)
	if err := config.Validate(); err != nil {
		return nil, errors.UnknownError.WithFormat("validate: %w", err)
	}
	return config, nil
}

// Store writes the configuration into the working directory.
func Store(config *Config) error {
	err := os.MkdirAll(filepath.Join(config.RootDir, configDir), 0700)
	if err != nil {
		return errors.StorageFailure.Wrap(err)
	}

	f, err := os.Create(filepath.Join(config.RootDir, configDir, configFile))
	if err != nil {
		return errors.StorageFailure.Wrap(err)
	}
	defer f.Close()

	err = toml.NewEncoder(f).Encode(config)
	if err != nil {
		return errors.EncodingError.Wrap(err)
	}
	return nil
}
