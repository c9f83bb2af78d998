// Copyright 2024 The Accumulate Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gitlab.com/accumulatenetwork/starregistry/pkg/errors"
)

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	// Create
	cfg := Default()
	cfg.SetRoot(dir)
	cfg.Storage.Type = BoltStorage
	cfg.API.ListenAddress = "tcp://0.0.0.0:9000"
	cfg.Validation.Window = 2 * time.Minute

	// Store
	require.NoError(t, Store(cfg))

	// Load
	lcfg, err := Load(dir)
	require.NoError(t, err)

	// Should be equal
	require.Equal(t, cfg, lcfg)
}

func TestEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.SetRoot(dir)
	require.NoError(t, Store(cfg))

	t.Setenv("STARREGISTRY_STORAGE_TYPE", "leveldb")
	t.Setenv("STARREGISTRY_API_LISTEN_ADDRESS", "tcp://127.0.0.1:9999")

	lcfg, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, LevelDBStorage, lcfg.Storage.Type)
	require.Equal(t, "tcp://127.0.0.1:9999", lcfg.API.ListenAddress)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir())
	require.ErrorIs(t, err, errors.NotFound)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.SetRoot(dir)
	cfg.Storage.Type = "etcd"
	require.NoError(t, Store(cfg))

	_, err := Load(dir)
	require.ErrorIs(t, err, errors.BadRequest)
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	cases := map[string]func(*Config){
		"StorageType":  func(c *Config) { c.Storage.Type = "etcd" },
		"StoragePath":  func(c *Config) { c.Storage.Path = "" },
		"ListenScheme": func(c *Config) { c.API.ListenAddress = "http://127.0.0.1:8000" },
		"ListenNoURL":  func(c *Config) { c.API.ListenAddress = "127.0.0.1:8000" },
		"ListenNoPort": func(c *Config) { c.API.ListenAddress = "tcp://127.0.0.1" },
		"Window":       func(c *Config) { c.Validation.Window = 0 },
		"Schedule":     func(c *Config) { c.Validation.SweepSchedule = "every minute" },
		"Network":      func(c *Config) { c.Validation.Network = "litecoin" },
		"LogLevel":     func(c *Config) { c.Logging.Level = "loud" },
		"LogFormat":    func(c *Config) { c.Logging.Format = "xml" },
		"ModuleLevel":  func(c *Config) { c.Logging.Level = "info;ledger=loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), errors.BadRequest)
		})
	}

	// Memory storage does not need a path
	cfg := Default()
	cfg.Storage.Type = MemoryStorage
	cfg.Storage.Path = ""
	require.NoError(t, cfg.Validate())
}

func TestStoragePath(t *testing.T) {
	cfg := Default()
	cfg.SetRoot("/work")
	require.Equal(t, filepath.Join("/work", "data", "chaindb"), cfg.StoragePath())

	cfg.Storage.Path = "/abs/db"
	require.Equal(t, "/abs/db", cfg.StoragePath())
}

func TestLogLevel(t *testing.T) {
	l := LogLevel{}.Parse("error;ledger=debug;api=info")
	require.Equal(t, "error", l.Default)
	require.Equal(t, [][2]string{{"ledger", "debug"}, {"api", "info"}}, l.Modules)
	require.Equal(t, "error;ledger=debug;api=info", l.String())
	require.Equal(t, "info;badger=error", DefaultLogLevels)
}

func TestParseListenAddress(t *testing.T) {
	network, address, err := ParseListenAddress("tcp://127.0.0.1:8000")
	require.NoError(t, err)
	require.Equal(t, "tcp", network)
	require.Equal(t, "127.0.0.1:8000", address)
}
