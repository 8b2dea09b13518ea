// Copyright (c) 2025-present deep.rent GmbH (https://deep.rent)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/deep-rent/keykit/env"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/keystore"
	"github.com/deep-rent/keykit/keystore/postgres"
	"github.com/deep-rent/keykit/log"
	"github.com/deep-rent/keykit/provider"
)

// Store backends.
const (
	BackendDir      = "dir"
	BackendPostgres = "postgres"
)

// EnvPrefix prefixes the environment variables that override the
// configuration file, as in KEYKIT_STORE_DSN.
const EnvPrefix = "KEYKIT_"

// Config is the content of the configuration file.
type Config struct {
	Key   KeyConfig   `json:"key" yaml:"key"`
	Store StoreConfig `json:"store" yaml:"store"`
	Log   log.Config  `json:"log" yaml:"log"`
}

// KeyConfig holds the defaults for key generation.
type KeyConfig struct {
	Type  string `json:"type,omitempty" yaml:"type,omitempty"`
	Bits  int    `json:"bits,omitempty" yaml:"bits,omitempty"`
	Curve string `json:"curve,omitempty" yaml:"curve,omitempty"`
}

// StoreConfig selects and configures the key store.
type StoreConfig struct {
	Backend string `json:"backend,omitempty" yaml:"backend,omitempty"`
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DSN     string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	Table   string `json:"table,omitempty" yaml:"table,omitempty"`
	// Attempts is the number of connection attempts for the postgres
	// backend.
	Attempts int `json:"attempts,omitempty" yaml:"attempts,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Key: KeyConfig{
			Type: string(keymat.RSA),
			Bits: provider.DefaultBits,
		},
		Store: StoreConfig{
			Backend:  BackendDir,
			Dir:      "keys",
			Table:    postgres.DefaultTable,
			Attempts: postgres.DefaultConnectAttempts,
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if _, err := keymat.ParseKind(c.Key.Type); err != nil {
		return fmt.Errorf("key type: %w", err)
	}
	if c.Key.Bits < 0 {
		return fmt.Errorf("key bits must not be negative, got %d", c.Key.Bits)
	}
	switch c.Store.Backend {
	case BackendDir, BackendPostgres:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return c.Log.Validate()
}

// openStore connects to the configured key store.
func (a *app) openStore(ctx context.Context) (keystore.Store, error) {
	s := a.cfg.Store
	switch s.Backend {
	case BackendPostgres:
		if s.DSN == "" {
			return nil, errors.New("postgres store requires a dsn")
		}
		dsn, err := env.Expand(s.DSN)
		if err != nil {
			return nil, fmt.Errorf("resolve dsn: %w", err)
		}
		st, err := postgres.Open(ctx, dsn,
			postgres.WithTable(s.Table),
			postgres.WithConnectAttempts(s.Attempts),
			postgres.WithLogger(a.logger),
		)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		if s.Dir == "" {
			return nil, errors.New("directory store requires a dir")
		}
		return keystore.NewDir(s.Dir, keystore.WithLogger(a.logger)), nil
	}
}
