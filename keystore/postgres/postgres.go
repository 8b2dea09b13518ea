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

// Package postgres implements a keystore.Store on top of PostgreSQL.
//
// Key pairs live in a single table:
//
//	CREATE TABLE keypairs (
//		name        text PRIMARY KEY,
//		kind        text NOT NULL DEFAULT '',
//		public_pem  text NOT NULL DEFAULT '',
//		private_pem text NOT NULL DEFAULT '',
//		detail      jsonb NOT NULL DEFAULT '{}',
//		created_at  timestamptz NOT NULL DEFAULT now()
//	)
//
// Open creates the table if it does not exist yet. The detail column holds
// the key detail as written by keystore.MarshalDetail.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deep-rent/keykit/backoff"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/keystore"
	"github.com/deep-rent/keykit/log"
	"github.com/deep-rent/keykit/retry"
	"github.com/lib/pq"
)

// DefaultTable is the table used unless WithTable says otherwise.
const DefaultTable = "keypairs"

// DefaultConnectAttempts is the number of times New tries to reach the
// database before giving up.
const DefaultConnectAttempts = 3

// SQLSTATE codes.
const (
	uniqueViolation  = "23505"
	cannotConnectNow = "57P03"
)

type config struct {
	table    string
	logger   *slog.Logger
	attempts int
	backoff  backoff.Strategy
}

// Option configures a Store.
type Option func(*config)

// WithTable sets the table name. If an empty string is given, this option is
// ignored.
func WithTable(name string) Option {
	return func(c *config) {
		if name != "" {
			c.table = name
		}
	}
}

// WithLogger sets the logger. If nil is given, this option is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConnectAttempts sets how often New tries to reach the database.
// Values below one are treated as one.
func WithConnectAttempts(n int) Option {
	return func(c *config) {
		c.attempts = max(1, n)
	}
}

// WithBackoff sets the delay strategy between connection attempts. If nil
// is given, this option is ignored.
func WithBackoff(strategy backoff.Strategy) Option {
	return func(c *config) {
		if strategy != nil {
			c.backoff = strategy
		}
	}
}

// startingUp matches the error a server returns while it is still
// recovering or starting.
func startingUp(a retry.Attempt) bool {
	var pqErr *pq.Error
	return errors.As(a.Err, &pqErr) && pqErr.Code == cannotConnectNow
}

// Store is a keystore.Store backed by a PostgreSQL table.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	insert string
	upsert string
	get    string
	delete string
	list   string
}

var _ keystore.Store = (*Store)(nil)

// Open connects to the database identified by dsn, verifies the connection
// and makes sure the key table exists.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	s, err := New(ctx, db, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing database handle. The store takes ownership of db and
// closes it on Close.
func New(ctx context.Context, db *sql.DB, opts ...Option) (*Store, error) {
	c := config{
		table:    DefaultTable,
		logger:   log.Discard(),
		attempts: DefaultConnectAttempts,
		backoff:  backoff.New(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	err := retry.Do(ctx, db.PingContext,
		retry.WithPolicy(retry.Policy(retry.Transient).Or(startingUp)),
		retry.WithAttemptLimit(c.attempts),
		retry.WithBackoff(c.backoff),
		retry.WithLogger(c.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	t := pq.QuoteIdentifier(c.table)
	ddl := `CREATE TABLE IF NOT EXISTS ` + t + ` (
		name        text PRIMARY KEY,
		kind        text NOT NULL DEFAULT '',
		public_pem  text NOT NULL DEFAULT '',
		private_pem text NOT NULL DEFAULT '',
		detail      jsonb NOT NULL DEFAULT '{}',
		created_at  timestamptz NOT NULL DEFAULT now()
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, fmt.Errorf("create table: %w", err)
	}
	cols := `(name, kind, public_pem, private_pem, detail) VALUES ($1, $2, $3, $4, $5)`
	s := &Store{
		db:     db,
		logger: c.logger,
		insert: `INSERT INTO ` + t + ` ` + cols,
		upsert: `INSERT INTO ` + t + ` ` + cols + ` ON CONFLICT (name) DO UPDATE SET
			kind = EXCLUDED.kind,
			public_pem = EXCLUDED.public_pem,
			private_pem = EXCLUDED.private_pem,
			detail = EXCLUDED.detail,
			created_at = now()`,
		get:    `SELECT kind, public_pem, private_pem, detail FROM ` + t + ` WHERE name = $1`,
		delete: `DELETE FROM ` + t + ` WHERE name = $1`,
		list:   `SELECT name FROM ` + t + ` ORDER BY name COLLATE "C"`,
	}
	s.logger.Debug("Key store ready", "table", c.table)
	return s, nil
}

func (s *Store) Put(ctx context.Context, name string, kp *keymat.Keypair, overwrite bool) error {
	if err := keystore.ValidateName(name); err != nil {
		return err
	}
	detail, err := keystore.MarshalDetail(kp.Detail())
	if err != nil {
		return err
	}
	query := s.insert
	if overwrite {
		query = s.upsert
	}
	_, err = s.db.ExecContext(ctx, query,
		name, string(kp.Kind()), kp.PublicKey(), kp.PrivateKey(), string(detail),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return keystore.ErrExists
	}
	if err != nil {
		return fmt.Errorf("store key %q: %w", name, err)
	}
	s.logger.Debug("Key stored", "name", name, "kind", kp.Kind())
	return nil
}

func (s *Store) Get(ctx context.Context, name string) (*keymat.Keypair, error) {
	var (
		kind, public, private string
		detail                []byte
	)
	err := s.db.QueryRowContext(ctx, s.get, name).Scan(&kind, &public, &private, &detail)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, keystore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load key %q: %w", name, err)
	}
	var d keymat.Detail
	if kind != "" {
		if d, err = keystore.UnmarshalDetail(keymat.Kind(kind), detail); err != nil {
			return nil, err
		}
	}
	return keystore.Restore(public, private, d)
}

func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, s.delete, name)
	if err != nil {
		return fmt.Errorf("delete key %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete key %q: %w", name, err)
	}
	if n == 0 {
		return keystore.ErrNotFound
	}
	s.logger.Debug("Key deleted", "name", name)
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.list)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return names, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }
