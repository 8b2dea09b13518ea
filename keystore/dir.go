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

package keystore

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/deep-rent/keykit/armor"
	"github.com/deep-rent/keykit/clock"
	"github.com/deep-rent/keykit/keyfile"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/log"
	"github.com/goccy/go-json"
)

// File name suffixes of the directory store.
const (
	pemExt  = ".pem"
	metaExt = ".json"
)

// meta is the sidecar document stored next to each PEM file.
type meta struct {
	Kind    keymat.Kind     `json:"kind,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Created time.Time       `json:"created"`
}

type dirConfig struct {
	logger *slog.Logger
	now    clock.Clock
}

// DirOption configures a Dir store.
type DirOption func(*dirConfig)

// WithLogger sets the logger. If nil is given, this option is ignored.
func WithLogger(logger *slog.Logger) DirOption {
	return func(c *dirConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the function that supplies creation timestamps. If nil is
// given, this option is ignored.
func WithClock(now clock.Clock) DirOption {
	return func(c *dirConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// Dir stores each key pair as "<name>.pem" holding the public and private
// key PEM, plus "<name>.json" holding the kind and key detail.
type Dir struct {
	root   string
	mu     sync.RWMutex
	logger *slog.Logger
	now    clock.Clock
}

var _ Store = (*Dir)(nil)

// NewDir creates a directory store rooted at root. The directory is created
// on the first Put.
func NewDir(root string, opts ...DirOption) *Dir {
	c := dirConfig{
		logger: log.Discard(),
		now:    clock.System(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Dir{root: root, logger: c.logger, now: c.now.UTC()}
}

// Root returns the directory the store writes to.
func (s *Dir) Root() string { return s.root }

func (s *Dir) path(name, ext string) string {
	return filepath.Join(s.root, name+ext)
}

func (s *Dir) Put(ctx context.Context, name string, kp *keymat.Keypair, overwrite bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}
	detail, err := MarshalDetail(kp.Detail())
	if err != nil {
		return err
	}
	doc, err := json.Marshal(meta{
		Kind:    kp.Kind(),
		Detail:  detail,
		Created: s.now(),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(name, pemExt)
	switch {
	case kp.HasPublic() && kp.HasPrivate():
		err = keyfile.SaveKeys(kp, path, overwrite)
	case kp.HasPrivate():
		err = keyfile.SavePrivateKey(kp, path, overwrite)
	default:
		err = keyfile.SavePublicKey(kp, path, overwrite)
	}
	if errors.Is(err, keyfile.ErrExists) {
		return ErrExists
	}
	if err != nil {
		return err
	}
	if err := keyfile.Write(s.path(name, metaExt), doc, true); err != nil {
		// A key without its detail would come back incomplete.
		if e := os.Remove(path); e != nil {
			s.logger.Warn("Failed to remove key file", "path", path, "error", e)
		}
		return err
	}
	s.logger.Debug("Key stored", "name", name, "kind", kp.Kind())
	return nil
}

func (s *Dir) Get(ctx context.Context, name string) (*keymat.Keypair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	text, err := keyfile.Read(s.path(name, pemExt))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var public, private string
	for _, b := range armor.Split(text) {
		switch {
		case b.Private() && private == "":
			private = b.Text
		case armor.IsPublic(b.Label) && public == "":
			public = b.Text
		}
	}

	var d keymat.Detail
	raw, err := keyfile.Read(s.path(name, metaExt))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Written by hand; the PEM text is all there is.
	case err != nil:
		return nil, err
	default:
		var m meta
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, &keyfile.IOError{Op: "decode", Path: s.path(name, metaExt), Err: err}
		}
		if m.Kind != "" {
			if d, err = UnmarshalDetail(m.Kind, m.Detail); err != nil {
				return nil, err
			}
		}
	}
	return Restore(public, private, d)
}

func (s *Dir) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name, pemExt)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return &keyfile.IOError{Op: "remove", Path: s.path(name, pemExt), Err: err}
	}
	if err := os.Remove(s.path(name, metaExt)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &keyfile.IOError{Op: "remove", Path: s.path(name, metaExt), Err: err}
	}
	s.logger.Debug("Key deleted", "name", name)
	return nil
}

func (s *Dir) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, &keyfile.IOError{Op: "list", Path: s.root, Err: err}
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), pemExt)
		if ok && !e.IsDir() && ValidateName(name) == nil {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names, nil
}

// Close is a no-op.
func (s *Dir) Close() error { return nil }
