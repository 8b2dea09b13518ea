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

// Package keystore keeps key pairs under a name.
//
// A Store persists the PEM text and the key detail of a key pair. The
// passphrase of an encrypted private key is never stored; callers supply it
// again when they use the key.
//
// Two backends exist: a directory store in this package, and a PostgreSQL
// store in the postgres subpackage.
package keystore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/deep-rent/keykit/base64url"
	"github.com/deep-rent/keykit/keymat"
	"github.com/goccy/go-json"
)

var (
	// ErrNotFound is returned when no key pair is stored under a name.
	ErrNotFound = errors.New("key not found")
	// ErrExists is returned when a name is taken and overwriting was not
	// permitted.
	ErrExists = errors.New("key already exists")
	// ErrInvalidName is returned for names that cannot be used as keys.
	ErrInvalidName = errors.New("invalid key name")
)

// Store keeps key pairs under unique names. Implementations are safe for
// concurrent use.
type Store interface {
	// Put stores kp under name. It fails with ErrExists if the name is taken,
	// unless overwrite is set.
	Put(ctx context.Context, name string, kp *keymat.Keypair, overwrite bool) error
	// Get loads the key pair stored under name, or fails with ErrNotFound.
	Get(ctx context.Context, name string) (*keymat.Keypair, error)
	// Delete removes the key pair stored under name, or fails with
	// ErrNotFound.
	Delete(ctx context.Context, name string) error
	// List returns all stored names in ascending order.
	List(ctx context.Context) ([]string, error)
	// Close releases the resources held by the store.
	Close() error
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateName checks that name consists of letters, digits, dots,
// underscores and dashes, starts with a letter or digit, and is at most 128
// characters long.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// MarshalDetail encodes the fields of d as a JSON object of base64url
// strings.
func MarshalDetail(d keymat.Detail) ([]byte, error) {
	fields := make(map[string]string, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = base64url.Encode(v)
	}
	return json.Marshal(fields)
}

// UnmarshalDetail decodes a detail written by MarshalDetail.
func UnmarshalDetail(kind keymat.Kind, data []byte) (keymat.Detail, error) {
	var fields map[string]string
	if err := json.Unmarshal(data, &fields); err != nil {
		return keymat.Detail{}, fmt.Errorf("decode detail: %w", err)
	}
	d := keymat.Detail{Kind: kind, Fields: make(map[string][]byte, len(fields))}
	for k, v := range fields {
		b, err := base64url.Decode(v, true)
		if err != nil {
			return keymat.Detail{}, fmt.Errorf("decode detail field %s: %w", k, err)
		}
		d.Fields[k] = b
	}
	return d, nil
}

// Restore rebuilds a key pair from its stored parts. Empty PEM text and a
// zero detail are skipped.
func Restore(public, private string, d keymat.Detail) (*keymat.Keypair, error) {
	opts := []keymat.Option{
		keymat.WithPublicKey(public),
		keymat.WithPrivateKey(private),
	}
	if !d.IsZero() {
		opts = append(opts, keymat.WithDetail(d))
	}
	return keymat.New(opts...)
}
