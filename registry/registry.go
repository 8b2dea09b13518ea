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

// Package registry dispatches key kinds to their JWK codecs.
//
// A Registry resolves a kind by consulting explicitly registered
// constructors first and falling back to the built-in RSA and EC codecs.
// This lets callers add custom key types, or replace a built-in, at run
// time:
//
//	reg := registry.New()
//	reg.Register(keymat.OKP, func() jwk.Codec { return jwk.OKP })
//	reg.Freeze()
//
//	codec, err := reg.Lookup(keymat.OKP)
//
// A Registry is safe for concurrent use. Populating it once at start-up and
// calling Freeze afterwards makes it read-only for the rest of its life.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/log"
)

// Constructor creates the codec for a key kind.
type Constructor func() jwk.Codec

// builtins resolve when no registered entry matches.
var builtins = map[keymat.Kind]Constructor{
	keymat.RSA: func() jwk.Codec { return jwk.RSA },
	keymat.EC:  func() jwk.Codec { return jwk.EC },
}

var (
	// ErrFrozen is returned when registering with a frozen registry.
	ErrFrozen = errors.New("registry is frozen")
	// ErrNilConstructor is returned when registering a nil constructor.
	ErrNilConstructor = errors.New("nil constructor")
)

// UnknownProviderError reports a kind that neither a registered entry nor a
// built-in codec resolves.
type UnknownProviderError struct {
	Kind keymat.Kind
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("no provider for key kind %q", e.Kind)
}

type config struct {
	logger *slog.Logger
	codecs map[keymat.Kind]Constructor
}

// Option configures a Registry.
type Option func(*config)

// WithLogger sets the logger used to report registrations. If nil is given,
// this option is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCodec registers ctor for kind when the registry is created.
func WithCodec(kind keymat.Kind, ctor Constructor) Option {
	return func(c *config) {
		if ctor != nil {
			c.codecs[kind] = ctor
		}
	}
}

// Registry maps key kinds to codec constructors.
type Registry struct {
	mu      sync.RWMutex
	entries map[keymat.Kind]Constructor
	frozen  bool
	logger  *slog.Logger
}

// New creates a registry that initially resolves only the built-in kinds and
// whatever WithCodec adds.
func New(opts ...Option) *Registry {
	c := config{
		logger: log.Discard(),
		codecs: make(map[keymat.Kind]Constructor),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return &Registry{
		entries: c.codecs,
		logger:  c.logger,
	}
}

// Register binds kind to ctor, replacing any earlier registration. Built-in
// kinds can be overridden this way.
func (r *Registry) Register(kind keymat.Kind, ctor Constructor) error {
	if ctor == nil {
		return ErrNilConstructor
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	_, replaced := r.entries[kind]
	r.entries[kind] = ctor
	r.logger.Debug("Codec registered", "kind", kind, "replaced", replaced)
	return nil
}

// Freeze makes the registry read-only. Subsequent calls to Register fail
// with ErrFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup returns the codec for kind. It returns an *UnknownProviderError if
// the kind cannot be resolved.
func (r *Registry) Lookup(kind keymat.Kind) (jwk.Codec, error) {
	r.mu.RLock()
	ctor, ok := r.entries[kind]
	r.mu.RUnlock()
	if !ok {
		ctor, ok = builtins[kind]
	}
	if !ok {
		return nil, &UnknownProviderError{Kind: kind}
	}
	return ctor(), nil
}

// Kinds returns every kind the registry resolves, sorted.
func (r *Registry) Kinds() []keymat.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := maps.Clone(builtins)
	maps.Copy(all, r.entries)
	return slices.Sorted(maps.Keys(all))
}

// JWK describes the key held by kp as a JWK.
func (r *Registry) JWK(kp *keymat.Keypair) (jwk.JWK, error) {
	d := kp.Detail()
	if d.IsZero() {
		return nil, &keymat.InvalidKeyMaterialError{Reason: "keypair has no detail"}
	}
	codec, err := r.Lookup(d.Kind)
	if err != nil {
		return nil, err
	}
	return codec.Describe(d)
}

// PEM rebuilds the PEM encoding of j using the codec registered for kind.
func (r *Registry) PEM(kind keymat.Kind, j jwk.JWK) (string, error) {
	codec, err := r.Lookup(kind)
	if err != nil {
		return "", err
	}
	return codec.PEM(j)
}

// Convert rebuilds the PEM encoding of j, deriving the kind from its "kty"
// member.
func (r *Registry) Convert(j jwk.JWK) (string, error) {
	kind, err := KindOf(j)
	if err != nil {
		return "", err
	}
	return r.PEM(kind, j)
}

// KindOf maps the "kty" member of j to a key kind. Unknown key types map to
// their lower-cased name so that custom registrations can pick them up.
func KindOf(j jwk.JWK) (keymat.Kind, error) {
	kty := j.Kty()
	if kty == "" {
		return "", jwk.ErrNoKty
	}
	return keymat.Kind(strings.ToLower(kty)), nil
}
