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

// Package provider is a software crypto provider for keymat.Keypair values.
//
// It generates RSA, EC and EdDSA key pairs, parses PEM text into key pairs
// with a full key detail, and runs the basic private and public key
// operations: signing and verification for every kind, encryption and
// decryption for RSA keys.
//
// The provider never encodes key structures itself. PEM text for generated
// and parsed keys is rebuilt from the key detail by the JWK codec that the
// registry resolves for the key kind, so a kind is only usable once the
// registry knows it:
//
//	reg := registry.New(registry.WithCodec(keymat.OKP, func() jwk.Codec {
//		return jwk.OKP
//	}))
//	p := provider.New(reg)
//	kp, err := p.Generate(keymat.OKP, provider.GenerateOptions{Curve: "Ed448"})
package provider

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/deep-rent/keykit/log"
	"github.com/deep-rent/keykit/registry"
)

var (
	// ErrUnsupportedOperation is returned for operations that the key kind
	// cannot perform, such as encrypting with an EC key.
	ErrUnsupportedOperation = errors.New("operation not supported for this key type")
	// ErrNoPrivateKey is returned when an operation needs a private key that
	// the key pair does not hold.
	ErrNoPrivateKey = errors.New("no private key provided")
	// ErrNoPublicKey is returned when an operation needs a public key that
	// the key pair does not hold.
	ErrNoPublicKey = errors.New("no public key provided")
	// ErrPassphraseRequired is returned when an encrypted private key is
	// parsed without a passphrase.
	ErrPassphraseRequired = errors.New("private key is encrypted but no passphrase provided")
	// ErrUnsupportedFormat is returned for PEM blocks the provider cannot
	// parse.
	ErrUnsupportedFormat = errors.New("unsupported key format")
)

type config struct {
	logger *slog.Logger
	rand   io.Reader
}

// Option configures a Provider.
type Option func(*config)

// WithLogger sets the logger. If nil is given, this option is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRand sets the source of randomness used for key generation, signing,
// encryption and passphrase protection. If nil is given, this option is
// ignored and crypto/rand.Reader is used.
func WithRand(r io.Reader) Option {
	return func(c *config) {
		if r != nil {
			c.rand = r
		}
	}
}

// Provider performs key operations in software. It is safe for concurrent
// use as long as its registry is.
type Provider struct {
	reg    *registry.Registry
	logger *slog.Logger
	rand   io.Reader
}

// New creates a provider that renders PEM text with the codecs of reg.
func New(reg *registry.Registry, opts ...Option) *Provider {
	c := config{
		logger: log.Discard(),
		rand:   rand.Reader,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if reg == nil {
		reg = registry.New()
	}
	return &Provider{
		reg:    reg,
		logger: c.logger,
		rand:   c.rand,
	}
}

// Registry returns the registry the provider resolves codecs from.
func (p *Provider) Registry() *registry.Registry { return p.reg }

// ResolvePassphrase resolves a passphrase given as "env:NAME" from the
// environment variable NAME. Any other value is returned as is.
func ResolvePassphrase(passphrase string) (string, error) {
	name, ok := strings.CutPrefix(passphrase, "env:")
	if !ok {
		return passphrase, nil
	}
	if name == "" {
		return "", errors.New("empty environment variable name")
	}
	v, ok := os.LookupEnv(name)
	if !ok {
		return "", fmt.Errorf("environment variable %q is not set", name)
	}
	return v, nil
}
