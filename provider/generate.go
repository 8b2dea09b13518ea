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

package provider

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keymat"
)

// Defaults applied by Generate.
const (
	DefaultBits      = 2048
	DefaultCurve     = "prime256v1"
	DefaultOKPCurve  = "Ed25519"
	DefaultPEMCipher = x509.PEMCipherAES256
)

// GenerateOptions parameterizes key generation. Zero values select the
// defaults.
type GenerateOptions struct {
	// Bits is the RSA modulus size.
	Bits int
	// Curve names the curve of an EC key (for example "secp384r1") or an OKP
	// key ("Ed25519" or "Ed448").
	Curve string
	// Passphrase, if set, encrypts the private key PEM.
	Passphrase string
}

// ellipticCurves maps JWK "crv" values to their Go implementation.
var ellipticCurves = map[string]elliptic.Curve{
	"P-256": elliptic.P256(),
	"P-384": elliptic.P384(),
	"P-521": elliptic.P521(),
}

// Generate creates a new key pair of the given kind. The returned key pair
// holds both PEM encodings, the passphrase (if any) and the full key detail.
func (p *Provider) Generate(kind keymat.Kind, opts GenerateOptions) (*keymat.Keypair, error) {
	codec, err := p.reg.Lookup(kind)
	if err != nil {
		return nil, err
	}
	key, err := p.generate(kind, opts)
	if err != nil {
		return nil, err
	}
	detail, err := privateDetail(key)
	if err != nil {
		return nil, err
	}
	kp, err := p.render(codec, detail, opts.Passphrase)
	if err != nil {
		return nil, err
	}
	p.logger.Debug(
		"Key pair generated",
		"kind", kind,
		"curve", detail.Curve(),
		"encrypted", opts.Passphrase != "",
	)
	return kp, nil
}

func (p *Provider) generate(kind keymat.Kind, opts GenerateOptions) (crypto.PrivateKey, error) {
	switch kind {
	case keymat.RSA:
		bits := opts.Bits
		if bits == 0 {
			bits = DefaultBits
		}
		key, err := rsa.GenerateKey(p.rand, bits)
		if err != nil {
			return nil, fmt.Errorf("generate RSA key: %w", err)
		}
		return key, nil
	case keymat.EC:
		name := opts.Curve
		if name == "" {
			name = DefaultCurve
		}
		c, err := jwk.CurveByName(name)
		if err != nil {
			return nil, err
		}
		key, err := ecdsa.GenerateKey(ellipticCurves[c.Crv], p.rand)
		if err != nil {
			return nil, fmt.Errorf("generate EC key: %w", err)
		}
		return key, nil
	case keymat.OKP:
		crv := opts.Curve
		if crv == "" {
			crv = DefaultOKPCurve
		}
		if _, err := jwk.EdwardsByCrv(crv); err != nil {
			return nil, err
		}
		if crv == "Ed448" {
			_, key, err := ed448.GenerateKey(p.rand)
			if err != nil {
				return nil, fmt.Errorf("generate Ed448 key: %w", err)
			}
			return key, nil
		}
		_, key, err := ed25519.GenerateKey(p.rand)
		if err != nil {
			return nil, fmt.Errorf("generate Ed25519 key: %w", err)
		}
		return key, nil
	default:
		return nil, fmt.Errorf("%w: cannot generate %s keys", ErrUnsupportedOperation, kind)
	}
}

// render builds a key pair from a private key detail, rendering both PEM
// encodings with codec.
func (p *Provider) render(codec jwk.Codec, detail keymat.Detail, passphrase string) (*keymat.Keypair, error) {
	j, err := codec.Describe(detail)
	if err != nil {
		return nil, fmt.Errorf("describe key: %w", err)
	}
	pub, err := codec.PEM(j.Public())
	if err != nil {
		return nil, fmt.Errorf("encode public key: %w", err)
	}
	priv, err := codec.PEM(j)
	if err != nil {
		return nil, fmt.Errorf("encode private key: %w", err)
	}
	if passphrase != "" {
		if priv, err = p.encrypt(priv, passphrase); err != nil {
			return nil, err
		}
	}
	return keymat.New(
		keymat.WithPublicKey(pub),
		keymat.WithPrivateKey(priv),
		keymat.WithPassphrase(passphrase),
		keymat.WithDetail(detail),
	)
}

// encrypt protects a private key PEM with an RFC 1423 passphrase.
func (p *Provider) encrypt(text, passphrase string) (string, error) {
	b, _ := pem.Decode([]byte(text))
	if b == nil {
		return "", ErrUnsupportedFormat
	}
	b, err := x509.EncryptPEMBlock( //nolint:staticcheck
		p.rand, b.Type, b.Bytes, []byte(passphrase), DefaultPEMCipher,
	)
	if err != nil {
		return "", fmt.Errorf("encrypt private key: %w", err)
	}
	return string(pem.EncodeToMemory(b)), nil
}
