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
	"bytes"
	"crypto"
	"crypto/x509"
	"fmt"
	"maps"

	"github.com/deep-rent/keykit/armor"
	"github.com/deep-rent/keykit/keymat"
)

// ParsePrivateKey parses the first private key block found in text. PKCS#1,
// SEC1 and PKCS#8 encodings are accepted, optionally protected with an RFC
// 1423 passphrase. The public key PEM of the result is derived from the
// private key.
func (p *Provider) ParsePrivateKey(text, passphrase string) (*keymat.Keypair, error) {
	block, ok := find(text, true)
	if !ok {
		return nil, &keymat.InvalidKeyMaterialError{Reason: "no private key block found"}
	}
	key, err := decodePrivate(block, passphrase)
	if err != nil {
		return nil, err
	}
	detail, err := privateDetail(key)
	if err != nil {
		return nil, err
	}
	pub, err := p.publicPEM(detail)
	if err != nil {
		return nil, err
	}
	return keymat.New(
		keymat.WithPublicKey(pub),
		keymat.WithPrivateKey(block.Text),
		keymat.WithPassphrase(passphrase),
		keymat.WithDetail(detail),
	)
}

// ParsePublicKey parses the first public key block found in text. SPKI and
// PKCS#1 encodings are accepted.
func (p *Provider) ParsePublicKey(text string) (*keymat.Keypair, error) {
	block, ok := find(text, false)
	if !ok {
		return nil, &keymat.InvalidKeyMaterialError{Reason: "no public key block found"}
	}
	key, err := decodePublic(block)
	if err != nil {
		return nil, err
	}
	detail, err := publicDetail(key)
	if err != nil {
		return nil, err
	}
	if _, err := p.reg.Lookup(detail.Kind); err != nil {
		return nil, err
	}
	return keymat.New(
		keymat.WithPublicKey(block.Text),
		keymat.WithDetail(detail),
	)
}

// Parse reads a key pair from text that may hold a private key block, a
// public key block, or both in any order. If both are present, the public
// key must belong to the private key.
func (p *Provider) Parse(text, passphrase string) (*keymat.Keypair, error) {
	priv, hasPrivate := find(text, true)
	pub, hasPublic := find(text, false)
	switch {
	case hasPrivate && hasPublic:
		kp, err := p.ParsePrivateKey(priv.Text, passphrase)
		if err != nil {
			return nil, err
		}
		other, err := p.ParsePublicKey(pub.Text)
		if err != nil {
			return nil, err
		}
		if !sameKey(kp.Detail().Public(), other.Detail()) {
			return nil, &keymat.InvalidKeyMaterialError{
				Reason: "public key does not belong to private key",
			}
		}
		if err := kp.SetPublicKey(pub.Text); err != nil {
			return nil, err
		}
		return kp, nil
	case hasPrivate:
		return p.ParsePrivateKey(priv.Text, passphrase)
	case hasPublic:
		return p.ParsePublicKey(pub.Text)
	default:
		return nil, &keymat.InvalidKeyMaterialError{Reason: "no key block found"}
	}
}

// publicPEM renders the public key PEM for a key detail.
func (p *Provider) publicPEM(detail keymat.Detail) (string, error) {
	codec, err := p.reg.Lookup(detail.Kind)
	if err != nil {
		return "", err
	}
	j, err := codec.Describe(detail.Public())
	if err != nil {
		return "", fmt.Errorf("describe key: %w", err)
	}
	return codec.PEM(j)
}

// signer decodes the private key held by kp.
func (p *Provider) signer(kp *keymat.Keypair) (crypto.Signer, error) {
	if !kp.HasPrivate() {
		return nil, ErrNoPrivateKey
	}
	block, ok := find(kp.PrivateKey(), true)
	if !ok {
		return nil, ErrNoPrivateKey
	}
	key, err := decodePrivate(block, kp.Passphrase())
	if err != nil {
		return nil, err
	}
	s, ok := key.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("%w: private key of type %T", ErrUnsupportedFormat, key)
	}
	return s, nil
}

// verifier decodes the public key held by kp.
func (p *Provider) verifier(kp *keymat.Keypair) (crypto.PublicKey, error) {
	if !kp.HasPublic() {
		return nil, ErrNoPublicKey
	}
	block, ok := find(kp.PublicKey(), false)
	if !ok {
		return nil, ErrNoPublicKey
	}
	return decodePublic(block)
}

// find returns the first private or public key block in text.
func find(text string, private bool) (armor.Block, bool) {
	for _, b := range armor.Split(text) {
		if private && b.Private() || !private && armor.IsPublic(b.Label) {
			return b, true
		}
	}
	return armor.Block{}, false
}

func decodePrivate(block armor.Block, passphrase string) (crypto.PrivateKey, error) {
	b, err := block.Decode()
	if err != nil {
		return nil, err
	}
	der := b.Bytes
	if x509.IsEncryptedPEMBlock(b) { //nolint:staticcheck
		if passphrase == "" {
			return nil, ErrPassphraseRequired
		}
		der, err = x509.DecryptPEMBlock(b, []byte(passphrase)) //nolint:staticcheck
		if err != nil {
			return nil, fmt.Errorf("decrypt private key: %w", err)
		}
	}
	switch b.Type {
	case armor.LabelRSAPrivateKey:
		key, err := x509.ParsePKCS1PrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 key: %w", err)
		}
		return key, nil
	case armor.LabelECPrivateKey:
		key, err := x509.ParseECPrivateKey(der)
		if err != nil {
			return nil, fmt.Errorf("parse SEC1 key: %w", err)
		}
		return key, nil
	case armor.LabelPrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(der)
		if err == nil {
			return key, nil
		}
		if k, e := parseEd448PrivateKey(der); e == nil {
			return k, nil
		}
		return nil, fmt.Errorf("parse PKCS#8 key: %w", err)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, b.Type)
	}
}

func decodePublic(block armor.Block) (crypto.PublicKey, error) {
	b, err := block.Decode()
	if err != nil {
		return nil, err
	}
	switch b.Type {
	case armor.LabelRSAPublicKey:
		key, err := x509.ParsePKCS1PublicKey(b.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse PKCS#1 public key: %w", err)
		}
		return key, nil
	case armor.LabelPublicKey:
		key, err := x509.ParsePKIXPublicKey(b.Bytes)
		if err == nil {
			return key, nil
		}
		if k, e := parseEd448PublicKey(b.Bytes); e == nil {
			return k, nil
		}
		return nil, fmt.Errorf("parse public key: %w", err)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, b.Type)
	}
}

func sameKey(a, b keymat.Detail) bool {
	return a.Kind == b.Kind && maps.EqualFunc(a.Fields, b.Fields, bytes.Equal)
}
