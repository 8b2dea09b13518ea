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
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/deep-rent/keykit/keymat"
)

// Padding selects the RSA encryption scheme.
type Padding uint8

const (
	PaddingPKCS1 Padding = iota // RSAES-PKCS1-v1_5, the default.
	PaddingOAEP                 // RSAES-OAEP with SHA-256 and an empty label.
)

// String returns the lower-case name of the padding.
func (p Padding) String() string {
	switch p {
	case PaddingOAEP:
		return "oaep"
	default:
		return "pkcs1"
	}
}

// ParsePadding converts "pkcs1" or "oaep" into a Padding, ignoring case.
func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(s) {
	case "", "pkcs1":
		return PaddingPKCS1, nil
	case "oaep":
		return PaddingOAEP, nil
	default:
		return 0, fmt.Errorf("invalid padding %q", s)
	}
}

// Encrypt encrypts data with the public key of kp. Only RSA keys support
// encryption; other kinds fail with ErrUnsupportedOperation.
func (p *Provider) Encrypt(kp *keymat.Keypair, data []byte, padding Padding) ([]byte, error) {
	if kp.Kind() != "" && kp.Kind() != keymat.RSA {
		return nil, ErrUnsupportedOperation
	}
	key, err := p.verifier(kp)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, ErrUnsupportedOperation
	}
	var out []byte
	switch padding {
	case PaddingOAEP:
		out, err = rsa.EncryptOAEP(sha256.New(), p.rand, pub, data, nil)
	default:
		out, err = rsa.EncryptPKCS1v15(p.rand, pub, data) //nolint:staticcheck
	}
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return out, nil
}

// Decrypt decrypts data with the private key of kp. Only RSA keys support
// decryption; other kinds fail with ErrUnsupportedOperation.
func (p *Provider) Decrypt(kp *keymat.Keypair, data []byte, padding Padding) ([]byte, error) {
	if kp.Kind() != "" && kp.Kind() != keymat.RSA {
		return nil, ErrUnsupportedOperation
	}
	s, err := p.signer(kp)
	if err != nil {
		return nil, err
	}
	priv, ok := s.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrUnsupportedOperation
	}
	var out []byte
	switch padding {
	case PaddingOAEP:
		out, err = rsa.DecryptOAEP(sha256.New(), p.rand, priv, data, nil)
	default:
		out, err = rsa.DecryptPKCS1v15(p.rand, priv, data) //nolint:staticcheck
	}
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return out, nil
}

// Base64Encrypt is like Encrypt but returns the ciphertext in standard
// base64.
func (p *Provider) Base64Encrypt(kp *keymat.Keypair, data []byte, padding Padding) (string, error) {
	out, err := p.Encrypt(kp, data, padding)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Base64Decrypt is like Decrypt but takes the ciphertext in standard base64.
func (p *Provider) Base64Decrypt(kp *keymat.Keypair, data string, padding Padding) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}
	return p.Decrypt(kp, raw, padding)
}
