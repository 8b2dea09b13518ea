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
	"crypto/rsa"
	_ "crypto/sha1" // register SHA-1
	_ "crypto/sha256"
	_ "crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"strings"
	"sync"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/deep-rent/keykit/keymat"
)

// DefaultHash is the digest used when a zero crypto.Hash is passed.
const DefaultHash = crypto.SHA256

// hashNames maps lower-case digest names to their hash.
var hashNames = map[string]crypto.Hash{
	"sha1":   crypto.SHA1,
	"sha224": crypto.SHA224,
	"sha256": crypto.SHA256,
	"sha384": crypto.SHA384,
	"sha512": crypto.SHA512,
}

// ParseHash converts a digest name such as "sha384" into a crypto.Hash. It
// is case-insensitive and ignores dashes, so "SHA-384" is accepted too.
func ParseHash(name string) (crypto.Hash, error) {
	h, ok := hashNames[strings.ReplaceAll(strings.ToLower(name), "-", "")]
	if !ok {
		return 0, fmt.Errorf("unsupported hash %q", name)
	}
	return h, nil
}

// hashPools recycles hashers, one pool per supported digest.
var hashPools = func() map[crypto.Hash]*sync.Pool {
	m := make(map[crypto.Hash]*sync.Pool, len(hashNames))
	for _, h := range hashNames {
		m[h] = &sync.Pool{New: func() any { return h.New() }}
	}
	return m
}()

// digest hashes msg with h, falling back to DefaultHash for a zero h.
func digest(h crypto.Hash, msg []byte) (crypto.Hash, []byte, error) {
	if h == 0 {
		h = DefaultHash
	}
	pool, ok := hashPools[h]
	if !ok {
		return 0, nil, fmt.Errorf("unsupported hash %s", h)
	}
	w := pool.Get().(hash.Hash)
	defer func() {
		w.Reset()
		pool.Put(w)
	}()
	w.Write(msg)
	return h, w.Sum(nil), nil
}

// Sign signs msg with the private key of kp. RSA keys produce PKCS#1 v1.5
// signatures and EC keys ASN.1 DER encoded ECDSA signatures over the digest
// of msg. EdDSA keys sign msg directly and ignore h.
func (p *Provider) Sign(kp *keymat.Keypair, msg []byte, h crypto.Hash) ([]byte, error) {
	s, err := p.signer(kp)
	if err != nil {
		return nil, err
	}
	switch s.(type) {
	case ed25519.PrivateKey, ed448.PrivateKey:
		sig, err := s.Sign(p.rand, msg, crypto.Hash(0))
		if err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}
		return sig, nil
	}
	h, sum, err := digest(h, msg)
	if err != nil {
		return nil, err
	}
	sig, err := s.Sign(p.rand, sum, h)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return sig, nil
}

// Verify checks sig against msg with the public key of kp. A signature that
// does not match yields false and no error.
func (p *Provider) Verify(kp *keymat.Keypair, msg, sig []byte, h crypto.Hash) (bool, error) {
	key, err := p.verifier(kp)
	if err != nil {
		return false, err
	}
	switch k := key.(type) {
	case ed25519.PublicKey:
		return ed25519.Verify(k, msg, sig), nil
	case ed448.PublicKey:
		// Pure EdDSA uses an empty context.
		return ed448.Verify(k, msg, sig, ""), nil
	}
	h, sum, err := digest(h, msg)
	if err != nil {
		return false, err
	}
	switch k := key.(type) {
	case *rsa.PublicKey:
		return rsa.VerifyPKCS1v15(k, h, sum, sig) == nil, nil
	case *ecdsa.PublicKey:
		return ecdsa.VerifyASN1(k, sum, sig), nil
	default:
		return false, fmt.Errorf("%w: public key of type %T", ErrUnsupportedFormat, key)
	}
}

// Base64Sign is like Sign but returns the signature in standard base64.
func (p *Provider) Base64Sign(kp *keymat.Keypair, msg []byte, h crypto.Hash) (string, error) {
	sig, err := p.Sign(kp, msg, h)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Base64Verify is like Verify but takes the signature in standard base64.
func (p *Provider) Base64Verify(kp *keymat.Keypair, msg []byte, sig string, h crypto.Hash) (bool, error) {
	raw, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	return p.Verify(kp, msg, raw, h)
}
