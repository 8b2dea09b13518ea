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

// Package jwk transcodes asymmetric key material between its decomposed
// numeric form and JSON Web Keys (RFC 7517), and rebuilds native PEM
// encodings from a JWK.
//
// # Codecs
//
// Each supported key type has a stateless Codec. Describe turns a
// keymat.Detail into a JWK, and PEM rebuilds the DER structure from a JWK
// and armors it:
//
//   - RSA keys become PKCS#1 "RSA PRIVATE KEY" or SPKI "PUBLIC KEY" blocks.
//   - EC keys become SEC1 "EC PRIVATE KEY" or SPKI "PUBLIC KEY" blocks.
//   - OKP keys (Ed25519, Ed448) become PKCS#8 "PRIVATE KEY" or SPKI blocks.
//
// A JWK carrying "d" is always treated as private. Partial private material
// is rejected with a *MissingFieldError rather than silently downgraded to a
// public key.
//
// # Encoding
//
// A JWK is a flat map of string members. Marshal, Unmarshal, MarshalSet and
// UnmarshalSet convert between that map and its JSON document.
package jwk

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/deep-rent/keykit/base64url"
	"github.com/deep-rent/keykit/keymat"
)

// Key type discriminants for the "kty" member.
const (
	KtyRSA = "RSA"
	KtyEC  = "EC"
	KtyOKP = "OKP"
)

// JWK is a JSON Web Key in its flat map form. Binary members hold base64url
// text without padding.
type JWK map[string]string

// Kty returns the "kty" member.
func (j JWK) Kty() string { return j["kty"] }

// Private reports whether the key carries private material.
func (j JWK) Private() bool {
	_, ok := j["d"]
	return ok
}

// Public returns a copy of the key with all private members removed.
func (j JWK) Public() JWK {
	out := make(JWK, len(j))
	for k, v := range j {
		if !privateMembers[k] {
			out[k] = v
		}
	}
	return out
}

// privateMembers lists the members that RFC 7518 marks as private.
var privateMembers = map[string]bool{
	"d": true, "p": true, "q": true, "dp": true, "dq": true, "qi": true,
	"oth": true,
}

// Codec converts between key details and JWKs for one key type.
type Codec interface {
	// Kty returns the JWK key type handled by the codec.
	Kty() string
	// Describe builds a JWK from a key detail. Private members are emitted
	// only when the detail holds private material.
	Describe(d keymat.Detail) (JWK, error)
	// PEM rebuilds the DER structure of the key and armors it.
	PEM(j JWK) (string, error)
}

// MissingFieldError reports a JWK that lacks members required for the
// requested key type and visibility.
type MissingFieldError struct {
	Kty    string
	Fields []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf(
		"%s key lacks required members: %s", e.Kty, strings.Join(e.Fields, ", "),
	)
}

// UnsupportedCurveError reports a curve outside the fixed curve tables.
type UnsupportedCurveError struct {
	Curve string
}

func (e *UnsupportedCurveError) Error() string {
	return fmt.Sprintf("unsupported curve %q", e.Curve)
}

// need returns a *MissingFieldError naming every absent member, in the
// order given.
func need(j JWK, kty string, names ...string) error {
	var missing []string
	for _, name := range names {
		if j[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldError{Kty: kty, Fields: missing}
	}
	return nil
}

// member decodes the named base64url member.
func member(j JWK, name string) ([]byte, error) {
	b, err := base64url.Decode(j[name], true)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return b, nil
}

// members decodes several base64url members at once.
func members(j JWK, names ...string) ([][]byte, error) {
	out := make([][]byte, len(names))
	for i, name := range names {
		b, err := member(j, name)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// unsigned strips redundant leading zero octets so that the value encodes
// as a minimal DER INTEGER.
func unsigned(b []byte) []byte {
	return bytes.TrimLeft(b, "\x00")
}

// leftPad returns b left-padded with zeros to exactly n bytes. It fails if b
// is longer than n after stripping leading zeros.
func leftPad(b []byte, n int, name string) ([]byte, error) {
	b = unsigned(b)
	if len(b) > n {
		return nil, &keymat.InvalidKeyMaterialError{
			Reason: fmt.Sprintf("%s is %d bytes long, exceeds %d", name, len(b), n),
		}
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out, nil
}

// check validates d and makes sure it describes a key of the given kind.
func check(d keymat.Detail, kind keymat.Kind) error {
	if d.Kind != kind {
		return &keymat.InvalidKeyMaterialError{
			Reason: fmt.Sprintf("expected %s key detail, got %q", kind, d.Kind),
		}
	}
	return d.Validate()
}

// describe copies the named detail fields into j, base64url-encoded, using
// the JWK member names given in pairs of (field, member).
func describe(j JWK, d keymat.Detail, pairs ...string) {
	for i := 0; i+1 < len(pairs); i += 2 {
		if v, ok := d.Get(pairs[i]); ok {
			j[pairs[i+1]] = base64url.Encode(v)
		}
	}
}
