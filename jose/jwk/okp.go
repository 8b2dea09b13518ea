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

package jwk

import (
	"fmt"

	"github.com/deep-rent/keykit/armor"
	"github.com/deep-rent/keykit/der"
	"github.com/deep-rent/keykit/keymat"
)

// Edwards describes an Edwards curve supported by the OKP codec.
type Edwards struct {
	// Crv is the JWK "crv" value, which doubles as the curve name in key
	// details.
	Crv string
	// PublicSize is the byte length of the encoded public key.
	PublicSize int
	// SeedSize is the byte length of the private key seed.
	SeedSize int
	// OID holds the pre-encoded arcs of the algorithm identifier.
	OID []byte
}

var edwards = map[string]Edwards{
	"Ed25519": {Crv: "Ed25519", PublicSize: 32, SeedSize: 32, OID: der.OIDEd25519},
	"Ed448":   {Crv: "Ed448", PublicSize: 57, SeedSize: 57, OID: der.OIDEd448},
}

// EdwardsByCrv looks up an Edwards curve by its JWK "crv" value.
func EdwardsByCrv(crv string) (Edwards, error) {
	c, ok := edwards[crv]
	if !ok {
		return Edwards{}, &UnsupportedCurveError{Curve: crv}
	}
	return c, nil
}

// OKP is the codec for octet key pairs holding EdDSA keys (RFC 8037).
var OKP Codec = okpCodec{}

type okpCodec struct{}

func (okpCodec) Kty() string { return KtyOKP }

func (okpCodec) Describe(d keymat.Detail) (JWK, error) {
	if err := check(d, keymat.OKP); err != nil {
		return nil, err
	}
	c, err := EdwardsByCrv(d.Curve())
	if err != nil {
		return nil, err
	}
	j := JWK{"kty": KtyOKP, "crv": c.Crv}
	describe(j, d,
		keymat.FieldX, "x",
		keymat.FieldD, "d",
	)
	return j, nil
}

func (okpCodec) PEM(j JWK) (string, error) {
	if err := need(j, KtyOKP, "crv", "x"); err != nil {
		return "", err
	}
	c, err := EdwardsByCrv(j["crv"])
	if err != nil {
		return "", err
	}
	x, err := sized(j, "x", c.PublicSize)
	if err != nil {
		return "", err
	}
	alg := der.Sequence(der.OID(c.OID))
	if j.Private() {
		seed, err := sized(j, "d", c.SeedSize)
		if err != nil {
			return "", err
		}
		pkcs8 := der.Sequence(
			der.Integer(nil), // version
			alg,
			der.OctetString(der.OctetString(seed)),
		)
		return armor.Wrap(pkcs8, armor.LabelPrivateKey), nil
	}
	spki := der.Sequence(alg, der.BitString(x))
	return armor.Wrap(spki, armor.LabelPublicKey), nil
}

// sized decodes the named member and enforces its exact length.
func sized(j JWK, name string, n int) ([]byte, error) {
	b, err := member(j, name)
	if err != nil {
		return nil, err
	}
	if len(b) != n {
		return nil, &keymat.InvalidKeyMaterialError{
			Reason: fmt.Sprintf(
				"illegal size of %s for %s curve: got %d, want %d",
				name, j["crv"], len(b), n,
			),
		}
	}
	return b, nil
}
