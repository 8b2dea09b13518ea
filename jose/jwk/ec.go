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
	"maps"
	"slices"

	"github.com/deep-rent/keykit/armor"
	"github.com/deep-rent/keykit/der"
	"github.com/deep-rent/keykit/keymat"
)

// Curve describes a named elliptic curve supported by the EC codec.
type Curve struct {
	// Crv is the JWK "crv" value, such as "P-256".
	Crv string
	// Name is the canonical curve name used in key details.
	Name string
	// Size is the byte length of a coordinate or private scalar.
	Size int
	// OID holds the pre-encoded arcs of the named curve identifier.
	OID []byte
}

var (
	p256 = Curve{Crv: "P-256", Name: "prime256v1", Size: 32, OID: der.OIDP256}
	p384 = Curve{Crv: "P-384", Name: "secp384r1", Size: 48, OID: der.OIDP384}
	p521 = Curve{Crv: "P-521", Name: "secp521r1", Size: 66, OID: der.OIDP521}
)

// curveNames maps every accepted curve name to its curve.
var curveNames = map[string]Curve{
	"secp256r1":  p256,
	"prime256v1": p256,
	"secp384r1":  p384,
	"secp521r1":  p521,
}

// curveCrvs maps JWK "crv" values to their curve.
var curveCrvs = map[string]Curve{
	p256.Crv: p256,
	p384.Crv: p384,
	p521.Crv: p521,
}

// CurveByName looks up a curve by the name used in key details.
func CurveByName(name string) (Curve, error) {
	c, ok := curveNames[name]
	if !ok {
		return Curve{}, &UnsupportedCurveError{Curve: name}
	}
	return c, nil
}

// CurveByCrv looks up a curve by its JWK "crv" value.
func CurveByCrv(crv string) (Curve, error) {
	c, ok := curveCrvs[crv]
	if !ok {
		return Curve{}, &UnsupportedCurveError{Curve: crv}
	}
	return c, nil
}

// CurveNames returns all accepted curve names in sorted order.
func CurveNames() []string {
	return slices.Sorted(maps.Keys(curveNames))
}

// EC is the codec for elliptic curve keys over the NIST prime curves.
//
// Private keys are written as SEC1 ECPrivateKey structures. The private
// scalar d is left-padded with zeros to the curve size as RFC 5915 requires,
// so a JWK with a short d does not yield the unpadded OCTET STRING that a
// plain copy of its bytes would. Coordinates or a d longer than the curve
// size are rejected.
var EC Codec = ecCodec{}

type ecCodec struct{}

func (ecCodec) Kty() string { return KtyEC }

func (ecCodec) Describe(d keymat.Detail) (JWK, error) {
	if err := check(d, keymat.EC); err != nil {
		return nil, err
	}
	c, err := CurveByName(d.Curve())
	if err != nil {
		return nil, err
	}
	j := JWK{"kty": KtyEC, "crv": c.Crv}
	describe(j, d,
		keymat.FieldX, "x",
		keymat.FieldY, "y",
		keymat.FieldD, "d",
	)
	return j, nil
}

func (ecCodec) PEM(j JWK) (string, error) {
	if err := need(j, KtyEC, "crv", "x", "y"); err != nil {
		return "", err
	}
	c, err := CurveByCrv(j["crv"])
	if err != nil {
		return "", err
	}
	point, err := ecPoint(j, c)
	if err != nil {
		return "", err
	}
	if j.Private() {
		raw, err := member(j, "d")
		if err != nil {
			return "", err
		}
		d, err := leftPad(raw, c.Size, "d")
		if err != nil {
			return "", err
		}
		sec1 := der.Sequence(
			der.Integer([]byte{0x01}), // version
			der.OctetString(d),
			der.Tagged(0, der.OID(c.OID)),
			der.Tagged(1, der.BitString(point)),
		)
		return armor.Wrap(sec1, armor.LabelECPrivateKey), nil
	}
	spki := der.Sequence(
		der.Sequence(der.OID(der.OIDECPublicKey), der.OID(c.OID)),
		der.BitString(point),
	)
	return armor.Wrap(spki, armor.LabelPublicKey), nil
}

// ecPoint builds the uncompressed point 04 || x || y with both coordinates
// left-padded to the curve size.
func ecPoint(j JWK, c Curve) ([]byte, error) {
	vals, err := members(j, "x", "y")
	if err != nil {
		return nil, err
	}
	point := make([]byte, 0, 1+2*c.Size)
	point = append(point, 0x04)
	for i, name := range []string{"x", "y"} {
		v, err := leftPad(vals[i], c.Size, name)
		if err != nil {
			return nil, err
		}
		point = append(point, v...)
	}
	return point, nil
}
