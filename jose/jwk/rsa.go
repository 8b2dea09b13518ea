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
	"github.com/deep-rent/keykit/armor"
	"github.com/deep-rent/keykit/der"
	"github.com/deep-rent/keykit/keymat"
)

// RSA is the codec for RSA keys.
var RSA Codec = rsaCodec{}

// rsaPrivate lists the members of a private RSA JWK in DER order.
var rsaPrivate = []string{"n", "e", "d", "p", "q", "dp", "dq", "qi"}

type rsaCodec struct{}

func (rsaCodec) Kty() string { return KtyRSA }

func (rsaCodec) Describe(d keymat.Detail) (JWK, error) {
	if err := check(d, keymat.RSA); err != nil {
		return nil, err
	}
	j := JWK{"kty": KtyRSA}
	describe(j, d,
		keymat.FieldN, "n",
		keymat.FieldE, "e",
	)
	if d.Private() {
		describe(j, d,
			keymat.FieldD, "d",
			keymat.FieldP, "p",
			keymat.FieldQ, "q",
			keymat.FieldDmp1, "dp",
			keymat.FieldDmq1, "dq",
			keymat.FieldIqmp, "qi",
		)
	}
	return j, nil
}

func (rsaCodec) PEM(j JWK) (string, error) {
	if j.Private() {
		if err := need(j, KtyRSA, rsaPrivate...); err != nil {
			return "", err
		}
		vals, err := members(j, rsaPrivate...)
		if err != nil {
			return "", err
		}
		ints := make([][]byte, 0, len(vals)+1)
		ints = append(ints, der.Integer(nil)) // version
		for _, v := range vals {
			ints = append(ints, der.Integer(unsigned(v)))
		}
		return armor.Wrap(der.Sequence(ints...), armor.LabelRSAPrivateKey), nil
	}
	if err := need(j, KtyRSA, "n", "e"); err != nil {
		return "", err
	}
	vals, err := members(j, "n", "e")
	if err != nil {
		return "", err
	}
	pub := der.Sequence(
		der.Integer(unsigned(vals[0])),
		der.Integer(unsigned(vals[1])),
	)
	spki := der.Sequence(
		der.Sequence(der.OID(der.OIDRSAEncryption), der.Null()),
		der.BitString(pub),
	)
	return armor.Wrap(spki, armor.LabelPublicKey), nil
}
