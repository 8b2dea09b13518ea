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
	"encoding/asn1"
	"errors"

	"github.com/cloudflare/circl/sign/ed448"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// crypto/x509 does not know Ed448, so its PKCS#8 and SPKI structures are
// read by hand.

var oidEd448 = asn1.ObjectIdentifier{1, 3, 101, 113}

var errNotEd448 = errors.New("not an Ed448 key")

// parseEd448PrivateKey reads a PKCS#8 PrivateKeyInfo (RFC 8410) holding an
// Ed448 seed.
func parseEd448PrivateKey(der []byte) (ed448.PrivateKey, error) {
	var (
		input   = cryptobyte.String(der)
		info    cryptobyte.String
		alg     cryptobyte.String
		outer   cryptobyte.String
		seed    cryptobyte.String
		version int64
		oid     asn1.ObjectIdentifier
	)
	if !input.ReadASN1(&info, cbasn1.SEQUENCE) || !input.Empty() ||
		!info.ReadASN1Integer(&version) ||
		!info.ReadASN1(&alg, cbasn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&oid) ||
		!info.ReadASN1(&outer, cbasn1.OCTET_STRING) ||
		!outer.ReadASN1(&seed, cbasn1.OCTET_STRING) || !outer.Empty() {
		return nil, errNotEd448
	}
	// Version 1 may carry attributes and the public key after the seed.
	if (version != 0 && version != 1) || !oid.Equal(oidEd448) || !alg.Empty() {
		return nil, errNotEd448
	}
	if len(seed) != ed448.SeedSize {
		return nil, errNotEd448
	}
	return ed448.NewKeyFromSeed(seed), nil
}

// parseEd448PublicKey reads a SubjectPublicKeyInfo holding an Ed448 key.
func parseEd448PublicKey(der []byte) (ed448.PublicKey, error) {
	var (
		input = cryptobyte.String(der)
		spki  cryptobyte.String
		alg   cryptobyte.String
		oid   asn1.ObjectIdentifier
		bits  asn1.BitString
	)
	if !input.ReadASN1(&spki, cbasn1.SEQUENCE) || !input.Empty() ||
		!spki.ReadASN1(&alg, cbasn1.SEQUENCE) ||
		!alg.ReadASN1ObjectIdentifier(&oid) || !alg.Empty() ||
		!spki.ReadASN1BitString(&bits) || !spki.Empty() {
		return nil, errNotEd448
	}
	if !oid.Equal(oidEd448) || bits.BitLength != 8*ed448.PublicKeySize {
		return nil, errNotEd448
	}
	return ed448.PublicKey(bits.Bytes), nil
}
