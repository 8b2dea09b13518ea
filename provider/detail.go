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
	"fmt"
	"math/big"

	"github.com/cloudflare/circl/sign/ed448"
	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keymat"
)

// privateDetail decomposes a private key into its key detail.
func privateDetail(key crypto.PrivateKey) (keymat.Detail, error) {
	switch k := key.(type) {
	case *rsa.PrivateKey:
		if len(k.Primes) != 2 {
			return keymat.Detail{}, fmt.Errorf(
				"%w: multi-prime RSA key with %d primes", ErrUnsupportedFormat, len(k.Primes),
			)
		}
		k.Precompute()
		d := rsaDetail(&k.PublicKey)
		d.Fields[keymat.FieldD] = k.D.Bytes()
		d.Fields[keymat.FieldP] = k.Primes[0].Bytes()
		d.Fields[keymat.FieldQ] = k.Primes[1].Bytes()
		d.Fields[keymat.FieldDmp1] = k.Precomputed.Dp.Bytes()
		d.Fields[keymat.FieldDmq1] = k.Precomputed.Dq.Bytes()
		d.Fields[keymat.FieldIqmp] = k.Precomputed.Qinv.Bytes()
		return d, nil
	case *ecdsa.PrivateKey:
		d, err := ecDetail(&k.PublicKey)
		if err != nil {
			return keymat.Detail{}, err
		}
		ek, err := k.ECDH()
		if err != nil {
			return keymat.Detail{}, fmt.Errorf("convert EC key: %w", err)
		}
		d.Fields[keymat.FieldD] = ek.Bytes()
		return d, nil
	case ed25519.PrivateKey:
		d := okpDetail("Ed25519", k.Public().(ed25519.PublicKey))
		d.Fields[keymat.FieldD] = k.Seed()
		return d, nil
	case ed448.PrivateKey:
		d := okpDetail("Ed448", k.Public().(ed448.PublicKey))
		d.Fields[keymat.FieldD] = k.Seed()
		return d, nil
	default:
		return keymat.Detail{}, fmt.Errorf("%w: private key of type %T", ErrUnsupportedFormat, key)
	}
}

// publicDetail decomposes a public key into its key detail.
func publicDetail(key crypto.PublicKey) (keymat.Detail, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return rsaDetail(k), nil
	case *ecdsa.PublicKey:
		return ecDetail(k)
	case ed25519.PublicKey:
		return okpDetail("Ed25519", k), nil
	case ed448.PublicKey:
		return okpDetail("Ed448", k), nil
	default:
		return keymat.Detail{}, fmt.Errorf("%w: public key of type %T", ErrUnsupportedFormat, key)
	}
}

func rsaDetail(k *rsa.PublicKey) keymat.Detail {
	return keymat.Detail{Kind: keymat.RSA, Fields: map[string][]byte{
		keymat.FieldN: k.N.Bytes(),
		keymat.FieldE: big.NewInt(int64(k.E)).Bytes(),
	}}
}

func ecDetail(k *ecdsa.PublicKey) (keymat.Detail, error) {
	c, err := jwk.CurveByCrv(k.Curve.Params().Name)
	if err != nil {
		return keymat.Detail{}, err
	}
	ek, err := k.ECDH()
	if err != nil {
		return keymat.Detail{}, fmt.Errorf("convert EC key: %w", err)
	}
	// Uncompressed point: 04 || x || y.
	point := ek.Bytes()
	return keymat.Detail{Kind: keymat.EC, Fields: map[string][]byte{
		keymat.FieldCurve: []byte(c.Name),
		keymat.FieldX:     point[1 : 1+c.Size],
		keymat.FieldY:     point[1+c.Size:],
	}}, nil
}

func okpDetail(crv string, pub []byte) keymat.Detail {
	return keymat.Detail{Kind: keymat.OKP, Fields: map[string][]byte{
		keymat.FieldCurve: []byte(crv),
		keymat.FieldX:     append([]byte(nil), pub...),
	}}
}
