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

package registry_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/deep-rent/keykit/base64url"
	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub is a codec for a made-up key type.
type stub struct{ kty string }

func (s stub) Kty() string { return s.kty }

func (s stub) Describe(d keymat.Detail) (jwk.JWK, error) {
	return jwk.JWK{"kty": s.kty, "k": base64url.Encode(d.Fields["k"])}, nil
}

func (s stub) PEM(jwk.JWK) (string, error) { return "", nil }

func TestLookupBuiltins(t *testing.T) {
	reg := registry.New()

	c, err := reg.Lookup(keymat.RSA)
	require.NoError(t, err)
	assert.Equal(t, "RSA", c.Kty())

	c, err = reg.Lookup(keymat.EC)
	require.NoError(t, err)
	assert.Equal(t, "EC", c.Kty())

	_, err = reg.Lookup(keymat.OKP)
	var ue *registry.UnknownProviderError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, keymat.OKP, ue.Kind)

	assert.Equal(t, []keymat.Kind{keymat.EC, keymat.RSA}, reg.Kinds())
}

func TestRegisterTakesPrecedence(t *testing.T) {
	reg := registry.New(registry.WithCodec(keymat.OKP, func() jwk.Codec { return jwk.OKP }))
	require.NoError(t, reg.Register(keymat.RSA, func() jwk.Codec { return stub{"RSA2"} }))
	require.NoError(t, reg.Register("oct", func() jwk.Codec { return stub{"oct"} }))

	c, err := reg.Lookup(keymat.RSA)
	require.NoError(t, err)
	assert.Equal(t, "RSA2", c.Kty())

	c, err = reg.Lookup(keymat.OKP)
	require.NoError(t, err)
	assert.Equal(t, "OKP", c.Kty())

	assert.Equal(t, []keymat.Kind{keymat.EC, "oct", keymat.OKP, keymat.RSA}, reg.Kinds())
}

func TestRegisterNil(t *testing.T) {
	assert.ErrorIs(t, registry.New().Register("x", nil), registry.ErrNilConstructor)
}

func TestFreeze(t *testing.T) {
	reg := registry.New()
	require.False(t, reg.Frozen())
	reg.Freeze()
	assert.True(t, reg.Frozen())
	assert.ErrorIs(t, reg.Register("oct", func() jwk.Codec { return stub{"oct"} }), registry.ErrFrozen)
	_, err := reg.Lookup("oct")
	assert.Error(t, err)
}

func TestRegisterLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	reg := registry.New(registry.WithLogger(logger))
	require.NoError(t, reg.Register("oct", func() jwk.Codec { return stub{"oct"} }))
	assert.Contains(t, buf.String(), `msg="Codec registered" kind=oct replaced=false`)
}

func TestConcurrentRegistration(t *testing.T) {
	reg := registry.New()
	const n = 64

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(2)
		kind := keymat.Kind(fmt.Sprintf("k%02d", i))
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.Register(kind, func() jwk.Codec { return stub{string(kind)} }))
		}()
		go func() {
			defer wg.Done()
			_, _ = reg.Lookup(keymat.RSA)
			_ = reg.Kinds()
		}()
	}
	wg.Wait()

	assert.Len(t, reg.Kinds(), n+2)
	for i := range n {
		kind := keymat.Kind(fmt.Sprintf("k%02d", i))
		c, err := reg.Lookup(kind)
		require.NoError(t, err)
		assert.Equal(t, string(kind), c.Kty())
	}
}

func TestJWK(t *testing.T) {
	reg := registry.New()
	kp, err := keymat.New(keymat.WithDetail(keymat.NewDetail(keymat.RSA, map[string][]byte{
		keymat.FieldN: {0xc1},
		keymat.FieldE: {0x01, 0x00, 0x01},
	})))
	require.NoError(t, err)

	j, err := reg.JWK(kp)
	require.NoError(t, err)
	assert.Equal(t, jwk.JWK{"kty": "RSA", "n": "wQ", "e": "AQAB"}, j)

	empty, err := keymat.New()
	require.NoError(t, err)
	_, err = reg.JWK(empty)
	var ie *keymat.InvalidKeyMaterialError
	assert.ErrorAs(t, err, &ie)

	custom, err := keymat.New(keymat.WithDetail(keymat.NewDetail("oct", map[string][]byte{"k": {1}})))
	require.NoError(t, err)
	_, err = reg.JWK(custom)
	var ue *registry.UnknownProviderError
	assert.ErrorAs(t, err, &ue)
}

func TestConvert(t *testing.T) {
	reg := registry.New(registry.WithCodec(keymat.OKP, func() jwk.Codec { return jwk.OKP }))
	out, err := reg.Convert(jwk.JWK{
		"kty": "OKP",
		"crv": "Ed25519",
		"x":   base64url.Encode(make([]byte, 32)),
	})
	require.NoError(t, err)
	assert.Contains(t, out, "-----BEGIN PUBLIC KEY-----\r\n")

	_, err = reg.Convert(jwk.JWK{"n": "AQ"})
	assert.ErrorIs(t, err, jwk.ErrNoKty)

	_, err = reg.PEM("oct", jwk.JWK{"kty": "oct"})
	var ue *registry.UnknownProviderError
	assert.ErrorAs(t, err, &ue)
}

func TestKindOf(t *testing.T) {
	for kty, want := range map[string]keymat.Kind{
		"RSA": keymat.RSA,
		"EC":  keymat.EC,
		"OKP": keymat.OKP,
		"oct": "oct",
	} {
		got, err := registry.KindOf(jwk.JWK{"kty": kty})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
