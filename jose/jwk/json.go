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
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrNoKty indicates a JSON document that does not declare a key type.
var ErrNoKty = errors.New(`missing "kty" member`)

// Marshal encodes j as a JSON object. Members are written in sorted order.
func Marshal(j JWK) ([]byte, error) {
	return json.Marshal(map[string]string(j))
}

// Unmarshal decodes a single JWK from a JSON object. Members whose value is
// not a string, such as "key_ops", are dropped because they never carry key
// material.
func Unmarshal(in []byte) (JWK, error) {
	var raw map[string]any
	if err := json.Unmarshal(in, &raw); err != nil {
		return nil, fmt.Errorf("invalid json format: %w", err)
	}
	return fromRaw(raw)
}

// MarshalSet encodes keys as a JSON Web Key Set.
func MarshalSet(keys []JWK) ([]byte, error) {
	if keys == nil {
		keys = []JWK{}
	}
	return json.Marshal(struct {
		Keys []JWK `json:"keys"`
	}{keys})
}

// UnmarshalSet decodes all keys of a JSON Web Key Set.
func UnmarshalSet(in []byte) ([]JWK, error) {
	var raw struct {
		Keys []map[string]any `json:"keys"`
	}
	if err := json.Unmarshal(in, &raw); err != nil {
		return nil, fmt.Errorf("invalid json format: %w", err)
	}
	keys := make([]JWK, 0, len(raw.Keys))
	for i, m := range raw.Keys {
		j, err := fromRaw(m)
		if err != nil {
			return nil, fmt.Errorf("key %d: %w", i, err)
		}
		keys = append(keys, j)
	}
	return keys, nil
}

func fromRaw(raw map[string]any) (JWK, error) {
	j := make(JWK, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			j[k] = s
		}
	}
	if j.Kty() == "" {
		return nil, ErrNoKty
	}
	return j, nil
}
