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

// Package config reads and writes configuration files whose format follows
// from their extension (see codec.Infer).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/deep-rent/keykit/codec"
)

// Perm is the file mode of configuration files written by Save.
const Perm = 0o644

// Load decodes the file at path into v. Fields absent from the file keep
// the values v already holds, so callers preset defaults before loading.
func Load(path string, v any) error {
	dec, err := codec.Infer(path)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := dec.Decode(raw, v); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Save encodes v and writes it to path, creating parent directories as
// needed.
func Save(path string, v any) error {
	enc, err := codec.Infer(path)
	if err != nil {
		return fmt.Errorf("save config %s: %w", path, err)
	}
	raw, err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	if err := os.WriteFile(path, raw, Perm); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
