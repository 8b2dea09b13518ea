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

// Package codec maps configuration file extensions to serialization
// formats.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Decoder unmarshals raw bytes into a value.
type Decoder interface {
	Decode(data []byte, v any) error
}

// Encoder marshals a value into raw bytes.
type Encoder interface {
	Encode(v any) ([]byte, error)
}

// Codec is a symmetric Decoder and Encoder.
type Codec interface {
	Decoder
	Encoder
}

// UnsupportedExtensionError is returned by Infer for a file extension
// without a registered codec.
type UnsupportedExtensionError struct {
	Ext string
}

func (e *UnsupportedExtensionError) Error() string {
	if e.Ext == "" {
		return "missing file extension"
	}
	return fmt.Sprintf("unsupported file extension %q", e.Ext)
}

var (
	// JSON encodes indented JSON and rejects unknown fields on decode.
	JSON Codec = jsonCodec{}
	// YAML encodes block-style YAML and rejects unknown fields on decode.
	YAML Codec = yamlCodec{}
)

var codecs = map[string]Codec{
	".json": JSON,
	".yaml": YAML,
	".yml":  YAML,
}

// Infer picks a codec from the extension of path, ignoring case.
func Infer(path string) (Codec, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if c, ok := codecs[ext]; ok {
		return c, nil
	}
	return nil, &UnsupportedExtensionError{Ext: ext}
}

type jsonCodec struct{}

func (jsonCodec) Decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (jsonCodec) Encode(v any) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

type yamlCodec struct{}

func (yamlCodec) Decode(data []byte, v any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(v)
	// An empty document leaves v untouched.
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func (yamlCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
