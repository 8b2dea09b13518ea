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

// Package keymat holds asymmetric key material in all the shapes a caller may
// need it in: PEM text, a passphrase protecting the private PEM, and the key
// detail, i.e. the decomposed numeric parameters of the key.
//
// # Key Detail
//
// A Detail names its key kind and maps field names to big-endian byte
// strings. The field names follow the conventions of OpenSSL's key details:
//
//	rsa: n, e              + d, p, q, dmp1, dmq1, iqmp (private)
//	ec:  curve_name, x, y  + d (private)
//	okp: curve_name, x     + d (private)
//
// Private fields are all present or all absent; partial private material is
// rejected with an *InvalidKeyMaterialError.
//
// # Keypair
//
// A Keypair is a value object. It is validated on construction and through
// every setter, and a failed setter leaves it untouched.
package keymat

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Kind discriminates between key types.
type Kind string

// Built-in and well-known kinds.
const (
	RSA Kind = "rsa"
	EC  Kind = "ec"
	OKP Kind = "okp"
)

// String returns the kind as a plain string.
func (k Kind) String() string { return string(k) }

// ParseKind normalizes s into a Kind. Any non-empty string is accepted, since
// custom kinds may be registered at run time.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", &InvalidKeyMaterialError{Reason: "empty key kind"}
	}
	return Kind(s), nil
}

// Field names of the key detail.
const (
	FieldCurve = "curve_name"
	FieldN     = "n"
	FieldE     = "e"
	FieldD     = "d"
	FieldP     = "p"
	FieldQ     = "q"
	FieldDmp1  = "dmp1"
	FieldDmq1  = "dmq1"
	FieldIqmp  = "iqmp"
	FieldX     = "x"
	FieldY     = "y"
)

// schema lists the public and private fields per known kind.
type schema struct {
	public  []string
	private []string
}

var schemas = map[Kind]schema{
	RSA: {
		public:  []string{FieldN, FieldE},
		private: []string{FieldD, FieldP, FieldQ, FieldDmp1, FieldDmq1, FieldIqmp},
	},
	EC: {
		public:  []string{FieldCurve, FieldX, FieldY},
		private: []string{FieldD},
	},
	OKP: {
		public:  []string{FieldCurve, FieldX},
		private: []string{FieldD},
	},
}

// InvalidKeyMaterialError reports PEM text or key detail that fails
// structural validation.
type InvalidKeyMaterialError struct {
	Reason string
}

func (e *InvalidKeyMaterialError) Error() string {
	return "invalid key material: " + e.Reason
}

// invalid is a shorthand for constructing an *InvalidKeyMaterialError.
func invalid(format string, args ...any) error {
	return &InvalidKeyMaterialError{Reason: fmt.Sprintf(format, args...)}
}

// Detail is the decomposed form of a key. The zero value is an empty detail
// of no particular kind.
type Detail struct {
	Kind   Kind
	Fields map[string][]byte
}

// NewDetail creates a Detail of the given kind from a copy of fields.
func NewDetail(kind Kind, fields map[string][]byte) Detail {
	return Detail{Kind: kind, Fields: maps.Clone(fields)}
}

// IsZero reports whether the detail carries no information at all.
func (d Detail) IsZero() bool {
	return d.Kind == "" && len(d.Fields) == 0
}

// Get returns the named field and whether it is present.
func (d Detail) Get(name string) ([]byte, bool) {
	v, ok := d.Fields[name]
	return v, ok
}

// Has reports whether the named field is present.
func (d Detail) Has(name string) bool {
	_, ok := d.Fields[name]
	return ok
}

// Curve returns the curve name of an EC or OKP key, or an empty string.
func (d Detail) Curve() string {
	return string(d.Fields[FieldCurve])
}

// Private reports whether the detail carries private key material.
func (d Detail) Private() bool {
	return d.Has(FieldD)
}

// Public returns a copy of the detail stripped of its private fields.
func (d Detail) Public() Detail {
	out := d.Clone()
	if s, ok := schemas[d.Kind]; ok {
		for _, f := range s.private {
			delete(out.Fields, f)
		}
	} else {
		delete(out.Fields, FieldD)
	}
	return out
}

// Clone returns a deep copy of the detail.
func (d Detail) Clone() Detail {
	fields := make(map[string][]byte, len(d.Fields))
	for k, v := range d.Fields {
		fields[k] = slices.Clone(v)
	}
	return Detail{Kind: d.Kind, Fields: fields}
}

// Names returns the sorted field names present in the detail.
func (d Detail) Names() []string {
	return slices.Sorted(maps.Keys(d.Fields))
}

// Validate checks the detail against the schema of its kind. Details of
// custom kinds only need a kind; their fields are the business of the codec
// registered for them.
func (d Detail) Validate() error {
	if d.Kind == "" {
		return invalid("key detail has no kind")
	}
	s, ok := schemas[d.Kind]
	if !ok {
		return nil
	}
	if missing := d.missing(s.public); len(missing) > 0 {
		return invalid("%s key detail lacks %s", d.Kind, strings.Join(missing, ", "))
	}
	missing := d.missing(s.private)
	if n := len(missing); n > 0 && n < len(s.private) {
		return invalid(
			"partial %s private key detail, lacks %s",
			d.Kind, strings.Join(missing, ", "),
		)
	}
	return nil
}

func (d Detail) missing(names []string) []string {
	var out []string
	for _, name := range names {
		if !d.Has(name) {
			out = append(out, name)
		}
	}
	return out
}
