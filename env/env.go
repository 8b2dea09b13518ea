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

// Package env fills configuration structs from environment variables.
//
// Every exported field maps to a variable whose name is the field name in
// upper SNAKE_CASE, so a field AddSource reads ADD_SOURCE. Nested structs
// extend the prefix with their own name and an underscore:
//
//	type Config struct {
//		Store struct {
//			DSN string // STORE_DSN
//		}
//		Debug bool `env:"KEYKIT_DEBUG"`
//		Token string `env:",required"`
//		cache int
//	}
//
// Variables that are not set leave the field unchanged, which lets
// environment overrides be layered on top of values read from a file.
//
// The env tag holds an optional name followed by options:
//
//   - "required" fails when the variable is not set.
//   - "prefix:X_" replaces the prefix for a nested struct.
//   - "-" as the whole tag skips the field.
package env

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"
)

// Lookup retrieves the value of an environment variable. It has the
// signature of os.LookupEnv.
type Lookup func(key string) (string, bool)

// Unmarshaler is implemented by types that parse their own variable value.
type Unmarshaler interface {
	UnmarshalEnv(value string) error
}

type config struct {
	prefix string
	lookup Lookup
}

// Option configures Unmarshal and Expand.
type Option func(*config)

// WithPrefix prepends prefix to every variable name. For example, with
// prefix "KEYKIT_" the field Log.Level reads KEYKIT_LOG_LEVEL.
func WithPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

// WithLookup replaces os.LookupEnv. A nil function is ignored.
func WithLookup(lookup Lookup) Option {
	return func(c *config) {
		if lookup != nil {
			c.lookup = lookup
		}
	}
}

func newConfig(opts []Option) config {
	c := config{lookup: os.LookupEnv}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Unmarshal sets the fields of the struct v points to from the
// environment.
func Unmarshal(v any, opts ...Option) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return errors.New("env: expected a non-nil pointer to a struct")
	}
	if rv = rv.Elem(); rv.Kind() != reflect.Struct {
		return fmt.Errorf("env: expected a pointer to a struct, got pointer to %v", rv.Kind())
	}
	c := newConfig(opts)
	if err := walk(rv, c.prefix, c.lookup); err != nil {
		return fmt.Errorf("env: %w", err)
	}
	return nil
}

// Expand replaces ${KEY} references in s with the value of the variable
// KEY. "$$" yields a literal dollar sign. A reference to a variable that
// is not set is an error.
func Expand(s string, opts ...Option) (string, error) {
	c := newConfig(opts)
	var b strings.Builder
	b.Grow(len(s))
	for {
		i := strings.IndexByte(s, '$')
		if i < 0 || i == len(s)-1 {
			b.WriteString(s)
			return b.String(), nil
		}
		b.WriteString(s[:i])
		switch s[i+1] {
		case '$':
			b.WriteByte('$')
			s = s[i+2:]
		case '{':
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return "", errors.New("env: unmatched '${'")
			}
			key := c.prefix + s[i+2:i+2+end]
			val, ok := c.lookup(key)
			if !ok {
				return "", fmt.Errorf("env: variable %q is not set", key)
			}
			b.WriteString(val)
			s = s[i+3+end:]
		default:
			b.WriteByte('$')
			s = s[i+1:]
		}
	}
}

type tag struct {
	name     string
	prefix   *string
	required bool
}

var typeUnmarshaler = reflect.TypeFor[Unmarshaler]()

func walk(rv reflect.Value, prefix string, lookup Lookup) error {
	rt := rv.Type()
	for i := range rt.NumField() {
		ft := rt.Field(i)
		fv := rv.Field(i)
		if !ft.IsExported() {
			continue
		}
		raw := ft.Tag.Get("env")
		if raw == "-" {
			continue
		}
		t, err := parseTag(raw)
		if err != nil {
			return fmt.Errorf("field %s: %w", ft.Name, err)
		}
		name := t.name
		if name == "" {
			name = snake(ft.Name)
		}

		custom := reflect.PointerTo(ft.Type).Implements(typeUnmarshaler)
		if ft.Type.Kind() == reflect.Struct && !custom {
			nested := prefix + name + "_"
			if t.prefix != nil {
				nested = prefix + *t.prefix
			}
			if err := walk(fv, nested, lookup); err != nil {
				return err
			}
			continue
		}

		key := prefix + name
		val, ok := lookup(key)
		if !ok {
			if t.required {
				return fmt.Errorf("required variable %q is not set", key)
			}
			continue
		}
		if err := set(fv, val, custom); err != nil {
			return fmt.Errorf("variable %s: %w", key, err)
		}
	}
	return nil
}

func set(rv reflect.Value, val string, custom bool) error {
	if custom {
		return rv.Addr().Interface().(Unmarshaler).UnmarshalEnv(val)
	}
	switch rv.Kind() {
	case reflect.String:
		rv.SetString(val)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(val, 10, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(val, 10, rv.Type().Bits())
		if err != nil {
			return err
		}
		rv.SetUint(u)
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return err
		}
		rv.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %v", rv.Type())
	}
	return nil
}

func parseTag(s string) (tag, error) {
	parts := strings.Split(s, ",")
	t := tag{name: strings.TrimSpace(parts[0])}
	for _, part := range parts[1:] {
		key, val, found := strings.Cut(strings.TrimSpace(part), ":")
		switch {
		case key == "":
		case key == "required" && !found:
			t.required = true
		case key == "prefix" && found:
			t.prefix = &val
		default:
			return t, fmt.Errorf("unknown tag option %q", part)
		}
	}
	return t, nil
}

// snake converts a Go field name to upper SNAKE_CASE. Acronyms stay
// together, so "DSN" and "PEMCipher" become "DSN" and "PEM_CIPHER".
func snake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 {
			prev := runes[i-1]
			lowerToUpper := unicode.IsLower(prev) && (unicode.IsUpper(r) || unicode.IsDigit(r))
			acronymEnd := unicode.IsUpper(prev) && unicode.IsUpper(r) &&
				i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if lowerToUpper || acronymEnd {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
