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

// Package base64url implements the URL-safe, unpadded base64 alphabet used
// by the numeric fields of a JSON Web Key (RFC 7515, Appendix C).
//
// Encoding never fails. Decoding comes in two flavors: strict decoding
// rejects anything that is not a well-formed base64url string, while lenient
// decoding skips characters outside the alphabet, mirroring the behavior of
// most scripting-language base64 decoders.
package base64url

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// alphabet translates between the standard and the URL-safe alphabet.
var (
	toURL = strings.NewReplacer("+", "-", "/", "_")
	toStd = strings.NewReplacer("-", "+", "_", "/")
)

// DecodeError reports malformed base64url input.
type DecodeError struct {
	// Offset is the byte offset of the offending character, or -1 if the
	// input is malformed as a whole (e.g., because of its length).
	Offset int
	// Reason describes what is wrong with the input.
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Offset < 0 {
		return "base64url: " + e.Reason
	}
	return fmt.Sprintf("base64url: %s at offset %d", e.Reason, e.Offset)
}

// Encode returns the base64url encoding of b without trailing padding.
func Encode(b []byte) string {
	s := base64.StdEncoding.EncodeToString(b)
	return strings.TrimRight(toURL.Replace(s), "=")
}

// Decode reverses Encode. Padding is optional in both modes.
//
// In strict mode, any character outside the base64 alphabet, a misplaced or
// excessive padding character, or an impossible input length yields a
// *DecodeError. In lenient mode, characters outside the alphabet are skipped
// and a dangling trailing symbol that cannot encode a full byte is dropped.
func Decode(s string, strict bool) ([]byte, error) {
	s = toStd.Replace(s)
	if strict {
		return decodeStrict(s)
	}
	return decodeLenient(s), nil
}

func decodeStrict(s string) ([]byte, error) {
	body := strings.TrimRight(s, "=")
	pad := len(s) - len(body)
	for i := 0; i < len(body); i++ {
		if !isStd(body[i]) {
			return nil, &DecodeError{Offset: i, Reason: fmt.Sprintf(
				"illegal character %q", body[i],
			)}
		}
	}
	if len(body)%4 == 1 {
		return nil, &DecodeError{Offset: -1, Reason: "invalid input length"}
	}
	if pad > 0 && (pad > 2 || (len(body)+pad)%4 != 0) {
		return nil, &DecodeError{Offset: len(body), Reason: "invalid padding"}
	}
	out, err := base64.RawStdEncoding.DecodeString(body)
	if err != nil {
		return nil, &DecodeError{Offset: -1, Reason: err.Error()}
	}
	return out, nil
}

func decodeLenient(s string) []byte {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isStd(s[i]) {
			b.WriteByte(s[i])
		}
	}
	body := b.String()
	if len(body)%4 == 1 {
		body = body[:len(body)-1]
	}
	// Cannot fail: the body only holds alphabet characters of valid length.
	out, _ := base64.RawStdEncoding.DecodeString(body)
	return out
}

// isStd reports whether c belongs to the standard base64 alphabet.
func isStd(c byte) bool {
	switch {
	case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9':
		return true
	case c == '+' || c == '/':
		return true
	default:
		return false
	}
}
