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

// Package der emits the handful of ASN.1 DER primitives needed to assemble
// PKCS#1, PKCS#8, SPKI and SEC1 key structures from raw big-endian integers.
//
// The encoder never builds a tree. Every function maps content bytes to a
// complete tag-length-value triple, and structures are composed by nesting
// calls:
//
//	spki := der.Sequence(
//		der.Sequence(der.OID(der.OIDRSAEncryption), der.Null()),
//		der.BitString(der.Sequence(der.Integer(n), der.Integer(e))),
//	)
//
// The functions do not check the semantic correctness of their input. In
// particular, Integer expects a minimal big-endian magnitude and only adds
// the sign byte that DER demands.
package der

import "fmt"

// Universal tags used by the key structures.
const (
	TagInteger     byte = 0x02
	TagBitString   byte = 0x03
	TagOctetString byte = 0x04
	TagNull        byte = 0x05
	TagOID         byte = 0x06
	TagSequence    byte = 0x30
	// TagContext is the base of context-specific, constructed tags ([n]).
	TagContext byte = 0xa0
)

// Object identifiers in their DER arc encoding, i.e. the content octets of
// an OBJECT IDENTIFIER without tag and length.
var (
	OIDRSAEncryption = []byte{0x2a, 0x86, 0x48, 0x86, 0xf7, 0x0d, 0x01, 0x01, 0x01} // 1.2.840.113549.1.1.1
	OIDECPublicKey   = []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x02, 0x01}             // 1.2.840.10045.2.1
	OIDP256          = []byte{0x2a, 0x86, 0x48, 0xce, 0x3d, 0x03, 0x01, 0x07}       // 1.2.840.10045.3.1.7
	OIDP384          = []byte{0x2b, 0x81, 0x04, 0x00, 0x22}                         // 1.3.132.0.34
	OIDP521          = []byte{0x2b, 0x81, 0x04, 0x00, 0x23}                         // 1.3.132.0.35
	OIDEd25519       = []byte{0x2b, 0x65, 0x70}                                     // 1.3.101.112
	OIDEd448         = []byte{0x2b, 0x65, 0x71}                                     // 1.3.101.113
)

// Length encodes a definite length. Lengths below 128 use the short form;
// longer ones use the long form with the minimal number of length octets.
func Length(n int) []byte {
	if n < 0 {
		panic(fmt.Sprintf("der: negative length %d", n))
	}
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var buf [8]byte
	i := len(buf)
	for v := uint64(n); v > 0; v >>= 8 {
		i--
		buf[i] = byte(v)
	}
	out := make([]byte, 0, 1+len(buf)-i)
	out = append(out, 0x80|byte(len(buf)-i))
	return append(out, buf[i:]...)
}

// tlv assembles a single tag-length-value triple.
func tlv(tag byte, parts ...[]byte) []byte {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	l := Length(n)
	out := make([]byte, 0, 1+len(l)+n)
	out = append(out, tag)
	out = append(out, l...)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// Integer encodes b as a non-negative INTEGER. A zero byte is prepended if
// the most significant bit is set, so that the value is not read as
// negative. An empty magnitude encodes zero.
func Integer(b []byte) []byte {
	switch {
	case len(b) == 0:
		return tlv(TagInteger, []byte{0x00})
	case b[0]&0x80 != 0:
		return tlv(TagInteger, []byte{0x00}, b)
	default:
		return tlv(TagInteger, b)
	}
}

// Sequence wraps the concatenation of its arguments in a SEQUENCE, keeping
// their order.
func Sequence(content ...[]byte) []byte {
	return tlv(TagSequence, content...)
}

// BitString encodes b as a BIT STRING of whole bytes. The leading octet
// that counts unused bits is therefore always zero.
func BitString(b []byte) []byte {
	return tlv(TagBitString, []byte{0x00}, b)
}

// OctetString encodes b as an OCTET STRING.
func OctetString(b []byte) []byte {
	return tlv(TagOctetString, b)
}

// Null returns the encoding of NULL.
func Null() []byte {
	return []byte{TagNull, 0x00}
}

// OID encodes an OBJECT IDENTIFIER from its pre-encoded arcs (see the OID
// variables of this package).
func OID(arcs []byte) []byte {
	return tlv(TagOID, arcs)
}

// Tagged wraps content in the context-specific, constructed tag [n]. Only
// the low-tag-number form is supported, so n must lie in 0..30.
func Tagged(n int, content []byte) []byte {
	if n < 0 || n > 30 {
		panic(fmt.Sprintf("der: tag number %d out of range", n))
	}
	return tlv(TagContext+byte(n), content)
}
