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

// Package armor frames DER payloads as PEM text and splits PEM text back into
// its blocks.
//
// Wrap always emits CRLF line endings and 64-column body lines, which is the
// format every key produced by this module uses. Split accepts any line
// ending and tolerates text between blocks, so that combined files written
// by other tools can be read as well.
package armor

import (
	"encoding/base64"
	"encoding/pem"
	"errors"
	"regexp"
	"strings"
)

// Labels used by the key structures of this module.
const (
	LabelPublicKey      = "PUBLIC KEY"
	LabelPrivateKey     = "PRIVATE KEY"
	LabelRSAPrivateKey  = "RSA PRIVATE KEY"
	LabelECPrivateKey   = "EC PRIVATE KEY"
	LabelRSAPublicKey   = "RSA PUBLIC KEY"
	LabelEncryptedPKCS8 = "ENCRYPTED PRIVATE KEY"
)

const (
	lineWidth      = 64
	crlf           = "\r\n"
	beginPrefix    = "-----BEGIN "
	endPrefix      = "-----END "
	boundarySuffix = "-----"
)

// Wrap encodes der as a PEM block with the given label.
func Wrap(der []byte, label string) string {
	body := base64.StdEncoding.EncodeToString(der)
	var b strings.Builder
	b.Grow(len(body) + len(body)/lineWidth*2 + 2*len(label) + 64)
	b.WriteString(beginPrefix + label + boundarySuffix + crlf)
	for len(body) > lineWidth {
		b.WriteString(body[:lineWidth])
		b.WriteString(crlf)
		body = body[lineWidth:]
	}
	if len(body) > 0 {
		b.WriteString(body)
		b.WriteString(crlf)
	}
	b.WriteString(endPrefix + label + boundarySuffix + crlf)
	return b.String()
}

// IsPrivate reports whether label denotes private key material.
func IsPrivate(label string) bool {
	return strings.HasSuffix(label, LabelPrivateKey)
}

// IsPublic reports whether label denotes public key material.
func IsPublic(label string) bool {
	return label == LabelPublicKey || label == LabelRSAPublicKey
}

// Block is a single armored block found in PEM text.
type Block struct {
	// Label is the text between "BEGIN " and the closing dashes.
	Label string
	// Text is the block exactly as it appeared, from its BEGIN line up to and
	// including its END line, without surrounding whitespace.
	Text string
}

// Private reports whether the block holds private key material.
func (b Block) Private() bool { return IsPrivate(b.Label) }

// ErrMalformed indicates that a block's body could not be decoded.
var ErrMalformed = errors.New("malformed PEM block")

// Decode parses the block into its headers and DER payload.
func (b Block) Decode() (*pem.Block, error) {
	p, _ := pem.Decode([]byte(b.Text))
	if p == nil || p.Type != b.Label {
		return nil, ErrMalformed
	}
	return p, nil
}

// boundary matches a BEGIN line and captures its label.
var boundary = regexp.MustCompile(`-----BEGIN ([A-Z0-9 ]+)-----`)

// Split returns all armored blocks contained in text, in order of
// appearance. A BEGIN line without its matching END line terminates the scan.
func Split(text string) []Block {
	var blocks []Block
	for {
		loc := boundary.FindStringSubmatchIndex(text)
		if loc == nil {
			return blocks
		}
		label := text[loc[2]:loc[3]]
		end := endPrefix + label + boundarySuffix
		j := strings.Index(text[loc[1]:], end)
		if j < 0 {
			return blocks
		}
		stop := loc[1] + j + len(end)
		blocks = append(blocks, Block{
			Label: label,
			Text:  strings.TrimSpace(text[loc[0]:stop]),
		})
		text = text[stop:]
	}
}
