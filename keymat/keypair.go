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

package keymat

import (
	"encoding/pem"
	"strings"

	"github.com/deep-rent/keykit/armor"
)

// Keypair owns at most one public key PEM, at most one private key PEM, an
// optional passphrase for the private key, and the detail of whichever key
// is present.
type Keypair struct {
	public     string
	private    string
	passphrase string
	detail     Detail
}

// Option configures a Keypair under construction.
type Option func(*Keypair) error

// WithPublicKey sets the public key PEM. Empty text is ignored.
func WithPublicKey(text string) Option {
	return func(kp *Keypair) error { return kp.SetPublicKey(text) }
}

// WithPrivateKey sets the private key PEM. Empty text is ignored.
func WithPrivateKey(text string) Option {
	return func(kp *Keypair) error { return kp.SetPrivateKey(text) }
}

// WithPassphrase sets the passphrase of the private key. It must follow
// WithPrivateKey in the option list. An empty passphrase is ignored.
func WithPassphrase(passphrase string) Option {
	return func(kp *Keypair) error { return kp.SetPassphrase(passphrase) }
}

// WithDetail sets the key detail.
func WithDetail(d Detail) Option {
	return func(kp *Keypair) error { return kp.SetDetail(d) }
}

// New constructs a validated Keypair. It fails with an
// *InvalidKeyMaterialError if any option does, in which case no Keypair is
// returned.
func New(opts ...Option) (*Keypair, error) {
	kp := &Keypair{}
	for _, opt := range opts {
		if err := opt(kp); err != nil {
			return nil, err
		}
	}
	return kp, nil
}

// PublicKey returns the trimmed public key PEM, or an empty string.
func (kp *Keypair) PublicKey() string { return kp.public }

// PrivateKey returns the trimmed private key PEM, or an empty string.
func (kp *Keypair) PrivateKey() string { return kp.private }

// Passphrase returns the passphrase of the private key, or an empty string.
func (kp *Keypair) Passphrase() string { return kp.passphrase }

// HasPublic reports whether a public key PEM is present.
func (kp *Keypair) HasPublic() bool { return kp.public != "" }

// HasPrivate reports whether a private key PEM is present.
func (kp *Keypair) HasPrivate() bool { return kp.private != "" }

// Kind returns the kind recorded in the detail.
func (kp *Keypair) Kind() Kind { return kp.detail.Kind }

// Detail returns a copy of the key detail.
func (kp *Keypair) Detail() Detail { return kp.detail.Clone() }

// Get looks up a single detail field by name.
func (kp *Keypair) Get(name string) ([]byte, bool) {
	return kp.detail.Get(name)
}

// SetPublicKey replaces the public key PEM after trimming surrounding
// whitespace. Empty text is a no-op and does not clear existing material.
func (kp *Keypair) SetPublicKey(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := checkPEM(text, false); err != nil {
		return err
	}
	kp.public = text
	return nil
}

// SetPrivateKey replaces the private key PEM after trimming surrounding
// whitespace. Empty text is a no-op and does not clear existing material.
func (kp *Keypair) SetPrivateKey(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := checkPEM(text, true); err != nil {
		return err
	}
	kp.private = text
	return nil
}

// SetPassphrase sets the passphrase protecting the private key. A passphrase
// is meaningless without a private key and is rejected in that case. An empty
// passphrase is a no-op.
func (kp *Keypair) SetPassphrase(passphrase string) error {
	if passphrase == "" {
		return nil
	}
	if !kp.HasPrivate() {
		return invalid("passphrase given without a private key")
	}
	kp.passphrase = passphrase
	return nil
}

// SetDetail validates and stores a copy of d.
func (kp *Keypair) SetDetail(d Detail) error {
	if err := d.Validate(); err != nil {
		return err
	}
	kp.detail = d.Clone()
	return nil
}

// Set writes a single detail field. The resulting detail is validated before
// it replaces the current one.
func (kp *Keypair) Set(name string, value []byte) error {
	d := kp.detail.Clone()
	d.Fields[name] = append([]byte(nil), value...)
	return kp.SetDetail(d)
}

// checkPEM verifies that text holds exactly one PEM block with a public or
// private key label.
func checkPEM(text string, private bool) error {
	b, rest := pem.Decode([]byte(text))
	if b == nil {
		return invalid("no PEM block found")
	}
	if len(strings.TrimSpace(string(rest))) > 0 {
		return invalid("trailing data after %s block", b.Type)
	}
	switch {
	case private && !armor.IsPrivate(b.Type):
		return invalid("expected a private key, got %s", b.Type)
	case !private && !armor.IsPublic(b.Type):
		return invalid("expected a public key, got %s", b.Type)
	}
	return nil
}
