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

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/deep-rent/keykit/keyfile"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/provider"
	"github.com/spf13/cobra"
)

// errBadSignature makes verify exit with a failure status.
var errBadSignature = errors.New("signature does not match")

// cryptFlags are shared by sign, verify, encrypt and decrypt.
type cryptFlags struct {
	in         string
	passphrase string
	hash       string
	padding    string
}

func (f *cryptFlags) bindInput(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "in", "", "read input from FILE instead of standard input")
}

func (f *cryptFlags) bindPassphrase(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.passphrase, "passphrase", "", "passphrase of an encrypted private key (or env:NAME)")
}

func (f *cryptFlags) bindHash(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.hash, "hash", "sha256", "digest for RSA and EC keys (sha1, sha224, sha256, sha384, sha512)")
}

func (f *cryptFlags) bindPadding(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.padding, "padding", "pkcs1", "RSA encryption padding (pkcs1, oaep)")
}

// input returns the contents of --in, or standard input if it is unset.
func (f *cryptFlags) input(cmd *cobra.Command) ([]byte, error) {
	if f.in != "" {
		b, err := os.ReadFile(f.in)
		if err != nil {
			return nil, &keyfile.IOError{Op: "read", Path: f.in, Err: err}
		}
		return b, nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

// load parses the key file at path.
func (a *app) load(path, pass string) (*keymat.Keypair, error) {
	p, err := passphrase(pass)
	if err != nil {
		return nil, err
	}
	text, err := keyfile.Read(path)
	if err != nil {
		return nil, err
	}
	kp, err := a.prov.Parse(text, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return kp, nil
}

func newSignCmd(a *app) *cobra.Command {
	var f cryptFlags
	cmd := &cobra.Command{
		Use:   "sign KEYFILE",
		Short: "Sign a message",
		Long: `Sign the message read from standard input (or --in) and print the
signature in base64.

RSA keys produce PKCS#1 v1.5 signatures and EC keys DER encoded ECDSA
signatures over the --hash digest. EdDSA keys sign the message itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := provider.ParseHash(f.hash)
			if err != nil {
				return err
			}
			kp, err := a.load(args[0], f.passphrase)
			if err != nil {
				return err
			}
			msg, err := f.input(cmd)
			if err != nil {
				return err
			}
			sig, err := a.prov.Base64Sign(kp, msg, h)
			if err != nil {
				return err
			}
			a.logger.Debug("Message signed", "kind", kp.Kind(), "hash", h.String())
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sig)
			return err
		},
	}
	f.bindInput(cmd)
	f.bindPassphrase(cmd)
	f.bindHash(cmd)
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	var f cryptFlags
	cmd := &cobra.Command{
		Use:   "verify KEYFILE SIGNATURE",
		Short: "Verify a signature",
		Long: `Verify a base64 signature over the message read from standard input (or
--in). KEYFILE may hold a public key, a private key or both.

Prints "ok" and exits with status 0 if the signature matches.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := provider.ParseHash(f.hash)
			if err != nil {
				return err
			}
			kp, err := a.load(args[0], f.passphrase)
			if err != nil {
				return err
			}
			msg, err := f.input(cmd)
			if err != nil {
				return err
			}
			ok, err := a.prov.Base64Verify(kp, msg, args[1], h)
			if err != nil {
				return err
			}
			if !ok {
				return errBadSignature
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}
	f.bindInput(cmd)
	f.bindPassphrase(cmd)
	f.bindHash(cmd)
	return cmd
}

func newEncryptCmd(a *app) *cobra.Command {
	var f cryptFlags
	cmd := &cobra.Command{
		Use:   "encrypt KEYFILE",
		Short: "Encrypt data with an RSA public key",
		Long: `Encrypt the data read from standard input (or --in) and print the
ciphertext in base64. Only RSA keys support encryption.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			padding, err := provider.ParsePadding(f.padding)
			if err != nil {
				return err
			}
			kp, err := a.load(args[0], f.passphrase)
			if err != nil {
				return err
			}
			data, err := f.input(cmd)
			if err != nil {
				return err
			}
			out, err := a.prov.Base64Encrypt(kp, data, padding)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	f.bindInput(cmd)
	f.bindPassphrase(cmd)
	f.bindPadding(cmd)
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	var f cryptFlags
	cmd := &cobra.Command{
		Use:   "decrypt KEYFILE",
		Short: "Decrypt data with an RSA private key",
		Long: `Decrypt the base64 ciphertext read from standard input (or --in) and
write the plaintext as is.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			padding, err := provider.ParsePadding(f.padding)
			if err != nil {
				return err
			}
			kp, err := a.load(args[0], f.passphrase)
			if err != nil {
				return err
			}
			data, err := f.input(cmd)
			if err != nil {
				return err
			}
			out, err := a.prov.Base64Decrypt(kp, strings.TrimSpace(string(data)), padding)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	f.bindInput(cmd)
	f.bindPassphrase(cmd)
	f.bindPadding(cmd)
	return cmd
}
