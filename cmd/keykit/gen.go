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
	"fmt"

	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keyfile"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/provider"
	"github.com/spf13/cobra"
)

type genFlags struct {
	kind       string
	bits       int
	curve      string
	passphrase string
	out        string
	force      bool
	jwk        bool
}

func newGenCmd(a *app) *cobra.Command {
	var f genFlags
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate a key pair",
		Long: `Generate a new key pair and print or save its PEM encoding.

The public key comes first, followed by the private key. With --out both are
written to a single file readable only by its owner.

Key types:
  rsa   RSA, --bits sets the modulus size (default 2048)
  ec    ECDSA, --curve is prime256v1 (default), secp384r1 or secp521r1
  okp   EdDSA, --curve is Ed25519 (default) or Ed448

The passphrase may be given as env:NAME to read it from the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.gen(cmd, f)
		},
	}
	fs := cmd.Flags()
	fs.StringVarP(&f.kind, "type", "t", "", "key type (rsa, ec, okp)")
	fs.IntVar(&f.bits, "bits", 0, "RSA modulus size in bits")
	fs.StringVar(&f.curve, "curve", "", "curve name")
	fs.StringVar(&f.passphrase, "passphrase", "", "encrypt the private key (or env:NAME)")
	fs.StringVarP(&f.out, "out", "o", "", "output file (default standard output)")
	fs.BoolVar(&f.force, "force", false, "overwrite an existing output file")
	fs.BoolVar(&f.jwk, "jwk", false, "print the private JWK instead of PEM")
	return cmd
}

func (a *app) gen(cmd *cobra.Command, f genFlags) error {
	kindName := a.cfg.Key.Type
	if f.kind != "" {
		kindName = f.kind
	}
	kind, err := keymat.ParseKind(kindName)
	if err != nil {
		return err
	}
	opts := provider.GenerateOptions{Bits: f.bits, Curve: f.curve}
	if opts.Bits == 0 && kind == keymat.RSA {
		opts.Bits = a.cfg.Key.Bits
	}
	// The configured curve only applies to the configured type, since EC
	// and OKP curve names do not overlap.
	if opts.Curve == "" && kindName == a.cfg.Key.Type {
		opts.Curve = a.cfg.Key.Curve
	}
	if opts.Passphrase, err = passphrase(f.passphrase); err != nil {
		return err
	}

	kp, err := a.prov.Generate(kind, opts)
	if err != nil {
		return err
	}

	if f.jwk {
		j, err := a.reg.JWK(kp)
		if err != nil {
			return err
		}
		out, err := jwk.Marshal(j)
		if err != nil {
			return err
		}
		if f.out != "" {
			return keyfile.Write(f.out, append(out, '\n'), f.force)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	}

	if f.out == "" {
		return emit(cmd.OutOrStdout(), kp.PublicKey(), kp.PrivateKey())
	}
	if err := keyfile.SaveKeys(kp, f.out, f.force); err != nil {
		return err
	}
	a.logger.Info("Key pair written", "path", f.out, "kind", kind)
	return nil
}
