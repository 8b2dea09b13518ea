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
	"runtime"

	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keyfile"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newJWKCmd(a *app) *cobra.Command {
	var (
		pass   string
		public bool
	)
	cmd := &cobra.Command{
		Use:   "jwk FILE...",
		Short: "Describe PEM files as JSON Web Keys",
		Long: `Print the JWK of a PEM file. Several files are printed as a JWK set
({"keys": [...]}) in the order given.

A file may hold a public key, a private key or both. Encrypted private keys
need --passphrase, which may be given as env:NAME.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := passphrase(pass)
			if err != nil {
				return err
			}
			keys, err := a.describe(cmd, args, p, public)
			if err != nil {
				return err
			}
			var out []byte
			if len(keys) == 1 {
				out, err = jwk.Marshal(keys[0])
			} else {
				out, err = jwk.MarshalSet(keys)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringVar(&pass, "passphrase", "", "passphrase of encrypted private keys (or env:NAME)")
	cmd.Flags().BoolVar(&public, "public", false, "omit private members")
	return cmd
}

// describe converts the PEM files at paths concurrently. The result keeps
// the order of paths.
func (a *app) describe(cmd *cobra.Command, paths []string, pass string, public bool) ([]jwk.JWK, error) {
	keys := make([]jwk.JWK, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := keyfile.Read(path)
			if err != nil {
				return err
			}
			kp, err := a.prov.Parse(text, pass)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			j, err := a.reg.JWK(kp)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if public {
				j = j.Public()
			}
			keys[i] = j
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Debug("Keys described", "count", len(keys))
	return keys, nil
}

func newPEMCmd(a *app) *cobra.Command {
	var public bool
	cmd := &cobra.Command{
		Use:   "pem FILE",
		Short: "Convert a JSON Web Key to PEM",
		Long: `Rebuild the PEM encoding of a JWK. The key type is taken from its "kty"
member. A JWK set is converted key by key.

A JWK with a "d" member yields a private key, otherwise a public key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := keyfile.Read(args[0])
			if err != nil {
				return err
			}
			keys, err := readKeys([]byte(text))
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			for i, j := range keys {
				if public {
					j = j.Public()
				}
				out, err := a.reg.Convert(j)
				if err != nil {
					return fmt.Errorf("key %d: %w", i, err)
				}
				if err := emit(cmd.OutOrStdout(), out); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&public, "public", false, "output the public key only")
	return cmd
}

// readKeys parses a single JWK or a JWK set.
func readKeys(data []byte) ([]jwk.JWK, error) {
	j, err := jwk.Unmarshal(data)
	if err == nil {
		return []jwk.JWK{j}, nil
	}
	if !errors.Is(err, jwk.ErrNoKty) {
		return nil, err
	}
	keys, setErr := jwk.UnmarshalSet(data)
	if setErr != nil {
		return nil, setErr
	}
	if len(keys) == 0 {
		return nil, err
	}
	return keys, nil
}
