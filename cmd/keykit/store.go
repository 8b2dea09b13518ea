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
	"github.com/deep-rent/keykit/keystore"
	"github.com/spf13/cobra"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage keys in the configured key store",
		Long: `Put, get, list and remove named key pairs.

The store backend is set in the configuration file:

  store:
    backend: dir        # or postgres
    dir: keys
    dsn: postgres://keykit:${PGPASSWORD}@db/keys?sslmode=disable

Any setting can be overridden from the environment, for example
KEYKIT_STORE_BACKEND or KEYKIT_STORE_DSN.`,
	}
	cmd.AddCommand(
		newStorePutCmd(a),
		newStoreGetCmd(a),
		newStoreListCmd(a),
		newStoreRmCmd(a),
	)
	return cmd
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(keystore.Store) error) (err error) {
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close store: %w", cerr)
		}
	}()
	return fn(s)
}

func newStorePutCmd(a *app) *cobra.Command {
	var (
		pass  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "put NAME FILE",
		Short: "Add a PEM file to the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			p, err := passphrase(pass)
			if err != nil {
				return err
			}
			text, err := keyfile.Read(path)
			if err != nil {
				return err
			}
			kp, err := a.prov.Parse(text, p)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			return a.withStore(cmd, func(s keystore.Store) error {
				if err := s.Put(cmd.Context(), name, kp, force); err != nil {
					return err
				}
				a.logger.Info("Key stored", "name", name, "kind", kp.Kind())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pass, "passphrase", "", "passphrase of an encrypted private key (or env:NAME)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing key")
	return cmd
}

func newStoreGetCmd(a *app) *cobra.Command {
	var asJWK, public bool
	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print a stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s keystore.Store) error {
				kp, err := s.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if !asJWK {
					if public {
						return emit(w, kp.PublicKey())
					}
					return emit(w, kp.PublicKey(), kp.PrivateKey())
				}
				j, err := a.reg.JWK(kp)
				if err != nil {
					return err
				}
				if public {
					j = j.Public()
				}
				out, err := jwk.Marshal(j)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(w, string(out))
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&asJWK, "jwk", false, "print the key as a JWK")
	cmd.Flags().BoolVar(&public, "public", false, "print the public key only")
	return cmd
}

func newStoreListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored key names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd, func(s keystore.Store) error {
				names, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				for _, name := range names {
					if _, err := fmt.Fprintln(cmd.OutOrStdout(), name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newStoreRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm NAME...",
		Aliases: []string{"delete"},
		Short:   "Remove stored keys",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(s keystore.Store) error {
				for _, name := range args {
					if err := s.Delete(cmd.Context(), name); err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					a.logger.Info("Key removed", "name", name)
				}
				return nil
			})
		},
	}
}
