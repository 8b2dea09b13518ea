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
	"io"
	"log/slog"
	"strings"

	"github.com/deep-rent/keykit/config"
	"github.com/deep-rent/keykit/env"
	"github.com/deep-rent/keykit/jose/jwk"
	"github.com/deep-rent/keykit/keymat"
	"github.com/deep-rent/keykit/log"
	"github.com/deep-rent/keykit/provider"
	"github.com/deep-rent/keykit/registry"
	"github.com/spf13/cobra"
)

// app carries the state shared by all subcommands. It is populated by the
// root command before any subcommand runs.
type app struct {
	cfg    Config
	logger *slog.Logger
	reg    *registry.Registry
	prov   *provider.Provider

	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: DefaultConfig()}
	root := &cobra.Command{
		Use:   "keykit",
		Short: "Generate, convert and store asymmetric key pairs",
		Long: `keykit handles RSA, EC and OKP (Ed25519, Ed448) key pairs.

It converts between PEM and JSON Web Key (JWK) encodings and keeps keys in a
directory or a PostgreSQL database.

Examples:
  # Generate an EC key pair on secp384r1
  keykit gen --type ec --curve secp384r1 --out keys/signing.pem

  # Describe one or more PEM files as JWKs
  keykit jwk keys/signing.pem keys/backup.pem

  # Rebuild the PEM encoding of a JWK
  keykit pem signing.jwk.json

  # Sign a file and check the signature
  keykit sign --hash sha384 --in doc.txt keys/signing.pem
  keykit verify --hash sha384 --in doc.txt keys/signing.pem SIGNATURE`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "configuration file (.yaml, .yml or .json)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format (text, json)")

	root.AddCommand(
		newGenCmd(a),
		newJWKCmd(a),
		newPEMCmd(a),
		newStoreCmd(a),
		newSignCmd(a),
		newVerifyCmd(a),
		newEncryptCmd(a),
		newDecryptCmd(a),
	)
	return root
}

// setup loads the configuration, applies environment and flag overrides (in
// that order) and builds the logger, registry and provider.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		if err := config.Load(a.configPath, &a.cfg); err != nil {
			return err
		}
	}
	if err := env.Unmarshal(&a.cfg, env.WithPrefix(EnvPrefix)); err != nil {
		return err
	}
	if a.logLevel != "" {
		a.cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		a.cfg.Log.Format = a.logFormat
	}
	if err := a.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	a.logger = log.New(append(a.cfg.Log.Options(), log.WithWriter(cmd.ErrOrStderr()))...)
	a.reg = registry.New(
		registry.WithLogger(a.logger),
		registry.WithCodec(keymat.OKP, func() jwk.Codec { return jwk.OKP }),
	)
	a.reg.Freeze()
	a.prov = provider.New(a.reg, provider.WithLogger(a.logger))

	if a.configPath != "" {
		a.logger.Debug("Configuration loaded", "path", a.configPath)
	}
	return nil
}

// passphrase resolves a passphrase flag value.
func passphrase(v string) (string, error) {
	p, err := provider.ResolvePassphrase(v)
	if err != nil {
		return "", fmt.Errorf("passphrase: %w", err)
	}
	return p, nil
}

// emit writes each PEM text to w, each terminated by a line break.
func emit(w io.Writer, texts ...string) error {
	for _, text := range texts {
		if text == "" {
			continue
		}
		if !strings.HasSuffix(text, "\n") {
			text += "\n"
		}
		if _, err := io.WriteString(w, text); err != nil {
			return err
		}
	}
	return nil
}
