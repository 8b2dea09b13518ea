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

// Command keykit generates, converts and stores asymmetric key pairs.
//
// Keys are exchanged as PEM text or as JSON Web Keys. A configuration file
// (YAML or JSON) supplies defaults for key generation, the key store and
// logging; command line flags take precedence over it.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/deep-rent/keykit/signal"
)

// Set at build time.
var version = "dev"

func main() {
	ctx, stop := signal.Shutdown(context.Background())
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "keykit:", err)
		os.Exit(1)
	}
}
