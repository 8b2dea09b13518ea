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

// Package keyfile persists PEM encoded key material to the file system.
//
// All writers refuse to replace an existing file unless overwrite is set,
// create missing parent directories, and flush the file to stable storage
// before closing it. Files holding private key material get mode 0600,
// public key files mode 0644, including files they replace.
package keyfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/deep-rent/keykit/keymat"
)

// File and directory permissions.
const (
	PrivatePerm fs.FileMode = 0o600
	PublicPerm  fs.FileMode = 0o644
	DirPerm     fs.FileMode = 0o775
)

var (
	// ErrExists is wrapped by an *IOError when the destination exists and
	// overwriting was not permitted. It matches fs.ErrExist.
	ErrExists = fmt.Errorf("file already exists: %w", fs.ErrExist)
	// ErrNoKey is returned when the key pair lacks the material to save.
	ErrNoKey = errors.New("no key material to save")
)

// IOError records a failed file system operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

// Write stores data at path with mode 0600.
func Write(path string, data []byte, overwrite bool) error {
	return write(path, data, PrivatePerm, overwrite)
}

// Read returns the contents of the file at path.
func Read(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", &IOError{Op: "read", Path: path, Err: err}
	}
	return string(b), nil
}

// SaveKeys writes the public and then the private key PEM of kp to a single
// file, separated by a newline. Both keys must be present.
func SaveKeys(kp *keymat.Keypair, path string, overwrite bool) error {
	if !kp.HasPublic() || !kp.HasPrivate() {
		return ErrNoKey
	}
	text := kp.PublicKey() + "\n" + kp.PrivateKey()
	return write(path, terminate(text), PrivatePerm, overwrite)
}

// SavePublicKey writes the public key PEM of kp.
func SavePublicKey(kp *keymat.Keypair, path string, overwrite bool) error {
	if !kp.HasPublic() {
		return ErrNoKey
	}
	return write(path, terminate(kp.PublicKey()), PublicPerm, overwrite)
}

// SavePrivateKey writes the private key PEM of kp.
func SavePrivateKey(kp *keymat.Keypair, path string, overwrite bool) error {
	if !kp.HasPrivate() {
		return ErrNoKey
	}
	return write(path, terminate(kp.PrivateKey()), PrivatePerm, overwrite)
}

// terminate makes sure text ends with a line break.
func terminate(text string) []byte {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return []byte(text)
}

func write(path string, data []byte, perm fs.FileMode, overwrite bool) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return &IOError{Op: "mkdir", Path: dir, Err: err}
	}
	flag := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flag |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flag, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			err = ErrExists
		}
		return &IOError{Op: "open", Path: path, Err: err}
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = &IOError{Op: "close", Path: path, Err: e}
		}
	}()
	// OpenFile keeps the mode of a file it truncates.
	if overwrite {
		if err := f.Chmod(perm); err != nil {
			return &IOError{Op: "chmod", Path: path, Err: err}
		}
	}
	if _, err := f.Write(data); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &IOError{Op: "sync", Path: path, Err: err}
	}
	return nil
}
