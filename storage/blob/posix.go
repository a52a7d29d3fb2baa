// Copyright 2025 harmonia Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package blob stores cached preview assets on the local filesystem.
package blob

import (
	"io"
	"os"
	"path"
)

type POSIX struct {
	dir string
}

func NewPOSIX(dir string) *POSIX {
	return &POSIX{dir: dir}
}

// Exists reports whether a file is present in the store.
func (p *POSIX) Exists(name string) bool {
	_, err := os.Stat(path.Join(p.dir, name))
	return err == nil
}

// Open a file for reading. It returns an io.Reader that can be used to read the file's content.
func (p *POSIX) Open(name string) (io.ReadCloser, error) {
	return os.Open(path.Join(p.dir, name))
}

// Put writes the content of r to a file, replacing any previous content. The
// file appears atomically under its final name.
func (p *POSIX) Put(name string, r io.Reader) error {
	fullPath := path.Join(p.dir, name)
	if err := os.MkdirAll(path.Dir(fullPath), os.ModePerm); err != nil {
		return err
	}
	temp, err := os.CreateTemp(path.Dir(fullPath), ".tmp-*")
	if err != nil {
		return err
	}
	if _, err = io.Copy(temp, r); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return err
	}
	if err = temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return err
	}
	return os.Rename(temp.Name(), fullPath)
}

// Remove deletes a file from the store.
func (p *POSIX) Remove(name string) error {
	return os.Remove(path.Join(p.dir, name))
}
