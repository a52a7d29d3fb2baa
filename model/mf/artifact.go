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

// Package mf loads and trains the matrix-factorization model behind
// personalized recommendations.
package mf

import (
	"compress/gzip"
	"encoding/gob"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/juju/errors"
)

// Artifact is an immutable snapshot of the trained factor model. Row i of
// UserFactors belongs to UserIDs[i]; same for items.
type Artifact struct {
	UserIDs     []int32
	TrackIDs    []int32
	UserFactors [][]float32
	ItemFactors [][]float32
}

// Metadata is the sidecar persisted next to the artifact. Live counts are
// compared against it to decide whether a retrain is due.
type Metadata struct {
	UserCount        int64 `json:"user_count"`
	InteractionCount int64 `json:"interaction_count"`
}

// Save writes the artifact as a gzip-compressed gob stream. The file appears
// atomically under its final name so a concurrent reader never observes a
// partial write.
func (a *Artifact) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	temp, err := os.CreateTemp(filepath.Dir(path), ".model-*")
	if err != nil {
		return errors.Trace(err)
	}
	if err = a.write(temp); err != nil {
		_ = temp.Close()
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	if err = temp.Close(); err != nil {
		_ = os.Remove(temp.Name())
		return errors.Trace(err)
	}
	return errors.Trace(os.Rename(temp.Name(), path))
}

func (a *Artifact) write(w io.Writer) error {
	gz := gzip.NewWriter(w)
	encoder := gob.NewEncoder(gz)
	for _, value := range []any{a.UserIDs, a.TrackIDs, a.UserFactors, a.ItemFactors} {
		if err := encoder.Encode(value); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(gz.Close())
}

// LoadArtifact reads an artifact written by Save.
func LoadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer gz.Close()
	artifact := new(Artifact)
	decoder := gob.NewDecoder(gz)
	for _, value := range []any{&artifact.UserIDs, &artifact.TrackIDs, &artifact.UserFactors, &artifact.ItemFactors} {
		if err := decoder.Decode(value); err != nil {
			return nil, errors.Trace(err)
		}
	}
	if len(artifact.UserIDs) != len(artifact.UserFactors) || len(artifact.TrackIDs) != len(artifact.ItemFactors) {
		return nil, errors.NotValidf("artifact: id and factor lengths differ")
	}
	return artifact, nil
}

// Save writes the metadata sidecar.
func (m *Metadata) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return errors.Trace(err)
	}
	content, err := json.Marshal(m)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(path, content, 0644))
}

// LoadMetadata reads the metadata sidecar. A missing file returns nil without
// an error, which the orchestrator treats as "never trained".
func LoadMetadata(path string) (*Metadata, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	metadata := new(Metadata)
	if err = json.Unmarshal(content, metadata); err != nil {
		return nil, errors.Trace(err)
	}
	return metadata, nil
}
