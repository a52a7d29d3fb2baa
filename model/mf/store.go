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

package mf

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
)

// Store serves a factor artifact from memory with O(1) id→row lookup. Load
// failures are absorbed: the store simply reports itself as not loaded and the
// caller falls back to non-model strategies.
//
// Reload swaps the whole state without a reader-writer lock. Concurrent
// readers during a swap may observe a mix of old and new state; retrains are
// rare debounced events and a transiently inconsistent score is acceptable.
type Store struct {
	path         string
	loaded       bool
	artifact     *Artifact
	userIndex    map[int32]int
	trackIndex   map[int32]int
	lastModified time.Time
}

// NewStore creates a store and attempts an initial load.
func NewStore(path string) *Store {
	store := &Store{path: path}
	store.Load()
	return store
}

// Load reads the artifact from disk. A missing or malformed file leaves the
// store unloaded and never returns an error to the caller.
func (s *Store) Load() {
	stat, err := os.Stat(s.path)
	if err != nil {
		log.Logger().Warn("model artifact not found", zap.String("path", s.path))
		s.loaded = false
		return
	}
	artifact, err := LoadArtifact(s.path)
	if err != nil {
		log.Logger().Error("failed to load model artifact", zap.String("path", s.path), zap.Error(err))
		s.loaded = false
		return
	}
	userIndex := make(map[int32]int, len(artifact.UserIDs))
	for i, id := range artifact.UserIDs {
		userIndex[id] = i
	}
	trackIndex := make(map[int32]int, len(artifact.TrackIDs))
	for i, id := range artifact.TrackIDs {
		trackIndex[id] = i
	}
	s.artifact = artifact
	s.userIndex = userIndex
	s.trackIndex = trackIndex
	s.lastModified = stat.ModTime()
	s.loaded = true
	log.Logger().Info("model artifact loaded",
		zap.Int("users", len(artifact.UserIDs)),
		zap.Int("tracks", len(artifact.TrackIDs)))
}

// Reload discards the in-memory state and loads the artifact again.
func (s *Store) Reload() {
	s.loaded = false
	s.Load()
}

// ReloadIfStale reloads when the artifact file has changed since the last
// load. Called opportunistically from the serving path.
func (s *Store) ReloadIfStale() {
	stat, err := os.Stat(s.path)
	if err != nil {
		return
	}
	if !s.loaded || stat.ModTime().After(s.lastModified) {
		if s.loaded {
			log.Logger().Info("model artifact updated, reloading", zap.String("path", s.path))
		}
		s.Load()
	}
}

// Loaded reports whether an artifact is being served.
func (s *Store) Loaded() bool {
	return s.loaded
}

// LookupUser returns the factor row of a user id.
func (s *Store) LookupUser(id int32) (int, bool) {
	if !s.loaded {
		return 0, false
	}
	index, ok := s.userIndex[id]
	return index, ok
}

// LookupTrack returns the factor row of a track id.
func (s *Store) LookupTrack(id int32) (int, bool) {
	if !s.loaded {
		return 0, false
	}
	index, ok := s.trackIndex[id]
	return index, ok
}

// UserFactor returns the latent vector of a user row.
func (s *Store) UserFactor(index int) []float32 {
	return s.artifact.UserFactors[index]
}

// ItemFactor returns the latent vector of an item row.
func (s *Store) ItemFactor(index int) []float32 {
	return s.artifact.ItemFactors[index]
}

// ItemFactors returns every item vector, row i belonging to TrackIDs()[i].
func (s *Store) ItemFactors() [][]float32 {
	return s.artifact.ItemFactors
}

// TrackIDs returns the track ids of the artifact.
func (s *Store) TrackIDs() []int32 {
	return s.artifact.TrackIDs
}
