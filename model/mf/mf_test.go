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
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-fm/harmonia/base/floats"
)

func testArtifact() *Artifact {
	return &Artifact{
		UserIDs:     []int32{4, 7},
		TrackIDs:    []int32{101, 102, 103},
		UserFactors: [][]float32{{1, 0}, {0, 1}},
		ItemFactors: [][]float32{{0.5, 0.1}, {0.9, 0.2}, {0.1, 0.8}},
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	artifact := testArtifact()
	assert.NoError(t, artifact.Save(path))
	loaded, err := LoadArtifact(path)
	assert.NoError(t, err)
	assert.Equal(t, artifact, loaded)
}

func TestLoadArtifactCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	assert.NoError(t, os.WriteFile(path, []byte("not a model"), 0644))
	_, err := LoadArtifact(path)
	assert.Error(t, err)
}

func TestMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	// missing sidecar means never trained
	metadata, err := LoadMetadata(path)
	assert.NoError(t, err)
	assert.Nil(t, metadata)

	assert.NoError(t, (&Metadata{UserCount: 3, InteractionCount: 42}).Save(path))
	metadata, err = LoadMetadata(path)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), metadata.UserCount)
	assert.Equal(t, int64(42), metadata.InteractionCount)
}

func TestStoreMissingArtifact(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.bin"))
	assert.False(t, store.Loaded())
	_, ok := store.LookupUser(4)
	assert.False(t, ok)
	_, ok = store.LookupTrack(101)
	assert.False(t, ok)
}

func TestStoreCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))
	store := NewStore(path)
	assert.False(t, store.Loaded())
}

func TestStoreLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, testArtifact().Save(path))
	store := NewStore(path)
	require.True(t, store.Loaded())

	index, ok := store.LookupUser(4)
	assert.True(t, ok)
	assert.Equal(t, []float32{1, 0}, store.UserFactor(index))
	_, ok = store.LookupUser(99)
	assert.False(t, ok)

	index, ok = store.LookupTrack(102)
	assert.True(t, ok)
	assert.Equal(t, 1, index)
	assert.Equal(t, []int32{101, 102, 103}, store.TrackIDs())
}

func TestStoreReloadIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, testArtifact().Save(path))
	store := NewStore(path)
	require.True(t, store.Loaded())

	store.Reload()
	first := store.artifact
	store.Reload()
	assert.True(t, store.Loaded())
	assert.Equal(t, first, store.artifact)
}

func TestStoreReloadIfStale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.bin")
	require.NoError(t, testArtifact().Save(path))
	store := NewStore(path)
	require.True(t, store.Loaded())

	// replace the artifact with a newer one
	updated := testArtifact()
	updated.UserIDs = []int32{4, 7, 9}
	updated.UserFactors = append(updated.UserFactors, []float32{1, 1})
	require.NoError(t, updated.Save(path))
	require.NoError(t, os.Chtimes(path, time.Now(), time.Now().Add(time.Second)))

	store.ReloadIfStale()
	_, ok := store.LookupUser(9)
	assert.True(t, ok)
}

func TestFit(t *testing.T) {
	// two taste clusters: users 1-5 play tracks 10,11; users 6-10 play 20,21
	var feedback []Feedback
	for u := int32(1); u <= 5; u++ {
		feedback = append(feedback,
			Feedback{UserID: u, TrackID: 10, Weight: 2},
			Feedback{UserID: u, TrackID: 11, Weight: 1})
	}
	for u := int32(6); u <= 10; u++ {
		feedback = append(feedback,
			Feedback{UserID: u, TrackID: 20, Weight: 2},
			Feedback{UserID: u, TrackID: 21, Weight: 1})
	}
	artifact := Fit(feedback, NewFitConfig().SetFactors(8).SetEpochs(20))
	assert.Len(t, artifact.UserIDs, 10)
	assert.Len(t, artifact.TrackIDs, 4)

	index := func(ids []int32, id int32) int {
		for i, v := range ids {
			if v == id {
				return i
			}
		}
		t.Fatalf("id %d not found", id)
		return -1
	}
	score := func(userID, trackID int32) float32 {
		u := index(artifact.UserIDs, userID)
		i := index(artifact.TrackIDs, trackID)
		return floats.Dot(artifact.UserFactors[u], artifact.ItemFactors[i])
	}
	// a user prefers tracks from their own cluster
	assert.Greater(t, score(1, 10), score(1, 20))
	assert.Greater(t, score(6, 20), score(6, 10))
}
