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

package mood

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	assert.Equal(t, Energetic, Classify(0.8, 0.8))
	assert.Equal(t, Relaxed, Classify(0.8, 0.2))
	assert.Equal(t, Angry, Classify(0.2, 0.8))
	assert.Equal(t, Sad, Classify(0.2, 0.2))
	// boundary belongs to the upper half
	assert.Equal(t, Energetic, Classify(0.5, 0.5))
	assert.Equal(t, Relaxed, Classify(0.5, 0.49))
}

func TestParseCategory(t *testing.T) {
	for _, category := range []Category{Energetic, Relaxed, Angry, Sad} {
		parsed, err := ParseCategory(category.String())
		assert.NoError(t, err)
		assert.Equal(t, category, parsed)
	}
	parsed, err := ParseCategory(" Energetic ")
	assert.NoError(t, err)
	assert.Equal(t, Energetic, parsed)
	_, err = ParseCategory("cheerful")
	assert.Error(t, err)
}

func TestFromText(t *testing.T) {
	assert.Equal(t, Energetic, FromText("I want some EDM to dance to"))
	assert.Equal(t, Relaxed, FromText("something chill for studying"))
	assert.Equal(t, Angry, FromText("heavy metal please"))
	assert.Equal(t, Sad, FromText("a ballad for a rainy day"))
	assert.Equal(t, Relaxed, FromText("surprise me"))
}

func TestRank(t *testing.T) {
	candidates := []Candidate{
		{TrackID: 1, Valence: 0.9, Arousal: 0.9},
		{TrackID: 2, Valence: 0.9, Arousal: 0.1},
		{TrackID: 3, Valence: 0.1, Arousal: 0.9},
		{TrackID: 4, Valence: 0.1, Arousal: 0.1},
		{TrackID: 5, Valence: 0.7, Arousal: 0.6},
	}
	ranked := Rank(Energetic, candidates, 10)
	assert.Equal(t, []int32{1, 5}, trackIDs(ranked))

	// topK truncates
	ranked = Rank(Energetic, candidates, 1)
	assert.Equal(t, []int32{1}, trackIDs(ranked))

	// no candidate classifies as relaxed: nearest to the centroid win
	ranked = Rank(Relaxed, []Candidate{
		{TrackID: 1, Valence: 0.9, Arousal: 0.9},
		{TrackID: 2, Valence: 0.6, Arousal: 0.6},
	}, 10)
	assert.Equal(t, []int32{2, 1}, trackIDs(ranked))

	assert.Empty(t, Rank(Sad, nil, 10))
}

func trackIDs(candidates []Candidate) []int32 {
	ids := make([]int32, 0, len(candidates))
	for _, candidate := range candidates {
		ids = append(ids, candidate.TrackID)
	}
	return ids
}
