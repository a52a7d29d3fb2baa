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

package logics

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/assert"

	"github.com/harmonia-fm/harmonia/storage/data"
)

var (
	testTrackIDs    = []int32{101, 102, 103}
	testItemFactors = [][]float32{{0.5, 0.1}, {0.9, 0.2}, {0.1, 0.8}}
)

func assertSorted(t *testing.T, scores []Score) {
	for i := 1; i < len(scores); i++ {
		assert.GreaterOrEqual(t, scores[i-1].Score, scores[i].Score)
	}
}

func TestRankByDot(t *testing.T) {
	userVector := []float32{1, 0}
	scores := RankByDot(userVector, testItemFactors, testTrackIDs, 0)
	assert.Len(t, scores, 3)
	assert.Equal(t, int32(102), scores[0].TrackID)
	assert.InDelta(t, 0.9, scores[0].Score, 1e-6)
	assertSorted(t, scores)

	// repeated calls return the same ordering
	again := RankByDot(userVector, testItemFactors, testTrackIDs, 0)
	assert.Equal(t, scores, again)

	// threshold drops low-preference items
	scores = RankByDot(userVector, testItemFactors, testTrackIDs, 0.4)
	assert.Len(t, scores, 2)
}

func TestExclude(t *testing.T) {
	scores := []Score{{101, 3}, {102, 2}, {103, 1}}
	filtered := Exclude(scores, mapset.NewThreadUnsafeSet[int32](102))
	assert.Equal(t, []Score{{101, 3}, {103, 1}}, filtered)
	// nil set is a no-op
	scores = []Score{{101, 3}}
	assert.Equal(t, scores, Exclude(scores, nil))
}

func TestFilterExisting(t *testing.T) {
	scores := []Score{{101, 3}, {102, 2}, {103, 1}}
	filtered := FilterExisting(scores, []int32{101, 103})
	assert.Equal(t, []Score{{101, 3}, {103, 1}}, filtered)
	assert.Empty(t, FilterExisting([]Score{{101, 3}}, nil))
}

func TestSimilarTracks(t *testing.T) {
	similar := SimilarTracks(1, testItemFactors, testTrackIDs)
	assert.Len(t, similar, 2)
	// the query track itself is excluded
	for _, s := range similar {
		assert.NotEqual(t, int32(102), s.TrackID)
	}
	// 101 points in nearly the same direction as 102, 103 is orthogonal-ish
	assert.Equal(t, int32(101), similar[0].TrackID)
	assert.Greater(t, similar[0].Score, similar[1].Score)
	// cosine similarity is bounded
	for _, s := range similar {
		assert.LessOrEqual(t, s.Score, 1.0+1e-9)
		assert.GreaterOrEqual(t, s.Score, -1.0-1e-9)
	}
}

func TestSimilarTracksZeroNorm(t *testing.T) {
	factors := [][]float32{{0, 0}, {1, 2}}
	assert.Empty(t, SimilarTracks(0, factors, []int32{1, 2}))
}

func TestColdStart(t *testing.T) {
	scores := ColdStart([]data.PlayCount{{TrackID: 10, Count: 8}, {TrackID: 20, Count: 4}, {TrackID: 30, Count: 2}})
	assert.Len(t, scores, 3)
	assert.Equal(t, Score{TrackID: 10, Score: 1.0}, scores[0])
	assert.Equal(t, Score{TrackID: 20, Score: 0.5}, scores[1])
	for _, s := range scores {
		assert.GreaterOrEqual(t, s.Score, 0.0)
		assert.LessOrEqual(t, s.Score, 1.0)
	}
	assert.Empty(t, ColdStart(nil))
}

func TestBehaviorScores(t *testing.T) {
	behaviors := []data.Behavior{
		{TrackID: 10, SecondsListened: 90, Completions: 2},
		{TrackID: 20, SecondsListened: 30, Completions: 0},
	}
	scores := BehaviorScores(behaviors, []int32{20})
	assert.Equal(t, int32(20), scores[0].TrackID)
	assert.InDelta(t, 11.0, scores[0].Score, 1e-9) // 30/30 + 10
	assert.Equal(t, int32(10), scores[1].TrackID)
	assert.InDelta(t, 5.0, scores[1].Score, 1e-9) // 90/30 + 2
}

func TestBehaviorScoresLikesOnly(t *testing.T) {
	// a user with only likes and no plays scores liked tracks at exactly 10
	scores := BehaviorScores(nil, []int32{7, 8})
	assert.Len(t, scores, 2)
	for _, s := range scores {
		assert.Equal(t, 10.0, s.Score)
	}
}

func TestBehaviorScoresEmpty(t *testing.T) {
	assert.Empty(t, BehaviorScores(nil, nil))
}

func TestSeededFallback(t *testing.T) {
	first := SeededFallback(42, 200, 10)
	assert.Len(t, first, 10)
	assertSorted(t, first)
	// stable across repeated calls for the same user
	assert.Equal(t, first, SeededFallback(42, 200, 10))
	// varied across users
	assert.NotEqual(t, first, SeededFallback(43, 200, 10))
	// empty catalog
	assert.Empty(t, SeededFallback(42, 0, 10))
}
