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

// Package logics implements the serving-side recommendation strategies.
package logics

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/harmonia-fm/harmonia/base/floats"
)

// Score is a ranked track.
type Score struct {
	TrackID int32   `json:"track_id"`
	Score   float64 `json:"score"`
}

func sortScores(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].TrackID < scores[j].TrackID
	})
}

// RankByDot scores every item against a user's latent vector by plain dot
// product. The score is a preference, not a similarity: it is unbounded and
// magnitude-sensitive, which is what ranking wants. Items below minScore are
// dropped. The result is ordered by score descending, ties broken by track id.
func RankByDot(userVector []float32, itemFactors [][]float32, trackIDs []int32, minScore float64) []Score {
	scores := make([]Score, 0, len(trackIDs))
	for i, vector := range itemFactors {
		score := float64(floats.Dot(vector, userVector))
		if score >= minScore {
			scores = append(scores, Score{TrackID: trackIDs[i], Score: score})
		}
	}
	sortScores(scores)
	return scores
}

// Exclude drops every track present in the excluded set.
func Exclude(scores []Score, excluded mapset.Set[int32]) []Score {
	if excluded == nil || excluded.Cardinality() == 0 {
		return scores
	}
	filtered := scores[:0]
	for _, s := range scores {
		if !excluded.Contains(s.TrackID) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// FilterExisting keeps only tracks whose ids appear in existing. The factor
// artifact may be arbitrarily stale relative to the live catalog, so deleted
// tracks must be dropped defensively.
func FilterExisting(scores []Score, existing []int32) []Score {
	existingSet := mapset.NewThreadUnsafeSet(existing...)
	filtered := scores[:0]
	for _, s := range scores {
		if existingSet.Contains(s.TrackID) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}
