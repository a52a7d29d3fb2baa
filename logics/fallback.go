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
	"math"
	"math/rand"
)

// SeededFallback produces a deterministic pseudo-random ranking over the id
// space [1, maxTrackID] when no model and no interaction-based fallback is
// available. The shuffle and jitter are seeded by the user id, so the same
// user always sees the same list while different users see different ones.
func SeededFallback(userID int32, maxTrackID int32, limit int) []Score {
	if maxTrackID <= 0 || limit <= 0 {
		return nil
	}
	rng := rand.New(rand.NewSource(int64(userID)))
	candidates := make([]int32, maxTrackID)
	for i := range candidates {
		candidates[i] = int32(i + 1)
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if len(candidates) > limit*2 {
		candidates = candidates[:limit*2]
	}
	scores := make([]Score, 0, len(candidates))
	for rank, trackID := range candidates {
		base := 1 / (1 + math.Log(float64(rank+2)))
		scores = append(scores, Score{TrackID: trackID, Score: base + rng.Float64()*0.05})
	}
	sortScores(scores)
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores
}
