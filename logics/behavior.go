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
	"github.com/harmonia-fm/harmonia/storage/data"
)

const (
	// seconds of listening counted as one play-equivalent
	secondsPerPlay = 30.0
	// flat bonus per interaction marked completed or reaching the 75% milestone
	completionBonus = 1.0
	// fixed boost for a liked track, independent of play count
	likeBoost = 10.0
)

// BehaviorScores ranks tracks by a single user's own listening history,
// ignoring the trained model and every other user. The result is empty when
// the user has no recorded behavior; the caller decides whether to fall back
// to cold start.
func BehaviorScores(behaviors []data.Behavior, liked []int32) []Score {
	scores := make(map[int32]float64, len(behaviors))
	for _, b := range behaviors {
		scores[b.TrackID] = float64(b.SecondsListened)/secondsPerPlay + float64(b.Completions)*completionBonus
	}
	for _, trackID := range liked {
		scores[trackID] += likeBoost
	}
	if len(scores) == 0 {
		return nil
	}
	ranked := make([]Score, 0, len(scores))
	for trackID, score := range scores {
		ranked = append(ranked, Score{TrackID: trackID, Score: score})
	}
	sortScores(ranked)
	return ranked
}
