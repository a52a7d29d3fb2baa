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

// ColdStart ranks tracks by global play count for users without trained
// personalization data. Scores are normalized to [0,1] by the maximum count.
// Without any interaction history the result is empty.
func ColdStart(popular []data.PlayCount) []Score {
	if len(popular) == 0 {
		return nil
	}
	maxCount := popular[0].Count
	for _, p := range popular {
		if p.Count > maxCount {
			maxCount = p.Count
		}
	}
	scores := make([]Score, 0, len(popular))
	for _, p := range popular {
		scores = append(scores, Score{TrackID: p.TrackID, Score: float64(p.Count) / float64(maxCount)})
	}
	sortScores(scores)
	return scores
}
