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
	"github.com/harmonia-fm/harmonia/base/floats"
)

// SimilarTracks ranks every other item by cosine similarity to the item at
// queryIndex. Unlike preference ranking this is normalized: track-to-track
// similarity should not depend on vector magnitudes. A zero-norm query vector
// yields an empty result instead of a division by zero.
func SimilarTracks(queryIndex int, itemFactors [][]float32, trackIDs []int32) []Score {
	queryVector := itemFactors[queryIndex]
	queryNorm := floats.Norm(queryVector)
	if queryNorm == 0 {
		return nil
	}
	scores := make([]Score, 0, len(trackIDs)-1)
	for i, vector := range itemFactors {
		if i == queryIndex {
			continue
		}
		norm := floats.Norm(vector)
		if norm == 0 {
			continue
		}
		similarity := float64(floats.Dot(vector, queryVector) / (norm * queryNorm))
		scores = append(scores, Score{TrackID: trackIDs[i], Score: similarity})
	}
	sortScores(scores)
	return scores
}
