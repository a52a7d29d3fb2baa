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

// Package mood classifies tracks into mood categories from their valence and
// arousal annotations.
package mood

import (
	"sort"
	"strings"

	"github.com/chewxy/math32"
	"github.com/juju/errors"
)

// Category is a mood quadrant in the valence/arousal plane.
type Category int

const (
	Unknown Category = iota
	Energetic
	Relaxed
	Angry
	Sad
)

func (c Category) String() string {
	switch c {
	case Energetic:
		return "energetic"
	case Relaxed:
		return "relaxed"
	case Angry:
		return "angry"
	case Sad:
		return "sad"
	default:
		return "unknown"
	}
}

// ParseCategory converts a category name back to a Category.
func ParseCategory(name string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "energetic":
		return Energetic, nil
	case "relaxed":
		return Relaxed, nil
	case "angry":
		return Angry, nil
	case "sad":
		return Sad, nil
	default:
		return Unknown, errors.NotValidf("mood category %q", name)
	}
}

// Centroid returns the representative (valence, arousal) point of a category,
// used to rank candidates when no track classifies into the requested mood.
func (c Category) Centroid() (valence, arousal float32) {
	switch c {
	case Energetic:
		return 0.8, 0.8
	case Relaxed:
		return 0.8, 0.2
	case Angry:
		return 0.2, 0.8
	case Sad:
		return 0.2, 0.2
	default:
		return 0.5, 0.5
	}
}

// Classify maps a (valence, arousal) pair to its mood quadrant. Both axes
// split at 0.5, with the upper half inclusive.
func Classify(valence, arousal float32) Category {
	switch {
	case valence >= 0.5 && arousal >= 0.5:
		return Energetic
	case valence >= 0.5:
		return Relaxed
	case arousal >= 0.5:
		return Angry
	default:
		return Sad
	}
}

var keywords = map[Category][]string{
	Energetic: {"energetic", "energy", "excited", "dance", "edm", "party", "happy", "hype", "workout"},
	Relaxed:   {"relaxed", "relax", "calm", "chill", "acoustic", "sleep", "study", "quiet"},
	Angry:     {"angry", "rage", "hard", "rock", "metal", "intense"},
	Sad:       {"sad", "melancholy", "ballad", "lonely", "cry", "heartbreak"},
}

// order keeps keyword matching deterministic across map iteration
var keywordOrder = []Category{Energetic, Relaxed, Angry, Sad}

// FromText guesses a mood category from a free-text description. Unmatched
// text defaults to Relaxed.
func FromText(text string) Category {
	t := strings.ToLower(text)
	for _, category := range keywordOrder {
		for _, word := range keywords[category] {
			if strings.Contains(t, word) {
				return category
			}
		}
	}
	return Relaxed
}

// Candidate is a track eligible for mood ranking.
type Candidate struct {
	TrackID int32   `json:"track_id"`
	Valence float32 `json:"valence"`
	Arousal float32 `json:"arousal"`
}

// Rank returns up to topK candidates for a mood. Candidates classifying into
// the requested category are returned in their incoming order. When none
// match, the nearest candidates by distance to the category centroid are
// returned instead.
func Rank(category Category, candidates []Candidate, topK int) []Candidate {
	matched := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if Classify(candidate.Valence, candidate.Arousal) == category {
			matched = append(matched, candidate)
		}
	}
	if len(matched) == 0 && len(candidates) > 0 {
		cx, cy := category.Centroid()
		matched = append(matched, candidates...)
		sort.SliceStable(matched, func(i, j int) bool {
			return distance(matched[i], cx, cy) < distance(matched[j], cx, cy)
		})
	}
	if topK > 0 && len(matched) > topK {
		matched = matched[:topK]
	}
	return matched
}

func distance(c Candidate, x, y float32) float32 {
	dx := c.Valence - x
	dy := c.Arousal - y
	return math32.Sqrt(dx*dx + dy*dy)
}
