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
	"context"
	"math"
	"sort"

	"github.com/juju/errors"
	"github.com/samber/lo"

	"github.com/harmonia-fm/harmonia/storage/data"
)

const (
	// each distinct matched track outweighs ten play-equivalents
	playlistMatchWeight = 10.0
	// playlists returned when no artist matches anything
	fallbackPlaylistLimit = 10
)

// PlaylistScore is a playlist ranked against a set of preferred artists.
type PlaylistScore struct {
	ID    int32  `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// RankPlaylists scores playlists by their overlap with the given artists:
// matched tracks weigh fixed, recorded listening adds play-equivalents.
// The result is empty when no playlist contains a matched track; the caller
// decides whether to fall back to the largest playlists.
func RankPlaylists(matches []data.PlaylistMatch) []PlaylistScore {
	ranked := lo.Map(matches, func(m data.PlaylistMatch, _ int) PlaylistScore {
		score := float64(m.PlaySeconds)/secondsPerPlay + float64(m.MatchCount)*playlistMatchWeight
		return PlaylistScore{ID: m.PlaylistID, Name: m.Name, Score: int(math.Round(score))}
	})
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// RecommendPlaylists ranks playlists for the given artists, falling back to
// the largest playlists with zero scores when nothing matches.
func (r *Recommender) RecommendPlaylists(ctx context.Context, artistIDs []int32) ([]PlaylistScore, error) {
	if len(artistIDs) == 0 {
		return nil, nil
	}
	matches, err := r.database.MatchPlaylists(ctx, artistIDs)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if ranked := RankPlaylists(matches); len(ranked) > 0 {
		return ranked, nil
	}
	largest, err := r.database.LargestPlaylists(ctx, fallbackPlaylistLimit)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(largest, func(m data.PlaylistMatch, _ int) PlaylistScore {
		return PlaylistScore{ID: m.PlaylistID, Name: m.Name}
	}), nil
}
