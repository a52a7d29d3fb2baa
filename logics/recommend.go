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
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/model/mf"
	"github.com/harmonia-fm/harmonia/storage/data"
)

// decay applied to each supplemental item so it never outranks a primary one
const supplementalDecay = 0.95

// Recommender composes the trained model with the fallback chain. Precedence:
// model ranking, cold start when the user is unknown, supplemental same-artist
// expansion when the primary ranking comes up short, and a seeded
// pseudo-random ranking when the model is absent entirely.
type Recommender struct {
	store         *mf.Store
	database      data.Database
	excludeWindow time.Duration
}

func NewRecommender(store *mf.Store, database data.Database, excludeWindow time.Duration) *Recommender {
	return &Recommender{
		store:         store,
		database:      database,
		excludeWindow: excludeWindow,
	}
}

// RecommendForUser returns up to limit tracks ordered by preference score
// descending. With excludeListened, tracks the user played inside the
// exclusion window are dropped. Model unavailability never surfaces as an
// error, only as a degraded ranking.
func (r *Recommender) RecommendForUser(ctx context.Context, userID int32, limit int, excludeListened bool, minScore float64) ([]Score, error) {
	r.store.ReloadIfStale()

	if !r.store.Loaded() {
		log.Logger().Warn("model not loaded, serving seeded fallback", zap.Int32("user_id", userID))
		return r.seededFallback(ctx, userID, limit)
	}
	userIndex, ok := r.store.LookupUser(userID)
	if !ok {
		log.Logger().Debug("user not in training data, serving cold start", zap.Int32("user_id", userID))
		return r.coldStart(ctx, limit)
	}

	recommendations := RankByDot(r.store.UserFactor(userIndex), r.store.ItemFactors(), r.store.TrackIDs(), minScore)

	listened := mapset.NewThreadUnsafeSet[int32]()
	if excludeListened {
		ids, err := r.database.ListenedTrackIDs(ctx, userID, time.Now().Add(-r.excludeWindow))
		if err != nil {
			return nil, errors.Trace(err)
		}
		listened.Append(ids...)
		recommendations = Exclude(recommendations, listened)
	}

	existing, err := r.database.FilterExistingTracks(ctx, lo.Map(recommendations, func(s Score, _ int) int32 { return s.TrackID }))
	if err != nil {
		return nil, errors.Trace(err)
	}
	recommendations = FilterExisting(recommendations, existing)

	if len(recommendations) < limit {
		exclude := mapset.NewThreadUnsafeSet[int32]()
		for _, s := range recommendations {
			exclude.Add(s.TrackID)
		}
		exclude = exclude.Union(listened)
		supplemental, err := r.supplemental(ctx, userID, exclude, limit-len(recommendations))
		if err != nil {
			return nil, errors.Trace(err)
		}
		baseScore := 0.0
		if len(recommendations) > 0 {
			baseScore = recommendations[len(recommendations)-1].Score
		}
		for i, trackID := range supplemental {
			recommendations = append(recommendations, Score{
				TrackID: trackID,
				Score:   baseScore * math.Pow(supplementalDecay, float64(i+1)),
			})
		}
	}
	recommendationsTotal.WithLabelValues("model").Inc()
	if len(recommendations) > limit {
		recommendations = recommendations[:limit]
	}
	return recommendations, nil
}

// RecommendSimilar ranks tracks by cosine similarity to the given track. An
// unknown track or an unloaded model yields an empty result.
func (r *Recommender) RecommendSimilar(ctx context.Context, trackID int32, limit int) ([]Score, error) {
	r.store.ReloadIfStale()
	trackIndex, ok := r.store.LookupTrack(trackID)
	if !ok {
		return nil, nil
	}
	similar := SimilarTracks(trackIndex, r.store.ItemFactors(), r.store.TrackIDs())
	existing, err := r.database.FilterExistingTracks(ctx, lo.Map(similar, func(s Score, _ int) int32 { return s.TrackID }))
	if err != nil {
		return nil, errors.Trace(err)
	}
	similar = FilterExisting(similar, existing)
	recommendationsTotal.WithLabelValues("similar").Inc()
	if len(similar) > limit {
		similar = similar[:limit]
	}
	return similar, nil
}

// RecommendBehavioral ranks tracks by the user's own listening history alone.
func (r *Recommender) RecommendBehavioral(ctx context.Context, userID int32, limit int) ([]Score, error) {
	behaviors, err := r.database.UserBehavior(ctx, userID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	liked, err := r.database.LikedTrackIDs(ctx, userID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores := BehaviorScores(behaviors, liked)
	recommendationsTotal.WithLabelValues("behavioral").Inc()
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

func (r *Recommender) coldStart(ctx context.Context, limit int) ([]Score, error) {
	popular, err := r.database.PopularTracks(ctx, limit*2, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	scores := ColdStart(popular)
	recommendationsTotal.WithLabelValues("cold_start").Inc()
	if len(scores) > limit {
		scores = scores[:limit]
	}
	return scores, nil
}

func (r *Recommender) seededFallback(ctx context.Context, userID int32, limit int) ([]Score, error) {
	maxTrackID, err := r.database.MaxTrackID(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	recommendationsTotal.WithLabelValues("fallback").Inc()
	return SeededFallback(userID, maxTrackID, limit), nil
}

// supplemental expands the primary ranking with catalog tracks from the
// artists of the user's most played tracks, falling back to global popularity
// when there is no play history.
func (r *Recommender) supplemental(ctx context.Context, userID int32, exclude mapset.Set[int32], limit int) ([]int32, error) {
	topPlayed, err := r.database.TopPlayedTracks(ctx, userID, 10)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(topPlayed) == 0 {
		return r.popularIDs(ctx, exclude, limit)
	}
	artistIDs, err := r.database.ArtistsOfTracks(ctx, lo.Map(topPlayed, func(p data.PlayCount, _ int) int32 { return p.TrackID }))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(artistIDs) == 0 {
		return r.popularIDs(ctx, exclude, limit)
	}
	result, err := r.database.TracksByArtists(ctx, artistIDs, exclude.ToSlice(), limit*2)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(result) < limit {
		more, err := r.popularIDs(ctx, exclude.Union(mapset.NewThreadUnsafeSet(result...)), limit-len(result))
		if err != nil {
			return nil, errors.Trace(err)
		}
		result = append(result, more...)
	}
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *Recommender) popularIDs(ctx context.Context, exclude mapset.Set[int32], limit int) ([]int32, error) {
	popular, err := r.database.PopularTracks(ctx, limit, exclude.ToSlice())
	if err != nil {
		return nil, errors.Trace(err)
	}
	return lo.Map(popular, func(p data.PlayCount, _ int) int32 { return p.TrackID }), nil
}
