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

package main

import (
	"context"
	"sort"
	"time"

	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/config"
	"github.com/harmonia-fm/harmonia/model/mf"
	"github.com/harmonia-fm/harmonia/storage/data"
)

// confidence weights mirror the behavioral scoring scale
const (
	secondsPerPlay  = 30.0
	completionBonus = 1.0
	likeBoost       = 10.0
)

// buildFeedback aggregates play history and likes into weighted training
// feedback, one entry per observed (user, track) pair.
func buildFeedback(interactions []data.Interaction, likes []data.TrackLike) []mf.Feedback {
	type pair struct {
		user, track int32
	}
	weights := make(map[pair]float32)
	for _, interaction := range interactions {
		if interaction.TrackID == nil {
			continue
		}
		key := pair{user: interaction.UserID, track: *interaction.TrackID}
		weights[key] += float32(interaction.SecondsListened) / secondsPerPlay
		if interaction.IsCompleted || (interaction.Milestone != nil && *interaction.Milestone >= 75) {
			weights[key] += completionBonus
		}
	}
	for _, like := range likes {
		weights[pair{user: like.UserID, track: like.TrackID}] += likeBoost
	}
	feedback := make([]mf.Feedback, 0, len(weights))
	for key, weight := range weights {
		feedback = append(feedback, mf.Feedback{UserID: key.user, TrackID: key.track, Weight: weight})
	}
	// map iteration order is random, keep training deterministic
	sort.Slice(feedback, func(i, j int) bool {
		if feedback[i].UserID != feedback[j].UserID {
			return feedback[i].UserID < feedback[j].UserID
		}
		return feedback[i].TrackID < feedback[j].TrackID
	})
	return feedback
}

func train(ctx context.Context, conf *config.Config, database data.Database) error {
	start := time.Now()
	interactions, err := database.AllInteractions(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	likes, err := database.AllLikes(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	feedback := buildFeedback(interactions, likes)
	if len(feedback) == 0 {
		log.Logger().Warn("no feedback to train on, leaving the model unchanged")
		return nil
	}

	artifact := mf.Fit(feedback, mf.NewFitConfig().
		SetFactors(conf.Train.Factors).
		SetEpochs(conf.Train.Epochs))
	if err = artifact.Save(conf.Recommend.ModelPath); err != nil {
		return errors.Trace(err)
	}

	users, err := database.CountUsers(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	count, err := database.CountInteractions(ctx)
	if err != nil {
		return errors.Trace(err)
	}
	metadata := mf.Metadata{UserCount: users, InteractionCount: count}
	if err = metadata.Save(conf.Recommend.MetaPath); err != nil {
		return errors.Trace(err)
	}

	log.Logger().Info("model trained",
		zap.Int("feedback", len(feedback)),
		zap.Int("users", len(artifact.UserIDs)),
		zap.Int("tracks", len(artifact.TrackIDs)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
