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

package mf

import (
	"math/rand"
	"time"

	"github.com/chewxy/math32"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/floats"
	"github.com/harmonia-fm/harmonia/base/log"
)

type entry struct {
	index  int
	weight float32
}

// Feedback is one observed (user, track) pair with a confidence weight.
type Feedback struct {
	UserID  int32
	TrackID int32
	Weight  float32
}

// FitConfig holds the training hyperparameters.
type FitConfig struct {
	Factors    int
	Epochs     int
	Reg        float32
	InitStdDev float32
	Seed       int64
}

func NewFitConfig() *FitConfig {
	return &FitConfig{
		Factors:    32,
		Epochs:     10,
		Reg:        0.015,
		InitStdDev: 0.1,
		Seed:       0,
	}
}

func (config *FitConfig) SetFactors(factors int) *FitConfig {
	config.Factors = factors
	return config
}

func (config *FitConfig) SetEpochs(epochs int) *FitConfig {
	config.Epochs = epochs
	return config
}

// Fit factorizes the implicit feedback matrix by coordinate descent,
// alternating between user and item factors each epoch. Every observed pair
// has unit preference; Weight scales its contribution to the loss.
func Fit(feedback []Feedback, config *FitConfig) *Artifact {
	start := time.Now()
	// index users and tracks in first-seen order
	userIndex := make(map[int32]int)
	trackIndex := make(map[int32]int)
	var userIDs, trackIDs []int32
	for _, f := range feedback {
		if _, ok := userIndex[f.UserID]; !ok {
			userIndex[f.UserID] = len(userIDs)
			userIDs = append(userIDs, f.UserID)
		}
		if _, ok := trackIndex[f.TrackID]; !ok {
			trackIndex[f.TrackID] = len(trackIDs)
			trackIDs = append(trackIDs, f.TrackID)
		}
	}
	userFeedback := make([][]entry, len(userIDs))
	itemFeedback := make([][]entry, len(trackIDs))
	for _, f := range feedback {
		u, i := userIndex[f.UserID], trackIndex[f.TrackID]
		userFeedback[u] = append(userFeedback[u], entry{i, f.Weight})
		itemFeedback[i] = append(itemFeedback[i], entry{u, f.Weight})
	}
	// initialize factors
	rng := rand.New(rand.NewSource(config.Seed))
	newFactors := func(n int) [][]float32 {
		factors := make([][]float32, n)
		for i := range factors {
			factors[i] = make([]float32, config.Factors)
			for f := range factors[i] {
				factors[i][f] = float32(rng.NormFloat64()) * config.InitStdDev
			}
		}
		return factors
	}
	userFactors := newFactors(len(userIDs))
	itemFactors := newFactors(len(trackIDs))

	update := func(rows [][]entry, p, q [][]float32) {
		predictions := make([]float32, 0)
		for row, entries := range rows {
			predictions = predictions[:0]
			for _, e := range entries {
				predictions = append(predictions, floats.Dot(p[row], q[e.index]))
			}
			for f := 0; f < config.Factors; f++ {
				num, den := float32(0), config.Reg
				for k, e := range entries {
					residual := 1 - predictions[k] + p[row][f]*q[e.index][f]
					num += e.weight * residual * q[e.index][f]
					den += e.weight * q[e.index][f] * q[e.index][f]
				}
				updated := num / den
				for k, e := range entries {
					predictions[k] += (updated - p[row][f]) * q[e.index][f]
				}
				p[row][f] = updated
			}
		}
	}
	for epoch := 1; epoch <= config.Epochs; epoch++ {
		update(userFeedback, userFactors, itemFactors)
		update(itemFeedback, itemFactors, userFactors)
		if epoch == config.Epochs {
			log.Logger().Debug("fit mf", zap.Int("epoch", epoch), zap.Float32("loss", loss(userFeedback, userFactors, itemFactors, config.Reg)))
		}
	}
	log.Logger().Info("fit mf complete",
		zap.Int("users", len(userIDs)),
		zap.Int("tracks", len(trackIDs)),
		zap.Int("factors", config.Factors),
		zap.Duration("fit_time", time.Since(start)))
	return &Artifact{
		UserIDs:     userIDs,
		TrackIDs:    trackIDs,
		UserFactors: userFactors,
		ItemFactors: itemFactors,
	}
}

func loss(rows [][]entry, p, q [][]float32, reg float32) float32 {
	var sum float32
	for row, entries := range rows {
		for _, e := range entries {
			residual := 1 - floats.Dot(p[row], q[e.index])
			sum += e.weight * residual * residual
		}
		sum += reg * floats.Dot(p[row], p[row])
	}
	return math32.Sqrt(sum)
}
