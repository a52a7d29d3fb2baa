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
	"fmt"
	"path/filepath"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonia-fm/harmonia/config"
	"github.com/harmonia-fm/harmonia/model/mf"
	"github.com/harmonia-fm/harmonia/storage/data"
)

func TestBuildFeedback(t *testing.T) {
	interactions := []data.Interaction{
		{UserID: 1, TrackID: lo.ToPtr(int32(10)), SecondsListened: 60},
		{UserID: 1, TrackID: lo.ToPtr(int32(10)), SecondsListened: 30, IsCompleted: true},
		{UserID: 1, TrackID: lo.ToPtr(int32(11)), SecondsListened: 30, Milestone: lo.ToPtr(75)},
		{UserID: 2, TrackID: lo.ToPtr(int32(10)), SecondsListened: 15},
		// external plays carry no catalog track
		{UserID: 2, TrackID: nil, SecondsListened: 300},
	}
	likes := []data.TrackLike{{UserID: 2, TrackID: 12}}

	feedback := buildFeedback(interactions, likes)
	assert.Equal(t, []mf.Feedback{
		{UserID: 1, TrackID: 10, Weight: 4},
		{UserID: 1, TrackID: 11, Weight: 2},
		{UserID: 2, TrackID: 10, Weight: 0.5},
		{UserID: 2, TrackID: 12, Weight: 10},
	}, feedback)
}

func TestBuildFeedbackEmpty(t *testing.T) {
	assert.Empty(t, buildFeedback(nil, nil))
}

func TestTrain(t *testing.T) {
	ctx := context.Background()
	database, err := data.Open(fmt.Sprintf("sqlite://%s/data.db", t.TempDir()), "")
	require.NoError(t, err)
	require.NoError(t, database.Init())
	defer func() { assert.NoError(t, database.Close()) }()

	for user := int32(1); user <= 2; user++ {
		require.NoError(t, database.InsertUser(ctx, &data.User{Email: fmt.Sprintf("u%d@example.com", user)}))
		for track := int32(1); track <= 3; track++ {
			require.NoError(t, database.InsertInteraction(ctx, &data.Interaction{
				UserID:          user,
				TrackID:         lo.ToPtr(track),
				SecondsListened: int(30 * track),
			}))
		}
	}

	conf := config.GetDefaultConfig()
	conf.Recommend.ModelPath = filepath.Join(t.TempDir(), "model.bin")
	conf.Recommend.MetaPath = filepath.Join(t.TempDir(), "metadata.json")
	conf.Train.Factors = 4
	conf.Train.Epochs = 5
	require.NoError(t, train(ctx, conf, database))

	artifact, err := mf.LoadArtifact(conf.Recommend.ModelPath)
	require.NoError(t, err)
	assert.Len(t, artifact.UserIDs, 2)
	assert.Len(t, artifact.TrackIDs, 3)

	metadata, err := mf.LoadMetadata(conf.Recommend.MetaPath)
	require.NoError(t, err)
	assert.Equal(t, int64(2), metadata.UserCount)
	assert.Equal(t, int64(6), metadata.InteractionCount)
}

func TestTrainNoFeedback(t *testing.T) {
	ctx := context.Background()
	database, err := data.Open(fmt.Sprintf("sqlite://%s/data.db", t.TempDir()), "")
	require.NoError(t, err)
	require.NoError(t, database.Init())
	defer func() { assert.NoError(t, database.Close()) }()

	conf := config.GetDefaultConfig()
	conf.Recommend.ModelPath = filepath.Join(t.TempDir(), "model.bin")
	conf.Recommend.MetaPath = filepath.Join(t.TempDir(), "metadata.json")
	require.NoError(t, train(ctx, conf, database))

	// nothing was written
	_, err = mf.LoadArtifact(conf.Recommend.ModelPath)
	assert.Error(t, err)
}
