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

package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) Database {
	db, err := Open(SQLitePrefix+filepath.Join(t.TempDir(), "harmonia.db"), "")
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() {
		assert.NoError(t, db.Close())
	})
	return db
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("oracle://localhost", "")
	assert.Error(t, err)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	user := &User{Email: "alice@example.com", PasswordHash: "x", DisplayName: "Alice"}
	assert.NoError(t, db.InsertUser(ctx, user))
	assert.NotZero(t, user.ID)

	found, err := db.GetUser(ctx, user.ID)
	assert.NoError(t, err)
	assert.Equal(t, "alice@example.com", found.Email)

	found, err = db.GetUserByEmail(ctx, "alice@example.com")
	assert.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = db.GetUser(ctx, 404)
	assert.Error(t, err)

	count, err := db.CountUsers(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTracks(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	artist := &Artist{Name: "The Testers"}
	assert.NoError(t, db.InsertArtist(ctx, artist))
	for i := 0; i < 5; i++ {
		assert.NoError(t, db.InsertTrack(ctx, &Track{Title: "track", ArtistID: artist.ID, DurationMs: 180000}))
	}

	maxID, err := db.MaxTrackID(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int32(5), maxID)

	existing, err := db.FilterExistingTracks(ctx, []int32{1, 3, 99})
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int32{1, 3}, existing)

	byArtist, err := db.TracksByArtists(ctx, []int32{artist.ID}, []int32{1, 2}, 10)
	assert.NoError(t, err)
	assert.Equal(t, []int32{3, 4, 5}, byArtist)

	artists, err := db.ArtistsOfTracks(ctx, []int32{1, 2})
	assert.NoError(t, err)
	assert.Equal(t, []int32{artist.ID}, artists)

	tracks, err := db.GetTracks(ctx, []int32{3, 1})
	assert.NoError(t, err)
	assert.Equal(t, []int32{3, 1}, lo.Map(tracks, func(track Track, _ int) int32 { return track.ID }))

	assert.NoError(t, db.IncrementTrackViews(ctx, 1))
	track, err := db.GetTrack(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, track.Views)

	assert.NoError(t, db.DeleteTrack(ctx, 5))
	_, err = db.GetTrack(ctx, 5)
	assert.Error(t, err)

	// empty catalog
	empty := newTestDatabase(t)
	maxID, err = empty.MaxTrackID(ctx)
	assert.NoError(t, err)
	assert.Zero(t, maxID)
}

func TestPlaylists(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	playlist := &Playlist{UserID: 1, Name: "road trip", IsPublic: true}
	assert.NoError(t, db.InsertPlaylist(ctx, playlist))
	assert.NoError(t, db.AddPlaylistTrack(ctx, playlist.ID, 10))
	assert.NoError(t, db.AddPlaylistTrack(ctx, playlist.ID, 20))
	assert.NoError(t, db.AddPlaylistTrack(ctx, playlist.ID, 10)) // duplicate is a no-op

	ids, err := db.ListPlaylistTracks(ctx, playlist.ID)
	assert.NoError(t, err)
	assert.Equal(t, []int32{10, 20}, ids)

	assert.NoError(t, db.RemovePlaylistTrack(ctx, playlist.ID, 10))
	ids, err = db.ListPlaylistTracks(ctx, playlist.ID)
	assert.NoError(t, err)
	assert.Equal(t, []int32{20}, ids)

	playlists, err := db.ListPlaylists(ctx, 1)
	assert.NoError(t, err)
	assert.Len(t, playlists, 1)
}

func TestPreferredArtists(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	assert.NoError(t, db.SetPreferredArtists(ctx, 1, []int32{3, 1, 2}))
	ids, err := db.PreferredArtistIDs(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, ids)

	// setting again replaces the previous selection
	assert.NoError(t, db.SetPreferredArtists(ctx, 1, []int32{4}))
	ids, err = db.PreferredArtistIDs(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []int32{4}, ids)

	assert.NoError(t, db.SetPreferredArtists(ctx, 1, nil))
	ids, err = db.PreferredArtistIDs(ctx, 1)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMatchPlaylists(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	assert.NoError(t, db.InsertTrack(ctx, &Track{ID: 10, ArtistID: 1}))
	assert.NoError(t, db.InsertTrack(ctx, &Track{ID: 20, ArtistID: 1}))
	assert.NoError(t, db.InsertTrack(ctx, &Track{ID: 30, ArtistID: 2}))

	rock := &Playlist{UserID: 1, Name: "rock"}
	assert.NoError(t, db.InsertPlaylist(ctx, rock))
	assert.NoError(t, db.AddPlaylistTrack(ctx, rock.ID, 10))
	assert.NoError(t, db.AddPlaylistTrack(ctx, rock.ID, 20))
	jazz := &Playlist{UserID: 1, Name: "jazz"}
	assert.NoError(t, db.InsertPlaylist(ctx, jazz))
	assert.NoError(t, db.AddPlaylistTrack(ctx, jazz.ID, 30))

	assert.NoError(t, db.InsertInteraction(ctx, &Interaction{
		UserID: 1, TrackID: lo.ToPtr(int32(10)), SecondsListened: 60, PlayedAt: time.Now(),
	}))

	matches, err := db.MatchPlaylists(ctx, []int32{1})
	assert.NoError(t, err)
	assert.Equal(t, []PlaylistMatch{
		{PlaylistID: rock.ID, Name: "rock", MatchCount: 2, PlaySeconds: 60},
	}, matches)

	matches, err = db.MatchPlaylists(ctx, []int32{3})
	assert.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = db.MatchPlaylists(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, matches)

	largest, err := db.LargestPlaylists(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, []PlaylistMatch{
		{PlaylistID: rock.ID, Name: "rock", MatchCount: 2},
		{PlaylistID: jazz.ID, Name: "jazz", MatchCount: 1},
	}, largest)
}

func TestLikes(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	assert.NoError(t, db.LikeTrack(ctx, 1, 100))
	assert.NoError(t, db.LikeTrack(ctx, 1, 100)) // idempotent
	assert.NoError(t, db.LikeTrack(ctx, 1, 101))

	ids, err := db.LikedTrackIDs(ctx, 1)
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int32{100, 101}, ids)

	assert.NoError(t, db.UnlikeTrack(ctx, 1, 100))
	ids, err = db.LikedTrackIDs(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, []int32{101}, ids)

	assert.NoError(t, db.LikeTrack(ctx, 2, 100))
	likes, err := db.AllLikes(ctx)
	assert.NoError(t, err)
	assert.Len(t, likes, 2)
	assert.Equal(t, int32(101), likes[0].TrackID)
	assert.Equal(t, int32(2), likes[1].UserID)
}

func TestInteractions(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	play := func(userID, trackID int32, seconds int, completed bool, milestone *int, playedAt time.Time) {
		assert.NoError(t, db.InsertInteraction(ctx, &Interaction{
			UserID:          userID,
			TrackID:         &trackID,
			SecondsListened: seconds,
			IsCompleted:     completed,
			Milestone:       milestone,
			PlayedAt:        playedAt,
		}))
	}
	now := time.Now()
	play(1, 10, 30, false, nil, now)
	play(1, 10, 60, true, nil, now)
	play(1, 20, 15, false, lo.ToPtr(75), now)
	play(1, 30, 5, false, nil, now.AddDate(0, 0, -120))
	play(2, 20, 45, false, nil, now)

	count, err := db.CountInteractions(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), count)

	listened, err := db.ListenedTrackIDs(ctx, 1, now.AddDate(0, 0, -90))
	assert.NoError(t, err)
	assert.ElementsMatch(t, []int32{10, 20}, listened)

	// tracks 10 and 20 tie at two plays, lower id ranks first
	popular, err := db.PopularTracks(ctx, 10, nil)
	assert.NoError(t, err)
	assert.Equal(t, []PlayCount{{10, 2}, {20, 2}, {30, 1}}, popular)

	popular, err = db.PopularTracks(ctx, 10, []int32{10})
	assert.NoError(t, err)
	assert.Equal(t, int32(20), popular[0].TrackID)

	top, err := db.TopPlayedTracks(ctx, 1, 10)
	assert.NoError(t, err)
	assert.Equal(t, []PlayCount{{10, 2}, {20, 1}, {30, 1}}, top)

	behaviors, err := db.UserBehavior(ctx, 1)
	assert.NoError(t, err)
	byTrack := lo.SliceToMap(behaviors, func(b Behavior) (int32, Behavior) { return b.TrackID, b })
	assert.Equal(t, int64(90), byTrack[10].SecondsListened)
	assert.Equal(t, int64(1), byTrack[10].Completions)
	assert.Equal(t, int64(1), byTrack[20].Completions)
	assert.Equal(t, int64(0), byTrack[30].Completions)

	all, err := db.AllInteractions(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 5)
}
