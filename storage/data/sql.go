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
	"time"

	"github.com/juju/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLDatabase is the gorm-backed implementation of Database.
type SQLDatabase struct {
	gormDB *gorm.DB
	prefix string
}

func (d *SQLDatabase) Init() error {
	err := d.gormDB.AutoMigrate(
		&Artist{}, &Album{}, &Track{}, &User{},
		&Interaction{}, &TrackLike{}, &Playlist{}, &PlaylistTrack{},
		&UserPreferredArtist{})
	return errors.Trace(err)
}

func (d *SQLDatabase) Close() error {
	db, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.Close())
}

func (d *SQLDatabase) Ping() error {
	db, err := d.gormDB.DB()
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(db.Ping())
}

func (d *SQLDatabase) Purge() error {
	for _, model := range []any{
		&UserPreferredArtist{}, &PlaylistTrack{}, &Playlist{}, &TrackLike{},
		&Interaction{}, &Track{}, &Album{}, &Artist{}, &User{},
	} {
		if err := d.gormDB.Where("1 = 1").Delete(model).Error; err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func (d *SQLDatabase) InsertUser(ctx context.Context, user *User) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Create(user).Error)
}

func (d *SQLDatabase) GetUser(ctx context.Context, id int32) (User, error) {
	var user User
	err := d.gormDB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, errors.Trace(ErrUserNotExist)
	}
	return user, errors.Trace(err)
}

func (d *SQLDatabase) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := d.gormDB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, errors.Trace(ErrUserNotExist)
	}
	return user, errors.Trace(err)
}

func (d *SQLDatabase) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := d.gormDB.WithContext(ctx).Model(&User{}).Count(&count).Error
	return count, errors.Trace(err)
}

func (d *SQLDatabase) InsertArtist(ctx context.Context, artist *Artist) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Create(artist).Error)
}

func (d *SQLDatabase) GetArtist(ctx context.Context, id int32) (Artist, error) {
	var artist Artist
	err := d.gormDB.WithContext(ctx).First(&artist, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Artist{}, errors.Trace(ErrArtistNotExist)
	}
	return artist, errors.Trace(err)
}

func (d *SQLDatabase) ListArtists(ctx context.Context, n int) ([]Artist, error) {
	var artists []Artist
	err := d.gormDB.WithContext(ctx).Order("id").Limit(n).Find(&artists).Error
	return artists, errors.Trace(err)
}

func (d *SQLDatabase) InsertTrack(ctx context.Context, track *Track) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Create(track).Error)
}

func (d *SQLDatabase) GetTrack(ctx context.Context, id int32) (Track, error) {
	var track Track
	err := d.gormDB.WithContext(ctx).First(&track, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Track{}, errors.Trace(ErrTrackNotExist)
	}
	return track, errors.Trace(err)
}

func (d *SQLDatabase) GetTracks(ctx context.Context, ids []int32) ([]Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tracks []Track
	if err := d.gormDB.WithContext(ctx).Where("id IN ?", ids).Find(&tracks).Error; err != nil {
		return nil, errors.Trace(err)
	}
	byID := lo.SliceToMap(tracks, func(t Track) (int32, Track) { return t.ID, t })
	ordered := make([]Track, 0, len(tracks))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered, nil
}

func (d *SQLDatabase) ListTracks(ctx context.Context, n int) ([]Track, error) {
	var tracks []Track
	err := d.gormDB.WithContext(ctx).Order("id").Limit(n).Find(&tracks).Error
	return tracks, errors.Trace(err)
}

func (d *SQLDatabase) DeleteTrack(ctx context.Context, id int32) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Delete(&Track{}, id).Error)
}

func (d *SQLDatabase) IncrementTrackViews(ctx context.Context, id int32) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Model(&Track{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + 1")).Error)
}

func (d *SQLDatabase) MaxTrackID(ctx context.Context) (int32, error) {
	var id *int32
	err := d.gormDB.WithContext(ctx).Model(&Track{}).Select("MAX(id)").Scan(&id).Error
	if err != nil {
		return 0, errors.Trace(err)
	}
	if id == nil {
		return 0, nil
	}
	return *id, nil
}

func (d *SQLDatabase) FilterExistingTracks(ctx context.Context, ids []int32) ([]int32, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var existing []int32
	err := d.gormDB.WithContext(ctx).Model(&Track{}).
		Where("id IN ?", ids).
		Pluck("id", &existing).Error
	return existing, errors.Trace(err)
}

func (d *SQLDatabase) TracksByArtists(ctx context.Context, artistIDs, exclude []int32, n int) ([]int32, error) {
	if len(artistIDs) == 0 {
		return nil, nil
	}
	tx := d.gormDB.WithContext(ctx).Model(&Track{}).Where("artist_id IN ?", artistIDs)
	if len(exclude) > 0 {
		tx = tx.Where("id NOT IN ?", exclude)
	}
	var ids []int32
	err := tx.Order("id").Limit(n).Pluck("id", &ids).Error
	return ids, errors.Trace(err)
}

func (d *SQLDatabase) ArtistsOfTracks(ctx context.Context, trackIDs []int32) ([]int32, error) {
	if len(trackIDs) == 0 {
		return nil, nil
	}
	var ids []int32
	err := d.gormDB.WithContext(ctx).Model(&Track{}).
		Where("id IN ?", trackIDs).
		Distinct().
		Pluck("artist_id", &ids).Error
	return ids, errors.Trace(err)
}

func (d *SQLDatabase) InsertPlaylist(ctx context.Context, playlist *Playlist) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Create(playlist).Error)
}

func (d *SQLDatabase) GetPlaylist(ctx context.Context, id int32) (Playlist, error) {
	var playlist Playlist
	err := d.gormDB.WithContext(ctx).First(&playlist, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Playlist{}, errors.Trace(ErrPlaylistNotExist)
	}
	return playlist, errors.Trace(err)
}

func (d *SQLDatabase) ListPlaylists(ctx context.Context, userID int32) ([]Playlist, error) {
	var playlists []Playlist
	err := d.gormDB.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&playlists).Error
	return playlists, errors.Trace(err)
}

func (d *SQLDatabase) AddPlaylistTrack(ctx context.Context, playlistID, trackID int32) error {
	var position int64
	if err := d.gormDB.WithContext(ctx).Model(&PlaylistTrack{}).
		Where("playlist_id = ?", playlistID).
		Count(&position).Error; err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&PlaylistTrack{
			PlaylistID: playlistID,
			TrackID:    trackID,
			Position:   int(position),
			AddedAt:    time.Now(),
		}).Error)
}

func (d *SQLDatabase) RemovePlaylistTrack(ctx context.Context, playlistID, trackID int32) error {
	return errors.Trace(d.gormDB.WithContext(ctx).
		Where("playlist_id = ? AND track_id = ?", playlistID, trackID).
		Delete(&PlaylistTrack{}).Error)
}

func (d *SQLDatabase) ListPlaylistTracks(ctx context.Context, playlistID int32) ([]int32, error) {
	var ids []int32
	err := d.gormDB.WithContext(ctx).Model(&PlaylistTrack{}).
		Where("playlist_id = ?", playlistID).
		Order("position").
		Pluck("track_id", &ids).Error
	return ids, errors.Trace(err)
}

func (d *SQLDatabase) MatchPlaylists(ctx context.Context, artistIDs []int32) ([]PlaylistMatch, error) {
	if len(artistIDs) == 0 {
		return nil, nil
	}
	var matches []PlaylistMatch
	err := d.gormDB.WithContext(ctx).
		Table(d.prefix+"playlists AS p").
		Select("p.id AS playlist_id, p.name AS name, "+
			"COUNT(DISTINCT pt.track_id) AS match_count, "+
			"COALESCE(SUM(i.seconds_listened), 0) AS play_seconds").
		Joins("JOIN "+d.prefix+"playlist_tracks AS pt ON pt.playlist_id = p.id").
		Joins("JOIN "+d.prefix+"tracks AS t ON t.id = pt.track_id").
		Joins("LEFT JOIN "+d.prefix+"interactions AS i ON i.track_id = t.id").
		Where("t.artist_id IN ?", artistIDs).
		Group("p.id, p.name").
		Scan(&matches).Error
	return matches, errors.Trace(err)
}

func (d *SQLDatabase) LargestPlaylists(ctx context.Context, n int) ([]PlaylistMatch, error) {
	var matches []PlaylistMatch
	err := d.gormDB.WithContext(ctx).
		Table(d.prefix+"playlists AS p").
		Select("p.id AS playlist_id, p.name AS name, "+
			"COUNT(pt.track_id) AS match_count, 0 AS play_seconds").
		Joins("JOIN "+d.prefix+"playlist_tracks AS pt ON pt.playlist_id = p.id").
		Group("p.id, p.name").
		Order("match_count DESC, p.id").
		Limit(n).
		Scan(&matches).Error
	return matches, errors.Trace(err)
}

func (d *SQLDatabase) SetPreferredArtists(ctx context.Context, userID int32, artistIDs []int32) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&UserPreferredArtist{}).Error; err != nil {
			return err
		}
		if len(artistIDs) == 0 {
			return nil
		}
		preferences := lo.Map(artistIDs, func(artistID int32, _ int) UserPreferredArtist {
			return UserPreferredArtist{UserID: userID, ArtistID: artistID, CreatedAt: time.Now()}
		})
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&preferences).Error
	}))
}

func (d *SQLDatabase) PreferredArtistIDs(ctx context.Context, userID int32) ([]int32, error) {
	var ids []int32
	err := d.gormDB.WithContext(ctx).Model(&UserPreferredArtist{}).
		Where("user_id = ?", userID).
		Order("artist_id").
		Pluck("artist_id", &ids).Error
	return ids, errors.Trace(err)
}

func (d *SQLDatabase) LikeTrack(ctx context.Context, userID, trackID int32) error {
	return errors.Trace(d.gormDB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&TrackLike{UserID: userID, TrackID: trackID, CreatedAt: time.Now()}).Error)
}

func (d *SQLDatabase) UnlikeTrack(ctx context.Context, userID, trackID int32) error {
	return errors.Trace(d.gormDB.WithContext(ctx).
		Where("user_id = ? AND track_id = ?", userID, trackID).
		Delete(&TrackLike{}).Error)
}

func (d *SQLDatabase) LikedTrackIDs(ctx context.Context, userID int32) ([]int32, error) {
	var ids []int32
	err := d.gormDB.WithContext(ctx).Model(&TrackLike{}).
		Where("user_id = ?", userID).
		Pluck("track_id", &ids).Error
	return ids, errors.Trace(err)
}

func (d *SQLDatabase) AllLikes(ctx context.Context) ([]TrackLike, error) {
	var likes []TrackLike
	err := d.gormDB.WithContext(ctx).Order("user_id, track_id").Find(&likes).Error
	return likes, errors.Trace(err)
}

func (d *SQLDatabase) InsertInteraction(ctx context.Context, interaction *Interaction) error {
	if interaction.PlayedAt.IsZero() {
		interaction.PlayedAt = time.Now()
	}
	return errors.Trace(d.gormDB.WithContext(ctx).Create(interaction).Error)
}

func (d *SQLDatabase) CountInteractions(ctx context.Context) (int64, error) {
	var count int64
	err := d.gormDB.WithContext(ctx).Model(&Interaction{}).Count(&count).Error
	return count, errors.Trace(err)
}

func (d *SQLDatabase) AllInteractions(ctx context.Context) ([]Interaction, error) {
	var interactions []Interaction
	err := d.gormDB.WithContext(ctx).
		Where("track_id IS NOT NULL").
		Order("id").
		Find(&interactions).Error
	return interactions, errors.Trace(err)
}

func (d *SQLDatabase) ListenedTrackIDs(ctx context.Context, userID int32, since time.Time) ([]int32, error) {
	var ids []int32
	err := d.gormDB.WithContext(ctx).Model(&Interaction{}).
		Where("user_id = ? AND track_id IS NOT NULL AND played_at >= ?", userID, since).
		Distinct().
		Pluck("track_id", &ids).Error
	return ids, errors.Trace(err)
}

func (d *SQLDatabase) PopularTracks(ctx context.Context, n int, exclude []int32) ([]PlayCount, error) {
	tx := d.gormDB.WithContext(ctx).Model(&Interaction{}).
		Select("track_id, COUNT(id) AS count").
		Where("track_id IS NOT NULL")
	if len(exclude) > 0 {
		tx = tx.Where("track_id NOT IN ?", exclude)
	}
	var counts []PlayCount
	err := tx.Group("track_id").Order("count DESC, track_id").Limit(n).Scan(&counts).Error
	return counts, errors.Trace(err)
}

func (d *SQLDatabase) TopPlayedTracks(ctx context.Context, userID int32, n int) ([]PlayCount, error) {
	var counts []PlayCount
	err := d.gormDB.WithContext(ctx).Model(&Interaction{}).
		Select("track_id, COUNT(id) AS count").
		Where("user_id = ? AND track_id IS NOT NULL", userID).
		Group("track_id").
		Order("count DESC, track_id").
		Limit(n).
		Scan(&counts).Error
	return counts, errors.Trace(err)
}

func (d *SQLDatabase) UserBehavior(ctx context.Context, userID int32) ([]Behavior, error) {
	var behaviors []Behavior
	err := d.gormDB.WithContext(ctx).Model(&Interaction{}).
		Select("track_id, SUM(seconds_listened) AS seconds_listened, " +
			"SUM(CASE WHEN is_completed OR (milestone IS NOT NULL AND milestone >= 75) THEN 1 ELSE 0 END) AS completions").
		Where("user_id = ? AND track_id IS NOT NULL", userID).
		Group("track_id").
		Scan(&behaviors).Error
	return behaviors, errors.Trace(err)
}
