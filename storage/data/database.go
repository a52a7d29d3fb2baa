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
	"strings"
	"time"

	"github.com/juju/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
	"moul.io/zapgorm2"

	"github.com/harmonia-fm/harmonia/base/log"
)

const (
	SQLitePrefix     = "sqlite://"
	MySQLPrefix      = "mysql://"
	PostgresPrefix   = "postgres://"
	PostgreSQLPrefix = "postgresql://"
)

var (
	ErrUserNotExist     = errors.NotFoundf("user")
	ErrArtistNotExist   = errors.NotFoundf("artist")
	ErrTrackNotExist    = errors.NotFoundf("track")
	ErrPlaylistNotExist = errors.NotFoundf("playlist")
)

// Artist stores meta data about an artist.
type Artist struct {
	ID       int32 `gorm:"primaryKey;autoIncrement"`
	Name     string
	CoverURL string
}

// Album stores meta data about an album.
type Album struct {
	ID          int32 `gorm:"primaryKey;autoIncrement"`
	Title       string
	ArtistID    int32
	ReleaseDate *time.Time
	CoverURL    string
}

// Track stores meta data about a track.
type Track struct {
	ID         int32 `gorm:"primaryKey;autoIncrement"`
	Title      string
	AlbumID    *int32
	ArtistID   int32 `gorm:"index"`
	DurationMs int
	PreviewURL string
	CoverURL   string
	Views      int
	IsExplicit bool
	// mood features in [0,1], negative→positive and calm→energetic
	Valence   *float32
	Arousal   *float32
	GenreID   *int32
	GenreName string
}

// User stores meta data about a user.
type User struct {
	ID           int32  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex"`
	PasswordHash string
	DisplayName  string
	CreatedAt    time.Time
}

// Interaction is a single play event. TrackID is nullable for external plays.
type Interaction struct {
	ID              int64 `gorm:"primaryKey;autoIncrement"`
	UserID          int32 `gorm:"index"`
	TrackID         *int32
	PlayedAt        time.Time `gorm:"index"`
	SecondsListened int
	IsCompleted     bool
	Device          string
	ContextType     string
	// playback checkpoint, one of 25/50/75/100
	Milestone *int
}

// TrackLike is a (user, track) membership fact.
type TrackLike struct {
	UserID    int32 `gorm:"primaryKey"`
	TrackID   int32 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// Playlist stores meta data about a playlist.
type Playlist struct {
	ID          int32 `gorm:"primaryKey;autoIncrement"`
	UserID      int32 `gorm:"index"`
	Name        string
	Description string
	CoverURL    string
	IsPublic    bool
	CreatedAt   time.Time
}

// PlaylistTrack is the ordered membership of a track in a playlist.
type PlaylistTrack struct {
	PlaylistID int32 `gorm:"primaryKey"`
	TrackID    int32 `gorm:"primaryKey"`
	Position   int
	AddedAt    time.Time
}

// UserPreferredArtist is a (user, artist) preference picked during onboarding.
type UserPreferredArtist struct {
	UserID    int32 `gorm:"primaryKey"`
	ArtistID  int32 `gorm:"primaryKey"`
	CreatedAt time.Time
}

// PlayCount is a per-track interaction count.
type PlayCount struct {
	TrackID int32
	Count   int64
}

// Behavior is the per-track aggregate of a single user's listening history.
type Behavior struct {
	TrackID         int32
	SecondsListened int64
	// interactions marked completed or reaching the 75% milestone
	Completions int64
}

// PlaylistMatch is a playlist's overlap with a set of artists.
type PlaylistMatch struct {
	PlaylistID int32
	Name       string
	// distinct playlist tracks by the matched artists
	MatchCount int64
	// seconds listened across the matched tracks
	PlaySeconds int64
}

// Database is the storage contract of the backend.
type Database interface {
	// Init initializes the schema.
	Init() error
	// Close closes the database connection.
	Close() error
	// Ping checks the database connection.
	Ping() error
	// Purge deletes all rows from all tables.
	Purge() error

	// InsertUser inserts a user.
	InsertUser(ctx context.Context, user *User) error
	// GetUser returns a user by id.
	GetUser(ctx context.Context, id int32) (User, error)
	// GetUserByEmail returns a user by email.
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// CountUsers counts all users.
	CountUsers(ctx context.Context) (int64, error)

	// InsertArtist inserts an artist.
	InsertArtist(ctx context.Context, artist *Artist) error
	// GetArtist returns an artist by id.
	GetArtist(ctx context.Context, id int32) (Artist, error)
	// ListArtists returns up to n artists.
	ListArtists(ctx context.Context, n int) ([]Artist, error)

	// InsertTrack inserts a track.
	InsertTrack(ctx context.Context, track *Track) error
	// GetTrack returns a track by id.
	GetTrack(ctx context.Context, id int32) (Track, error)
	// GetTracks returns tracks by ids, preserving the requested order.
	GetTracks(ctx context.Context, ids []int32) ([]Track, error)
	// ListTracks returns up to n tracks.
	ListTracks(ctx context.Context, n int) ([]Track, error)
	// DeleteTrack deletes a track by id.
	DeleteTrack(ctx context.Context, id int32) error
	// IncrementTrackViews bumps the view counter of a track.
	IncrementTrackViews(ctx context.Context, id int32) error
	// MaxTrackID returns the largest track id, zero when the catalog is empty.
	MaxTrackID(ctx context.Context) (int32, error)
	// FilterExistingTracks returns the subset of ids present in the catalog.
	FilterExistingTracks(ctx context.Context, ids []int32) ([]int32, error)
	// TracksByArtists returns track ids of the given artists, skipping excluded ids.
	TracksByArtists(ctx context.Context, artistIDs, exclude []int32, n int) ([]int32, error)
	// ArtistsOfTracks returns the distinct artist ids of the given tracks.
	ArtistsOfTracks(ctx context.Context, trackIDs []int32) ([]int32, error)

	// InsertPlaylist inserts a playlist.
	InsertPlaylist(ctx context.Context, playlist *Playlist) error
	// GetPlaylist returns a playlist by id.
	GetPlaylist(ctx context.Context, id int32) (Playlist, error)
	// ListPlaylists returns the playlists of a user.
	ListPlaylists(ctx context.Context, userID int32) ([]Playlist, error)
	// AddPlaylistTrack appends a track to a playlist.
	AddPlaylistTrack(ctx context.Context, playlistID, trackID int32) error
	// RemovePlaylistTrack removes a track from a playlist.
	RemovePlaylistTrack(ctx context.Context, playlistID, trackID int32) error
	// ListPlaylistTracks returns the track ids of a playlist in order.
	ListPlaylistTracks(ctx context.Context, playlistID int32) ([]int32, error)
	// MatchPlaylists returns per-playlist overlap with the given artists.
	MatchPlaylists(ctx context.Context, artistIDs []int32) ([]PlaylistMatch, error)
	// LargestPlaylists ranks playlists by track count.
	LargestPlaylists(ctx context.Context, n int) ([]PlaylistMatch, error)

	// SetPreferredArtists replaces the preferred artists of a user.
	SetPreferredArtists(ctx context.Context, userID int32, artistIDs []int32) error
	// PreferredArtistIDs returns the preferred artist ids of a user.
	PreferredArtistIDs(ctx context.Context, userID int32) ([]int32, error)

	// LikeTrack records a like, idempotently.
	LikeTrack(ctx context.Context, userID, trackID int32) error
	// UnlikeTrack removes a like.
	UnlikeTrack(ctx context.Context, userID, trackID int32) error
	// LikedTrackIDs returns the track ids liked by a user.
	LikedTrackIDs(ctx context.Context, userID int32) ([]int32, error)
	// AllLikes returns every like.
	AllLikes(ctx context.Context) ([]TrackLike, error)

	// InsertInteraction records a play event.
	InsertInteraction(ctx context.Context, interaction *Interaction) error
	// CountInteractions counts all interactions.
	CountInteractions(ctx context.Context) (int64, error)
	// AllInteractions returns every interaction with a non-null track id.
	AllInteractions(ctx context.Context) ([]Interaction, error)
	// ListenedTrackIDs returns the track ids a user played since the given time.
	ListenedTrackIDs(ctx context.Context, userID int32, since time.Time) ([]int32, error)
	// PopularTracks ranks tracks by interaction count, skipping excluded ids.
	PopularTracks(ctx context.Context, n int, exclude []int32) ([]PlayCount, error)
	// TopPlayedTracks ranks a single user's tracks by interaction count.
	TopPlayedTracks(ctx context.Context, userID int32, n int) ([]PlayCount, error)
	// UserBehavior returns the per-track listening aggregates of a user.
	UserBehavior(ctx context.Context, userID int32) ([]Behavior, error)
}

// Open a database identified by a URL-style address.
func Open(path, tablePrefix string) (Database, error) {
	var err error
	database := &SQLDatabase{prefix: tablePrefix}
	gormConfig := &gorm.Config{
		Logger:         zapgorm2.New(log.Logger()),
		NamingStrategy: schema.NamingStrategy{TablePrefix: tablePrefix},
	}
	switch {
	case strings.HasPrefix(path, SQLitePrefix):
		name := path[len(SQLitePrefix):]
		database.gormDB, err = gorm.Open(sqlite.Open(name), gormConfig)
	case strings.HasPrefix(path, MySQLPrefix):
		name := path[len(MySQLPrefix):]
		database.gormDB, err = gorm.Open(mysql.Open(name), gormConfig)
	case strings.HasPrefix(path, PostgresPrefix) || strings.HasPrefix(path, PostgreSQLPrefix):
		database.gormDB, err = gorm.Open(postgres.Open(path), gormConfig)
	default:
		return nil, errors.NotSupportedf("database %s", log.RedactDBURL(path))
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	return database, nil
}
