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

package server

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/logics"
	"github.com/harmonia-fm/harmonia/mood"
	"github.com/harmonia-fm/harmonia/storage/data"
)

// LogFilter logs every request with a generated request id.
func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestID := uuid.New().String()
	resp.AddHeader("X-Request-ID", requestID)
	start := time.Now()
	chain.ProcessFilter(req, resp)
	log.Logger().Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.String("request_id", requestID),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", time.Since(start)))
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(LogFilter)

	/* Authentication */

	ws.Route(ws.POST("/auth/register").To(s.register).
		Doc("Register a user and issue an access token.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"auth"}).
		Reads(RegisterRequest{}).
		Writes(TokenResponse{}))
	ws.Route(ws.POST("/auth/login").To(s.login).
		Doc("Issue an access token for registered credentials.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"auth"}).
		Reads(LoginRequest{}).
		Writes(TokenResponse{}))
	ws.Route(ws.GET("/auth/me").To(s.me).
		Doc("Get the authenticated user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"auth"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Writes(UserResponse{}))

	/* Catalog */

	ws.Route(ws.POST("/artist").To(s.insertArtist).
		Doc("Insert an artist.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"artist"}).
		Reads(data.Artist{}))
	ws.Route(ws.GET("/artist/{artist-id}").To(s.getArtist).
		Doc("Get an artist.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"artist"}).
		Param(ws.PathParameter("artist-id", "identifier of the artist").DataType("integer")).
		Writes(data.Artist{}))
	ws.Route(ws.GET("/artists").To(s.getArtists).
		Doc("Get artists.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"artist"}).
		Param(ws.QueryParameter("n", "number of returned artists").DataType("integer")).
		Writes([]data.Artist{}))

	ws.Route(ws.POST("/track").To(s.insertTrack).
		Doc("Insert a track.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"track"}).
		Reads(data.Track{}))
	ws.Route(ws.GET("/track/{track-id}").To(s.getTrack).
		Doc("Get a track.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"track"}).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Writes(data.Track{}))
	ws.Route(ws.GET("/tracks").To(s.getTracks).
		Doc("Get tracks.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"track"}).
		Param(ws.QueryParameter("n", "number of returned tracks").DataType("integer")).
		Writes([]data.Track{}))
	ws.Route(ws.DELETE("/track/{track-id}").To(s.deleteTrack).
		Doc("Delete a track.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"track"}).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Writes(Success{}))

	/* Playlists */

	ws.Route(ws.POST("/playlist").To(s.insertPlaylist).
		Doc("Create a playlist owned by the authenticated user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"playlist"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Reads(data.Playlist{}))
	ws.Route(ws.GET("/playlist/{playlist-id}").To(s.getPlaylist).
		Doc("Get a playlist with its track ids.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"playlist"}).
		Param(ws.PathParameter("playlist-id", "identifier of the playlist").DataType("integer")).
		Writes(PlaylistResponse{}))
	ws.Route(ws.GET("/playlists").To(s.getPlaylists).
		Doc("Get the playlists of the authenticated user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"playlist"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Writes([]data.Playlist{}))
	ws.Route(ws.POST("/playlist/{playlist-id}/track/{track-id}").To(s.addPlaylistTrack).
		Doc("Append a track to a playlist.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"playlist"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Param(ws.PathParameter("playlist-id", "identifier of the playlist").DataType("integer")).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Writes(Success{}))
	ws.Route(ws.DELETE("/playlist/{playlist-id}/track/{track-id}").To(s.removePlaylistTrack).
		Doc("Remove a track from a playlist.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"playlist"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Param(ws.PathParameter("playlist-id", "identifier of the playlist").DataType("integer")).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Writes(Success{}))

	/* Likes */

	ws.Route(ws.POST("/like/{track-id}").To(s.likeTrack).
		Doc("Like a track.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"like"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Writes(Success{}))
	ws.Route(ws.DELETE("/like/{track-id}").To(s.unlikeTrack).
		Doc("Remove a like.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"like"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Writes(Success{}))
	ws.Route(ws.GET("/likes").To(s.getLikes).
		Doc("Get the liked track ids of the authenticated user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"like"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Writes([]int32{}))

	/* Onboarding */

	ws.Route(ws.POST("/users/me/preferences/artists").To(s.setPreferredArtists).
		Doc("Replace the preferred artists of the authenticated user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"onboard"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Reads(PreferredArtistsRequest{}).
		Writes(Success{}))
	ws.Route(ws.GET("/users/me/preferences/artists").To(s.getPreferredArtists).
		Doc("Get the preferred artist ids of the authenticated user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"onboard"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Writes([]int32{}))

	/* Interactions */

	ws.Route(ws.POST("/interaction").To(s.insertInteraction).
		Doc("Record a play event and trigger retraining when thresholds are met.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"interaction"}).
		Param(ws.HeaderParameter("Authorization", "bearer access token")).
		Reads(InteractionRequest{}).
		Writes(InteractionResponse{}))

	/* Recommendations */

	ws.Route(ws.GET("/recommend/user/{user-id}").To(s.recommendForUser).
		Doc("Get personalized recommendations for a user.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned tracks").DataType("integer")).
		Param(ws.QueryParameter("exclude-listened", "hide recently played tracks").DataType("boolean")).
		Param(ws.QueryParameter("min-score", "minimum preference score").DataType("number")).
		Writes([]logics.Score{}))
	ws.Route(ws.GET("/recommend/similar/{track-id}").To(s.recommendSimilar).
		Doc("Get tracks similar to a track.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.PathParameter("track-id", "identifier of the track").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned tracks").DataType("integer")).
		Writes([]logics.Score{}))
	ws.Route(ws.GET("/recommend/behavior/{user-id}").To(s.recommendBehavioral).
		Doc("Get recommendations from listening time, completions and likes.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("integer")).
		Param(ws.QueryParameter("n", "number of returned tracks").DataType("integer")).
		Writes([]logics.Score{}))
	ws.Route(ws.GET("/recommend/playlists").To(s.recommendPlaylists).
		Doc("Get playlists matching a set of artists.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.QueryParameter("artists", "comma-separated artist ids")).
		Writes([]logics.PlaylistScore{}))
	ws.Route(ws.GET("/popular").To(s.getPopular).
		Doc("Get popular tracks.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"recommend"}).
		Param(ws.QueryParameter("n", "number of returned tracks").DataType("integer")).
		Writes([]logics.Score{}))

	/* Mood */

	ws.Route(ws.POST("/mood/recommend").To(s.recommendByMood).
		Doc("Get tracks matching a mood described in free text.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"mood"}).
		Reads(MoodRequest{}).
		Writes(MoodResponse{}))

	/* Deezer proxy */

	ws.Route(ws.GET("/deezer/search").To(s.deezerSearch).
		Doc("Search Deezer tracks.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"deezer"}).
		Param(ws.QueryParameter("q", "query string").DataType("string")).
		Param(ws.QueryParameter("limit", "number of returned tracks").DataType("integer")))
	ws.Route(ws.GET("/deezer/chart").To(s.deezerChart).
		Doc("Get the Deezer track chart.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"deezer"}).
		Param(ws.QueryParameter("limit", "number of returned tracks").DataType("integer")))
	ws.Route(ws.GET("/deezer/track/{track-id}").To(s.deezerTrack).
		Doc("Get Deezer track metadata.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"deezer"}).
		Param(ws.PathParameter("track-id", "Deezer identifier of the track").DataType("integer")))
	ws.Route(ws.GET("/deezer/stream/{track-id}").To(s.deezerStream).
		Doc("Stream the 30 second preview of a Deezer track.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"deezer"}).
		Param(ws.PathParameter("track-id", "Deezer identifier of the track").DataType("integer")).
		Produces("audio/mpeg"))

	/* Health */

	ws.Route(ws.GET("/health").To(s.health).
		Doc("Check the database connection.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
		Writes(HealthResponse{}))
}

// ParseInt parses integers from the query parameter.
func ParseInt(request *restful.Request, name string, fallback int) (value int, err error) {
	valueString := request.QueryParameter(name)
	value, err = strconv.Atoi(valueString)
	if err != nil && valueString == "" {
		value = fallback
		err = nil
	}
	return
}

// ParseID parses an integer path parameter.
func ParseID(request *restful.Request, name string) (int32, error) {
	value, err := strconv.ParseInt(request.PathParameter(name), 10, 32)
	if err != nil {
		return 0, errors.NotValidf("path parameter %s", name)
	}
	return int32(value), nil
}

/* Authentication */

type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	UserID      int32  `json:"user_id"`
}

type UserResponse struct {
	ID          int32  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (s *RestServer) register(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var body RegisterRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if body.Email == "" || body.Password == "" {
		BadRequest(response, errors.BadRequestf("missing email or password"))
		return
	}
	if _, err := s.DataClient.GetUserByEmail(ctx, body.Email); err == nil {
		BadRequest(response, errors.BadRequestf("email already registered"))
		return
	} else if !errors.IsNotFound(err) {
		InternalServerError(response, err)
		return
	}
	hash, err := hashPassword(body.Password)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	user := data.User{
		Email:        body.Email,
		PasswordHash: hash,
		DisplayName:  body.DisplayName,
	}
	if err = s.DataClient.InsertUser(ctx, &user); err != nil {
		InternalServerError(response, err)
		return
	}
	s.writeToken(response, user.ID)
}

func (s *RestServer) login(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var body LoginRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if body.Email == "" || body.Password == "" {
		BadRequest(response, errors.BadRequestf("missing email or password"))
		return
	}
	user, err := s.DataClient.GetUserByEmail(ctx, body.Email)
	if err != nil {
		if errors.IsNotFound(err) {
			Unauthorized(response, errors.Unauthorizedf("invalid credentials"))
		} else {
			InternalServerError(response, err)
		}
		return
	}
	if !verifyPassword(body.Password, user.PasswordHash) {
		Unauthorized(response, errors.Unauthorizedf("invalid credentials"))
		return
	}
	s.writeToken(response, user.ID)
}

func (s *RestServer) writeToken(response *restful.Response, userID int32) {
	token, err := s.Tokens.IssueToken(userID)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, TokenResponse{AccessToken: token, TokenType: "bearer", UserID: userID})
}

func (s *RestServer) me(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	user, err := s.DataClient.GetUser(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			Unauthorized(response, errors.Unauthorizedf("user not found"))
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, UserResponse{ID: user.ID, Email: user.Email, DisplayName: user.DisplayName})
}

/* Catalog */

// Success is the returned data structure for data insert operations.
type Success struct {
	RowAffected int `json:"row_affected"`
}

func (s *RestServer) insertArtist(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var artist data.Artist
	if err := request.ReadEntity(&artist); err != nil {
		BadRequest(response, err)
		return
	}
	if err := s.DataClient.InsertArtist(ctx, &artist); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, artist)
}

func (s *RestServer) getArtist(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	artistID, err := ParseID(request, "artist-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	artist, err := s.DataClient.GetArtist(ctx, artistID)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, artist)
}

func (s *RestServer) getArtists(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	artists, err := s.DataClient.ListArtists(ctx, n)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, artists)
}

func (s *RestServer) insertTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var track data.Track
	if err := request.ReadEntity(&track); err != nil {
		BadRequest(response, err)
		return
	}
	if err := s.DataClient.InsertTrack(ctx, &track); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, track)
}

func (s *RestServer) getTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	trackID, err := ParseID(request, "track-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	track, err := s.DataClient.GetTrack(ctx, trackID)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, track)
}

func (s *RestServer) getTracks(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	tracks, err := s.DataClient.ListTracks(ctx, n)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, tracks)
}

func (s *RestServer) deleteTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	trackID, err := ParseID(request, "track-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	if err = s.DataClient.DeleteTrack(ctx, trackID); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Success{RowAffected: 1})
}

/* Playlists */

type PlaylistResponse struct {
	data.Playlist
	TrackIDs []int32 `json:"track_ids"`
}

func (s *RestServer) insertPlaylist(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	var playlist data.Playlist
	if err := request.ReadEntity(&playlist); err != nil {
		BadRequest(response, err)
		return
	}
	playlist.UserID = userID
	if err := s.DataClient.InsertPlaylist(ctx, &playlist); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, playlist)
}

func (s *RestServer) getPlaylist(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	playlistID, err := ParseID(request, "playlist-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	playlist, err := s.DataClient.GetPlaylist(ctx, playlistID)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	trackIDs, err := s.DataClient.ListPlaylistTracks(ctx, playlistID)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, PlaylistResponse{Playlist: playlist, TrackIDs: trackIDs})
}

func (s *RestServer) getPlaylists(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	playlists, err := s.DataClient.ListPlaylists(ctx, userID)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, playlists)
}

// ownedPlaylist loads a playlist and checks the authenticated user owns it.
func (s *RestServer) ownedPlaylist(request *restful.Request, response *restful.Response) (int32, int32, bool) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return 0, 0, false
	}
	playlistID, err := ParseID(request, "playlist-id")
	if err != nil {
		BadRequest(response, err)
		return 0, 0, false
	}
	playlist, err := s.DataClient.GetPlaylist(ctx, playlistID)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return 0, 0, false
	}
	trackID, err := ParseID(request, "track-id")
	if err != nil {
		BadRequest(response, err)
		return 0, 0, false
	}
	if playlist.UserID != userID {
		Unauthorized(response, errors.Unauthorizedf("not the playlist owner"))
		return 0, 0, false
	}
	return playlistID, trackID, true
}

func (s *RestServer) addPlaylistTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	playlistID, trackID, ok := s.ownedPlaylist(request, response)
	if !ok {
		return
	}
	if _, err := s.DataClient.GetTrack(ctx, trackID); err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	if err := s.DataClient.AddPlaylistTrack(ctx, playlistID, trackID); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Success{RowAffected: 1})
}

func (s *RestServer) removePlaylistTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	playlistID, trackID, ok := s.ownedPlaylist(request, response)
	if !ok {
		return
	}
	if err := s.DataClient.RemovePlaylistTrack(ctx, playlistID, trackID); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Success{RowAffected: 1})
}

/* Likes */

func (s *RestServer) likeTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	trackID, err := ParseID(request, "track-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	if _, err = s.DataClient.GetTrack(ctx, trackID); err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	if err = s.DataClient.LikeTrack(ctx, userID, trackID); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Success{RowAffected: 1})
}

func (s *RestServer) unlikeTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	trackID, err := ParseID(request, "track-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	if err = s.DataClient.UnlikeTrack(ctx, userID, trackID); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Success{RowAffected: 1})
}

func (s *RestServer) getLikes(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	trackIDs, err := s.DataClient.LikedTrackIDs(ctx, userID)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, trackIDs)
}

/* Onboarding */

type PreferredArtistsRequest struct {
	ArtistIDs []int32 `json:"artist_ids"`
}

func (s *RestServer) setPreferredArtists(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	var body PreferredArtistsRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if err := s.DataClient.SetPreferredArtists(ctx, userID, body.ArtistIDs); err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Success{RowAffected: len(body.ArtistIDs)})
}

func (s *RestServer) getPreferredArtists(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	artistIDs, err := s.DataClient.PreferredArtistIDs(ctx, userID)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, artistIDs)
}

/* Interactions */

type InteractionRequest struct {
	TrackID         *int32 `json:"track_id"`
	SecondsListened int    `json:"seconds_listened"`
	IsCompleted     bool   `json:"is_completed"`
	Device          string `json:"device"`
	ContextType     string `json:"context_type"`
	Milestone       *int   `json:"milestone"`
}

type InteractionResponse struct {
	RowAffected      int  `json:"row_affected"`
	RetrainScheduled bool `json:"retrain_scheduled"`
}

func (s *RestServer) insertInteraction(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, ok := s.currentUser(request, response)
	if !ok {
		return
	}
	var body InteractionRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if body.TrackID != nil {
		if _, err := s.DataClient.GetTrack(ctx, *body.TrackID); err != nil {
			if errors.IsNotFound(err) {
				PageNotFound(response, err)
			} else {
				InternalServerError(response, err)
			}
			return
		}
	}
	interaction := data.Interaction{
		UserID:          userID,
		TrackID:         body.TrackID,
		PlayedAt:        time.Now(),
		SecondsListened: body.SecondsListened,
		IsCompleted:     body.IsCompleted,
		Device:          body.Device,
		ContextType:     body.ContextType,
		Milestone:       body.Milestone,
	}
	if err := s.DataClient.InsertInteraction(ctx, &interaction); err != nil {
		InternalServerError(response, err)
		return
	}
	if body.TrackID != nil {
		if err := s.DataClient.IncrementTrackViews(ctx, *body.TrackID); err != nil {
			log.ResponseLogger(response).Warn("failed to bump track views", zap.Error(err))
		}
	}
	scheduled := s.Orchestrator.MaybeRetrainAsync(ctx)
	Ok(response, InteractionResponse{RowAffected: 1, RetrainScheduled: scheduled})
}

/* Recommendations */

func (s *RestServer) recommendForUser(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, err := ParseID(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	excludeListened := request.QueryParameter("exclude-listened") != "false"
	minScore := 0.0
	if raw := request.QueryParameter("min-score"); raw != "" {
		if minScore, err = strconv.ParseFloat(raw, 64); err != nil {
			BadRequest(response, err)
			return
		}
	}
	start := time.Now()
	scores, err := s.Recommender.RecommendForUser(ctx, userID, n, excludeListened, minScore)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	RecommendSeconds.Observe(time.Since(start).Seconds())
	Ok(response, scores)
}

func (s *RestServer) recommendSimilar(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	trackID, err := ParseID(request, "track-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	scores, err := s.Recommender.RecommendSimilar(ctx, trackID, n)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, scores)
}

func (s *RestServer) recommendBehavioral(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	userID, err := ParseID(request, "user-id")
	if err != nil {
		BadRequest(response, err)
		return
	}
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	scores, err := s.Recommender.RecommendBehavioral(ctx, userID, n)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, scores)
}

func (s *RestServer) getPopular(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	n, err := ParseInt(request, "n", s.Config.Recommend.DefaultN)
	if err != nil {
		BadRequest(response, err)
		return
	}
	popular, err := s.DataClient.PopularTracks(ctx, n, nil)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, logics.ColdStart(popular))
}

func (s *RestServer) recommendPlaylists(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var artistIDs []int32
	for _, field := range strings.Split(request.QueryParameter("artists"), ",") {
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 32)
		if err != nil {
			BadRequest(response, errors.NotValidf("query parameter artists"))
			return
		}
		artistIDs = append(artistIDs, int32(id))
	}
	playlists, err := s.Recommender.RecommendPlaylists(ctx, artistIDs)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, playlists)
}

/* Mood */

type MoodRequest struct {
	UserText string `json:"user_text"`
	TopK     int    `json:"top_k"`
}

type MoodResponse struct {
	Mood       string           `json:"mood"`
	Candidates []mood.Candidate `json:"candidates"`
}

func (s *RestServer) recommendByMood(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	var body MoodRequest
	if err := request.ReadEntity(&body); err != nil {
		BadRequest(response, err)
		return
	}
	if body.TopK <= 0 {
		body.TopK = s.Config.Recommend.DefaultN
	}
	category := mood.FromText(body.UserText)
	tracks, err := s.DataClient.ListTracks(ctx, moodCandidateLimit)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	candidates := make([]mood.Candidate, 0, len(tracks))
	for _, track := range tracks {
		if track.Valence == nil || track.Arousal == nil {
			continue
		}
		candidates = append(candidates, mood.Candidate{
			TrackID: track.ID,
			Valence: *track.Valence,
			Arousal: *track.Arousal,
		})
	}
	Ok(response, MoodResponse{
		Mood:       category.String(),
		Candidates: mood.Rank(category, candidates, body.TopK),
	})
}

/* Deezer proxy */

func (s *RestServer) deezerSearch(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	query := request.QueryParameter("q")
	if query == "" {
		BadRequest(response, errors.BadRequestf("missing query"))
		return
	}
	limit, err := ParseInt(request, "limit", 10)
	if err != nil {
		BadRequest(response, err)
		return
	}
	DeezerRequestsTotal.WithLabelValues("search").Inc()
	body, err := s.Deezer.Search(ctx, query, limit)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, body)
}

func (s *RestServer) deezerChart(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	limit, err := ParseInt(request, "limit", 10)
	if err != nil {
		BadRequest(response, err)
		return
	}
	DeezerRequestsTotal.WithLabelValues("chart").Inc()
	body, err := s.Deezer.Chart(ctx, limit)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, body)
}

func (s *RestServer) deezerTrack(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	trackID, err := strconv.ParseInt(request.PathParameter("track-id"), 10, 64)
	if err != nil {
		BadRequest(response, err)
		return
	}
	DeezerRequestsTotal.WithLabelValues("track").Inc()
	body, err := s.Deezer.Track(ctx, trackID)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	Ok(response, body)
}

func (s *RestServer) deezerStream(request *restful.Request, response *restful.Response) {
	ctx := request.Request.Context()
	trackID, err := strconv.ParseInt(request.PathParameter("track-id"), 10, 64)
	if err != nil {
		BadRequest(response, err)
		return
	}
	DeezerRequestsTotal.WithLabelValues("stream").Inc()
	audio, err := s.Deezer.Preview(ctx, trackID)
	if err != nil {
		if errors.IsNotFound(err) {
			PageNotFound(response, err)
		} else {
			InternalServerError(response, err)
		}
		return
	}
	defer audio.Close()
	response.Header().Set("Content-Type", "audio/mpeg")
	if _, err = io.Copy(response, audio); err != nil {
		log.ResponseLogger(response).Error("failed to stream preview", zap.Error(err))
	}
}

/* Health */

type HealthResponse struct {
	Ready bool `json:"ready"`
}

func (s *RestServer) health(_ *restful.Request, response *restful.Response) {
	if err := s.DataClient.Ping(); err != nil {
		response.Header().Set("Access-Control-Allow-Origin", "*")
		if err := response.WriteHeaderAndJson(http.StatusServiceUnavailable, HealthResponse{Ready: false}, restful.MIME_JSON); err != nil {
			log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
		}
		return
	}
	Ok(response, HealthResponse{Ready: true})
}

/* Helpers */

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns an internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// PageNotFound returns a not found error.
func PageNotFound(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusNotFound, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Unauthorized returns an unauthorized error.
func Unauthorized(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteError(http.StatusUnauthorized, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}

const moodCandidateLimit = 10000
