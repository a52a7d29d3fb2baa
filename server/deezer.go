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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/juju/errors"
	"go.uber.org/zap"

	"github.com/harmonia-fm/harmonia/base/log"
	"github.com/harmonia-fm/harmonia/config"
	"github.com/harmonia-fm/harmonia/storage/blob"
	"github.com/harmonia-fm/harmonia/storage/cache"
)

// DeezerClient proxies the Deezer public API. Metadata responses are cached
// in the cache store, preview audio is cached in the blob store so repeated
// plays never hit Deezer twice.
type DeezerClient struct {
	baseURL string
	client  *http.Client
	cache   cache.Database
	blobs   *blob.POSIX
	ttl     time.Duration
}

func NewDeezerClient(cfg config.DeezerConfig, cacheClient cache.Database) *DeezerClient {
	return &DeezerClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		cache:   cacheClient,
		blobs:   blob.NewPOSIX(cfg.CacheDir),
		ttl:     cfg.CacheTTL,
	}
}

// get fetches a URL with exponential backoff. Server errors are retried,
// client errors are not.
func (c *DeezerClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	return backoff.Retry(ctx, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, backoff.Permanent(errors.NotFoundf("deezer resource %s", rawURL))
		case resp.StatusCode >= http.StatusInternalServerError:
			return nil, errors.Errorf("deezer status %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return nil, backoff.Permanent(errors.Errorf("deezer status %d", resp.StatusCode))
		}
		return io.ReadAll(resp.Body)
	}, backoff.WithMaxTries(3))
}

// cachedGet returns the cached body of a URL, fetching and caching on a miss.
func (c *DeezerClient) cachedGet(ctx context.Context, rawURL string) (json.RawMessage, error) {
	if cached, err := c.cache.Get(ctx, rawURL); err == nil {
		return json.RawMessage(cached), nil
	} else if !errors.Is(err, cache.ErrObjectNotExist) {
		log.Logger().Warn("failed to read deezer cache", zap.Error(err))
	}
	body, err := c.get(ctx, rawURL)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = c.cache.Set(ctx, rawURL, string(body), c.ttl); err != nil {
		log.Logger().Warn("failed to write deezer cache", zap.Error(err))
	}
	return body, nil
}

// Search queries Deezer tracks by free text.
func (c *DeezerClient) Search(ctx context.Context, query string, limit int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	return c.cachedGet(ctx, fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode()))
}

// Chart returns the Deezer track chart.
func (c *DeezerClient) Chart(ctx context.Context, limit int) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	return c.cachedGet(ctx, fmt.Sprintf("%s/chart/0/tracks?%s", c.baseURL, params.Encode()))
}

// Track returns the Deezer track metadata, including the preview URL.
func (c *DeezerClient) Track(ctx context.Context, trackID int64) (json.RawMessage, error) {
	return c.cachedGet(ctx, fmt.Sprintf("%s/track/%d", c.baseURL, trackID))
}

// Preview returns the 30s preview audio of a track, downloading it into the
// blob store on first access.
func (c *DeezerClient) Preview(ctx context.Context, trackID int64) (io.ReadCloser, error) {
	name := fmt.Sprintf("%d.mp3", trackID)
	if c.blobs.Exists(name) {
		return c.blobs.Open(name)
	}
	body, err := c.Track(ctx, trackID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	var track struct {
		Preview string `json:"preview"`
	}
	if err = json.Unmarshal(body, &track); err != nil {
		return nil, errors.Trace(err)
	}
	if track.Preview == "" {
		return nil, errors.NotFoundf("preview of deezer track %d", trackID)
	}
	audio, err := c.get(ctx, track.Preview)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = c.blobs.Put(name, bytes.NewReader(audio)); err != nil {
		// caching is best effort, still serve the downloaded bytes
		log.Logger().Warn("failed to cache deezer preview", zap.Error(err))
		return io.NopCloser(bytes.NewReader(audio)), nil
	}
	return c.blobs.Open(name)
}
