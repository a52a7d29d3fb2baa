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

// Package cache holds short-lived values such as proxied Deezer responses.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
)

const RedisPrefix = "redis://"

var ErrObjectNotExist = errors.NotFoundf("object")

// Database is a key-value cache with per-key expiration.
type Database interface {
	// Get returns the value of a key. ErrObjectNotExist is returned for
	// missing or expired keys.
	Get(ctx context.Context, key string) (string, error)
	// Set stores a value with a time-to-live.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Delete removes a key.
	Delete(ctx context.Context, key string) error
	// Close releases the cache.
	Close() error
}

// Open a cache identified by a URL-style address. An empty address opens the
// in-process cache.
func Open(path string) (Database, error) {
	if path == "" {
		return NewInMemory(), nil
	}
	if strings.HasPrefix(path, RedisPrefix) {
		opts, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		return &Redis{client: redis.NewClient(opts)}, nil
	}
	return nil, errors.NotSupportedf("cache %s", path)
}

// Redis is the go-redis backed cache.
type Redis struct {
	client *redis.Client
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", errors.Trace(ErrObjectNotExist)
	}
	return value, errors.Trace(err)
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return errors.Trace(r.client.Set(ctx, key, value, ttl).Err())
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return errors.Trace(r.client.Del(ctx, key).Err())
}

func (r *Redis) Close() error {
	return errors.Trace(r.client.Close())
}

// InMemory is the ttlcache backed fallback used when Redis is not configured.
type InMemory struct {
	cache *ttlcache.Cache[string, string]
}

func NewInMemory() *InMemory {
	c := ttlcache.New[string, string]()
	go c.Start()
	return &InMemory{cache: c}
}

func (m *InMemory) Get(_ context.Context, key string) (string, error) {
	item := m.cache.Get(key)
	if item == nil {
		return "", errors.Trace(ErrObjectNotExist)
	}
	return item.Value(), nil
}

func (m *InMemory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *InMemory) Delete(_ context.Context, key string) error {
	m.cache.Delete(key)
	return nil
}

func (m *InMemory) Close() error {
	m.cache.Stop()
	return nil
}
