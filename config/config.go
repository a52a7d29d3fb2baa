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

package config

import (
	"time"

	"github.com/juju/errors"
	"github.com/spf13/viper"
)

// Config is the configuration for the harmonia backend.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Recommend RecommendConfig `mapstructure:"recommend"`
	Train     TrainConfig     `mapstructure:"train"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Deezer    DeezerConfig    `mapstructure:"deezer"`
}

// DatabaseConfig is the configuration for the relational store.
type DatabaseConfig struct {
	// database for the music catalog and interactions
	DataStore string `mapstructure:"data_store"`
	// optional Redis cache, empty to use the in-process cache
	CacheStore string `mapstructure:"cache_store"`
	// prefix of table names
	TablePrefix string `mapstructure:"table_prefix"`
}

// RecommendConfig is the configuration for the recommendation core.
type RecommendConfig struct {
	// path of the trained factor artifact
	ModelPath string `mapstructure:"model_path"`
	// path of the training metadata sidecar
	MetaPath string `mapstructure:"meta_path"`
	// window of interactions excluded in discovery mode
	ExcludeWindow time.Duration `mapstructure:"exclude_window"`
	// default number of recommendations
	DefaultN int `mapstructure:"default_n"`
}

// TrainConfig is the configuration for the retrain orchestrator.
type TrainConfig struct {
	// command spawned to retrain the model
	Command string `mapstructure:"command"`
	// arguments passed to the training command
	Args []string `mapstructure:"args"`
	// new interactions required to schedule a retrain
	InteractionThreshold int `mapstructure:"interaction_threshold"`
	// new users required to schedule a retrain
	UserThreshold int `mapstructure:"user_threshold"`
	// minimum interval between two scheduled retrains
	Debounce time.Duration `mapstructure:"debounce"`
	// number of latent factors
	Factors int `mapstructure:"factors"`
	// number of ALS sweeps
	Epochs int `mapstructure:"epochs"`
}

// ServerConfig is the configuration for the REST server.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AuthConfig is the configuration for token issuance.
type AuthConfig struct {
	// secret used to sign access tokens
	JWTSecret string `mapstructure:"jwt_secret"`
	// lifetime of an access token
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
}

// DeezerConfig is the configuration for the preview proxy.
type DeezerConfig struct {
	// base URL of the Deezer API
	BaseURL string `mapstructure:"base_url"`
	// directory holding cached preview assets
	CacheDir string `mapstructure:"cache_dir"`
	// lifetime of cached search and chart responses
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

func setDefault() {
	// [database]
	viper.SetDefault("database.data_store", "sqlite://harmonia.db")
	viper.SetDefault("database.cache_store", "")
	viper.SetDefault("database.table_prefix", "")
	// [recommend]
	viper.SetDefault("recommend.model_path", "storage/recommender/model.bin")
	viper.SetDefault("recommend.meta_path", "storage/recommender/metadata.json")
	viper.SetDefault("recommend.exclude_window", "2160h")
	viper.SetDefault("recommend.default_n", 20)
	// [train]
	viper.SetDefault("train.command", "harmonia")
	viper.SetDefault("train.args", []string{"train"})
	viper.SetDefault("train.interaction_threshold", 20)
	viper.SetDefault("train.user_threshold", 1)
	viper.SetDefault("train.debounce", "30s")
	viper.SetDefault("train.factors", 32)
	viper.SetDefault("train.epochs", 10)
	// [server]
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8087)
	// [auth]
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_expiry", "24h")
	// [deezer]
	viper.SetDefault("deezer.base_url", "https://api.deezer.com")
	viper.SetDefault("deezer.cache_dir", "storage/previews")
	viper.SetDefault("deezer.cache_ttl", "1h")
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() *Config {
	setDefault()
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		panic(err)
	}
	return &conf
}

// LoadConfig loads configuration from a toml file.
func LoadConfig(path string) (*Config, error) {
	setDefault()
	viper.SetConfigType("toml")
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return nil, errors.Trace(err)
	}
	var conf Config
	if err := viper.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
