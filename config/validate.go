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
	"strings"
	"time"

	"github.com/juju/errors"
)

var dataStorePrefixes = []string{"sqlite://", "mysql://", "postgres://", "postgresql://"}

// Validate checks the configuration for invalid values.
func (config *Config) Validate() error {
	if err := validatePrefix("database.data_store", config.Database.DataStore, dataStorePrefixes); err != nil {
		return err
	}
	if config.Database.CacheStore != "" {
		if err := validatePrefix("database.cache_store", config.Database.CacheStore, []string{"redis://"}); err != nil {
			return err
		}
	}
	if err := validateNotEmpty("recommend.model_path", config.Recommend.ModelPath); err != nil {
		return err
	}
	if err := validateNotEmpty("recommend.meta_path", config.Recommend.MetaPath); err != nil {
		return err
	}
	if err := validatePositive("recommend.default_n", config.Recommend.DefaultN); err != nil {
		return err
	}
	if err := validateNotNegativeDuration("recommend.exclude_window", config.Recommend.ExcludeWindow); err != nil {
		return err
	}
	if err := validateNotEmpty("train.command", config.Train.Command); err != nil {
		return err
	}
	if err := validatePositive("train.interaction_threshold", config.Train.InteractionThreshold); err != nil {
		return err
	}
	if err := validatePositive("train.user_threshold", config.Train.UserThreshold); err != nil {
		return err
	}
	if err := validateNotNegativeDuration("train.debounce", config.Train.Debounce); err != nil {
		return err
	}
	if err := validatePositive("train.factors", config.Train.Factors); err != nil {
		return err
	}
	if err := validatePositive("train.epochs", config.Train.Epochs); err != nil {
		return err
	}
	if err := validatePositive("server.port", config.Server.Port); err != nil {
		return err
	}
	if err := validateNotNegativeDuration("auth.token_expiry", config.Auth.TokenExpiry); err != nil {
		return err
	}
	return nil
}

func validateNotEmpty(name, val string) error {
	if val == "" {
		return errors.NotValidf("value of `%s` in config must not be empty", name)
	}
	return nil
}

func validatePositive(name string, val int) error {
	if val <= 0 {
		return errors.NotValidf("value of `%s` in config must be positive, but the current value is %d", name, val)
	}
	return nil
}

func validateNotNegativeDuration(name string, val time.Duration) error {
	if val < 0 {
		return errors.NotValidf("value of `%s` in config must not be negative, but the current value is %v", name, val)
	}
	return nil
}

func validatePrefix(name, val string, prefixes []string) error {
	for _, prefix := range prefixes {
		if strings.HasPrefix(val, prefix) {
			return nil
		}
	}
	return errors.NotValidf("value of `%s` in config must start with one of [%s], but the current value is %s",
		name, strings.Join(prefixes, ","), val)
}
