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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetDefaultConfig(t *testing.T) {
	conf := GetDefaultConfig()
	assert.Equal(t, "sqlite://harmonia.db", conf.Database.DataStore)
	assert.Equal(t, 20, conf.Train.InteractionThreshold)
	assert.Equal(t, 1, conf.Train.UserThreshold)
	assert.Equal(t, 30*time.Second, conf.Train.Debounce)
	assert.Equal(t, 90*24*time.Hour, conf.Recommend.ExcludeWindow)
	assert.Equal(t, 20, conf.Recommend.DefaultN)
	assert.NoError(t, conf.Validate())
}

func TestLoadConfig(t *testing.T) {
	text := `
[database]
data_store = "sqlite:///tmp/test.db"

[train]
interaction_threshold = 5
debounce = "10s"

[server]
port = 9000
`
	path := filepath.Join(t.TempDir(), "config.toml")
	assert.NoError(t, os.WriteFile(path, []byte(text), 0644))
	conf, err := LoadConfig(path)
	assert.NoError(t, err)
	assert.Equal(t, "sqlite:///tmp/test.db", conf.Database.DataStore)
	assert.Equal(t, 5, conf.Train.InteractionThreshold)
	assert.Equal(t, 10*time.Second, conf.Train.Debounce)
	assert.Equal(t, 9000, conf.Server.Port)
	// defaults survive partial files
	assert.Equal(t, 1, conf.Train.UserThreshold)
}

func TestValidate(t *testing.T) {
	conf := GetDefaultConfig()
	conf.Database.DataStore = "oracle://localhost"
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Train.InteractionThreshold = 0
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Train.Debounce = -time.Second
	assert.Error(t, conf.Validate())

	conf = GetDefaultConfig()
	conf.Recommend.ModelPath = ""
	assert.Error(t, conf.Validate())
}
