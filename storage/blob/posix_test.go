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

package blob

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPOSIX(t *testing.T) {
	store := NewPOSIX(t.TempDir())
	assert.False(t, store.Exists("previews/1.mp3"))

	assert.NoError(t, store.Put("previews/1.mp3", strings.NewReader("audio")))
	assert.True(t, store.Exists("previews/1.mp3"))

	r, err := store.Open("previews/1.mp3")
	assert.NoError(t, err)
	content, err := io.ReadAll(r)
	assert.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.Equal(t, "audio", string(content))

	// overwrite
	assert.NoError(t, store.Put("previews/1.mp3", strings.NewReader("audio2")))
	r, err = store.Open("previews/1.mp3")
	assert.NoError(t, err)
	content, err = io.ReadAll(r)
	assert.NoError(t, err)
	assert.NoError(t, r.Close())
	assert.Equal(t, "audio2", string(content))

	assert.NoError(t, store.Remove("previews/1.mp3"))
	assert.False(t, store.Exists("previews/1.mp3"))
}
