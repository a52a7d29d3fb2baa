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

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	c, err := Open("")
	assert.NoError(t, err)
	defer c.Close()

	_, err = c.Get(ctx, "missing")
	assert.True(t, errors.Is(err, ErrObjectNotExist))

	assert.NoError(t, c.Set(ctx, "key", "value", time.Minute))
	value, err := c.Get(ctx, "key")
	assert.NoError(t, err)
	assert.Equal(t, "value", value)

	assert.NoError(t, c.Delete(ctx, "key"))
	_, err = c.Get(ctx, "key")
	assert.True(t, errors.Is(err, ErrObjectNotExist))
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("memcached://localhost")
	assert.Error(t, err)
}
