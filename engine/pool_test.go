// Copyright 2026 The Constrain Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolBoundsConcurrentAcquisitions(t *testing.T) {
	t.Parallel()
	p := NewPool(1)
	ctx := context.Background()

	require.NoError(t, p.acquire(ctx))

	blocked := context.Background()
	cctx, cancel := context.WithCancel(blocked)
	cancel()
	err := p.acquire(cctx)
	assert.Error(t, err, "a second acquire on a pool of size 1 must block until release, so an already-cancelled context must fail immediately")

	p.release()
	require.NoError(t, p.acquire(ctx))
	p.release()
}

func TestNewPoolDefaultsToSomePositiveSize(t *testing.T) {
	t.Parallel()
	p := NewPool(0)
	require.NoError(t, p.acquire(context.Background()))
	p.release()
}
