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
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many generations sharing one Engine's compiled grammar
// may run concurrently, the same role protocompile.Compiler's semaphore
// plays across its per-file compilation tasks: one permit per generation,
// acquired for the duration of its decode loop and released when it
// finishes or its context is cancelled.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool builds a Pool sized to maxParallelism, or to
// min(GOMAXPROCS, NumCPU) when maxParallelism is non-positive.
func NewPool(maxParallelism int) *Pool {
	n := maxParallelism
	if n <= 0 {
		n = runtime.GOMAXPROCS(-1)
		if cpus := runtime.NumCPU(); cpus < n {
			n = cpus
		}
	}
	return &Pool{sem: semaphore.NewWeighted(int64(n))}
}

func (p *Pool) acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

func (p *Pool) release() {
	p.sem.Release(1)
}
