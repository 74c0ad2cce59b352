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
	"math"
)

// Oracle is the external LLM collaborator (spec §6): it yields logits for
// a token-id prefix and samples one token at a given temperature. Engine
// applies the grammar's mask to the logits itself before sampling (spec
// §4.6: "mask out disallowed tokens by adding -∞ to their logits"), except
// during the accepting-state relaxation, where it deliberately samples the
// unmasked distribution and post-corrects. Out of scope otherwise; Engine
// treats it as an opaque interface.
type Oracle interface {
	// Logits returns one float32 per vocabulary entry for the given
	// token-id prefix.
	Logits(ctx context.Context, prefix []int32) ([]float32, error)

	// SampleWithTemperature draws one token id from logits at the given
	// temperature and reports its log-probability under that distribution.
	// temperature <= 0 means greedy (argmax).
	SampleWithTemperature(logits []float32, temperature float64) (token int32, logProb float64, err error)
}

// applyMask adds -Inf to every logit whose token id mask excludes, the
// engine's half of spec §4.6's masking step; the oracle itself never needs
// to know about the grammar.
func applyMask(logits []float32, mask []bool) []float32 {
	out := append([]float32(nil), logits...)
	for i := range out {
		if i >= len(mask) || !mask[i] {
			out[i] = float32(math.Inf(-1))
		}
	}
	return out
}
