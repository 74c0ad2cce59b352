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
	"bytes"
	"time"

	"github.com/tokenlattice/constrain/parser"
)

// Response is the engine-call response spec §6 names, emitted once per
// Advance call the decode loop drives. NewBytes is GeneratedBytes followed
// by ForceForwardedBytes; both are broken out separately since callers
// (e.g. a streaming UI) often want to distinguish model output from
// grammar-mandated filler.
type Response struct {
	NewBytes            []byte
	GeneratedBytes      []byte
	ForceForwardedBytes []byte

	NewTokenCount int
	Backtrack     int

	// Captures holds only what changed since the previous Response: newly
	// assigned values for plain captures, newly appended elements for list
	// captures (spec §4.6: "capture-group deltas with log-probabilities").
	Captures parser.Captures

	IsGenerated bool
	Done        bool
	LatencyMs   float64
}

func newResponse(generated, forced []byte, tokenConsumed bool, backtrack int, delta parser.Captures, done bool, silent bool, latency time.Duration) Response {
	r := Response{
		GeneratedBytes: generated,
		ForceForwardedBytes: forced,
		NewBytes:       append(append([]byte(nil), generated...), forced...),
		NewTokenCount:  0,
		Backtrack:      backtrack,
		Captures:       delta,
		IsGenerated:    tokenConsumed && backtrack == 0,
		Done:           done,
		LatencyMs:      float64(latency) / float64(time.Millisecond),
	}
	if tokenConsumed && backtrack == 0 {
		r.NewTokenCount = 1
	}
	if silent {
		r.NewBytes, r.GeneratedBytes, r.ForceForwardedBytes = nil, nil, nil
	}
	return r
}

// diffCaptures returns the subset of cur not already present in prev: new
// keys or changed values for plain captures, newly appended elements for
// list captures. Well-formed grammars only ever assign a plain capture
// once, so "changed" is mostly a defensive check.
func diffCaptures(prev, cur parser.Captures) parser.Captures {
	delta := parser.Captures{
		Values:       map[string][]byte{},
		LogProbs:     map[string]float64{},
		Lists:        map[string][][]byte{},
		ListLogProbs: map[string][]float64{},
	}
	for name, v := range cur.Values {
		if pv, ok := prev.Values[name]; !ok || !bytes.Equal(pv, v) {
			delta.Values[name] = v
			delta.LogProbs[name] = cur.LogProbs[name]
		}
	}
	for name, list := range cur.Lists {
		start := len(prev.Lists[name])
		if len(list) > start {
			delta.Lists[name] = append([][]byte(nil), list[start:]...)
			delta.ListLogProbs[name] = append([]float64(nil), cur.ListLogProbs[name][start:]...)
		}
	}
	return delta
}
