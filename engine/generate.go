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
	"fmt"
	"time"

	"github.com/tokenlattice/constrain/parser"
	"github.com/tokenlattice/constrain/reporter"
)

// Emit is called once per Response a generation produces, in order. A
// non-nil return aborts the generation early (e.g. the caller's context
// was cancelled), same contract as reporter.ErrorReporter.
type Emit func(Response) error

// Generate drives one generation to completion: prompt is the token-id
// prefix the oracle should condition on before anything this call samples
// (a chat template's rendered prompt, already tokenized by the caller). It
// initializes a fresh parser over the Engine's compiled grammar, then
// implements the loop from spec §4.6 until the parser reports Done.
//
// Multiple calls to Generate on the same Engine may run concurrently; each
// gets its own parser over the shared, read-only grammar. Pool bounds how
// many may be mid-flight at once.
func (e *Engine) Generate(ctx context.Context, oracle Oracle, prompt []int32, emit Emit) error {
	if err := e.pool.acquire(ctx); err != nil {
		return fmt.Errorf("engine: acquiring generation slot: %w", err)
	}
	defer e.pool.release()

	p, err := parser.New(e.ctx, e.root, e.idx)
	if err != nil {
		return err
	}
	tok := e.idx.Tokenizer()

	condition := append([]int32(nil), prompt...)
	if bos, ok := tok.BOS(); ok {
		condition = append([]int32{bos}, condition...)
		if condition, err = tok.Recode(condition); err != nil {
			return fmt.Errorf("engine: recoding prompt after BOS: %w", err)
		}
	}

	var (
		sampled     *parser.Sampled
		pendingGen  []byte
		prevCapture parser.Captures
	)
	for {
		start := time.Now()
		tokenConsumed := sampled != nil
		step, err := p.Advance(sampled)
		if err != nil {
			e.reportFailure(err, len(p.Bytes()))
			return err
		}
		sampled = nil
		generated := pendingGen
		pendingGen = nil

		backtrack := 0
		if step.Gen != nil {
			backtrack = step.Gen.Backtrack
		}
		if backtrack > 0 {
			generated = nil
		}

		cur := p.Captures()
		delta := diffCaptures(prevCapture, cur)
		prevCapture = cur

		done := step.Gen == nil
		resp := newResponse(generated, step.ForcedBytes, tokenConsumed, backtrack, delta, done, e.opts.Silent, time.Since(start))
		e.tracef("engine: step latency=%.2fms tokens=%d backtrack=%d done=%v", resp.LatencyMs, resp.NewTokenCount, resp.Backtrack, resp.Done)
		if err := emit(resp); err != nil {
			return err
		}
		if done {
			return nil
		}

		prefix := append(append([]int32(nil), condition...), p.Tokens()...)
		temperature := effectiveTemperature(step.Gen.Temperature, e.opts.Temperature)

		logits, err := oracle.Logits(ctx, prefix)
		if err != nil {
			return fmt.Errorf("engine: oracle logits: %w", err)
		}

		relaxed := p.IsAccepting()
		sampleFrom := logits
		if !relaxed {
			sampleFrom = applyMask(logits, step.Gen.Mask)
		}
		tokenID, logProb, err := oracle.SampleWithTemperature(sampleFrom, temperature)
		if err != nil {
			return fmt.Errorf("engine: oracle sample: %w", err)
		}

		if !withinMask(step.Gen.Mask, tokenID) {
			if !relaxed {
				err := &parser.GrammarFailure{Offset: len(p.Bytes()), Message: "oracle sampled a token outside the mask in a non-accepting state"}
				e.reportFailure(err, len(p.Bytes()))
				return err
			}
			e.warnf(reporter.AtOffset(len(p.Bytes())), "accepting-state relaxation: oracle sampled token %d outside the mask, substituting EOS", tokenID)
			tokenID, logProb = tok.EOS(), 0
		}

		bytes, err := tok.Decode([]int32{tokenID})
		if err != nil && tokenID != tok.EOS() {
			return fmt.Errorf("engine: decoding sampled token %d: %w", tokenID, err)
		}
		pendingGen = bytes
		sampled = &parser.Sampled{Token: tokenID, LogProb: logProb}
	}
}

func withinMask(mask []bool, token int32) bool {
	return token >= 0 && int(token) < len(mask) && mask[token]
}

func (e *Engine) reportFailure(err error, offset int) {
	if e.handler == nil {
		return
	}
	e.handler.HandleError(runtimeError{pos: reporter.AtOffset(offset), err: err})
}
