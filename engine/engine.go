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

// Package engine drives a parser's frontier against an LLM oracle: request
// logits, mask out disallowed tokens, sample with temperature, feed the
// token back, and surface a response chunk per step (spec §4.6).
package engine

import (
	"fmt"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/reporter"
	"github.com/tokenlattice/constrain/vocab"
)

// Options is the engine's flat public-field configuration, mirroring
// protocompile.Compiler's configuration shape rather than a functional-
// options builder.
type Options struct {
	// MaxParallelism bounds the number of generations that may share one
	// Engine's compiled grammar concurrently. Zero or negative picks
	// min(GOMAXPROCS, NumCPU), same default protocompile.Compiler uses.
	MaxParallelism int

	// Temperature is the sampling temperature applied where the grammar
	// itself carries no WithTemperature annotation (the parser's own
	// neutral default is 1.0). Zero means "use the parser's default".
	Temperature float64

	// Silent suppresses the bytes a Response surfaces to the caller
	// (NewBytes/GeneratedBytes/ForceForwardedBytes) while still letting the
	// parser commit them internally. Ports the original `_model.py` echo
	// mode.
	Silent bool

	// MaxTotalTokens caps the number of sampled tokens across the entire
	// generation, beyond whatever per-subtree TokenLimit/Gen.MaxTokens the
	// grammar already carries. Implemented as a synthetic outer
	// ir.TokenLimit wrapping the compiled root. Zero means unbounded.
	MaxTotalTokens int
}

// Engine drives one compiled grammar. It is safe to call Generate from
// multiple goroutines concurrently: each call builds its own parser over
// the shared, read-only grammar (spec §5's "multiple independent
// generations may proceed in parallel, each with its own parser"); Pool
// bounds how many may actually run logits/sampling at once.
type Engine struct {
	ctx  *ir.Context
	root ir.Node
	idx  *vocab.Index
	opts Options

	handler *reporter.Handler
	logger  Logger
	pool    *Pool
}

// Logger receives per-step diagnostic traces (latency, backtrack counts).
// *log.Logger satisfies this; nil means silent, matching the teacher's
// optional Reporter field defaulting to a no-op.
type Logger interface {
	Printf(format string, args ...interface{})
}

// New compiles root (wrapped in a synthetic TokenLimit when
// Options.MaxTotalTokens is set) and returns an Engine ready to drive
// generations against it. handler receives each parser failure (and each
// out-of-mask sample outside the accepting-state relaxation) the decode
// loop raises before it's returned to the caller; oracle and token-decoding
// errors are returned without going through it. This matches rx.Parse and
// jsonschema.NewCompiler's dependency-injected reporting; it may be nil.
// logger may be nil.
func New(ctx *ir.Context, root ir.Node, idx *vocab.Index, opts Options, handler *reporter.Handler, logger Logger) (*Engine, error) {
	if ctx == nil {
		return nil, fmt.Errorf("engine: nil grammar context")
	}
	if idx == nil {
		return nil, fmt.Errorf("engine: nil vocabulary index")
	}
	wrapped := root
	if opts.MaxTotalTokens > 0 {
		wrapped = ctx.TokenLimit(root, opts.MaxTotalTokens)
	}
	return &Engine{
		ctx:     ctx,
		root:    wrapped,
		idx:     idx,
		opts:    opts,
		handler: handler,
		logger:  logger,
		pool:    NewPool(opts.MaxParallelism),
	}, nil
}

func (e *Engine) tracef(format string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

func effectiveTemperature(fromGrammar, fromOptions float64) float64 {
	if fromGrammar == 1.0 && fromOptions != 0 {
		return fromOptions
	}
	return fromGrammar
}
