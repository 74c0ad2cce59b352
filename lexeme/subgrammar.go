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

package lexeme

import "github.com/tokenlattice/constrain/ir"

// Options configures how Wrap turns a grammar region into a subgrammar: an
// optional skip-regex applied between lexemes (but not inside them), a cap
// on tokens consumed, and an optional capture name for the whole region
// (spec §4.4).
type Options struct {
	// Skip is the byte-matching subgraph inserted between lexemes, or the
	// zero Node for no inter-lexeme skipping. As with jsonschema's own
	// punctuation wrapping, Skip is applied between parts, never inside
	// one — it has no bearing on what a single lexeme's own body matches.
	Skip ir.Node

	// MaxTokens caps the number of tokens the parser may consume inside
	// this region; 0 means unbounded.
	MaxTokens int

	// CaptureName, if non-empty, records the bytes matched by the whole
	// region under this name.
	CaptureName string

	// ListAppend controls whether each completion of CaptureName appends a
	// new element rather than overwriting the prior value. Ignored if
	// CaptureName is empty.
	ListAppend bool
}

// Wrap applies opts to body, producing the subgrammar region described by
// spec §4.4: a token-limit annotation (if MaxTokens is set) and a capture
// annotation (if CaptureName is set), applied in that order so the capture
// sees the same bytes whether or not the region hit its token cap.
func Wrap(ctx *ir.Context, body ir.Node, opts Options) ir.Node {
	node := body
	if opts.MaxTokens > 0 {
		node = ctx.TokenLimit(node, opts.MaxTokens)
	}
	if opts.CaptureName != "" {
		node = ctx.Capture(node, opts.CaptureName, opts.ListAppend)
	}
	return node
}

// JoinWithSkip sequences parts with skip interleaved between consecutive
// parts, generalizing the inter-lexeme skip wrapping jsonschema.Compiler
// already does inline around JSON punctuation (Compiler.punct/Compiler.skip)
// for reuse by any grammar built from lexeme.Wrap regions. If
// suppressInitial is false, skip is also emitted before the first part; if
// skip is the zero Node, this is equivalent to ctx.Join(parts...).
func JoinWithSkip(ctx *ir.Context, skip ir.Node, suppressInitial bool, parts ...ir.Node) ir.Node {
	if skip.IsZero() || len(parts) == 0 {
		return ctx.Join(parts...)
	}
	joined := make([]ir.Node, 0, 2*len(parts))
	for i, part := range parts {
		if i > 0 || !suppressInitial {
			joined = append(joined, skip)
		}
		joined = append(joined, part)
	}
	return ctx.Join(joined...)
}
