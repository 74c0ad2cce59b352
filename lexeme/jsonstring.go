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

import (
	"fmt"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/rx"
)

// EscapeJSONString lowers body (a lexeme's byte-matching subgraph,
// describing the *decoded* string content) into the byte-matching subgraph
// for the literal, quoted, JSON-escaped text a conforming JSON document
// actually contains for that content (ir.Context.Lexeme's jsonString
// flag: "adds the JSON escape grammar atop body"). Every content byte JSON
// requires escaping (", \, and control bytes below 0x20) is represented as
// its escape sequence; every other byte, including multi-byte UTF-8
// sequences, appears literally. The result is wrapped in a leading and
// trailing `"`.
//
// This walks body's DFA the same way dfaToIR does, but replaces each
// lowered byte-range edge with one alternative per way that byte can
// actually appear in encoded JSON text, reusing the NFA/DFA machinery
// AsRegularGrammar is built on rather than a separate string transducer.
func EscapeJSONString(ctx *ir.Context, body ir.Node) (ir.Node, error) {
	n, err := buildNFA(body)
	if err != nil {
		return ir.Node{}, err
	}
	d := toDFA(n)
	content := escapedDFAToIR(ctx, d)
	quote := ctx.Byte('"')
	return ctx.Join(quote, content, quote), nil
}

// escapedDFAToIR is dfaToIR's sibling for the escaping transform: same
// state-to-Select lowering, but each edge expands to escapedByteAlternatives
// instead of a single ByteRange.
func escapedDFAToIR(ctx *ir.Context, d *dfa) ir.Node {
	keys := make([]*int, len(d.accepting))
	for i := range keys {
		v := i
		keys[i] = &v
	}
	onCycle := statesOnCycle(d)
	built := map[int]ir.Node{}

	var build func(state int) ir.Node
	build = func(state int) ir.Node {
		if node, ok := built[state]; ok {
			return node
		}
		node := ctx.Recursive(keys[state], func(self ir.Node) ir.Node {
			var alts []ir.Node
			if d.accepting[state] {
				alts = append(alts, ctx.Null())
			}
			for _, e := range d.edges[state] {
				if e.to == d.dead {
					continue
				}
				next := build(e.to)
				for _, lit := range escapedByteAlternatives(ctx, e.lo, e.hi) {
					alts = append(alts, ctx.Join(lit, next))
				}
			}
			return ctx.Select(onCycle[state], alts...)
		})
		built[state] = node
		return node
	}

	return build(d.start)
}

// escapedByteAlternatives returns, for an inclusive content-byte range
// [lo,hi], one IR node per distinct literal output form a byte in that
// range takes in JSON-encoded text: a single ByteRange covering the
// sub-range that needs no escaping (merging consecutive safe bytes into one
// alternative), plus one fixed escape-sequence literal for each byte in
// range that JSON requires to be escaped.
func escapedByteAlternatives(ctx *ir.Context, lo, hi byte) []ir.Node {
	var alts []ir.Node
	runStart := -1
	flushRun := func(end int) {
		if runStart != -1 {
			alts = append(alts, ctx.ByteRange(byte(runStart), byte(end)))
			runStart = -1
		}
	}
	for b := int(lo); b <= int(hi); b++ {
		if esc, ok := jsonEscapeFor(byte(b)); ok {
			flushRun(b - 1)
			alts = append(alts, rx.QuoteLiteral(ctx, esc))
			continue
		}
		if runStart == -1 {
			runStart = b
		}
	}
	flushRun(int(hi))
	return alts
}

// jsonEscapeFor returns the backslash escape sequence JSON requires for b,
// if any. The shorthand escapes (\", \\, \n, \r, \t, \b, \f) are preferred
// over the generic \u00XX form; every other byte below 0x20 falls back to
// \u00XX. Bytes at or above 0x20 other than '"' and '\\' need no escaping.
func jsonEscapeFor(b byte) (string, bool) {
	switch b {
	case '"':
		return `\"`, true
	case '\\':
		return `\\`, true
	case '\n':
		return `\n`, true
	case '\r':
		return `\r`, true
	case '\t':
		return `\t`, true
	case '\b':
		return `\b`, true
	case '\f':
		return `\f`, true
	default:
		if b < 0x20 {
			return fmt.Sprintf(`\u%04x`, b), true
		}
		return "", false
	}
}
