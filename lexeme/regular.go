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
)

// Op names a regular-language combinator accepted by AsRegularGrammar.
type Op int

const (
	// Not complements a single operand: every byte string not matched by
	// it.
	Not Op = iota
	// And intersects two or more operands.
	And
	// Or unions two or more operands.
	Or
)

func (op Op) String() string {
	switch op {
	case Not:
		return "not"
	case And:
		return "and"
	case Or:
		return "or"
	default:
		return "op"
	}
}

// AsRegularGrammar converts a Not/And/Or composition of lexeme bodies
// (byte-matching subgraphs, the same shape ir.Context.Lexeme takes as its
// body argument) into a single regular lexeme body accepting exactly the
// combined language (spec §4.4: "converts a Not/And/Or composition of
// lexeme regexes into a single regular lexeme"). Every operand is compiled
// to a DFA via Thompson construction + subset construction
// (nfa.go/dfa.go), combined with complement/product, and the result
// lowered back into IR — the classic automata-theoretic route to boolean
// operations on regular languages, grounded on the teacher-adjacent
// NFA/DFA shape in the pack's dekarrin/tunaq automaton package.
//
// Not takes exactly one operand; And and Or take two or more. The
// returned Node is a byte-matching subgraph suitable for passing to
// ir.Context.Lexeme, not a Lexeme node itself.
func AsRegularGrammar(ctx *ir.Context, op Op, operands ...ir.Node) (ir.Node, error) {
	switch op {
	case Not:
		if len(operands) != 1 {
			return ir.Node{}, fmt.Errorf("lexeme: not takes exactly one operand, got %d", len(operands))
		}
	case And, Or:
		if len(operands) < 2 {
			return ir.Node{}, fmt.Errorf("lexeme: %v takes at least two operands, got %d", op, len(operands))
		}
	default:
		return ir.Node{}, fmt.Errorf("lexeme: unknown op %d", op)
	}

	dfas := make([]*dfa, len(operands))
	for i, o := range operands {
		n, err := buildNFA(o)
		if err != nil {
			return ir.Node{}, err
		}
		dfas[i] = toDFA(n)
	}

	var result *dfa
	switch op {
	case Not:
		result = complement(dfas[0])
	case And:
		result = dfas[0]
		for _, d := range dfas[1:] {
			result = product(result, d, func(a, b bool) bool { return a && b })
		}
	case Or:
		result = dfas[0]
		for _, d := range dfas[1:] {
			result = product(result, d, func(a, b bool) bool { return a || b })
		}
	}

	if !reachesAccept(result) {
		return ir.Node{}, &UnsatisfiableRegularGrammar{Op: op}
	}

	return dfaToIR(ctx, result), nil
}

// dfaToIR lowers a total DFA back into a byte-matching IR subgraph: each
// state becomes a Select of (optionally) Null for acceptance plus one
// Join(ByteRange, next-state) alternative per live outgoing edge.
// Edges into the dead state, or into any state from which no accepting
// state is reachable, are omitted outright — they denote rejection, which
// in this IR is expressed by the absence of an alternative rather than an
// explicit "fail" node.
func dfaToIR(ctx *ir.Context, d *dfa) ir.Node {
	keys := make([]*int, len(d.accepting))
	for i := range keys {
		v := i
		keys[i] = &v
	}
	onCycle := statesOnCycle(d)

	live := append([]bool(nil), d.accepting...)
	for changed := true; changed; {
		changed = false
		for s, edges := range d.edges {
			for _, e := range edges {
				if !live[s] && live[e.to] {
					live[s], changed = true, true
				}
			}
		}
	}

	// built memoizes completed states so that two edges converging on the
	// same target (a merge, not necessarily a cycle) share one subgraph
	// instead of being rebuilt; ctx.Recursive's own scope already handles
	// the cyclic case (a state reachable from itself resolves to the
	// placeholder still being built), but it only dedupes while that
	// build is in progress, not after it returns.
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
				if !live[e.to] {
					continue
				}
				alts = append(alts, ctx.Join(ctx.ByteRange(e.lo, e.hi), build(e.to)))
			}
			return ctx.Select(onCycle[state], alts...)
		})
		built[state] = node
		return node
	}

	return build(d.start)
}
