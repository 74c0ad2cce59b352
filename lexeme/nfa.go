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

// byteEdge is a single NFA transition on an inclusive byte range.
type byteEdge struct {
	lo, hi byte
	to     int
}

// nfa is a Thompson-style byte-range automaton built from a lexeme's
// byte-matching IR subgraph (Byte/ByteRange/Join/Select/DeferredReference,
// per ir.Context.Lexeme's body contract). States are plain indices; epsilon
// edges and byte-range edges are tracked separately, mirroring the
// teacher-adjacent automaton shape in dekarrin/tunaq's ictiobus/automaton
// package (map-keyed states with a transitions table per state), adapted
// here from string-keyed grammar symbols to byte ranges.
type nfa struct {
	epsilon [][]int
	edges   [][]byteEdge
	start   int
	accept  int
}

func (n *nfa) newState() int {
	n.epsilon = append(n.epsilon, nil)
	n.edges = append(n.edges, nil)
	return len(n.epsilon) - 1
}

func (n *nfa) addEpsilon(from, to int) {
	n.epsilon[from] = append(n.epsilon[from], to)
}

func (n *nfa) addEdge(from int, lo, hi byte, to int) {
	n.edges[from] = append(n.edges[from], byteEdge{lo, hi, to})
}

type fragment struct {
	entry, exit int
}

// buildNFA compiles body (a lexeme byte-matching subgraph) into an nfa
// whose single start/accept pair matches exactly the byte strings body
// matches. Container nodes (Join, Select) register their fragment in memo
// while their children are built, so a Select reached again through a
// DeferredReference cycle (the shape ir.Context.Recursive produces for an
// open-ended repeat) resolves to the same entry/exit pair instead of
// recursing forever. The entry is dropped once the node is built, so a
// node that occurs twice in sequence (hash-consing gives literal "foo" a
// single 'o' node) gets a fragment of its own at each occurrence.
func buildNFA(body ir.Node) (*nfa, error) {
	n := &nfa{}
	memo := map[ir.Node]fragment{}

	var build func(ir.Node) (fragment, error)
	build = func(node ir.Node) (fragment, error) {
		if f, ok := memo[node]; ok {
			return f, nil
		}
		switch node.Kind() {
		case ir.KindNull:
			s := n.newState()
			return fragment{s, s}, nil

		case ir.KindByte:
			entry, exit := n.newState(), n.newState()
			b := node.AsByte()
			n.addEdge(entry, b, b, exit)
			return fragment{entry, exit}, nil

		case ir.KindByteRange:
			entry, exit := n.newState(), n.newState()
			lo, hi := node.AsByteRange()
			n.addEdge(entry, lo, hi, exit)
			return fragment{entry, exit}, nil

		case ir.KindJoin:
			entry, exit := n.newState(), n.newState()
			memo[node] = fragment{entry, exit}
			defer delete(memo, node)
			prev := entry
			for _, child := range node.Children() {
				cf, err := build(child)
				if err != nil {
					return fragment{}, err
				}
				n.addEpsilon(prev, cf.entry)
				prev = cf.exit
			}
			n.addEpsilon(prev, exit)
			return fragment{entry, exit}, nil

		case ir.KindSelect:
			entry, exit := n.newState(), n.newState()
			memo[node] = fragment{entry, exit}
			defer delete(memo, node)
			for _, child := range node.Children() {
				cf, err := build(child)
				if err != nil {
					return fragment{}, err
				}
				n.addEpsilon(entry, cf.entry)
				n.addEpsilon(cf.exit, exit)
			}
			return fragment{entry, exit}, nil

		case ir.KindDeferredReference:
			target, ok := node.Resolved()
			if !ok {
				return fragment{}, fmt.Errorf("lexeme: unresolved reference in regular-grammar operand")
			}
			return build(target)

		default:
			return fragment{}, fmt.Errorf("lexeme: node kind %s is not valid inside a lexeme body", node.Kind())
		}
	}

	f, err := build(body)
	if err != nil {
		return nil, err
	}
	n.start, n.accept = f.entry, f.exit
	return n, nil
}

// epsilonClosure returns the set of states reachable from states via zero
// or more epsilon edges, in discovery order (toDFA sorts it before using it
// as a map key).
func (n *nfa) epsilonClosure(states []int) []int {
	seen := map[int]bool{}
	var stack, out []int
	for _, s := range states {
		if !seen[s] {
			seen[s] = true
			stack = append(stack, s)
			out = append(out, s)
		}
	}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range n.epsilon[s] {
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
				out = append(out, next)
			}
		}
	}
	return out
}
