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
	"sort"
	"strconv"
	"strings"

	"github.com/tokenlattice/constrain/internal/interval"
)

// dfaEdge is a deterministic transition on an inclusive byte range.
type dfaEdge struct {
	lo, hi byte
	to     int
}

// dfa is a total (every state has an outgoing edge covering every byte
// 0-255, via an explicit dead/trap state) deterministic byte automaton.
// Totality is what makes complement well-defined as "flip every state's
// acceptance" and makes the product construction for intersection/union a
// plain pairwise walk with no missing-transition bookkeeping.
type dfa struct {
	accepting []bool
	edges     [][]dfaEdge
	start     int
	dead      int // index into accepting/edges; never accepting, self-loops
}

// subsetKey canonicalizes a (sorted, de-duplicated) NFA state set into a
// map key for subset construction.
func subsetKey(states []int) string {
	var b strings.Builder
	for i, s := range states {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(s))
	}
	return b.String()
}

// toDFA runs subset construction over n, partitioning each state's
// outgoing byte ranges with internal/interval.Intersect (the pack's
// ordered interval map over byte values, otherwise used for C1's byte-set
// overlap bookkeeping) rather than iterating all 256 byte values per
// state, since lexeme regexes routinely have just a handful of range
// edges per NFA state.
func toDFA(n *nfa) *dfa {
	d := &dfa{}
	stateOf := map[string]int{}

	newDFAState := func(nfaStates []int) int {
		sorted := append([]int(nil), nfaStates...)
		sort.Ints(sorted)
		key := subsetKey(sorted)
		if id, ok := stateOf[key]; ok {
			return id
		}
		id := len(d.accepting)
		d.accepting = append(d.accepting, false)
		d.edges = append(d.edges, nil)
		stateOf[key] = id
		for _, s := range sorted {
			if s == n.accept {
				d.accepting[id] = true
			}
		}
		return id
	}

	d.dead = newDFAState(nil)

	start := n.epsilonClosure([]int{n.start})
	d.start = newDFAState(start)

	worklist := []int{d.start}
	seen := map[int]bool{d.start: true, d.dead: true}

	nfaStatesOf := map[int][]int{d.start: start, d.dead: nil}

	for len(worklist) > 0 {
		id := worklist[0]
		worklist = worklist[1:]

		var ivl interval.Intersect[int, int]
		for _, s := range nfaStatesOf[id] {
			for _, e := range n.edges[s] {
				ivl.Insert(int(e.lo), int(e.hi), e.to)
			}
		}

		lo := 0
		for entry := range ivl.Entries() {
			if entry.Start > lo {
				d.edges[id] = append(d.edges[id], dfaEdge{byte(lo), byte(entry.Start - 1), d.dead})
			}
			closure := n.epsilonClosure(entry.Value)
			toID := newDFAState(closure)
			if !seen[toID] {
				seen[toID] = true
				nfaStatesOf[toID] = closure
				worklist = append(worklist, toID)
			}
			d.edges[id] = append(d.edges[id], dfaEdge{byte(entry.Start), byte(entry.End), toID})
			lo = entry.End + 1
		}
		if lo <= 255 {
			d.edges[id] = append(d.edges[id], dfaEdge{byte(lo), 255, d.dead})
		}
	}
	d.edges[d.dead] = []dfaEdge{{0, 255, d.dead}}

	return d
}

// complement flips acceptance on every state of a total DFA, including the
// dead state (so "not accepted by d" becomes "accepted by the result").
// The old dead state accepts in the result, so a fresh, unreachable dead
// state is appended to keep the dfa invariants.
func complement(d *dfa) *dfa {
	n := len(d.accepting)
	out := &dfa{start: d.start, dead: n}
	out.accepting = make([]bool, n+1)
	for i, acc := range d.accepting {
		out.accepting[i] = !acc
	}
	out.edges = append(d.edges[:n:n], []dfaEdge{{0, 255, n}})
	return out
}

// product builds the pairwise-state DFA for a and b, with acceptance
// decided by combine(aAccepts, bAccepts) — AND for intersection, OR for
// union. Both operands must already be total.
func product(a, b *dfa, combine func(aAcc, bAcc bool) bool) *dfa {
	out := &dfa{}
	stateOf := map[[2]int]int{}

	newState := func(pair [2]int) (int, bool) {
		if id, ok := stateOf[pair]; ok {
			return id, false
		}
		id := len(out.accepting)
		out.accepting = append(out.accepting, combine(a.accepting[pair[0]], b.accepting[pair[1]]))
		out.edges = append(out.edges, nil)
		stateOf[pair] = id
		return id, true
	}

	startPair := [2]int{a.start, b.start}
	out.start, _ = newState(startPair)
	deadPair := [2]int{a.dead, b.dead}
	out.dead, _ = newState(deadPair)

	worklist := [][2]int{startPair}
	visited := map[[2]int]bool{startPair: true, deadPair: true}

	for len(worklist) > 0 {
		pair := worklist[0]
		worklist = worklist[1:]
		id := stateOf[pair]

		var ivl interval.Intersect[int, int]
		for _, e := range a.edges[pair[0]] {
			ivl.Insert(int(e.lo), int(e.hi), e.to)
		}
		for _, e := range b.edges[pair[1]] {
			ivl.Insert(int(e.lo), int(e.hi), e.to)
		}

		for entry := range ivl.Entries() {
			// Both operands are total, so every sub-range has exactly one
			// contributing edge from each.
			toA, toB := entry.Value[0], entry.Value[1]
			nextPair := [2]int{toA, toB}
			toID, _ := newState(nextPair)
			if !visited[nextPair] {
				visited[nextPair] = true
				worklist = append(worklist, nextPair)
			}
			out.edges[id] = append(out.edges[id], dfaEdge{byte(entry.Start), byte(entry.End), toID})
		}
	}
	out.edges[out.dead] = []dfaEdge{{0, 255, out.dead}}
	return out
}

// statesOnCycle reports, for each state, whether it lies on a cycle of
// non-dead edges (including a direct self-loop). Used by dfaToIR to decide
// which lowered Select nodes are genuinely recursive, so a state with a
// single non-cyclic alternative can still collapse via
// ir.Context.Select's len(uniq)==1 && !recurse short-circuit.
func statesOnCycle(d *dfa) []bool {
	n := len(d.accepting)
	onCycle := make([]bool, n)
	// For each state s, s is on a cycle iff some successor of s can reach s
	// again without passing through the dead state.
	for s := 0; s < n; s++ {
		if s == d.dead {
			continue
		}
		seen := map[int]bool{}
		var walk func(int) bool
		walk = func(cur int) bool {
			if cur == d.dead || seen[cur] {
				return false
			}
			seen[cur] = true
			for _, e := range d.edges[cur] {
				if e.to == d.dead {
					continue
				}
				if e.to == s || walk(e.to) {
					return true
				}
			}
			return false
		}
		onCycle[s] = walk(s)
	}
	return onCycle
}

// reachesAccept reports whether any accepting state is reachable from
// d.start via non-dead edges (i.e. the DFA's language is non-empty).
func reachesAccept(d *dfa) bool {
	seen := map[int]bool{}
	var walk func(int) bool
	walk = func(s int) bool {
		if s == d.dead || seen[s] {
			return false
		}
		seen[s] = true
		if d.accepting[s] {
			return true
		}
		for _, e := range d.edges[s] {
			if e.to != d.dead && walk(e.to) {
				return true
			}
		}
		return false
	}
	return walk(d.start)
}
