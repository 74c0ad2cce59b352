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

package ir

import "github.com/tokenlattice/constrain/internal/arena"

// FirstBytes computes the FIRST set of n: every byte value that can appear
// as the first byte of some string n accepts, per spec §4.1 ("first_bytes
// (node) → set<byte>: computed as a least fixpoint over the graph"). Gen
// regions contribute the full byte alphabet, since free generation may
// start with anything the oracle produces.
//
// The graph may be cyclic through DeferredReference (left-recursive
// grammars, list/array repetition, recursive JSON Schema definitions), so
// this is computed as a least fixpoint: start every node's running FIRST
// set at empty, and repeatedly re-visit the graph taking unions until
// nothing changes. This mirrors the enter/exit worklist shape the teacher
// uses for its cross-file dependency graph walk, adapted here to run to a
// numeric fixpoint rather than a single pass, which is required for
// termination on a graph with cycles.
func FirstBytes(n Node) *ByteSet {
	memo := make(map[arena.Untyped]*ByteSet)
	for {
		changed := false
		onStack := make(map[arena.Untyped]bool)
		firstBytesPass(n, memo, onStack, &changed)
		if !changed {
			break
		}
	}
	return firstBytesOf(n, memo)
}

func firstBytesOf(n Node, memo map[arena.Untyped]*ByteSet) *ByteSet {
	if n.IsZero() {
		return NewByteSet()
	}
	if s, ok := memo[arena.Untyped(n.ptr)]; ok {
		return s
	}
	return NewByteSet()
}

// firstBytesPass performs one sweep over the graph reachable from n,
// recomputing each visited node's FIRST set from its children's current
// (possibly still-growing) FIRST sets, and recording whether any node's
// set grew. Repeated sweeps monotonically grow every set (union is
// monotone and the byte alphabet is finite), so this always reaches a
// fixpoint.
//
// onStack breaks cycles within a single sweep: a node reached while it is
// already an ancestor of itself in this sweep's call stack contributes
// only its best-known-so-far set (from a previous sweep, or empty on the
// first) rather than recursing forever.
func firstBytesPass(n Node, memo map[arena.Untyped]*ByteSet, onStack map[arena.Untyped]bool, changed *bool) *ByteSet {
	if n.IsZero() {
		return NewByteSet()
	}
	key := arena.Untyped(n.ptr)
	if onStack[key] {
		return firstBytesOf(n, memo)
	}
	onStack[key] = true
	defer delete(onStack, key)

	visiting, inMemo := memo[key]

	result := NewByteSet()
	switch n.Kind() {
	case KindNull:
		// contributes nothing; FIRST(null) is empty.
	case KindByte:
		result.AddByte(n.AsByte())
	case KindByteRange:
		lo, hi := n.AsByteRange()
		result.Add(lo, hi)
	case KindJoin:
		for _, c := range n.Children() {
			cs := firstBytesPass(c, memo, onStack, changed)
			result.Union(cs)
			if !nullable(c, memo) {
				break
			}
		}
	case KindSelect:
		for _, c := range n.Children() {
			result.Union(firstBytesPass(c, memo, onStack, changed))
		}
	case KindGen:
		result.Add(0x00, 0xFF)
	case KindLexeme:
		result.Union(firstBytesPass(n.Child(), memo, onStack, changed))
	case KindCapture, KindWithTemperature, KindTokenLimit:
		result.Union(firstBytesPass(n.Child(), memo, onStack, changed))
	case KindDeferredReference:
		if target, ok := n.Resolved(); ok {
			result.Union(firstBytesPass(target, memo, onStack, changed))
		}
	}

	if !inMemo || setGrew(visiting, result) {
		memo[key] = result
		*changed = true
		return result
	}
	return visiting
}

// nullable reports whether n can match the empty string, used by Join's
// FIRST-set computation to decide whether to also union in the next
// child's FIRST set. This is a coarse, conservative approximation (it
// treats unresolved references, in-progress cycles, and Gen regions as
// non-nullable) sufficient for the FIRST-set fixpoint; C5 does the precise
// accepting-state bookkeeping at parse time.
func nullable(n Node, memo map[arena.Untyped]*ByteSet) bool {
	return nullableRec(n, memo, make(map[arena.Untyped]bool))
}

func nullableRec(n Node, memo map[arena.Untyped]*ByteSet, onStack map[arena.Untyped]bool) bool {
	if n.IsZero() {
		return false
	}
	key := arena.Untyped(n.ptr)
	if onStack[key] {
		return false
	}
	onStack[key] = true
	defer delete(onStack, key)

	switch n.Kind() {
	case KindNull:
		return true
	case KindByte, KindByteRange, KindGen:
		return false
	case KindJoin:
		for _, c := range n.Children() {
			if !nullableRec(c, memo, onStack) {
				return false
			}
		}
		return true
	case KindSelect:
		for _, c := range n.Children() {
			if nullableRec(c, memo, onStack) {
				return true
			}
		}
		return n.Recurse()
	case KindLexeme, KindCapture, KindWithTemperature, KindTokenLimit:
		return nullableRec(n.Child(), memo, onStack)
	case KindDeferredReference:
		if target, ok := n.Resolved(); ok {
			return nullableRec(target, memo, onStack)
		}
		return false
	default:
		return false
	}
}

func setGrew(old, next *ByteSet) bool {
	for b := 0; b < 256; b++ {
		if next.Contains(byte(b)) && !old.Contains(byte(b)) {
			return true
		}
	}
	return false
}
