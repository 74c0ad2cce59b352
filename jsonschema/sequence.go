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

package jsonschema

import "github.com/tokenlattice/constrain/ir"

// seqItem is one element of an ordered-optional-sequence (§4.3.4): its
// grammar and whether it is required.
type seqItem struct {
	node     ir.Node
	required bool
}

// orderedOptionalSequence builds T_1(false) from §4.3.4: a comma-separated
// sequence of items, any suffix of which may be omitted independently, with
// exactly one separator between any two present items and none leading or
// trailing. sep is the separator grammar (a literal "," for strict
// whitespace, or "," followed by the skip-pattern for flexible).
func orderedOptionalSequence(c *Compiler, items []seqItem, sep ir.Node) ir.Node {
	return orderedOptionalSequenceWithTail(c, items, sep, nullTail)
}

// nullTail is the base case of T_i(prefixed) for a plain finite sequence: ε,
// regardless of whether the sequence was prefixed.
func nullTail(c *Compiler, _ bool) ir.Node {
	return c.ctx.Null()
}

// orderedOptionalSequenceWithTail generalizes orderedOptionalSequence with a
// continuation in place of the implicit ε base case, so an unbounded
// Kleene-star tail (array `items` with no `maxItems`, or an object's
// additional-properties tail) can thread the same leading-separator logic
// as the finite prefix that precedes it.
func orderedOptionalSequenceWithTail(c *Compiler, items []seqItem, sep ir.Node, tail func(c *Compiler, prefixed bool) ir.Node) ir.Node {
	return buildSeqTail(c, items, 0, sep, false, tail)
}

// buildSeqTail implements T_i(prefixed) directly off the recursive
// definition: the base case calls tail, a required item always appears
// (with a leading separator iff something already preceded it), and an
// optional item is either taken (which forces "prefixed" to true for
// everything after it) or skipped. When nothing precedes it, skipping falls
// through to the next index unprefixed; once something precedes it,
// skipping ends the sequence there, tail included.
func buildSeqTail(c *Compiler, items []seqItem, i int, sep ir.Node, prefixed bool, tail func(c *Compiler, prefixed bool) ir.Node) ir.Node {
	if i >= len(items) {
		return tail(c, prefixed)
	}
	item := items[i]

	withLeadingSep := func(n ir.Node) ir.Node {
		if prefixed {
			return c.ctx.Join(sep, n)
		}
		return n
	}

	if item.required {
		return c.ctx.Join(withLeadingSep(item.node), buildSeqTail(c, items, i+1, sep, true, tail))
	}

	taken := c.ctx.Join(withLeadingSep(item.node), buildSeqTail(c, items, i+1, sep, true, tail))
	if prefixed {
		return c.ctx.Select(false, c.ctx.Null(), taken)
	}
	skipped := buildSeqTail(c, items, i+1, sep, false, tail)
	return c.ctx.Select(false, skipped, taken)
}

// unboundedTail builds a continuation that, regardless of the incoming
// prefixed state, allows zero or more further repeats of one item (with a
// leading separator on every repeat, including the first iff prefixed).
// Used for array `items` with no `maxItems` and for an object's additional-
// properties tail; every repeat uses the same item node.
func unboundedTail(c *Compiler, key any, item ir.Node, sep ir.Node) func(c *Compiler, prefixed bool) ir.Node {
	rest := c.ctx.Recursive(key, func(self ir.Node) ir.Node {
		return c.ctx.Select(true, c.ctx.Null(), c.ctx.Join(sep, item, self))
	})
	return func(c *Compiler, prefixed bool) ir.Node {
		first := item
		if prefixed {
			first = c.ctx.Join(sep, item)
		}
		return c.ctx.Select(false, c.ctx.Null(), c.ctx.Join(first, rest))
	}
}
