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

import (
	"fmt"
	"strings"

	"github.com/tokenlattice/constrain/internal/arena"
)

// structuralKey is a de-duplication key for compound nodes: two nodes with
// equal structuralKeys are required by spec §3 to be the very same arena
// slot ("Select alternatives are unique as structural values; byte
// terminals are interned so that equal bytes share identity").
type structuralKey string

func keyOf(kind Kind, parts ...interface{}) structuralKey {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", kind)
	for _, p := range parts {
		b.WriteByte('|')
		fmt.Fprintf(&b, "%v", p)
	}
	return structuralKey(b.String())
}

func childKey(children []arena.Pointer[rawNode]) string {
	var b strings.Builder
	for _, c := range children {
		fmt.Fprintf(&b, "%d,", arena.Untyped(c))
	}
	return b.String()
}

// memoize returns the existing node for key if one was already built, or
// allocates raw and remembers it under key.
func (c *Context) memoize(key structuralKey, raw rawNode) Node {
	if p, ok := c.memo[key]; ok {
		return c.wrap(p)
	}
	node := c.alloc(raw)
	c.memo[key] = node.ptr
	return node
}

// Null returns the empty-string node, the unit of concatenation.
func (c *Context) Null() Node {
	return c.memoize(keyOf(KindNull), rawNode{kind: KindNull})
}

// Byte constructs a single literal octet node. Equal bytes passed to the
// same Context always yield the identical Node (interned).
func (c *Context) Byte(b byte) Node {
	return c.memoize(keyOf(KindByte, b), rawNode{kind: KindByte, b: b})
}

// ByteRange constructs an inclusive range of octets. If lo == hi this
// canonicalizes to Byte(lo); if lo > hi this panics, since an empty range
// cannot match any byte and grammars have no "never matches" terminal.
func (c *Context) ByteRange(lo, hi byte) Node {
	if lo > hi {
		panic(fmt.Sprintf("ir: ByteRange(%d, %d): empty range", lo, hi))
	}
	if lo == hi {
		return c.Byte(lo)
	}
	return c.memoize(keyOf(KindByteRange, lo, hi), rawNode{kind: KindByteRange, lo: lo, hi: hi})
}

// Join constructs an ordered concatenation of children. Per §4.1,
// constructors canonicalize trivially: nested Joins flatten, Null children
// are dropped (they contribute no bytes), an empty result collapses to
// Null, and a single remaining child is returned unwrapped.
func (c *Context) Join(children ...Node) Node {
	flat := make([]Node, 0, len(children))
	var flatten func(Node)
	flatten = func(n Node) {
		if n.Kind() == KindNull {
			return
		}
		if n.Kind() == KindJoin {
			for _, ch := range n.Children() {
				flatten(ch)
			}
			return
		}
		flat = append(flat, n)
	}
	for _, n := range children {
		flatten(n)
	}

	switch len(flat) {
	case 0:
		return c.Null()
	case 1:
		return flat[0]
	}

	ptrs := make([]arena.Pointer[rawNode], len(flat))
	for i, n := range flat {
		ptrs[i] = n.ptr
	}
	return c.memoize(keyOf(KindJoin, childKey(ptrs)), rawNode{kind: KindJoin, children: ptrs})
}

// String flattens a literal byte string into a Join of Bytes, per §4.1.
func (c *Context) String(s []byte) Node {
	nodes := make([]Node, len(s))
	for i, b := range s {
		nodes[i] = c.Byte(b)
	}
	return c.Join(nodes...)
}

// Select constructs a nondeterministic choice among alternatives. A
// single alternative is returned unwrapped (spec: "select([x]) returns
// x"). Duplicate alternatives (by structural identity, guaranteed by this
// package's interning) are removed, preserving first-occurrence order.
// recurse marks that the select may re-enter itself, encoding Kleene-star
// semantics (spec §3).
func (c *Context) Select(recurse bool, alternatives ...Node) Node {
	seen := make(map[arena.Untyped]bool, len(alternatives))
	uniq := make([]Node, 0, len(alternatives))
	for _, n := range alternatives {
		u := arena.Untyped(n.ptr)
		if seen[u] {
			continue
		}
		seen[u] = true
		uniq = append(uniq, n)
	}

	if len(uniq) == 1 && !recurse {
		return uniq[0]
	}
	if len(uniq) == 0 {
		panic("ir: Select requires at least one alternative")
	}

	ptrs := make([]arena.Pointer[rawNode], len(uniq))
	for i, n := range uniq {
		ptrs[i] = n.ptr
	}
	return c.memoize(keyOf(KindSelect, recurse, childKey(ptrs)), rawNode{
		kind: KindSelect, children: ptrs, recurse: recurse,
	})
}

// Lexeme constructs a terminal whose bytes match body, a byte-matching
// subgraph built from Byte/ByteRange/Join/Select nodes. contextual marks
// the lexeme as legal only where the parent grammar expects a terminal
// (spec §3); jsonString adds the JSON escape grammar atop body.
func (c *Context) Lexeme(body Node, contextual, jsonString bool) Node {
	return c.alloc(rawNode{
		kind: KindLexeme, lexemeBody: body.ptr,
		contextual: contextual, jsonString: jsonString,
	})
}

// Gen constructs a bounded free-generation region whose body is
// constrained to bodyRegex (a Lexeme). If stopRegex is the zero Node, the
// generation has no stop pattern and runs until maxTokens or grammar end.
// saveStopText controls whether matched stop bytes are recorded into the
// capture map or merely consumed (SPEC_FULL §3). maxTokens of 0 means
// unbounded.
func (c *Context) Gen(bodyRegex, stopRegex Node, saveStopText bool, maxTokens int) Node {
	raw := rawNode{
		kind: KindGen, bodyRegex: bodyRegex.ptr,
		saveStopText: saveStopText, maxTokens: maxTokens,
	}
	if !stopRegex.IsZero() {
		raw.stopRegex = stopRegex.ptr
	}
	return c.alloc(raw)
}

// Capture wraps child so that the bytes it matches are recorded under
// name. If listAppend, each completion of this capture scope appends a
// new element rather than overwriting the prior value.
func (c *Context) Capture(child Node, name string, listAppend bool) Node {
	return c.alloc(rawNode{
		kind: KindCapture, child: child.ptr,
		name: c.internBytes(name), listAppend: listAppend,
	})
}

// WithTemperature decorates child with an inference temperature that
// applies to any Gen region beneath it not itself wrapped in a nested
// WithTemperature.
func (c *Context) WithTemperature(child Node, temperature float64) Node {
	return c.alloc(rawNode{kind: KindWithTemperature, child: child.ptr, temperature: temperature})
}

// TokenLimit caps the number of tokens the parser may consume while inside
// child's subtree (spec §5: "A token-limit annotation enforces a hard
// per-subtree cap; exceeding it is not an error but forces the parser
// into an accepting-state-or-fail closure.").
func (c *Context) TokenLimit(child Node, limit int) Node {
	return c.alloc(rawNode{kind: KindTokenLimit, child: child.ptr, limit: limit})
}
