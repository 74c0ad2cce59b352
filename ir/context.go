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

// Package ir implements the byte grammar intermediate representation: an
// immutable, de-duplicated graph of grammar nodes with byte-level
// terminals, recursive references, named captures, and
// temperature/token-limit annotations.
//
// A [Context] owns every node built during one grammar's construction.
// Nodes are cheap, copyable values ([Node]) that carry a pointer back into
// their owning Context; they are meaningless once compared across two
// different Contexts.
package ir

import (
	"github.com/tokenlattice/constrain/internal/arena"
	"github.com/tokenlattice/constrain/internal/intern"
)

// Context owns the arena-allocated storage for one compiled grammar. All
// [Node] values produced by this package's constructors are backed by
// exactly one Context; Nodes from different Contexts must never be mixed.
//
// A Context is safe to share read-only across many concurrent parses once
// construction has finished (see spec §5: "the grammar IR is shared
// read-only"). It is not safe for concurrent construction from multiple
// goroutines; build one grammar on one goroutine, then share the result.
type Context struct {
	nodes  arena.Arena[rawNode]
	intern intern.Table

	// memo de-duplicates structurally-identical compound nodes so that
	// Select alternatives and Join children are unique by identity, as
	// required by the IR invariants in spec §3.
	memo map[structuralKey]arena.Pointer[rawNode]

	// scope holds the in-progress DeferredReference for each recursive
	// grammar-building closure currently being built, keyed by whatever
	// comparable key the caller uses to identify "this is the same
	// recursive definition" (e.g. a JSON Schema absolute URI, or a
	// pointer identity for a Go closure). Per spec §9: "a per-construction
	// scope (thread-local) to hold the DeferredReference for the
	// in-progress reference; never a process-global mutable slot." A
	// Context is confined to a single goroutine during construction (see
	// the Context doc comment), so a plain map serves as that scope: it
	// is never a process-global, and it is cleared as each recursive
	// build completes.
	scope map[any]arena.Pointer[rawNode]
}

// NewContext allocates an empty Context, ready to build a grammar in.
func NewContext() *Context {
	return &Context{
		memo: make(map[structuralKey]arena.Pointer[rawNode]),
	}
}

// Node is a handle to a grammar IR node. The zero Node is not valid; use
// [Context] constructors to build one.
//
// Node is small and copyable; equality of two Nodes from the same Context
// is pointer equality of their underlying arena slot, which is exactly
// structural equality once the de-duplication invariants in §3 hold.
type Node struct {
	ctx *Context
	ptr arena.Pointer[rawNode]
}

// Context returns the [Context] that owns n.
func (n Node) Context() *Context { return n.ctx }

// IsZero reports whether n is the zero Node (no grammar attached).
func (n Node) IsZero() bool { return n.ctx == nil }

func (n Node) raw() *rawNode {
	return n.ptr.In(&n.ctx.nodes)
}

func (c *Context) wrap(ptr arena.Pointer[rawNode]) Node {
	return Node{ctx: c, ptr: ptr}
}

func (c *Context) alloc(raw rawNode) Node {
	return c.wrap(c.nodes.New(raw))
}

// internBytes interns a byte-string constant (used for capture names and
// literal runs) so that equal strings share one intern.ID, letting
// structuralKey comparisons for Select/Join de-duplication stay cheap.
func (c *Context) internBytes(s string) intern.ID {
	return c.intern.Intern(s)
}
