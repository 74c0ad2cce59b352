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

	"github.com/tokenlattice/constrain/internal/arena"
)

// NewDeferredReference allocates a forward-reference placeholder node.
// Its value is unset until Resolve is called; constructing a grammar
// around an unresolved DeferredReference is legal (it is how cycles get
// built), but attempting to use it at parse time before it is resolved
// fails with [ErrUnresolvedReference].
func (c *Context) NewDeferredReference() Node {
	return c.alloc(rawNode{kind: KindDeferredReference})
}

// Resolve fills in a DeferredReference's value. Per spec §3, this field is
// write-once: calling Resolve a second time panics.
func (n Node) Resolve(value Node) {
	n.mustBe(KindDeferredReference)
	raw := n.raw()
	called := false
	raw.once.Do(func() {
		raw.child = value.ptr
		raw.resolved = true
		called = true
	})
	if !called {
		panic("ir: DeferredReference already resolved")
	}
}

// Resolved returns the node a DeferredReference points to, and whether it
// has been resolved yet.
func (n Node) Resolved() (Node, bool) {
	n.mustBe(KindDeferredReference)
	raw := n.raw()
	if !raw.resolved {
		return Node{}, false
	}
	return n.ctx.wrap(raw.child), true
}

// ErrUnresolvedReference is returned when a grammar is used (e.g. to
// compute FIRST sets or to parse) while it still contains a
// DeferredReference that was never resolved.
type ErrUnresolvedReference struct {
	// Path is a best-effort description of where the unresolved reference
	// was found, for diagnostics.
	Path string
}

func (e *ErrUnresolvedReference) Error() string {
	if e.Path == "" {
		return "ir: unresolved DeferredReference"
	}
	return fmt.Sprintf("ir: unresolved DeferredReference at %s", e.Path)
}

// Recursive builds a grammar that may reference itself, implementing the
// recursive-construction strategy from spec §9: on first entry for a given
// key, a DeferredReference is installed in the Context's scope; build is
// called with that placeholder so it can embed a self-reference; once
// build returns, the placeholder is resolved to the real node and removed
// from scope. Re-entrant calls to Recursive with the same key (i.e. build
// itself, directly or indirectly, calling Recursive(key, ...) again before
// returning) receive the existing placeholder instead of recursing forever.
//
// key must identify "the same recursive definition" to the caller — for
// JSON-Schema compilation this is the schema's absolute URI (§4.3.1); for
// a hand-built recursive grammar it might be a pointer identity of the Go
// closure that defines it.
func (c *Context) Recursive(key any, build func(self Node) Node) Node {
	if c.scope == nil {
		c.scope = make(map[any]arena.Pointer[rawNode])
	}

	if ptr, ok := c.scope[key]; ok {
		return c.wrap(ptr)
	}

	placeholder := c.NewDeferredReference()
	c.scope[key] = placeholder.ptr
	defer delete(c.scope, key)

	value := build(placeholder)
	placeholder.Resolve(value)
	return value
}
