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
	"sync"

	"github.com/tokenlattice/constrain/internal/arena"
	"github.com/tokenlattice/constrain/internal/intern"
)

// Kind discriminates the tagged-union cases a grammar node may take on, per
// spec §3.
type Kind uint8

const (
	// KindInvalid is the zero Kind; no constructed Node ever has it.
	KindInvalid Kind = iota
	// KindNull is the empty string, the unit of concatenation.
	KindNull
	// KindByte is a single literal octet.
	KindByte
	// KindByteRange is an inclusive range of octets.
	KindByteRange
	// KindJoin is an ordered concatenation of children.
	KindJoin
	// KindSelect is a nondeterministic choice among alternatives.
	KindSelect
	// KindGen is a bounded free-generation region.
	KindGen
	// KindLexeme is a regex-matched terminal.
	KindLexeme
	// KindCapture records the bytes matched by a child under a name.
	KindCapture
	// KindWithTemperature decorates a subtree with an inference temperature.
	KindWithTemperature
	// KindTokenLimit caps the token count consumed inside a subtree.
	KindTokenLimit
	// KindDeferredReference is a forward-reference placeholder.
	KindDeferredReference
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindByte:
		return "Byte"
	case KindByteRange:
		return "ByteRange"
	case KindJoin:
		return "Join"
	case KindSelect:
		return "Select"
	case KindGen:
		return "Gen"
	case KindLexeme:
		return "Lexeme"
	case KindCapture:
		return "Capture"
	case KindWithTemperature:
		return "WithTemperature"
	case KindTokenLimit:
		return "TokenLimit"
	case KindDeferredReference:
		return "DeferredReference"
	default:
		return "Invalid"
	}
}

// rawNode is the storage representation of every node kind. Only the
// fields relevant to raw.kind are meaningful at any given time; this
// mirrors the teacher's rawType, which likewise carries fields for every
// case a declaration can take (nested types, fields, ranges, oneofs...)
// in a single struct rather than one type per case.
type rawNode struct {
	kind Kind

	// KindByte
	b byte

	// KindByteRange
	lo, hi byte

	// KindJoin, KindSelect: ordered children.
	children []arena.Pointer[rawNode]
	// KindSelect: whether the select may re-enter itself (Kleene closure).
	recurse bool

	// KindGen
	bodyRegex    arena.Pointer[rawNode] // a Lexeme node
	stopRegex    arena.Pointer[rawNode] // optional Lexeme node; nil pointer if absent
	saveStopText bool
	maxTokens    int // 0 means unbounded

	// KindLexeme
	lexemeBody arena.Pointer[rawNode] // compiled byte-matching subgraph (Join/Select/Byte/ByteRange)
	contextual bool
	jsonString bool

	// KindCapture, KindWithTemperature, KindTokenLimit, KindDeferredReference: child/value.
	child arena.Pointer[rawNode]

	// KindCapture
	name       intern.ID
	listAppend bool

	// KindWithTemperature
	temperature float64

	// KindTokenLimit
	limit int

	// KindDeferredReference
	once     sync.Once
	resolved bool
}

// AsByte returns the literal octet for a KindByte node. Panics if n is not
// a KindByte node.
func (n Node) AsByte() byte {
	n.mustBe(KindByte)
	return n.raw().b
}

// AsByteRange returns the inclusive bounds for a KindByteRange node.
// Panics if n is not a KindByteRange node.
func (n Node) AsByteRange() (lo, hi byte) {
	n.mustBe(KindByteRange)
	r := n.raw()
	return r.lo, r.hi
}

// Children returns the ordered children of a KindJoin or KindSelect node.
// Panics otherwise.
func (n Node) Children() []Node {
	r := n.raw()
	if r.kind != KindJoin && r.kind != KindSelect {
		panic(fmt.Sprintf("ir: Children called on %s node", r.kind))
	}
	out := make([]Node, len(r.children))
	for i, p := range r.children {
		out[i] = n.ctx.wrap(p)
	}
	return out
}

// Recurse reports whether a KindSelect node may re-enter itself, encoding
// Kleene-star semantics.
func (n Node) Recurse() bool {
	n.mustBe(KindSelect)
	return n.raw().recurse
}

// Child returns the single child of a KindCapture, KindWithTemperature,
// KindTokenLimit, or KindLexeme (body) node.
func (n Node) Child() Node {
	r := n.raw()
	var p arena.Pointer[rawNode]
	switch r.kind {
	case KindCapture, KindWithTemperature, KindTokenLimit:
		p = r.child
	case KindLexeme:
		p = r.lexemeBody
	default:
		panic(fmt.Sprintf("ir: Child called on %s node", r.kind))
	}
	return n.ctx.wrap(p)
}

// CaptureName returns the interned capture name of a KindCapture node.
func (n Node) CaptureName() string {
	n.mustBe(KindCapture)
	return n.ctx.intern.Value(n.raw().name)
}

// ListAppend reports whether a KindCapture node appends to a list rather
// than assigning a single value.
func (n Node) ListAppend() bool {
	n.mustBe(KindCapture)
	return n.raw().listAppend
}

// Temperature returns the inference temperature of a KindWithTemperature
// node.
func (n Node) Temperature() float64 {
	n.mustBe(KindWithTemperature)
	return n.raw().temperature
}

// TokenLimit returns the token cap of a KindTokenLimit node.
func (n Node) TokenLimit() int {
	n.mustBe(KindTokenLimit)
	return n.raw().limit
}

// GenBody returns the body-regex Lexeme node of a KindGen node.
func (n Node) GenBody() Node {
	n.mustBe(KindGen)
	return n.ctx.wrap(n.raw().bodyRegex)
}

// GenStop returns the stop-regex Lexeme node of a KindGen node and whether
// one is present.
func (n Node) GenStop() (Node, bool) {
	n.mustBe(KindGen)
	p := n.raw().stopRegex
	if p.Nil() {
		return Node{}, false
	}
	return n.ctx.wrap(p), true
}

// SaveStopText reports whether a KindGen node's matched stop text is
// recorded into the capture map (as opposed to merely being consumed from
// the byte stream; see SPEC_FULL §3 "stop-text capture").
func (n Node) SaveStopText() bool {
	n.mustBe(KindGen)
	return n.raw().saveStopText
}

// MaxTokens returns the token cap of a KindGen node, or 0 if unbounded.
func (n Node) MaxTokens() int {
	n.mustBe(KindGen)
	return n.raw().maxTokens
}

// Contextual reports whether a KindLexeme node is legal only where the
// parent grammar expects a terminal.
func (n Node) Contextual() bool {
	n.mustBe(KindLexeme)
	return n.raw().contextual
}

// JSONString reports whether a KindLexeme node adds the JSON escape
// grammar atop its body.
func (n Node) JSONString() bool {
	n.mustBe(KindLexeme)
	return n.raw().jsonString
}

// Kind returns the tagged-union case of n.
func (n Node) Kind() Kind {
	return n.raw().kind
}

func (n Node) mustBe(k Kind) {
	if got := n.raw().kind; got != k {
		panic(fmt.Sprintf("ir: expected %s node, got %s", k, got))
	}
}

// String renders a debugging form of the node graph rooted at n. It is
// not a serialization format; it exists for debugging output.
func (n Node) String() string {
	var b strings.Builder
	n.dump(&b, make(map[arena.Untyped]bool))
	return b.String()
}

func (n Node) dump(b *strings.Builder, seen map[arena.Untyped]bool) {
	if n.IsZero() {
		b.WriteString("<zero>")
		return
	}
	u := arena.Untyped(n.ptr)
	if seen[u] {
		fmt.Fprintf(b, "<ref %d>", u)
		return
	}

	switch n.Kind() {
	case KindNull:
		b.WriteString("Null")
	case KindByte:
		fmt.Fprintf(b, "Byte(%q)", n.AsByte())
	case KindByteRange:
		lo, hi := n.AsByteRange()
		fmt.Fprintf(b, "ByteRange(%q,%q)", lo, hi)
	case KindJoin:
		b.WriteString("Join(")
		for i, c := range n.Children() {
			if i > 0 {
				b.WriteString(", ")
			}
			c.dump(b, seen)
		}
		b.WriteString(")")
	case KindSelect:
		fmt.Fprintf(b, "Select(recurse=%v, ", n.Recurse())
		for i, c := range n.Children() {
			if i > 0 {
				b.WriteString(", ")
			}
			c.dump(b, seen)
		}
		b.WriteString(")")
	case KindGen:
		fmt.Fprintf(b, "Gen(max=%d)", n.MaxTokens())
	case KindLexeme:
		fmt.Fprintf(b, "Lexeme(contextual=%v, json=%v, ", n.Contextual(), n.JSONString())
		n.Child().dump(b, seen)
		b.WriteString(")")
	case KindCapture:
		fmt.Fprintf(b, "Capture(%q, list=%v, ", n.CaptureName(), n.ListAppend())
		n.Child().dump(b, seen)
		b.WriteString(")")
	case KindWithTemperature:
		fmt.Fprintf(b, "WithTemperature(%v, ", n.Temperature())
		n.Child().dump(b, seen)
		b.WriteString(")")
	case KindTokenLimit:
		fmt.Fprintf(b, "TokenLimit(%d, ", n.TokenLimit())
		n.Child().dump(b, seen)
		b.WriteString(")")
	case KindDeferredReference:
		seen[u] = true
		fmt.Fprintf(b, "DeferredReference(%d)=", u)
		if v, ok := n.Resolved(); ok {
			v.dump(b, seen)
		} else {
			b.WriteString("<unresolved>")
		}
	}
}
