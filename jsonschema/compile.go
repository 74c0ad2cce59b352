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

import (
	"fmt"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/reporter"
	"github.com/tokenlattice/constrain/rx"
)

// Whitespace selects how a compiled schema treats inter-token whitespace
// (§4.3, "whitespace is either strict ... or flexible").
type Whitespace int

const (
	// Strict permits no whitespace between tokens at all.
	Strict Whitespace = iota
	// Flexible permits a run of JSON insignificant whitespace between any
	// two lexemes, via a shared skip-pattern.
	Flexible
)

// Options configures a [Compiler].
type Options struct {
	Whitespace Whitespace
}

// Compiler compiles JSON Schema documents into byte grammar IR. A Compiler
// is single-use per root document but may be reused across calls to
// Compile for different root URIs registered with the same resolver, since
// $ref targets are memoized per absolute URI regardless of which call to
// Compile first reached them.
type Compiler struct {
	ctx      *ir.Context
	resolver *Resolver
	handler  *reporter.Handler
	opts     Options
	ws       ir.Node // optional-whitespace skip node; zero Node if Strict
	refs     map[string]ir.Node
}

// NewCompiler builds a Compiler over ctx, resolving $ref targets through
// resolver and reporting problems to handler.
func NewCompiler(ctx *ir.Context, resolver *Resolver, handler *reporter.Handler, opts Options) *Compiler {
	c := &Compiler{ctx: ctx, resolver: resolver, handler: handler, opts: opts}
	if opts.Whitespace == Flexible {
		ws, err := rx.CompilePattern(ctx, `[ \t\n\r]*`, handler)
		if err != nil {
			handler.HandleError(err)
		}
		c.ws = ws
	}
	return c
}

// fail records err at pointer via the sticky error handler. ir.Context's
// Recursive has no error return (spec §9), so every compile function that
// can fail reports through c.handler instead of returning an error
// directly; Compile checks c.handler.Error() once at the end.
func (c *Compiler) fail(pointer string, err error) {
	c.handler.HandleError(reporter.Error(reporter.AtPointer(pointer), err))
}

// compilePattern parses and compiles a regex pattern (used for `pattern`,
// `format`, and length-bound strings, and for narrowed number literals),
// stripping a redundant leading `^` and trailing `$` first (§4.3.3: "after
// stripping redundant anchors" — rx's own parser also strips and warns on
// these, so this is a passthrough that lets that warning surface through
// c.handler).
func (c *Compiler) compilePattern(pat string) (ir.Node, error) {
	return rx.CompilePattern(c.ctx, pat, c.handler)
}

// skip returns the optional-whitespace node, or Null under strict
// whitespace.
func (c *Compiler) skip() ir.Node {
	if c.opts.Whitespace == Flexible {
		return c.ws
	}
	return c.ctx.Null()
}

// punct wraps a literal punctuation byte (`,`, `:`, `[`, `]`, `{`, `}`)
// with the skip-pattern on the sides the caller asks for.
func (c *Compiler) punct(b byte, before, after bool) ir.Node {
	lit := c.ctx.Byte(b)
	parts := make([]ir.Node, 0, 3)
	if before {
		parts = append(parts, c.skip())
	}
	parts = append(parts, lit)
	if after {
		parts = append(parts, c.skip())
	}
	return c.ctx.Join(parts...)
}

// Compile compiles the schema document registered under rootURI into a
// grammar accepting exactly the JSON texts that validate against it.
func (c *Compiler) Compile(rootURI string) (ir.Node, error) {
	node := c.compileRef(rootURI, "")
	if err := c.handler.Error(); err != nil {
		return ir.Node{}, err
	}
	return node, nil
}

// compileRef compiles (or returns the memoized compilation of) the schema
// at uri, keyed by its absolute URI per §4.3.1 ("key must identify the same
// recursive definition"). This is the one entry point through which every
// $ref, and the root schema, reaches compileSchema — ensuring a cyclic
// schema (a recursive $defs entry referencing itself) becomes a cyclic
// grammar instead of infinite recursion.
func (c *Compiler) compileRef(uri, fragment string) ir.Node {
	full := uri
	if fragment != "" {
		full = uri + fragment
	}
	if n, ok := c.refs[full]; ok {
		return n
	}
	n := c.ctx.Recursive(full, func(self ir.Node) ir.Node {
		schema, err := c.resolver.Lookup(full)
		if err != nil {
			c.fail(fragment, &UnresolvedReference{Pointer: fragment, URI: full})
			return c.ctx.Null()
		}
		return c.compileSchema(schema, uri, fragment)
	})
	if c.refs == nil {
		c.refs = map[string]ir.Node{}
	}
	c.refs[full] = n
	return n
}

// compileSchema implements the §4.3.2 dispatch order.
func (c *Compiler) compileSchema(schema *Value, uri, pointer string) ir.Node {
	if schema.IsTrue() {
		return c.compileAnyJSON(uri)
	}
	if schema.IsFalse() {
		c.fail(pointer, fmt.Errorf("schema `false` is unsatisfiable"))
		return c.ctx.Null()
	}
	if schema.Kind != KindObject {
		c.fail(pointer, fmt.Errorf("schema must be an object or boolean"))
		return c.ctx.Null()
	}

	anyOfV, hasAnyOf := schema.Get("anyOf")
	oneOfV, hasOneOf := schema.Get("oneOf")
	allOfV, hasAllOf := schema.Get("allOf")
	refV, hasRef := schema.Get("$ref")

	hasCombinator := hasAnyOf || hasOneOf
	siblings := objectWithout(schema, "anyOf", "oneOf")

	// Step 1/3: anyOf/oneOf, with or without allOf alongside, and with or
	// without other sibling constraints: distribute everything else into
	// each branch via synthesized allOf.
	if hasCombinator {
		branches := anyOfV
		exact := true
		if hasOneOf {
			branches = oneOfV
			exact = len(oneOfV.Array) <= 1
			if !exact {
				c.handler.HandleWarningf(reporter.AtPointer(pointer),
					"oneOf with more than one alternative is compiled as anyOf (documented imprecision)")
			}
		}
		hasSiblings := objectLen(siblings) > 0
		alts := make([]ir.Node, len(branches.Array))
		for i, branch := range branches.Array {
			key := pointer
			if hasAnyOf {
				key = appendPointerIndex(pointer, "anyOf", i)
			} else {
				key = appendPointerIndex(pointer, "oneOf", i)
			}
			toMerge := []*Value{branch}
			if hasSiblings {
				toMerge = append(toMerge, siblings)
			}
			if hasAllOf {
				toMerge = append(toMerge, allOfV.Array...)
			}
			merged := branch
			if len(toMerge) > 1 {
				merged = c.mergeAllOf(toMerge, uri, key)
			}
			alts[i] = c.compileSchema(merged, uri, key)
		}
		return c.ctx.Select(false, alts...)
	}

	// Step 2: allOf alone.
	if hasAllOf {
		merged := c.mergeAllOf(allOfV.Array, uri, pointer)
		rest := objectWithout(schema, "allOf")
		if objectLen(rest) > 0 {
			merged = c.mergeAllOf([]*Value{merged, rest}, uri, pointer)
		}
		return c.compileSchema(merged, uri, pointer)
	}

	// Step 4: $ref with siblings wraps in allOf; a bare $ref dereferences
	// directly (no synthesized wrapper, so it shares compileRef's memoized
	// cycle handling).
	if hasRef {
		rest := objectWithout(schema, "$ref")
		if objectLen(rest) > 0 {
			merged := c.mergeAllOf([]*Value{objectValue(kv("$ref", refV)), rest}, uri, pointer)
			return c.compileSchema(merged, uri, pointer)
		}
		absURI, err := ResolveURI(uri, refV.Str)
		if err != nil {
			c.fail(pointer, err)
			return c.ctx.Null()
		}
		docURI, fragment := splitFragment(absURI)
		return c.compileRef(docURI, fragment)
	}

	// Step 5: const.
	if v, ok := schema.Get("const"); ok {
		return rx.QuoteLiteral(c.ctx, CompactJSON(v))
	}

	// Step 6: enum.
	if v, ok := schema.Get("enum"); ok {
		types := typeSetOf(firstOr(schema, "type"))
		alts := make([]ir.Node, 0, len(v.Array))
		for _, opt := range v.Array {
			if len(types) > 0 && !types[jsonTypeOf(opt)] {
				continue
			}
			alts = append(alts, rx.QuoteLiteral(c.ctx, CompactJSON(opt)))
		}
		if len(alts) == 0 {
			c.fail(pointer, fmt.Errorf("enum has no members matching sibling type constraint"))
			return c.ctx.Null()
		}
		return c.ctx.Select(false, alts...)
	}

	// Step 7: type dispatch, or "anything" if type is absent.
	typeV, hasType := schema.Get("type")
	if !hasType {
		return c.compileAnyJSON(uri)
	}
	types := typeSetOf(typeV)
	if len(types) == 1 {
		for t := range types {
			return c.compileOneType(t, schema, uri, pointer)
		}
	}
	var alts []ir.Node
	for _, t := range allJSONTypes {
		if types[t] {
			alts = append(alts, c.compileOneType(t, schema, uri, pointer))
		}
	}
	return c.ctx.Select(false, alts...)
}

func (c *Compiler) compileOneType(t string, schema *Value, uri, pointer string) ir.Node {
	switch t {
	case "null":
		return compileNull(c)
	case "boolean":
		return compileBoolean(c)
	case "integer":
		return c.compileInteger(schema, pointer)
	case "number":
		return c.compileNumber(schema, pointer)
	case "string":
		return c.compileString(schema, pointer)
	case "array":
		return c.compileArray(schema, uri, pointer)
	case "object":
		return c.compileObject(schema, uri, pointer)
	default:
		c.fail(pointer, &UnsupportedKeyword{Pointer: pointer, Keyword: "type:" + t})
		return c.ctx.Null()
	}
}

// firstOr returns schema's value for key, or the JSON `true` schema (the
// "no constraint" sentinel) if absent.
func firstOr(schema *Value, key string) *Value {
	if v, ok := schema.Get(key); ok {
		return v
	}
	return &Value{Kind: KindBool, Bool: true}
}

// jsonTypeOf names the JSON Schema type of a literal value, for filtering
// enum members by a sibling `type` constraint.
func jsonTypeOf(v *Value) string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		if _, exact := v.AsInt(); exact {
			return "integer"
		}
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return ""
	}
}

// compileAnyJSON returns a self-referential grammar accepting any JSON
// value (the `{}`/`true` schema, and the "type absent with no combinator"
// case). Built via Recursive under a key scoped to uri, so the nested self
// references close the cycle; each call made outside that build constructs
// the grammar again.
func (c *Compiler) compileAnyJSON(uri string) ir.Node {
	return c.ctx.Recursive("any-json::"+uri, func(self ir.Node) ir.Node {
		anyArray := c.ctx.Join(
			c.punct('[', false, true),
			orderedOptionalSequenceWithTail(c, nil, c.punct(',', true, true),
				unboundedTail(c, "any-json-array-tail::"+uri, self, c.punct(',', true, true))),
			c.punct(']', true, false),
		)
		member := c.ctx.Join(c.anyJSONStringLexeme(), c.punct(':', true, true), self)
		anyObject := c.ctx.Join(
			c.punct('{', false, true),
			orderedOptionalSequenceWithTail(c, nil, c.punct(',', true, true),
				unboundedTail(c, "any-json-object-tail::"+uri, member, c.punct(',', true, true))),
			c.punct('}', true, false),
		)
		return c.ctx.Select(false,
			compileNull(c),
			compileBoolean(c),
			c.lexemeFromPattern(`-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?`, ""),
			c.anyJSONStringLexeme(),
			anyArray,
			anyObject,
		)
	})
}

func mustCompile(c *Compiler, pat string) ir.Node {
	n, err := c.compilePattern(pat)
	if err != nil {
		c.fail("", err)
		return c.ctx.Null()
	}
	return n
}
