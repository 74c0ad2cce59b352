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
	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/lexeme"
	"github.com/tokenlattice/constrain/rx"
)

// compileObject returns the grammar for an `object`-typed schema (§4.3.3
// object): `{`, a structured sequence of key-value members built on the
// §4.3.4 construction, `}`.
func (c *Compiler) compileObject(schema *Value, uri, pointer string) ir.Node {
	propsV, hasProps := schema.Get("properties")
	requiredV, _ := schema.Get("required")
	addlV, hasAddl := schema.Get("additionalProperties")
	addlFalse := hasAddl && addlV.IsFalse()

	required := map[string]bool{}
	var requiredOrder []string
	if requiredV != nil {
		for _, r := range requiredV.Array {
			if !required[r.Str] {
				required[r.Str] = true
				requiredOrder = append(requiredOrder, r.Str)
			}
		}
	}

	known := map[string]bool{}
	var propOrder []string
	if hasProps {
		for pair := propsV.Object.Oldest(); pair != nil; pair = pair.Next() {
			known[pair.Key] = true
			propOrder = append(propOrder, pair.Key)
		}
	}

	colon := c.punct(':', true, true)
	sep := c.punct(',', true, true)

	additionalPropertySchema := func() (ir.Node, bool) {
		if addlFalse {
			return ir.Node{}, false
		}
		if hasAddl {
			return c.compileSchema(addlV, uri, appendPointer(pointer, "additionalProperties")), true
		}
		return c.compileAnyJSON(uri), true
	}

	members := make([]seqItem, 0, len(propOrder)+len(requiredOrder))
	for _, key := range propOrder {
		propSchema, _ := propsV.Get(key)
		valNode := c.compileSchema(propSchema, uri, appendPointer(appendPointer(pointer, "properties"), key))
		members = append(members, seqItem{
			node:     c.ctx.Join(quoteJSONKey(c, key), colon, valNode),
			required: required[key],
		})
	}

	// Required keys not declared in properties use additionalProperties as
	// their value schema (§4.3.3 object).
	for _, key := range requiredOrder {
		if known[key] {
			continue
		}
		valNode, ok := additionalPropertySchema()
		if !ok {
			c.fail(pointer, &UnsatisfiableObject{Pointer: pointer, Key: key, Known: knownPropertyNames(propsV)})
			return c.ctx.Null()
		}
		members = append(members, seqItem{
			node:     c.ctx.Join(quoteJSONKey(c, key), colon, valNode),
			required: true,
		})
	}

	// A tail of additional (unknown) key-value pairs, when
	// additionalProperties isn't false. The tail's key grammar excludes the
	// closed key set declared in properties (§4.3.3: "intersected with the
	// negation of the closed key set"), via the Not/And/Or lexeme
	// composition (§4.4).
	if addlFalse {
		return c.ctx.Join(c.punct('{', false, true), orderedOptionalSequence(c, members, sep), c.punct('}', true, false))
	}
	tailVal, _ := additionalPropertySchema()
	tailMember := c.ctx.Join(c.excludedKeysStringLexeme(propsV), colon, tailVal)
	body := orderedOptionalSequenceWithTail(c, members, sep,
		unboundedTail(c, "object-tail::"+pointer, tailMember, sep))

	return c.ctx.Join(c.punct('{', false, true), body, c.punct('}', true, false))
}

// quoteJSONKey compiles a fixed property name as the literal bytes of its
// JSON-quoted form, e.g. "name" -> the byte sequence `"name"`.
func quoteJSONKey(c *Compiler, key string) ir.Node {
	return rx.QuoteLiteral(c.ctx, CompactJSON(&Value{Kind: KindString, Str: key}))
}

// anyJSONStringLexeme returns the grammar for an unconstrained JSON string:
// a content-only regex (no surrounding quotes — those come from the
// jsonString escape grammar the Lexeme constructor adds atop body).
func (c *Compiler) anyJSONStringLexeme() ir.Node {
	return c.ctx.Lexeme(mustCompile(c, `[\s\S]*`), true, true)
}

// excludedKeysStringLexeme returns the grammar for an unconstrained JSON
// string that additionally excludes an exact match against any key
// declared in propsV, so an additional-properties tail can't silently
// accept a duplicate of an already-declared property. Falls back to
// anyJSONStringLexeme when there are no declared keys to exclude, or if
// the composition is somehow unsatisfiable (reported and recovered the
// same way mustCompile does).
func (c *Compiler) excludedKeysStringLexeme(propsV *Value) ir.Node {
	if propsV == nil || propsV.Kind != KindObject || propsV.Object.Len() == 0 {
		return c.anyJSONStringLexeme()
	}

	excluded := make([]ir.Node, 0, propsV.Object.Len())
	for pair := propsV.Object.Oldest(); pair != nil; pair = pair.Next() {
		excluded = append(excluded, rx.QuoteLiteral(c.ctx, pair.Key))
	}
	notKnown, err := lexeme.AsRegularGrammar(c.ctx, lexeme.Not, c.ctx.Select(false, excluded...))
	if err != nil {
		c.fail("", err)
		return c.anyJSONStringLexeme()
	}

	anyContent := mustCompile(c, `[\s\S]*`)
	content, err := lexeme.AsRegularGrammar(c.ctx, lexeme.And, anyContent, notKnown)
	if err != nil {
		c.fail("", err)
		return c.anyJSONStringLexeme()
	}
	return c.ctx.Lexeme(content, true, true)
}

func knownPropertyNames(propsV *Value) []string {
	if propsV == nil || propsV.Kind != KindObject {
		return nil
	}
	return sortedKeys(propsV.Object)
}
