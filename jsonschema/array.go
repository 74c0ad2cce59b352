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

// compileArray returns the grammar for an `array`-typed schema (§4.3.3
// array): `[`, a structured sequence built on the §4.3.4 construction, `]`.
func (c *Compiler) compileArray(schema *Value, uri, pointer string) ir.Node {
	prefixItems, _ := schema.Get("prefixItems")
	itemsV, hasItems := schema.Get("items")
	itemsFalse := hasItems && itemsV.IsFalse()

	minItems, maxItems := 0, -1
	if v, ok := schema.Get("minItems"); ok {
		minItems, _ = v.AsInt()
	}
	if v, ok := schema.Get("maxItems"); ok {
		maxItems, _ = v.AsInt()
	}
	if maxItems >= 0 && maxItems < minItems {
		c.fail(pointer, &BadArrayBounds{Pointer: pointer, MinItems: minItems, MaxItems: maxItems})
		return c.ctx.Null()
	}

	numPrefix := 0
	if prefixItems != nil {
		numPrefix = len(prefixItems.Array)
	}
	if numPrefix < minItems && itemsFalse {
		c.fail(pointer, &UnsatisfiableArray{Pointer: pointer})
		return c.ctx.Null()
	}

	// The finite part covers indices [0, finiteLen): positional schemas
	// from prefixItems where present, falling back to the items schema
	// (required to fill slots between numPrefix and minItems, optional
	// beyond that up to maxItems).
	finiteLen := numPrefix
	if minItems > finiteLen {
		finiteLen = minItems
	}
	if maxItems >= 0 && maxItems > finiteLen && !itemsFalse {
		finiteLen = maxItems
	}

	sep := c.punct(',', true, true)
	items := make([]seqItem, 0, finiteLen)
	for i := 0; i < finiteLen; i++ {
		var itemSchemaNode ir.Node
		switch {
		case i < numPrefix:
			itemSchemaNode = c.compileSchema(prefixItems.Array[i], uri, appendPointerIndex(pointer, "prefixItems", i))
		case hasItems && !itemsFalse:
			itemSchemaNode = c.compileSchema(itemsV, uri, appendPointer(pointer, "items"))
		default:
			// items absent or false, but required by minItems beyond
			// prefixItems: already reported as UnsatisfiableArray above when
			// itemsFalse; an absent items with i >= numPrefix falls back to
			// "anything" (no narrowing keyword governs the slot).
			itemSchemaNode = c.compileAnyJSON(uri)
		}
		items = append(items, seqItem{node: itemSchemaNode, required: i < minItems})
	}

	var body ir.Node
	if maxItems < 0 && hasItems && !itemsFalse {
		tailItem := c.compileSchema(itemsV, uri, appendPointer(pointer, "items"))
		body = orderedOptionalSequenceWithTail(c, items, sep,
			unboundedTail(c, "array-tail::"+pointer, tailItem, sep))
	} else {
		body = orderedOptionalSequence(c, items, sep)
	}

	return c.ctx.Join(c.punct('[', false, true), body, c.punct(']', true, false))
}
