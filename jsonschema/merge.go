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
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tokenlattice/constrain/reporter"
)

// resolveBranchValue dereferences a bare "$ref"-only allOf branch to the
// schema Value it points to, so allOf merging sees the referent's actual
// keywords rather than an opaque reference (§4.3.2 step 2: "recurse
// through $ref"). Non-$ref branches, and $ref branches with siblings (which
// were already wrapped in their own allOf by the caller), pass through
// unchanged.
func (c *Compiler) resolveBranchValue(branch *Value, uri, pointer string) (*Value, string) {
	if branch.Kind == KindObject && branch.Object.Len() == 1 {
		if ref, ok := branch.Get("$ref"); ok {
			absURI, err := ResolveURI(uri, ref.Str)
			if err != nil {
				c.handler.HandleError(reporter.Error(reporter.AtPointer(pointer), err))
				return branch, uri
			}
			doc, err := c.resolver.Lookup(absURI)
			if err != nil {
				c.handler.HandleError(reporter.Error(reporter.AtPointer(pointer), err))
				return branch, uri
			}
			return doc, stripFragment(absURI)
		}
	}
	return branch, uri
}

// mergeAllOf implements §4.3.2 step 2: intersect types, union required,
// concatenate properties per key (nesting an allOf if a key recurs),
// intersect enums, unify const, and propagate every other keyword
// unchanged (duplicates of those raise *AllOfUnsupportedDuplicate* unless
// they agree).
func (c *Compiler) mergeAllOf(branches []*Value, uri, pointer string) *Value {
	var (
		typesSet         bool
		typeIntersection map[string]bool
		seenRequired     = map[string]bool{}
		requiredOrder    []string
		propOrder        []string
		propSchemas      = map[string][]*Value{}
		propOrigin       = map[string][]string{} // per-schema base URI, parallel to propSchemas
		enumSet          bool
		enumIntersection []*Value
		constSet         bool
		constVal         *Value
		otherKeys        = map[string]*Value{}
		otherOrder       []string
	)

	for i, raw := range branches {
		branch, branchURI := c.resolveBranchValue(raw, uri, appendPointer(pointer, "allOf"))
		branchPointer := appendPointerIndex(pointer, "allOf", i)
		if branch.IsFalse() {
			c.handler.HandleError(reporter.Error(reporter.AtPointer(branchPointer),
				&AllOfConflict{Pointer: branchPointer, Reason: "allOf branch is the unsatisfiable schema `false`"}))
			continue
		}
		if branch.IsTrue() || branch.Kind != KindObject {
			continue
		}

		for pair := branch.Object.Oldest(); pair != nil; pair = pair.Next() {
			key, val := pair.Key, pair.Value
			switch key {
			case "type":
				t := typeSetOf(val)
				if !typesSet {
					typeIntersection, typesSet = t, true
				} else {
					typeIntersection = intersectTypeSets(typeIntersection, t)
				}
			case "required":
				for _, r := range val.Array {
					if !seenRequired[r.Str] {
						seenRequired[r.Str] = true
						requiredOrder = append(requiredOrder, r.Str)
					}
				}
			case "properties":
				for p := val.Object.Oldest(); p != nil; p = p.Next() {
					if _, ok := propSchemas[p.Key]; !ok {
						propOrder = append(propOrder, p.Key)
					}
					propSchemas[p.Key] = append(propSchemas[p.Key], p.Value)
					propOrigin[p.Key] = append(propOrigin[p.Key], branchURI)
				}
			case "enum":
				if !enumSet {
					enumIntersection, enumSet = val.Array, true
				} else {
					enumIntersection = intersectEnumValues(enumIntersection, val.Array)
				}
			case "const":
				if constSet && !valuesEqual(constVal, val) {
					c.handler.HandleError(reporter.Error(reporter.AtPointer(branchPointer),
						&AllOfConflict{Pointer: branchPointer, Reason: "conflicting const values across allOf branches"}))
				}
				constVal, constSet = val, true
			case "$id", "$schema", "$comment", "title", "description", "default", "examples", "$anchor", "discriminator":
				// ignored everywhere (spec §6), no merge rule needed.
			default:
				if existing, ok := otherKeys[key]; ok {
					if !valuesEqual(existing, val) {
						c.handler.HandleError(reporter.Error(reporter.AtPointer(branchPointer),
							&AllOfUnsupportedDuplicate{Pointer: branchPointer, Keyword: key}))
					}
				} else {
					otherKeys[key] = val
					otherOrder = append(otherOrder, key)
				}
			}
		}
	}

	if typesSet && len(typeIntersection) == 0 {
		c.handler.HandleError(reporter.Error(reporter.AtPointer(pointer),
			&AllOfConflict{Pointer: pointer, Reason: "intersected type set is empty"}))
	}

	result := orderedmap.New[string, *Value]()
	if typesSet {
		result.Set("type", typeSetToValue(typeIntersection))
	}
	if len(requiredOrder) > 0 {
		arr := make([]*Value, len(requiredOrder))
		for i, r := range requiredOrder {
			arr[i] = &Value{Kind: KindString, Str: r}
		}
		result.Set("required", &Value{Kind: KindArray, Array: arr})
	}
	if len(propOrder) > 0 {
		props := orderedmap.New[string, *Value]()
		for _, key := range propOrder {
			schemas := propSchemas[key]
			c.warnIfCrossDocument(key, propOrigin[key], uri, pointer)
			if len(schemas) == 1 {
				props.Set(key, schemas[0])
			} else {
				props.Set(key, synthesizeAllOf(schemas...))
			}
		}
		result.Set("properties", &Value{Kind: KindObject, Object: props})
	}
	if enumSet {
		result.Set("enum", &Value{Kind: KindArray, Array: enumIntersection})
	}
	if constSet {
		result.Set("const", constVal)
	}
	for _, key := range otherOrder {
		result.Set(key, otherKeys[key])
	}
	return &Value{Kind: KindObject, Object: result}
}

// warnIfCrossDocument flags a property pulled (via allOf merge) from a
// branch whose base URI differs from the merge's own document: any
// relative $ref nested inside that property's schema would need resolving
// against the branch's document, but the merged schema object carries no
// per-property URI, so it is compiled against pointer's enclosing uri
// instead. Same-document allOf composition (the common case) is unaffected.
func (c *Compiler) warnIfCrossDocument(key string, origins []string, uri, pointer string) {
	for _, o := range origins {
		if o != uri {
			c.handler.HandleWarningf(reporter.AtPointer(appendPointer(pointer, key)),
				"property %q merged from a different document (%s); relative $refs inside it resolve against %s instead", key, o, uri)
			return
		}
	}
}

func intersectEnumValues(a, b []*Value) []*Value {
	var out []*Value
	for _, av := range a {
		for _, bv := range b {
			if valuesEqual(av, bv) {
				out = append(out, av)
				break
			}
		}
	}
	return out
}

// appendPointerIndex extends pointer with "/key/i", the JSON Pointer form
// for an array element.
func appendPointerIndex(pointer, key string, i int) string {
	return appendPointer(appendPointer(pointer, key), strconv.Itoa(i))
}
