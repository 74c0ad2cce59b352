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

import orderedmap "github.com/wk8/go-ordered-map/v2"

// objectWithout returns a shallow copy of v (which must be KindObject)
// with the named keys removed, preserving the order of everything else.
func objectWithout(v *Value, keys ...string) *Value {
	drop := make(map[string]bool, len(keys))
	for _, k := range keys {
		drop[k] = true
	}
	out := orderedmap.New[string, *Value]()
	for pair := v.Object.Oldest(); pair != nil; pair = pair.Next() {
		if !drop[pair.Key] {
			out.Set(pair.Key, pair.Value)
		}
	}
	return &Value{Kind: KindObject, Object: out}
}

func objectLen(v *Value) int {
	if v == nil || v.Kind != KindObject {
		return 0
	}
	return v.Object.Len()
}

func objectValue(pairs ...struct {
	Key   string
	Value *Value
}) *Value {
	out := orderedmap.New[string, *Value]()
	for _, p := range pairs {
		out.Set(p.Key, p.Value)
	}
	return &Value{Kind: KindObject, Object: out}
}

func kv(key string, val *Value) struct {
	Key   string
	Value *Value
} {
	return struct {
		Key   string
		Value *Value
	}{key, val}
}

func arrayValue(items ...*Value) *Value {
	return &Value{Kind: KindArray, Array: items}
}

// synthesizeAllOf builds {"allOf": [branches...]}, the rewrite §4.3.2 steps
// 1/3/4 use to push sibling constraints (or a bare $ref) down next to a
// combinator branch.
func synthesizeAllOf(branches ...*Value) *Value {
	return objectValue(kv("allOf", arrayValue(branches...)))
}

// valuesEqual compares two JSON values structurally via their canonical
// compact encoding — simple, and correct for the small const/enum
// comparisons this package needs (schema documents are not large enough
// for this to be a hot path).
func valuesEqual(a, b *Value) bool {
	return CompactJSON(a) == CompactJSON(b)
}
