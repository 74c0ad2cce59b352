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

// allJSONTypes are the seven JSON Schema primitive type names, in the
// canonical order this compiler emits alternatives (§4.3.3 lists them in
// this order).
var allJSONTypes = []string{"null", "boolean", "integer", "number", "string", "array", "object"}

// typeSetOf reads a schema's `type` keyword (a single string or an array
// of strings) into a set.
func typeSetOf(v *Value) map[string]bool {
	set := make(map[string]bool)
	switch v.Kind {
	case KindString:
		set[v.Str] = true
	case KindArray:
		for _, e := range v.Array {
			if e.Kind == KindString {
				set[e.Str] = true
			}
		}
	}
	return set
}

// intersectTypeSets intersects two type sets.
func intersectTypeSets(a, b map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for t := range a {
		if b[t] {
			out[t] = true
		}
	}
	return out
}

// typeSetToValue renders a type set back as a schema `type` value: a bare
// string if there is exactly one member, else an array in canonical order.
func typeSetToValue(set map[string]bool) *Value {
	var ordered []string
	for _, t := range allJSONTypes {
		if set[t] {
			ordered = append(ordered, t)
		}
	}
	if len(ordered) == 1 {
		return &Value{Kind: KindString, Str: ordered[0]}
	}
	arr := make([]*Value, len(ordered))
	for i, t := range ordered {
		arr[i] = &Value{Kind: KindString, Str: t}
	}
	return &Value{Kind: KindArray, Array: arr}
}
