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

// Package jsonschema compiles a subset of JSON Schema (Draft 2020-12) into
// byte grammar IR (spec §4.3): reference resolution, the allOf/anyOf/oneOf
// dispatch rewrite, per-type compilation, and the right-recursive ordered-
// optional-sequence construction shared by arrays and objects.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tokenlattice/constrain/internal/ext/cmpx"
	"github.com/tokenlattice/constrain/internal/intern"
)

// Kind discriminates the JSON value shapes a schema document (or a value
// appearing inside one, e.g. a `const`/`enum` entry) can take.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Object is a JSON object that preserves source member order: §4.3.3's
// "properties in order" compilation depends on it, and plain
// encoding/json decoding into map[string]any would silently scramble that
// order. Keyed on the teacher's own practice of reaching for a purpose-
// built library rather than hand-rolling one (see internal/intern,
// internal/trie): this uses the pack's github.com/wk8/go-ordered-map/v2,
// the same type relied on by github.com/holomush/holomush's JSON Schema
// tooling.
type Object = orderedmap.OrderedMap[string, *Value]

// Value is a parsed JSON value.
type Value struct {
	Kind   Kind
	Bool   bool
	Number json.Number
	Str    string
	Array  []*Value
	Object *Object
}

// ParseJSON parses data into a [Value], preserving object member order.
//
// Object keys are interned against a table scoped to this single call: a
// schema document repeats the same handful of keyword strings ("type",
// "properties", "items", ...) at every nesting level, so sharing their
// backing storage across the whole document cuts down on duplicate
// allocations the way the teacher's symbol table does for identifiers.
func ParseJSON(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var keys intern.Table
	v, err := decodeValue(dec, &keys)
	if err != nil {
		return nil, fmt.Errorf("jsonschema: %w", err)
	}
	return v, nil
}

// decodeValue reads one complete JSON value from dec's token stream. This
// is the standard token-level technique for recovering object member
// order from encoding/json, which the package's own Decode/Unmarshal
// entry points do not preserve.
func decodeValue(dec *json.Decoder, keys *intern.Table) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return decodeToken(dec, tok, keys)
}

func decodeToken(dec *json.Decoder, tok json.Token, keys *intern.Table) (*Value, error) {
	switch t := tok.(type) {
	case nil:
		return &Value{Kind: KindNull}, nil
	case bool:
		return &Value{Kind: KindBool, Bool: t}, nil
	case json.Number:
		return &Value{Kind: KindNumber, Number: t}, nil
	case string:
		return &Value{Kind: KindString, Str: t}, nil
	case json.Delim:
		switch t {
		case '[':
			var arr []*Value
			for dec.More() {
				v, err := decodeValue(dec, keys)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return nil, err
			}
			return &Value{Kind: KindArray, Array: arr}, nil
		case '{':
			om := orderedmap.New[string, *Value]()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("non-string object key %v", keyTok)
				}
				key = keys.Value(keys.Intern(key))
				v, err := decodeValue(dec, keys)
				if err != nil {
					return nil, err
				}
				om.Set(key, v)
			}
			if _, err := dec.Token(); err != nil { // consume '}'
				return nil, err
			}
			return &Value{Kind: KindObject, Object: om}, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Get looks up key in an object Value, returning (nil, false) if v is not
// an object or has no such member.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.Kind != KindObject {
		return nil, false
	}
	return v.Object.Get(key)
}

// IsTrue reports whether v is the JSON literal `true`. Used for schema
// positions that accept a boolean shorthand (e.g. `items: false`).
func (v *Value) IsTrue() bool {
	return v != nil && v.Kind == KindBool && v.Bool
}

// IsFalse reports whether v is the JSON literal `false`.
func (v *Value) IsFalse() bool {
	return v != nil && v.Kind == KindBool && !v.Bool
}

// AsFloat returns v's numeric value. Panics if v is not KindNumber.
func (v *Value) AsFloat() float64 {
	f, err := v.Number.Float64()
	if err != nil {
		panic(fmt.Sprintf("jsonschema: not a float: %v", v.Number))
	}
	return f
}

// AsInt returns v's numeric value truncated to an int, and whether it was
// an exact integer.
func (v *Value) AsInt() (int, bool) {
	if n, err := strconv.Atoi(string(v.Number)); err == nil {
		return n, true
	}
	f, err := v.Number.Float64()
	if err != nil {
		return 0, false
	}
	return int(f), false
}

// CompactJSON renders v as its canonical compact JSON encoding (no
// whitespace, object members in source order), as required by §4.3.2's
// `const` and `enum` compilation ("the compact JSON of the value").
func CompactJSON(v *Value) string {
	var b bytes.Buffer
	writeCompact(&b, v)
	return b.String()
}

func writeCompact(b *bytes.Buffer, v *Value) {
	if v == nil {
		b.WriteString("null")
		return
	}
	switch v.Kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumber:
		b.WriteString(string(v.Number))
	case KindString:
		enc, _ := json.Marshal(v.Str)
		b.Write(enc)
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.Array {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCompact(b, e)
		}
		b.WriteByte(']')
	case KindObject:
		b.WriteByte('{')
		i := 0
		for pair := v.Object.Oldest(); pair != nil; pair = pair.Next() {
			if i > 0 {
				b.WriteByte(',')
			}
			key, _ := json.Marshal(pair.Key)
			b.Write(key)
			b.WriteByte(':')
			writeCompact(b, pair.Value)
			i++
		}
		b.WriteByte('}')
	}
}

// sortedKeys is used only where a stable-but-order-independent key listing
// is needed (e.g. diagnostics); schema compilation itself always walks
// Object in source order via Oldest/Next.
func sortedKeys(o *Object) []string {
	keys := make([]string, 0, o.Len())
	for pair := o.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	slices.SortFunc(keys, cmpx.Key(func(s string) string { return s }))
	return keys
}
