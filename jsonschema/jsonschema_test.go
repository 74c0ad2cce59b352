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

package jsonschema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/jsonschema"
	"github.com/tokenlattice/constrain/reporter"
)

func newCompiler(t *testing.T, opts jsonschema.Options) (*ir.Context, *jsonschema.Resolver, *reporter.Handler, *jsonschema.Compiler) {
	t.Helper()
	ctx := ir.NewContext()
	resolver := jsonschema.NewResolver()
	handler := reporter.NewHandler(nil)
	return ctx, resolver, handler, jsonschema.NewCompiler(ctx, resolver, handler, opts)
}

func mustParse(t *testing.T, doc string) *jsonschema.Value {
	t.Helper()
	v, err := jsonschema.ParseJSON([]byte(doc))
	require.NoError(t, err)
	return v
}

// match reports whether node matches data exactly, the same recursive-
// descent shape lexeme_test.go's own copy walks; duplicated here rather
// than shared since each package keeps its own small test doubles.
func match(node ir.Node, data []byte, k func([]byte) bool) bool {
	switch node.Kind() {
	case ir.KindNull:
		return k(data)
	case ir.KindByte:
		return len(data) > 0 && data[0] == node.AsByte() && k(data[1:])
	case ir.KindByteRange:
		lo, hi := node.AsByteRange()
		return len(data) > 0 && data[0] >= lo && data[0] <= hi && k(data[1:])
	case ir.KindJoin:
		children := node.Children()
		var seq func(i int, rest []byte) bool
		seq = func(i int, rest []byte) bool {
			if i == len(children) {
				return k(rest)
			}
			return match(children[i], rest, func(r2 []byte) bool { return seq(i+1, r2) })
		}
		return seq(0, data)
	case ir.KindSelect:
		for _, c := range node.Children() {
			if match(c, data, k) {
				return true
			}
		}
		return false
	case ir.KindLexeme:
		return match(node.Child(), data, k)
	case ir.KindDeferredReference:
		target, ok := node.Resolved()
		return ok && match(target, data, k)
	default:
		return false
	}
}

func matchesExact(node ir.Node, data string) bool {
	return match(node, []byte(data), func(rest []byte) bool { return len(rest) == 0 })
}

func TestCompileBoolean(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"boolean"}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindSelect, node.Kind())
	assert.Len(t, node.Children(), 2)
}

func TestCompileConst(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"const":{"a":1}}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindJoin, node.Kind())
}

func TestCompileEnumFiltersBySiblingType(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"string","enum":["a",1,"b"]}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindSelect, node.Kind())
	assert.Len(t, node.Children(), 2) // "a" and "b"; 1 filtered out by type:string
}

func TestCompileEnumEmptyAfterFilterFails(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"string","enum":[1,2,3]}`))

	_, err := c.Compile("mem://root")
	require.Error(t, err)
}

func TestCompileIntegerRange(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"integer","minimum":3,"maximum":17}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindLexeme, node.Kind())
	assert.True(t, node.Contextual())
	assert.False(t, node.JSONString())
}

func TestCompileIntegerOpenEndedMinimumForbidsNegativeValues(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"integer","minimum":10}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)

	assert.True(t, matchesExact(node, "10"))
	assert.True(t, matchesExact(node, "150"))
	assert.False(t, matchesExact(node, "9"))
	assert.False(t, matchesExact(node, "-15"))
}

func TestCompileIntegerNegativeOpenEndedMinimumBoundsMagnitude(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"integer","minimum":-5}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)

	assert.True(t, matchesExact(node, "-5"))
	assert.True(t, matchesExact(node, "0"))
	assert.True(t, matchesExact(node, "1000"))
	assert.False(t, matchesExact(node, "-6"))
	assert.False(t, matchesExact(node, "-1000"))
}

func TestCompileStringFormatIsJSONStringLexeme(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"type":"string","format":"uuid"}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindLexeme, node.Kind())
	assert.True(t, node.JSONString())
}

func TestCompileRefAndRecursiveDefs(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"$defs": {
			"list": {
				"type": "array",
				"items": {"$ref": "#/$defs/list"}
			}
		},
		"$ref": "#/$defs/list"
	}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	// array wrapper: `[` body `]`
	require.Equal(t, ir.KindJoin, node.Kind())
}

func TestCompileObjectWithOptionalProperty(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"age": {"type": "integer"}
		},
		"required": ["name"],
		"additionalProperties": false
	}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindJoin, node.Kind())
}

func TestCompileObjectUnsatisfiableRequiredKey(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"type": "object",
		"properties": {"a": {"type": "string"}},
		"required": ["a", "b"],
		"additionalProperties": false
	}`))

	_, err := c.Compile("mem://root")
	require.Error(t, err)
	var unsat *jsonschema.UnsatisfiableObject
	require.ErrorAs(t, err, &unsat)
	assert.Equal(t, "b", unsat.Key)
	assert.Equal(t, []string{"a"}, unsat.Known)
}

func TestCompileArrayBadBounds(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"type": "array",
		"minItems": 5,
		"maxItems": 2
	}`))

	_, err := c.Compile("mem://root")
	require.Error(t, err)
	var bad *jsonschema.BadArrayBounds
	require.ErrorAs(t, err, &bad)
}

func TestMergeAllOfUnionsRequiredAndConcatenatesProperties(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"allOf": [
			{"type": "object", "properties": {"a": {"type": "string"}}, "required": ["a"]},
			{"type": "object", "properties": {"b": {"type": "integer"}}, "required": ["b"]}
		]
	}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindJoin, node.Kind())
}

func TestMergeAllOfConflictingConst(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"allOf": [
			{"const": 1},
			{"const": 2}
		]
	}`))

	_, err := c.Compile("mem://root")
	require.Error(t, err)
	var conflict *jsonschema.AllOfConflict
	require.ErrorAs(t, err, &conflict)
}

func TestCompileAnyOfDistributesSiblings(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{
		"anyOf": [{"type": "string"}, {"type": "integer"}],
		"description": "ignored, but required is not"
	}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindSelect, node.Kind())
	assert.Len(t, node.Children(), 2)
}

func TestCompileOneOfMultipleAlternativesWarns(t *testing.T) {
	t.Parallel()
	var warnings []error
	ctx := ir.NewContext()
	resolver := jsonschema.NewResolver()
	rep := reporter.NewReporter(nil, func(e reporter.ErrorWithPos) {
		warnings = append(warnings, e)
	})
	handler := reporter.NewHandler(rep)
	c := jsonschema.NewCompiler(ctx, resolver, handler, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"oneOf": [{"type": "string"}, {"type": "integer"}]}`))

	_, err := c.Compile("mem://root")
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
}

func TestCompileFlexibleWhitespaceWrapsPunctuation(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{Whitespace: jsonschema.Flexible})
	resolver.Register("mem://root", mustParse(t, `{"type":"array","items":{"type":"boolean"},"minItems":1,"maxItems":2}`))

	node, err := c.Compile("mem://root")
	require.NoError(t, err)
	require.Equal(t, ir.KindJoin, node.Kind())
}

func TestCompileUnresolvedReference(t *testing.T) {
	t.Parallel()
	_, resolver, _, c := newCompiler(t, jsonschema.Options{})
	resolver.Register("mem://root", mustParse(t, `{"$ref": "#/$defs/missing"}`))

	_, err := c.Compile("mem://root")
	require.Error(t, err)
	var unresolved *jsonschema.UnresolvedReference
	require.ErrorAs(t, err, &unresolved)
}

func TestCompactJSONPreservesKeyOrder(t *testing.T) {
	t.Parallel()
	v := mustParse(t, `{"z":1,"a":2}`)
	assert.Equal(t, `{"z":1,"a":2}`, jsonschema.CompactJSON(v))
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	t.Parallel()
	yamlVal, err := jsonschema.ParseYAML([]byte("type: string\nminLength: 2\n"))
	require.NoError(t, err)
	jsonVal := mustParse(t, `{"type":"string","minLength":2}`)
	assert.Equal(t, jsonschema.CompactJSON(jsonVal), jsonschema.CompactJSON(yamlVal))
}
