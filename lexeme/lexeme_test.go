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

package lexeme_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/lexeme"
)

// match reports whether node matches data exactly, via the same
// recursive-descent shape buildNFA walks (Null/Byte/ByteRange/Join/Select/
// DeferredReference), so the Not/And/Or tests below exercise the real
// compiled output rather than asserting on node counts.
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

func literal(ctx *ir.Context, s string) ir.Node {
	bytes := make([]ir.Node, len(s))
	for i := 0; i < len(s); i++ {
		bytes[i] = ctx.Byte(s[i])
	}
	return ctx.Join(bytes...)
}

func TestAsRegularGrammarOperandCounts(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	a := ctx.ByteRange('a', 'z')

	_, err := lexeme.AsRegularGrammar(ctx, lexeme.Not)
	assert.Error(t, err)
	_, err = lexeme.AsRegularGrammar(ctx, lexeme.Not, a, a)
	assert.Error(t, err)

	_, err = lexeme.AsRegularGrammar(ctx, lexeme.And, a)
	assert.Error(t, err)
	_, err = lexeme.AsRegularGrammar(ctx, lexeme.Or, a)
	assert.Error(t, err)
}

func TestAsRegularGrammarUnknownOp(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	_, err := lexeme.AsRegularGrammar(ctx, lexeme.Op(99), ctx.ByteRange('a', 'z'))
	assert.Error(t, err)
}

func TestNotComplementsSingleByteLiteral(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	a := ctx.Byte('a')

	result, err := lexeme.AsRegularGrammar(ctx, lexeme.Not, a)
	require.NoError(t, err)

	assert.False(t, matchesExact(result, "a"))
	assert.True(t, matchesExact(result, "b"))
	assert.True(t, matchesExact(result, ""))
	assert.True(t, matchesExact(result, "aa"))
}

func TestAndIntersectsByteRanges(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	lowToM := ctx.ByteRange('a', 'm')
	gToZ := ctx.ByteRange('g', 'z')

	result, err := lexeme.AsRegularGrammar(ctx, lexeme.And, lowToM, gToZ)
	require.NoError(t, err)

	assert.True(t, matchesExact(result, "g"))
	assert.True(t, matchesExact(result, "m"))
	assert.False(t, matchesExact(result, "a"))
	assert.False(t, matchesExact(result, "z"))
}

func TestOrUnionsLiterals(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	cat := literal(ctx, "cat")
	dog := literal(ctx, "dog")

	result, err := lexeme.AsRegularGrammar(ctx, lexeme.Or, cat, dog)
	require.NoError(t, err)

	assert.True(t, matchesExact(result, "cat"))
	assert.True(t, matchesExact(result, "dog"))
	assert.False(t, matchesExact(result, "cow"))
}

func TestAndDisjointRangesIsUnsatisfiable(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	lowHalf := ctx.ByteRange('a', 'm')
	highHalf := ctx.ByteRange('n', 'z')

	_, err := lexeme.AsRegularGrammar(ctx, lexeme.And, lowHalf, highHalf)
	require.Error(t, err)
	var unsat *lexeme.UnsatisfiableRegularGrammar
	require.ErrorAs(t, err, &unsat)
	assert.Equal(t, lexeme.And, unsat.Op)
}

func TestNotOfLiteralSetExcludesUsedKeys(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	used := ctx.Select(false, literal(ctx, "foo"), literal(ctx, "bar"))

	result, err := lexeme.AsRegularGrammar(ctx, lexeme.Not, used)
	require.NoError(t, err)

	assert.False(t, matchesExact(result, "foo"))
	assert.False(t, matchesExact(result, "bar"))
	assert.True(t, matchesExact(result, "baz"))
}

func TestWrapAppliesTokenLimitAndCapture(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	body := ctx.Byte('x')

	wrapped := lexeme.Wrap(ctx, body, lexeme.Options{MaxTokens: 5, CaptureName: "field", ListAppend: true})

	require.Equal(t, ir.KindCapture, wrapped.Kind())
	assert.Equal(t, "field", wrapped.CaptureName())
	assert.True(t, wrapped.ListAppend())

	limited := wrapped.Child()
	require.Equal(t, ir.KindTokenLimit, limited.Kind())
	assert.Equal(t, 5, limited.TokenLimit())
	assert.Equal(t, ir.KindByte, limited.Child().Kind())
}

func TestWrapWithNoOptionsIsIdentity(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	body := ctx.Byte('x')

	wrapped := lexeme.Wrap(ctx, body, lexeme.Options{})
	assert.Equal(t, ir.KindByte, wrapped.Kind())
}

func TestJoinWithSkipSuppressesInitial(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	skip := ctx.Byte(' ')
	a, b, c := ctx.Byte('a'), ctx.Byte('b'), ctx.Byte('c')

	joined := lexeme.JoinWithSkip(ctx, skip, true, a, b, c)
	require.Equal(t, ir.KindJoin, joined.Kind())
	assert.Len(t, joined.Children(), 5) // a, skip, b, skip, c

	joined = lexeme.JoinWithSkip(ctx, skip, false, a, b, c)
	require.Equal(t, ir.KindJoin, joined.Kind())
	assert.Len(t, joined.Children(), 6) // skip, a, skip, b, skip, c
}

func TestJoinWithSkipZeroSkipIsPlainJoin(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	a, b := ctx.Byte('a'), ctx.Byte('b')

	joined := lexeme.JoinWithSkip(ctx, ir.Node{}, false, a, b)
	require.Equal(t, ir.KindJoin, joined.Kind())
	assert.Len(t, joined.Children(), 2)
}

func TestEscapeJSONStringWrapsQuotesAndPassesSafeBytesThrough(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	body := ctx.Select(false, literal(ctx, "hi"), literal(ctx, "bye"))

	result, err := lexeme.EscapeJSONString(ctx, body)
	require.NoError(t, err)

	assert.True(t, matchesExact(result, `"hi"`))
	assert.True(t, matchesExact(result, `"bye"`))
	assert.False(t, matchesExact(result, "hi"))
	assert.False(t, matchesExact(result, `"hello"`))
}

func TestEscapeJSONStringEscapesQuoteAndBackslashAndControlBytes(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	body := ctx.ByteRange(0x00, 0xff)

	result, err := lexeme.EscapeJSONString(ctx, body)
	require.NoError(t, err)

	// A literal quote or backslash byte must not appear unescaped.
	assert.False(t, matchesExact(result, "\"\"\""))
	assert.False(t, matchesExact(result, "\"\\\""))
	// The escape sequences are the only legal encodings for those bytes.
	assert.True(t, matchesExact(result, "\"\\\"\""))
	assert.True(t, matchesExact(result, "\"\\\\\""))
	assert.True(t, matchesExact(result, "\"\\n\""))
	// Content is exactly one byte; an empty string is not a legal encoding.
	assert.False(t, matchesExact(result, "\"\""))
	// An ordinary printable byte passes through literally.
	assert.True(t, matchesExact(result, "\"a\""))
}
