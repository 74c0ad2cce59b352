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

package rx_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/reporter"
	"github.com/tokenlattice/constrain/rx"
)

func mustParse(t *testing.T, pattern string) *rx.AST {
	t.Helper()
	ast, err := rx.Parse(pattern, nil)
	require.NoError(t, err)
	return ast
}

func TestParseLiteralConcat(t *testing.T) {
	t.Parallel()
	ast := mustParse(t, "abc")
	require.Equal(t, rx.OpConcat, ast.Op)
	require.Len(t, ast.Sub, 3)
	for i, want := range []rune{'a', 'b', 'c'} {
		assert.Equal(t, rx.OpLiteral, ast.Sub[i].Op)
		assert.Equal(t, []rune{want}, ast.Sub[i].Runes)
	}
}

func TestParseAlternate(t *testing.T) {
	t.Parallel()
	ast := mustParse(t, "cat|dog")
	require.Equal(t, rx.OpAlternate, ast.Op)
	require.Len(t, ast.Sub, 2)
}

func TestParseStarPlusOptional(t *testing.T) {
	t.Parallel()
	for _, tc := range []struct {
		pattern string
		min     int
		max     int
	}{
		{"a*", 0, rx.Unbounded},
		{"a+", 1, rx.Unbounded},
		{"a?", 0, 1},
		{"a{2,4}", 2, 4},
		{"a{3}", 3, 3},
		{"a{2,}", 2, rx.Unbounded},
	} {
		ast := mustParse(t, tc.pattern)
		require.Equal(t, rx.OpRepeat, ast.Op, tc.pattern)
		assert.Equal(t, tc.min, ast.Min, tc.pattern)
		assert.Equal(t, tc.max, ast.Max, tc.pattern)
	}
}

func TestParseNamedClasses(t *testing.T) {
	t.Parallel()
	ast := mustParse(t, `\d`)
	require.Equal(t, rx.OpClass, ast.Op)
	assert.False(t, ast.Negated)

	ast = mustParse(t, `\D`)
	require.Equal(t, rx.OpClass, ast.Op)
	assert.True(t, ast.Negated)
}

func TestParseCharClass(t *testing.T) {
	t.Parallel()
	ast := mustParse(t, "[a-z0-9]")
	require.Equal(t, rx.OpClass, ast.Op)
	assert.Equal(t, []rx.RuneRange{{Lo: 'a', Hi: 'z'}, {Lo: '0', Hi: '9'}}, ast.Ranges)
}

func TestParseUnterminatedGroupErrors(t *testing.T) {
	t.Parallel()
	_, err := rx.Parse("(abc", nil)
	assert.Error(t, err)
}

func TestParseBadRepeatRangeErrors(t *testing.T) {
	t.Parallel()
	_, err := rx.Parse("a{4,2}", nil)
	assert.Error(t, err)
}

func TestCompileLiteral(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	node, err := rx.CompilePattern(c, "ab", nil)
	require.NoError(t, err)
	assert.Equal(t, c.Join(c.Byte('a'), c.Byte('b')), node)
}

func TestCompileAlternateAcceptsEitherBranch(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	node, err := rx.CompilePattern(c, "cat|car", nil)
	require.NoError(t, err)

	first := ir.FirstBytes(node)
	assert.True(t, first.Contains('c'))
	assert.False(t, first.Contains('d'))
}

func TestCompileBoundedRepeatUnrolls(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	node, err := rx.CompilePattern(c, "a{2,3}", nil)
	require.NoError(t, err)
	require.Equal(t, ir.KindJoin, node.Kind())
	// Two required "a"s plus one optional "a": forced prefix is "aa".
	assert.Equal(t, []byte("aa"), ir.ForcedPrefix(node))
}

func TestCompileUnboundedRepeatIsRecursive(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	node, err := rx.CompilePattern(c, "a*", nil)
	require.NoError(t, err)
	// FIRST must include 'a' (one or more) - the empty-match branch means
	// FirstBytes alone can't distinguish "a*" from "a+", so check the
	// structural shape instead: with no required copies, the Join around
	// the tail collapses to the recursive Select itself.
	require.Equal(t, ir.KindSelect, node.Kind())
	assert.True(t, node.Recurse())
}

func TestCompileDigitClassMatchesAllDigits(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	node, err := rx.CompilePattern(c, `\d`, nil)
	require.NoError(t, err)
	set, ok := ir.ToByteSet(node)
	require.True(t, ok)
	for b := byte('0'); b <= '9'; b++ {
		assert.True(t, set.Contains(b))
	}
	assert.False(t, set.Contains('a'))
}

func TestCompileNegatedDigitClassExcludesDigits(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	// \D spans non-ASCII code points too (multi-byte UTF-8 sequences), so
	// unlike \d it is not representable as a single-byte ByteSet; check
	// its FIRST-byte set instead.
	node, err := rx.CompilePattern(c, `\D`, nil)
	require.NoError(t, err)
	first := ir.FirstBytes(node)
	for b := byte('0'); b <= '9'; b++ {
		assert.False(t, first.Contains(b))
	}
	assert.True(t, first.Contains('a'))
}

func TestRuneRangesToByteSequencesASCII(t *testing.T) {
	t.Parallel()
	seqs := rx.RuneRangesToByteSequences('a', 'z')
	require.Len(t, seqs, 1)
	require.Len(t, seqs[0], 1)
	assert.Equal(t, rx.ByteRange{Lo: 'a', Hi: 'z'}, seqs[0][0])
}

func TestRuneRangesToByteSequencesTwoByte(t *testing.T) {
	t.Parallel()
	// U+0391 GREEK CAPITAL LETTER ALPHA to U+03A9 GREEK CAPITAL LETTER
	// OMEGA: entirely 2-byte UTF-8, single leading byte 0xCE.
	seqs := rx.RuneRangesToByteSequences(0x0391, 0x03A9)
	require.Len(t, seqs, 1)
	require.Len(t, seqs[0], 2)
	assert.Equal(t, byte(0xCE), seqs[0][0].Lo)
	assert.Equal(t, byte(0xCE), seqs[0][0].Hi)
}

func TestRuneRangesToByteSequencesCrossesLengthBoundary(t *testing.T) {
	t.Parallel()
	seqs := rx.RuneRangesToByteSequences('A', 0xE9)
	require.Len(t, seqs, 3) // 1-byte chunk, then two 2-byte chunks either side of a lead-byte split
	assert.Len(t, seqs[0], 1)
	assert.Len(t, seqs[1], 2)
	assert.Len(t, seqs[2], 2)
}

func TestQuoteRegexIsLiteral(t *testing.T) {
	t.Parallel()
	ast := rx.QuoteRegex("a.b*")
	assert.Equal(t, rx.OpLiteral, ast.Op)
	assert.Equal(t, []rune("a.b*"), ast.Runes)
}

func TestQuoteLiteralMatchesCompileLiteral(t *testing.T) {
	t.Parallel()
	c := ir.NewContext()
	quoted := rx.QuoteLiteral(c, "x.y")
	compiled, err := rx.CompilePattern(c, `x\.y`, nil)
	require.NoError(t, err)
	assert.Equal(t, compiled, quoted)
}

func TestAnchorsAreStrippedWithWarning(t *testing.T) {
	t.Parallel()
	var warned []string
	rep := reporter.NewReporter(nil, func(e reporter.ErrorWithPos) {
		warned = append(warned, e.Error())
	})
	handler := reporter.NewHandler(rep)

	ast, err := rx.Parse("^abc$", handler)
	require.NoError(t, err)
	require.Equal(t, rx.OpConcat, ast.Op)
	require.Len(t, ast.Sub, 3)
	assert.NotEmpty(t, warned)
}
