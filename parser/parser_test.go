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

package parser_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/parser"
	"github.com/tokenlattice/constrain/vocab"
)

// wordTokenizer maps each entry in words to its index, plus a trailing
// EOS id, mirroring vocab's own test double.
type wordTokenizer struct {
	words []string
	eos   int32
}

func newWordTokenizer(words ...string) *wordTokenizer {
	return &wordTokenizer{words: words, eos: int32(len(words))}
}

func (w *wordTokenizer) VocabSize() int32 { return int32(len(w.words)) + 1 }

func (w *wordTokenizer) Decode(ids []int32) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		if id == w.eos {
			continue
		}
		if id < 0 || int(id) >= len(w.words) {
			return nil, fmt.Errorf("wordTokenizer: bad id %d", id)
		}
		out = append(out, w.words[id]...)
	}
	return out, nil
}

func (w *wordTokenizer) Encode(text []byte) ([]int32, error) {
	return nil, fmt.Errorf("wordTokenizer: Encode unused in tests")
}

func (w *wordTokenizer) Recode(ids []int32) ([]int32, error) { return ids, nil }

func (w *wordTokenizer) BOS() (int32, bool) { return 0, false }

func (w *wordTokenizer) EOS() int32 { return w.eos }

func (w *wordTokenizer) id(word string) int32 {
	for i, s := range w.words {
		if s == word {
			return int32(i)
		}
	}
	panic("wordTokenizer: no such word " + word)
}

func literal(ctx *ir.Context, s string) ir.Node {
	bytes := make([]ir.Node, len(s))
	for i := 0; i < len(s); i++ {
		bytes[i] = ctx.Byte(s[i])
	}
	return ctx.Join(bytes...)
}

func buildIndex(t *testing.T, tok vocab.Tokenizer) *vocab.Index {
	t.Helper()
	idx, err := vocab.Build(tok)
	require.NoError(t, err)
	return idx
}

func TestAdvanceFastForwardsWhollyDeterministicGrammar(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := literal(ctx, "hi")
	tok := newWordTokenizer()
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)

	step, err := p.Advance(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), step.ForcedBytes)
	assert.Nil(t, step.Gen)
	assert.True(t, p.Done())
	assert.Equal(t, []byte("hi"), p.Bytes())
}

func TestMaskRestrictsToTokensTheGrammarCanContinueWith(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Select(false, literal(ctx, "cat"), literal(ctx, "dog"))
	tok := newWordTokenizer("cat", "dog", "cow")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)

	step, err := p.Advance(nil)
	require.NoError(t, err)
	assert.Empty(t, step.ForcedBytes, "first byte is genuinely ambiguous between cat/dog")
	require.NotNil(t, step.Gen)
	assert.True(t, step.Gen.Mask[tok.id("cat")])
	assert.True(t, step.Gen.Mask[tok.id("dog")])
	assert.False(t, step.Gen.Mask[tok.id("cow")])
}

func TestAdvanceCommitsSampledTokenAndDetectsCompletion(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Select(false, literal(ctx, "cat"), literal(ctx, "dog"))
	tok := newWordTokenizer("cat", "dog")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)
	_, err = p.Advance(nil)
	require.NoError(t, err)

	step, err := p.Advance(&parser.Sampled{Token: tok.id("cat"), LogProb: -0.25})
	require.NoError(t, err)
	assert.Nil(t, step.Gen)
	assert.True(t, p.Done())
	assert.Equal(t, []byte("cat"), p.Bytes())
	assert.Equal(t, []int32{tok.id("cat")}, p.Tokens())
}

func TestCaptureRecordsMatchedTextAndTokenLogProb(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Capture(ctx.Select(false, literal(ctx, "red"), literal(ctx, "blue")), "color", false)
	tok := newWordTokenizer("red", "blue")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)
	_, err = p.Advance(nil)
	require.NoError(t, err)

	_, err = p.Advance(&parser.Sampled{Token: tok.id("blue"), LogProb: -1.5})
	require.NoError(t, err)
	assert.True(t, p.Done())

	caps := p.Captures()
	assert.Equal(t, []byte("blue"), caps.Values["color"])
	assert.InDelta(t, -1.5, caps.LogProbs["color"], 1e-9)
}

func TestListCaptureAppendsEachCompletion(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	// The two items use distinct underlying content (a/b vs. x/y), so each
	// entry of the "items" list shows which item produced it.
	item1 := ctx.Capture(ctx.Select(false, literal(ctx, "a"), literal(ctx, "b")), "items", true)
	item2 := ctx.Capture(ctx.Select(false, literal(ctx, "x"), literal(ctx, "y")), "items", true)
	root := ctx.Join(item1, ctx.Byte(','), item2)
	tok := newWordTokenizer("a", "b", "x", "y", ",")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)
	_, err = p.Advance(nil)
	require.NoError(t, err)
	_, err = p.Advance(&parser.Sampled{Token: tok.id("a"), LogProb: -0.1})
	require.NoError(t, err)
	_, err = p.Advance(&parser.Sampled{Token: tok.id("x"), LogProb: -0.2})
	require.NoError(t, err)

	caps := p.Captures()
	require.Len(t, caps.Lists["items"], 2)
	assert.Equal(t, []byte("a"), caps.Lists["items"][0])
	assert.Equal(t, []byte("x"), caps.Lists["items"][1])
}

func TestEOSAcceptedOnlyInAcceptingState(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := literal(ctx, "ok")
	tok := newWordTokenizer()
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)

	_, err = p.Advance(&parser.Sampled{Token: tok.EOS()})
	var gf *parser.GrammarFailure
	require.ErrorAs(t, err, &gf)
}

func TestEOSCompletesAcceptingGrammar(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Select(false, literal(ctx, "ok"), ctx.Null())
	tok := newWordTokenizer("ok")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)
	_, err = p.Advance(nil)
	require.NoError(t, err)

	step, err := p.Advance(&parser.Sampled{Token: tok.EOS()})
	require.NoError(t, err)
	assert.Equal(t, parser.Step{}, step)
	assert.True(t, p.Done())
	assert.Empty(t, p.Bytes())
}

func TestVocabularyGapWhenNoTokenHasALegalContinuation(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	// Two distinct single-byte alternatives so forcedByteFor sees a genuine
	// disagreement (not a trivially forced byte) and falls through to mask
	// computation, which is the only place the vocabulary is consulted.
	root := ctx.Select(false, ctx.Byte('y'), ctx.Byte('z'))
	tok := newWordTokenizer("a", "b")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)

	_, err = p.Advance(nil)
	var gap *parser.VocabularyGap
	require.ErrorAs(t, err, &gap)
}

func TestGenMaxTokensExhaustionRemovesByteContinuationsFromMask(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	body := ctx.Lexeme(ctx.ByteRange('a', 'z'), false, false)
	root := ctx.Gen(body, ir.Node{}, false, 1)
	tok := newWordTokenizer("a", "b")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)

	first, err := p.Advance(nil)
	require.NoError(t, err)
	require.NotNil(t, first.Gen)
	assert.True(t, first.Gen.Mask[tok.id("a")])

	second, err := p.Advance(&parser.Sampled{Token: tok.id("a"), LogProb: -0.3})
	require.NoError(t, err)
	require.NotNil(t, second.Gen)
	assert.False(t, second.Gen.Mask[tok.id("a")], "token budget is spent, grammar must not offer another letter")
	assert.False(t, second.Gen.Mask[tok.id("b")])
	assert.True(t, second.Gen.Mask[tok.EOS()])
}

// TestHealBacktrackMergesASplitToken reproduces the single-token lookback
// scenario: the grammar forces a shared "cat" prefix between two
// alternatives, the oracle samples the narrow token "e" instead of the
// wider "egory" once the longer alternative is the only one left, and the
// parser backtracks that commit once the now-forced remainder ("gory")
// combines with "e" into a vocabulary token distinct from the one sampled.
func TestHealBacktrackMergesASplitToken(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	cat := literal(ctx, "cat")
	category := ctx.Join(cat, literal(ctx, "egory"))
	root := ctx.Select(false, cat, category)

	tok := newWordTokenizer("cat", "egory", "e")
	idx := buildIndex(t, tok)

	p, err := parser.New(ctx, root, idx)
	require.NoError(t, err)

	first, err := p.Advance(nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("cat"), first.ForcedBytes)
	require.NotNil(t, first.Gen)
	assert.True(t, first.Gen.Mask[tok.id("e")])
	assert.True(t, first.Gen.Mask[tok.EOS()])

	second, err := p.Advance(&parser.Sampled{Token: tok.id("e"), LogProb: -2.0})
	require.NoError(t, err)
	require.NotNil(t, second.Gen)
	assert.Equal(t, 1, second.Gen.Backtrack)
	assert.Equal(t, []byte("cat"), p.Bytes(), "the split token's commit must be fully undone")
	assert.Empty(t, p.Tokens())
	assert.True(t, second.Gen.Mask[tok.id("egory")])

	third, err := p.Advance(&parser.Sampled{Token: tok.id("egory"), LogProb: -0.4})
	require.NoError(t, err)
	assert.Nil(t, third.Gen)
	assert.True(t, p.Done())
	assert.Equal(t, []byte("category"), p.Bytes())
	assert.Equal(t, []int32{tok.id("egory")}, p.Tokens())
}
