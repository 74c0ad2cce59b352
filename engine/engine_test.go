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

package engine_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlattice/constrain/engine"
	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/vocab"
)

// wordTokenizer is the same small word-list test double parser_test.go
// uses, duplicated here since engine_test.go lives in a different package
// and the example pack's own convention is per-package test doubles, not a
// shared internal testutil package.
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

// scriptedOracle ignores the actual logit values (the engine already
// burned disallowed entries down to -Inf before handing them over) and
// just returns the next id off a fixed script, recording every call it
// saw so tests can assert the engine queried the oracle the expected
// number of times.
type scriptedOracle struct {
	script []int32
	i      int
	calls  int
}

func (s *scriptedOracle) Logits(ctx context.Context, prefix []int32) ([]float32, error) {
	return make([]float32, 16), nil
}

func (s *scriptedOracle) SampleWithTemperature(logits []float32, temperature float64) (int32, float64, error) {
	s.calls++
	if s.i >= len(s.script) {
		return 0, 0, fmt.Errorf("scriptedOracle: script exhausted after %d calls", s.calls)
	}
	tok := s.script[s.i]
	s.i++
	return tok, -0.1, nil
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

func TestGenerateDrivesBranchingGrammarToCompletion(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Select(false, literal(ctx, "cat"), literal(ctx, "dog"))
	tok := newWordTokenizer("cat", "dog")
	idx := buildIndex(t, tok)

	e, err := engine.New(ctx, root, idx, engine.Options{}, nil, nil)
	require.NoError(t, err)

	oracle := &scriptedOracle{script: []int32{tok.id("dog")}}
	var responses []engine.Response
	err = e.Generate(context.Background(), oracle, nil, func(r engine.Response) error {
		responses = append(responses, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, responses, 2)

	assert.Empty(t, responses[0].ForceForwardedBytes, "first byte is genuinely ambiguous between cat/dog")
	assert.False(t, responses[0].Done)

	assert.Equal(t, []byte("dog"), responses[1].GeneratedBytes)
	assert.Equal(t, []byte("dog"), responses[1].NewBytes)
	assert.True(t, responses[1].IsGenerated)
	assert.True(t, responses[1].Done)
	assert.Equal(t, 1, oracle.calls)
}

func TestGenerateFastForwardsWithoutCallingTheOracle(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := literal(ctx, "hi")
	tok := newWordTokenizer()
	idx := buildIndex(t, tok)

	e, err := engine.New(ctx, root, idx, engine.Options{}, nil, nil)
	require.NoError(t, err)

	oracle := &scriptedOracle{}
	var responses []engine.Response
	err = e.Generate(context.Background(), oracle, nil, func(r engine.Response) error {
		responses = append(responses, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, []byte("hi"), responses[0].ForceForwardedBytes)
	assert.True(t, responses[0].Done)
	assert.Equal(t, 0, oracle.calls)
}

func TestGenerateSilentModeSuppressesBytesButStillAdvances(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Select(false, literal(ctx, "cat"), literal(ctx, "dog"))
	tok := newWordTokenizer("cat", "dog")
	idx := buildIndex(t, tok)

	e, err := engine.New(ctx, root, idx, engine.Options{Silent: true}, nil, nil)
	require.NoError(t, err)

	oracle := &scriptedOracle{script: []int32{tok.id("cat")}}
	var responses []engine.Response
	err = e.Generate(context.Background(), oracle, nil, func(r engine.Response) error {
		responses = append(responses, r)
		return nil
	})
	require.NoError(t, err)
	for _, r := range responses {
		assert.Empty(t, r.NewBytes)
		assert.Empty(t, r.GeneratedBytes)
		assert.Empty(t, r.ForceForwardedBytes)
	}
	assert.True(t, responses[len(responses)-1].Done)
}

func TestGenerateReportsCaptureDeltasNotFullSnapshots(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	item1 := ctx.Capture(ctx.Select(false, literal(ctx, "a"), literal(ctx, "b")), "items", true)
	item2 := ctx.Capture(ctx.Select(false, literal(ctx, "x"), literal(ctx, "y")), "items", true)
	root := ctx.Join(item1, ctx.Byte(','), item2)
	tok := newWordTokenizer("a", "b", "x", "y", ",")
	idx := buildIndex(t, tok)

	e, err := engine.New(ctx, root, idx, engine.Options{}, nil, nil)
	require.NoError(t, err)

	oracle := &scriptedOracle{script: []int32{tok.id("a"), tok.id("x")}}
	var responses []engine.Response
	err = e.Generate(context.Background(), oracle, nil, func(r engine.Response) error {
		responses = append(responses, r)
		return nil
	})
	require.NoError(t, err)

	var sawA, sawX bool
	for _, r := range responses {
		if len(r.Captures.Lists["items"]) == 0 {
			continue
		}
		require.Len(t, r.Captures.Lists["items"], 1, "each response should carry only the delta, not the cumulative list")
		switch string(r.Captures.Lists["items"][0]) {
		case "a":
			sawA = true
		case "x":
			sawX = true
		}
	}
	assert.True(t, sawA)
	assert.True(t, sawX)
}

func TestGenerateMaxTotalTokensCapsAcrossTheWholeGrammar(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	body := ctx.Lexeme(ctx.ByteRange('a', 'z'), false, false)
	root := ctx.Gen(body, ir.Node{}, false, 0)
	tok := newWordTokenizer("a", "b")
	idx := buildIndex(t, tok)

	e, err := engine.New(ctx, root, idx, engine.Options{MaxTotalTokens: 1}, nil, nil)
	require.NoError(t, err)

	oracle := &scriptedOracle{script: []int32{tok.id("a"), tok.EOS()}}
	var responses []engine.Response
	err = e.Generate(context.Background(), oracle, nil, func(r engine.Response) error {
		responses = append(responses, r)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, responses[len(responses)-1].Done)
	assert.Equal(t, 2, oracle.calls, "one sample for the letter, one for EOS once the global budget is spent")
}

func TestGenerateEmitAbortStopsTheLoopEarly(t *testing.T) {
	t.Parallel()
	ctx := ir.NewContext()
	root := ctx.Select(false, literal(ctx, "cat"), literal(ctx, "dog"))
	tok := newWordTokenizer("cat", "dog")
	idx := buildIndex(t, tok)

	e, err := engine.New(ctx, root, idx, engine.Options{}, nil, nil)
	require.NoError(t, err)

	oracle := &scriptedOracle{script: []int32{tok.id("cat")}}
	stop := fmt.Errorf("caller hung up")
	err = e.Generate(context.Background(), oracle, nil, func(r engine.Response) error {
		return stop
	})
	require.ErrorIs(t, err, stop)
}
