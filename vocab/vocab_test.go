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

package vocab_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenlattice/constrain/vocab"
)

// fakeTokenizer is a minimal word-list tokenizer for tests: token id i
// decodes to words[i].
type fakeTokenizer struct {
	words []string
	eos   int32
}

func newFakeTokenizer(words ...string) *fakeTokenizer {
	return &fakeTokenizer{words: words, eos: int32(len(words))}
}

func (f *fakeTokenizer) VocabSize() int32 { return int32(len(f.words)) + 1 } // + EOS

func (f *fakeTokenizer) Decode(ids []int32) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		if id == f.eos {
			continue
		}
		if id < 0 || int(id) >= len(f.words) {
			return nil, fmt.Errorf("fake: bad id %d", id)
		}
		out = append(out, f.words[id]...)
	}
	return out, nil
}

func (f *fakeTokenizer) Encode(text []byte) ([]int32, error) {
	return nil, fmt.Errorf("fake: Encode unused in tests")
}

func (f *fakeTokenizer) Recode(ids []int32) ([]int32, error) { return ids, nil }

func (f *fakeTokenizer) BOS() (int32, bool) { return 0, false }

func (f *fakeTokenizer) EOS() int32 { return f.eos }

func TestBuildIndexesEveryToken(t *testing.T) {
	t.Parallel()
	tok := newFakeTokenizer("foo", "foobar", "baz")
	idx, err := vocab.Build(tok)
	require.NoError(t, err)

	id, ok := idx.Lookup([]byte("foo"))
	require.True(t, ok)
	assert.EqualValues(t, 0, id)

	id, ok = idx.Lookup([]byte("foobar"))
	require.True(t, ok)
	assert.EqualValues(t, 1, id)

	_, ok = idx.Lookup([]byte("nope"))
	assert.False(t, ok)
}

func TestRootCursorWalksSharedPrefix(t *testing.T) {
	t.Parallel()
	tok := newFakeTokenizer("foo", "foobar")
	idx, err := vocab.Build(tok)
	require.NoError(t, err)

	c := idx.Root()
	for _, b := range []byte("foo") {
		var ok bool
		c, ok = c.Step(b)
		require.True(t, ok)
	}
	id, ok := c.Value()
	require.True(t, ok)
	assert.EqualValues(t, 0, id)

	// Continuing past "foo" should still be walkable toward "foobar".
	c, ok = c.Step('b')
	require.True(t, ok)
	_, ok = c.Value()
	assert.False(t, ok) // "foob" is not itself a token
}

func TestBuildRejectsNonPositiveVocabSize(t *testing.T) {
	t.Parallel()
	_, err := vocab.Build(&emptyTokenizer{})
	require.Error(t, err)
}

type emptyTokenizer struct{ fakeTokenizer }

func (e *emptyTokenizer) VocabSize() int32 { return 0 }
