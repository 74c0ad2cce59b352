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

// Package vocab defines the tokenizer interface the parser and engine
// packages drive against, and indexes a tokenizer's vocabulary into a trie
// so the parser can walk candidate tokens byte by byte in lockstep with a
// grammar frontier (spec §4.5: "the parser maintains a trie over the
// tokenizer's vocabulary and walks it in parallel with the frontier").
package vocab

import (
	"fmt"

	"github.com/tokenlattice/constrain/internal/trie"
)

// Tokenizer is the external byte<->token boundary (spec §6). The core
// treats it as an oracle collaborator: Encode/Decode convert between raw
// bytes and token-id sequences, Recode renormalizes a token sequence after
// a BOS has been spliced in (a tokenizer's greedy merge rules can produce
// a different id sequence than concatenating two already-tokenized runs).
type Tokenizer interface {
	// VocabSize returns the number of distinct token ids, i.e. every valid
	// id satisfies 0 <= id < VocabSize().
	VocabSize() int32
	// Encode tokenizes text into a sequence of token ids.
	Encode(text []byte) ([]int32, error)
	// Decode renders a token-id sequence back to its byte representation.
	Decode(ids []int32) ([]byte, error)
	// Recode renormalizes ids, e.g. after prepending a BOS token, to the
	// canonical tokenization of the same byte sequence.
	Recode(ids []int32) ([]int32, error)
	// BOS returns the beginning-of-sequence token id, if the tokenizer has
	// one.
	BOS() (id int32, ok bool)
	// EOS returns the end-of-sequence token id. Every tokenizer has one.
	EOS() int32
}

// Index is a byte-trie over a Tokenizer's entire vocabulary, mapping each
// token's decoded bytes to its id. The parser walks it in lockstep with a
// grammar frontier to compute the set of tokens legal at a given decoding
// step, per spec §4.5.
type Index struct {
	tok  Tokenizer
	trie trie.Trie[int32]
}

// Build decodes every token id in tok's vocabulary and indexes it by its
// byte representation. Tokens whose Decode fails or that decode to zero
// bytes (degenerate/control tokens some tokenizers expose) are skipped
// rather than erroring the whole build, since a vocabulary gap for one
// stray id doesn't invalidate indexing the rest.
func Build(tok Tokenizer) (*Index, error) {
	idx := &Index{tok: tok}
	n := tok.VocabSize()
	if n <= 0 {
		return nil, fmt.Errorf("vocab: tokenizer reports non-positive vocab size %d", n)
	}
	for id := int32(0); id < n; id++ {
		bytes, err := tok.Decode([]int32{id})
		if err != nil || len(bytes) == 0 {
			continue
		}
		idx.trie.Insert(string(bytes), id)
	}
	return idx, nil
}

// Tokenizer returns the underlying tokenizer the index was built from.
func (idx *Index) Tokenizer() Tokenizer {
	return idx.tok
}

// Root returns a cursor positioned at the trie's root, the starting point
// for walking a candidate token's bytes against a grammar frontier.
func (idx *Index) Root() trie.Cursor[int32] {
	return idx.trie.Root()
}

// Lookup returns the token id whose decoded bytes equal s exactly, if one
// exists.
func (idx *Index) Lookup(s []byte) (id int32, ok bool) {
	c := idx.Root()
	for _, b := range s {
		c, ok = c.Step(b)
		if !ok {
			return 0, false
		}
	}
	return c.Value()
}
