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

package parser

import (
	"fmt"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/vocab"
)

// Sampled is one token an oracle chose, handed back to Advance.
type Sampled struct {
	Token   int32
	LogProb float64
}

// GenData tells the caller what to sample next: which tokens are legal
// right now (Mask, indexed by token id) and at what temperature, plus how
// many tokens a token-healing backtrack discarded, if any.
type GenData struct {
	Mask        []bool
	Temperature float64
	Backtrack   int
}

// Step is the result of one Advance call: bytes the grammar forced without
// needing a sample (ForcedBytes), and, if decoding isn't finished, the
// sampling instructions for the next token (Gen).
type Step struct {
	ForcedBytes []byte
	Gen         *GenData
}

// Parser drives one grammar's frontier: the set of automaton positions
// consistent with every byte committed so far. New bytes are added either
// by fast-forwarding (the grammar leaves only one possible byte, so no
// oracle call is needed) or by committing a sampled token's decoded bytes
// via Advance.
type Parser struct {
	prog *program
	idx  *vocab.Index

	frontier  []thread
	committed []byte
	tokens    []int32
	spans     []tokenSpan

	captures        map[string][]byte
	captureLists    map[string][][]byte
	captureLog      map[string]float64
	captureLogLists map[string][]float64

	done bool
}

// New compiles root and returns a Parser positioned at the grammar's
// start, with the initial round of fast-forwarding not yet run (the first
// Advance(nil) call does that).
func New(ctx *ir.Context, root ir.Node, idx *vocab.Index) (*Parser, error) {
	prog, err := compile(ctx, root)
	if err != nil {
		return nil, err
	}
	p := &Parser{
		prog:            prog,
		idx:             idx,
		captures:        map[string][]byte{},
		captureLists:    map[string][][]byte{},
		captureLog:      map[string]float64{},
		captureLogLists: map[string][]float64{},
	}
	p.frontier = p.effectClose([]thread{{state: prog.start}}, 0)
	if len(p.frontier) == 0 {
		return nil, &GrammarFailure{Message: "grammar's start state has no reachable accepting or byte-consuming configuration"}
	}
	return p, nil
}

// Bytes returns every byte committed to the output so far, forced and
// sampled alike.
func (p *Parser) Bytes() []byte { return p.committed }

// Tokens returns the sampled token ids committed so far, in order. Forced
// bytes produced by fast-forwarding are not tokens and don't appear here.
func (p *Parser) Tokens() []int32 { return p.tokens }

// IsAccepting reports whether the frontier currently includes a
// configuration where the grammar could legally stop.
func (p *Parser) IsAccepting() bool {
	for _, th := range p.frontier {
		if th.state == p.prog.accept {
			return true
		}
	}
	return false
}

// Done reports whether decoding is finished: either an EOS was already
// committed via Advance, or the frontier is accepting with no byte-
// consuming continuation left at all, so there's nothing more the grammar
// could ever produce.
func (p *Parser) Done() bool {
	if p.done {
		return true
	}
	if !p.IsAccepting() {
		return false
	}
	for _, th := range p.frontier {
		if len(p.prog.bytes[th.state]) > 0 {
			return false
		}
	}
	return true
}

// Advance is the single entry point the decode loop drives. Call it with
// nil to prime the first step (run any initial fast-forwarding and get the
// first mask); call it with the oracle's sampled token on every subsequent
// step. It returns once either decoding is finished or the caller needs to
// sample again.
func (p *Parser) Advance(sampled *Sampled) (Step, error) {
	if p.done {
		return Step{}, fmt.Errorf("parser: Advance called after Done")
	}

	if sampled != nil {
		before := p.snapshot()
		if err := p.commitSampled(sampled); err != nil {
			return Step{}, err
		}
		if p.done {
			return Step{}, nil
		}
		if healed, step, err := p.healBacktrack(before); err != nil || healed {
			return step, err
		}
	}

	forced, err := p.fastForward()
	if err != nil {
		return Step{}, err
	}

	if p.Done() {
		p.done = true
		return Step{ForcedBytes: forced}, nil
	}

	mask, err := p.computeMask()
	if err != nil {
		return Step{}, err
	}
	if !anyTrue(mask) {
		return Step{}, &VocabularyGap{Context: recentBytes(p.committed)}
	}

	return Step{ForcedBytes: forced, Gen: &GenData{Mask: mask, Temperature: p.currentTemperature()}}, nil
}

func (p *Parser) commitSampled(sampled *Sampled) error {
	tok := p.idx.Tokenizer()
	if sampled.Token == tok.EOS() {
		if !p.IsAccepting() {
			return &GrammarFailure{Offset: len(p.committed), Recent: recentBytes(p.committed), Message: "end-of-sequence token sampled in a non-accepting state"}
		}
		p.done = true
		return nil
	}

	bytes, err := tok.Decode([]int32{sampled.Token})
	if err != nil {
		return fmt.Errorf("parser: decoding sampled token %d: %w", sampled.Token, err)
	}
	return p.commitToken(sampled.Token, bytes, sampled.LogProb)
}

// commitToken advances the frontier by every byte of a sampled token,
// recording its span and folding in whatever captures closed along the
// way, then charges the token against any open TokenLimit/Gen budgets.
func (p *Parser) commitToken(tok int32, data []byte, logProb float64) error {
	start := len(p.committed)
	for _, b := range data {
		if err := p.commitByte(b); err != nil {
			return err
		}
	}
	p.spans = append(p.spans, tokenSpan{start: start, end: len(p.committed), logProb: logProb})
	p.tokens = append(p.tokens, tok)
	p.mergePending()
	p.decrementLimits()
	if len(p.frontier) == 0 {
		return &GrammarFailure{Offset: len(p.committed), Recent: recentBytes(p.committed), Message: "token budget exhausted with no accepting continuation"}
	}
	return nil
}

// commitByte is the single-byte primitive fastForward and commitToken both
// build on: step, append, re-close, fail if nothing survives.
func (p *Parser) commitByte(b byte) error {
	next := p.rawStep(p.frontier, b)
	if len(next) == 0 {
		return &GrammarFailure{Offset: len(p.committed), Recent: recentBytes(p.committed), Byte: b}
	}
	p.committed = append(p.committed, b)
	p.frontier = p.effectClose(next, len(p.committed))
	return nil
}

// fastForward consumes every byte the grammar currently leaves no
// alternative for, without any oracle involvement. Captures that close
// purely on forced bytes (no sampled token involved at all) are merged
// here, since commitToken's merge only runs for sampled-token commits.
func (p *Parser) fastForward() ([]byte, error) {
	var forced []byte
	for {
		b, ok := forcedByteFor(p.prog, p.frontier)
		if !ok {
			break
		}
		if err := p.commitByte(b); err != nil {
			return forced, err
		}
		forced = append(forced, b)
	}
	p.mergePending()
	return forced, nil
}
