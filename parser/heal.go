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

// maxHealLookahead bounds how many forced bytes healBacktrack will peek
// past a just-committed token before giving up on finding a longer merge.
// A grammar that forces an unbounded run here would make healing pointless
// anyway (the oracle couldn't have tokenized that far ahead either).
const maxHealLookahead = 64

// parserState is a deep-enough snapshot of everything Advance mutates, so
// a detected healing opportunity can roll back a token commit as if it
// never happened.
type parserState struct {
	committed       []byte
	frontier        []thread
	tokens          []int32
	spans           []tokenSpan
	captures        map[string][]byte
	captureLists    map[string][][]byte
	captureLog      map[string]float64
	captureLogLists map[string][]float64
}

func (p *Parser) snapshot() parserState {
	return parserState{
		committed:       append([]byte(nil), p.committed...),
		frontier:        append([]thread(nil), p.frontier...),
		tokens:          append([]int32(nil), p.tokens...),
		spans:           append([]tokenSpan(nil), p.spans...),
		captures:        copyBytesMap(p.captures),
		captureLists:    copyListMap(p.captureLists),
		captureLog:      copyFloatMap(p.captureLog),
		captureLogLists: copyFloatListMap(p.captureLogLists),
	}
}

func (p *Parser) restore(s parserState) {
	p.committed = s.committed
	p.frontier = s.frontier
	p.tokens = s.tokens
	p.spans = s.spans
	p.captures = s.captures
	p.captureLists = s.captureLists
	p.captureLog = s.captureLog
	p.captureLogLists = s.captureLogLists
}

// healBacktrack implements the single-token lookback case from spec §8: a
// token was just sampled and committed, and the grammar's forced
// continuation from there, appended to that token's own bytes, happens to
// spell a single longer vocabulary token. The tokenizer would never have
// produced the shorter token had it seen the forced continuation coming,
// so the commit is undone and the caller is asked to sample again with a
// mask that favors the merge. Multi-token healing (discovering the merge
// only after several more tokens) isn't attempted.
func (p *Parser) healBacktrack(before parserState) (bool, Step, error) {
	if len(p.tokens) == 0 {
		return false, Step{}, nil
	}
	lastSpan := p.spans[len(p.spans)-1]
	lastToken := p.tokens[len(p.tokens)-1]
	lastBytes := append([]byte(nil), p.committed[lastSpan.start:lastSpan.end]...)

	peek, err := p.peekForced()
	if err != nil || len(peek) == 0 {
		return false, Step{}, nil
	}

	merged, ok := p.idx.Lookup(append(append([]byte(nil), lastBytes...), peek...))
	if !ok || merged == lastToken {
		return false, Step{}, nil
	}

	// before is a snapshot taken immediately prior to committing the token
	// that triggered this check, so restoring it undoes that commit
	// entirely: committed bytes, frontier, spans, tokens, and captures all
	// go back to exactly where they were beforehand.
	p.restore(before)

	mask, err := p.computeMask()
	if err != nil {
		return false, Step{}, err
	}
	if !anyTrue(mask) {
		return false, Step{}, &VocabularyGap{Context: recentBytes(p.committed)}
	}
	return true, Step{Gen: &GenData{Mask: mask, Temperature: p.currentTemperature(), Backtrack: 1}}, nil
}

// peekForced simulates fastForward read-only, over plain automaton states
// rather than real threads: the bytes it explores are never actually
// committed, so there's no real byte buffer to stamp capture/exclusion
// boundaries against, and none is needed since forced-byte legality never
// depends on annotation effects.
func (p *Parser) peekForced() ([]byte, error) {
	states := statesOf(p.frontier)
	var out []byte
	for len(out) < maxHealLookahead {
		b, ok := forcedByteForStates(p.prog, states)
		if !ok {
			break
		}
		next := stepStates(p.prog, states, b)
		if len(next) == 0 {
			break
		}
		states = p.prog.plainClosure(next)
		out = append(out, b)
	}
	return out, nil
}

func copyBytesMap(m map[string][]byte) map[string][]byte {
	out := make(map[string][]byte, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyListMap(m map[string][][]byte) map[string][][]byte {
	out := make(map[string][][]byte, len(m))
	for k, v := range m {
		out[k] = append([][]byte(nil), v...)
	}
	return out
}

func copyFloatListMap(m map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(m))
	for k, v := range m {
		out[k] = append([]float64(nil), v...)
	}
	return out
}
