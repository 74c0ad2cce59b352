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

// tokenSpan records the byte range and sampled log-probability of one
// committed token, so a capture's accumulated log-probability can be
// recovered after the fact from whichever tokens overlap it. Fast-forwarded
// (grammar-forced) bytes never get a span: they weren't sampled, so they
// carry no probability to attribute.
type tokenSpan struct {
	start, end int
	logProb    float64
}

// Captures is the result of a completed or in-progress parse: the named
// values a grammar's Capture nodes recorded, plus the per-capture
// log-probability (the sum of the log-probabilities of every sampled token
// that started inside the capture's span) spec §4.6 asks the engine to
// report alongside each value.
type Captures struct {
	Values       map[string][]byte
	Lists        map[string][][]byte
	LogProbs     map[string]float64
	ListLogProbs map[string][]float64
}

// Captures returns the capture state committed so far. Safe to call at any
// point during decoding, not just once Done reports true.
func (p *Parser) Captures() Captures {
	return Captures{
		Values:       p.captures,
		Lists:        p.captureLists,
		LogProbs:     p.captureLog,
		ListLogProbs: p.captureLogLists,
	}
}

// mergePending folds every surviving thread's pending captures into the
// parser's committed capture state, then clears it so the same close isn't
// merged twice. When two surviving threads disagree about a non-list
// capture's value (a genuinely ambiguous grammar), the frontier's
// iteration order decides: later threads overwrite earlier ones. This
// mirrors no particular semantic preference, it's simply a deterministic
// tiebreak for a case well-formed grammars in this system shouldn't
// produce.
func (p *Parser) mergePending() {
	for i := range p.frontier {
		th := &p.frontier[i]
		for _, pc := range th.pending {
			lp := p.sumLogProb(pc.start, pc.end)
			if pc.listAppend {
				p.captureLists[pc.name] = append(p.captureLists[pc.name], pc.text)
				p.captureLogLists[pc.name] = append(p.captureLogLists[pc.name], lp)
			} else {
				p.captures[pc.name] = pc.text
				p.captureLog[pc.name] = lp
			}
		}
		th.pending = nil
	}
}

func (p *Parser) sumLogProb(start, end int) float64 {
	var sum float64
	for _, s := range p.spans {
		if s.start >= start && s.start < end {
			sum += s.logProb
		}
	}
	return sum
}

// decrementLimits charges one token against every TokenLimit/Gen-MaxTokens
// scope currently open on each frontier thread, dropping threads whose
// budget is exhausted. Scope frames are shared by pointer across threads
// that haven't diverged since the frame opened, so a frame is rebuilt
// rather than mutated: mutating it in place would charge the same token
// more than once to threads that happen to still share that frame.
func (p *Parser) decrementLimits() {
	var kept []thread
	for _, th := range p.frontier {
		newOpen, dead := rebuildDecremented(th.open)
		if dead {
			continue
		}
		th.open = newOpen
		kept = append(kept, th)
	}
	p.frontier = kept
}

func rebuildDecremented(s *scope) (*scope, bool) {
	if s == nil {
		return nil, false
	}
	parent, deadParent := rebuildDecremented(s.parent)
	if deadParent {
		return nil, true
	}
	ns := *s
	ns.parent = parent
	if ns.kind == scopeLimit {
		ns.remaining--
		if ns.remaining < 0 {
			return nil, true
		}
	}
	return &ns, false
}

// currentTemperature returns the temperature of the innermost
// WithTemperature scope open on any surviving thread, or 1.0 (the neutral
// default) if none is open anywhere in the frontier.
func (p *Parser) currentTemperature() float64 {
	for _, th := range p.frontier {
		for s := th.open; s != nil; s = s.parent {
			if s.kind == scopeTemp {
				return s.temp
			}
		}
	}
	return 1.0
}
