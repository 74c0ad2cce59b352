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

// scopeKind tags what kind of annotation frame a scope entry represents.
type scopeKind int

const (
	scopeCapture scopeKind = iota
	scopeLimit
	scopeTemp
	scopeExclude
)

// scope is one frame of a thread's open-annotation stack. Frames are never
// mutated in place once built: a thread forked during epsilon exploration
// shares its parent's frames by pointer, and closing or decrementing a
// frame produces a new frame rather than editing the shared one, so two
// threads that forked below a still-open capture never see each other's
// updates.
type scope struct {
	kind scopeKind
	// scopeCapture
	name       string
	listAppend bool
	// scopeCapture, scopeExclude: byte offset in the committed stream this
	// frame was opened at.
	start int
	// scopeLimit
	remaining int
	// scopeTemp
	temp float64

	parent *scope
}

// pendingCapture is a capture whose close effect has fired along some
// thread's path but not yet been merged into the parser's committed
// capture state. Kept on the thread until the frontier settles after a
// full commit, since a thread that later dies never gets to contribute its
// pending captures.
type pendingCapture struct {
	name       string
	text       []byte
	listAppend bool
	start, end int
}

// exclNode is a closed stop-text exclusion window, recorded by absolute
// byte offset in the committed stream. Unlike scope, these accumulate
// rather than popping, since a later capture close needs to see every
// exclusion window opened since its own start.
type exclNode struct {
	start, end int
	parent     *exclNode
}

// thread is one strand of the frontier: a state in the compiled program
// plus whatever annotation bookkeeping is live along the path that reached
// it. Two threads with equal (state, open, excludes) are indistinguishable
// from here on and collapse during closure.
type thread struct {
	state    int
	open     *scope
	pending  []pendingCapture
	excludes *exclNode
}

type closeKey struct {
	state int
	open  *scope
	excl  *exclNode
}

// effectClose expands threads along epsilon edges, applying annotation
// effects as they're crossed, until every resulting thread sits at a state
// that either consumes a byte or accepts. pos is the absolute offset in
// the committed byte stream that these threads are positioned at, used to
// stamp capture/exclusion window boundaries.
//
// This is the only place effects are ever applied; mask exploration (see
// mask.go) walks bytes against the plain, effect-free automaton, since no
// effect changes which bytes are legal within a single token's worth of
// lookahead.
func (p *Parser) effectClose(threads []thread, pos int) []thread {
	seen := map[closeKey]bool{}
	var out []thread
	stack := append([]thread(nil), threads...)
	for len(stack) > 0 {
		th := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := closeKey{th.state, th.open, th.excludes}
		if seen[key] {
			continue
		}
		seen[key] = true

		if len(p.prog.bytes[th.state]) > 0 || th.state == p.prog.accept {
			out = append(out, th)
		}
		for _, e := range p.prog.epsilon[th.state] {
			nt := p.applyEffect(th, e.fx, pos)
			nt.state = e.to
			stack = append(stack, nt)
		}
	}
	return out
}

func (p *Parser) applyEffect(th thread, fx effect, pos int) thread {
	switch fx.kind {
	case effNone:
		return th

	case effOpenCapture:
		th.open = &scope{kind: scopeCapture, name: fx.name, listAppend: fx.listAppend, start: pos, parent: th.open}

	case effCloseCapture:
		s := th.open
		text := sliceExcluding(p.committed, s.start, pos, th.excludes)
		pc := make([]pendingCapture, len(th.pending), len(th.pending)+1)
		copy(pc, th.pending)
		th.pending = append(pc, pendingCapture{name: s.name, text: text, listAppend: s.listAppend, start: s.start, end: pos})
		th.open = s.parent

	case effBeginExclude:
		th.open = &scope{kind: scopeExclude, start: pos, parent: th.open}

	case effEndExclude:
		s := th.open
		th.excludes = &exclNode{start: s.start, end: pos, parent: th.excludes}
		th.open = s.parent

	case effPushLimit:
		th.open = &scope{kind: scopeLimit, remaining: fx.limit, parent: th.open}

	case effPopLimit:
		th.open = th.open.parent

	case effPushTemp:
		th.open = &scope{kind: scopeTemp, temp: fx.temp, parent: th.open}

	case effPopTemp:
		th.open = th.open.parent
	}
	return th
}

// sliceExcluding returns data[start:end] with any exclusion window in excl
// that falls entirely within [start,end) cut out. Windows outside that
// range belong to some other, unrelated capture and are ignored.
func sliceExcluding(data []byte, start, end int, excl *exclNode) []byte {
	type window struct{ s, e int }
	var windows []window
	for n := excl; n != nil; n = n.parent {
		if n.start >= start && n.end <= end {
			windows = append(windows, window{n.start, n.end})
		}
	}
	for i := 1; i < len(windows); i++ {
		for j := i; j > 0 && windows[j-1].s > windows[j].s; j-- {
			windows[j-1], windows[j] = windows[j], windows[j-1]
		}
	}
	var out []byte
	pos := start
	for _, w := range windows {
		if w.s > pos {
			out = append(out, data[pos:w.s]...)
		}
		if w.e > pos {
			pos = w.e
		}
	}
	if pos < end {
		out = append(out, data[pos:end]...)
	}
	return out
}

// rawStep advances threads by exactly one byte, with no effect closure:
// callers must follow up with effectClose before inspecting the result.
func (p *Parser) rawStep(threads []thread, b byte) []thread {
	var out []thread
	for _, th := range threads {
		for _, e := range p.prog.bytes[th.state] {
			if b >= e.lo && b <= e.hi {
				nt := th
				nt.state = e.to
				out = append(out, nt)
			}
		}
	}
	return out
}

// forcedByteFor reports the single byte every thread in frontier demands
// next, if there is one: every byte edge across every thread must be a
// singleton range and they must all agree on the same value. A frontier
// that's already accepting is never treated as forced, since stopping
// there is always a legal alternative to continuing.
func forcedByteFor(p *program, frontier []thread) (byte, bool) {
	for _, th := range frontier {
		if th.state == p.accept {
			return 0, false
		}
	}
	var b byte
	set := false
	for _, th := range frontier {
		for _, e := range p.bytes[th.state] {
			if e.lo != e.hi {
				return 0, false
			}
			if !set {
				b, set = e.lo, true
			} else if e.lo != b {
				return 0, false
			}
		}
	}
	return b, set
}

// forcedByteForStates is forcedByteFor's plain-state counterpart, used by
// peekForced where there's no real thread/effect state to carry (the bytes
// being explored haven't actually been committed).
func forcedByteForStates(p *program, states []int) (byte, bool) {
	for _, s := range states {
		if s == p.accept {
			return 0, false
		}
	}
	var b byte
	set := false
	for _, s := range states {
		for _, e := range p.bytes[s] {
			if e.lo != e.hi {
				return 0, false
			}
			if !set {
				b, set = e.lo, true
			} else if e.lo != b {
				return 0, false
			}
		}
	}
	return b, set
}

func statesOf(threads []thread) []int {
	seen := map[int]bool{}
	var out []int
	for _, th := range threads {
		if !seen[th.state] {
			seen[th.state] = true
			out = append(out, th.state)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
