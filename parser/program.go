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

// Package parser implements the frontier engine that drives constrained
// decoding against a compiled grammar: byte-level epsilon/byte automaton
// simulation generalized from lexeme's pure byte automata to the full IR
// node set (Capture, WithTemperature, TokenLimit, Gen), vocabulary-trie
// mask computation, and single-token backtrack healing.
package parser

import (
	"fmt"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/lexeme"
)

// effectKind tags the side effect an epsilon edge carries, for the
// annotation nodes (Capture, WithTemperature, TokenLimit, Gen's own
// maxTokens and stop-text exclusion) that have no equivalent in a pure
// byte automaton.
type effectKind int

const (
	effNone effectKind = iota
	effOpenCapture
	effCloseCapture
	effPushLimit
	effPopLimit
	effPushTemp
	effPopTemp
	effBeginExclude
	effEndExclude
)

type effect struct {
	kind       effectKind
	name       string
	listAppend bool
	limit      int
	temp       float64
}

// epsEdge is a zero-byte transition, optionally carrying an annotation
// effect applied when the edge is traversed.
type epsEdge struct {
	to int
	fx effect
}

// byteEdge is a deterministic-enough (possibly overlapping, since this is
// an NFA, not a DFA) transition on an inclusive byte range.
type byteEdge struct {
	lo, hi byte
	to     int
}

// program is the compiled form of a grammar's IR graph: a Thompson-style
// NFA like lexeme/nfa.go's, generalized from pure byte matching to also
// carry capture/temperature/limit effects on its epsilon edges and a
// dedicated construction for Gen's bounded free-generation loop.
type program struct {
	epsilon [][]epsEdge
	bytes   [][]byteEdge
	start   int
	accept  int
}

func (p *program) newState() int {
	p.epsilon = append(p.epsilon, nil)
	p.bytes = append(p.bytes, nil)
	return len(p.epsilon) - 1
}

func (p *program) addEps(from, to int, fx effect) {
	p.epsilon[from] = append(p.epsilon[from], epsEdge{to: to, fx: fx})
}

func (p *program) addByte(from int, lo, hi byte, to int) {
	p.bytes[from] = append(p.bytes[from], byteEdge{lo, hi, to})
}

type fragment struct {
	entry, exit int
}

// compile lowers root (the full grammar graph, not just a lexeme body) into
// a program. As in buildNFA, only Join and Select register a memo entry,
// and only while their children are built, so a DeferredReference cycle
// resolves to the container's entry/exit pair instead of recursing
// forever. Every other occurrence of a node, including one ir.Context
// hash-consed into a single shared Byte, Join or Select, gets a fragment
// of its own, so no exit state carries the continuation of another
// occurrence.
func compile(ctx *ir.Context, root ir.Node) (*program, error) {
	p := &program{}
	memo := map[ir.Node]fragment{}

	lexemeBytes := func(lx ir.Node) (ir.Node, error) {
		body := lx.Child()
		if lx.JSONString() {
			var err error
			body, err = lexeme.EscapeJSONString(ctx, body)
			if err != nil {
				return ir.Node{}, err
			}
		}
		return body, nil
	}

	var build func(ir.Node) (fragment, error)
	build = func(node ir.Node) (fragment, error) {
		if f, ok := memo[node]; ok {
			return f, nil
		}
		switch node.Kind() {
		case ir.KindNull:
			s := p.newState()
			return fragment{s, s}, nil

		case ir.KindByte:
			entry, exit := p.newState(), p.newState()
			b := node.AsByte()
			p.addByte(entry, b, b, exit)
			return fragment{entry, exit}, nil

		case ir.KindByteRange:
			entry, exit := p.newState(), p.newState()
			lo, hi := node.AsByteRange()
			p.addByte(entry, lo, hi, exit)
			return fragment{entry, exit}, nil

		case ir.KindJoin:
			entry, exit := p.newState(), p.newState()
			memo[node] = fragment{entry, exit}
			defer delete(memo, node)
			prev := entry
			for _, child := range node.Children() {
				cf, err := build(child)
				if err != nil {
					return fragment{}, err
				}
				p.addEps(prev, cf.entry, effect{})
				prev = cf.exit
			}
			p.addEps(prev, exit, effect{})
			return fragment{entry, exit}, nil

		case ir.KindSelect:
			entry, exit := p.newState(), p.newState()
			memo[node] = fragment{entry, exit}
			defer delete(memo, node)
			for _, child := range node.Children() {
				cf, err := build(child)
				if err != nil {
					return fragment{}, err
				}
				p.addEps(entry, cf.entry, effect{})
				p.addEps(cf.exit, exit, effect{})
			}
			return fragment{entry, exit}, nil

		case ir.KindLexeme:
			body, err := lexemeBytes(node)
			if err != nil {
				return fragment{}, err
			}
			cf, err := build(body)
			if err != nil {
				return fragment{}, err
			}
			return cf, nil

		case ir.KindCapture:
			inner, err := build(node.Child())
			if err != nil {
				return fragment{}, err
			}
			entry, exit := p.newState(), p.newState()
			p.addEps(entry, inner.entry, effect{kind: effOpenCapture, name: node.CaptureName(), listAppend: node.ListAppend()})
			p.addEps(inner.exit, exit, effect{kind: effCloseCapture})
			return fragment{entry, exit}, nil

		case ir.KindWithTemperature:
			inner, err := build(node.Child())
			if err != nil {
				return fragment{}, err
			}
			entry, exit := p.newState(), p.newState()
			p.addEps(entry, inner.entry, effect{kind: effPushTemp, temp: node.Temperature()})
			p.addEps(inner.exit, exit, effect{kind: effPopTemp})
			return fragment{entry, exit}, nil

		case ir.KindTokenLimit:
			inner, err := build(node.Child())
			if err != nil {
				return fragment{}, err
			}
			entry, exit := p.newState(), p.newState()
			p.addEps(entry, inner.entry, effect{kind: effPushLimit, limit: node.TokenLimit()})
			p.addEps(inner.exit, exit, effect{kind: effPopLimit})
			return fragment{entry, exit}, nil

		case ir.KindGen:
			bodyBytes, err := lexemeBytes(node.GenBody())
			if err != nil {
				return fragment{}, err
			}
			bodyFrag, err := build(bodyBytes)
			if err != nil {
				return fragment{}, err
			}

			entry, loop, preExit := p.newState(), p.newState(), p.newState()

			p.addEps(entry, loop, effect{})
			p.addEps(loop, bodyFrag.entry, effect{})
			p.addEps(bodyFrag.exit, loop, effect{})

			if stopLexeme, ok := node.GenStop(); ok {
				stopBytes, err := lexemeBytes(stopLexeme)
				if err != nil {
					return fragment{}, err
				}
				stopFrag, err := build(stopBytes)
				if err != nil {
					return fragment{}, err
				}
				if node.SaveStopText() {
					p.addEps(loop, stopFrag.entry, effect{})
					p.addEps(stopFrag.exit, preExit, effect{})
				} else {
					excludeEntry, excludeExit := p.newState(), p.newState()
					p.addEps(loop, excludeEntry, effect{})
					p.addEps(excludeEntry, stopFrag.entry, effect{kind: effBeginExclude})
					p.addEps(stopFrag.exit, excludeExit, effect{kind: effEndExclude})
					p.addEps(excludeExit, preExit, effect{})
				}
			}
			p.addEps(loop, preExit, effect{})

			// A nonzero MaxTokens wraps the whole loop in a push/pop-limit
			// pair, exactly like a TokenLimit annotation, on dedicated
			// entry/exit states so Gen's own cap composes with an outer
			// TokenLimit the same way two nested TokenLimits would.
			exit := preExit
			if max := node.MaxTokens(); max > 0 {
				realEntry, realExit := p.newState(), p.newState()
				p.addEps(realEntry, entry, effect{kind: effPushLimit, limit: max})
				p.addEps(preExit, realExit, effect{kind: effPopLimit})
				entry, exit = realEntry, realExit
			}

			return fragment{entry, exit}, nil

		case ir.KindDeferredReference:
			target, ok := node.Resolved()
			if !ok {
				return fragment{}, &ir.ErrUnresolvedReference{}
			}
			return build(target)

		default:
			return fragment{}, fmt.Errorf("parser: node kind %s is not valid in a compiled grammar", node.Kind())
		}
	}

	f, err := build(root)
	if err != nil {
		return nil, err
	}
	p.start, p.accept = f.entry, f.exit
	return p, nil
}
