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

// Package rx implements the regex AST and compiler (spec §4.2): parsing a
// textual regex into an AST, then lowering that AST to byte-level grammar
// IR ([github.com/tokenlattice/constrain/ir]) so that regexes can be used
// as [ir.Lexeme] bodies, Gen stop patterns, and JSON Schema string/format
// constraints.
//
// The supported subset is literal runs, ".", character classes
// (with negation and the named ASCII categories \d \D \w \W \s \S),
// concatenation, alternation, repetition (including an open upper
// bound), non-capturing and capturing groups, and "^"/"$" anchors
// (accepted but stripped with a warning, since every regex here matches
// the entirety of the bytes it is given — see [Parse]).
package rx

// RuneRange is an inclusive range of Unicode code points, as used inside
// a character class.
type RuneRange struct {
	Lo, Hi rune
}

// Op discriminates an AST node's shape, mirroring the tagged-union style
// of the standard library's own regexp/syntax.Regexp (Op-plus-fields)
// rather than an interface-per-case hierarchy.
type Op uint8

const (
	OpInvalid Op = iota
	// OpLiteral matches exactly the code points in Runes, in sequence.
	OpLiteral
	// OpAnyChar matches any single well-formed code point.
	OpAnyChar
	// OpAnyCharNoNL matches any single well-formed code point except '\n'.
	OpAnyCharNoNL
	// OpClass matches a single code point against Ranges (or their
	// complement, if Negated).
	OpClass
	// OpConcat matches Sub in sequence.
	OpConcat
	// OpAlternate matches any one of Sub.
	OpAlternate
	// OpRepeat matches Sub[0] between Min and Max times; Max == -1 means
	// unbounded.
	OpRepeat
	// OpGroup matches Sub[0]; if Capture, the matched text is significant
	// to the caller (the regex compiler does not itself emit an
	// [ir.Capture] for this — captures in this system are grammar-level,
	// per spec §3 — but the surface layer may want group boundaries for
	// diagnostics, so they are preserved in the AST).
	OpGroup
)

func (op Op) String() string {
	switch op {
	case OpLiteral:
		return "Literal"
	case OpAnyChar:
		return "AnyChar"
	case OpAnyCharNoNL:
		return "AnyCharNoNL"
	case OpClass:
		return "Class"
	case OpConcat:
		return "Concat"
	case OpAlternate:
		return "Alternate"
	case OpRepeat:
		return "Repeat"
	case OpGroup:
		return "Group"
	default:
		return "Invalid"
	}
}

// AST is a parsed regex syntax tree node.
type AST struct {
	Op Op

	// OpLiteral
	Runes []rune

	// OpClass
	Ranges  []RuneRange
	Negated bool

	// OpConcat, OpAlternate: ordered children.
	// OpRepeat, OpGroup: Sub[0] is the single child.
	Sub []*AST

	// OpRepeat
	Min, Max int // Max == -1 means unbounded.

	// OpGroup
	Capture bool
	Name    string // empty for an unnamed capturing group.
}

// Unbounded is the sentinel value of [AST.Max] meaning "no upper bound".
const Unbounded = -1

// namedClasses are the byte-level expansions of \d \D \w \W \s \S,
// matching the usual ASCII-only regex convention (spec §4.2 lists exactly
// these six).
var namedClasses = map[rune][]RuneRange{
	'd': {{'0', '9'}},
	's': {{' ', ' '}, {'\t', '\t'}, {'\n', '\n'}, {'\r', '\r'}, {'\f', '\f'}, {'\v', '\v'}},
	'w': {{'0', '9'}, {'a', 'z'}, {'A', 'Z'}, {'_', '_'}},
}
