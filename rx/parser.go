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

package rx

import (
	"fmt"
	"strconv"

	"github.com/tokenlattice/constrain/reporter"
)

// Parse parses pattern into an [AST]. Anchors ("^", "$") are accepted and
// silently stripped at the Lexeme boundary already (every regex in this
// system matches the complete span of bytes it's handed), but a redundant
// leading "^" or trailing "$" — the common case of a JSON Schema `pattern`
// written as if for a partial-match engine — is reported through handler
// as a warning rather than an error, per SPEC_FULL's anchor-stripping
// behavior.
func Parse(pattern string, handler *reporter.Handler) (*AST, error) {
	p := &parser{rr: newRuneReader(pattern), pattern: pattern, handler: handler}
	ast, err := p.parseAlternate()
	if err != nil {
		return nil, err
	}
	if !p.rr.eof() {
		return nil, &SyntaxError{Pattern: pattern, Offset: p.rr.offset(), Reason: "unexpected ')'"}
	}
	return ast, nil
}

type parser struct {
	rr      *runeReader
	pattern string
	handler *reporter.Handler
	groups  int
}

func (p *parser) errorf(format string, args ...any) error {
	return &SyntaxError{Pattern: p.pattern, Offset: p.rr.offset(), Reason: fmt.Sprintf(format, args...)}
}

func (p *parser) parseAlternate() (*AST, error) {
	first, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	branches := []*AST{first}
	for p.rr.consume('|') {
		next, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		branches = append(branches, next)
	}
	if len(branches) == 1 {
		return branches[0], nil
	}
	return &AST{Op: OpAlternate, Sub: branches}, nil
}

func (p *parser) parseConcat() (*AST, error) {
	var parts []*AST
	for {
		r, ok := p.rr.peekRune()
		if !ok || r == '|' || r == ')' {
			break
		}
		atom, stripped, err := p.parseAnchoredAtom()
		if err != nil {
			return nil, err
		}
		if stripped {
			continue
		}
		rep, err := p.parseRepeat(atom)
		if err != nil {
			return nil, err
		}
		parts = append(parts, rep)
	}
	switch len(parts) {
	case 0:
		return &AST{Op: OpLiteral}, nil
	case 1:
		return parts[0], nil
	default:
		return &AST{Op: OpConcat, Sub: parts}, nil
	}
}

// parseAnchoredAtom handles "^" and "$" (reported and dropped) before
// falling through to an ordinary atom.
func (p *parser) parseAnchoredAtom() (node *AST, stripped bool, err error) {
	r, _ := p.rr.peekRune()
	if r == '^' || r == '$' {
		p.rr.readRune()
		if p.handler != nil {
			p.handler.HandleWarningf(reporter.AtOffset(p.rr.offset()),
				"redundant anchor %q stripped: every regex here matches the full span it is given", r)
		}
		return nil, true, nil
	}
	node, err = p.parseAtom()
	return node, false, err
}

func (p *parser) parseRepeat(atom *AST) (*AST, error) {
	r, ok := p.rr.peekRune()
	if !ok {
		return atom, nil
	}
	switch r {
	case '*':
		p.rr.readRune()
		return &AST{Op: OpRepeat, Sub: []*AST{atom}, Min: 0, Max: Unbounded}, nil
	case '+':
		p.rr.readRune()
		return &AST{Op: OpRepeat, Sub: []*AST{atom}, Min: 1, Max: Unbounded}, nil
	case '?':
		p.rr.readRune()
		return &AST{Op: OpRepeat, Sub: []*AST{atom}, Min: 0, Max: 1}, nil
	case '{':
		return p.parseBraceRepeat(atom)
	default:
		return atom, nil
	}
}

func (p *parser) parseBraceRepeat(atom *AST) (*AST, error) {
	mark := p.rr.pos
	p.rr.readRune() // consume '{'
	min, minOK := p.parseInt()
	max := min
	hasComma := p.rr.consume(',')
	maxOK := minOK
	if hasComma {
		max, maxOK = p.parseInt()
		if !maxOK {
			max = Unbounded
		}
	}
	if !p.rr.consume('}') || !minOK {
		// Not a valid {m,n}; treat '{' as a literal, per the common regex
		// convention of tolerating stray braces.
		p.rr.pos = mark
		p.rr.readRune()
		return &AST{Op: OpConcat, Sub: []*AST{atom, {Op: OpLiteral, Runes: []rune{'{'}}}}, nil
	}
	if maxOK && max != Unbounded && max < min {
		return nil, p.errorf("invalid repeat range {%d,%d}: max less than min", min, max)
	}
	return &AST{Op: OpRepeat, Sub: []*AST{atom}, Min: min, Max: max}, nil
}

func (p *parser) parseInt() (int, bool) {
	start := p.rr.pos
	for {
		r, sz, err := p.rr.readRune()
		if err != nil || r < '0' || r > '9' {
			if err == nil {
				p.rr.unreadRune(sz)
			}
			break
		}
	}
	if p.rr.pos == start {
		return 0, false
	}
	n, err := strconv.Atoi(string(p.rr.data[start:p.rr.pos]))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *parser) parseAtom() (*AST, error) {
	r, sz, err := p.rr.readRune()
	if err != nil {
		return nil, p.errorf("unexpected end of pattern")
	}
	switch r {
	case '.':
		return &AST{Op: OpAnyCharNoNL}, nil
	case '(':
		return p.parseGroup()
	case '[':
		return p.parseClass()
	case '\\':
		return p.parseEscape()
	case ')', '|':
		p.rr.unreadRune(sz)
		return nil, p.errorf("unexpected %q", r)
	case '*', '+', '?':
		return nil, p.errorf("%q with nothing to repeat", r)
	default:
		return &AST{Op: OpLiteral, Runes: []rune{r}}, nil
	}
}

func (p *parser) parseGroup() (*AST, error) {
	capture := true
	var name string
	if p.rr.consume('?') {
		switch {
		case p.rr.consume(':'):
			capture = false
		case p.rr.consume('P'):
			if !p.rr.consume('<') {
				return nil, p.errorf("expected '<' after '(?P'")
			}
			var nameRunes []rune
			for {
				r, _, err := p.rr.readRune()
				if err != nil {
					return nil, p.errorf("unterminated group name")
				}
				if r == '>' {
					break
				}
				nameRunes = append(nameRunes, r)
			}
			name = string(nameRunes)
		default:
			return nil, &UnsupportedFeature{Pattern: p.pattern, Feature: "lookaround/inline-flags group"}
		}
	}
	p.groups++
	inner, err := p.parseAlternate()
	if err != nil {
		return nil, err
	}
	if !p.rr.consume(')') {
		return nil, p.errorf("unterminated group")
	}
	return &AST{Op: OpGroup, Sub: []*AST{inner}, Capture: capture, Name: name}, nil
}

func (p *parser) parseEscape() (*AST, error) {
	r, _, err := p.rr.readRune()
	if err != nil {
		return nil, p.errorf("dangling '\\' at end of pattern")
	}
	if ranges, ok := namedClasses[lower(r)]; ok {
		return &AST{Op: OpClass, Ranges: ranges, Negated: isUpper(r)}, nil
	}
	switch r {
	case 'n':
		return &AST{Op: OpLiteral, Runes: []rune{'\n'}}, nil
	case 't':
		return &AST{Op: OpLiteral, Runes: []rune{'\t'}}, nil
	case 'r':
		return &AST{Op: OpLiteral, Runes: []rune{'\r'}}, nil
	case 'f':
		return &AST{Op: OpLiteral, Runes: []rune{'\f'}}, nil
	case 'v':
		return &AST{Op: OpLiteral, Runes: []rune{'\v'}}, nil
	case '0':
		return &AST{Op: OpLiteral, Runes: []rune{0}}, nil
	default:
		// Any other escaped rune (including regex metacharacters) stands
		// for itself literally.
		return &AST{Op: OpLiteral, Runes: []rune{r}}, nil
	}
}

// parseClass parses a bracket expression "[...]" after the opening '['
// has already been consumed. Supports an optional leading '^' negation,
// literal members, "a-z" ranges, and the positive named classes \d \w \s
// (their negated forms \D \W \S are not supported inside a class, since
// "everything except a digit" does not compose with surrounding set
// members the way "everything except a digit" does standalone).
func (p *parser) parseClass() (*AST, error) {
	negated := p.rr.consume('^')
	var ranges []RuneRange
	first := true
	for {
		r, _, err := p.rr.readRune()
		if err != nil {
			return nil, p.errorf("unterminated character class")
		}
		if r == ']' && !first {
			break
		}
		first = false

		if r == '\\' {
			er, _, err := p.rr.readRune()
			if err != nil {
				return nil, p.errorf("dangling '\\' in character class")
			}
			if named, ok := namedClasses[lower(er)]; ok {
				if isUpper(er) {
					return nil, &UnsupportedFeature{Pattern: p.pattern, Feature: `negated \D/\W/\S inside a character class`}
				}
				ranges = append(ranges, named...)
				continue
			}
			r = escapedLiteral(er)
		}

		lo := r
		if nr, ok := p.rr.peekRune(); ok && nr == '-' {
			p.rr.readRune()
			if hr, hsz, herr := p.rr.readRune(); herr == nil && hr != ']' {
				ranges = append(ranges, RuneRange{Lo: lo, Hi: hr})
				continue
			} else if herr == nil {
				p.rr.unreadRune(hsz)
			}
			// Trailing '-' before ']', or before EOF: treat as a literal.
			ranges = append(ranges, RuneRange{Lo: lo, Hi: lo}, RuneRange{Lo: '-', Hi: '-'})
			continue
		}
		ranges = append(ranges, RuneRange{Lo: lo, Hi: lo})
	}
	if len(ranges) == 0 {
		return nil, p.errorf("empty character class")
	}
	return &AST{Op: OpClass, Ranges: ranges, Negated: negated}, nil
}

// escapedLiteral maps a single-letter escape inside a character class to
// the literal rune it stands for (e.g. "\]" inside "[...]").
func escapedLiteral(r rune) rune {
	switch r {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case 'f':
		return '\f'
	case 'v':
		return '\v'
	default:
		return r
	}
}

func lower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
