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
	"unicode/utf8"

	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/reporter"
)

// maxExpandedRepeat bounds how many times Compile will unroll a bounded
// repetition ({m,n}) into explicit copies of its body. Grammars with
// absurdly large bounds (e.g. {0,1000000}) would otherwise blow up the
// IR graph; anything past this is reported as [UnsupportedFeature]
// instead of silently compiling into a huge grammar.
const maxExpandedRepeat = 4096

// Compile lowers a parsed regex AST into byte grammar IR (spec §4.2):
// literal runs become Joins of Bytes, "." and character classes become
// Selects over Bytes/ByteRanges (expanded through the UTF-8 byte-sequence
// splitter so only well-formed UTF-8 is producible), concatenation and
// alternation map directly to Join/Select, and a bounded repeat unrolls
// into an explicit Join while an open upper bound becomes a self-
// referential Select built via [ir.Context.Recursive].
func Compile(c *ir.Context, ast *AST) (ir.Node, error) {
	return compile(c, ast)
}

// CompilePattern parses and compiles pattern in one step.
func CompilePattern(c *ir.Context, pattern string, handler *reporter.Handler) (ir.Node, error) {
	ast, err := Parse(pattern, handler)
	if err != nil {
		return ir.Node{}, err
	}
	return Compile(c, ast)
}

func compile(c *ir.Context, ast *AST) (ir.Node, error) {
	switch ast.Op {
	case OpLiteral:
		return compileLiteral(c, ast.Runes), nil

	case OpAnyChar:
		return compileClass(c, []RuneRange{{0, utf8.MaxRune}}, false)

	case OpAnyCharNoNL:
		return compileClass(c, []RuneRange{{0, '\n' - 1}, {'\n' + 1, utf8.MaxRune}}, false)

	case OpClass:
		return compileClass(c, ast.Ranges, ast.Negated)

	case OpConcat:
		children := make([]ir.Node, len(ast.Sub))
		for i, sub := range ast.Sub {
			n, err := compile(c, sub)
			if err != nil {
				return ir.Node{}, err
			}
			children[i] = n
		}
		return c.Join(children...), nil

	case OpAlternate:
		children := make([]ir.Node, len(ast.Sub))
		for i, sub := range ast.Sub {
			n, err := compile(c, sub)
			if err != nil {
				return ir.Node{}, err
			}
			children[i] = n
		}
		return c.Select(false, children...), nil

	case OpGroup:
		return compile(c, ast.Sub[0])

	case OpRepeat:
		return compileRepeat(c, ast)

	default:
		return ir.Node{}, &UnsupportedFeature{Feature: ast.Op.String()}
	}
}

func compileLiteral(c *ir.Context, runes []rune) ir.Node {
	var buf [utf8.UTFMax]byte
	nodes := make([]ir.Node, 0, len(runes))
	for _, r := range runes {
		n := utf8.EncodeRune(buf[:], r)
		for _, b := range buf[:n] {
			nodes = append(nodes, c.Byte(b))
		}
	}
	return c.Join(nodes...)
}

// compileClass expands a set of rune ranges (optionally negated against
// the full Unicode scalar value space) into a Select over byte-sequence
// Joins, one per UTF-8-length-homogeneous sub-range the splitter
// produces.
func compileClass(c *ir.Context, ranges []RuneRange, negated bool) (ir.Node, error) {
	effective := ranges
	if negated {
		effective = complementRanges(ranges)
	}

	var alternatives []ir.Node
	for _, rr := range effective {
		if rr.Lo > rr.Hi {
			continue
		}
		for _, seq := range RuneRangesToByteSequences(rr.Lo, rr.Hi) {
			nodes := make([]ir.Node, len(seq))
			for i, br := range seq {
				nodes[i] = c.ByteRange(br.Lo, br.Hi)
			}
			alternatives = append(alternatives, c.Join(nodes...))
		}
	}
	if len(alternatives) == 0 {
		return ir.Node{}, &UnsupportedFeature{Feature: "empty character class"}
	}
	return c.Select(false, alternatives...), nil
}

// complementRanges computes the complement of sorted-or-not ranges
// within [0, utf8.MaxRune]. The result may span the surrogate gap;
// RuneRangesToByteSequences drops those code points, so neither a class
// nor its complement produces them.
func complementRanges(ranges []RuneRange) []RuneRange {
	sorted := append([]RuneRange(nil), ranges...)
	sortRuneRanges(sorted)

	var out []RuneRange
	next := rune(0)
	for _, r := range sorted {
		lo, hi := r.Lo, r.Hi
		if lo > next {
			out = append(out, RuneRange{Lo: next, Hi: lo - 1})
		}
		if hi+1 > next {
			next = hi + 1
		}
	}
	if next <= utf8.MaxRune {
		out = append(out, RuneRange{Lo: next, Hi: utf8.MaxRune})
	}
	return out
}

func sortRuneRanges(ranges []RuneRange) {
	// Insertion sort: character classes are small (a handful of ranges),
	// so the simplicity wins over pulling in sort.Slice for this.
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j-1].Lo > ranges[j].Lo; j-- {
			ranges[j-1], ranges[j] = ranges[j], ranges[j-1]
		}
	}
}

func compileRepeat(c *ir.Context, ast *AST) (ir.Node, error) {
	body := ast.Sub[0]
	if ast.Max != Unbounded {
		if ast.Max-ast.Min > maxExpandedRepeat || ast.Max > maxExpandedRepeat {
			return ir.Node{}, &UnsupportedFeature{Feature: "repeat bound too large to unroll"}
		}
		var required []ir.Node
		for i := 0; i < ast.Min; i++ {
			n, err := compile(c, body)
			if err != nil {
				return ir.Node{}, err
			}
			required = append(required, n)
		}
		optionalCount := ast.Max - ast.Min
		for i := 0; i < optionalCount; i++ {
			n, err := compile(c, body)
			if err != nil {
				return ir.Node{}, err
			}
			required = append(required, c.Select(false, n, c.Null()))
		}
		return c.Join(required...), nil
	}

	// Unbounded: Min required copies, then a self-referential tail for
	// "zero or more more copies", built via Recursive so the graph closes
	// over itself rather than trying to unroll infinitely. The body is
	// compiled once and the resulting node reused on every loop
	// iteration the grammar allows — that reuse, not recompilation, is
	// what makes Select(recurse=true, Join(body, self), Null) a Kleene
	// star.
	bodyNode, err := compile(c, body)
	if err != nil {
		return ir.Node{}, err
	}

	var required []ir.Node
	for i := 0; i < ast.Min; i++ {
		required = append(required, bodyNode)
	}

	tail := c.Recursive(ast, func(self ir.Node) ir.Node {
		return c.Select(true, c.Join(bodyNode, self), c.Null())
	})

	return c.Join(append(required, tail)...), nil
}
