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

package jsonschema

import (
	"fmt"
	"strings"
)

// unconstrainedInteger is the regex for any decimal integer with no
// leading zeros (spec §4.3.3), used when a schema has no bound keywords.
const unconstrainedInteger = `-?(0|[1-9][0-9]*)`

// decimalRangeRegex builds a regex matching exactly the base-10 string
// representations of the integers in [lo, hi] (inclusive, lo <= hi),
// including the leading "-" for negative values. This is the decimal
// counterpart of rx/utf8range.go's splitDigits: the same recursive
// head/middle-span/tail decomposition, generalized from 6-bit UTF-8
// continuation digits to base-10 digits.
func decimalRangeRegex(lo, hi int64) (string, error) {
	if lo > hi {
		return "", fmt.Errorf("jsonschema: empty integer range [%d,%d]", lo, hi)
	}
	switch {
	case hi < 0:
		return "-" + nonnegRangeRegex(uint64(-hi), uint64(-lo)), nil
	case lo >= 0:
		return nonnegRangeRegex(uint64(lo), uint64(hi)), nil
	default:
		neg := "-" + nonnegRangeRegex(1, uint64(-lo))
		nonneg := nonnegRangeRegex(0, uint64(hi))
		return "(" + neg + "|" + nonneg + ")", nil
	}
}

// nonnegRangeRegex builds a regex matching the decimal representations
// (no leading zeros, except "0" itself) of the non-negative integers in
// [lo, hi].
func nonnegRangeRegex(lo, hi uint64) string {
	var alts []string
	for _, lb := range digitLengthBoundaries(lo, hi) {
		alts = append(alts, splitDecimal(lb.lo, lb.hi, lb.length)...)
	}
	if len(alts) == 1 {
		return alts[0]
	}
	return "(" + strings.Join(alts, "|") + ")"
}

type lenBound struct {
	length int
	lo, hi uint64
}

// digitLengthBoundaries splits [lo, hi] into the digit-length-homogeneous
// sub-ranges it spans (1-digit numbers, then 2-digit, ...), mirroring
// rx/utf8range.go's RuneRangesToByteSequences splitting a rune range at
// UTF-8-length boundaries before recursing digit-by-digit.
func digitLengthBoundaries(lo, hi uint64) []lenBound {
	var out []lenBound
	length := digitLen(lo)
	for {
		upper := pow10(length) - 1
		if upper > hi {
			upper = hi
		}
		lower := lo
		if length > 1 {
			if floor := pow10(length - 1); lower < floor {
				lower = floor
			}
		}
		out = append(out, lenBound{length, lower, upper})
		if upper >= hi {
			break
		}
		lo = upper + 1
		length++
	}
	return out
}

// splitDecimal splits the digits-wide range [lo, hi] (both exactly
// `digits` decimal digits long, no leading-zero concerns since the caller
// already clamped to a length-homogeneous window) into regex alternatives,
// one per same-leading-digit(s) group.
func splitDecimal(lo, hi uint64, digits int) []string {
	if digits == 1 {
		if lo == hi {
			return []string{string(rune('0' + lo))}
		}
		return []string{fmt.Sprintf("[%d-%d]", lo, hi)}
	}

	pow := pow10(digits - 1)
	loHead, loRest := lo/pow, lo%pow
	hiHead, hiRest := hi/pow, hi%pow

	if loHead == hiHead {
		head := string(rune('0' + loHead))
		out := make([]string, 0)
		for _, r := range splitDecimal(loRest, hiRest, digits-1) {
			out = append(out, head+r)
		}
		return out
	}

	var out []string
	headLo := string(rune('0' + loHead))
	for _, r := range splitDecimal(loRest, pow-1, digits-1) {
		out = append(out, headLo+r)
	}
	if hiHead-loHead > 1 {
		out = append(out, fmt.Sprintf("[%d-%d]%s", loHead+1, hiHead-1, fullDigits(digits-1)))
	}
	headHi := string(rune('0' + hiHead))
	for _, r := range splitDecimal(0, hiRest, digits-1) {
		out = append(out, headHi+r)
	}
	return out
}

func fullDigits(n int) string {
	return strings.Repeat("[0-9]", n)
}

func digitLen(n uint64) int {
	if n == 0 {
		return 1
	}
	l := 0
	for n > 0 {
		l++
		n /= 10
	}
	return l
}

func pow10(n int) uint64 {
	p := uint64(1)
	for i := 0; i < n; i++ {
		p *= 10
	}
	return p
}

// numberBounds holds the resolved, exclusivity-coerced half-open-to-closed
// integer bounds for a `minimum`/`maximum`/`exclusiveMinimum`/
// `exclusiveMaximum` keyword set (§4.3.3: "Exclusivity is resolved by
// coercion to half-open integer intervals").
type numberBounds struct {
	hasMin, hasMax bool
	min, max       int64
}

func resolveIntegerBounds(schema *Value) numberBounds {
	var b numberBounds
	if v, ok := schema.Get("minimum"); ok {
		n, _ := v.AsInt()
		b.min, b.hasMin = int64(n), true
	}
	if v, ok := schema.Get("exclusiveMinimum"); ok {
		n, _ := v.AsInt()
		b.min, b.hasMin = int64(n)+1, true
	}
	if v, ok := schema.Get("maximum"); ok {
		n, _ := v.AsInt()
		b.max, b.hasMax = int64(n), true
	}
	if v, ok := schema.Get("exclusiveMaximum"); ok {
		n, _ := v.AsInt()
		b.max, b.hasMax = int64(n)-1, true
	}
	return b
}

// integerRegex returns the regex for an `integer`-typed schema, narrowed
// to bounds if minimum/maximum/exclusiveMinimum/exclusiveMaximum are
// present.
func integerRegex(schema *Value) (string, error) {
	b := resolveIntegerBounds(schema)
	switch {
	case b.hasMin && b.hasMax:
		return decimalRangeRegex(b.min, b.max)
	case b.hasMin && b.min < 0:
		return belowZeroAndAboveRegex(b.min), nil
	case b.hasMin:
		return nonnegOrAboveRegex(b.min), nil
	case b.hasMax:
		return boundedAboveRegex(b.max), nil
	default:
		return unconstrainedInteger, nil
	}
}

// nonnegOrAboveRegex handles an open-ended lower bound min >= 0: every
// integer whose value is >= min. No negative sign is ever emitted, since a
// non-negative lower bound excludes every negative integer exactly.
// Numbers with as many digits as min are narrowed exactly to
// [min, 10^d - 1], and every number with more digits is accepted
// unconstrained, since each of those is already above min; the result is
// exact.
func nonnegOrAboveRegex(min int64) string {
	if min <= 0 {
		return unconstrainedInteger[2:] // drop the leading "-?": no sign for a non-negative bound
	}
	return fmt.Sprintf("(%s|[1-9][0-9]{%d,})", nonnegRangeRegex(uint64(min), pow10(digitLen(uint64(min)))-1), digitLen(uint64(min)))
}

// belowZeroAndAboveRegex handles an open-ended lower bound min < 0: the
// negative integers are bounded exactly to [min, -1] (magnitude 1..-min),
// while zero and every positive integer are always >= a negative min and
// so are emitted unconstrained.
func belowZeroAndAboveRegex(min int64) string {
	neg := "-" + nonnegRangeRegex(1, uint64(-min))
	nonneg := unconstrainedInteger[2:] // "(0|[1-9][0-9]*)", no sign
	return "(" + neg + "|" + nonneg + ")"
}

// boundedAboveRegex handles an open-ended upper bound (no minimum): every
// integer <= max, including all negative integers.
func boundedAboveRegex(max int64) string {
	if max < 0 {
		return "-" + nonnegOrAboveRegex(-max)
	}
	return fmt.Sprintf(`(-[1-9][0-9]*|-?0|%s)`, nonnegRangeRegex(1, uint64(max)))
}

// numberRegex returns the regex for a `number`-typed schema: an integer,
// fractional, or exponential literal, narrowed to the integer part of any
// bounds present. Narrowing a fractional/exponential regex exactly to an
// arbitrary real-valued range is out of scope (spec §1 non-goals: bounds
// "whose cardinality exceeds what can be expressed as a bounded regex");
// this narrows the integer-part digits the same way integerRegex does and
// leaves the fractional/exponential suffix unconstrained, which is sound
// (every narrowed string is still a valid `number` literal) but not tight
// at the boundary values themselves.
func numberRegex(schema *Value) (string, error) {
	intPart, err := integerRegex(schema)
	if err != nil {
		return "", err
	}
	return intPart + `(\.[0-9]+)?([eE][+-]?[0-9]+)?`, nil
}
