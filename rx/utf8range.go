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

// ByteRange is an inclusive range of byte values, one position of a
// multi-byte UTF-8 encoding sequence.
type ByteRange struct {
	Lo, Hi byte
}

// digitSpec describes one positional "digit" of a UTF-8 encoding: how
// many bits of the code point it carries, and the fixed high bits (mask)
// OR'd on top of those bits to form the actual byte value. A 1-byte
// (ASCII) encoding has a single digit with mask 0 and 7 bits; an n-byte
// encoding's leading digit narrows as n grows (UTF-8 spends more of the
// leading byte on the length prefix), and every continuation digit is a
// 6-bit digit with mask 0x80.
type digitSpec struct {
	bits int
	mask byte
}

var byteLengthSpecs = [4][]digitSpec{
	{{bits: 7, mask: 0x00}},
	{{bits: 5, mask: 0xC0}, {bits: 6, mask: 0x80}},
	{{bits: 4, mask: 0xE0}, {bits: 6, mask: 0x80}, {bits: 6, mask: 0x80}},
	{{bits: 3, mask: 0xF0}, {bits: 6, mask: 0x80}, {bits: 6, mask: 0x80}, {bits: 6, mask: 0x80}},
}

// maxRuneForLength is the largest code point encodable in n UTF-8 bytes.
var maxRuneForLength = [4]rune{0x7F, 0x7FF, 0xFFFF, 0x10FFFF}

// RuneRangesToByteSequences decomposes the inclusive code point range
// [lo, hi] into a set of fixed-length byte-range sequences whose
// concatenation, read as "byte 0 must be in range R0, byte 1 in range R1,
// ...", matches exactly the UTF-8 encodings of the code points in
// [lo, hi] — no more, no fewer. This is the standard UTF-8 range-splitting
// algorithm (as used by RE2 and the Rust regex crate's utf8-ranges):
// split at the four byte-length boundaries, then within each
// same-length sub-range, recursively split on each encoding "digit" as a
// positional numeral (the leading byte's payload bits, then each 6-bit
// continuation byte).
//
// Surrogate code points (U+D800-U+DFFF) are excluded: a range that spans
// any of them is split around the gap, so no sequence encodes a surrogate.
func RuneRangesToByteSequences(lo, hi rune) [][]ByteRange {
	if lo > hi {
		return nil
	}
	if lo <= 0xDFFF && hi >= 0xD800 {
		out := RuneRangesToByteSequences(lo, 0xD7FF)
		return append(out, RuneRangesToByteSequences(0xE000, hi)...)
	}
	var out [][]ByteRange
	min := rune(0)
	for n, max := range maxRuneForLength {
		if hi < min {
			break
		}
		if lo <= max {
			l, h := lo, hi
			if l < min {
				l = min
			}
			if h > max {
				h = max
			}
			if l <= h {
				out = append(out, splitDigits(uint32(l), uint32(h), byteLengthSpecs[n])...)
			}
		}
		min = max + 1
	}
	return out
}

// splitDigits splits the numeric range [lo, hi] into byte-range sequences
// according to the positional digit widths/masks in specs, most
// significant digit first.
func splitDigits(lo, hi uint32, specs []digitSpec) [][]ByteRange {
	if len(specs) == 1 {
		spec := specs[0]
		return [][]ByteRange{{{Lo: spec.mask | byte(lo), Hi: spec.mask | byte(hi)}}}
	}

	head := specs[0]
	rest := specs[1:]
	restBits := 0
	for _, s := range rest {
		restBits += s.bits
	}

	loHead, loRest := lo>>uint(restBits), lo&(1<<uint(restBits)-1)
	hiHead, hiRest := hi>>uint(restBits), hi&(1<<uint(restBits)-1)
	maxRest := uint32(1<<uint(restBits) - 1)

	prependHead := func(h uint32, tails [][]ByteRange) [][]ByteRange {
		b := head.mask | byte(h)
		out := make([][]ByteRange, len(tails))
		for i, tail := range tails {
			seq := make([]ByteRange, 0, len(tail)+1)
			seq = append(seq, ByteRange{Lo: b, Hi: b})
			seq = append(seq, tail...)
			out[i] = seq
		}
		return out
	}

	if loHead == hiHead {
		return prependHead(loHead, splitDigits(loRest, hiRest, rest))
	}

	var out [][]ByteRange
	out = append(out, prependHead(loHead, splitDigits(loRest, maxRest, rest))...)
	if hiHead-loHead > 1 {
		full := fullDigitRange(rest)
		lb := head.mask | byte(loHead+1)
		hb := head.mask | byte(hiHead-1)
		seq := make([]ByteRange, 0, len(full)+1)
		seq = append(seq, ByteRange{Lo: lb, Hi: hb})
		seq = append(seq, full...)
		out = append(out, seq)
	}
	out = append(out, prependHead(hiHead, splitDigits(0, hiRest, rest))...)
	return out
}

func fullDigitRange(specs []digitSpec) []ByteRange {
	out := make([]ByteRange, len(specs))
	for i, s := range specs {
		full := byte(1<<uint(s.bits) - 1)
		out[i] = ByteRange{Lo: s.mask, Hi: s.mask | full}
	}
	return out
}
