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

package ir

import "github.com/tokenlattice/constrain/internal/interval"

// ByteRangeValue is a materialized, merged inclusive byte range, as
// returned by [ByteSet.Ranges].
type ByteRangeValue struct {
	Lo, Hi byte
}

// ByteSet is the efficient terminal that a Select whose alternatives are
// all single-byte terminals converts to (spec §4.1). Internally it is
// backed by the teacher's interval-intersection btree (internal/interval),
// which decomposes overlapping inserted ranges into a disjoint partition
// tagged by membership count; that decomposition is exactly what a byte
// set needs, so membership tests and unions of many ranges stay
// logarithmic instead of linear in alternative count.
type ByteSet struct {
	ranges interval.Intersect[byte, struct{}]
}

// NewByteSet returns an empty ByteSet.
func NewByteSet() *ByteSet {
	return &ByteSet{}
}

// Add inserts an inclusive byte range into the set.
func (s *ByteSet) Add(lo, hi byte) {
	s.ranges.Insert(lo, hi, struct{}{})
}

// AddByte inserts a single byte into the set.
func (s *ByteSet) AddByte(b byte) {
	s.Add(b, b)
}

// Contains reports whether b is a member of the set.
func (s *ByteSet) Contains(b byte) bool {
	e := s.ranges.Get(b)
	return len(e.Value) > 0
}

// Ranges returns the set's merged, sorted, non-overlapping ranges.
func (s *ByteSet) Ranges() []ByteRangeValue {
	var out []ByteRangeValue
	for e := range s.ranges.Entries() {
		if len(e.Value) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Hi+1 == e.Start {
			out[n-1].Hi = e.End
			continue
		}
		out = append(out, ByteRangeValue{Lo: e.Start, Hi: e.End})
	}
	return out
}

// Empty reports whether the set contains no bytes.
func (s *ByteSet) Empty() bool {
	return len(s.Ranges()) == 0
}

// Union adds every range of other into s.
func (s *ByteSet) Union(other *ByteSet) {
	for _, r := range other.Ranges() {
		s.Add(r.Lo, r.Hi)
	}
}

// ToByteSet converts n into a [ByteSet] if it is a KindByte, a
// KindByteRange, or a non-recursive KindSelect whose every alternative is
// itself convertible, per the §4.1 contract: "A Select whose alternatives
// are all single-byte terminals is convertible to a ByteSet, an efficient
// terminal used by the mask computation." Returns ok=false for any other
// shape (Join, Gen, Lexeme, Capture, ..., or a recursive Select).
func ToByteSet(n Node) (*ByteSet, bool) {
	set := NewByteSet()
	if !collectByteSet(n, set) {
		return nil, false
	}
	return set, true
}

func collectByteSet(n Node, set *ByteSet) bool {
	switch n.Kind() {
	case KindByte:
		set.AddByte(n.AsByte())
		return true
	case KindByteRange:
		lo, hi := n.AsByteRange()
		set.Add(lo, hi)
		return true
	case KindSelect:
		if n.Recurse() {
			return false
		}
		for _, c := range n.Children() {
			if !collectByteSet(c, set) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
