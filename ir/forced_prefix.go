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

import "github.com/tokenlattice/constrain/internal/arena"

// ForcedPrefix returns the longest byte string that every string n accepts
// is guaranteed to start with, per spec §4.1 ("forced_prefix(node) →
// bytes: longest byte string that every accepting string starts with").
// This lets the parser fast-forward through a deterministic run of bytes
// without consulting the oracle at all (SPEC_FULL §3's token
// fast-forwarding).
//
// A Select with more than one distinct alternative forces nothing beyond
// their common prefix (possibly empty); a Gen region forces nothing,
// since its contents are free generation. Cyclic references are treated
// as forcing nothing, since a grammar that is forced all the way around a
// cycle would accept no finite string.
func ForcedPrefix(n Node) []byte {
	return forcedPrefix(n, make(map[arena.Untyped]bool))
}

func forcedPrefix(n Node, onStack map[arena.Untyped]bool) []byte {
	if n.IsZero() {
		return nil
	}
	key := arena.Untyped(n.ptr)
	if onStack[key] {
		return nil
	}
	onStack[key] = true
	defer delete(onStack, key)

	switch n.Kind() {
	case KindNull:
		return nil
	case KindByte:
		return []byte{n.AsByte()}
	case KindByteRange:
		return nil
	case KindJoin:
		var out []byte
		for _, c := range n.Children() {
			prefix := forcedPrefix(c, onStack)
			out = append(out, prefix...)
			if lo, hi := byteSpan(c); lo != hi {
				break
			}
		}
		return out
	case KindSelect:
		children := n.Children()
		if n.Recurse() || len(children) == 0 {
			return nil
		}
		common := forcedPrefix(children[0], onStack)
		for _, c := range children[1:] {
			common = commonPrefix(common, forcedPrefix(c, onStack))
			if len(common) == 0 {
				return nil
			}
		}
		return common
	case KindGen:
		return nil
	case KindLexeme:
		return forcedPrefix(n.Child(), onStack)
	case KindCapture, KindWithTemperature, KindTokenLimit:
		return forcedPrefix(n.Child(), onStack)
	case KindDeferredReference:
		if target, ok := n.Resolved(); ok {
			return forcedPrefix(target, onStack)
		}
		return nil
	default:
		return nil
	}
}

// byteSpan reports whether n accepts exactly one string's worth of bytes
// at this position with no alternative length/content (used by Join to
// decide whether to keep accumulating the forced prefix past c). lo==hi
// here is a sentinel meaning "fully forced"; any other pair means "stop".
// This is a conservative structural check: it may say "stop" for a node
// that happens to be fully forced through a more roundabout shape (e.g. a
// Select with only one distinct alternative after de-duplication would
// already have collapsed at construction time, but a Capture around an
// uncertain Select would not), in which case ForcedPrefix returns a
// shorter-than-maximal but still always-correct prefix.
func byteSpan(n Node) (lo, hi int) {
	switch n.Kind() {
	case KindNull, KindByte:
		return 0, 0
	case KindJoin:
		for _, c := range n.Children() {
			if cLo, cHi := byteSpan(c); cLo != cHi {
				return 0, 1
			}
		}
		return 0, 0
	case KindCapture, KindWithTemperature, KindTokenLimit, KindLexeme:
		return byteSpan(n.Child())
	default:
		return 0, 1
	}
}

func commonPrefix(a, b []byte) []byte {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
