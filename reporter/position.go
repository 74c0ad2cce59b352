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

// Package reporter contains the types used for reporting errors from
// grammar compilation: regex parsing (rx), JSON-Schema compilation
// (jsonschema), and IR construction (ir). It contains error types as well
// as interfaces for reporting and handling errors.
package reporter

import "fmt"

// Position locates a diagnostic within whatever the compiler was given:
// a byte offset into a regex pattern, or a JSON Pointer into a schema
// document. Exactly one of Pointer or Offset is meaningful for any given
// error; which one is indicated by HasPointer.
type Position struct {
	// Pointer is an RFC 6901 JSON Pointer into the schema document being
	// compiled, e.g. "/properties/name/pattern". Empty if this position
	// refers to a regex byte offset instead.
	Pointer string

	// Offset is a byte offset into the regex pattern being compiled.
	// Meaningless when Pointer is non-empty.
	Offset int

	// HasPointer distinguishes a Pointer of "" (document root) from "no
	// pointer at all" (a pure regex offset).
	HasPointer bool
}

// String implements [fmt.Stringer].
func (p Position) String() string {
	if p.HasPointer {
		if p.Pointer == "" {
			return "<root>"
		}
		return p.Pointer
	}
	return fmt.Sprintf("offset %d", p.Offset)
}

// AtPointer builds a [Position] for a JSON Pointer location.
func AtPointer(ptr string) Position {
	return Position{Pointer: ptr, HasPointer: true}
}

// AtOffset builds a [Position] for a regex byte offset.
func AtOffset(offset int) Position {
	return Position{Offset: offset}
}
