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

import "fmt"

// AllOfConflict is raised when merging an allOf branch's type intersection
// empties out, or its const values disagree (§4.3.2 step 2).
type AllOfConflict struct {
	Pointer string
	Reason  string
}

func (e *AllOfConflict) Error() string {
	return fmt.Sprintf("%s: allOf conflict: %s", e.Pointer, e.Reason)
}

// AllOfUnsupportedDuplicate is raised when an allOf merge sees the same
// unmergeable keyword (anything but type/required/properties/enum/const)
// more than once across branches with differing values.
type AllOfUnsupportedDuplicate struct {
	Pointer string
	Keyword string
}

func (e *AllOfUnsupportedDuplicate) Error() string {
	return fmt.Sprintf("%s: keyword %q duplicated across allOf branches with no merge rule", e.Pointer, e.Keyword)
}

// UnsatisfiableArray is raised when prefixItems has fewer entries than
// minItems while items is false (§4.3.3 array).
type UnsatisfiableArray struct {
	Pointer string
}

func (e *UnsatisfiableArray) Error() string {
	return fmt.Sprintf("%s: array schema is unsatisfiable: minItems exceeds prefixItems with items:false", e.Pointer)
}

// UnsatisfiableObject is raised when additionalProperties:false and a
// required key is missing from properties (§4.3.3 object). Known lists the
// declared property names (sorted, for a stable message) so the diagnostic
// can suggest what was actually available.
type UnsatisfiableObject struct {
	Pointer string
	Key     string
	Known   []string
}

func (e *UnsatisfiableObject) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("%s: object schema is unsatisfiable: required key %q is not in properties and additionalProperties is false", e.Pointer, e.Key)
	}
	return fmt.Sprintf("%s: object schema is unsatisfiable: required key %q is not among declared properties %v and additionalProperties is false", e.Pointer, e.Key, e.Known)
}

// BadArrayBounds is raised when maxItems < minItems.
type BadArrayBounds struct {
	Pointer          string
	MinItems, MaxItems int
}

func (e *BadArrayBounds) Error() string {
	return fmt.Sprintf("%s: maxItems (%d) less than minItems (%d)", e.Pointer, e.MaxItems, e.MinItems)
}

// UnsupportedFormat is raised when a string schema's `format` keyword
// names a format outside the fixed table in §4.3.3.
type UnsupportedFormat struct {
	Pointer string
	Format  string
}

func (e *UnsupportedFormat) Error() string {
	return fmt.Sprintf("%s: unsupported string format %q", e.Pointer, e.Format)
}

// UnsupportedKeyword is raised when a schema object uses a reserved
// keyword this compiler does not recognize at all (as opposed to one of
// the explicitly-ignored keywords in spec §6).
type UnsupportedKeyword struct {
	Pointer string
	Keyword string
}

func (e *UnsupportedKeyword) Error() string {
	return fmt.Sprintf("%s: unsupported keyword %q", e.Pointer, e.Keyword)
}

// UnresolvedReference is raised when a $ref names a URI (or fragment) that
// the active [Resolver] has no document for.
type UnresolvedReference struct {
	Pointer string
	URI     string
}

func (e *UnresolvedReference) Error() string {
	return fmt.Sprintf("%s: unresolved reference %q", e.Pointer, e.URI)
}
