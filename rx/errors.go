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

import "fmt"

// SyntaxError is returned when a regex cannot be parsed at all.
type SyntaxError struct {
	Pattern string
	Offset  int
	Reason  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("rx: invalid regex %q at offset %d: %s", e.Pattern, e.Offset, e.Reason)
}

// UnsupportedFeature is returned when a regex parses but uses a construct
// this subset does not implement (e.g. backreferences, lookaround).
type UnsupportedFeature struct {
	Pattern string
	Feature string
}

func (e *UnsupportedFeature) Error() string {
	return fmt.Sprintf("rx: regex %q uses unsupported feature %q", e.Pattern, e.Feature)
}
