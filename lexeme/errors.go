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

package lexeme

import "fmt"

// UnsatisfiableRegularGrammar is raised when a Not/And/Or composition
// denotes the empty language (e.g. intersecting two disjoint lexemes).
type UnsatisfiableRegularGrammar struct {
	Op Op
}

func (e *UnsatisfiableRegularGrammar) Error() string {
	return fmt.Sprintf("lexeme: %v composition matches no byte string", e.Op)
}
