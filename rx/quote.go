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

import "github.com/tokenlattice/constrain/ir"

// QuoteRegex lifts a literal string into a regex AST that matches exactly
// that string (spec §4.1's quote_regex), with no metacharacter
// reinterpretation: every rune in s, including regex metacharacters like
// "." or "*", stands for itself. This lives in rx rather than ir because
// its result is this package's AST type; ir must not depend on rx (rx
// already depends on ir, to produce the compiled grammar).
func QuoteRegex(s string) *AST {
	return &AST{Op: OpLiteral, Runes: []rune(s)}
}

// QuoteLiteral compiles s directly to a Join of Bytes, bypassing the AST
// entirely. This is the fast path QuoteRegex's callers use when they only
// need the compiled grammar and not the intermediate AST (e.g. a JSON
// Schema `const`/`enum` literal value).
func QuoteLiteral(c *ir.Context, s string) ir.Node {
	return compileLiteral(c, []rune(s))
}
