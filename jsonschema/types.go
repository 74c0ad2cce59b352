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
	"github.com/tokenlattice/constrain/ir"
	"github.com/tokenlattice/constrain/rx"
)

// compileNull returns the grammar for the `null` literal.
func compileNull(c *Compiler) ir.Node {
	return rx.QuoteLiteral(c.ctx, "null")
}

// compileBoolean returns the grammar for `true` or `false`.
func compileBoolean(c *Compiler) ir.Node {
	return c.ctx.Select(false, rx.QuoteLiteral(c.ctx, "true"), rx.QuoteLiteral(c.ctx, "false"))
}

// compileInteger returns the grammar for an `integer`-typed schema (§4.3.3
// integer), as a contextual lexeme so flexible whitespace mode treats the
// number as a single token.
func (c *Compiler) compileInteger(schema *Value, pointer string) ir.Node {
	pat, err := integerRegex(schema)
	if err != nil {
		c.fail(pointer, err)
		return c.ctx.Null()
	}
	return c.lexemeFromPattern(pat, pointer)
}

// compileNumber returns the grammar for a `number`-typed schema (§4.3.3
// number).
func (c *Compiler) compileNumber(schema *Value, pointer string) ir.Node {
	pat, err := numberRegex(schema)
	if err != nil {
		c.fail(pointer, err)
		return c.ctx.Null()
	}
	return c.lexemeFromPattern(pat, pointer)
}

// lexemeFromPattern compiles pat and wraps it as a non-JSON-string
// contextual lexeme.
func (c *Compiler) lexemeFromPattern(pat, pointer string) ir.Node {
	body, err := c.compilePattern(pat)
	if err != nil {
		c.fail(pointer, err)
		return c.ctx.Null()
	}
	return c.ctx.Lexeme(body, true, false)
}
