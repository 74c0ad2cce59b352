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

	"github.com/tokenlattice/constrain/ir"
)

// formatRegexes is the fixed `format` table (§4.3.3 string): every name not
// listed here raises [UnsupportedFormat].
var formatRegexes = map[string]string{
	"date-time": `[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})`,
	"date":      `[0-9]{4}-[0-9]{2}-[0-9]{2}`,
	"time":      `[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})?`,
	"duration":  `P([0-9]+Y)?([0-9]+M)?([0-9]+D)?(T([0-9]+H)?([0-9]+M)?([0-9]+S)?)?`,
	"email":     `[^@ \t\n]+@[^@ \t\n]+\.[A-Za-z]{2,}`,
	"hostname":  `[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?(\.[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*`,
	"ipv4":      `[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}`,
	"ipv6":      `[0-9A-Fa-f:]+`,
	"uuid":      `[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`,
}

// compileString returns the grammar for a `string`-typed schema: a
// contextual lexeme (§4.3.3 string) built from one of format/pattern/
// length bounds, which are mutually exclusive.
func (c *Compiler) compileString(schema *Value, pointer string) ir.Node {
	_, hasFormat := schema.Get("format")
	_, hasPattern := schema.Get("pattern")
	_, hasMinLen := schema.Get("minLength")
	_, hasMaxLen := schema.Get("maxLength")

	pat, err := stringPattern(schema, hasFormat, hasPattern, hasMinLen, hasMaxLen)
	if err != nil {
		c.fail(pointer, err)
		return c.ctx.Null()
	}

	body, cerr := c.compilePattern(pat)
	if cerr != nil {
		c.fail(pointer, cerr)
		return c.ctx.Null()
	}
	return c.ctx.Lexeme(body, true /* contextual */, true /* jsonString */)
}

func stringPattern(schema *Value, hasFormat, hasPattern, hasMinLen, hasMaxLen bool) (string, error) {
	switch {
	case hasFormat:
		f, _ := schema.Get("format")
		re, ok := formatRegexes[f.Str]
		if !ok {
			return "", &UnsupportedFormat{Format: f.Str}
		}
		return re, nil
	case hasPattern:
		p, _ := schema.Get("pattern")
		return p.Str, nil
	case hasMinLen || hasMaxLen:
		min, max := 0, -1
		if v, ok := schema.Get("minLength"); ok {
			min, _ = v.AsInt()
		}
		if v, ok := schema.Get("maxLength"); ok {
			max, _ = v.AsInt()
		}
		// [\s\S] rather than "." since "." excludes newline (OpAnyCharNoNL)
		// and a JSON string's decoded content may legitimately contain one.
		if max >= 0 {
			return fmt.Sprintf(`[\s\S]{%d,%d}`, min, max), nil
		}
		return fmt.Sprintf(`[\s\S]{%d,}`, min), nil
	default:
		return `[\s\S]*`, nil
	}
}
