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

package engine

import (
	"fmt"

	"github.com/tokenlattice/constrain/reporter"
)

// runtimeError adapts a parser.GrammarFailure/VocabularyGap (or any other
// decode-time error) into reporter.ErrorWithPos so it can flow through the
// same Handler compilation errors do, located by output byte offset
// instead of a schema pointer or regex offset. Per spec §7 these errors
// still abort the current generation and are also returned directly from
// Generate; the handler only gets a chance to observe and log them.
type runtimeError struct {
	pos reporter.Position
	err error
}

func (e runtimeError) Error() string           { return fmt.Sprintf("%s: %v", e.pos, e.err) }
func (e runtimeError) GetPosition() reporter.Position { return e.pos }
func (e runtimeError) Unwrap() error           { return e.err }

func (e *Engine) warnf(pos reporter.Position, format string, args ...interface{}) {
	if e.handler == nil {
		return
	}
	e.handler.HandleWarningf(pos, format, args...)
}
