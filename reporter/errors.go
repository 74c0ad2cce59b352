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

package reporter

import (
	"errors"
	"fmt"
)

// ErrInvalidSource is a sentinel error returned by a compile operation when
// errors were reported but the caller's ErrorReporter always returned nil.
var ErrInvalidSource = errors.New("compile failed: invalid grammar source")

// ErrorWithPos is an error about a grammar source that includes information
// about the location that caused the error.
//
// The value of Error() contains both the Position and underlying error. The
// value of Unwrap() is only the underlying error.
type ErrorWithPos interface {
	error
	GetPosition() Position
	Unwrap() error
}

// Error wraps an existing error with a source position.
func Error(pos Position, err error) ErrorWithPos {
	return errorWithPos{pos: pos, underlying: err}
}

// Errorf builds a new [ErrorWithPos] from a message format and args.
func Errorf(pos Position, format string, args ...interface{}) ErrorWithPos {
	return errorWithPos{pos: pos, underlying: fmt.Errorf(format, args...)}
}

// errorWithPos is an error about a grammar source that includes information
// about the location that caused the error.
type errorWithPos struct {
	underlying error
	pos        Position
}

func (e errorWithPos) Error() string {
	return fmt.Sprintf("%s: %v", e.GetPosition(), e.underlying)
}

// GetPosition implements the ErrorWithPos interface.
func (e errorWithPos) GetPosition() Position {
	return e.pos
}

// Unwrap implements the ErrorWithPos interface, returning the error
// without position information attached.
func (e errorWithPos) Unwrap() error {
	return e.underlying
}

var _ ErrorWithPos = errorWithPos{}
