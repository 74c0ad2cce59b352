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

package parser

import "fmt"

// GrammarFailure is raised when a byte the caller is trying to commit (a
// sampled token's bytes, or a byte an oracle claims is forced) has no
// legal continuation anywhere in the current frontier. Offset and Recent
// describe where in the committed stream the failure happened, for
// diagnostics; the grammar itself is never at fault here, the caller fed
// it something it can't accept.
type GrammarFailure struct {
	Offset  int
	Recent  []byte
	Byte    byte
	Message string
}

func (e *GrammarFailure) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("parser: grammar failure at byte offset %d (recent %q): %s", e.Offset, e.Recent, e.Message)
	}
	return fmt.Sprintf("parser: grammar failure at byte offset %d: byte %q not accepted (recent %q)", e.Offset, e.Byte, e.Recent)
}

// VocabularyGap is raised when the current frontier requires at least one
// more byte but no token in the tokenizer's vocabulary produces a legal
// one from here. Unlike GrammarFailure this isn't the caller's mistake:
// the grammar and the vocabulary are simply incompatible at this position,
// and per spec this is not retried.
type VocabularyGap struct {
	Context []byte
}

func (e *VocabularyGap) Error() string {
	return fmt.Sprintf("parser: vocabulary gap: no token in the vocabulary has a legal continuation near %q", e.Context)
}

func recentBytes(data []byte) []byte {
	const n = 32
	if len(data) <= n {
		return append([]byte(nil), data...)
	}
	return append([]byte(nil), data[len(data)-n:]...)
}
