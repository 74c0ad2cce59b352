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

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// runeReader is a mark/read/unread scanner over a regex pattern's bytes,
// the same shape the teacher uses for its proto source lexer: a single
// cursor with a settable mark for "the text since the last mark" and a
// readRune/unreadRune pair instead of a buffered token stream.
type runeReader struct {
	data []byte
	pos  int
	mark int
}

func newRuneReader(pattern string) *runeReader {
	return &runeReader{data: []byte(pattern)}
}

func (rr *runeReader) readRune() (r rune, size int, err error) {
	if rr.pos == len(rr.data) {
		return 0, 0, io.EOF
	}
	r, sz := utf8.DecodeRune(rr.data[rr.pos:])
	if r == utf8.RuneError && sz <= 1 {
		return 0, 0, fmt.Errorf("invalid UTF-8 at offset %d", rr.pos)
	}
	rr.pos += sz
	return r, sz, nil
}

func (rr *runeReader) unreadRune(size int) {
	newPos := rr.pos - size
	if newPos < rr.mark {
		panic("rx: unread past mark")
	}
	rr.pos = newPos
}

func (rr *runeReader) peekRune() (rune, bool) {
	r, sz, err := rr.readRune()
	if err != nil {
		return 0, false
	}
	rr.unreadRune(sz)
	return r, true
}

func (rr *runeReader) eof() bool {
	return rr.pos == len(rr.data)
}

func (rr *runeReader) setMark() {
	rr.mark = rr.pos
}

func (rr *runeReader) offset() int {
	return rr.pos
}

// consume advances past r if the next rune is exactly r, reporting
// whether it did.
func (rr *runeReader) consume(want rune) bool {
	r, sz, err := rr.readRune()
	if err != nil || r != want {
		if err == nil {
			rr.unreadRune(sz)
		}
		return false
	}
	return true
}
