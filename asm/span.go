// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "strings"

// A span is a piece of a source line that remembers where it was read
// from, so errors can point at the offending column.
type span struct {
	row    int    // 1-based source line number
	column int    // 0-based column of the first character
	str    string // the text of interest
	full   string // the complete source line
}

func newSpan(row int, line string) span {
	return span{row: row, str: line, full: line}
}

func (s span) String() string {
	return s.str
}

// Tabs advance the column to the next multiple of 8.
func (s span) consume(n int) span {
	col := s.column
	for i := 0; i < n; i++ {
		if s.str[i] == '\t' {
			col += 8 - col%8
		} else {
			col++
		}
	}
	return span{s.row, col, s.str[n:], s.full}
}

func (s span) trunc(n int) span {
	return span{s.row, s.column, s.str[:n], s.full}
}

func (s span) isEmpty() bool {
	return len(s.str) == 0
}

func (s span) startsWith(fn func(c byte) bool) bool {
	return len(s.str) > 0 && fn(s.str[0])
}

func (s span) startsWithChar(c byte) bool {
	return len(s.str) > 0 && s.str[0] == c
}

// Case-insensitive.
func (s span) startsWithString(prefix string) bool {
	return len(s.str) >= len(prefix) && strings.EqualFold(s.str[:len(prefix)], prefix)
}

func (s span) skipSpace() span {
	return s.consume(s.scan(whitespace, true))
}

func (s span) scan(fn func(c byte) bool, want bool) int {
	i := 0
	for i < len(s.str) && fn(s.str[i]) == want {
		i++
	}
	return i
}

func (s span) split(i int) (head, tail span) {
	return s.trunc(i), s.consume(i)
}

func (s span) takeWhile(fn func(c byte) bool) (taken, rest span) {
	return s.split(s.scan(fn, true))
}

func (s span) takeUntil(fn func(c byte) bool) (taken, rest span) {
	return s.split(s.scan(fn, false))
}

func (s span) takeUntilChar(c byte) (taken, rest span) {
	return s.takeUntil(func(b byte) bool { return b == c })
}

// Split at the first comma outside a quoted string.
func (s span) takeField() (field, rest span) {
	var quote byte
	i := 0
	for ; i < len(s.str); i++ {
		c := s.str[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == ',':
			return s.split(i)
		case quote == 0 && stringQuote(c):
			quote = c
		}
	}
	return s.split(i)
}

// Drop a trailing ';' comment and any whitespace before it. Semicolons
// inside quotes are kept.
func (s span) stripComment() span {
	end := 0
	for i := 0; i < len(s.str); i++ {
		c := s.str[i]
		if c == ';' {
			break
		}
		if stringQuote(c) {
			for i++; i < len(s.str) && s.str[i] != c; i++ {
			}
			end = min(i+1, len(s.str))
			continue
		}
		if !whitespace(c) {
			end = i + 1
		}
	}
	return s.trunc(end)
}

func whitespace(c byte) bool {
	return c == ' ' || c == '\t'
}

func wordChar(c byte) bool {
	return !whitespace(c)
}

func alpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func decimal(c byte) bool {
	return c >= '0' && c <= '9'
}

func hexadecimal(c byte) bool {
	return decimal(c) || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

func binary(c byte) bool {
	return c == '0' || c == '1'
}

func labelStartChar(c byte) bool {
	return alpha(c) || c == '_' || c == '.' || c == '@'
}

func labelChar(c byte) bool {
	return labelStartChar(c) || decimal(c)
}

func stringQuote(c byte) bool {
	return c == '"' || c == '\''
}
