// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logger implements the central diagnostic log shared by the
// emulator packages. Entries are tagged by the component that created them
// and consecutive duplicates are collapsed into a single entry with a repeat
// count.
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Entry represents a single line in the log.
type Entry struct {
	Timestamp time.Time
	Tag       string
	Detail    string
	Repeated  int
}

func (e *Entry) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "%s: %s", e.Tag, e.Detail)
	if e.Repeated > 0 {
		fmt.Fprintf(&s, " (repeat x%d)", e.Repeated+1)
	}
	s.WriteString("\n")
	return s.String()
}

type logger struct {
	mu         sync.Mutex
	maxEntries int
	entries    []Entry
	echo       io.Writer
}

func newLogger(maxEntries int) *logger {
	return &logger{
		maxEntries: maxEntries,
		entries:    make([]Entry, 0, maxEntries),
	}
}

func (l *logger) log(tag, detail string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tag = strings.ReplaceAll(tag, "\n", "")
	detail = strings.ReplaceAll(detail, "\n", "")

	var e *Entry
	if n := len(l.entries); n > 0 && l.entries[n-1].Tag == tag && l.entries[n-1].Detail == detail {
		e = &l.entries[n-1]
		e.Repeated++
		e.Timestamp = time.Now()
	} else {
		l.entries = append(l.entries, Entry{Timestamp: time.Now(), Tag: tag, Detail: detail})
		e = &l.entries[len(l.entries)-1]
	}

	if len(l.entries) > l.maxEntries {
		l.entries = append(l.entries[:0], l.entries[len(l.entries)-l.maxEntries:]...)
		e = &l.entries[len(l.entries)-1]
	}

	if l.echo != nil {
		writeColored(l.echo, e)
	}
}

func (l *logger) clear() {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()
}

func (l *logger) tail(w io.Writer, n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	for _, e := range l.entries[len(l.entries)-n:] {
		io.WriteString(w, e.String())
	}
	return n
}

func (l *logger) copy() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := make([]Entry, len(l.entries))
	copy(c, l.entries)
	return c
}

var tagColor = color.New(color.FgCyan, color.Bold)

// The tag is highlighted when the echo writer is a terminal. fatih/color
// disables itself for anything else.
func writeColored(w io.Writer, e *Entry) {
	detail := e.Detail
	if e.Repeated > 0 {
		detail += fmt.Sprintf(" (repeat x%d)", e.Repeated+1)
	}
	fmt.Fprintf(w, "%s: %s\n", tagColor.Sprint(e.Tag), detail)
}
