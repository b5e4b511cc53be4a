// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger

import (
	"fmt"
	"io"
)

// maximum number of entries kept by the central log
const maxCentral = 256

var central = newLogger(maxCentral)

// Log adds an entry to the central log.
func Log(tag, detail string) {
	central.log(tag, detail)
}

// Logf adds a formatted entry to the central log.
func Logf(tag, format string, args ...any) {
	central.log(tag, fmt.Sprintf(format, args...))
}

// Clear removes all entries from the central log.
func Clear() {
	central.clear()
}

// Write the contents of the central log to w.
func Write(w io.Writer) {
	central.tail(w, -1)
}

// Tail writes the last n entries of the central log to w and returns the
// number of entries written.
func Tail(w io.Writer, n int) int {
	return central.tail(w, n)
}

// Entries returns a copy of the entries currently held by the central log.
func Entries() []Entry {
	return central.copy()
}

// SetEcho causes every new entry to also be written to w. A nil writer
// turns echoing off.
func SetEcho(w io.Writer) {
	central.mu.Lock()
	central.echo = w
	central.mu.Unlock()
}
