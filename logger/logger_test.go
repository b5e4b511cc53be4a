// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package logger_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tickwise/go6502/logger"
)

func TestRepeatCollapse(t *testing.T) {
	logger.Clear()
	defer logger.Clear()

	logger.Log("cpu", "unknown opcode $02")
	logger.Log("cpu", "unknown opcode $02")
	logger.Log("cpu", "unknown opcode $02")
	logger.Logf("host", "loaded %d bytes", 3)

	e := logger.Entries()
	assert.Len(t, e, 2)
	assert.Equal(t, 2, e[0].Repeated)

	var b bytes.Buffer
	logger.Write(&b)
	assert.Equal(t, "cpu: unknown opcode $02 (repeat x3)\nhost: loaded 3 bytes\n", b.String())
}

func TestTail(t *testing.T) {
	logger.Clear()
	defer logger.Clear()

	logger.Log("a", "1")
	logger.Log("b", "2")
	logger.Log("c", "3")

	var b bytes.Buffer
	n := logger.Tail(&b, 2)
	assert.Equal(t, 2, n)
	assert.Equal(t, "b: 2\nc: 3\n", b.String())

	b.Reset()
	n = logger.Tail(&b, 10)
	assert.Equal(t, 3, n)
}

func TestBounded(t *testing.T) {
	logger.Clear()
	defer logger.Clear()

	for i := 0; i < 300; i++ {
		logger.Logf("t", "%d", i)
	}
	e := logger.Entries()
	assert.Len(t, e, 256)
	assert.Equal(t, "299", e[len(e)-1].Detail)
	assert.Equal(t, "44", e[0].Detail)
}

func TestEcho(t *testing.T) {
	logger.Clear()
	defer logger.Clear()

	var b bytes.Buffer
	logger.SetEcho(&b)
	defer logger.SetEcho(nil)

	logger.Log("cpu", "hello")
	assert.Contains(t, b.String(), "hello")
	assert.Contains(t, b.String(), "cpu")
}
