// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/beevik/prefixtree/v2"
)

type settings struct {
	HexMode            bool   `doc:"hexadecimal input mode"`
	ShowCycles         bool   `doc:"show cycle counts when disassembling"`
	StopOnFault        bool   `doc:"stop running on an unknown opcode"`
	MemDumpBytes       int    `doc:"default number of memory bytes to dump"`
	DisasmLines        int    `doc:"default number of lines to disassemble"`
	StepLinesToDisplay int    `doc:"max lines to disassemble when stepping"`
	ExecuteBudget      int    `doc:"default cycle budget of the execute command"`
	MaxRunCycles       int    `doc:"cycles after which run stops (0 = no limit)"`
	NextDisasmAddr     uint16 `doc:"address of next disassembly"`
	NextMemDumpAddr    uint16 `doc:"address of next memory dump"`
}

func newSettings() *settings {
	return &settings{
		HexMode:            false,
		ShowCycles:         true,
		StopOnFault:        true,
		MemDumpBytes:       64,
		DisasmLines:        10,
		StepLinesToDisplay: 20,
		ExecuteBudget:      1000,
		MaxRunCycles:       0,
		NextDisasmAddr:     0,
		NextMemDumpAddr:    0,
	}
}

var errInvalidType = errors.New("invalid type")

type settingsField struct {
	name  string
	index int
	kind  reflect.Kind
	typ   reflect.Type
	doc   string
}

var (
	settingsTree   = prefixtree.New[*settingsField]()
	settingsFields []settingsField
)

func init() {
	settingsType := reflect.TypeOf(settings{})
	settingsFields = make([]settingsField, settingsType.NumField())
	for i := 0; i < len(settingsFields); i++ {
		f := settingsType.Field(i)
		doc, _ := f.Tag.Lookup("doc")
		settingsFields[i] = settingsField{
			name:  f.Name,
			index: i,
			kind:  f.Type.Kind(),
			typ:   f.Type,
			doc:   doc,
		}
		settingsTree.Add(strings.ToLower(f.Name), &settingsFields[i])
	}
}

// Display writes every setting with its current value and description.
func (s *settings) Display(w io.Writer) {
	value := reflect.ValueOf(s).Elem()
	for i, f := range settingsFields {
		v := value.Field(i)
		var line string
		switch f.kind {
		case reflect.String:
			line = fmt.Sprintf("    %-20s \"%s\"", f.name, v.String())
		case reflect.Uint8:
			line = fmt.Sprintf("    %-20s $%02X", f.name, uint8(v.Uint()))
		case reflect.Uint16:
			line = fmt.Sprintf("    %-20s $%04X", f.name, uint16(v.Uint()))
		default:
			line = fmt.Sprintf("    %-20s %v", f.name, v)
		}
		fmt.Fprintf(w, "%-32s (%s)\n", line, f.doc)
	}
}

// Kind returns the value kind of the setting matching 'key', or
// reflect.Invalid if no single setting matches.
func (s *settings) Kind(key string) reflect.Kind {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return reflect.Invalid
	}
	return f.kind
}

// Set assigns 'value' to the setting matching the prefix 'key' and returns
// the setting's full name.
func (s *settings) Set(key string, value any) (string, error) {
	f, err := settingsTree.FindValue(strings.ToLower(key))
	if err != nil {
		return "", fmt.Errorf("setting '%s': %w", key, err)
	}

	vIn := reflect.ValueOf(value)
	if (f.kind == reflect.String) != (vIn.Kind() == reflect.String) ||
		!vIn.Type().ConvertibleTo(f.typ) {
		return "", fmt.Errorf("setting '%s': %w", f.name, errInvalidType)
	}

	vOut := reflect.ValueOf(s).Elem().Field(f.index)
	vOut.Set(vIn.Convert(f.typ))
	return f.name, nil
}
