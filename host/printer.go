// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package host

import (
	"github.com/jeandeaual/go-locale"
	"golang.org/x/text/message"

	"github.com/tickwise/go6502/logger"
)

// newPrinter returns a message printer for the user's preferred locales.
// It is used for cycle counts, which grow large enough to need digit
// grouping.
func newPrinter() *message.Printer {
	locales, err := locale.GetLocales()
	if err != nil {
		logger.Logf("host", "locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	return message.NewPrinter(message.MatchLanguage(locales...))
}
