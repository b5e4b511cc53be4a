// Copyright 2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/beevik/term"

	"github.com/tickwise/go6502/host"
	"github.com/tickwise/go6502/logger"
)

var (
	loadFile string
	loadAddr uint
	budget   int
	verbose  bool
)

func init() {
	flag.StringVar(&loadFile, "load", "", "raw binary file to load before running scripts")
	flag.UintVar(&loadAddr, "addr", 0x1000, "address the -load file is loaded to")
	flag.IntVar(&budget, "budget", 0, "execute this many cycles after loading, then exit")
	flag.BoolVar(&verbose, "v", false, "echo log entries to stderr")
	flag.CommandLine.Usage = func() {
		fmt.Println("Usage: go6502 [script] ..\nOptions:")
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()

	if verbose {
		logger.SetEcho(os.Stderr)
	}

	h := host.New()

	// Load and optionally execute a binary given on the command line.
	if loadFile != "" {
		run(h, fmt.Sprintf("load %s $%04X\n", loadFile, uint16(loadAddr)), false)
		if budget > 0 {
			run(h, fmt.Sprintf("execute %d\nregister\n", budget), false)
			os.Exit(0)
		}
	}

	// Run commands contained in command-line files.
	for _, filename := range flag.Args() {
		file, err := os.Open(filename)
		if err != nil {
			exitOnError(err)
		}
		err = h.RunCommands(file, os.Stdout, false)
		file.Close()
		if errors.Is(err, host.ErrQuit) {
			os.Exit(0)
		}
		if err != nil {
			exitOnError(err)
		}
	}

	// Break on Ctrl-C.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go handleInterrupt(h, c)

	// Run commands interactively only when attached to a terminal.
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	if err := h.RunCommands(os.Stdin, os.Stdout, interactive); err != nil && !errors.Is(err, host.ErrQuit) {
		exitOnError(err)
	}
}

func run(h *host.Host, script string, interactive bool) {
	err := h.RunCommands(strings.NewReader(script), os.Stdout, interactive)
	if err != nil && !errors.Is(err, host.ErrQuit) {
		exitOnError(err)
	}
}

func handleInterrupt(h *host.Host, c chan os.Signal) {
	for {
		<-c
		h.Break()
	}
}

func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	os.Exit(1)
}
