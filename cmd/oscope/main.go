// oscope is the waveform client for the networked oscilloscope.
//
// It keeps a stream connection to the device open, draws every sweep on an
// in-memory display and serves an HTTP control panel. The tui and view
// commands add a terminal panel or a desktop window on top.
//
// Usage:
//
//	oscope run      [-c scope.cfg] [--endpoint ws://host/websocket]
//	oscope tui      [-c scope.cfg]
//	oscope view     [-c scope.cfg] [--scale 2]
//	oscope snapshot [-c scope.cfg] -o scope.png
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
