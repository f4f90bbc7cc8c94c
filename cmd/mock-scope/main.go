// mock-scope serves a simulated oscilloscope for testing the client.
// It provides:
// - The sample stream on /websocket (selector frame, then 12-bit samples)
// - The parameter RPC on /erpc (setHscale, setChannels)
// - A signal generator driving both channels, tuned with the "set" call
//
// Usage:
//
//	mock-scope [-addr :8081] [-sweep 50ms] [-waveform sine] [-frequency 1000]
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"oscope-go/pkg/log"
	"oscope-go/pkg/mockdevice"
)

func main() {
	def := mockdevice.DefaultConfig()
	addr := flag.String("addr", def.Addr, "HTTP listen address")
	sweep := flag.Duration("sweep", def.SweepInterval, "wall time between sweeps")
	samples := flag.Int("samples", def.Samples, "samples per channel block")
	waveform := flag.String("waveform", def.Generator.Waveform, "sine, rampup, rampdown, square, triangle, pulse, dc or noise")
	frequency := flag.Float64("frequency", def.Generator.Frequency, "signal frequency in Hz")
	amplitude := flag.Float64("amplitude", def.Generator.Amplitude, "peak to peak amplitude in volts")
	offset := flag.Float64("offset", def.Generator.Offset, "DC offset in volts")
	duty := flag.Float64("duty", def.Generator.Duty, "pulse duty cycle in percent")
	seed := flag.Int64("seed", def.Seed, "noise generator seed")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	if _, err := mockdevice.ParseWaveform(*waveform); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *samples <= 0 || *sweep <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -samples and -sweep must be positive\n")
		os.Exit(1)
	}

	logger := log.GetLogger("mock-scope")
	logger.SetLevel(log.ParseLevel(*logLevel))

	cfg := mockdevice.Config{
		Addr:          *addr,
		SweepInterval: *sweep,
		Samples:       *samples,
		Generator: mockdevice.GeneratorSettings{
			Waveform:  *waveform,
			Frequency: *frequency,
			Amplitude: *amplitude,
			Offset:    *offset,
			Duty:      *duty,
		}.Normalize(),
		Seed:   *seed,
		Logger: logger,
	}
	dev := mockdevice.New(cfg)

	fmt.Printf("Mock scope on %s (stream /websocket, rpc /erpc)\n", *addr)
	fmt.Printf("Generator: %+v\n", cfg.Generator)
	fmt.Println("Press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- dev.ListenAndServe() }()

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	done := make(chan struct{})
	go func() {
		dev.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		fmt.Fprintln(os.Stderr, "shutdown timed out")
	}
	st := dev.Stats()
	fmt.Printf("Served %d connections, %d sweeps, %d calls\n", st.Connections, st.Sweeps, st.Calls)
}
