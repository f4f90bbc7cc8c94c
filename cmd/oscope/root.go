package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"oscope-go/pkg/config"
	"oscope-go/pkg/log"
)

type globalFlags struct {
	configPath  string
	endpoint    string
	rpcURL      string
	panelAddr   string
	metricsAddr string
	hscale      int
	logLevel    string
	logFormat   string
	logFile     string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&globalFlags{})
}

func buildRootCmd(gf *globalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "oscope",
		Short: "Networked oscilloscope waveform client",
		Long: `oscope connects to the scope's sample stream, renders each sweep and
serves a control panel for run/stop, single-shot capture and the
horizontal and vertical scales.

Settings come from an INI file (scope.cfg); flags override it.`,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&gf.configPath, "config", "c", "", "scope configuration file (defaults apply when empty)")
	pf.StringVar(&gf.endpoint, "endpoint", "", "sample stream websocket URL")
	pf.StringVar(&gf.rpcURL, "rpc", "", "device RPC URL")
	pf.StringVar(&gf.panelAddr, "panel", "", "control panel listen address")
	pf.StringVar(&gf.metricsAddr, "metrics", "", "standalone metrics listen address")
	pf.IntVar(&gf.hscale, "hscale", 0, "initial timebase index")
	pf.StringVar(&gf.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&gf.logFormat, "log-format", "", "log format (text, json)")
	pf.StringVar(&gf.logFile, "log-file", "", "append logs to this file")

	root.AddCommand(
		newRunCmd(gf),
		newTUICmd(gf),
		newViewCmd(gf),
		newSnapshotCmd(gf),
	)
	return root
}

// load reads the configuration file and applies any flags the user set.
func (gf *globalFlags) load(cmd *cobra.Command) (config.ScopeConfig, error) {
	sc, err := config.LoadScopeConfig(gf.configPath)
	if err != nil {
		return sc, err
	}
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		sc.Endpoint = gf.endpoint
	}
	if flags.Changed("rpc") {
		sc.RPCURL = gf.rpcURL
	}
	if flags.Changed("panel") {
		sc.PanelAddr = gf.panelAddr
	}
	if flags.Changed("metrics") {
		sc.MetricsAddr = gf.metricsAddr
	}
	if flags.Changed("hscale") {
		sc.HScaleIndex = gf.hscale
	}
	if flags.Changed("log-level") {
		sc.LogLevel = gf.logLevel
	}
	if flags.Changed("log-format") {
		sc.LogFormat = gf.logFormat
	}
	return sc, nil
}

// setupLogging configures the root logger. quiet drops output that would
// otherwise land on a terminal owned by the TUI.
func (gf *globalFlags) setupLogging(sc config.ScopeConfig, quiet bool) (io.Closer, error) {
	l := log.Default()
	l.SetLevel(log.ParseLevel(sc.LogLevel))
	l.SetFormat(log.ParseFormat(sc.LogFormat))
	log.ConfigureFromEnv(l)

	switch {
	case gf.logFile != "":
		f, err := os.OpenFile(gf.logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.SetWriter(f)
		l.SetColorize(false)
		return f, nil
	case quiet:
		l.SetWriter(io.Discard)
	}
	return nil, nil
}
