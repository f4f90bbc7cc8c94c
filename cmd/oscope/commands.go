package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"oscope-go/pkg/config"
	"oscope-go/pkg/log"
	"oscope-go/pkg/scope"
	"oscope-go/pkg/tui"
	"oscope-go/pkg/viewer"
)

// frontend runs in the foreground until the user leaves it.
type frontend func(a *app) error

func newRunCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Connect and serve the HTTP control panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, gf, false, nil)
		},
	}
}

func newTUICmd(gf *globalFlags) *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Connect with a terminal control panel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, gf, true, func(a *app) error {
				return tui.Run(a.remote, refresh)
			})
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", tui.DefaultRefresh, "status refresh interval")
	return cmd
}

func newViewCmd(gf *globalFlags) *cobra.Command {
	var scale int
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Connect and open a window showing the live display",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd, gf, false, func(a *app) error {
				return viewer.Run(a.display, a.remote, viewer.Config{
					Title:  "oscope " + a.cfg.Endpoint,
					Scale:  scale,
					Logger: log.GetLogger("viewer"),
				})
			})
		},
	}
	cmd.Flags().IntVar(&scale, "scale", 1, "window scale factor")
	return cmd
}

// runClient starts the client and blocks until a signal arrives, a server
// fails or the frontend returns.
func runClient(cmd *cobra.Command, gf *globalFlags, quiet bool, fe frontend) error {
	sc, err := gf.load(cmd)
	if err != nil {
		return err
	}
	closer, err := gf.setupLogging(sc, quiet)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	a, err := newApp(sc, appOptions{withPanel: true})
	if err != nil {
		return err
	}
	errCh, err := a.start()
	if err != nil {
		return err
	}
	defer a.stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	feDone := make(chan error, 1)
	if fe != nil {
		go func() { feDone <- fe(a) }()
	}

	select {
	case <-ctx.Done():
		a.log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	case err := <-feDone:
		return err
	}
}

func newSnapshotCmd(gf *globalFlags) *cobra.Command {
	var (
		out     string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture one single-shot sweep and write it as PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := gf.load(cmd)
			if err != nil {
				return err
			}
			closer, err := gf.setupLogging(sc, false)
			if err != nil {
				return err
			}
			if closer != nil {
				defer closer.Close()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return snapshot(ctx, sc, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "scope.png", "PNG file to write")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "give up after this long")
	return cmd
}

func snapshot(ctx context.Context, sc config.ScopeConfig, out string) error {
	done := make(chan struct{}, 1)
	a, err := newApp(sc, appOptions{
		onSweep: func(res scope.SweepResult) {
			if res.From == scope.CapturedSingle && res.To == scope.Stopped {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	if _, err := a.start(); err != nil {
		return err
	}
	defer a.stop()

	if err := waitOnline(ctx, a.remote); err != nil {
		return err
	}
	if err := a.remote.SetRun(false); err != nil {
		return err
	}
	ok, err := a.remote.Single()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("single capture refused: no channel enabled")
	}

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for single sweep: %w", ctx.Err())
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := a.display.WritePNG(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	a.log.WithField("file", out).Info("snapshot written")
	return nil
}

func waitOnline(ctx context.Context, r *scope.Remote) error {
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		st, err := r.Status()
		if err != nil {
			return err
		}
		if st.Online {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for stream: %w", ctx.Err())
		case <-tick.C:
		}
	}
}
