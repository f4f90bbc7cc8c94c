package main

import (
	"context"
	"time"

	"oscope-go/pkg/config"
	"oscope-go/pkg/erpc"
	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
	"oscope-go/pkg/panel"
	"oscope-go/pkg/reactor"
	"oscope-go/pkg/render"
	"oscope-go/pkg/scope"
	"oscope-go/pkg/transport"
)

// app is one running client: the reactor owns the controller, everything
// else reaches it through remote.
type app struct {
	cfg config.ScopeConfig
	log *log.Logger

	reactor *reactor.Reactor
	display *render.Display
	metrics *metrics.ScopeMetrics
	rpc     *erpc.Client
	ctl     *scope.Controller
	remote  *scope.Remote
	client  *transport.Client

	panel      *panel.Server
	metricsSrv *metrics.MetricsServer
}

type appOptions struct {
	// withPanel serves the HTTP control panel on cfg.PanelAddr.
	withPanel bool

	onSweep func(scope.SweepResult)
}

func newApp(cfg config.ScopeConfig, opts appOptions) (*app, error) {
	display, err := render.NewDisplay(cfg.CanvasWidth, cfg.CanvasHeight)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		log:     log.GetLogger("oscope"),
		reactor: reactor.New(),
		display: display,
		metrics: metrics.NewScopeMetrics(),
	}
	a.rpc = erpc.New(erpc.Config{
		URL:     cfg.RPCURL,
		Logger:  log.GetLogger("erpc"),
		Metrics: a.metrics,
	})
	a.ctl = scope.NewController(scope.ControllerConfig{
		Settings: cfg.Settings(),
		Device:   a.rpc,
		Surface:  display,
		Logger:   log.GetLogger("scope"),
		Metrics:  a.metrics,
		OnSweep:  opts.onSweep,
	})
	a.remote = scope.NewRemote(a.reactor, a.ctl)

	tc := transport.DefaultConfig(cfg.Endpoint)
	tc.ReconnectDelay = cfg.ReconnectDelay
	tc.Logger = log.GetLogger("transport")
	tc.Metrics = a.metrics
	a.client = transport.New(a.reactor, a.ctl, tc)

	if opts.withPanel && cfg.PanelAddr != "" {
		a.panel = panel.New(panel.Config{
			Addr:    cfg.PanelAddr,
			Scope:   a.remote,
			Display: display,
			Metrics: a.metrics,
			Logger:  log.GetLogger("panel"),
		})
	}
	if cfg.MetricsAddr != "" {
		a.metricsSrv = metrics.NewMetricsServer(a.metrics, cfg.MetricsAddr)
	}
	return a, nil
}

// start runs the reactor, opens the stream and starts the servers. Server
// failures are reported on the returned channel.
func (a *app) start() (<-chan error, error) {
	errCh := make(chan error, 2)
	a.reactor.Run()
	if err := a.client.Start(); err != nil {
		return nil, err
	}
	a.log.WithFields(log.Fields{
		"endpoint": a.cfg.Endpoint,
		"rpc":      a.cfg.RPCURL,
	}).Info("scope client started")

	if a.panel != nil {
		go func() {
			if err := a.panel.Start(); err != nil {
				errCh <- err
			}
		}()
	}
	if a.metricsSrv != nil {
		go func() {
			if err := a.metricsSrv.Start(); err != nil {
				errCh <- err
			}
		}()
	}
	return errCh, nil
}

// stop tears everything down in reverse order.
func (a *app) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.panel != nil {
		if err := a.panel.Stop(ctx); err != nil {
			a.log.WithError(err).Warn("panel shutdown")
		}
	}
	if a.metricsSrv != nil {
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.log.WithError(err).Warn("metrics shutdown")
		}
	}
	a.client.Stop()
	a.reactor.End()
	a.reactor.Wait()
	a.rpc.Close()
	a.log.Info("scope client stopped")
}
