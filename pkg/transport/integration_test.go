package transport_test

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"oscope-go/pkg/erpc"
	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
	"oscope-go/pkg/mockdevice"
	"oscope-go/pkg/reactor"
	"oscope-go/pkg/render"
	"oscope-go/pkg/scope"
	"oscope-go/pkg/transport"
)

// TestEndToEnd runs the full client against the simulated device: the
// stream opens, parameters are pushed, sweeps are drawn, and stopping
// turns the device channels off.
func TestEndToEnd(t *testing.T) {
	devCfg := mockdevice.DefaultConfig()
	devCfg.SweepInterval = 5 * time.Millisecond
	devCfg.Logger = log.Discard()
	dev := mockdevice.New(devCfg)
	srv := httptest.NewServer(dev.Handler())
	defer srv.Close()
	defer dev.Close()

	display, err := render.NewDisplay(680, 480)
	if err != nil {
		t.Fatalf("NewDisplay: %v", err)
	}
	sm := metrics.NewScopeMetrics()
	rpc := erpc.New(erpc.Config{URL: srv.URL + "/erpc", Logger: log.Discard(), Metrics: sm})
	defer rpc.Close()

	r := reactor.New()
	r.Run()
	defer func() {
		r.End()
		r.Wait()
	}()

	sweeps := make(chan scope.SweepResult, 1024)
	st := scope.DefaultSettings()
	st.HScaleIndex = 1 // 200us
	ctrl := scope.NewController(scope.ControllerConfig{
		Settings: st,
		Device:   rpc,
		Surface:  display,
		Logger:   log.Discard(),
		Metrics:  sm,
		OnSweep: func(res scope.SweepResult) {
			select {
			case sweeps <- res:
			default:
			}
		},
	})

	cfg := transport.DefaultConfig("ws" + strings.TrimPrefix(srv.URL, "http") + "/websocket")
	cfg.Logger = log.Discard()
	cfg.Metrics = sm
	client := transport.New(r, ctrl, cfg)
	if err := client.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer client.Stop()

	deadline := time.After(5 * time.Second)
	for drawn := 0; drawn < 3; {
		select {
		case res := <-sweeps:
			if res.Drawn[0] && res.Drawn[1] {
				drawn++
			}
		case <-deadline:
			t.Fatal("no sweeps drawn")
		}
	}
	if dev.Hscale() != 200 {
		t.Errorf("device hscale = %d, want 200", dev.Hscale())
	}

	rm := scope.NewRemote(r, ctrl)
	if err := rm.SetRun(false); err != nil {
		t.Fatalf("SetRun: %v", err)
	}
	waitUntil(t, func() bool { return dev.Channels() == [2]bool{} })

	ok, err := rm.Single()
	if err != nil || !ok {
		t.Fatalf("Single = %v, %v", ok, err)
	}
	waitUntil(t, func() bool {
		s, err := rm.Status()
		return err == nil && s.Mode == "stopped"
	})
	waitUntil(t, func() bool { return dev.Channels() == [2]bool{} })

	if got := sm.FramesTotal.Get(metrics.Labels{"kind": "data"}); got == 0 {
		t.Error("no data frames counted")
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
