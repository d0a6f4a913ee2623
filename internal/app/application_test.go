package app

import (
	"context"
	"testing"
	"time"

	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
)

func TestApplicationLifecycle(t *testing.T) {
	delays := latency.None()
	application, err := New(Options{
		Seed:   true,
		Delays: &delays,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		if err := application.Stop(ctx); err != nil {
			t.Fatalf("Stop: %v", err)
		}
	}()

	snap := application.Controller.Current()
	if !snap.Initialized {
		t.Fatal("controller not initialized after Start")
	}
	if snap.Admin != wallet.AliceAddress {
		t.Errorf("admin = %q, want Alice", snap.Admin)
	}

	// Seeded catalog is queryable through the lifecycle engine.
	p, err := application.Lifecycle.GetProduct(ctx, "1")
	if err != nil {
		t.Fatalf("GetProduct(1): %v", err)
	}
	if p.EventCount != 3 {
		t.Errorf("seeded EventCount = %d, want 3", p.EventCount)
	}
}

func TestApplicationWithSimulator(t *testing.T) {
	delays := latency.None()
	application, err := New(Options{
		Delays:            &delays,
		SimulatorEnabled:  true,
		SimulatorInterval: time.Millisecond,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if application.Controller.Current().Connected {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !application.Controller.Current().Connected {
		t.Fatal("simulator never connected the session")
	}

	if err := application.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestApplicationCustomAdmin(t *testing.T) {
	delays := latency.None()
	application, err := New(Options{
		AdminAddress: wallet.BobAddress,
		Delays:       &delays,
	}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer application.Stop(ctx)

	if got := application.Controller.Current().Admin; got != wallet.BobAddress {
		t.Errorf("admin = %q, want Bob", got)
	}
}
