package session

import (
	"context"
	"testing"

	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
	"github.com/PolkaTrace/trace_layer/internal/app/storage/memory"
	"github.com/PolkaTrace/trace_layer/internal/errors"
)

func newService() (*Service, *memory.Store) {
	store := memory.New(wallet.AliceAddress)
	provider := wallet.NewSimulated(wallet.WithDelays(latency.None()))
	return New(provider, store, nil), store
}

func TestConnect(t *testing.T) {
	svc, _ := newService()

	accounts, err := svc.Connect(context.Background())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if len(accounts) != 4 {
		t.Fatalf("accounts = %d, want 4", len(accounts))
	}
	if !svc.IsConnected() {
		t.Fatalf("session should be connected")
	}

	// Reconnect replaces the list rather than appending.
	again, err := svc.Connect(context.Background())
	if err != nil {
		t.Fatalf("reconnect: %v", err)
	}
	if len(again) != 4 || len(svc.Connected()) != 4 {
		t.Fatalf("reconnect should replace the roster")
	}
}

func TestConnect_ProviderUnavailable(t *testing.T) {
	store := memory.New(wallet.AliceAddress)
	svc := New(wallet.Unavailable{}, store, nil)

	if _, err := svc.Connect(context.Background()); errors.CodeOf(err) != errors.CodeConnection {
		t.Fatalf("expected connection error, got %v", err)
	}
	if svc.IsConnected() {
		t.Fatalf("failed connect must leave session disconnected")
	}
}

func TestConnect_NoProvider(t *testing.T) {
	store := memory.New(wallet.AliceAddress)
	svc := New(nil, store, nil)

	if _, err := svc.Connect(context.Background()); errors.CodeOf(err) != errors.CodeConnection {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestSelectActive(t *testing.T) {
	svc, _ := newService()
	svc.Connect(context.Background())

	selected, err := svc.SelectActive(context.Background(), wallet.BobAddress)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if selected.Name != "Bob" {
		t.Fatalf("selected %q, want Bob", selected.Name)
	}
	if svc.Balance() != "500000000000" {
		t.Fatalf("balance = %q, want Bob's tabled balance", svc.Balance())
	}

	active, ok := svc.Active()
	if !ok || active.Address != wallet.BobAddress {
		t.Fatalf("active identity not recorded")
	}
}

func TestSelectActive_Unknown(t *testing.T) {
	svc, _ := newService()
	svc.Connect(context.Background())

	if _, err := svc.SelectActive(context.Background(), "5Nobody"); errors.CodeOf(err) != errors.CodeUnknownIdentity {
		t.Fatalf("expected unknown_identity, got %v", err)
	}
}

func TestDerivedFlags(t *testing.T) {
	svc, store := newService()
	svc.Connect(context.Background())

	// No active identity: both flags false, not errors.
	if admin, _ := svc.IsAdmin(context.Background()); admin {
		t.Fatalf("admin flag without active identity")
	}
	if authz, _ := svc.IsAuthorized(context.Background()); authz {
		t.Fatalf("authorized flag without active identity")
	}

	svc.SelectActive(context.Background(), wallet.AliceAddress)
	if admin, _ := svc.IsAdmin(context.Background()); !admin {
		t.Fatalf("Alice is the admin")
	}
	if authz, _ := svc.IsAuthorized(context.Background()); !authz {
		t.Fatalf("admin is always authorized")
	}

	svc.SelectActive(context.Background(), wallet.BobAddress)
	if authz, _ := svc.IsAuthorized(context.Background()); authz {
		t.Fatalf("Bob starts unauthorized")
	}
	store.Authorize(context.Background(), wallet.BobAddress)
	if authz, _ := svc.IsAuthorized(context.Background()); !authz {
		t.Fatalf("authorization should be recomputed from the store")
	}
}

func TestDisconnect_Idempotent(t *testing.T) {
	svc, _ := newService()
	svc.Connect(context.Background())
	svc.SelectActive(context.Background(), wallet.AliceAddress)

	for i := 0; i < 2; i++ {
		svc.Disconnect(context.Background())
		if svc.IsConnected() {
			t.Fatalf("round %d: still connected", i)
		}
		if _, ok := svc.Active(); ok {
			t.Fatalf("round %d: active identity survived disconnect", i)
		}
		if len(svc.Connected()) != 0 {
			t.Fatalf("round %d: roster survived disconnect", i)
		}
		if svc.Balance() != "0" {
			t.Fatalf("round %d: balance = %q, want reset", i, svc.Balance())
		}
	}
}
