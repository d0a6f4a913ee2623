package lifecycle

import (
	"context"
	"testing"

	"github.com/PolkaTrace/trace_layer/internal/app/domain/product"
	"github.com/PolkaTrace/trace_layer/internal/app/latency"
	"github.com/PolkaTrace/trace_layer/internal/app/services/session"
	"github.com/PolkaTrace/trace_layer/internal/app/services/wallet"
	"github.com/PolkaTrace/trace_layer/internal/app/storage/memory"
	"github.com/PolkaTrace/trace_layer/internal/errors"
)

func newTestEngine(t *testing.T) (*Service, *session.Service, *memory.Store) {
	t.Helper()
	store := memory.New(wallet.AliceAddress)
	provider := wallet.NewSimulated(wallet.WithDelays(latency.None()))
	sess := session.New(provider, store, nil)
	svc := New(sess, store, nil, WithDelays(latency.None()))
	return svc, sess, store
}

func connectAs(t *testing.T, sess *session.Service, address string) {
	t.Helper()
	ctx := context.Background()
	if _, err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := sess.SelectActive(ctx, address); err != nil {
		t.Fatalf("SelectActive(%s): %v", address, err)
	}
}

func TestRegisterProduct(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()
	connectAs(t, sess, wallet.AliceAddress)

	p, err := svc.RegisterProduct(ctx, "Widget A")
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}
	if p.ID != "1" {
		t.Errorf("ID = %q, want %q", p.ID, "1")
	}
	if p.Owner != wallet.AliceAddress || p.Manufacturer != wallet.AliceAddress {
		t.Errorf("owner/manufacturer = %q/%q, want active address", p.Owner, p.Manufacturer)
	}
	if p.EventCount != 1 {
		t.Errorf("EventCount = %d, want 1", p.EventCount)
	}
}

func TestRegisterProduct_NoActiveIdentity(t *testing.T) {
	svc, _, _ := newTestEngine(t)

	_, err := svc.RegisterProduct(context.Background(), "Widget A")
	if errors.CodeOf(err) != errors.CodeUnauthenticated {
		t.Fatalf("code = %v, want unauthenticated", errors.CodeOf(err))
	}
}

func TestLogEvent_UnauthorizedAccount(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()

	connectAs(t, sess, wallet.AliceAddress)
	p, err := svc.RegisterProduct(ctx, "Widget A")
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}

	connectAs(t, sess, wallet.BobAddress)
	_, err = svc.LogEvent(ctx, p.ID, product.EventShipped)
	if errors.CodeOf(err) != errors.CodeUnauthorized {
		t.Fatalf("code = %v, want unauthorized", errors.CodeOf(err))
	}

	got, err := svc.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if got.EventCount != 1 {
		t.Errorf("EventCount after rejected event = %d, want 1", got.EventCount)
	}
}

func TestLogEvent_NotFound(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	connectAs(t, sess, wallet.AliceAddress)

	_, err := svc.LogEvent(context.Background(), "999", product.EventShipped)
	if errors.CodeOf(err) != errors.CodeNotFound {
		t.Fatalf("code = %v, want not_found", errors.CodeOf(err))
	}
}

func TestLogEvent_InvalidType(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()
	connectAs(t, sess, wallet.AliceAddress)

	p, err := svc.RegisterProduct(ctx, "Widget A")
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}

	_, err = svc.LogEvent(ctx, p.ID, product.EventType(42))
	if errors.CodeOf(err) != errors.CodeValidation {
		t.Fatalf("code = %v, want validation", errors.CodeOf(err))
	}
}

func TestLogEvent_ReceivedTransfersOwnership(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()

	connectAs(t, sess, wallet.AliceAddress)
	p, err := svc.RegisterProduct(ctx, "Widget A")
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}
	if err := svc.SetAuthorization(ctx, wallet.BobAddress, true); err != nil {
		t.Fatalf("SetAuthorization: %v", err)
	}

	connectAs(t, sess, wallet.BobAddress)
	updated, err := svc.LogEvent(ctx, p.ID, product.EventReceived)
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if updated.Owner != wallet.BobAddress {
		t.Errorf("owner = %q, want %q", updated.Owner, wallet.BobAddress)
	}
	if updated.Manufacturer != wallet.AliceAddress {
		t.Errorf("manufacturer = %q, want %q", updated.Manufacturer, wallet.AliceAddress)
	}
	if updated.EventCount != 2 {
		t.Errorf("EventCount = %d, want 2", updated.EventCount)
	}
}

func TestSetAuthorization_Preconditions(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()

	err := svc.SetAuthorization(ctx, wallet.BobAddress, true)
	if errors.CodeOf(err) != errors.CodeForbidden {
		t.Fatalf("code without identity = %v, want forbidden", errors.CodeOf(err))
	}

	connectAs(t, sess, wallet.BobAddress)
	err = svc.SetAuthorization(ctx, wallet.CharlieAddress, true)
	if errors.CodeOf(err) != errors.CodeForbidden {
		t.Fatalf("code as non-admin = %v, want forbidden", errors.CodeOf(err))
	}
}

func TestSetAuthorization_RevokeNeverAffectsAdmin(t *testing.T) {
	svc, sess, store := newTestEngine(t)
	ctx := context.Background()
	connectAs(t, sess, wallet.AliceAddress)

	if err := svc.SetAuthorization(ctx, wallet.AliceAddress, false); err != nil {
		t.Fatalf("SetAuthorization: %v", err)
	}
	ok, err := store.IsAuthorized(ctx, wallet.AliceAddress)
	if err != nil {
		t.Fatalf("IsAuthorized: %v", err)
	}
	if !ok {
		t.Error("admin lost authorization after revoke")
	}
}

func TestVerifyProduct(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()
	connectAs(t, sess, wallet.AliceAddress)

	p, err := svc.RegisterProduct(ctx, "Widget A")
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}

	ok, err := svc.VerifyProduct(ctx, p.ID)
	if err != nil || !ok {
		t.Errorf("VerifyProduct(%s) = %v, %v, want true", p.ID, ok, err)
	}
	ok, err = svc.VerifyProduct(ctx, "999")
	if err != nil {
		t.Fatalf("VerifyProduct: %v", err)
	}
	if ok {
		t.Error("VerifyProduct reported a missing product as present")
	}
}

// Full trace: Alice registers, Bob is rejected, admin grants Bob, Bob
// receives the product and becomes its owner.
func TestSupplyChainHandoff(t *testing.T) {
	svc, sess, _ := newTestEngine(t)
	ctx := context.Background()

	connectAs(t, sess, wallet.AliceAddress)
	p, err := svc.RegisterProduct(ctx, "Widget A")
	if err != nil {
		t.Fatalf("RegisterProduct: %v", err)
	}
	if p.ID != "1" || p.Owner != wallet.AliceAddress || p.EventCount != 1 {
		t.Fatalf("unexpected registration result: %+v", p)
	}

	connectAs(t, sess, wallet.BobAddress)
	if _, err := svc.LogEvent(ctx, p.ID, product.EventShipped); errors.CodeOf(err) != errors.CodeUnauthorized {
		t.Fatalf("code = %v, want unauthorized", errors.CodeOf(err))
	}

	connectAs(t, sess, wallet.AliceAddress)
	if err := svc.SetAuthorization(ctx, wallet.BobAddress, true); err != nil {
		t.Fatalf("SetAuthorization: %v", err)
	}

	connectAs(t, sess, wallet.BobAddress)
	updated, err := svc.LogEvent(ctx, p.ID, product.EventReceived)
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if updated.Owner != wallet.BobAddress || updated.EventCount != 2 {
		t.Fatalf("handoff result = %+v, want owner Bob with 2 events", updated)
	}
}
