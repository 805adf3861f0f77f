package auction

import (
	"errors"
	"math/big"
	"testing"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

func TestGrantIdempotent(t *testing.T) {
	e := newEnv(t)
	g := NewGrants(e.engine)

	h, err := e.engine.Encrypt(big.NewInt(7))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if err := g.Grant(h, "alice"); err != nil {
		t.Fatalf("first Grant failed: %v", err)
	}
	if err := g.Grant(h, "alice"); err != nil {
		t.Fatalf("repeated Grant failed: %v", err)
	}
	if !g.Authorized(h, "alice") {
		t.Error("table missing recorded grant")
	}
	if g.Authorized(h, "bob") {
		t.Error("table reports grant never made")
	}
}

func TestGrantUnknownHandle(t *testing.T) {
	e := newEnv(t)
	g := NewGrants(e.engine)

	var bogus fhe.Handle
	if err := g.Grant(bogus, "alice"); !errors.Is(err, fhe.ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
	// Failed engine calls must not be recorded.
	if g.Authorized(bogus, "alice") {
		t.Error("failed grant was recorded in the table")
	}
}

func TestGrantAllStopsAtFirstFailure(t *testing.T) {
	e := newEnv(t)
	g := NewGrants(e.engine)

	good, err := e.engine.Encrypt(big.NewInt(1))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	var bogus fhe.Handle

	if err := g.GrantAll("alice", good, bogus); !errors.Is(err, fhe.ErrUnknownHandle) {
		t.Errorf("expected ErrUnknownHandle, got %v", err)
	}
	if !g.Authorized(good, "alice") {
		t.Error("grant preceding the failure was not recorded")
	}
}

func TestReplacementHandlesCarryNoGrants(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.bid(id, 150, "alice")
	afterAlice, err := e.reg.EncryptedHighestBid(id)
	if err != nil {
		t.Fatalf("EncryptedHighestBid failed: %v", err)
	}

	// Bob's bid replaces the leader handles; alice's old grant must not
	// follow the state forward.
	e.bid(id, 200, "bob")
	afterBob, err := e.reg.EncryptedHighestBid(id)
	if err != nil {
		t.Fatalf("EncryptedHighestBid failed: %v", err)
	}
	if afterBob == afterAlice {
		t.Fatal("leader handle was not replaced")
	}
	if _, err := e.engine.RequestDecrypt(afterBob, "alice"); !errors.Is(err, fhe.ErrNotAuthorized) {
		t.Errorf("alice's grant survived a handle replacement: %v", err)
	}
	// Her grant on the superseded handle remains; grants are never revoked.
	if got := e.decrypt(afterAlice, "alice").Int64(); got != 150 {
		t.Errorf("old handle decrypts to %d, want 150", got)
	}
}
