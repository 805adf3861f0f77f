package auction

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

func TestHigherBidTakesLead(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.at(10 * time.Second)
	outcome := e.bid(id, 150, "alice")

	if got := e.decrypt(outcome, "alice").Int64(); got != 1 {
		t.Errorf("outcome = %d, want 1 for a bid above the start price", got)
	}

	bid, bidder, lastBidTime := e.leader(id)
	if bid != 150 {
		t.Errorf("highest bid = %d, want 150", bid)
	}
	if bidder.Cmp(fhe.IdentityScalar("alice")) != 0 {
		t.Errorf("highest bidder = %v, want alice's scalar", bidder)
	}
	if lastBidTime != t0.Add(10*time.Second).Unix() {
		t.Errorf("last bid time = %d, want %d", lastBidTime, t0.Add(10*time.Second).Unix())
	}
}

func TestLowerBidKeepsIncumbent(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.at(10 * time.Second)
	e.bid(id, 150, "alice")

	e.at(20 * time.Second)
	outcome := e.bid(id, 120, "bob")

	if got := e.decrypt(outcome, "bob").Int64(); got != 0 {
		t.Errorf("outcome = %d, want 0 for a losing bid", got)
	}

	bid, bidder, lastBidTime := e.leader(id)
	if bid != 150 {
		t.Errorf("highest bid = %d, want incumbent 150", bid)
	}
	if bidder.Cmp(fhe.IdentityScalar("alice")) != 0 {
		t.Errorf("highest bidder changed, want alice's scalar, got %v", bidder)
	}
	if lastBidTime != t0.Add(10*time.Second).Unix() {
		t.Errorf("last bid time = %d, want alice's %d", lastBidTime, t0.Add(10*time.Second).Unix())
	}
}

func TestEqualBidKeepsIncumbent(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.at(10 * time.Second)
	e.bid(id, 150, "alice")

	// Strict comparison: a tie does not displace the leader.
	e.at(20 * time.Second)
	outcome := e.bid(id, 150, "bob")
	if got := e.decrypt(outcome, "bob").Int64(); got != 0 {
		t.Errorf("outcome = %d, want 0 for a tie", got)
	}

	_, bidder, lastBidTime := e.leader(id)
	if bidder.Cmp(fhe.IdentityScalar("alice")) != 0 {
		t.Errorf("tie displaced the leader: bidder = %v", bidder)
	}
	if lastBidTime != t0.Add(10*time.Second).Unix() {
		t.Errorf("tie refreshed last bid time to %d", lastBidTime)
	}
}

func TestBidBelowStartPrice(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	outcome := e.bid(id, 100, "alice")
	if got := e.decrypt(outcome, "alice").Int64(); got != 0 {
		t.Errorf("outcome = %d, want 0 for a bid at the start price", got)
	}

	bid, bidder, _ := e.leader(id)
	if bid != 100 || bidder.Sign() != 0 {
		t.Errorf("leader = (%d, %v), want untouched (100, 0)", bid, bidder)
	}
}

func TestTripleUpdateReplacesHandles(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	before, err := e.reg.record(id)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	oldBid, oldBidder, oldTime := before.HighestBid, before.HighestBidder, before.LastBidTime

	// Even a losing bid must replace all three handles so observers cannot
	// tell the outcome apart from a winning one.
	e.bid(id, 50, "bob")

	after, err := e.reg.record(id)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if after.HighestBid == oldBid {
		t.Error("highest bid handle was not replaced")
	}
	if after.HighestBidder == oldBidder {
		t.Error("highest bidder handle was not replaced")
	}
	if after.LastBidTime == oldTime {
		t.Error("last bid time handle was not replaced")
	}
}

func TestBidGrantsCallerOnLeaderState(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.bid(id, 150, "alice")

	hb, err := e.reg.EncryptedHighestBid(id)
	if err != nil {
		t.Fatalf("EncryptedHighestBid failed: %v", err)
	}
	if got := e.decrypt(hb, "alice").Int64(); got != 150 {
		t.Errorf("alice decrypts highest bid to %d, want 150", got)
	}
	if _, err := e.engine.RequestDecrypt(hb, "bob"); !errors.Is(err, fhe.ErrNotAuthorized) {
		t.Errorf("non-bidder decrypting leader state: expected ErrNotAuthorized, got %v", err)
	}
}

func TestRejectedImportLeavesStateUnchanged(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}
	e.bid(id, 150, "alice")
	submitted := e.rec.bidCount()

	before, err := e.reg.record(id)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	oldBid, oldBidder, oldTime := before.HighestBid, before.HighestBidder, before.LastBidTime

	sealed, _ := e.seal(500)
	tampered := &fhe.SealedBid{
		Commitment: sealed.Commitment,
		Masked:     new(big.Int).Add(sealed.Masked, big.NewInt(1)),
		EphPub:     sealed.EphPub,
	}
	_, proof := e.seal(500)
	if _, err := e.reg.Bid(id, tampered, proof, "mallory"); !errors.Is(err, fhe.ErrImportRejected) {
		t.Fatalf("expected ErrImportRejected, got %v", err)
	}

	after, err := e.reg.record(id)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if after.HighestBid != oldBid || after.HighestBidder != oldBidder || after.LastBidTime != oldTime {
		t.Error("rejected import mutated the leader handles")
	}
	bid, bidder, _ := e.leader(id)
	if bid != 150 || bidder.Cmp(fhe.IdentityScalar("alice")) != 0 {
		t.Errorf("leader after rejected import = (%d, %v), want (150, alice)", bid, bidder)
	}
	if e.rec.bidCount() != submitted {
		t.Error("rejected import emitted a bid notification")
	}
}

func TestConcurrentAuctionsIndependent(t *testing.T) {
	e := newEnv(t)

	first, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}
	second, err := e.reg.CreateAuction("Gadget", 50)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.bid(first, 150, "alice")
	e.bid(second, 60, "bob")

	bid1, bidder1, _ := e.leader(first)
	bid2, bidder2, _ := e.leader(second)
	if bid1 != 150 || bidder1.Cmp(fhe.IdentityScalar("alice")) != 0 {
		t.Errorf("auction %d leader = (%d, %v)", first, bid1, bidder1)
	}
	if bid2 != 60 || bidder2.Cmp(fhe.IdentityScalar("bob")) != 0 {
		t.Errorf("auction %d leader = (%d, %v)", second, bid2, bidder2)
	}
}
