package auction

import (
	"testing"
	"time"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// TestAuctionLifecycle runs the full flow over one auction: creation, a
// winning bid, a losing bid, an overtaking bid, and the timeout query before
// and after the inactivity window.
func TestAuctionLifecycle(t *testing.T) {
	e := newEnv(t)

	var id uint64

	t.Run("create", func(t *testing.T) {
		var err error
		id, err = e.reg.CreateAuction("Widget", 100)
		if err != nil {
			t.Fatalf("CreateAuction failed: %v", err)
		}
		if id != 1 {
			t.Fatalf("first auction id = %d, want 1", id)
		}
		bid, bidder, lastBidTime := e.leader(id)
		if bid != 100 || bidder.Sign() != 0 || lastBidTime != t0.Unix() {
			t.Fatalf("initial leader = (%d, %v, %d)", bid, bidder, lastBidTime)
		}
	})

	t.Run("first bid takes the lead", func(t *testing.T) {
		e.at(10 * time.Second)
		outcome := e.bid(id, 150, "alice")
		if got := e.decrypt(outcome, "alice").Int64(); got != 1 {
			t.Fatalf("alice's outcome = %d, want 1", got)
		}
		bid, bidder, _ := e.leader(id)
		if bid != 150 || bidder.Cmp(fhe.IdentityScalar("alice")) != 0 {
			t.Fatalf("leader = (%d, %v), want (150, alice)", bid, bidder)
		}
	})

	t.Run("lower bid is absorbed", func(t *testing.T) {
		e.at(20 * time.Second)
		outcome := e.bid(id, 120, "bob")
		if got := e.decrypt(outcome, "bob").Int64(); got != 0 {
			t.Fatalf("bob's outcome = %d, want 0", got)
		}
		bid, bidder, lastBidTime := e.leader(id)
		if bid != 150 || bidder.Cmp(fhe.IdentityScalar("alice")) != 0 {
			t.Fatalf("leader = (%d, %v), want alice unchanged", bid, bidder)
		}
		if lastBidTime != t0.Add(10*time.Second).Unix() {
			t.Fatalf("losing bid refreshed last bid time to %d", lastBidTime)
		}
	})

	t.Run("higher bid overtakes", func(t *testing.T) {
		e.at(30 * time.Second)
		outcome := e.bid(id, 200, "bob")
		if got := e.decrypt(outcome, "bob").Int64(); got != 1 {
			t.Fatalf("bob's outcome = %d, want 1", got)
		}
		bid, bidder, lastBidTime := e.leader(id)
		if bid != 200 || bidder.Cmp(fhe.IdentityScalar("bob")) != 0 {
			t.Fatalf("leader = (%d, %v), want (200, bob)", bid, bidder)
		}
		if lastBidTime != t0.Add(30*time.Second).Unix() {
			t.Fatalf("last bid time = %d, want %d", lastBidTime, t0.Add(30*time.Second).Unix())
		}
	})

	t.Run("not ended inside the window", func(t *testing.T) {
		e.at(100 * time.Second)
		ended, err := e.reg.CheckEnded(id, "alice")
		if err != nil {
			t.Fatalf("CheckEnded failed: %v", err)
		}
		if got := e.decrypt(ended, "alice").Int64(); got != 0 {
			t.Fatalf("ended = %d, want 0", got)
		}
	})

	t.Run("ended after the window", func(t *testing.T) {
		e.at(700 * time.Second)
		ended, err := e.reg.CheckEnded(id, "bob")
		if err != nil {
			t.Fatalf("CheckEnded failed: %v", err)
		}
		if got := e.decrypt(ended, "bob").Int64(); got != 1 {
			t.Fatalf("ended = %d, want 1", got)
		}
	})

	t.Run("notifications", func(t *testing.T) {
		if len(e.rec.created) != 1 || e.rec.created[0] != "Widget" {
			t.Errorf("creation events = %v", e.rec.created)
		}
		if e.rec.bidCount() != 3 {
			t.Errorf("bid events = %d, want 3", e.rec.bidCount())
		}
	})
}
