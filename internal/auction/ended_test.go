package auction

import (
	"testing"
	"time"
)

func TestCheckEndedBeforeAndAfterWindow(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.at(10 * time.Second)
	e.bid(id, 150, "alice")

	e.at(100 * time.Second)
	ended, err := e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 0 {
		t.Errorf("ended 90s into the window = %d, want 0", got)
	}

	e.at(700 * time.Second)
	ended, err = e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 1 {
		t.Errorf("ended 690s after the last bid = %d, want 1", got)
	}
}

func TestCheckEndedAtExactDeadline(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	// lastBidTime + window <= now is inclusive: exactly 600s after
	// creation the flag flips.
	e.at(BidWindow)
	ended, err := e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 1 {
		t.Errorf("ended at the exact deadline = %d, want 1", got)
	}

	e.at(BidWindow - time.Second)
	ended, err = e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 0 {
		t.Errorf("ended one second before the deadline = %d, want 0", got)
	}
}

func TestCheckEndedRecomputedNotCached(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.at(700 * time.Second)
	ended, err := e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 1 {
		t.Fatalf("ended after the window = %d, want 1", got)
	}

	// A late bid refreshes the last-bid time; the next query flips back.
	e.bid(id, 150, "bob")
	ended, err = e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 0 {
		t.Errorf("ended right after a late bid = %d, want 0", got)
	}
}

func TestCheckEndedGrantsOnlyCaller(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	ended, err := e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if _, err := e.engine.RequestDecrypt(ended, "bob"); err == nil {
		t.Error("ended flag decryptable by a principal other than the caller")
	}
}

func TestLosingBidDoesNotExtendWindow(t *testing.T) {
	e := newEnv(t)

	id, err := e.reg.CreateAuction("Widget", 100)
	if err != nil {
		t.Fatalf("CreateAuction failed: %v", err)
	}

	e.at(10 * time.Second)
	e.bid(id, 150, "alice")

	// A losing bid leaves the encrypted last-bid time at alice's.
	e.at(500 * time.Second)
	e.bid(id, 120, "bob")

	e.at(10*time.Second + BidWindow)
	ended, err := e.reg.CheckEnded(id, "alice")
	if err != nil {
		t.Fatalf("CheckEnded failed: %v", err)
	}
	if got := e.decrypt(ended, "alice").Int64(); got != 1 {
		t.Errorf("ended after alice's window despite bob's losing bid = %d, want 1", got)
	}
}
