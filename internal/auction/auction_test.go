package auction

import (
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// Groth16 setup is expensive; every test in the package shares one engine.
var (
	engineOnce sync.Once
	sharedEng  *fhe.SimEngine
	sharedSeal *fhe.Sealer
	engineErr  error
)

func sharedEngine(t *testing.T) (*fhe.SimEngine, *fhe.Sealer) {
	t.Helper()
	engineOnce.Do(func() {
		dir, err := os.MkdirTemp("", "auction-test-keys-")
		if err != nil {
			engineErr = err
			return
		}
		sharedEng, engineErr = fhe.NewSimEngine(dir)
		if engineErr == nil {
			sharedSeal = sharedEng.Sealer()
		}
	})
	if engineErr != nil {
		t.Fatalf("engine setup failed: %v", engineErr)
	}
	return sharedEng, sharedSeal
}

// recorder captures emitted notifications.
type recorder struct {
	mu      sync.Mutex
	created []string
	bids    []fhe.Principal
}

func (r *recorder) AuctionCreated(id uint64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, name)
}

func (r *recorder) BidSubmitted(id uint64, caller fhe.Principal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bids = append(r.bids, caller)
}

func (r *recorder) bidCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bids)
}

// env bundles a registry over the shared engine with a controllable clock.
type env struct {
	t      *testing.T
	engine *fhe.SimEngine
	sealer *fhe.Sealer
	reg    *Registry
	rec    *recorder
	now    time.Time
}

var t0 = time.Unix(1_700_000_000, 0)

func newEnv(t *testing.T) *env {
	t.Helper()
	engine, sealer := sharedEngine(t)
	e := &env{
		t:      t,
		engine: engine,
		sealer: sealer,
		rec:    &recorder{},
		now:    t0,
	}
	e.reg = NewRegistry(engine, e.rec)
	e.reg.SetClock(func() time.Time { return e.now })
	return e
}

func (e *env) at(offset time.Duration) {
	e.now = t0.Add(offset)
}

func (e *env) seal(value uint64) (*fhe.SealedBid, []byte) {
	e.t.Helper()
	sealed, proof, err := e.sealer.Seal(value)
	if err != nil {
		e.t.Fatalf("Seal(%d) failed: %v", value, err)
	}
	return sealed, proof
}

func (e *env) bid(id uint64, value uint64, caller fhe.Principal) fhe.Handle {
	e.t.Helper()
	sealed, proof := e.seal(value)
	h, err := e.reg.Bid(id, sealed, proof, caller)
	if err != nil {
		e.t.Fatalf("Bid(%d, %d, %s) failed: %v", id, value, caller, err)
	}
	return h
}

func (e *env) decrypt(h fhe.Handle, p fhe.Principal) *big.Int {
	e.t.Helper()
	v, err := e.engine.RequestDecrypt(h, p)
	if err != nil {
		e.t.Fatalf("RequestDecrypt as %s failed: %v", p, err)
	}
	return v
}

// leader decrypts the three leader fields under the core principal.
func (e *env) leader(id uint64) (bid int64, bidder *big.Int, lastBidTime int64) {
	e.t.Helper()
	hb, err := e.reg.EncryptedHighestBid(id)
	if err != nil {
		e.t.Fatalf("EncryptedHighestBid failed: %v", err)
	}
	hbr, err := e.reg.EncryptedHighestBidder(id)
	if err != nil {
		e.t.Fatalf("EncryptedHighestBidder failed: %v", err)
	}
	a, err := e.reg.record(id)
	if err != nil {
		e.t.Fatalf("auction lookup failed: %v", err)
	}
	return e.decrypt(hb, CorePrincipal).Int64(),
		e.decrypt(hbr, CorePrincipal),
		e.decrypt(a.LastBidTime, CorePrincipal).Int64()
}

// record grabs the full auction record for white-box assertions.
func (r *Registry) record(id uint64) (*Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(id)
}
