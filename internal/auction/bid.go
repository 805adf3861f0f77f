// bid.go - Bid evaluation.
//
// The central confidentiality property lives here: the outcome of the
// encrypted comparison is never inspected or branched upon. Every submission
// performs the same sequence of engine calls; only the engine knows, inside
// its own ciphertexts, which operand each select returned.

package auction

import (
	"fmt"
	"math/big"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// Bid imports an externally sealed bid, compares it against the current
// leader, and replaces the three leader fields by oblivious selection on the
// same encrypted condition. The returned handle is the encrypted boolean
// "this bid became the leader"; it is granted to the caller along with the
// three updated fields. A bid equal to the current leader does not displace
// it: first accepted at a value wins.
//
// Either every effect commits (triple replacement, grants, notification) or
// none does; a failed import or engine call leaves the auction untouched.
func (r *Registry) Bid(id uint64, sealed *fhe.SealedBid, proof []byte, caller fhe.Principal) (fhe.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.lookup(id)
	if err != nil {
		return fhe.Handle{}, err
	}

	encBid, err := r.engine.Import(sealed, proof)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("bid import: %w", err)
	}

	isHighest, err := r.engine.CompareGreater(encBid, a.HighestBid)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("bid comparison: %w", err)
	}

	encCaller, err := r.engine.Encrypt(fhe.IdentityScalar(caller))
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("encrypt caller identity: %w", err)
	}
	encNow, err := r.engine.Encrypt(big.NewInt(r.now().Unix()))
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("encrypt bid time: %w", err)
	}

	// Three independent selects, all gated by the same condition handle.
	newBid, err := r.engine.ObliviousSelect(isHighest, encBid, a.HighestBid)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("select highest bid: %w", err)
	}
	newBidder, err := r.engine.ObliviousSelect(isHighest, encCaller, a.HighestBidder)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("select highest bidder: %w", err)
	}
	newTime, err := r.engine.ObliviousSelect(isHighest, encNow, a.LastBidTime)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("select last bid time: %w", err)
	}

	// Fresh handles carry no grants: re-authorize the core for future
	// comparisons and the caller for local decryption of the outcome and
	// the leader state.
	if err := r.grants.GrantAll(CorePrincipal, newBid, newBidder, newTime); err != nil {
		return fhe.Handle{}, fmt.Errorf("re-grant core: %w", err)
	}
	if err := r.grants.GrantAll(caller, isHighest, newBid, newBidder, newTime); err != nil {
		return fhe.Handle{}, fmt.Errorf("grant caller: %w", err)
	}

	// Atomic triple replacement: all three or none.
	a.HighestBid = newBid
	a.HighestBidder = newBidder
	a.LastBidTime = newTime

	r.notifier.BidSubmitted(id, caller)
	return isHighest, nil
}
