// ended.go - Pull-only timeout finalizer.

package auction

import (
	"fmt"
	"math/big"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// CheckEnded derives an encrypted "ended" flag from the encrypted last-bid
// time and the fixed inactivity window, evaluated against the clock at call
// time. Nothing is cached and no state transitions: two calls at different
// times can disagree, and bids remain acceptable after the window elapses
// unless the surrounding system chooses to reject them using this signal.
// The result is granted to the caller.
func (r *Registry) CheckEnded(id uint64, caller fhe.Principal) (fhe.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.lookup(id)
	if err != nil {
		return fhe.Handle{}, err
	}

	window, err := r.engine.Encrypt(big.NewInt(int64(BidWindow.Seconds())))
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("encrypt window: %w", err)
	}
	deadline, err := r.engine.Add(a.LastBidTime, window)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("compute deadline: %w", err)
	}
	encNow, err := r.engine.Encrypt(big.NewInt(r.now().Unix()))
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("encrypt current time: %w", err)
	}
	ended, err := r.engine.CompareLessOrEqual(deadline, encNow)
	if err != nil {
		return fhe.Handle{}, fmt.Errorf("compare deadline: %w", err)
	}
	if err := r.grants.Grant(ended, caller); err != nil {
		return fhe.Handle{}, fmt.Errorf("grant caller on ended flag: %w", err)
	}
	return ended, nil
}
