// events.go - Notification surface of the core.
//
// Notifications carry auction id, public name, and caller identity only;
// never any value information, encrypted or otherwise.

package auction

import "github.com/0xjingxuanli/fhe-auction/internal/fhe"

// Notifier receives the two events the core emits. Implementations must not
// block auction operations for long; publishing failures are theirs to handle.
type Notifier interface {
	AuctionCreated(id uint64, name string)
	BidSubmitted(id uint64, caller fhe.Principal)
}

// NopNotifier discards all events.
type NopNotifier struct{}

func (NopNotifier) AuctionCreated(uint64, string)      {}
func (NopNotifier) BidSubmitted(uint64, fhe.Principal) {}
