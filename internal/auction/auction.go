// auction.go - The Auction record and the core's closed error set.

package auction

import (
	"errors"
	"time"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// BidWindow is the fixed inactivity window after which CheckEnded reports an
// auction as ended. Not configurable per auction.
const BidWindow = 600 * time.Second

// CorePrincipal is the identity under which the orchestrator itself holds
// grants. Every handle the core must later compare or select against is
// granted to it immediately after the handle is produced.
const CorePrincipal fhe.Principal = "auction-core"

var (
	// ErrNotFound is returned for an auction id with no record. Ids are
	// never reused and records are never deleted, so absence is permanent
	// until a creation fills the id.
	ErrNotFound = errors.New("auction not found")
)

// Auction is the sole entity of the core. The three leader fields are only
// ever replaced together, by oblivious selection on the same condition.
type Auction struct {
	ID   uint64
	Name string

	// StartPrice is the encrypted initial leader value. Set once, never
	// mutated; kept so the start price remains decryptable on its own.
	StartPrice fhe.Handle

	// Leader fields. HighestBid always represents a value >= StartPrice.
	HighestBid    fhe.Handle
	HighestBidder fhe.Handle
	LastBidTime   fhe.Handle

	// CreatedAt is public and derived from the orchestrator's clock,
	// never from any caller.
	CreatedAt time.Time

	// startPrice is the plaintext the creator supplied, retained for
	// snapshots so restore can re-initialize the leader state.
	startPrice uint64
}
