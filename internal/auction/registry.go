// registry.go - Owned store for auction records.
//
// The registry holds the only mutable shared state of the core: the dense id
// counter and the auction-by-id map. It is an explicitly owned object passed
// to every operation; there is no package-level singleton. The surrounding
// host is assumed to serialize mutating calls (a total order), but the
// registry carries its own lock so in-process use is safe regardless.

package auction

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sync"
	"time"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// Registry owns the auction map and id counter and orchestrates every
// operation through the engine, the grant table, and the notifier.
type Registry struct {
	mu       sync.Mutex
	engine   fhe.Engine
	grants   *Grants
	notifier Notifier
	now      func() time.Time
	nextID   uint64
	auctions map[uint64]*Auction
}

// NewRegistry creates an empty registry. Ids are assigned densely from 1.
func NewRegistry(engine fhe.Engine, notifier Notifier) *Registry {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Registry{
		engine:   engine,
		grants:   NewGrants(engine),
		notifier: notifier,
		now:      time.Now,
		nextID:   1,
		auctions: make(map[uint64]*Auction),
	}
}

// SetClock replaces the registry's clock. For tests.
func (r *Registry) SetClock(now func() time.Time) {
	r.now = now
}

// Grants exposes the grant table, mainly for inspection in tests.
func (r *Registry) Grants() *Grants {
	return r.grants
}

// CreateAuction allocates the next id, encrypts the start price, the
// no-bidder sentinel, and the current time, and authorizes the core on all
// resulting handles so future comparisons and selects are permitted.
// The start price is supplied in plaintext by the creator and is therefore
// not confidential relative to the creator; it is re-encrypted immediately
// so every later comparison is uniform.
func (r *Registry) CreateAuction(name string, startPrice uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	if err := r.create(id, name, startPrice, r.now()); err != nil {
		return 0, err
	}
	r.nextID++

	r.notifier.AuctionCreated(id, name)
	return id, nil
}

// create encrypts the initial leader state and inserts the record under id.
// Caller holds r.mu.
func (r *Registry) create(id uint64, name string, startPrice uint64, createdAt time.Time) error {
	start, err := r.engine.Encrypt(new(big.Int).SetUint64(startPrice))
	if err != nil {
		return fmt.Errorf("encrypt start price: %w", err)
	}
	highestBid, err := r.engine.Encrypt(new(big.Int).SetUint64(startPrice))
	if err != nil {
		return fmt.Errorf("encrypt highest bid: %w", err)
	}
	noBidder, err := r.engine.Encrypt(big.NewInt(0))
	if err != nil {
		return fmt.Errorf("encrypt no-bidder sentinel: %w", err)
	}
	lastBidTime, err := r.engine.Encrypt(big.NewInt(createdAt.Unix()))
	if err != nil {
		return fmt.Errorf("encrypt creation time: %w", err)
	}
	if err := r.grants.GrantAll(CorePrincipal, start, highestBid, noBidder, lastBidTime); err != nil {
		return fmt.Errorf("grant core on initial handles: %w", err)
	}

	r.auctions[id] = &Auction{
		ID:            id,
		Name:          name,
		StartPrice:    start,
		HighestBid:    highestBid,
		HighestBidder: noBidder,
		LastBidTime:   lastBidTime,
		CreatedAt:     createdAt,
		startPrice:    startPrice,
	}
	return nil
}

// lookup resolves an id. Caller holds r.mu.
func (r *Registry) lookup(id uint64) (*Auction, error) {
	a, ok := r.auctions[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return a, nil
}

// AuctionInfo returns the public fields of an auction.
func (r *Registry) AuctionInfo(id uint64) (name string, createdAt time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.lookup(id)
	if err != nil {
		return "", time.Time{}, err
	}
	return a.Name, a.CreatedAt, nil
}

// EncryptedHighestBid returns the current leader value handle. Read-only:
// no decryption capability is granted by this query.
func (r *Registry) EncryptedHighestBid(id uint64) (fhe.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.lookup(id)
	if err != nil {
		return fhe.Handle{}, err
	}
	return a.HighestBid, nil
}

// EncryptedHighestBidder returns the current leader identity handle.
// Read-only: no decryption capability is granted by this query.
func (r *Registry) EncryptedHighestBidder(id uint64) (fhe.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, err := r.lookup(id)
	if err != nil {
		return fhe.Handle{}, err
	}
	return a.HighestBidder, nil
}

// Snapshot is the durable, public portion of the registry: the counter and
// the public auction fields. Encrypted handles are engine-resident and are
// deliberately absent.
type Snapshot struct {
	NextID   uint64           `json:"next_id"`
	Auctions []SnapshotRecord `json:"auctions"`
}

// SnapshotRecord is one auction's public record. The start price is kept in
// plaintext: it is creator-supplied and needed to re-initialize the leader
// state on restore.
type SnapshotRecord struct {
	ID         uint64    `json:"id"`
	Name       string    `json:"name"`
	StartPrice uint64    `json:"start_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// Snapshot captures the public registry state.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := &Snapshot{NextID: r.nextID}
	for id := uint64(1); id < r.nextID; id++ {
		a := r.auctions[id]
		s.Auctions = append(s.Auctions, SnapshotRecord{
			ID:         a.ID,
			Name:       a.Name,
			StartPrice: a.startPrice,
			CreatedAt:  a.CreatedAt,
		})
	}
	return s
}

// Restore rebuilds a fresh registry from a snapshot written by a previous
// run. The id counter continues where the previous run stopped, so ids are
// never reused across restarts. Ciphertext handles are engine-resident and
// do not survive the engine; each auction's leader state is re-initialized
// from its start price. No creation events are emitted.
func (r *Registry) Restore(snap *Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nextID != 1 || len(r.auctions) != 0 {
		return fmt.Errorf("restore into non-empty registry")
	}
	if snap.NextID != uint64(len(snap.Auctions))+1 {
		return fmt.Errorf("snapshot counter %d does not match %d records", snap.NextID, len(snap.Auctions))
	}
	for i, rec := range snap.Auctions {
		if rec.ID != uint64(i)+1 {
			return fmt.Errorf("snapshot ids not dense: record %d has id %d", i, rec.ID)
		}
		if err := r.create(rec.ID, rec.Name, rec.StartPrice, rec.CreatedAt); err != nil {
			return fmt.Errorf("restore auction %d: %w", rec.ID, err)
		}
	}
	r.nextID = snap.NextID
	return nil
}

// SaveToFile writes the snapshot as indented JSON. Overwrites the file.
func (s *Snapshot) SaveToFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// LoadSnapshotFromFile reads a snapshot written by SaveToFile.
func LoadSnapshotFromFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var s Snapshot
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
