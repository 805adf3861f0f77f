// grants.go - Capability bookkeeping for ciphertext handles.
//
// The engine is the authority that enforces decryption rights; this table is
// the core's own record of what it has granted, kept so that re-granting is
// idempotent and so every mutation path can be audited. A handle replacement
// produces a fresh handle with an empty grant set: nothing carries over.

package auction

import (
	"sync"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// Grants maps ciphertext-handle identity to the set of authorized principals.
// Grants are never revoked; there is no revocation operation in this core.
type Grants struct {
	mu     sync.Mutex
	engine fhe.Engine
	table  map[fhe.Handle]map[fhe.Principal]struct{}
}

// NewGrants creates an empty grant table backed by the engine.
func NewGrants(engine fhe.Engine) *Grants {
	return &Grants{
		engine: engine,
		table:  make(map[fhe.Handle]map[fhe.Principal]struct{}),
	}
}

// Grant authorizes a principal on a handle. Granting the same pair twice has
// no additional effect and does not call into the engine again.
func (g *Grants) Grant(h fhe.Handle, p fhe.Principal) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	set, ok := g.table[h]
	if ok {
		if _, dup := set[p]; dup {
			return nil
		}
	} else {
		set = make(map[fhe.Principal]struct{})
	}
	if err := g.engine.Grant(h, p); err != nil {
		return err
	}
	g.table[h] = set
	set[p] = struct{}{}
	return nil
}

// GrantAll authorizes a principal on each handle, stopping at the first
// engine failure.
func (g *Grants) GrantAll(p fhe.Principal, handles ...fhe.Handle) error {
	for _, h := range handles {
		if err := g.Grant(h, p); err != nil {
			return err
		}
	}
	return nil
}

// Authorized reports whether the table records a grant for the pair. Used by
// tests and debugging surfaces; the engine remains the enforcement point.
func (g *Grants) Authorized(h fhe.Handle, p fhe.Principal) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.table[h][p]
	return ok
}
