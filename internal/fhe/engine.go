// engine.go - Capability interface for the external encrypted-arithmetic engine.
//
// The orchestration core never sees plaintext: it holds opaque ciphertext
// handles and asks the engine for arithmetic, comparison, oblivious selection,
// and capability grants. Decryption is an out-of-band, authorized request.

package fhe

import (
	"errors"
	"math/big"

	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	"github.com/google/uuid"
)

// Principal identifies a party that may be granted decryption rights on a
// ciphertext handle. The core itself operates under its own principal.
type Principal string

// Handle is an opaque reference to an encrypted value held by the engine.
// Every engine operation that produces a value produces a fresh handle, so
// capability grants can never survive a replacement by accident.
type Handle struct {
	id uuid.UUID
}

// IsZero reports whether h is the zero handle (no value).
func (h Handle) IsZero() bool {
	return h.id == uuid.UUID{}
}

func (h Handle) String() string {
	return h.id.String()
}

// ParseHandle parses the string form produced by Handle.String. The zero
// handle is rejected: the engine never issues it.
func ParseHandle(s string) (Handle, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return Handle{}, err
	}
	h := Handle{id: id}
	if h.IsZero() {
		return Handle{}, errors.New("zero handle")
	}
	return h, nil
}

func newHandle() Handle {
	return Handle{id: uuid.New()}
}

// SealedBid is an externally produced ciphertext submitted by a bidder.
// The value is masked under a key derived from the engine's public key and
// the sealer's ephemeral scalar; the commitment binds the value so the
// accompanying proof can attest well-formedness without revealing it.
type SealedBid struct {
	Commitment *big.Int          // MiMC(value, salt)
	Masked     *big.Int          // value + mask(encKey), in the scalar field
	EphPub     bls12377.G1Affine // G^r, the sealer's ephemeral public point
}

var (
	// ErrImportRejected is returned when a sealed bid's well-formedness
	// proof does not verify. The submission is discarded whole.
	ErrImportRejected = errors.New("import rejected: well-formedness proof invalid")

	// ErrUnknownHandle is returned for a handle the engine never issued.
	ErrUnknownHandle = errors.New("unknown ciphertext handle")

	// ErrNotAuthorized is returned by RequestDecrypt when the principal
	// holds no grant for the handle.
	ErrNotAuthorized = errors.New("principal not authorized for handle")
)

// Engine is the encrypted-arithmetic capability the auction core is built
// against. All operations except RequestDecrypt are total given valid
// handles; RequestDecrypt enforces capability grants and is the only path
// that ever materializes plaintext.
type Engine interface {
	// Encrypt produces a handle for a plaintext value the core already
	// holds (start prices, identities, timestamps).
	Encrypt(value *big.Int) (Handle, error)

	// Import validates an externally sealed bid against its proof and, on
	// success, issues an internal handle for it. Fails closed.
	Import(ext *SealedBid, proof []byte) (Handle, error)

	// Add returns a handle for the sum of the two operands.
	Add(a, b Handle) (Handle, error)

	// CompareGreater returns a handle for the encrypted boolean a > b.
	CompareGreater(a, b Handle) (Handle, error)

	// CompareLessOrEqual returns a handle for the encrypted boolean a <= b.
	CompareLessOrEqual(a, b Handle) (Handle, error)

	// ObliviousSelect returns ifTrue or ifFalse according to the encrypted
	// condition, without revealing which branch was taken.
	ObliviousSelect(cond, ifTrue, ifFalse Handle) (Handle, error)

	// Grant authorizes a principal to later decrypt the handle. Idempotent.
	Grant(h Handle, p Principal) error

	// RequestDecrypt returns the plaintext of a handle to an authorized
	// principal. Out-of-band with respect to auction operations.
	RequestDecrypt(h Handle, p Principal) (*big.Int, error)
}
