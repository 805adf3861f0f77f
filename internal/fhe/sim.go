// sim.go - Plaintext-simulating engine.
//
// Implements the Engine capability over an in-memory handle table so the
// auction core can be exercised without a real cryptographic backend. Import
// verification is not simulated: sealed bids are checked against real Groth16
// proofs, and decryption enforces the capability table, so the access-control
// and well-formedness behavior matches what a production engine would do.

package fhe

import (
	"bytes"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
)

// SimEngine is a plaintext-simulating Engine. Values live in an in-memory
// table keyed by handle; the table is the only place plaintext exists.
type SimEngine struct {
	mu     sync.Mutex
	values map[Handle]*big.Int
	acl    map[Handle]map[Principal]struct{}

	sk bls12377_fr.Element // sealing secret b
	pk bls12377.G1Affine   // sealing key G^b

	ccs          constraint.ConstraintSystem
	provingKey   groth16.ProvingKey
	verifyingKey groth16.VerifyingKey
}

// NewSimEngine creates a simulated engine with a fresh sealing keypair.
// Groth16 keys for the bid circuit are loaded from keyDir or generated there.
func NewSimEngine(keyDir string) (*SimEngine, error) {
	ccs, err := CompileBidCircuit()
	if err != nil {
		return nil, fmt.Errorf("bid circuit compilation failed: %w", err)
	}
	pk, vk, err := SetupOrLoadKeys(ccs, keyDir)
	if err != nil {
		return nil, fmt.Errorf("bid circuit key setup failed: %w", err)
	}

	e := &SimEngine{
		values:       make(map[Handle]*big.Int),
		acl:          make(map[Handle]map[Principal]struct{}),
		ccs:          ccs,
		provingKey:   pk,
		verifyingKey: vk,
	}
	if _, err := e.sk.SetRandom(); err != nil {
		return nil, fmt.Errorf("sealing keygen failed: %w", err)
	}
	gen := generator()
	e.pk.ScalarMultiplication(&gen, e.sk.BigInt(new(big.Int)))
	return e, nil
}

// PublicKey returns the engine's sealing key G^b. Sealers need it.
func (e *SimEngine) PublicKey() *bls12377.G1Affine {
	return &e.pk
}

// ProvingKey returns the Groth16 proving key for the bid circuit, for
// sealers sharing the engine's key directory.
func (e *SimEngine) ProvingKey() groth16.ProvingKey {
	return e.provingKey
}

// ConstraintSystem returns the compiled bid circuit.
func (e *SimEngine) ConstraintSystem() constraint.ConstraintSystem {
	return e.ccs
}

// Sealer returns a client-side sealer bound to this engine.
func (e *SimEngine) Sealer() *Sealer {
	return NewSealer(&e.pk, e.provingKey, e.ccs)
}

// store registers a fresh handle for a value. Caller holds e.mu.
func (e *SimEngine) store(v *big.Int) Handle {
	h := newHandle()
	e.values[h] = new(big.Int).Mod(v, scalarModulus)
	return h
}

// value resolves a handle. Caller holds e.mu.
func (e *SimEngine) value(h Handle) (*big.Int, error) {
	v, ok := e.values[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	return v, nil
}

// Encrypt implements Engine.
func (e *SimEngine) Encrypt(value *big.Int) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store(value), nil
}

// Import implements Engine. The proof is verified against the sealed bid's
// public inputs; a failure rejects the submission without issuing a handle.
func (e *SimEngine) Import(ext *SealedBid, proofBytes []byte) (Handle, error) {
	proof := groth16.NewProof(ecc.BW6_761)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return Handle{}, fmt.Errorf("%w: cannot unmarshal proof", ErrImportRejected)
	}

	gen := generator()
	public := &BidCircuit{
		Commitment: ext.Commitment,
		Masked:     ext.Masked,
		G:          toCircuitPoint(&gen),
		EnginePub:  toCircuitPoint(&e.pk),
		EphPub:     toCircuitPoint(&ext.EphPub),
	}
	witness, err := frontend.NewWitness(public, ecc.BW6_761.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return Handle{}, fmt.Errorf("%w: cannot build public witness", ErrImportRejected)
	}
	if err := groth16.Verify(proof, e.verifyingKey, witness); err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrImportRejected, err)
	}

	// Unmask: shared = EphPub^b, value = masked - MiMC(shared).
	var shared bls12377.G1Affine
	shared.ScalarMultiplication(&ext.EphPub, e.sk.BigInt(new(big.Int)))
	v := new(big.Int).Sub(ext.Masked, maskScalar(&shared))
	v.Mod(v, scalarModulus)

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store(v), nil
}

// Add implements Engine.
func (e *SimEngine) Add(a, b Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	av, err := e.value(a)
	if err != nil {
		return Handle{}, err
	}
	bv, err := e.value(b)
	if err != nil {
		return Handle{}, err
	}
	return e.store(new(big.Int).Add(av, bv)), nil
}

// CompareGreater implements Engine: result decrypts to 1 if a > b, else 0.
func (e *SimEngine) CompareGreater(a, b Handle) (Handle, error) {
	return e.compare(a, b, func(cmp int) bool { return cmp > 0 })
}

// CompareLessOrEqual implements Engine: result decrypts to 1 if a <= b, else 0.
func (e *SimEngine) CompareLessOrEqual(a, b Handle) (Handle, error) {
	return e.compare(a, b, func(cmp int) bool { return cmp <= 0 })
}

func (e *SimEngine) compare(a, b Handle, pred func(int) bool) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	av, err := e.value(a)
	if err != nil {
		return Handle{}, err
	}
	bv, err := e.value(b)
	if err != nil {
		return Handle{}, err
	}
	out := big.NewInt(0)
	if pred(av.Cmp(bv)) {
		out.SetInt64(1)
	}
	return e.store(out), nil
}

// ObliviousSelect implements Engine. The condition handle must decrypt to
// 0 or 1; any nonzero value selects ifTrue.
func (e *SimEngine) ObliviousSelect(cond, ifTrue, ifFalse Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cv, err := e.value(cond)
	if err != nil {
		return Handle{}, err
	}
	tv, err := e.value(ifTrue)
	if err != nil {
		return Handle{}, err
	}
	fv, err := e.value(ifFalse)
	if err != nil {
		return Handle{}, err
	}
	if cv.Sign() != 0 {
		return e.store(tv), nil
	}
	return e.store(fv), nil
}

// Grant implements Engine. Granting twice is a no-op.
func (e *SimEngine) Grant(h Handle, p Principal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.value(h); err != nil {
		return err
	}
	set, ok := e.acl[h]
	if !ok {
		set = make(map[Principal]struct{})
		e.acl[h] = set
	}
	set[p] = struct{}{}
	return nil
}

// RequestDecrypt implements Engine. Rejects principals without a grant.
func (e *SimEngine) RequestDecrypt(h Handle, p Principal) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, err := e.value(h)
	if err != nil {
		return nil, err
	}
	if _, ok := e.acl[h][p]; !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotAuthorized, p, h)
	}
	return new(big.Int).Set(v), nil
}
