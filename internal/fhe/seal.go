// seal.go - Client-side sealing of bids and the shared commitment/mask
// primitives. A sealed bid carries a MiMC commitment to the value, the value
// masked under a Diffie-Hellman derived key, and a Groth16 proof tying the
// two together; only the engine (holder of the sealing secret) can unmask.

package fhe

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12377 "github.com/consensys/gnark-crypto/ecc/bls12-377"
	bls12377_fr "github.com/consensys/gnark-crypto/ecc/bls12-377/fr"
	bw6_fr "github.com/consensys/gnark-crypto/ecc/bw6-761/fr"
	mimcNative "github.com/consensys/gnark-crypto/ecc/bw6-761/fr/mimc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
)

// scalarModulus is the BW6-761 scalar field order; all masked arithmetic and
// MiMC outputs live in this field.
var scalarModulus = ecc.BW6_761.ScalarField()

// generator returns the BLS12-377 G1 generator in affine form.
func generator() bls12377.G1Affine {
	_, _, g1Aff, _ := bls12377.Generators()
	return g1Aff
}

// feBytes canonicalizes a big.Int into one field-element block for MiMC.
func feBytes(v *big.Int) []byte {
	var e bw6_fr.Element
	e.SetBigInt(v)
	b := e.Bytes()
	return b[:]
}

// maskScalar derives the masking scalar from a shared curve point, using the
// same MiMC chain the circuit recomputes.
func maskScalar(p *bls12377.G1Affine) *big.Int {
	h := mimcNative.NewMiMC()
	xBytes := p.X.Bytes()
	yBytes := p.Y.Bytes()
	h.Write(xBytes[:])
	h.Write(yBytes[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}

// Commit computes the MiMC commitment to a value under a salt.
func Commit(value, salt *big.Int) *big.Int {
	h := mimcNative.NewMiMC()
	h.Write(feBytes(value))
	h.Write(feBytes(salt))
	return new(big.Int).SetBytes(h.Sum(nil))
}

// IdentityScalar maps a principal to a scalar so bidder identities can be
// encrypted like any other value. The zero scalar is reserved as the
// "no bidder" sentinel and is never produced for a real principal.
func IdentityScalar(p Principal) *big.Int {
	sum := sha256.Sum256([]byte(p))
	var e bw6_fr.Element
	e.SetBytes(sum[:])
	b := e.Bytes()
	h := mimcNative.NewMiMC()
	h.Write(b[:])
	return new(big.Int).SetBytes(h.Sum(nil))
}

// toCircuitPoint converts a native BLS12-377 point to the in-circuit
// representation (decimal coordinate strings).
func toCircuitPoint(p *bls12377.G1Affine) sw_bls12377.G1Affine {
	xBytes := p.X.Bytes()
	yBytes := p.Y.Bytes()
	return sw_bls12377.G1Affine{
		X: new(big.Int).SetBytes(xBytes[:]).String(),
		Y: new(big.Int).SetBytes(yBytes[:]).String(),
	}
}

// Sealer produces sealed bids for a specific engine. It is the client-side
// counterpart of Engine.Import: wallets and CLIs hold one, the core never does.
type Sealer struct {
	enginePub *bls12377.G1Affine
	pk        groth16.ProvingKey
	ccs       constraint.ConstraintSystem
}

// NewSealer creates a sealer bound to an engine's sealing key. The proving
// key and constraint system must match the engine's verifying key.
func NewSealer(enginePub *bls12377.G1Affine, pk groth16.ProvingKey, ccs constraint.ConstraintSystem) *Sealer {
	return &Sealer{enginePub: enginePub, pk: pk, ccs: ccs}
}

// Seal encrypts a bid value for submission and proves its well-formedness.
func (s *Sealer) Seal(value uint64) (*SealedBid, []byte, error) {
	v := new(big.Int).SetUint64(value)

	var salt bw6_fr.Element
	if _, err := salt.SetRandom(); err != nil {
		return nil, nil, fmt.Errorf("salt generation failed: %w", err)
	}
	saltBig := salt.BigInt(new(big.Int))

	var r bls12377_fr.Element
	if _, err := r.SetRandom(); err != nil {
		return nil, nil, fmt.Errorf("ephemeral scalar generation failed: %w", err)
	}
	rBig := r.BigInt(new(big.Int))

	gen := generator()
	var ephPub, encKey bls12377.G1Affine
	ephPub.ScalarMultiplication(&gen, rBig)
	encKey.ScalarMultiplication(s.enginePub, rBig)

	masked := new(big.Int).Add(v, maskScalar(&encKey))
	masked.Mod(masked, scalarModulus)

	sealed := &SealedBid{
		Commitment: Commit(v, saltBig),
		Masked:     masked,
		EphPub:     ephPub,
	}

	assignment := &BidCircuit{
		Commitment: sealed.Commitment,
		Masked:     sealed.Masked,
		G:          toCircuitPoint(&gen),
		EnginePub:  toCircuitPoint(s.enginePub),
		EphPub:     toCircuitPoint(&ephPub),
		Value:      v,
		Salt:       saltBig,
		R:          rBig,
		EncKey:     toCircuitPoint(&encKey),
	}
	witness, err := frontend.NewWitness(assignment, ecc.BW6_761.ScalarField())
	if err != nil {
		return nil, nil, fmt.Errorf("witness build failed: %w", err)
	}
	proof, err := groth16.Prove(s.ccs, s.pk, witness)
	if err != nil {
		return nil, nil, fmt.Errorf("proof generation failed: %w", err)
	}

	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, nil, fmt.Errorf("proof serialization failed: %w", err)
	}
	return sealed, buf.Bytes(), nil
}
