package fhe

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/sw_bls12377"
	"github.com/consensys/gnark/std/hash/mimc"
)

// BidCircuit proves that a sealed bid is well-formed: the public commitment
// opens to the masked value, and the mask was derived from the engine's
// public key with the ephemeral scalar whose public point is published.
// Verified over BW6-761 so the BLS12-377 point arithmetic is native.
type BidCircuit struct {
	// ====== PUBLIC VARIABLES ======
	Commitment frontend.Variable    `gnark:",public"` // MiMC(value, salt)
	Masked     frontend.Variable    `gnark:",public"` // value + MiMC(encKey)
	G          sw_bls12377.G1Affine `gnark:",public"` // group generator
	EnginePub  sw_bls12377.G1Affine `gnark:",public"` // engine sealing key G^b
	EphPub     sw_bls12377.G1Affine `gnark:",public"` // sealer's G^r

	// ====== PRIVATE VARIABLES ======
	Value  frontend.Variable
	Salt   frontend.Variable
	R      frontend.Variable
	EncKey sw_bls12377.G1Affine // (G^b)^r
}

// Define implements the well-formedness constraints.
func (c *BidCircuit) Define(api frontend.API) error {
	hasher, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}

	// 1) Commitment = MiMC(value, salt)
	hasher.Reset()
	hasher.Write(c.Value)
	hasher.Write(c.Salt)
	api.AssertIsEqual(c.Commitment, hasher.Sum())

	// 2) Masked = value + MiMC(encKey.X, encKey.Y)
	hasher.Reset()
	hasher.Write(c.EncKey.X)
	hasher.Write(c.EncKey.Y)
	mask := hasher.Sum()
	api.AssertIsEqual(c.Masked, api.Add(c.Value, mask))

	// 3) EncKey = EnginePub^r
	encKey := new(sw_bls12377.G1Affine)
	encKey.ScalarMul(api, c.EnginePub, c.R)
	api.AssertIsEqual(c.EncKey.X, encKey.X)
	api.AssertIsEqual(c.EncKey.Y, encKey.Y)

	// 4) EphPub = G^r
	ephPub := new(sw_bls12377.G1Affine)
	ephPub.ScalarMul(api, c.G, c.R)
	api.AssertIsEqual(c.EphPub.X, ephPub.X)
	api.AssertIsEqual(c.EphPub.Y, ephPub.Y)

	return nil
}
