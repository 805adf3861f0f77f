// Package fhe defines the encrypted-arithmetic capability the auction core
// is orchestrated against, together with a plaintext-simulating engine.
//
// Overview:
//   - Engine is an abstract capability: encrypt, import, add, compare,
//     oblivious select, grant, and out-of-band authorized decryption
//   - Handles are opaque; the orchestrator never touches plaintext
//   - Sealed bids are masked under a BLS12-377 Diffie-Hellman derived key
//     and proven well-formed with Groth16 over BW6-761 (gnark)
//   - SimEngine simulates arithmetic in memory but verifies real proofs and
//     enforces real capability grants, so orchestration behavior is faithful
//
// The real cryptographic backend is an external collaborator; nothing in
// this package defines how production ciphertexts are constructed.
package fhe
