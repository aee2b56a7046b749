// Package proof defines the submission format accepted by the verification
// gateway: a Groth16-style proof vector, Pedersen commitment vector,
// commitment proof-of-knowledge vector, and the public-input vector the proof
// attests to. Elements use the EVM calldata convention of one 256-bit
// big-endian word per field element.
package proof

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Errors returned by submission validation.
var (
	ErrArityMismatch = errors.New("proof: vector arity mismatch")
	ErrNilElement    = errors.New("proof: nil element")
	ErrNotInField    = errors.New("proof: element not in field")
)

// Params fixes the vector arities for a proof scheme. Arity is a property of
// the scheme, not of an individual call: a gateway configured for one scheme
// rejects submissions with any other shape.
type Params struct {
	// ProofLen is the number of 256-bit words in the proof vector.
	// For an uncompressed BN254 Groth16 proof this is 8 (A, B, C in
	// EIP-197 encoding).
	ProofLen int

	// CommitmentLen is the number of words in the commitment vector
	// (two per Pedersen commitment point).
	CommitmentLen int

	// PokLen is the number of words in the commitment proof-of-knowledge
	// vector.
	PokLen int

	// PublicInputLen is the number of public-input field elements the
	// scheme's circuit exposes.
	PublicInputLen int
}

// Groth16BN254Params returns the arities for an uncompressed BN254 Groth16
// proof with a single Pedersen commitment, parameterized by the circuit's
// public-input count.
func Groth16BN254Params(publicInputLen int) Params {
	return Params{
		ProofLen:       8,
		CommitmentLen:  2,
		PokLen:         2,
		PublicInputLen: publicInputLen,
	}
}

// Validate checks that the params themselves are well formed.
func (p Params) Validate() error {
	if p.ProofLen <= 0 {
		return fmt.Errorf("proof: proof length must be positive, got %d", p.ProofLen)
	}
	if p.CommitmentLen < 0 || p.PokLen < 0 {
		return fmt.Errorf("proof: commitment/pok lengths must be non-negative")
	}
	if p.PublicInputLen < 0 {
		return fmt.Errorf("proof: public input length must be non-negative")
	}
	return nil
}

// Submission is one proof submission. It is ephemeral: the gateway never
// retains it beyond the call that carries it.
type Submission struct {
	// Proof holds the proof points as 256-bit words: A.X, A.Y, B.X1, B.X0,
	// B.Y1, B.Y0, C.X, C.Y for the Groth16 scheme.
	Proof []*big.Int

	// Commitments holds the Pedersen commitment point coordinates.
	Commitments []*big.Int

	// Pok holds the proof-of-knowledge point coordinates for the
	// commitments.
	Pok []*big.Int

	// PublicInputs holds the statement the proof attests to, as scalar
	// field elements.
	PublicInputs []*big.Int
}

// CheckShape validates the submission against the scheme params: exact
// arities, no nil elements, proof/commitment/pok words below the base field
// modulus and public inputs below the scalar field modulus. It reads no
// state and performs no cryptography.
func (p Params) CheckShape(s *Submission) error {
	if s == nil {
		return fmt.Errorf("%w: nil submission", ErrArityMismatch)
	}
	if len(s.Proof) != p.ProofLen {
		return fmt.Errorf("%w: proof has %d words, want %d", ErrArityMismatch, len(s.Proof), p.ProofLen)
	}
	if len(s.Commitments) != p.CommitmentLen {
		return fmt.Errorf("%w: commitments have %d words, want %d", ErrArityMismatch, len(s.Commitments), p.CommitmentLen)
	}
	if len(s.Pok) != p.PokLen {
		return fmt.Errorf("%w: pok has %d words, want %d", ErrArityMismatch, len(s.Pok), p.PokLen)
	}
	if len(s.PublicInputs) != p.PublicInputLen {
		return fmt.Errorf("%w: public inputs have %d elements, want %d", ErrArityMismatch, len(s.PublicInputs), p.PublicInputLen)
	}

	baseMod := fp.Modulus()
	for i, sets := range [][]*big.Int{s.Proof, s.Commitments, s.Pok} {
		name := [...]string{"proof", "commitments", "pok"}[i]
		for j, e := range sets {
			if e == nil {
				return fmt.Errorf("%w: %s[%d]", ErrNilElement, name, j)
			}
			if e.Sign() < 0 || e.Cmp(baseMod) >= 0 {
				return fmt.Errorf("%w: %s[%d] not below base field modulus", ErrNotInField, name, j)
			}
		}
	}

	scalarMod := fr.Modulus()
	for j, e := range s.PublicInputs {
		if e == nil {
			return fmt.Errorf("%w: public_inputs[%d]", ErrNilElement, j)
		}
		if e.Sign() < 0 || e.Cmp(scalarMod) >= 0 {
			return fmt.Errorf("%w: public_inputs[%d] not below scalar field modulus", ErrNotInField, j)
		}
	}

	return nil
}
