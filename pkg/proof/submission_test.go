package proof

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() *Submission {
	return &Submission{
		Proof:        bigs(1, 2, 3, 4, 5, 6, 7, 8),
		Commitments:  bigs(9, 10),
		Pok:          bigs(11, 12),
		PublicInputs: bigs(42),
	}
}

// TestCheckShapeValid tests that a well-formed submission passes.
func TestCheckShapeValid(t *testing.T) {
	params := Groth16BN254Params(1)
	require.NoError(t, params.Validate())
	assert.NoError(t, params.CheckShape(validSubmission()))
}

// TestCheckShapeArity tests arity enforcement on every vector.
func TestCheckShapeArity(t *testing.T) {
	params := Groth16BN254Params(1)

	tests := []struct {
		name   string
		mutate func(*Submission)
	}{
		{"nil submission", nil},
		{"short proof", func(s *Submission) { s.Proof = s.Proof[:7] }},
		{"long proof", func(s *Submission) { s.Proof = append(s.Proof, big.NewInt(1)) }},
		{"short commitments", func(s *Submission) { s.Commitments = s.Commitments[:1] }},
		{"short pok", func(s *Submission) { s.Pok = nil }},
		{"wrong input count", func(s *Submission) { s.PublicInputs = bigs(1, 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s *Submission
			if tt.mutate != nil {
				s = validSubmission()
				tt.mutate(s)
			}
			assert.ErrorIs(t, params.CheckShape(s), ErrArityMismatch)
		})
	}
}

// TestCheckShapeFieldBounds tests that out-of-field elements are rejected:
// base field for proof material, scalar field for public inputs.
func TestCheckShapeFieldBounds(t *testing.T) {
	params := Groth16BN254Params(1)

	s := validSubmission()
	s.Proof[3] = new(big.Int).Set(fp.Modulus())
	assert.ErrorIs(t, params.CheckShape(s), ErrNotInField)

	s = validSubmission()
	s.Commitments[0] = new(big.Int).Neg(big.NewInt(1))
	assert.ErrorIs(t, params.CheckShape(s), ErrNotInField)

	s = validSubmission()
	s.PublicInputs[0] = new(big.Int).Set(fr.Modulus())
	assert.ErrorIs(t, params.CheckShape(s), ErrNotInField)

	// fr modulus is a valid base-field element, so it is fine in the proof
	// vector even though it is out of range as a public input.
	s = validSubmission()
	s.Proof[0] = new(big.Int).Set(fr.Modulus())
	assert.NoError(t, params.CheckShape(s))
}

// TestCheckShapeNilElement tests nil element rejection.
func TestCheckShapeNilElement(t *testing.T) {
	params := Groth16BN254Params(1)

	s := validSubmission()
	s.Pok[1] = nil
	assert.ErrorIs(t, params.CheckShape(s), ErrNilElement)

	s = validSubmission()
	s.PublicInputs[0] = nil
	assert.ErrorIs(t, params.CheckShape(s), ErrNilElement)
}

// TestParamsValidate tests scheme param sanity checks.
func TestParamsValidate(t *testing.T) {
	assert.Error(t, Params{ProofLen: 0}.Validate())
	assert.Error(t, Params{ProofLen: 8, CommitmentLen: -1}.Validate())
	assert.Error(t, Params{ProofLen: 8, PublicInputLen: -1}.Validate())
	assert.NoError(t, Groth16BN254Params(1747).Validate())
}
