package verifier

import (
	"context"
	"fmt"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/proofgate/proofgate/pkg/proof"
)

// Groth16 verifies BN254 Groth16 proofs against a fixed verifying key.
//
// The submission vectors are decoded into curve points (with on-curve and
// subgroup checks) and handed to the gnark verifier. The backend is
// stateless: a fresh instance with the same key accepts exactly the same
// proofs.
type Groth16 struct {
	vk     *groth16bn254.VerifyingKey
	params proof.Params
}

// NewGroth16 creates a verifier backend from a gnark verifying key. The key
// must be a BN254 key; the scheme's public-input arity is derived from it.
func NewGroth16(vk groth16.VerifyingKey) (*Groth16, error) {
	concrete, ok := vk.(*groth16bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("%w: verifying key type %T", ErrUnsupportedScheme, vk)
	}
	return &Groth16{
		vk:     concrete,
		params: proof.Groth16BN254Params(vk.NbPublicWitness()),
	}, nil
}

// LoadVerifyingKey reads a BN254 Groth16 verifying key from disk, as written
// by WriteVerifyingKey or by gnark's own serialization.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verifying key: %w", err)
	}
	defer f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read verifying key %s: %w", path, err)
	}
	return vk, nil
}

// WriteVerifyingKey serializes a verifying key to disk.
func WriteVerifyingKey(vk groth16.VerifyingKey, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create verifying key file: %w", err)
	}
	if _, err := vk.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write verifying key: %w", err)
	}
	return f.Close()
}

// Params implements Verifier.
func (g *Groth16) Params() proof.Params {
	return g.params
}

// Verify implements Verifier. It rebuilds the proof points from the
// submission vectors and runs the pairing check against the public inputs.
// Undecodable points (off-curve, wrong subgroup, out-of-range coordinates)
// are rejections, not internal errors: they mean the submission cannot be a
// valid proof under this key.
func (g *Groth16) Verify(ctx context.Context, sub *proof.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p, err := DecodeProof(sub.Proof, sub.Commitments, sub.Pok)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProofRejected, err)
	}

	publicWitness := make(fr.Vector, len(sub.PublicInputs))
	for i, x := range sub.PublicInputs {
		if x == nil {
			return fmt.Errorf("%w: nil public input %d", ErrProofRejected, i)
		}
		publicWitness[i].SetBigInt(x)
	}

	if err := groth16bn254.Verify(p, g.vk, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofRejected, err)
	}
	return nil
}
