package verifier

import (
	"fmt"
	"math/big"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"

	"github.com/proofgate/proofgate/pkg/proof"
)

// wordLen is the encoded size of one field element in bytes.
const wordLen = 32

// g1FromWords reconstructs an affine G1 point from two 256-bit coordinate
// words. The point is checked to be on the curve and in the correct
// subgroup.
func g1FromWords(p *bn254.G1Affine, x, y *big.Int) error {
	var buf [2 * wordLen]byte
	if err := putWord(buf[0:wordLen], x); err != nil {
		return err
	}
	if err := putWord(buf[wordLen:], y); err != nil {
		return err
	}
	return p.Unmarshal(buf[:])
}

// g2FromWords reconstructs an affine G2 point from four coordinate words in
// EVM pairing-precompile order: X imaginary, X real, Y imaginary, Y real.
func g2FromWords(p *bn254.G2Affine, x1, x0, y1, y0 *big.Int) error {
	var buf [4 * wordLen]byte
	for i, w := range []*big.Int{x1, x0, y1, y0} {
		if err := putWord(buf[i*wordLen:(i+1)*wordLen], w); err != nil {
			return err
		}
	}
	return p.Unmarshal(buf[:])
}

func putWord(dst []byte, w *big.Int) error {
	if w == nil {
		return proof.ErrNilElement
	}
	if w.Sign() < 0 || w.BitLen() > 8*wordLen {
		return fmt.Errorf("%w: coordinate out of range", proof.ErrNotInField)
	}
	w.FillBytes(dst)
	return nil
}

func wordFromElement(b [wordLen]byte) *big.Int {
	return new(big.Int).SetBytes(b[:])
}

func allZero(words []*big.Int) bool {
	for _, w := range words {
		if w != nil && w.Sign() != 0 {
			return false
		}
	}
	return true
}

// DecodeProof rebuilds a BN254 Groth16 proof from submission vectors. The
// proof vector carries A, B, C in EIP-197 encoding; the commitment and pok
// vectors carry the Pedersen commitment points, two words per point.
// All-zero commitment and pok vectors decode to a proof without commitments,
// which is how circuits with no committed witnesses are submitted.
func DecodeProof(proofVec, commitments, pok []*big.Int) (*groth16bn254.Proof, error) {
	if len(proofVec) != 8 {
		return nil, fmt.Errorf("%w: proof vector has %d words, want 8", proof.ErrArityMismatch, len(proofVec))
	}

	var p groth16bn254.Proof
	if err := g1FromWords(&p.Ar, proofVec[0], proofVec[1]); err != nil {
		return nil, fmt.Errorf("decode A: %w", err)
	}
	if err := g2FromWords(&p.Bs, proofVec[2], proofVec[3], proofVec[4], proofVec[5]); err != nil {
		return nil, fmt.Errorf("decode B: %w", err)
	}
	if err := g1FromWords(&p.Krs, proofVec[6], proofVec[7]); err != nil {
		return nil, fmt.Errorf("decode C: %w", err)
	}

	if allZero(commitments) && allZero(pok) {
		return &p, nil
	}

	if len(commitments)%2 != 0 {
		return nil, fmt.Errorf("%w: commitment vector has odd length %d", proof.ErrArityMismatch, len(commitments))
	}
	if len(pok) != 2 {
		return nil, fmt.Errorf("%w: pok vector has %d words, want 2", proof.ErrArityMismatch, len(pok))
	}

	p.Commitments = make([]bn254.G1Affine, len(commitments)/2)
	for i := range p.Commitments {
		if err := g1FromWords(&p.Commitments[i], commitments[2*i], commitments[2*i+1]); err != nil {
			return nil, fmt.Errorf("decode commitment %d: %w", i, err)
		}
	}
	if err := g1FromWords(&p.CommitmentPok, pok[0], pok[1]); err != nil {
		return nil, fmt.Errorf("decode pok: %w", err)
	}

	return &p, nil
}

// EncodeProof flattens a BN254 Groth16 proof into submission vectors of the
// given arities, padding absent commitments with zero words. This is the
// prover-side counterpart of DecodeProof and exists mainly for clients and
// tests that feed gnark proofs into the gateway.
func EncodeProof(p groth16.Proof, params proof.Params) (*proof.Submission, error) {
	concrete, ok := p.(*groth16bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedScheme, p)
	}

	proofVec := []*big.Int{
		wordFromElement(concrete.Ar.X.Bytes()),
		wordFromElement(concrete.Ar.Y.Bytes()),
		wordFromElement(concrete.Bs.X.A1.Bytes()),
		wordFromElement(concrete.Bs.X.A0.Bytes()),
		wordFromElement(concrete.Bs.Y.A1.Bytes()),
		wordFromElement(concrete.Bs.Y.A0.Bytes()),
		wordFromElement(concrete.Krs.X.Bytes()),
		wordFromElement(concrete.Krs.Y.Bytes()),
	}
	if len(proofVec) != params.ProofLen {
		return nil, fmt.Errorf("%w: scheme expects %d proof words", proof.ErrArityMismatch, params.ProofLen)
	}

	commitments := make([]*big.Int, 0, params.CommitmentLen)
	for i := range concrete.Commitments {
		commitments = append(commitments,
			wordFromElement(concrete.Commitments[i].X.Bytes()),
			wordFromElement(concrete.Commitments[i].Y.Bytes()),
		)
	}
	if len(commitments) > params.CommitmentLen {
		return nil, fmt.Errorf("%w: proof carries %d commitment words, scheme allows %d",
			proof.ErrArityMismatch, len(commitments), params.CommitmentLen)
	}
	for len(commitments) < params.CommitmentLen {
		commitments = append(commitments, new(big.Int))
	}

	pok := make([]*big.Int, 0, params.PokLen)
	if len(concrete.Commitments) > 0 {
		pok = append(pok,
			wordFromElement(concrete.CommitmentPok.X.Bytes()),
			wordFromElement(concrete.CommitmentPok.Y.Bytes()),
		)
	}
	if len(pok) > params.PokLen {
		return nil, fmt.Errorf("%w: pok exceeds scheme arity", proof.ErrArityMismatch)
	}
	for len(pok) < params.PokLen {
		pok = append(pok, new(big.Int))
	}

	return &proof.Submission{
		Proof:       proofVec,
		Commitments: commitments,
		Pok:         pok,
	}, nil
}
