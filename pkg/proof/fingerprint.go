package proof

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// DigestSize is the fingerprint length in bytes.
const DigestSize = 32

// ErrInvalidDigest is returned when parsing a malformed fingerprint string.
var ErrInvalidDigest = errors.New("proof: invalid fingerprint")

// Digest is a 256-bit proof fingerprint: the replay-protection key for one
// proof artifact.
type Digest [DigestSize]byte

// Hex returns the lowercase hex encoding of the digest.
func (d Digest) Hex() string {
	return hex.EncodeToString(d[:])
}

// String implements fmt.Stringer.
func (d Digest) String() string {
	return d.Hex()
}

// ParseDigest parses a 64-character hex fingerprint, with or without a 0x
// prefix.
func ParseDigest(s string) (Digest, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s) != DigestSize*2 {
		return Digest{}, ErrInvalidDigest
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Digest{}, ErrInvalidDigest
	}
	var d Digest
	copy(d[:], raw)
	return d, nil
}

// Fingerprint computes the replay-protection digest of a proof artifact:
// Keccak-256 over the proof, commitment, and proof-of-knowledge vectors,
// each element encoded as a 32-byte big-endian word in submission order.
//
// The public-input vector is deliberately not part of the digest domain.
// Replay protection binds to the proof artifact itself: two submissions that
// share proof, commitments, and pok collide to the same fingerprint even
// when their public inputs differ.
//
// The function is pure. Callers are responsible for validating arity and
// field bounds beforehand; nil elements hash as zero words and oversized
// values contribute their low 32 bytes.
func Fingerprint(proofVec, commitments, pok []*big.Int) Digest {
	h := sha3.NewLegacyKeccak256()

	var word [32]byte
	writeAll := func(elems []*big.Int) {
		for _, e := range elems {
			word = [32]byte{}
			if e != nil {
				b := e.Bytes()
				if len(b) > 32 {
					b = b[len(b)-32:]
				}
				copy(word[32-len(b):], b)
			}
			h.Write(word[:])
		}
	}
	writeAll(proofVec)
	writeAll(commitments)
	writeAll(pok)

	var d Digest
	h.Sum(d[:0])
	return d
}

// FingerprintSubmission is a convenience wrapper over Fingerprint for a full
// submission. The public inputs carried by s do not influence the result.
func FingerprintSubmission(s *Submission) Digest {
	return Fingerprint(s.Proof, s.Commitments, s.Pok)
}
