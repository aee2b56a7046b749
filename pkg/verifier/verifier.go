// Package verifier provides the pluggable proof-validity oracles consumed by
// the verification gateway. A Verifier answers exactly one question: does
// this proof satisfy its circuit's relation for the supplied public inputs.
// It holds no submission state; replay protection and auditing live in the
// gateway, not here.
package verifier

import (
	"context"
	"errors"

	"github.com/proofgate/proofgate/pkg/proof"
)

// Errors returned by verifier backends.
var (
	// ErrProofRejected is returned when the proof does not satisfy the
	// circuit relation for the supplied public inputs. The wrapped detail
	// is backend-specific and opaque to callers.
	ErrProofRejected = errors.New("verifier: proof rejected")

	// ErrUnsupportedScheme is returned when a verifying key or proof uses
	// a curve or proving system the backend does not handle.
	ErrUnsupportedScheme = errors.New("verifier: unsupported scheme")
)

// Verifier checks proof validity against a fixed verification key.
//
// Implementations must be stateless and deterministic for a fixed key, and
// safe for concurrent use. A nil return means the proof is valid; a return
// wrapping ErrProofRejected means it is not. Any other error is an internal
// backend failure.
type Verifier interface {
	// Verify checks the submission's proof against its public inputs.
	Verify(ctx context.Context, sub *proof.Submission) error

	// Params returns the vector arities this backend's scheme expects.
	Params() proof.Params
}
