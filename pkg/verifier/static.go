package verifier

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/proofgate/proofgate/pkg/proof"
)

// Static is a verifier backend with a fixed answer. It stands in for a real
// oracle in tests and in wiring that needs a verifier before keys exist.
// The zero value rejects everything; use AcceptAll for the permissive form.
type Static struct {
	accept bool
	reason string
	params proof.Params

	calls atomic.Uint64
}

// AcceptAll returns a Static verifier that accepts every submission with the
// given arities.
func AcceptAll(params proof.Params) *Static {
	return &Static{accept: true, params: params}
}

// RejectAll returns a Static verifier that rejects every submission with the
// given opaque reason.
func RejectAll(params proof.Params, reason string) *Static {
	return &Static{reason: reason, params: params}
}

// Params implements Verifier.
func (s *Static) Params() proof.Params {
	return s.params
}

// Verify implements Verifier.
func (s *Static) Verify(ctx context.Context, _ *proof.Submission) error {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.accept {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrProofRejected, s.reason)
}

// Calls reports how many times Verify has been invoked.
func (s *Static) Calls() uint64 {
	return s.calls.Load()
}
