// Package gateway orchestrates proof submissions: fingerprint, replay check,
// delegation to the verification oracle, reservation, and audit.
//
// This file defines the gateway's error taxonomy. Every submission failure
// maps to exactly one of the three sentinel errors below; callers match with
// errors.Is and must not parse messages.
package gateway

import "errors"

var (
	// ErrMalformedInput means the submission violated the scheme's arity
	// or field-range constraints. Correct the input and resubmit.
	ErrMalformedInput = errors.New("gateway: malformed input")

	// ErrAlreadyUsed means the submission's fingerprint is already
	// consumed. Permanent for that fingerprint; resubmitting identical
	// proof material will never succeed.
	ErrAlreadyUsed = errors.New("gateway: proof already used")

	// ErrVerificationFailed means the external verifier rejected the
	// proof for the supplied public inputs. The wrapped reason is opaque.
	// A genuinely different, valid proof may still succeed.
	ErrVerificationFailed = errors.New("gateway: verification failed")
)
