// Package store provides the gateway's persistent state: the set of consumed
// proof fingerprints and the append-only audit trail. Both live for the
// service's whole operational lifetime; nothing here is ever deleted or
// reset.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/proofgate/proofgate/pkg/proof"
)

// Errors returned by stores.
var (
	// ErrAlreadyReserved is returned when reserving a fingerprint that is
	// already consumed. The gateway checks Contains first inside its
	// critical section, so seeing this error means a caller broke that
	// contract.
	ErrAlreadyReserved = errors.New("store: fingerprint already reserved")
)

// Outcome is the recorded disposition of a submission.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// SubmissionRecord is one audit entry.
type SubmissionRecord struct {
	// ID is a unique record identifier.
	ID string

	// Fingerprint is the submission's replay-protection digest.
	Fingerprint proof.Digest

	// Submitter identifies the caller, as supplied on submission.
	Submitter string

	// Outcome is accepted or rejected.
	Outcome Outcome

	// Reason carries the rejection reason for rejected records; empty for
	// accepted ones.
	Reason string

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}

// ReplayGuard is the persistent set of consumed fingerprints. A fingerprint
// transitions unreserved to reserved at most once and never back.
type ReplayGuard interface {
	// Contains reports whether f is already reserved. Pure read.
	Contains(ctx context.Context, f proof.Digest) (bool, error)

	// Reserve marks f as consumed. Returns ErrAlreadyReserved if it
	// already is.
	Reserve(ctx context.Context, f proof.Digest) error
}

// AuditLog is the append-only sink for submission outcomes.
type AuditLog interface {
	// Append writes one record.
	Append(ctx context.Context, rec SubmissionRecord) error
}

// AuditReader reads back the audit trail. The persistent stores implement
// both AuditLog and AuditReader; forwarding-only sinks implement just
// AuditLog.
type AuditReader interface {
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]SubmissionRecord, error)
}
