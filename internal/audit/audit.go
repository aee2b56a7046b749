// Package audit forwards gateway audit records to external sinks.
//
// The gateway treats its store as the canonical audit trail; this package
// layers fan-out on top of it so records can also reach a message broker
// for downstream consumers without coupling the gateway to the transport.
package audit

import (
	"context"
	"errors"

	"github.com/proofgate/proofgate/internal/store"
)

// Tee appends each record to every sink in order. The first failure is
// returned, later sinks are still attempted so a broken broker does not
// starve the durable store behind it.
type Tee struct {
	sinks []store.AuditLog
}

// NewTee builds a fan-out over the given sinks. Nil sinks are skipped.
func NewTee(sinks ...store.AuditLog) *Tee {
	kept := make([]store.AuditLog, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	return &Tee{sinks: kept}
}

// Append implements store.AuditLog.
func (t *Tee) Append(ctx context.Context, rec store.SubmissionRecord) error {
	var firstErr error
	for _, s := range t.sinks {
		if err := s.Append(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ErrClosed is returned by a publisher after Close.
var ErrClosed = errors.New("audit: publisher is closed")
