package store

import (
	"context"
	"sync"

	"github.com/proofgate/proofgate/pkg/proof"
)

// Memory is an in-process store implementing ReplayGuard and AuditLog.
// It backs tests and ephemeral deployments; state vanishes with the process.
// Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	used    map[proof.Digest]struct{}
	records []SubmissionRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		used: make(map[proof.Digest]struct{}),
	}
}

// Contains implements ReplayGuard.
func (m *Memory) Contains(_ context.Context, f proof.Digest) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.used[f]
	return ok, nil
}

// Reserve implements ReplayGuard.
func (m *Memory) Reserve(_ context.Context, f proof.Digest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.used[f]; ok {
		return ErrAlreadyReserved
	}
	m.used[f] = struct{}{}
	return nil
}

// Append implements AuditLog.
func (m *Memory) Append(_ context.Context, rec SubmissionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Recent implements AuditLog.
func (m *Memory) Recent(_ context.Context, limit int) ([]SubmissionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.records)
	if limit > n {
		limit = n
	}
	out := make([]SubmissionRecord, 0, limit)
	for i := n - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}
