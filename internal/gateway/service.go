package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
	"github.com/proofgate/proofgate/pkg/verifier"
)

// Config contains configuration for the gateway.
type Config struct {
	// VerifyTimeout bounds one verifier invocation. Zero disables the
	// bound. Expiry surfaces as ErrVerificationFailed.
	VerifyTimeout time.Duration

	// RecordRejections, when true, writes an audit record for
	// verifier-rejected submissions before the error is returned.
	// Replay and malformed-input rejections are never recorded. Off by
	// default: rejections then leave no trace beyond the error.
	RecordRejections bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		VerifyTimeout:    30 * time.Second,
		RecordRejections: false,
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if c.VerifyTimeout < 0 {
		return fmt.Errorf("gateway: verify_timeout must not be negative")
	}
	return nil
}

// Stats holds the gateway's submission counters.
type Stats struct {
	Accepted          uint64 `json:"accepted"`
	RejectedMalformed uint64 `json:"rejected_malformed"`
	RejectedReplay    uint64 `json:"rejected_replay"`
	RejectedVerifier  uint64 `json:"rejected_verifier"`
}

// flightLock serializes submissions sharing one fingerprint.
type flightLock struct {
	mu   sync.Mutex
	refs int
}

// Gateway accepts proof submissions, guarantees each distinct proof artifact
// is consumed at most once, and delegates validity to a pluggable verifier.
// It is the sole writer of the replay guard and the audit log.
//
// Safe for concurrent use. Submissions with distinct fingerprints proceed in
// parallel; submissions sharing a fingerprint serialize through a
// per-fingerprint lock spanning the check-verify-reserve-audit sequence, so
// no two of them can both observe the fingerprint as unused.
type Gateway struct {
	cfg    Config
	guard  store.ReplayGuard
	audit  store.AuditLog
	logger *slog.Logger

	// verifierMu guards oracle and params for hot key swaps.
	verifierMu sync.RWMutex
	oracle     verifier.Verifier
	params     proof.Params

	// inflightMu guards inflight.
	inflightMu sync.Mutex
	inflight   map[proof.Digest]*flightLock

	// Metrics tracked atomically.
	accepted          atomic.Uint64
	rejectedMalformed atomic.Uint64
	rejectedReplay    atomic.Uint64
	rejectedVerifier  atomic.Uint64
}

// New creates a Gateway. The verifier determines the submission arities the
// gateway enforces. A nil logger falls back to slog's default.
func New(cfg Config, oracle verifier.Verifier, guard store.ReplayGuard, audit store.AuditLog, logger *slog.Logger) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if oracle == nil {
		return nil, errors.New("gateway: verifier is required")
	}
	if guard == nil {
		return nil, errors.New("gateway: replay guard is required")
	}
	if audit == nil {
		return nil, errors.New("gateway: audit log is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	params := oracle.Params()
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Gateway{
		cfg:      cfg,
		guard:    guard,
		audit:    audit,
		logger:   logger,
		oracle:   oracle,
		params:   params,
		inflight: make(map[proof.Digest]*flightLock),
	}, nil
}

// Params returns the submission arities currently enforced.
func (g *Gateway) Params() proof.Params {
	g.verifierMu.RLock()
	defer g.verifierMu.RUnlock()
	return g.params
}

// SwapVerifier replaces the verification oracle, typically after a verifying
// key reload. In-flight submissions finish against the oracle they started
// with.
func (g *Gateway) SwapVerifier(oracle verifier.Verifier) error {
	if oracle == nil {
		return errors.New("gateway: verifier is required")
	}
	params := oracle.Params()
	if err := params.Validate(); err != nil {
		return err
	}

	g.verifierMu.Lock()
	g.oracle = oracle
	g.params = params
	g.verifierMu.Unlock()

	g.logger.Info("verifier swapped",
		"public_inputs", params.PublicInputLen,
	)
	return nil
}

func (g *Gateway) currentVerifier() (verifier.Verifier, proof.Params) {
	g.verifierMu.RLock()
	defer g.verifierMu.RUnlock()
	return g.oracle, g.params
}

// lockFingerprint takes the per-fingerprint critical-section lock and
// returns the release function.
func (g *Gateway) lockFingerprint(f proof.Digest) func() {
	g.inflightMu.Lock()
	fl, ok := g.inflight[f]
	if !ok {
		fl = &flightLock{}
		g.inflight[f] = fl
	}
	fl.refs++
	g.inflightMu.Unlock()

	fl.mu.Lock()
	return func() {
		fl.mu.Unlock()
		g.inflightMu.Lock()
		fl.refs--
		if fl.refs == 0 {
			delete(g.inflight, f)
		}
		g.inflightMu.Unlock()
	}
}

// Submit runs the submission protocol: validate, fingerprint, replay check,
// verify, reserve, audit. On success the returned digest is reserved forever
// and an accepted record is in the audit log. On any failure no state has
// changed, except that verifier rejections additionally produce a rejection
// record when RecordRejections is set.
//
// Submit blocks until the outcome is determined and never retries. Failures
// are never fatal to the gateway; it remains available for further
// submissions.
func (g *Gateway) Submit(ctx context.Context, sub *proof.Submission, submitter string) (proof.Digest, error) {
	oracle, params := g.currentVerifier()

	if err := params.CheckShape(sub); err != nil {
		g.rejectedMalformed.Add(1)
		return proof.Digest{}, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	f := proof.FingerprintSubmission(sub)

	unlock := g.lockFingerprint(f)
	defer unlock()

	used, err := g.guard.Contains(ctx, f)
	if err != nil {
		return proof.Digest{}, fmt.Errorf("replay check: %w", err)
	}
	if used {
		g.rejectedReplay.Add(1)
		g.logger.Debug("submission replayed",
			"fingerprint", f.Hex(),
			"submitter", submitter,
		)
		return proof.Digest{}, ErrAlreadyUsed
	}

	if err := g.verify(ctx, oracle, sub); err != nil {
		g.rejectedVerifier.Add(1)
		g.logger.Info("submission rejected by verifier",
			"fingerprint", f.Hex(),
			"submitter", submitter,
			"error", err,
		)
		if g.cfg.RecordRejections {
			g.appendRecord(ctx, f, submitter, store.OutcomeRejected, err.Error())
		}
		return proof.Digest{}, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}

	if err := g.guard.Reserve(ctx, f); err != nil {
		if errors.Is(err, store.ErrAlreadyReserved) {
			// Unreachable through this gateway; another writer touched
			// the guard. Report it as a replay rather than consuming the
			// proof twice.
			g.rejectedReplay.Add(1)
			return proof.Digest{}, ErrAlreadyUsed
		}
		return proof.Digest{}, fmt.Errorf("reserve fingerprint: %w", err)
	}

	g.appendRecord(ctx, f, submitter, store.OutcomeAccepted, "")
	g.accepted.Add(1)
	g.logger.Info("submission accepted",
		"fingerprint", f.Hex(),
		"submitter", submitter,
	)
	return f, nil
}

// verify runs the oracle under the configured timeout. The oracle's own
// computation is not interruptible, so expiry abandons the wait rather than
// the work.
func (g *Gateway) verify(ctx context.Context, oracle verifier.Verifier, sub *proof.Submission) error {
	if g.cfg.VerifyTimeout <= 0 {
		return oracle.Verify(ctx, sub)
	}

	vctx, cancel := context.WithTimeout(ctx, g.cfg.VerifyTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- oracle.Verify(vctx, sub)
	}()

	select {
	case err := <-done:
		return err
	case <-vctx.Done():
		return fmt.Errorf("verifier timed out: %w", vctx.Err())
	}
}

// appendRecord writes an audit record. Audit failures are logged, not
// propagated: the replay guard is the source of truth for consumption, and a
// degraded audit sink must not take the gateway down with it.
func (g *Gateway) appendRecord(ctx context.Context, f proof.Digest, submitter string, outcome store.Outcome, reason string) {
	rec := store.SubmissionRecord{
		ID:          uuid.NewString(),
		Fingerprint: f,
		Submitter:   submitter,
		Outcome:     outcome,
		Reason:      reason,
		CreatedAt:   time.Now().UTC(),
	}
	if err := g.audit.Append(ctx, rec); err != nil {
		g.logger.Error("audit append failed",
			"fingerprint", f.Hex(),
			"outcome", outcome,
			"error", err,
		)
	}
}

// IsUsed reports whether a fingerprint has been consumed. Read-only.
func (g *Gateway) IsUsed(ctx context.Context, f proof.Digest) (bool, error) {
	return g.guard.Contains(ctx, f)
}

// Stats returns the current submission counters.
func (g *Gateway) Stats() Stats {
	return Stats{
		Accepted:          g.accepted.Load(),
		RejectedMalformed: g.rejectedMalformed.Load(),
		RejectedReplay:    g.rejectedReplay.Load(),
		RejectedVerifier:  g.rejectedVerifier.Load(),
	}
}
