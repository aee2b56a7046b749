package gateway

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
	"github.com/proofgate/proofgate/pkg/verifier"
)

var testParams = proof.Groth16BN254Params(1)

// testSubmission builds a shaped submission whose proof vector starts with
// seed, so distinct seeds yield distinct fingerprints.
func testSubmission(seed int64, input int64) *proof.Submission {
	p := make([]*big.Int, 8)
	for i := range p {
		p[i] = big.NewInt(seed + int64(i))
	}
	return &proof.Submission{
		Proof:        p,
		Commitments:  []*big.Int{big.NewInt(100), big.NewInt(101)},
		Pok:          []*big.Int{big.NewInt(102), big.NewInt(103)},
		PublicInputs: []*big.Int{big.NewInt(input)},
	}
}

func newTestGateway(t *testing.T, cfg Config, oracle verifier.Verifier) (*Gateway, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	g, err := New(cfg, oracle, mem, mem, nil)
	require.NoError(t, err)
	return g, mem
}

// TestSubmitAcceptsValidProof tests the happy path: accepted, reserved,
// audited.
func TestSubmitAcceptsValidProof(t *testing.T) {
	g, mem := newTestGateway(t, DefaultConfig(), verifier.AcceptAll(testParams))
	ctx := context.Background()

	sub := testSubmission(1, 42)
	f, err := g.Submit(ctx, sub, "alice")
	require.NoError(t, err)
	assert.Equal(t, proof.FingerprintSubmission(sub), f)

	used, err := g.IsUsed(ctx, f)
	require.NoError(t, err)
	assert.True(t, used)

	records, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.OutcomeAccepted, records[0].Outcome)
	assert.Equal(t, "alice", records[0].Submitter)
	assert.Equal(t, f, records[0].Fingerprint)
	assert.NotEmpty(t, records[0].ID)
	assert.False(t, records[0].CreatedAt.IsZero())

	assert.Equal(t, Stats{Accepted: 1}, g.Stats())
}

// TestSubmitNoDoubleSpend tests that an identical resubmission fails with
// ErrAlreadyUsed and writes nothing.
func TestSubmitNoDoubleSpend(t *testing.T) {
	oracle := verifier.AcceptAll(testParams)
	g, mem := newTestGateway(t, DefaultConfig(), oracle)
	ctx := context.Background()

	_, err := g.Submit(ctx, testSubmission(1, 42), "alice")
	require.NoError(t, err)

	_, err = g.Submit(ctx, testSubmission(1, 42), "bob")
	assert.ErrorIs(t, err, ErrAlreadyUsed)

	// The replay short-circuits before the oracle and before the audit log.
	assert.Equal(t, uint64(1), oracle.Calls())
	records, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	assert.Equal(t, Stats{Accepted: 1, RejectedReplay: 1}, g.Stats())
}

// TestSubmitPublicInputBlindness tests that replay protection binds to the
// proof artifact only: same proof material with different public inputs is a
// replay, not a new statement.
func TestSubmitPublicInputBlindness(t *testing.T) {
	g, _ := newTestGateway(t, DefaultConfig(), verifier.AcceptAll(testParams))
	ctx := context.Background()

	_, err := g.Submit(ctx, testSubmission(1, 42), "alice")
	require.NoError(t, err)

	_, err = g.Submit(ctx, testSubmission(1, 43), "alice")
	assert.ErrorIs(t, err, ErrAlreadyUsed)
}

// TestSubmitMalformedInput tests arity and field-bound rejection with zero
// state change.
func TestSubmitMalformedInput(t *testing.T) {
	oracle := verifier.AcceptAll(testParams)
	g, mem := newTestGateway(t, DefaultConfig(), oracle)
	ctx := context.Background()

	sub := testSubmission(1, 42)
	sub.Proof = sub.Proof[:5]
	_, err := g.Submit(ctx, sub, "alice")
	assert.ErrorIs(t, err, ErrMalformedInput)

	assert.Equal(t, uint64(0), oracle.Calls())
	records, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, Stats{RejectedMalformed: 1}, g.Stats())

	// A corrected resubmission succeeds.
	_, err = g.Submit(ctx, testSubmission(1, 42), "alice")
	assert.NoError(t, err)
}

// TestSubmitVerifierRejectionRollsBack tests that a verifier rejection
// leaves the fingerprint unreserved and, by default, unaudited.
func TestSubmitVerifierRejectionRollsBack(t *testing.T) {
	g, mem := newTestGateway(t, DefaultConfig(), verifier.RejectAll(testParams, "pairing check failed"))
	ctx := context.Background()

	sub := testSubmission(1, 42)
	_, err := g.Submit(ctx, sub, "alice")
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Contains(t, err.Error(), "pairing check failed")

	used, err := g.IsUsed(ctx, proof.FingerprintSubmission(sub))
	require.NoError(t, err)
	assert.False(t, used, "rejected proof must remain unreserved")

	records, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, Stats{RejectedVerifier: 1}, g.Stats())
}

// TestSubmitRejectedThenAccepted tests that a verifier rejection does not
// burn the fingerprint: the same artifact can succeed later.
func TestSubmitRejectedThenAccepted(t *testing.T) {
	g, _ := newTestGateway(t, DefaultConfig(), verifier.RejectAll(testParams, "bad key"))
	ctx := context.Background()

	_, err := g.Submit(ctx, testSubmission(1, 42), "alice")
	require.ErrorIs(t, err, ErrVerificationFailed)

	require.NoError(t, g.SwapVerifier(verifier.AcceptAll(testParams)))

	_, err = g.Submit(ctx, testSubmission(1, 42), "alice")
	assert.NoError(t, err)
}

// TestSubmitRecordsRejections tests the opt-in rejection audit path.
func TestSubmitRecordsRejections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordRejections = true
	g, mem := newTestGateway(t, cfg, verifier.RejectAll(testParams, "pairing check failed"))
	ctx := context.Background()

	sub := testSubmission(1, 42)
	_, err := g.Submit(ctx, sub, "alice")
	require.ErrorIs(t, err, ErrVerificationFailed)

	records, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, store.OutcomeRejected, records[0].Outcome)
	assert.Contains(t, records[0].Reason, "pairing check failed")

	// Rejection records never reserve the fingerprint.
	used, err := g.IsUsed(ctx, proof.FingerprintSubmission(sub))
	require.NoError(t, err)
	assert.False(t, used)
}

// TestSubmitReplayNotRecorded tests that replays stay unaudited even with
// rejection recording on.
func TestSubmitReplayNotRecorded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RecordRejections = true
	g, mem := newTestGateway(t, cfg, verifier.AcceptAll(testParams))
	ctx := context.Background()

	_, err := g.Submit(ctx, testSubmission(1, 42), "alice")
	require.NoError(t, err)
	_, err = g.Submit(ctx, testSubmission(1, 42), "alice")
	require.ErrorIs(t, err, ErrAlreadyUsed)

	records, err := mem.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1, "only the accepted record exists")
}

// TestSubmitConcurrentDistinct tests that concurrent submissions with
// distinct fingerprints all succeed exactly once.
func TestSubmitConcurrentDistinct(t *testing.T) {
	g, _ := newTestGateway(t, DefaultConfig(), verifier.AcceptAll(testParams))
	ctx := context.Background()

	const n = 24
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Submit(ctx, testSubmission(int64(1000*(i+1)), 7), "caller")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "submission %d", i)
	}
	assert.Equal(t, uint64(n), g.Stats().Accepted)
}

// TestSubmitConcurrentSameFingerprint tests the critical section: of many
// concurrent submissions sharing a fingerprint, exactly one is accepted and
// the rest observe the replay.
func TestSubmitConcurrentSameFingerprint(t *testing.T) {
	g, _ := newTestGateway(t, DefaultConfig(), verifier.AcceptAll(testParams))
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Submit(ctx, testSubmission(5, int64(i)), "caller")
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyUsed)
		}
	}
	assert.Equal(t, 1, accepted, "exactly one submission may consume the fingerprint")

	stats := g.Stats()
	assert.Equal(t, uint64(1), stats.Accepted)
	assert.Equal(t, uint64(n-1), stats.RejectedReplay)
}

// slowVerifier blocks until released, for timeout tests.
type slowVerifier struct {
	params  proof.Params
	release chan struct{}
}

func (s *slowVerifier) Params() proof.Params { return s.params }

func (s *slowVerifier) Verify(ctx context.Context, _ *proof.Submission) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TestSubmitVerifyTimeout tests that a stuck verifier surfaces as a
// verification failure without reserving anything.
func TestSubmitVerifyTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.VerifyTimeout = 20 * time.Millisecond
	slow := &slowVerifier{params: testParams, release: make(chan struct{})}
	g, _ := newTestGateway(t, cfg, slow)
	defer close(slow.release)

	sub := testSubmission(1, 42)
	_, err := g.Submit(context.Background(), sub, "alice")
	assert.ErrorIs(t, err, ErrVerificationFailed)

	used, uerr := g.IsUsed(context.Background(), proof.FingerprintSubmission(sub))
	require.NoError(t, uerr)
	assert.False(t, used)
}

// TestIsUsedUnknownFingerprint tests the query for a never-seen digest.
func TestIsUsedUnknownFingerprint(t *testing.T) {
	g, _ := newTestGateway(t, DefaultConfig(), verifier.AcceptAll(testParams))

	used, err := g.IsUsed(context.Background(), proof.Digest{0xFF})
	require.NoError(t, err)
	assert.False(t, used)
}

// TestNewValidation tests constructor argument checks.
func TestNewValidation(t *testing.T) {
	mem := store.NewMemory()

	_, err := New(DefaultConfig(), nil, mem, mem, nil)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), verifier.AcceptAll(testParams), nil, mem, nil)
	assert.Error(t, err)

	_, err = New(DefaultConfig(), verifier.AcceptAll(testParams), mem, nil, nil)
	assert.Error(t, err)

	cfg := Config{VerifyTimeout: -time.Second}
	_, err = New(cfg, verifier.AcceptAll(testParams), mem, mem, nil)
	assert.Error(t, err)
}

// TestSwapVerifierParams tests that a swap updates the enforced arities.
func TestSwapVerifierParams(t *testing.T) {
	g, _ := newTestGateway(t, DefaultConfig(), verifier.AcceptAll(testParams))
	require.Equal(t, 1, g.Params().PublicInputLen)

	require.NoError(t, g.SwapVerifier(verifier.AcceptAll(proof.Groth16BN254Params(3))))
	assert.Equal(t, 3, g.Params().PublicInputLen)

	assert.Error(t, g.SwapVerifier(nil))
}
