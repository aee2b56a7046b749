package api

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
)

// submitRequest is the JSON body of POST /v1/proofs. Field elements travel
// as strings, decimal or 0x-prefixed hex, because they exceed every JSON
// number type.
type submitRequest struct {
	Proof        []string `json:"proof" binding:"required"`
	Commitments  []string `json:"commitments" binding:"required"`
	Pok          []string `json:"pok" binding:"required"`
	PublicInputs []string `json:"public_inputs" binding:"required"`
	Submitter    string   `json:"submitter"`
}

func parseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("not an integer: %q", s)
	}
	return v, nil
}

func parseBigInts(field string, in []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(in))
	for i, s := range in {
		v, err := parseBigInt(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// toSubmission converts the wire form into the gateway's submission type.
func (r *submitRequest) toSubmission() (*proof.Submission, error) {
	p, err := parseBigInts("proof", r.Proof)
	if err != nil {
		return nil, err
	}
	c, err := parseBigInts("commitments", r.Commitments)
	if err != nil {
		return nil, err
	}
	k, err := parseBigInts("pok", r.Pok)
	if err != nil {
		return nil, err
	}
	inputs, err := parseBigInts("public_inputs", r.PublicInputs)
	if err != nil {
		return nil, err
	}
	return &proof.Submission{
		Proof:        p,
		Commitments:  c,
		Pok:          k,
		PublicInputs: inputs,
	}, nil
}

type submitResponse struct {
	Fingerprint string `json:"fingerprint"`
	Accepted    bool   `json:"accepted"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type usedResponse struct {
	Fingerprint string `json:"fingerprint"`
	Used        bool   `json:"used"`
}

type paramsResponse struct {
	ProofLen       int `json:"proof_len"`
	CommitmentLen  int `json:"commitment_len"`
	PokLen         int `json:"pok_len"`
	PublicInputLen int `json:"public_input_len"`
}

type statusResponse struct {
	Status   string         `json:"status"`
	UptimeMS int64          `json:"uptime_ms"`
	Params   paramsResponse `json:"params"`
	Stats    any            `json:"stats"`
}

type auditRecordResponse struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Submitter   string    `json:"submitter,omitempty"`
	Outcome     string    `json:"outcome"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAuditResponse(records []store.SubmissionRecord) []auditRecordResponse {
	out := make([]auditRecordResponse, len(records))
	for i, rec := range records {
		out[i] = auditRecordResponse{
			ID:          rec.ID,
			Fingerprint: rec.Fingerprint.Hex(),
			Submitter:   rec.Submitter,
			Outcome:     string(rec.Outcome),
			Reason:      rec.Reason,
			CreatedAt:   rec.CreatedAt,
		}
	}
	return out
}
