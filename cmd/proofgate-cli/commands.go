package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"
)

// defaultRequestTimeout is the default timeout for HTTP calls.
const defaultRequestTimeout = 60 * time.Second

// defaultBaseURL matches the server's default listen address.
const defaultBaseURL = "http://127.0.0.1:8480"

// ErrEmptyFingerprint is returned when an empty fingerprint is provided.
var ErrEmptyFingerprint = errors.New("fingerprint cannot be empty")

// CLI provides commands for interacting with a proofgate server.
type CLI struct {
	baseURL string
	client  *http.Client
	output  io.Writer
}

// NewCLI creates a new CLI instance targeting the given server.
func NewCLI(baseURL string) *CLI {
	return &CLI{
		baseURL: baseURL,
		client:  &http.Client{Timeout: defaultRequestTimeout},
		output:  os.Stdout,
	}
}

// NewCLIWithDefaults creates a new CLI instance using the default server
// address, overridable through PROOFGATE_URL.
func NewCLIWithDefaults() *CLI {
	base := os.Getenv("PROOFGATE_URL")
	if base == "" {
		base = defaultBaseURL
	}
	return NewCLI(base)
}

// submission mirrors the server's POST /v1/proofs body.
type submission struct {
	Proof        []string `json:"proof"`
	Commitments  []string `json:"commitments"`
	Pok          []string `json:"pok"`
	PublicInputs []string `json:"public_inputs"`
	Submitter    string   `json:"submitter,omitempty"`
}

// Submit reads a submission JSON file and posts it to the server.
func (c *CLI) Submit(path, submitter string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read submission file: %w", err)
	}

	var sub submission
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("failed to parse submission file: %w", err)
	}
	if submitter != "" {
		sub.Submitter = submitter
	}

	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}

	resp, err := c.client.Post(c.baseURL+"/v1/proofs", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Fingerprint string `json:"fingerprint"`
		Accepted    bool   `json:"accepted"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusAccepted:
		fmt.Fprintf(c.output, "Accepted\n")
		fmt.Fprintf(c.output, "Fingerprint: %s\n", out.Fingerprint)
		return nil
	case http.StatusConflict:
		return fmt.Errorf("rejected: %s", out.Error)
	case http.StatusUnprocessableEntity:
		return fmt.Errorf("verification failed: %s", out.Error)
	default:
		return fmt.Errorf("rejected (%d): %s", resp.StatusCode, out.Error)
	}
}

// Used queries whether a fingerprint has already been consumed.
func (c *CLI) Used(fingerprint string) error {
	if fingerprint == "" {
		return ErrEmptyFingerprint
	}

	resp, err := c.client.Get(c.baseURL + "/v1/proofs/" + fingerprint)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Fingerprint string `json:"fingerprint"`
		Used        bool   `json:"used"`
		Error       string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup failed (%d): %s", resp.StatusCode, out.Error)
	}

	fmt.Fprintf(c.output, "Fingerprint: %s\n", out.Fingerprint)
	fmt.Fprintf(c.output, "Used: %v\n", out.Used)
	return nil
}

// Status displays the server status and submission counters.
func (c *CLI) Status() error {
	resp, err := c.client.Get(c.baseURL + "/v1/status")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Status   string `json:"status"`
		UptimeMS int64  `json:"uptime_ms"`
		Params   struct {
			ProofLen       int `json:"proof_len"`
			CommitmentLen  int `json:"commitment_len"`
			PokLen         int `json:"pok_len"`
			PublicInputLen int `json:"public_input_len"`
		} `json:"params"`
		Stats struct {
			Accepted          uint64 `json:"accepted"`
			RejectedMalformed uint64 `json:"rejected_malformed"`
			RejectedReplay    uint64 `json:"rejected_replay"`
			RejectedVerifier  uint64 `json:"rejected_verifier"`
		} `json:"stats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Fprintln(c.output, "=== Proofgate Status ===")
	fmt.Fprintln(c.output)
	fmt.Fprintf(c.output, "Status: %s\n", out.Status)
	fmt.Fprintf(c.output, "Uptime: %s\n", (time.Duration(out.UptimeMS) * time.Millisecond).Round(time.Second))
	fmt.Fprintln(c.output)
	fmt.Fprintln(c.output, "Submission layout:")
	fmt.Fprintf(c.output, "  Proof words: %d\n", out.Params.ProofLen)
	fmt.Fprintf(c.output, "  Commitment words: %d\n", out.Params.CommitmentLen)
	fmt.Fprintf(c.output, "  Pok words: %d\n", out.Params.PokLen)
	fmt.Fprintf(c.output, "  Public inputs: %d\n", out.Params.PublicInputLen)
	fmt.Fprintln(c.output)
	fmt.Fprintln(c.output, "Counters:")
	fmt.Fprintf(c.output, "  Accepted: %d\n", out.Stats.Accepted)
	fmt.Fprintf(c.output, "  Rejected (malformed): %d\n", out.Stats.RejectedMalformed)
	fmt.Fprintf(c.output, "  Rejected (replay): %d\n", out.Stats.RejectedReplay)
	fmt.Fprintf(c.output, "  Rejected (verifier): %d\n", out.Stats.RejectedVerifier)
	return nil
}

// Audit lists recent audit records.
func (c *CLI) Audit(limitArg string) error {
	url := c.baseURL + "/v1/audit"
	if limitArg != "" {
		if _, err := strconv.Atoi(limitArg); err != nil {
			return fmt.Errorf("limit must be an integer: %q", limitArg)
		}
		url += "?limit=" + limitArg
	}

	resp, err := c.client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		Records []struct {
			ID          string    `json:"id"`
			Fingerprint string    `json:"fingerprint"`
			Submitter   string    `json:"submitter"`
			Outcome     string    `json:"outcome"`
			Reason      string    `json:"reason"`
			CreatedAt   time.Time `json:"created_at"`
		} `json:"records"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audit listing failed (%d): %s", resp.StatusCode, out.Error)
	}

	if len(out.Records) == 0 {
		fmt.Fprintln(c.output, "No audit records")
		return nil
	}

	fmt.Fprintf(c.output, "Audit records (%d):\n", len(out.Records))
	fmt.Fprintln(c.output)
	for _, rec := range out.Records {
		fmt.Fprintf(c.output, "  Fingerprint: %s\n", rec.Fingerprint)
		fmt.Fprintf(c.output, "  Outcome: %s\n", rec.Outcome)
		if rec.Submitter != "" {
			fmt.Fprintf(c.output, "  Submitter: %s\n", rec.Submitter)
		}
		if rec.Reason != "" {
			fmt.Fprintf(c.output, "  Reason: %s\n", rec.Reason)
		}
		fmt.Fprintf(c.output, "  At: %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintln(c.output)
	}
	return nil
}

// printUsage prints the CLI usage information to stdout.
func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo prints the CLI usage information to the given writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, "Usage: proofgate-cli <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  submit <file> [submitter]   Submit a proof from a JSON file")
	fmt.Fprintln(w, "  used <fingerprint>          Check whether a fingerprint is consumed")
	fmt.Fprintln(w, "  status                      Show server status and counters")
	fmt.Fprintln(w, "  audit [limit]               List recent audit records")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The server address defaults to "+defaultBaseURL+" and can be")
	fmt.Fprintln(w, "overridden with the PROOFGATE_URL environment variable.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  proofgate-cli submit proof.json alice")
	fmt.Fprintln(w, "  proofgate-cli used 0x3b0a...")
	fmt.Fprintln(w, "  proofgate-cli status")
	fmt.Fprintln(w, "  proofgate-cli audit 20")
}
