package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofgate/proofgate/internal/api"
	"github.com/proofgate/proofgate/internal/gateway"
	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
	"github.com/proofgate/proofgate/pkg/verifier"
)

func newTestCLI(t *testing.T) (*CLI, *bytes.Buffer) {
	t.Helper()
	mem := store.NewMemory()
	gw, err := gateway.New(gateway.DefaultConfig(), verifier.AcceptAll(proof.Groth16BN254Params(1)), mem, mem, nil)
	require.NoError(t, err)
	srv, err := api.NewServer(api.DefaultConfig(), gw, mem, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	cli := NewCLI(ts.URL)
	var buf bytes.Buffer
	cli.output = &buf
	return cli, &buf
}

func writeSubmissionFile(t *testing.T, seed int) string {
	t.Helper()
	p := make([]string, 8)
	for i := range p {
		p[i] = strconv.Itoa(seed + i)
	}
	sub := submission{
		Proof:        p,
		Commitments:  []string{"100", "101"},
		Pok:          []string{"102", "103"},
		PublicInputs: []string{"42"},
	}
	data, err := json.Marshal(sub)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "proof.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestSubmitCommand(t *testing.T) {
	cli, buf := newTestCLI(t)
	path := writeSubmissionFile(t, 1)

	require.NoError(t, cli.Submit(path, "alice"))
	assert.Contains(t, buf.String(), "Accepted")
	assert.Contains(t, buf.String(), "Fingerprint: 0x")
}

func TestSubmitCommandReplay(t *testing.T) {
	cli, _ := newTestCLI(t)
	path := writeSubmissionFile(t, 1)

	require.NoError(t, cli.Submit(path, "alice"))
	err := cli.Submit(path, "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Proof already used")
}

func TestSubmitCommandMissingFile(t *testing.T) {
	cli, _ := newTestCLI(t)
	assert.Error(t, cli.Submit("/nonexistent/proof.json", ""))
}

func TestUsedCommand(t *testing.T) {
	cli, buf := newTestCLI(t)
	path := writeSubmissionFile(t, 1)
	require.NoError(t, cli.Submit(path, "alice"))

	var fingerprint string
	for _, line := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if f, ok := bytes.CutPrefix(line, []byte("Fingerprint: ")); ok {
			fingerprint = string(f)
		}
	}
	require.NotEmpty(t, fingerprint)
	buf.Reset()

	require.NoError(t, cli.Used(fingerprint))
	assert.Contains(t, buf.String(), "Used: true")

	buf.Reset()
	unknown := proof.Digest{0x01}
	require.NoError(t, cli.Used(unknown.Hex()))
	assert.Contains(t, buf.String(), "Used: false")
}

func TestUsedCommandEmpty(t *testing.T) {
	cli, _ := newTestCLI(t)
	assert.ErrorIs(t, cli.Used(""), ErrEmptyFingerprint)
}

func TestStatusCommand(t *testing.T) {
	cli, buf := newTestCLI(t)

	require.NoError(t, cli.Status())
	out := buf.String()
	assert.Contains(t, out, "Status: ok")
	assert.Contains(t, out, "Proof words: 8")
	assert.Contains(t, out, "Accepted: 0")
}

func TestAuditCommand(t *testing.T) {
	cli, buf := newTestCLI(t)

	require.NoError(t, cli.Audit(""))
	assert.Contains(t, buf.String(), "No audit records")
	buf.Reset()

	require.NoError(t, cli.Submit(writeSubmissionFile(t, 1), "alice"))
	buf.Reset()

	require.NoError(t, cli.Audit("10"))
	out := buf.String()
	assert.Contains(t, out, "Audit records (1):")
	assert.Contains(t, out, "Outcome: accepted")
	assert.Contains(t, out, "Submitter: alice")

	assert.Error(t, cli.Audit("not-a-number"))
}

func TestPrintUsage(t *testing.T) {
	var buf bytes.Buffer
	printUsageTo(&buf)
	assert.Contains(t, buf.String(), "Usage: proofgate-cli")
	assert.Contains(t, buf.String(), "submit")
}
