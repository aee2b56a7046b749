package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proofgate/proofgate/internal/gateway"
	"github.com/proofgate/proofgate/internal/keys"
	"github.com/proofgate/proofgate/internal/store"
	"github.com/proofgate/proofgate/pkg/proof"
)

func TestRunWritesWorkingKeys(t *testing.T) {
	dir := t.TempDir()
	vkPath := filepath.Join(dir, "verifying.key")
	pkPath := filepath.Join(dir, "proving.key")
	samplePath := filepath.Join(dir, "proof.json")

	err := run(slog.Default(), vkPath, pkPath, samplePath, 1, 1, false)
	require.NoError(t, err)

	// The verifying key round-trips through the loader.
	oracle, err := keys.Load(vkPath)
	require.NoError(t, err)
	require.Equal(t, 3, oracle.Params().PublicInputLen)

	// The sample proof passes verification end to end.
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	var wire sampleSubmission
	require.NoError(t, json.Unmarshal(data, &wire))

	sub := &proof.Submission{
		Proof:        fromDecimal(t, wire.Proof),
		Commitments:  fromDecimal(t, wire.Commitments),
		Pok:          fromDecimal(t, wire.Pok),
		PublicInputs: fromDecimal(t, wire.PublicInputs),
	}

	mem := store.NewMemory()
	gw, err := gateway.New(gateway.DefaultConfig(), oracle, mem, mem, nil)
	require.NoError(t, err)

	_, err = gw.Submit(context.Background(), sub, "keygen-test")
	assert.NoError(t, err)
}

func TestRunRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	vkPath := filepath.Join(dir, "verifying.key")
	pkPath := filepath.Join(dir, "proving.key")
	require.NoError(t, os.WriteFile(vkPath, []byte("existing"), 0644))

	err := run(slog.Default(), vkPath, pkPath, "", 1, 1, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func fromDecimal(t *testing.T, in []string) []*big.Int {
	t.Helper()
	out := make([]*big.Int, len(in))
	for i, s := range in {
		v, ok := new(big.Int).SetString(s, 10)
		require.True(t, ok, "bad integer %q", s)
		out[i] = v
	}
	return out
}
