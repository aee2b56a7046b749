// proofgate-keygen compiles the bundled development circuit, runs Groth16
// setup, and writes the resulting key pair to disk. It can also emit a
// sample submission JSON proved against the fresh keys, ready to feed to
// proofgate-cli submit.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/proofgate/proofgate/internal/config"
	"github.com/proofgate/proofgate/pkg/verifier"
)

func main() {
	paths := config.DefaultPaths()

	vkPath := flag.String("vk", paths.VerifyingKey, "Verifying key output path")
	pkPath := flag.String("pk", paths.ProvingKey, "Proving key output path")
	force := flag.Bool("force", false, "Overwrite existing key files")
	samplePath := flag.String("sample", "", "Also write a sample submission JSON to this path")
	first := flag.Int64("first", 1, "First term of the sample Fibonacci instance")
	second := flag.Int64("second", 1, "Second term of the sample Fibonacci instance")

	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if err := run(logger, *vkPath, *pkPath, *samplePath, *first, *second, *force); err != nil {
		logger.Error("keygen failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, vkPath, pkPath, samplePath string, first, second int64, force bool) error {
	vkPath = config.ExpandPath(vkPath)
	pkPath = config.ExpandPath(pkPath)

	if !force {
		for _, p := range []string{vkPath, pkPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists, use -force to overwrite", p)
			}
		}
	}

	logger.Info("compiling circuit and running setup, this can take a while")
	scheme, err := verifier.CompileFibonacci()
	if err != nil {
		return err
	}

	for _, p := range []string{vkPath, pkPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0700); err != nil {
			return err
		}
	}
	if err := verifier.WriteVerifyingKey(scheme.VerifyingKey, vkPath); err != nil {
		return err
	}
	logger.Info("wrote verifying key", "path", vkPath)

	if err := verifier.WriteProvingKey(scheme.ProvingKey, pkPath); err != nil {
		return err
	}
	logger.Info("wrote proving key", "path", pkPath)

	if samplePath != "" {
		if err := writeSample(scheme, samplePath, first, second); err != nil {
			return err
		}
		logger.Info("wrote sample submission",
			"path", samplePath,
			"first", first,
			"second", second,
			"result", verifier.FibonacciResult(first, second),
		)
	}
	return nil
}

// sampleSubmission matches the server's POST /v1/proofs body.
type sampleSubmission struct {
	Proof        []string `json:"proof"`
	Commitments  []string `json:"commitments"`
	Pok          []string `json:"pok"`
	PublicInputs []string `json:"public_inputs"`
}

// writeSample proves one Fibonacci instance and writes it in wire form.
func writeSample(scheme *verifier.CompiledScheme, path string, first, second int64) error {
	assignment := verifier.FibonacciCircuit{
		First:  first,
		Second: second,
		Result: verifier.FibonacciResult(first, second),
	}
	witness, err := frontend.NewWitness(&assignment, ecc.BN254.ScalarField())
	if err != nil {
		return fmt.Errorf("build witness: %w", err)
	}

	gproof, err := groth16.Prove(scheme.ConstraintSystem, scheme.ProvingKey, witness)
	if err != nil {
		return fmt.Errorf("prove sample: %w", err)
	}

	oracle, err := verifier.NewGroth16(scheme.VerifyingKey)
	if err != nil {
		return err
	}
	sub, err := verifier.EncodeProof(gproof, oracle.Params())
	if err != nil {
		return err
	}
	sub.PublicInputs = []*big.Int{
		big.NewInt(first),
		big.NewInt(second),
		big.NewInt(verifier.FibonacciResult(first, second)),
	}

	wire := sampleSubmission{
		Proof:        decimalStrings(sub.Proof),
		Commitments:  decimalStrings(sub.Commitments),
		Pok:          decimalStrings(sub.Pok),
		PublicInputs: decimalStrings(sub.PublicInputs),
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func decimalStrings(words []*big.Int) []string {
	out := make([]string, len(words))
	for i, w := range words {
		if w == nil {
			out[i] = "0"
			continue
		}
		out[i] = w.String()
	}
	return out
}
