package verifier

import (
	"fmt"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
)

var (
	// devScheme caches the compiled dev circuit and its keys.
	devScheme *CompiledScheme
	// devSchemeMu protects concurrent access to devScheme.
	devSchemeMu sync.Mutex
)

// CompiledScheme bundles a compiled circuit with its Groth16 key pair.
// Setup is computed once; the verifying key is what gateways actually need,
// the proving key exists for keygen output and for tests that produce real
// proofs.
type CompiledScheme struct {
	// ConstraintSystem is the compiled circuit in R1CS form.
	ConstraintSystem constraint.ConstraintSystem

	// ProvingKey is used to generate proofs.
	ProvingKey groth16.ProvingKey

	// VerifyingKey is used to verify proofs.
	VerifyingKey groth16.VerifyingKey
}

// CompileFibonacci compiles the bundled dev circuit and runs Groth16 setup.
// This is an expensive operation; prefer GetDevScheme outside of keygen.
//
// The setup here is a plain single-party Setup, fine for development and
// tests. Keys intended for production must come from a proper ceremony and
// be loaded with LoadVerifyingKey instead.
func CompileFibonacci() (*CompiledScheme, error) {
	var circuit FibonacciCircuit

	cs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &circuit)
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}

	pk, vk, err := groth16.Setup(cs)
	if err != nil {
		return nil, fmt.Errorf("setup keys: %w", err)
	}

	return &CompiledScheme{
		ConstraintSystem: cs,
		ProvingKey:       pk,
		VerifyingKey:     vk,
	}, nil
}

// GetDevScheme returns a cached compiled dev scheme, compiling on first
// call. Thread-safe; all callers share one instance.
func GetDevScheme() (*CompiledScheme, error) {
	devSchemeMu.Lock()
	defer devSchemeMu.Unlock()

	if devScheme != nil {
		return devScheme, nil
	}

	scheme, err := CompileFibonacci()
	if err != nil {
		return nil, err
	}

	devScheme = scheme
	return devScheme, nil
}

// ResetDevScheme clears the cached scheme. Mainly useful for tests.
func ResetDevScheme() {
	devSchemeMu.Lock()
	defer devSchemeMu.Unlock()
	devScheme = nil
}

// WriteProvingKey serializes a proving key to disk.
func WriteProvingKey(pk groth16.ProvingKey, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create proving key file: %w", err)
	}
	if _, err := pk.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write proving key: %w", err)
	}
	return f.Close()
}
