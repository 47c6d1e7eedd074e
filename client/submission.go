package client

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/zeebo/blake3"
)

// BuildSubmission turns a Groth16 proof and its public witness into a
// registry submission. The proof identifier is the blake3 hash of the
// serialized proof; the public signals are the witness elements rendered as
// decimal strings, in witness order. The first two signals are expected to
// be the threshold and the commitment, matching the claimed values.
//
// The registry only checks the claims structurally, so this helper is the
// place where real proof bytes enter the picture.
func BuildSubmission(proof groth16.Proof, publicWitness witness.Witness, threshold, commitment uint64, submitter [32]byte) (*Submission, error) {
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("serialize proof:\n%w", err)
	}

	signals, err := publicSignals(publicWitness)
	if err != nil {
		return nil, err
	}

	return &Submission{
		ProofHash:     blake3.Sum256(buf.Bytes()),
		PublicSignals: signals,
		Threshold:     threshold,
		Commitment:    commitment,
		Submitter:     submitter,
	}, nil
}

// publicSignals renders the public witness as decimal strings.
// Only BN254 witnesses are supported.
func publicSignals(publicWitness witness.Witness) ([]string, error) {
	vector, ok := publicWitness.Vector().(fr.Vector)
	if !ok {
		return nil, fmt.Errorf("unsupported witness field: %T", publicWitness.Vector())
	}

	signals := make([]string, len(vector))
	for i := range vector {
		signals[i] = vector[i].String()
	}

	return signals, nil
}
