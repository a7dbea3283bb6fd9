package metadata

import (
	"fmt"
	"os"

	"github.com/cespare/xxhash/v2"
)

// RegenerateHint tells the operator how to recover from a schema mismatch.
const RegenerateHint = "the local metadata artifact no longer matches the runtime the node is executing; " +
	"run `xcm-indexer fetch-metadata` against the same node and retry"

// Fingerprint returns a short stable identifier of a metadata blob.
func Fingerprint(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// LoadFile reads and parses a metadata artifact, returning the parsed tables
// together with the raw bytes for fingerprinting.
func LoadFile(path string) (*Metadata, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("metadata: read artifact: %w", err)
	}
	m, err := Parse(raw)
	if err != nil {
		return nil, nil, err
	}
	return m, raw, nil
}

// Validate compares a local metadata artifact against the metadata the node
// currently publishes.
func Validate(artifact, node []byte) error {
	af, nf := Fingerprint(artifact), Fingerprint(node)
	if af != nf {
		return fmt.Errorf("%w: artifact %016x, node %016x; %s", ErrMismatch, af, nf, RegenerateHint)
	}
	return nil
}
