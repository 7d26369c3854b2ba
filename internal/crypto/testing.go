package crypto

import "io"

// SetRandReaderForTesting sets the random source used by GenerateKeypair,
// so tests can produce deterministic keypairs. Returns a function that
// restores the original source. Internal package: unreachable from outside
// the module.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}
