package crypto

import "github.com/awnumar/memguard"

// Wipe zeroes a secret buffer in place. Used for DEKs and KEM shared
// secrets on every exit path, including error paths.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	memguard.WipeBytes(b)
}
