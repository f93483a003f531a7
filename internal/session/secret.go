// SPDX-License-Identifier: MIT
package session

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// secretCharset matches what the host accepts for local account
// passphrases: digits, both cases and a symbol block.
const secretCharset = "0123456789abcdefghijklmnopqrstuvwxyz!@#$%^&*()ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// SecretLength is the default passphrase length, the maximum the host
// will accept.
const SecretLength = 255

// GenerateSecret produces a uniformly random passphrase of the given
// length. Lengths outside [1,255] clamp to the maximum.
func GenerateSecret(length int) (string, error) {
	if length < 1 || length > SecretLength {
		length = SecretLength
	}
	max := big.NewInt(int64(len(secretCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate secret: %w", err)
		}
		out[i] = secretCharset[n.Int64()]
	}
	return string(out), nil
}
