// Package cryptox provides random secrets and secure memory wiping.
package cryptox

import "crypto/rand"

// RandomBytes returns size bytes from the system CSPRNG.
func RandomBytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Wipe overwrites b with zeros. It is a no-op for nil.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
