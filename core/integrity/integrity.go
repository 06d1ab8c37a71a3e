// Package integrity computes and verifies the plaintext checksum stored with
// every entry.
//
// The checksum covers the original uncompressed bytes, so it also acts as
// the only password-correctness signal for encrypted entries.
package integrity

import (
	"errors"
	"fmt"
	"hash/crc32"
)

// ErrMismatch is returned when content does not match its stored checksum.
var ErrMismatch = errors.New("integrity: checksum mismatch")

var table = crc32.MakeTable(crc32.IEEE)

// Checksum returns the CRC-32 (IEEE) of b.
func Checksum(b []byte) uint32 {
	return crc32.Checksum(b, table)
}

// Verify returns an error wrapping ErrMismatch when Checksum(b) != want.
func Verify(b []byte, want uint32) error {
	if got := Checksum(b); got != want {
		return fmt.Errorf("%w: got %08x, want %08x", ErrMismatch, got, want)
	}
	return nil
}
