// Package keystream obscures payload bytes with a password-derived XOR
// keystream.
//
// This is not an authenticated cipher. A wrong password is only detected
// downstream, by a decompression failure or a checksum mismatch.
//
// The PBKDF2 salt is the first 16 bytes of SHA-256(password), so equal
// passwords yield equal keystreams across archives. A random per-archive
// salt would need a format version bump; existing archives depend on this
// derivation.
package keystream

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// Iterations is the PBKDF2 iteration count.
	Iterations = 100_000

	// KeySize is the derived key length in bytes.
	KeySize = 32

	// SaltSize is the number of SHA-256(password) bytes used as salt.
	SaltSize = 16

	// BlockSize is the keystream block length, one HMAC-SHA-256 output.
	BlockSize = sha256.Size

	// EnvLegacy selects ModeLegacy when set to "1" or "true".
	EnvLegacy = "BAAR_LEGACY_XOR"
)

var domain = []byte("BAARSTREAM")

// Mode selects the keystream construction.
type Mode uint8

const (
	// ModeDefault is PBKDF2 key derivation plus an HMAC-SHA-256 counter stream.
	ModeDefault Mode = iota

	// ModeLegacy XORs with the repeating password bytes. Deprecated: only
	// kept to read archives written by old versions.
	ModeLegacy
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDefault:
		return "default"
	case ModeLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ModeFromEnv returns ModeLegacy when EnvLegacy is enabled.
func ModeFromEnv() Mode {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(EnvLegacy))) {
	case "1", "true", "yes", "on":
		return ModeLegacy
	default:
		return ModeDefault
	}
}

// DeriveKey returns the 32-byte PBKDF2-HMAC-SHA-256 key for password.
// Callers should Wipe the key when done.
func DeriveKey(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	salt := sum[:SaltSize]
	key := pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New)
	Wipe(sum[:])
	return key
}

// Apply XORs buf in place with the keystream for password. Applying it
// twice restores the input. Empty passwords and buffers are no-ops.
func Apply(buf []byte, password string, mode Mode) {
	if password == "" || len(buf) == 0 {
		return
	}
	if mode == ModeLegacy {
		applyLegacy(buf, password)
		return
	}
	key := DeriveKey(password)
	defer Wipe(key)
	ApplyWithKey(buf, key)
}

// ApplyWithKey XORs buf with the keystream generated from a derived key.
func ApplyWithKey(buf, key []byte) {
	mac := hmac.New(sha256.New, key)
	var msg [10 + 8]byte
	copy(msg[:], domain)
	block := make([]byte, 0, BlockSize)
	defer Wipe(block[:cap(block)])

	var counter uint64
	for off := 0; off < len(buf); off += BlockSize {
		binary.BigEndian.PutUint64(msg[len(domain):], counter)
		mac.Reset()
		mac.Write(msg[:])
		block = mac.Sum(block[:0])
		n := min(BlockSize, len(buf)-off)
		for i := range n {
			buf[off+i] ^= block[i]
		}
		counter++
	}
}

func applyLegacy(buf []byte, password string) {
	for i := range buf {
		buf[i] ^= password[i%len(password)]
	}
}

// Wipe zeroes b.
func Wipe(b []byte) {
	clear(b)
}
