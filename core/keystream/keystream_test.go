package keystream

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_RoundTrip(t *testing.T) {
	sizes := []int{0, 1, 31, 32, 33, 64, 100, 4097}
	for _, mode := range []Mode{ModeDefault, ModeLegacy} {
		for _, n := range sizes {
			t.Run(mode.String(), func(t *testing.T) {
				orig := make([]byte, n)
				rand.New(rand.NewSource(int64(n))).Read(orig) //nolint:gosec // test data
				buf := bytes.Clone(orig)

				Apply(buf, "hunter2", mode)
				if n >= 8 {
					assert.NotEqual(t, orig, buf)
				}
				Apply(buf, "hunter2", mode)
				assert.Equal(t, orig, buf)
			})
		}
	}
}

func TestApply_EmptyPasswordIsNoop(t *testing.T) {
	buf := []byte("plaintext")
	Apply(buf, "", ModeDefault)
	assert.Equal(t, []byte("plaintext"), buf)
}

func TestApply_DefaultMatchesConstruction(t *testing.T) {
	// Rebuild the stream by hand: block i = HMAC(key, "BAARSTREAM" || be64(i)).
	buf := make([]byte, 70)
	Apply(buf, "pw", ModeDefault)

	key := DeriveKey("pw")
	var want []byte
	for i := uint64(0); len(want) < len(buf); i++ {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte("BAARSTREAM"))
		var ctr [8]byte
		binary.BigEndian.PutUint64(ctr[:], i)
		mac.Write(ctr[:])
		want = mac.Sum(want)
	}
	assert.Equal(t, want[:len(buf)], buf)
}

func TestApply_Legacy(t *testing.T) {
	buf := []byte{0, 0, 0, 0, 0}
	Apply(buf, "ab", ModeLegacy)
	assert.Equal(t, []byte("ababa"), buf)
}

func TestApply_DifferentPasswordsDiffer(t *testing.T) {
	a := make([]byte, 48)
	b := make([]byte, 48)
	Apply(a, "one", ModeDefault)
	Apply(b, "two", ModeDefault)
	assert.NotEqual(t, a, b)
}

func TestDeriveKey(t *testing.T) {
	k1 := DeriveKey("hunter2")
	k2 := DeriveKey("hunter2")
	require.Len(t, k1, KeySize)
	assert.Equal(t, k1, k2, "salt is derived from the password, so keys are deterministic")

	Wipe(k1)
	assert.Equal(t, make([]byte, KeySize), k1)
}

func TestModeFromEnv(t *testing.T) {
	tests := []struct {
		val  string
		want Mode
	}{
		{"", ModeDefault},
		{"0", ModeDefault},
		{"1", ModeLegacy},
		{"TRUE", ModeLegacy},
	}
	for _, tt := range tests {
		t.Run(tt.val, func(t *testing.T) {
			t.Setenv(EnvLegacy, tt.val)
			assert.Equal(t, tt.want, ModeFromEnv())
		})
	}
}
