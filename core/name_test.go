package baar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"a.txt", "a.txt"},
		{"/etc/nginx", "etc/nginx"},
		{"etc//nginx/", "etc/nginx/"},
		{"photos/", "photos/"},
		{"//", ""},
		{"", ""},
		{"./a", "./a"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.input))
		})
	}
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	valid := []string{"a.txt", "dir/", "docs/a/b.txt", "weird name.bin"}
	for _, name := range valid {
		require.NoError(t, ValidateName(name), name)
	}

	invalid := []string{"", "/", "/abs", "../up", "a/../b", "./a", "a//b", "nul\x00", strings.Repeat("x", 70000)}
	for _, name := range invalid {
		require.ErrorIs(t, ValidateName(name), ErrInvalidName, name)
	}
}
