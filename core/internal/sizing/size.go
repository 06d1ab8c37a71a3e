// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import (
	"math"

	"github.com/meigma/baar/core/internal/baartype"
)

// ToInt converts a uint64 to int, returning ErrSizeOverflow if it doesn't fit.
func ToInt(size uint64) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, baartype.ErrSizeOverflow
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning ErrSizeOverflow if it doesn't fit.
func ToInt64(size uint64) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, baartype.ErrSizeOverflow
	}
	return int64(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// WithinFile reports whether [off, off+n) lies inside a file of fileSize bytes.
func WithinFile(off, n uint64, fileSize int64) bool {
	end, ok := AddUint64(off, n)
	if !ok || fileSize < 0 {
		return false
	}
	return end <= uint64(fileSize)
}
