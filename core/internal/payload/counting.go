package payload

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/sizing"
)

// ErrOverflow indicates a counter exceeded its maximum value.
var ErrOverflow = errors.New("counter overflow")

// CountingWriter wraps a writer and counts bytes written.
type CountingWriter struct {
	W io.Writer
	N uint64
}

// Write implements io.Writer.
func (cw *CountingWriter) Write(p []byte) (int, error) {
	n, err := cw.W.Write(p)
	if n > 0 {
		//nolint:gosec // n is guaranteed non-negative by io.Writer contract
		if cw.N > ^uint64(0)-uint64(n) {
			return n, ErrOverflow
		}
		cw.N += uint64(n) //nolint:gosec // overflow checked above
	}
	return n, err
}

// CopyStored copies an entry's stored bytes verbatim from src to dst at
// dstOff, without decoding them. It returns the number of bytes copied,
// which always equals entry.CompSize on success.
func CopyStored(dst io.WriterAt, dstOff int64, src io.ReaderAt, entry *Entry) (uint64, error) {
	off, err := sizing.ToInt64(entry.DataOffset)
	if err != nil {
		return 0, err
	}
	n, err := sizing.ToInt64(entry.CompSize)
	if err != nil {
		return 0, err
	}
	cw := &CountingWriter{W: io.NewOffsetWriter(dst, dstOff)}
	if _, err := io.Copy(cw, io.NewSectionReader(src, off, n)); err != nil {
		return cw.N, fmt.Errorf("%w: copy %q: %w", baartype.ErrIO, entry.Name, err)
	}
	if cw.N != entry.CompSize {
		return cw.N, fmt.Errorf("%w: copy %q: short payload (%d of %d bytes)",
			baartype.ErrCorruptCatalog, entry.Name, cw.N, entry.CompSize)
	}
	return cw.N, nil
}
