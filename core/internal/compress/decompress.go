package compress

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/sizing"
)

// Detect guesses the container of a stored payload from its leading bytes.
//
// A valid zlib header is not proof: raw deflate can start with bytes that
// happen to pass the check, so Decompress falls back to raw on failure.
func Detect(src []byte) Container {
	if len(src) >= 2 && src[0] == 0x1f && src[1] == 0x8b {
		return ContainerGzip
	}
	if isZlibHeader(src) {
		return ContainerZlib
	}
	return ContainerRaw
}

func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	cmf, flg := b[0], b[1]
	return cmf&0x0f == 8 && cmf>>4 <= 7 && flg&0x20 == 0 && (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// Decompress inflates src, which must expand to exactly size bytes.
// Every failure wraps ErrDecompression.
func Decompress(src []byte, size uint64) ([]byte, error) {
	n, err := sizing.ToInt(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", baartype.ErrDecompression, err)
	}

	switch Detect(src) {
	case ContainerGzip:
		zr, err := gzip.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("%w: gzip header: %w", baartype.ErrDecompression, err)
		}
		defer zr.Close()
		zr.Multistream(false)
		return inflate(zr, n)
	case ContainerZlib:
		if out, err := inflateZlib(src, n); err == nil {
			return out, nil
		}
		fallthrough
	default:
		fr := flate.NewReader(bytes.NewReader(src))
		defer fr.Close()
		return inflate(fr, n)
	}
}

func inflateZlib(src []byte, n int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return inflate(zr, n)
}

// inflate reads exactly n bytes and then requires a clean EOF, which also
// forces zlib and gzip readers to verify their trailers.
func inflate(r io.Reader, n int) ([]byte, error) {
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %w", baartype.ErrDecompression, err)
	}
	var extra [1]byte
	m, err := r.Read(extra[:])
	for m == 0 && err == nil {
		m, err = r.Read(extra[:])
	}
	if m > 0 {
		return nil, fmt.Errorf("%w: output exceeds %d bytes", baartype.ErrDecompression, n)
	}
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", baartype.ErrDecompression, err)
	}
	return out, nil
}
