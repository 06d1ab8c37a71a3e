package baar

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	baarcore "github.com/meigma/baar/core"
)

// Format identifies what Open found at a path.
type Format uint8

const (
	// FormatBaar is a BAAR archive, or a missing or empty file that Open
	// initialized as one.
	FormatBaar Format = iota + 1

	// FormatForeign is a recognized container of another kind.
	FormatForeign
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatBaar:
		return "baar"
	case FormatForeign:
		return "foreign"
	default:
		return "unknown"
	}
}

// ForeignFormat describes a non-BAAR container found by Open.
type ForeignFormat struct {
	// Name is a short lowercase identifier such as "zip" or "tar".
	Name string

	// Path is the file that was inspected.
	Path string
}

// Handle is the result of Open: either an open archive or a description of
// a foreign file.
type Handle struct {
	path    string
	format  Format
	archive *Archive
	foreign ForeignFormat
}

// Path returns the inspected path.
func (h *Handle) Path() string {
	return h.path
}

// Format reports what Open found.
func (h *Handle) Format() Format {
	return h.format
}

// Archive returns the open archive when Format is FormatBaar.
func (h *Handle) Archive() (*Archive, bool) {
	return h.archive, h.archive != nil
}

// Foreign returns the foreign format when Format is FormatForeign.
func (h *Handle) Foreign() (ForeignFormat, bool) {
	return h.foreign, h.format == FormatForeign
}

// Close closes the archive, if any. It is safe to call more than once.
func (h *Handle) Close() error {
	if h.archive == nil {
		return nil
	}
	return h.archive.Close()
}

// signature is a magic byte sequence at a fixed offset.
type signature struct {
	name   string
	offset int
	magic  []byte
}

// signatures lists the foreign formats Open recognizes.
var signatures = []signature{
	{name: "zip", magic: []byte("PK\x03\x04")},
	{name: "zip", magic: []byte("PK\x05\x06")},
	{name: "zip", magic: []byte("PK\x07\x08")},
	{name: "gzip", magic: []byte{0x1f, 0x8b}},
	{name: "zstd", magic: []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{name: "xz", magic: []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{name: "bzip2", magic: []byte("BZh")},
	{name: "7z", magic: []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c}},
	{name: "rar", magic: []byte("Rar!\x1a\x07")},
	{name: "tar", offset: 257, magic: []byte("ustar")},
}

// sniffLen covers the longest signature window.
const sniffLen = 262

// Open inspects path once and opens it.
//
// A missing or empty file, or one that starts with the BAAR magic, is opened
// with the archive engine (creating a new archive when needed). A file with
// a recognized foreign signature yields a FormatForeign handle. Anything
// else fails with ErrBadMagic and the file is left untouched.
func Open(path string, opts ...Option) (*Handle, error) {
	if restoring(path) {
		return openArchive(path, opts)
	}

	head, err := readHead(path)
	if err != nil {
		return nil, err
	}
	if len(head) == 0 || isBaar(head) {
		return openArchive(path, opts)
	}
	if name, ok := detectForeign(head); ok {
		return &Handle{
			path:    path,
			format:  FormatForeign,
			foreign: ForeignFormat{Name: name, Path: path},
		}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
}

func openArchive(path string, opts []Option) (*Handle, error) {
	a, err := baarcore.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	return &Handle{path: path, format: FormatBaar, archive: a}, nil
}

// restoring reports whether a rebuild backup is waiting next to path. The
// engine restores it before reading path, so the current bytes at path
// must not be judged.
func restoring(path string) bool {
	info, err := os.Lstat(path + baarcore.BackupSuffix)
	return err == nil && info.Mode().IsRegular()
}

// readHead returns up to sniffLen leading bytes of path, or nil when the
// file does not exist.
func readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open: %w", ErrIO, err)
	}
	defer f.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("%w: read: %w", ErrIO, err)
	}
	return buf[:n], nil
}

// isBaar reports whether head is, or could be the start of, the BAAR magic.
// Truncated files are left to the engine to reject.
func isBaar(head []byte) bool {
	if len(head) >= len(baarcore.Magic) {
		return string(head[:len(baarcore.Magic)]) == baarcore.Magic
	}
	return string(head) == baarcore.Magic[:len(head)]
}

func detectForeign(head []byte) (string, bool) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(head) >= end && bytes.Equal(head[sig.offset:end], sig.magic) {
			return sig.name, true
		}
	}
	return "", false
}
