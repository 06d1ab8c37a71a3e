package baar

import (
	"fmt"
	"io/fs"
	"math"
	"path/filepath"
	"strings"
)

// NormalizeName converts a user-provided path to an archive name.
//
// It performs the following transformations:
//   - Converts OS separators to "/"
//   - Strips leading slashes: "/etc/nginx" → "etc/nginx"
//   - Collapses consecutive slashes: "etc//nginx" → "etc/nginx"
//   - Keeps a single trailing slash, which marks a directory
//
// The result is not validated; use ValidateName for that.
func NormalizeName(p string) string {
	p = filepath.ToSlash(p)
	dir := strings.HasSuffix(p, "/")
	p = strings.Trim(p, "/")

	parts := strings.Split(p, "/")
	result := parts[:0]
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	name := strings.Join(result, "/")
	if dir && name != "" {
		name += "/"
	}
	return name
}

// ValidateName reports whether name can be stored in the catalog.
//
// A valid name is a slash-separated relative path without "." or ".."
// elements, optionally ending in "/" for a directory. The length limit
// comes from the 16-bit length prefix on disk.
func ValidateName(name string) error {
	if name == "" || name == "/" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	if len(name) > math.MaxUint16 {
		return fmt.Errorf("%w: name is %d bytes", ErrInvalidName, len(name))
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains NUL", ErrInvalidName, name)
	}
	if !fs.ValidPath(strings.TrimSuffix(name, "/")) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// isDirName reports whether name denotes a directory placeholder.
func isDirName(name string) bool {
	return strings.HasSuffix(name, "/")
}
