package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSink writes entries below a destination directory.
//
// Files are written to a temporary file in the target directory and
// renamed into place, so a partially written file is never visible at
// the final path. All access goes through an os.Root, which rejects names
// that would leave the destination.
type FileSink struct {
	root          *os.Root
	overwrite     bool
	preserveMode  bool
	preserveTimes bool
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func WithOverwrite(overwrite bool) FileSinkOption {
	return func(s *FileSink) {
		s.overwrite = overwrite
	}
}

// WithPreserveMode applies the archived permission bits.
func WithPreserveMode(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveMode = preserve
	}
}

// WithPreserveTimes applies the archived modification time.
func WithPreserveTimes(preserve bool) FileSinkOption {
	return func(s *FileSink) {
		s.preserveTimes = preserve
	}
}

// NewFileSink opens destDir, creating it if needed. Close releases it.
func NewFileSink(destDir string, opts ...FileSinkOption) (*FileSink, error) {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return nil, fmt.Errorf("open destination root %s: %w", destDir, err)
	}
	s := &FileSink{root: root}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the destination root.
func (s *FileSink) Close() error {
	return s.root.Close()
}

// relPath maps an entry name to a path relative to the destination.
func relPath(entry *Entry) (string, error) {
	name := strings.TrimSuffix(entry.Name, "/")
	if !fs.ValidPath(name) || name == "." {
		return "", &fs.PathError{Op: "extract", Path: entry.Name, Err: fs.ErrInvalid}
	}
	return filepath.FromSlash(name), nil
}

// ShouldProcess returns false for directories, and for files that already
// exist when overwrite is disabled.
func (s *FileSink) ShouldProcess(entry *Entry) bool {
	if entry.IsDir() {
		return false
	}
	if s.overwrite {
		return true
	}
	rel, err := relPath(entry)
	if err != nil {
		return true // Put reports the bad name.
	}
	_, err = s.root.Lstat(rel)
	return errors.Is(err, fs.ErrNotExist)
}

// MkdirAll creates the directory for a directory entry.
func (s *FileSink) MkdirAll(entry *Entry) error {
	rel, err := relPath(entry)
	if err != nil {
		return err
	}
	return s.root.MkdirAll(rel, 0o750)
}

// Put writes content to the entry's path.
func (s *FileSink) Put(entry *Entry, content []byte) error {
	rel, err := relPath(entry)
	if err != nil {
		return err
	}
	if err := s.root.MkdirAll(filepath.Dir(rel), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", entry.Name, err)
	}

	tmp, tmpRel, err := createTempFile(s.root, filepath.Dir(rel), ".baar-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()           //nolint:errcheck // best-effort cleanup
			_ = s.root.Remove(tmpRel) //nolint:errcheck // best-effort cleanup
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write %s: %w", entry.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := s.ApplyMetadata(tmpRel, entry); err != nil {
		return err
	}
	if info, err := s.root.Lstat(rel); err == nil && info.IsDir() {
		return &fs.PathError{Op: "extract", Path: entry.Name, Err: errors.New("is a directory")}
	}
	if err := s.root.Rename(tmpRel, rel); err != nil {
		return fmt.Errorf("rename to %s: %w", entry.Name, err)
	}
	success = true
	return nil
}

// ApplyMetadata applies mode and time metadata to rel, when enabled.
func (s *FileSink) ApplyMetadata(rel string, entry *Entry) error {
	if s.preserveMode {
		if err := s.root.Chmod(rel, entry.FileMode().Perm()); err != nil {
			return fmt.Errorf("chmod: %w", err)
		}
	}
	if s.preserveTimes {
		mtime := entry.ModTime()
		if err := s.root.Chtimes(rel, mtime, mtime); err != nil {
			return fmt.Errorf("chtimes: %w", err)
		}
	}
	return nil
}

// ApplyDirMetadata applies metadata to a directory entry.
func (s *FileSink) ApplyDirMetadata(entry *Entry) error {
	rel, err := relPath(entry)
	if err != nil {
		return err
	}
	return s.ApplyMetadata(rel, entry)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		p := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, p, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
