package baar

import (
	"log/slog"

	"github.com/meigma/baar/core/keystream"
)

const (
	// DefaultReadConcurrency is the default number of payload ranges read
	// at once by ExtractToDir and VerifyAll.
	DefaultReadConcurrency = 4

	// DefaultReadAheadBytes is the default cap on payload bytes held in
	// memory by ExtractToDir and VerifyAll (64MB).
	DefaultReadAheadBytes = 64 << 20
)

// Option configures an Archive.
type Option func(*Archive)

// RenamePolicy decides what happens when a rename target is already taken.
type RenamePolicy uint8

const (
	// RenameDisplace tombstones the entry that held the target name.
	RenameDisplace RenamePolicy = iota

	// RenameReject fails the rename with ErrNameCollision.
	RenameReject
)

// String returns the policy name.
func (p RenamePolicy) String() string {
	switch p {
	case RenameDisplace:
		return "displace"
	case RenameReject:
		return "reject"
	default:
		return "unknown"
	}
}

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archive) {
		a.logger = logger
	}
}

// WithProgress sets a callback to receive progress updates.
// The callback receives events for appending, compacting, recompressing,
// verifying and extracting. Calls are serialized but may come from worker
// goroutines; the callback must not use the archive.
func WithProgress(fn ProgressFunc) Option {
	return func(a *Archive) {
		a.progress = fn
	}
}

// WithCipherMode selects the keystream mode used for encryption.
// When not set, the BAAR_LEGACY_XOR environment variable is consulted once
// at Open.
func WithCipherMode(m keystream.Mode) Option {
	return func(a *Archive) {
		a.mode = m
		a.modeSet = true
	}
}

// WithRenamePolicy sets the collision policy for Rename (default: RenameDisplace).
func WithRenamePolicy(p RenamePolicy) Option {
	return func(a *Archive) {
		a.renamePolicy = p
	}
}

// WithMaxEntrySize limits the stored and plaintext size of a single entry
// (default: 1GB). The limit bounds memory used while extracting.
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(a *Archive) {
		a.maxEntrySize = limit
	}
}

// WithSearchConcurrency bounds the parallel trials run by the Best and
// Ultra compression levels. Values <= 0 use GOMAXPROCS.
func WithSearchConcurrency(n int) Option {
	return func(a *Archive) {
		a.searchConcurrency = n
	}
}

// WithReadConcurrency sets how many payload ranges ExtractToDir and
// VerifyAll read at once. Values < 1 read serially.
func WithReadConcurrency(n int) Option {
	return func(a *Archive) {
		a.readConcurrency = n
	}
}

// WithReadAheadBytes caps the payload bytes ExtractToDir and VerifyAll hold
// in memory at once. Set limit to 0 to disable the cap.
func WithReadAheadBytes(limit uint64) Option {
	return func(a *Archive) {
		a.readAheadBytes = limit
	}
}

// ExtractOption configures ExtractToDir.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	overwrite     bool
	preserveMode  bool
	preserveTimes bool
}

// ExtractWithOverwrite allows overwriting existing files.
// By default, existing files are skipped.
func ExtractWithOverwrite(overwrite bool) ExtractOption {
	return func(c *extractConfig) {
		c.overwrite = overwrite
	}
}

// ExtractWithPreserveMode preserves permission bits from the archive.
// By default, files use umask defaults.
func ExtractWithPreserveMode(preserve bool) ExtractOption {
	return func(c *extractConfig) {
		c.preserveMode = preserve
	}
}

// ExtractWithPreserveTimes preserves modification times from the archive.
// By default, files use the current time.
func ExtractWithPreserveTimes(preserve bool) ExtractOption {
	return func(c *extractConfig) {
		c.preserveTimes = preserve
	}
}
