package baar

import baarcore "github.com/meigma/baar/core"

// --- Re-exports from core ---

// Archive is an open BAAR archive.
type Archive = baarcore.Archive

// Session carries the password for encrypted entries.
type Session = baarcore.Session

// Option configures an Archive.
type Option = baarcore.Option

// ExtractOption configures ExtractToDir.
type ExtractOption = baarcore.ExtractOption

// Entry is a catalog record.
type Entry = baarcore.Entry

// EntrySummary is the listing view of a live entry.
type EntrySummary = baarcore.EntrySummary

// EntryStatus is the verification result for one entry.
type EntryStatus = baarcore.EntryStatus

// Item describes one entry to append.
type Item = baarcore.Item

// AppendResult reports the outcome of Append and AddPaths.
type AppendResult = baarcore.AppendResult

// SkippedSource is a source that Append could not read.
type SkippedSource = baarcore.SkippedSource

// SourceFile is one result of EnumerateFiles.
type SourceFile = baarcore.SourceFile

// ExtractStats reports the outcome of ExtractToDir.
type ExtractStats = baarcore.ExtractStats

// Level is the compression policy applied to an entry.
type Level = baarcore.Level

// RenamePolicy decides what happens when a rename target is taken.
type RenamePolicy = baarcore.RenamePolicy

// ProgressEvent describes progress of a long-running operation.
type ProgressEvent = baarcore.ProgressEvent

// ProgressStage identifies the phase reported by a ProgressEvent.
type ProgressStage = baarcore.ProgressStage

// ProgressFunc receives progress events.
type ProgressFunc = baarcore.ProgressFunc

// Level constants.
const (
	LevelAuto     = baarcore.LevelAuto
	LevelStore    = baarcore.LevelStore
	LevelFast     = baarcore.LevelFast
	LevelBalanced = baarcore.LevelBalanced
	LevelBest     = baarcore.LevelBest
	LevelUltra    = baarcore.LevelUltra
)

// Rename policies.
const (
	RenameDisplace = baarcore.RenameDisplace
	RenameReject   = baarcore.RenameReject
)

// Archive options re-exported from core.
var (
	WithLogger            = baarcore.WithLogger
	WithProgress          = baarcore.WithProgress
	WithCipherMode        = baarcore.WithCipherMode
	WithRenamePolicy      = baarcore.WithRenamePolicy
	WithMaxEntrySize      = baarcore.WithMaxEntrySize
	WithSearchConcurrency = baarcore.WithSearchConcurrency
	WithReadConcurrency   = baarcore.WithReadConcurrency
	WithReadAheadBytes    = baarcore.WithReadAheadBytes
)

// Extract options re-exported from core.
var (
	ExtractWithOverwrite     = baarcore.ExtractWithOverwrite
	ExtractWithPreserveMode  = baarcore.ExtractWithPreserveMode
	ExtractWithPreserveTimes = baarcore.ExtractWithPreserveTimes
)

// NewSession returns a session for password. An empty password means
// entries are neither encrypted nor decryptable.
var NewSession = baarcore.NewSession

// ParseLevel accepts a level name or its number.
var ParseLevel = baarcore.ParseLevel

// EnumerateFiles walks a directory tree for AddPaths.
var EnumerateFiles = baarcore.EnumerateFiles

// NormalizeName converts a user-provided path to archive name form.
var NormalizeName = baarcore.NormalizeName
