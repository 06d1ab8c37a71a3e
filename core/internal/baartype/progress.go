package baartype

// ProgressEvent represents a progress update during a mutation or bulk read.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Name is the entry currently being processed, if applicable.
	Name string

	// EntriesDone is the number of entries completed.
	EntriesDone int

	// EntriesTotal is the total number of entries.
	// Zero indicates the total is unknown.
	EntriesTotal int

	// BytesDone is the number of payload bytes written or read so far.
	BytesDone uint64
}

// Percent returns completion in the range 0..100, or 0 when the total is unknown.
func (e ProgressEvent) Percent() int {
	if e.EntriesTotal <= 0 {
		return 0
	}
	return e.EntriesDone * 100 / e.EntriesTotal
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for archive operations.
const (
	// StageAppending indicates entries are being encoded and appended.
	StageAppending ProgressStage = iota

	// StageCompacting indicates payloads are being copied into a fresh file.
	StageCompacting

	// StageRecompressing indicates payloads are being re-encoded.
	StageRecompressing

	// StageVerifying indicates entries are being checked.
	StageVerifying

	// StageExtracting indicates entries are being written out.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageAppending:
		return "appending"
	case StageCompacting:
		return "compacting"
	case StageRecompressing:
		return "recompressing"
	case StageVerifying:
		return "verifying"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates. It is purely observational.
type ProgressFunc func(ProgressEvent)
