package batch

import "github.com/meigma/baar/core/internal/baartype"

// Entry is an alias for baartype.Entry.
type Entry = baartype.Entry

// Sink receives decoded and verified entry content.
//
// Put may be called from several goroutines at once.
type Sink interface {
	// ShouldProcess returns false if this entry should be skipped,
	// for example because the destination file already exists.
	ShouldProcess(entry *Entry) bool

	// Put consumes the plaintext of entry. content must not be retained
	// after Put returns.
	Put(entry *Entry, content []byte) error
}

// SinkFunc adapts a function to a Sink that processes every entry.
type SinkFunc func(entry *Entry, content []byte) error

// ShouldProcess implements Sink.
func (f SinkFunc) ShouldProcess(*Entry) bool { return true }

// Put implements Sink.
func (f SinkFunc) Put(entry *Entry, content []byte) error { return f(entry, content) }
