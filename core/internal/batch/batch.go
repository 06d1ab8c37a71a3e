// Package batch decodes many archive entries with few reads.
//
// Entries are sorted by offset and grouped into contiguous byte ranges.
// Each group is fetched with one ReadAt, then its entries are decrypted,
// decompressed and verified, in parallel when they are large enough.
package batch

import (
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/payload"
	"github.com/meigma/baar/core/internal/sizing"
	"github.com/meigma/baar/core/keystream"
)

// parallelMinAvgBytes is the minimum average entry size to decode a group
// in parallel. Below it, serial decoding is cheaper.
const parallelMinAvgBytes = 64 << 10

// Processor reads and decodes entries from an archive.
type Processor struct {
	source          payload.ByteSource
	password        string
	mode            keystream.Mode
	maxEntrySize    uint64
	workers         int // 0 = auto, <0 = serial, >0 = fixed count
	readConcurrency int
	readAheadBytes  uint64
	progress        func(entry *Entry, processed int, bytes uint64)
	logger          *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of decode workers per group.
// Values < 0 force serial decoding. Zero uses automatic heuristics.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithReadConcurrency sets the number of groups read concurrently.
// Values < 1 force serial reads.
func WithReadConcurrency(n int) ProcessorOption {
	return func(p *Processor) {
		p.readConcurrency = max(n, 1)
	}
}

// WithReadAheadBytes caps the total size of group data held in memory.
// A value of 0 disables the byte budget.
func WithReadAheadBytes(limit uint64) ProcessorOption {
	return func(p *Processor) {
		p.readAheadBytes = limit
	}
}

// WithPassword sets the password used for encrypted entries.
func WithPassword(password string, mode keystream.Mode) ProcessorOption {
	return func(p *Processor) {
		p.password = password
		p.mode = mode
	}
}

// WithProgress registers fn to run after each processed entry. Calls are
// serialized.
func WithProgress(fn func(entry *Entry, processed int, bytes uint64)) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithLogger sets the logger for batch operations.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a processor over source.
// maxEntrySize limits individual entries (0 for no limit).
func NewProcessor(source payload.ByteSource, maxEntrySize uint64, opts ...ProcessorOption) *Processor {
	p := &Processor{
		source:          source,
		maxEntrySize:    maxEntrySize,
		readConcurrency: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process decodes entries and hands each plaintext to sink.
//
// A failing entry does not stop the batch: it is recorded in the returned
// stats and processing continues. The error result is only set when ctx
// ends early.
func (p *Processor) Process(ctx context.Context, entries []*Entry, sink Sink) (ProcessStats, error) {
	rec := &recorder{progress: p.progress}

	toProcess := make([]*Entry, 0, len(entries))
	size := p.source.Size()
	for _, entry := range entries {
		if !sink.ShouldProcess(entry) {
			rec.stats.Skipped++
			continue
		}
		if err := payload.ValidateAll(entry, size, p.maxEntrySize); err != nil {
			rec.fail(entry, fmt.Errorf("read %s: %w", entry.Name, err))
			continue
		}
		toProcess = append(toProcess, entry)
	}
	if len(toProcess) == 0 {
		return rec.stats, ctx.Err()
	}

	slices.SortStableFunc(toProcess, func(a, b *Entry) int {
		switch {
		case a.DataOffset < b.DataOffset:
			return -1
		case a.DataOffset > b.DataOffset:
			return 1
		}
		return 0
	})
	groups := groupAdjacentEntries(toProcess)
	p.log().Debug("batch processing", "entries", len(toProcess), "groups", len(groups))

	err := p.processGroups(ctx, groups, sink, rec)
	slices.SortFunc(rec.stats.Failed, func(a, b Failure) int {
		return cmp.Compare(a.Entry.ID, b.Entry.ID)
	})
	return rec.stats, err
}

// processGroups reads groups with bounded concurrency and memory.
func (p *Processor) processGroups(ctx context.Context, groups []rangeGroup, sink Sink, rec *recorder) error {
	var budget *semaphore.Weighted
	var limit int64
	if p.readAheadBytes > 0 {
		var err error
		limit, err = sizing.ToInt64(p.readAheadBytes)
		if err != nil {
			return fmt.Errorf("batch: %w", err)
		}
		budget = semaphore.NewWeighted(limit)
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(max(p.readConcurrency, 1))

	for _, group := range groups {
		if err := gctx.Err(); err != nil {
			break
		}
		var weight int64
		if budget != nil {
			// A group larger than the budget runs alone.
			weight = min(int64(group.size()), limit) //nolint:gosec // group sizes are bounded by the file size
			if err := budget.Acquire(gctx, weight); err != nil {
				break
			}
		}
		eg.Go(func() error {
			if budget != nil {
				defer budget.Release(weight)
			}
			data, err := p.readGroupData(group)
			if err != nil {
				for _, entry := range group.entries {
					rec.fail(entry, fmt.Errorf("read %s: %w", entry.Name, err))
				}
				return nil
			}
			return p.processGroupWithData(gctx, group, data, sink, rec)
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// readGroupData reads the contiguous byte range for a group.
func (p *Processor) readGroupData(group rangeGroup) ([]byte, error) {
	n, err := sizing.ToInt(group.size())
	if err != nil {
		return nil, err
	}
	data := make([]byte, n)
	if n == 0 {
		return data, nil
	}
	m, err := p.source.ReadAt(data, int64(group.start)) //nolint:gosec // offset validated against the source size
	if m == n {
		return data, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("short read (%d of %d bytes)", m, n)
	}
	return nil, fmt.Errorf("%w: %w", baartype.ErrIO, err)
}

// processGroupWithData decodes every entry of a group from its bytes.
func (p *Processor) processGroupWithData(ctx context.Context, group rangeGroup, data []byte, sink Sink, rec *recorder) error {
	workers := p.workerCount(group.entries)
	if workers < 2 {
		for _, entry := range group.entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.processEntry(entry, data, group.start, sink, rec)
		}
		return nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for _, entry := range group.entries {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.processEntry(entry, data, group.start, sink, rec)
			return nil
		})
	}
	return eg.Wait()
}

// processEntry decodes one entry and delivers it to sink.
func (p *Processor) processEntry(entry *Entry, groupData []byte, groupStart uint64, sink Sink, rec *recorder) {
	local := entry.DataOffset - groupStart
	stored := groupData[local : local+entry.CompSize]
	if entry.Encrypted() {
		// Decode decrypts in place; keep the shared group buffer intact.
		stored = bytes.Clone(stored)
	}

	content, err := payload.Decode(stored, entry, p.password, p.mode)
	if err != nil {
		rec.fail(entry, fmt.Errorf("read %s: %w", entry.Name, err))
		return
	}
	if err := sink.Put(entry, content); err != nil {
		rec.fail(entry, err)
		return
	}
	rec.ok(entry, len(content))
}

// workerCount determines the number of workers for a group.
func (p *Processor) workerCount(entries []*Entry) int {
	if len(entries) < 2 || p.workers < 0 {
		return 1
	}

	workers := p.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
		var total uint64
		for _, entry := range entries {
			next, ok := sizing.AddUint64(total, entry.UncompSize)
			if !ok {
				total = ^uint64(0)
				break
			}
			total = next
		}
		if total/uint64(len(entries)) < parallelMinAvgBytes {
			return 1
		}
	}
	return min(workers, len(entries))
}
