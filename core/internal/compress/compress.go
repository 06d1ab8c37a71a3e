// Package compress maps the logical compression levels 0-4 onto deflate
// encoders and decodes stored payloads.
//
// Levels 1 and 2 are single zlib passes. Levels 3 and 4 run an exhaustive
// search over strategy, container and effort and keep the smallest output.
// The "store if not smaller" rule is the caller's responsibility.
package compress

import (
	"bytes"
	stdflate "compress/flate"
	stdgzip "compress/gzip"
	stdzlib "compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/baar/core/internal/baartype"
)

type Level = baartype.Level

const (
	LevelStore    = baartype.LevelStore
	LevelFast     = baartype.LevelFast
	LevelBalanced = baartype.LevelBalanced
	LevelBest     = baartype.LevelBest
	LevelUltra    = baartype.LevelUltra
)

const (
	effortFast    = zlib.BestSpeed
	effortDefault = zlib.DefaultCompression
	effortBest    = zlib.BestCompression
)

// errUnsupported marks a trial the underlying libraries cannot produce.
var errUnsupported = errors.New("compress: unsupported strategy/container combination")

// Strategy selects the deflate encoder used by a trial.
type Strategy uint8

const (
	// StrategyDefault is the klauspost/compress matcher.
	StrategyDefault Strategy = iota
	// StrategyFiltered is the standard library matcher, which parses
	// differently and sometimes wins on structured data.
	StrategyFiltered
	// StrategyRLE is the stateless short-history encoder.
	StrategyRLE
	// StrategyHuffman disables matching and entropy-codes literals only.
	StrategyHuffman
)

// String returns the strategy name.
func (s Strategy) String() string {
	switch s {
	case StrategyDefault:
		return "default"
	case StrategyFiltered:
		return "filtered"
	case StrategyRLE:
		return "rle"
	case StrategyHuffman:
		return "huffman"
	default:
		return "unknown"
	}
}

// usesEffort reports whether the effort knob changes the strategy's output.
func (s Strategy) usesEffort() bool {
	return s == StrategyDefault || s == StrategyFiltered
}

// Container is the framing around the deflate stream.
type Container uint8

const (
	ContainerZlib Container = iota
	ContainerGzip
	ContainerRaw
)

// String returns the container name.
func (c Container) String() string {
	switch c {
	case ContainerZlib:
		return "zlib"
	case ContainerGzip:
		return "gzip"
	case ContainerRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// trial is one point in the search space.
type trial struct {
	strategy  Strategy
	container Container
	effort    int
}

// Engine compresses buffers. The zero value is not usable; use New.
type Engine struct {
	concurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency bounds the number of concurrent search trials.
// Values <= 0 use GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.concurrency <= 0 {
		e.concurrency = runtime.GOMAXPROCS(0)
	}
	return e
}

// Compress encodes src at the given level. used is false when level is
// Store or src is empty, in which case out is src itself.
//
// The result may be larger than src; callers decide whether to keep it.
func (e *Engine) Compress(ctx context.Context, src []byte, level Level) (out []byte, used bool, err error) {
	if len(src) == 0 {
		return src, false, nil
	}
	switch level {
	case LevelStore:
		return src, false, nil
	case LevelFast:
		out, err = encode(trial{StrategyDefault, ContainerZlib, effortFast}, src)
	case LevelBalanced:
		out, err = encode(trial{StrategyDefault, ContainerZlib, effortDefault}, src)
	case LevelBest, LevelUltra:
		out, err = e.search(ctx, src, trials(level))
	default:
		return nil, false, fmt.Errorf("compress: invalid level %d", level)
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// trials enumerates the search space for Best and Ultra.
func trials(level Level) []trial {
	containers := []Container{ContainerZlib, ContainerRaw}
	efforts := []int{8, 9}
	if level == LevelUltra {
		containers = []Container{ContainerZlib, ContainerGzip, ContainerRaw}
		efforts = []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	}

	strategies := []Strategy{StrategyDefault, StrategyFiltered, StrategyRLE, StrategyHuffman}
	out := make([]trial, 0, len(strategies)*len(containers)*len(efforts))
	for _, s := range strategies {
		for _, c := range containers {
			if !s.usesEffort() {
				out = append(out, trial{s, c, effortBest})
				continue
			}
			for _, eff := range efforts {
				out = append(out, trial{s, c, eff})
			}
		}
	}
	return out
}

// search runs every trial and keeps the smallest successful output.
// Each trial writes only its own slot; the reduction happens after Wait.
// If no trial succeeds, a single zlib best-compression pass is used.
func (e *Engine) search(ctx context.Context, src []byte, ts []trial) ([]byte, error) {
	results := make([][]byte, len(ts))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, t := range ts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := encode(t, src)
			if err == nil {
				results[i] = out
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var best []byte
	for _, r := range results {
		if r != nil && (best == nil || len(r) < len(best)) {
			best = r
		}
	}
	if best == nil {
		return encode(trial{StrategyDefault, ContainerZlib, effortBest}, src)
	}
	return best, nil
}

// encode runs a single trial to completion.
func encode(t trial, src []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(src)/2 + 64)
	w, err := newWriter(t, &buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("compress %s/%s: %w", t.strategy, t.container, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress %s/%s: %w", t.strategy, t.container, err)
	}
	return buf.Bytes(), nil
}

func newWriter(t trial, w io.Writer) (io.WriteCloser, error) {
	switch t.strategy {
	case StrategyDefault:
		return newLevelWriter(t.container, w, t.effort)
	case StrategyHuffman:
		return newLevelWriter(t.container, w, flate.HuffmanOnly)
	case StrategyFiltered:
		switch t.container {
		case ContainerZlib:
			return stdzlib.NewWriterLevel(w, t.effort)
		case ContainerGzip:
			return stdgzip.NewWriterLevel(w, t.effort)
		case ContainerRaw:
			return stdflate.NewWriter(w, t.effort)
		}
	case StrategyRLE:
		switch t.container {
		case ContainerGzip:
			return gzip.NewWriterLevel(w, gzip.StatelessCompression)
		case ContainerRaw:
			return flate.NewStatelessWriter(w), nil
		case ContainerZlib:
			return nil, errUnsupported
		}
	}
	return nil, errUnsupported
}

func newLevelWriter(c Container, w io.Writer, level int) (io.WriteCloser, error) {
	switch c {
	case ContainerZlib:
		return zlib.NewWriterLevel(w, level)
	case ContainerGzip:
		return gzip.NewWriterLevel(w, level)
	case ContainerRaw:
		return flate.NewWriter(w, level)
	default:
		return nil, errUnsupported
	}
}
