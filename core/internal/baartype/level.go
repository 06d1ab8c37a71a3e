package baartype

import (
	"fmt"
	"strconv"
	"strings"
)

// Level is the logical compression policy applied to an entry.
type Level int8

const (
	// LevelAuto asks the engine to pick 0, 1 or 2 from a content sample.
	// It is never stored in the catalog.
	LevelAuto Level = iota - 1
	LevelStore
	LevelFast
	LevelBalanced
	LevelBest
	LevelUltra
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelAuto:
		return "auto"
	case LevelStore:
		return "store"
	case LevelFast:
		return "fast"
	case LevelBalanced:
		return "balanced"
	case LevelBest:
		return "best"
	case LevelUltra:
		return "ultra"
	default:
		return "unknown"
	}
}

// Valid reports whether l may be stored in a catalog entry.
func (l Level) Valid() bool {
	return l >= LevelStore && l <= LevelUltra
}

// ParseLevel accepts a level name or its number.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		l := Level(n) //nolint:gosec // range checked below
		if n >= -1 && n <= int(LevelUltra) {
			return l, nil
		}
		return 0, fmt.Errorf("compression level %d out of range", n)
	}
	for l := LevelAuto; l <= LevelUltra; l++ {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown compression level %q", s)
}
