package payload

import (
	"fmt"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/sizing"
)

// ValidateForRead checks that an entry is safe to read from a source of the given size.
// It validates:
//   - Source size is non-negative
//   - Payload sizes are within maxEntrySize (if limit > 0)
//   - Data offset + size doesn't overflow
//   - Data range is within source bounds
func ValidateForRead(entry *Entry, sourceSize int64, maxEntrySize uint64) error {
	if sourceSize < 0 {
		return baartype.ErrSizeOverflow
	}
	if maxEntrySize > 0 {
		if entry.CompSize > maxEntrySize || entry.UncompSize > maxEntrySize {
			return fmt.Errorf("%w: entry exceeds %d bytes", baartype.ErrSizeOverflow, maxEntrySize)
		}
	}
	if !sizing.WithinFile(entry.DataOffset, entry.CompSize, sourceSize) {
		return fmt.Errorf("%w: payload [%d,+%d) outside archive of %d bytes",
			baartype.ErrCorruptCatalog, entry.DataOffset, entry.CompSize, sourceSize)
	}
	return nil
}

// ValidateLayout checks that flags and sizes are consistent.
// Stored payloads must be exactly the plaintext length and compressed ones
// strictly shorter. Directories carry no payload.
func ValidateLayout(entry *Entry) error {
	if entry.IsDir() {
		if entry.CompSize != 0 || entry.UncompSize != 0 || entry.Flags&(baartype.FlagCompressed|baartype.FlagEncrypted) != 0 {
			return fmt.Errorf("%w: directory %q carries a payload", baartype.ErrCorruptCatalog, entry.Name)
		}
		return nil
	}
	if entry.Compressed() {
		if entry.CompSize >= entry.UncompSize {
			return fmt.Errorf("%w: compressed size %d not below %d", baartype.ErrCorruptCatalog, entry.CompSize, entry.UncompSize)
		}
		return nil
	}
	if entry.CompSize != entry.UncompSize {
		return fmt.Errorf("%w: stored size %d != %d", baartype.ErrCorruptCatalog, entry.CompSize, entry.UncompSize)
	}
	return nil
}

// ValidateAll performs all validation checks for reading an entry.
func ValidateAll(entry *Entry, sourceSize int64, maxEntrySize uint64) error {
	if err := ValidateForRead(entry, sourceSize, maxEntrySize); err != nil {
		return err
	}
	return ValidateLayout(entry)
}
