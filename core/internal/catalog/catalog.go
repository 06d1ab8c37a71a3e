package catalog

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"math"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/codec"
	"github.com/meigma/baar/core/internal/sizing"
)

type (
	Entry    = baartype.Entry
	MetaPair = baartype.MetaPair
)

// minEntrySize is the wire size of an entry with an empty name and no metadata.
const minEntrySize = 4 + 2 + 1 + 1 + 8 + 8 + 8 + 4 + 4 + 4 + 4 + 8 + 2

// Catalog is the ordered list of entries plus the id counter.
//
// All mutations go through methods so the id and live-name lookups stay
// consistent with the entry slice.
type Catalog struct {
	entries []Entry
	nextID  uint32
	ids     map[uint32]int
	live    map[string]int
}

// New returns an empty catalog whose first allocated id is 1.
func New() *Catalog {
	return &Catalog{
		nextID: 1,
		ids:    make(map[uint32]int),
		live:   make(map[string]int),
	}
}

// Len returns the number of entries, including tombstones.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// LiveCount returns the number of entries that are not tombstoned.
func (c *Catalog) LiveCount() int {
	return len(c.live)
}

// NextID returns the id the next Allocate call will hand out.
func (c *Catalog) NextID() uint32 {
	return c.nextID
}

// Allocate reserves and returns a fresh id.
func (c *Catalog) Allocate() (uint32, error) {
	if c.nextID == math.MaxUint32 {
		return 0, fmt.Errorf("%w: entry id space exhausted", baartype.ErrSizeOverflow)
	}
	id := c.nextID
	c.nextID++
	return id, nil
}

// Entries returns a copy of every entry in catalog order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	for i := range c.entries {
		out[i] = c.entries[i].Clone()
	}
	return out
}

// Live iterates over live entries in catalog order.
func (c *Catalog) Live() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for i := range c.entries {
			if !c.entries[i].Live() {
				continue
			}
			if !yield(c.entries[i].Clone()) {
				return
			}
		}
	}
}

// ByID returns the entry with the given id, live or not.
func (c *Catalog) ByID(id uint32) (Entry, bool) {
	i, ok := c.ids[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i].Clone(), true
}

// LiveByName returns the live entry stored under name.
func (c *Catalog) LiveByName(name string) (Entry, bool) {
	i, ok := c.live[name]
	if !ok {
		return Entry{}, false
	}
	return c.entries[i].Clone(), true
}

// Append adds e at the end of the catalog.
//
// The id must be unused. A live entry must not share its name with another
// live entry; callers tombstone the prior occupant first.
func (c *Catalog) Append(e Entry) error {
	if e.ID == math.MaxUint32 {
		return fmt.Errorf("%w: entry id %d is reserved", baartype.ErrCorruptCatalog, e.ID)
	}
	if _, dup := c.ids[e.ID]; dup {
		return fmt.Errorf("%w: duplicate id %d", baartype.ErrCorruptCatalog, e.ID)
	}
	if e.Live() {
		if _, taken := c.live[e.Name]; taken {
			return fmt.Errorf("%w: %q", baartype.ErrNameCollision, e.Name)
		}
	}
	c.entries = append(c.entries, e.Clone())
	i := len(c.entries) - 1
	c.ids[e.ID] = i
	if e.Live() {
		c.live[e.Name] = i
	}
	if e.ID >= c.nextID {
		c.nextID = e.ID + 1
	}
	return nil
}

// Tombstone sets the deleted flag on a live entry.
func (c *Catalog) Tombstone(id uint32) error {
	i, err := c.liveIndex(id)
	if err != nil {
		return err
	}
	e := &c.entries[i]
	e.Flags |= baartype.FlagDeleted
	if c.live[e.Name] == i {
		delete(c.live, e.Name)
	}
	return nil
}

// SetName renames a live entry. The new name must not be held by another
// live entry.
func (c *Catalog) SetName(id uint32, name string) error {
	i, err := c.liveIndex(id)
	if err != nil {
		return err
	}
	e := &c.entries[i]
	if e.Name == name {
		return nil
	}
	if j, taken := c.live[name]; taken && j != i {
		return fmt.Errorf("%w: %q", baartype.ErrNameCollision, name)
	}
	if c.live[e.Name] == i {
		delete(c.live, e.Name)
	}
	e.Name = name
	c.live[name] = i
	return nil
}

// Relabel renames several live entries at once. Names vacated by the batch
// may be reused within it, so a directory can be moved under its own parent.
// Nothing changes unless every rename succeeds.
func (c *Catalog) Relabel(names map[uint32]string) error {
	idx := make(map[uint32]int, len(names))
	for id := range names {
		i, err := c.liveIndex(id)
		if err != nil {
			return err
		}
		idx[id] = i
	}
	taken := make(map[string]uint32, len(names))
	for id, name := range names {
		if other, dup := taken[name]; dup {
			return fmt.Errorf("%w: %q (ids %d and %d)", baartype.ErrNameCollision, name, other, id)
		}
		taken[name] = id
		if j, ok := c.live[name]; ok {
			if _, moving := names[c.entries[j].ID]; !moving {
				return fmt.Errorf("%w: %q", baartype.ErrNameCollision, name)
			}
		}
	}
	for _, i := range idx {
		if c.live[c.entries[i].Name] == i {
			delete(c.live, c.entries[i].Name)
		}
	}
	for id, i := range idx {
		c.entries[i].Name = names[id]
		c.live[names[id]] = i
	}
	return nil
}

// Clone returns an independent copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := New()
	out.entries = c.Entries()
	out.nextID = c.nextID
	for id, i := range c.ids {
		out.ids[id] = i
	}
	for name, i := range c.live {
		out.live[name] = i
	}
	return out
}

func (c *Catalog) liveIndex(id uint32) (int, error) {
	i, ok := c.ids[id]
	if !ok {
		return 0, fmt.Errorf("%w: id %d", baartype.ErrNotFound, id)
	}
	if !c.entries[i].Live() {
		return 0, fmt.Errorf("%w: id %d", baartype.ErrAlreadyDeleted, id)
	}
	return i, nil
}

// Encode serializes the catalog: a u32 count followed by each entry.
func (c *Catalog) Encode() ([]byte, error) {
	if uint64(len(c.entries)) > math.MaxUint32 {
		return nil, baartype.ErrSizeOverflow
	}
	w := codec.NewWriter(4 + len(c.entries)*(minEntrySize+32))
	w.U32(uint32(len(c.entries))) //nolint:gosec // bounded above
	for i := range c.entries {
		encodeEntry(w, &c.entries[i])
	}
	buf, err := w.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode catalog: %w", err)
	}
	return buf, nil
}

func encodeEntry(w *codec.Writer, e *Entry) {
	w.U32(e.ID)
	w.Str16(e.Name)
	w.U8(uint8(e.Flags))
	w.U8(uint8(e.Level)) //nolint:gosec // stored levels are 0..4
	w.U64(e.DataOffset)
	w.U64(e.CompSize)
	w.U64(e.UncompSize)
	w.U32(e.CRC32)
	w.U32(e.Mode)
	w.U32(e.UID)
	w.U32(e.GID)
	w.U64(uint64(e.MTime)) //nolint:gosec // two's complement round-trips
	w.U16(uint16(len(e.Meta))) //nolint:gosec // metadata lists are small
	for _, m := range e.Meta {
		w.Str16(m.Key)
		w.Str16(m.Value)
	}
}

// Write stores the encoded catalog at off and returns its length.
// Callers position off at the end of payload data and then point the
// header at off.
func (c *Catalog) Write(w io.WriterAt, off int64) (int64, error) {
	buf, err := c.Encode()
	if err != nil {
		return 0, err
	}
	if _, err := w.WriteAt(buf, off); err != nil {
		return 0, fmt.Errorf("%w: write catalog: %w", baartype.ErrIO, err)
	}
	return int64(len(buf)), nil
}

// Decode parses an encoded catalog.
func Decode(buf []byte) (*Catalog, error) {
	r := codec.NewReader(buf)
	count := r.U32()
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("%w: entry count: %w", baartype.ErrCorruptCatalog, err)
	}
	if uint64(count)*minEntrySize > uint64(r.Remaining()) { //nolint:gosec // Remaining is non-negative
		return nil, fmt.Errorf("%w: %d entries cannot fit in %d bytes: %w",
			baartype.ErrCorruptCatalog, count, r.Remaining(), codec.ErrTruncated)
	}

	c := New()
	c.entries = make([]Entry, 0, count)
	for i := uint32(0); i < count; i++ {
		e := decodeEntry(r)
		if err := r.Err(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", baartype.ErrCorruptCatalog, i, err)
		}
		if !e.Level.Valid() {
			return nil, fmt.Errorf("%w: entry %d: compression level %d", baartype.ErrCorruptCatalog, e.ID, e.Level)
		}
		// next_id must stay above every id, so the largest id is unusable.
		if e.ID == math.MaxUint32 {
			return nil, fmt.Errorf("%w: entry id %d is reserved", baartype.ErrCorruptCatalog, e.ID)
		}
		if _, dup := c.ids[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %d", baartype.ErrCorruptCatalog, e.ID)
		}
		c.entries = append(c.entries, e)
		idx := len(c.entries) - 1
		c.ids[e.ID] = idx
		if e.ID >= c.nextID {
			c.nextID = e.ID + 1
		}
		if !e.Live() {
			continue
		}
		// A later live entry shadows an earlier one with the same name. The
		// earlier one is tombstoned in memory and stays deleted once the
		// catalog is rewritten.
		if prev, ok := c.live[e.Name]; ok {
			c.entries[prev].Flags |= baartype.FlagDeleted
		}
		c.live[e.Name] = idx
	}
	return c, nil
}

func decodeEntry(r *codec.Reader) Entry {
	var e Entry
	e.ID = r.U32()
	e.Name = r.Str16()
	e.Flags = baartype.Flags(r.U8())
	e.Level = baartype.Level(r.U8()) //nolint:gosec // validated by the caller
	e.DataOffset = r.U64()
	e.CompSize = r.U64()
	e.UncompSize = r.U64()
	e.CRC32 = r.U32()
	e.Mode = r.U32()
	e.UID = r.U32()
	e.GID = r.U32()
	e.MTime = int64(r.U64()) //nolint:gosec // two's complement round-trips
	n := r.U16()
	if n > 0 {
		e.Meta = make([]MetaPair, 0, n)
		for range n {
			k := r.Str16()
			v := r.Str16()
			if r.Err() != nil {
				return e
			}
			e.Meta = append(e.Meta, MetaPair{Key: k, Value: v})
		}
	}
	return e
}

// Load reads the header and catalog of a file of the given size.
//
// A file whose header has IndexOffset 0 yields an empty catalog. On
// ErrBadMagic an empty catalog is returned alongside the error.
func Load(r io.ReaderAt, size int64) (*Catalog, Header, error) {
	h, err := ReadHeader(r, size)
	if err != nil {
		if errors.Is(err, baartype.ErrBadMagic) {
			return New(), Header{}, err
		}
		return nil, Header{}, err
	}
	if h.IndexOffset == 0 {
		return New(), h, nil
	}

	n, err := sizing.ToInt(uint64(size) - h.IndexOffset) //nolint:gosec // ReadHeader bounds IndexOffset by size
	if err != nil {
		return nil, h, err
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, int64(h.IndexOffset)); err != nil && !errors.Is(err, io.EOF) { //nolint:gosec // bounded by size
		return nil, h, fmt.Errorf("%w: read catalog: %w", baartype.ErrIO, err)
	}
	c, err := Decode(buf)
	if err != nil {
		return nil, h, err
	}
	return c, h, nil
}
