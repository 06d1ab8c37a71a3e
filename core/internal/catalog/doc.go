// Package catalog provides the archive header and the in-memory catalog of
// entries, and their binary (de)serialization.
//
// The catalog lives at the end of the archive file and is rewritten wholesale
// on every mutation; the header at offset 0 points at the current copy.
// Entries keep historical write order. next_id is never stored: it is
// recomputed on load as max(id)+1, so ids cannot collide even when the file
// was produced by another writer.
package catalog
