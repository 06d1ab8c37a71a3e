// Package baar implements the BAAR archive engine.
//
// A BAAR file is a single-writer container:
//   - Header: 32 bytes at offset 0 holding the magic "BAAR01" and the
//     offset of the current catalog
//   - Payloads: entry bytes, each optionally deflate-compressed and
//     XOR-encrypted with a password-derived keystream
//   - Catalog: the entry list, rewritten at end of file on every mutation
//
// Append, Delete and Rename only ever write at end of file and then
// repoint the header, so an interrupted mutation leaves the previous
// catalog in effect. Compact and Recompress rebuild the file and swap it
// in by rename, keeping a backup until the new file is synced.
//
// All integers on disk are little-endian.
package baar
