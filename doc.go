// Package baar opens single-file BAAR archives.
//
// A BAAR archive keeps named entries and their payloads in one file. Each
// payload may be compressed with one of five deflate-family levels and
// encrypted with a password-derived keystream. Entries can be appended,
// soft-deleted, renamed, compacted away and recompressed in place.
//
// [Open] inspects a path once and returns a [Handle]. For a BAAR file (or a
// missing or empty one, which becomes a new archive) the handle carries an
// open [Archive]. For a recognized foreign container such as ZIP or TAR it
// carries a [ForeignFormat] describing it; no archive operations are
// available on foreign files.
//
// # Quick Start
//
//	h, err := baar.Open("backup.baar", baar.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	a, ok := h.Archive()
//	if !ok {
//	    return fmt.Errorf("%s is a %s file", h.Path(), h.Format())
//	}
//
//	sess := baar.NewSession(password)
//	defer sess.Close()
//	res, err := a.AddPaths(ctx, sess, baar.LevelAuto, "./photos")
//
// For the engine itself, without format sniffing, use the [core] subpackage.
package baar
