package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/meigma/baar"
)

func CmdList() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list [archive]",
		Aliases: []string{"ls"},
		Short:   "List live entries",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "ID\tSIZE\tSTORED\tRATIO\tLEVEL\tFLAGS\tMODIFIED\tNAME\t")
			for _, s := range a.List() {
				fmt.Fprintf(w, "%d\t%d\t%d\t%.2f\t%s\t%s\t%s\t%s\t\n",
					s.ID, s.Size, s.StoredSize, s.Ratio(), s.Level, flagString(s), s.ModTime.Format(time.DateTime), s.Name)
			}
			return w.Flush()
		},
	}
	return cmd
}

func flagString(s baar.EntrySummary) string {
	b := []byte("---")
	if s.Dir {
		b[0] = 'd'
	}
	if s.Compressed {
		b[1] = 'c'
	}
	if s.Encrypted {
		b[2] = 'e'
	}
	return string(b)
}

func CmdAdd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [archive] [path]...",
		Short: "Add files and directory trees, creating the archive if needed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := levelFlag(cmd)
			if err != nil {
				return err
			}
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.AddPaths(cmd.Context(), sess, level, args[1:]...)
			if err != nil {
				return err
			}
			for _, s := range res.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %s: %v\n", s.Path, s.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d entries (%d replaced, %d skipped, %d bytes stored)\n",
				len(res.IDs), len(res.Replaced), len(res.Skipped), res.BytesStored)
			return nil
		},
	}
	cmd.Flags().String("level", "auto", "Compression level: auto, store, fast, balanced, best, ultra or 0-4")
	return cmd
}

func CmdRemove() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rm [archive] [id]...",
		Aliases: []string{"delete"},
		Short:   "Soft-delete entries by id",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			ids := make([]uint32, 0, len(args)-1)
			for _, arg := range args[1:] {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}

			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Delete(ids...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d entries\n", len(ids))
			return nil
		},
	}
	return cmd
}

func CmdMove() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mv [archive] [id] [new-name]",
		Aliases: []string{"rename"},
		Short:   "Rename an entry; renaming a directory moves its contents",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			id, err := parseID(args[1])
			if err != nil {
				return err
			}
			reject, err := cmd.Flags().GetBool("no-clobber")
			if err != nil {
				return err
			}
			policy := baar.RenameDisplace
			if reject {
				policy = baar.RenameReject
			}

			a, err := openArchive(cmd, args[0], baar.WithRenamePolicy(policy))
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Rename(id, args[2])
		},
	}
	cmd.Flags().Bool("no-clobber", false, "Fail instead of replacing an entry that holds the new name")
	return cmd
}

func CmdCompact() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact [archive]",
		Short: "Rewrite the archive without deleted or excluded entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			exclude, err := excludeFlag(cmd)
			if err != nil {
				return err
			}
			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			before := a.Size()
			if err := a.Compact(cmd.Context(), exclude...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "compacted %s: %d -> %d bytes\n", args[0], before, a.Size())
			return nil
		},
	}
	cmd.Flags().UintSlice("exclude", nil, "Entry ids to drop (repeatable)")
	return cmd
}

func CmdRecompress() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompress [archive]",
		Short: "Rewrite unencrypted entries at a new compression level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			level, err := levelFlag(cmd)
			if err != nil {
				return err
			}
			exclude, err := excludeFlag(cmd)
			if err != nil {
				return err
			}
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			before := a.Size()
			if err := a.Recompress(cmd.Context(), level, sess, exclude...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recompressed %s at %s: %d -> %d bytes\n", args[0], level, before, a.Size())
			return nil
		},
	}
	cmd.Flags().String("level", "balanced", "Compression level: auto, store, fast, balanced, best, ultra or 0-4")
	cmd.Flags().UintSlice("exclude", nil, "Entry ids to drop (repeatable)")
	return cmd
}

func CmdExtract() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extract [archive] [dest]",
		Aliases: []string{"x"},
		Short:   "Extract every live entry below dest",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			overwrite, err := cmd.Flags().GetBool("overwrite")
			if err != nil {
				return err
			}
			preserve, err := cmd.Flags().GetBool("preserve")
			if err != nil {
				return err
			}
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.ExtractToDir(cmd.Context(), args[1], sess,
				baar.ExtractWithOverwrite(overwrite),
				baar.ExtractWithPreserveMode(preserve),
				baar.ExtractWithPreserveTimes(preserve))
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files, %d directories (%d bytes, %d skipped)\n",
				stats.Files, stats.Dirs, stats.Bytes, stats.Skipped)
			return err
		},
	}
	cmd.Flags().Bool("overwrite", false, "Overwrite existing files")
	cmd.Flags().Bool("preserve", false, "Restore permission bits and modification times")
	return cmd
}

func CmdCat() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat [archive] [name]",
		Short: "Write one entry to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.ExtractName(cmd.Context(), baar.NormalizeName(args[1]), sess)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	return cmd
}

// errVerifyFailed makes `baar test` exit non-zero.
var errVerifyFailed = errors.New("one or more entries failed verification")

func CmdTest() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test [archive]",
		Short: "Decode every live entry and check its checksum",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			sess, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()

			a, err := openArchive(cmd, args[0])
			if err != nil {
				return err
			}
			defer a.Close()

			statuses, err := a.VerifyAll(cmd.Context(), sess)
			if err != nil {
				return err
			}
			failed := 0
			for _, st := range statuses {
				if st.OK() {
					fmt.Fprintf(cmd.OutOrStdout(), "ok    %d %s\n", st.ID, st.Name)
					continue
				}
				failed++
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %d %s: %v\n", st.ID, st.Name, st.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries, %d failed\n", len(statuses), failed)
			if failed > 0 {
				return errVerifyFailed
			}
			return nil
		},
	}
	return cmd
}

func CmdInfo() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info [file]",
		Short: "Describe an archive, or name the format of a foreign file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := mustExist(args[0]); err != nil {
				return err
			}
			h, err := baar.Open(args[0], baar.WithLogger(newLogger(cmd)))
			if err != nil {
				return err
			}
			defer h.Close()

			out := cmd.OutOrStdout()
			a, ok := h.Archive()
			if !ok {
				ff, _ := h.Foreign()
				fmt.Fprintf(out, "path:    %s\nformat:  %s\n", ff.Path, ff.Name)
				return nil
			}
			d, err := a.Digest()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "path:    %s\n", a.Path())
			fmt.Fprintf(out, "format:  %s\n", h.Format())
			fmt.Fprintf(out, "size:    %d\n", a.Size())
			fmt.Fprintf(out, "entries: %d (%d live)\n", a.Len(), a.LiveCount())
			fmt.Fprintf(out, "next id: %d\n", a.NextID())
			fmt.Fprintf(out, "cipher:  %s\n", a.CipherMode())
			fmt.Fprintf(out, "digest:  %s\n", d)
			return nil
		},
	}
	return cmd
}
