package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meigma/baar"
)

// passwordEnv supplies the password when --password is not given.
const passwordEnv = "BAAR_PASSWORD"

// NewRootCmd returns the baar command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "baar",
		Short:        "Create and maintain single-file BAAR archives",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().String("password", "", "Password for encrypted entries (default $"+passwordEnv+")")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")

	cmd.AddCommand(CmdList())
	cmd.AddCommand(CmdAdd())
	cmd.AddCommand(CmdRemove())
	cmd.AddCommand(CmdMove())
	cmd.AddCommand(CmdCompact())
	cmd.AddCommand(CmdRecompress())
	cmd.AddCommand(CmdExtract())
	cmd.AddCommand(CmdCat())
	cmd.AddCommand(CmdTest())
	cmd.AddCommand(CmdInfo())
	return cmd
}

// newLogger builds the stderr logger selected by --verbose.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// newSession returns a session for --password or $BAAR_PASSWORD.
func newSession(cmd *cobra.Command) (*baar.Session, error) {
	password, err := cmd.Flags().GetString("password")
	if err != nil {
		return nil, err
	}
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	return baar.NewSession(password), nil
}

// openArchive opens path and fails for foreign formats. opts are applied
// after the logger.
func openArchive(cmd *cobra.Command, path string, opts ...baar.Option) (*baar.Archive, error) {
	opts = append([]baar.Option{baar.WithLogger(newLogger(cmd))}, opts...)
	h, err := baar.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	a, ok := h.Archive()
	if !ok {
		ff, _ := h.Foreign()
		return nil, fmt.Errorf("%s is a %s file, not a BAAR archive", path, ff.Name)
	}
	return a, nil
}

// mustExist fails when path is missing. Opening creates missing archives;
// only add may do that.
func mustExist(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	return nil
}

// parseID parses an entry id argument.
func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid entry id %q: %w", s, err)
	}
	return uint32(id), nil
}

// excludeFlag reads the repeatable --exclude id flag.
func excludeFlag(cmd *cobra.Command) ([]uint32, error) {
	raw, err := cmd.Flags().GetUintSlice("exclude")
	if err != nil {
		return nil, err
	}
	out := make([]uint32, 0, len(raw))
	for _, id := range raw {
		if id > 1<<32-1 {
			return nil, fmt.Errorf("invalid entry id %d", id)
		}
		out = append(out, uint32(id)) //nolint:gosec // range checked above
	}
	return out, nil
}

// levelFlag reads --level.
func levelFlag(cmd *cobra.Command) (baar.Level, error) {
	s, err := cmd.Flags().GetString("level")
	if err != nil {
		return 0, err
	}
	return baar.ParseLevel(s)
}
