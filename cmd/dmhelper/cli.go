package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dmhelper/extension/internal/combatlog"
	"github.com/dmhelper/extension/internal/database"
	gormstorage "github.com/dmhelper/extension/internal/storage/gorm"
)

func newRootCmd() *cobra.Command {
	var configDir string

	root := &cobra.Command{
		Use:           ExtensionName,
		Short:         "Chat-driven combat adjudication for tabletop sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config", ".", "directory containing "+ExtensionName+".cfg.json")

	root.AddCommand(
		newREPLCmd(&configDir),
		newVersionCmd(),
		newHistoryCmd(),
	)
	return root
}

func newREPLCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Read host commands and party chat from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*configDir)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					a.logger.Error("Shutdown failed", "error", err)
				}
			}()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.logger.Info("Starting REPL", "version", CurrentExtensionVersion)
			return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (built %s)\n", ExtensionName, CurrentExtensionVersion, BuildDate)
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var breakdown bool

	cmd := &cobra.Command{
		Use:   "history <db file|dir> [session id]",
		Short: "List sessions in a SQLite dump, or print one session's log",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
				return printDumps(cmd.OutOrStdout(), args[0])
			}
			db, err := database.OpenSQLite(args[0], zerolog.Nop())
			if err != nil {
				return err
			}
			store := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: zerolog.Nop()})

			if len(args) == 1 {
				return printSessions(cmd.OutOrStdout(), store)
			}
			id, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[1], err)
			}
			return printEntries(cmd.OutOrStdout(), store, uint(id), breakdown)
		},
	}
	cmd.Flags().BoolVar(&breakdown, "breakdown", false, "append roll, DC and damage to attack and defense lines")
	return cmd
}

func printDumps(out io.Writer, dir string) error {
	paths, err := database.DumpPaths(dir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(out, "No dumps found.")
		return nil
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}

func printSessions(out io.Writer, store *gormstorage.Backend) error {
	sessions, err := store.Sessions()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		end := "in progress"
		if s.EndTime != nil {
			end = s.EndTime.Sub(s.StartTime).Round(time.Second).String()
		}
		fmt.Fprintf(out, "%4d  %s  %-32s  dm=%s  tag=%s  %s\n",
			s.ID, s.StartTime.Format("2006-01-02 15:04"), s.Name, s.DM, s.Tag, end)
	}
	return nil
}

func printEntries(out io.Writer, store *gormstorage.Backend, sessionID uint, breakdown bool) error {
	entries, err := store.Entries(sessionID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s  %s\n", e.Timestamp.Format("15:04:05"), combatlog.Render(e, breakdown))
	}
	return nil
}
