package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/service"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect or purge the transition history",
	}

	cmd.AddCommand(newHistoryListCommand(rootOpts))
	cmd.AddCommand(newHistoryClearCommand(rootOpts))

	return cmd
}

func newHistoryListCommand(rootOpts *RootOptions) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transitions, newest first",
		Long: `List recorded transitions, newest first.  --date limits the output to one
UTC calendar day.

Examples:
  doorlock-server history list
  doorlock-server history list --date 2024-03-10 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Reject a bad date before touching the database.
			if date != "" {
				if _, _, err := service.DayRange(date); err != nil {
					return WrapExitError(ExitCommandError, "invalid --date", err)
				}
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				var (
					recs []store.HistoryRecord
					err  error
				)
				if date != "" {
					recs, err = a.service.ListHistoryByDate(ctx, date)
				} else {
					recs, err = a.service.ListHistory(ctx)
				}
				if err != nil {
					if errors.Is(err, service.ErrValidation) {
						return WrapExitError(ExitCommandError, "invalid --date", err)
					}
					return WrapExitError(ExitFailure, "failed to list history", err)
				}

				entries := types.HistoryEntries(recs)
				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, types.HistoryResponse{History: entries})
				}
				writeHistoryText(out, entries)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "UTC calendar day (YYYY-MM-DD)")

	return cmd
}

func newHistoryClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "clear",
		Short:         "Delete every history record (the lock state is kept)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				n, err := a.service.ClearHistory(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to clear history", err)
				}

				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, types.MessageResponse{Message: "History cleared", Deleted: &n})
				}
				fmt.Fprintf(out, "History cleared (%d deleted)\n", n)
				return nil
			})
		},
	}
}
