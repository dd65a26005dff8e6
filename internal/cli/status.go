package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/store"
	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var set string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show or change the lock state",
		Long: `Print the current lock state.  With --set, record a transition first.

Examples:
  doorlock-server status
  doorlock-server status --set locked
  doorlock-server status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var target store.LockStatus
			if set != "" {
				if err := target.UnmarshalText([]byte(set)); err != nil {
					return WrapExitError(ExitCommandError, "invalid --set value", err)
				}
			}

			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				if target.Valid() {
					if _, err := a.service.SetState(ctx, target); err != nil {
						return WrapExitError(ExitFailure, "failed to set status", err)
					}
				}

				state, err := a.service.GetState(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read status", err)
				}

				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, types.StatusResponse{Status: state.Status.Locked()})
				}
				fmt.Fprintln(out, state.Status.String())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&set, "set", "", "record a transition first (locked|unlocked)")

	return cmd
}
