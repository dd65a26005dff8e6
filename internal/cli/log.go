package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "log",
		Short:         "Print the plain-text history log in file order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app) error {
				lines, err := a.service.ReadLog(ctx)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to read log", err)
				}

				out := cmd.OutOrStdout()
				if rootOpts.Format == "json" {
					return writeJSON(out, types.LogResponse{Log: lines})
				}
				for _, l := range lines {
					fmt.Fprintln(out, l)
				}
				return nil
			})
		},
	}
}
