package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/BrandonDHaskell/doorlock/internal/doorlock/types"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeHistoryText(w io.Writer, entries []types.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no history")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%6d  %-8s  %s  (JST %s)\n", e.ID, e.Status, e.UTCTimestamp, e.JSTTimestamp)
	}
}

// withApp loads config, opens the app for the duration of fn, and closes it.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, cfg, quietLogger(opts, cfg))
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open database", err)
	}
	defer a.Close()

	return fn(ctx, a)
}
