package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aaronromeo/imappush/internal/statestore"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect or reset persisted push state",
}

var stateShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the push state of every folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		asJSON, err := cmd.Flags().GetBool("json")
		if err != nil {
			return err
		}
		store, err := openStateStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		entries, err := store.List(commandContext(cmd))
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no push state stored")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FOLDER\tSTATE\tUPDATED")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Folder, e.State, e.UpdatedAt.Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var stateResetCmd = &cobra.Command{
	Use:   "reset <folder>",
	Short: "Forget the push state of a folder so the next sync starts fresh",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStateStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close() //nolint:errcheck

		deleted, err := store.Delete(commandContext(cmd), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			fmt.Fprintf(cmd.OutOrStdout(), "no push state for %q\n", args[0])
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "push state for %q reset\n", args[0])
		return nil
	},
}

func init() {
	stateCmd.PersistentFlags().String("config", "", "Path to YAML config file (or set IMAPPUSH_CONFIG)")
	stateShowCmd.Flags().Bool("json", false, "Print entries as JSON")
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateResetCmd)
}

func openStateStore(cmd *cobra.Command) (*statestore.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return statestore.Open(cfg.State.Path)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
