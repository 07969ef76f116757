package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStateCmd groups commands that inspect or seed the state store.
func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspects or seeds the state store",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Prints the stored value for key",
		Args:  cobra.ExactArgs(1),
		RunE:  runStateGet,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "put <key> <value>",
		Short: "Stores value under key",
		Args:  cobra.ExactArgs(2),
		RunE:  runStatePut,
	})
	return cmd
}

func runStateGet(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	value, found, err := appInstance.Store().Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get %q: %w", args[0], err)
	}
	if !found {
		return fmt.Errorf("key %q not found", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), value)
	return nil
}

func runStatePut(cmd *cobra.Command, args []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	if err := appInstance.Store().Put(cmd.Context(), args[0], args[1]); err != nil {
		return fmt.Errorf("put %q: %w", args[0], err)
	}
	return nil
}
