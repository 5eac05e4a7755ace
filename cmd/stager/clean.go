package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/stager/internal/config"
)

func newCleanCommand() *cobra.Command {
	opts := config.NewOptions()
	cmd := &cobra.Command{
		Use:           "clean",
		Short:         "Remove the staging directory",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := opts.Plan()
			if err != nil {
				return err
			}
			out := plan.Output()
			if _, err := os.Stat(out); os.IsNotExist(err) {
				fmt.Fprintf(cmd.OutOrStdout(), "Nothing to clean: %s does not exist\n", out)
				return nil
			}
			if err := os.RemoveAll(out); err != nil {
				return fmt.Errorf("remove %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", out)
			return nil
		},
	}
	opts.BindFlags(cmd.Flags())
	return cmd
}
