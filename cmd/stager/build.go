package main

import (
	"github.com/spf13/cobra"

	"github.com/example/stager/internal/config"
	"github.com/example/stager/internal/logging"
	"github.com/example/stager/internal/toolchain"
	"github.com/example/stager/internal/ui"
)

func newBuildCommand(logLevel *string) *cobra.Command {
	opts := config.NewOptions()
	var quiet bool
	cmd := &cobra.Command{
		Use:           "build",
		Short:         "Run only the release build, without staging",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := logging.New(*logLevel)
			if err != nil {
				return err
			}
			defer log.Sync()
			plan, err := opts.Plan()
			if err != nil {
				return err
			}
			console := ui.NewStageConsole(cmd.ErrOrStderr(), quiet)
			console.Step("build")
			runner := &toolchain.Runner{
				Dir:     plan.ModuleDir,
				Command: plan.BuildCommand,
				Stdout:  cmd.ErrOrStderr(),
				Stderr:  cmd.ErrOrStderr(),
			}
			if err := runner.Build(cmd.Context()); err != nil {
				return err
			}
			console.StepOK("build")
			return nil
		},
	}
	opts.BindFlags(cmd.Flags())
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only failures")
	return cmd
}
