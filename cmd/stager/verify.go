package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/stager/internal/config"
	"github.com/example/stager/internal/platformconf"
	"github.com/example/stager/internal/stage"
)

func newVerifyCommand() *cobra.Command {
	opts := config.NewOptions()
	var jsonOut bool
	var skipConfigCheck bool
	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Verify a staged tree against its sources",
		Long:          "verify confirms the staged executable and configuration exist, match their sources byte for byte, and that the staged TOML carries the keys the platform requires at boot.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := opts.Plan()
			if err != nil {
				return err
			}
			res, verifyErr := stage.Verify(plan)

			var confReport *platformconf.Result
			if verifyErr == nil && !skipConfigCheck {
				confReport, err = platformconf.Validate(plan.ConfigDest())
				if err != nil {
					return err
				}
				if !confReport.Valid() {
					verifyErr = fmt.Errorf("staged configuration is invalid (%d problems)", len(confReport.Problems))
				}
			}

			if jsonOut {
				payload := map[string]any{"success": verifyErr == nil}
				if res != nil {
					payload["files"] = res
				}
				if confReport != nil {
					payload["config"] = confReport
				}
				if verifyErr != nil {
					payload["error"] = verifyErr.Error()
				}
				raw, _ := json.Marshal(payload)
				fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return verifyErr
			}

			if verifyErr != nil {
				if res != nil {
					printMismatch(cmd, "executable", res.Executable)
					printMismatch(cmd, "config", res.Config)
				}
				if confReport != nil {
					for _, problem := range confReport.Problems {
						fmt.Fprintf(cmd.ErrOrStderr(), "config %s: %s\n", confReport.Path, problem)
					}
				}
				return verifyErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stage %s verified (executable=%s config=%s)\n",
				plan.Output(), shortDigest(res.Executable.Digest.String()), shortDigest(res.Config.Digest.String()))
			return nil
		},
	}
	opts.BindFlags(cmd.Flags())
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print JSON output")
	cmd.Flags().BoolVar(&skipConfigCheck, "skip-config-check", false, "Skip TOML shape validation of the staged configuration")
	return cmd
}

func printMismatch(cmd *cobra.Command, what string, check stage.FileCheck) {
	if check.Match {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s differs from source %s\n", what, check.Path, check.Source)
}
