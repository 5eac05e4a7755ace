// stage.go exposes the 'stager stage' pipeline: release build plus staging copies.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/example/stager/internal/config"
	"github.com/example/stager/internal/gitinfo"
	"github.com/example/stager/internal/ledger"
	"github.com/example/stager/internal/logging"
	"github.com/example/stager/internal/platformconf"
	"github.com/example/stager/internal/stage"
	"github.com/example/stager/internal/ui"
	"github.com/example/stager/internal/version"
)

type stageFlags struct {
	dryRun         bool
	validateConfig bool
	quiet          bool
	jsonOut        bool
	noHistory      bool
	historyDB      string
}

func (f *stageFlags) bind(fs *pflag.FlagSet) {
	fs.BoolVar(&f.dryRun, "dry-run", false, "Print the staging steps in order without executing them")
	fs.BoolVar(&f.validateConfig, "validate-config", false, "Validate the staged TOML configuration after the copy step")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "Print only failures")
	fs.BoolVar(&f.jsonOut, "json", false, "Print JSON output")
	fs.BoolVar(&f.noHistory, "no-history", false, "Skip recording this run in the local history ledger")
	fs.StringVar(&f.historyDB, "history-db", "", "Path to the history database (default: user state dir)")
}

func newStageCommand(logLevel *string) *cobra.Command {
	opts := config.NewOptions()
	flags := &stageFlags{}
	cmd := &cobra.Command{
		Use:           "stage",
		Short:         "Build the platform release and stage the deployable tree",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, opts, flags, logLevel)
		},
	}
	opts.BindFlags(cmd.Flags())
	flags.bind(cmd.Flags())
	cmd.Example = `  # Stage with defaults (equivalent to bare 'stager')
  stager stage

  # Show what would run
  stager stage --dry-run

  # Stage and refuse to ship a config the platform cannot boot with
  stager stage --validate-config`
	return cmd
}

func runStage(cmd *cobra.Command, opts *config.Options, flags *stageFlags, logLevel *string) error {
	if flags.quiet && flags.jsonOut {
		return fmt.Errorf("--quiet and --json are mutually exclusive")
	}
	log, err := logging.New(*logLevel)
	if err != nil {
		return err
	}
	defer log.Sync()
	log.Debug("starting stage run", zap.String("stager", version.Get().Short()))

	plan, err := opts.Plan()
	if err != nil {
		return err
	}
	if flags.dryRun {
		for _, step := range plan.Steps() {
			fmt.Fprintln(cmd.OutOrStdout(), step)
		}
		return nil
	}

	console := ui.NewStageConsole(cmd.ErrOrStderr(), flags.quiet || flags.jsonOut)
	runner := &stage.Runner{
		Plan:        plan,
		Progress:    console,
		Log:         log,
		BuildOutput: cmd.ErrOrStderr(),
	}
	started := time.Now()
	res, runErr := runner.Run(cmd.Context())
	if runErr == nil && flags.validateConfig {
		// Validation runs after the copy step so the partial-staging
		// semantics stay intact, but its outcome is still part of the run.
		runErr = validateStagedConfig(console, plan.ConfigDest())
	}
	if !flags.noHistory {
		recordRun(cmd.Context(), log, flags.historyDB, plan, res, started, runErr)
	}
	if runErr != nil {
		return runErr
	}

	if flags.jsonOut {
		raw, _ := json.Marshal(map[string]any{
			"success": true,
			"executable": map[string]any{
				"path":   res.Executable.Path,
				"digest": res.Executable.Digest.String(),
				"size":   res.Executable.Size,
			},
			"config": map[string]any{
				"path":   res.Config.Path,
				"digest": res.Config.Digest.String(),
				"size":   res.Config.Size,
			},
			"durationSeconds": res.Duration.Seconds(),
		})
		fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return nil
	}
	console.Successf("staged %s to %s (executable %s, config %s)",
		plan.ModuleName, plan.Output(),
		shortDigest(res.Executable.Digest.String()), shortDigest(res.Config.Digest.String()))
	return nil
}

func validateStagedConfig(console *ui.StageConsole, path string) error {
	report, err := platformconf.Validate(path)
	if err != nil {
		return err
	}
	if !report.Valid() {
		for _, problem := range report.Problems {
			console.Failf("%s: %s", report.Path, problem)
		}
		return fmt.Errorf("staged configuration is invalid (%d problems)", len(report.Problems))
	}
	return nil
}

// recordRun appends the run to the local ledger. Bookkeeping must never fail
// a stage that already succeeded, so every error here is only logged.
func recordRun(ctx context.Context, log *zap.Logger, path string, plan stage.Plan, res *stage.Result, started time.Time, runErr error) {
	var err error
	if path == "" {
		path, err = ledger.DefaultPath()
		if err != nil {
			log.Warn("history ledger unavailable", zap.Error(err))
			return
		}
	}
	l, err := ledger.Open(path)
	if err != nil {
		log.Warn("open history ledger", zap.String("path", path), zap.Error(err))
		return
	}
	defer l.Close()

	run := ledger.Run{
		StartedAt:  started,
		FinishedAt: time.Now(),
		Module:     plan.ModuleName,
		Status:     ledger.StatusSucceeded,
	}
	if commit, dirty, gitErr := gitinfo.Head(ctx, plan.ModuleDir); gitErr == nil {
		run.GitCommit = commit
		run.GitDirty = dirty
	}
	if runErr != nil {
		run.Status = ledger.StatusFailed
		run.Error = runErr.Error()
	}
	if res != nil {
		run.Artifacts = []ledger.Artifact{
			{Path: res.Executable.Path, Digest: res.Executable.Digest.String(), Size: res.Executable.Size},
			{Path: res.Config.Path, Digest: res.Config.Digest.String(), Size: res.Config.Size},
		}
	}
	if _, err := l.Record(run); err != nil {
		log.Warn("record stage run", zap.Error(err))
	}
}

func shortDigest(d string) string {
	if i := strings.IndexByte(d, ':'); i >= 0 && len(d) > i+13 {
		return d[:i+13]
	}
	return d
}
