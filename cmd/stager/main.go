// main.go bootstraps stager: it builds the root Cobra command and executes
// with a signal-aware context.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/example/stager/internal/config"
	"github.com/example/stager/internal/toolchain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand()
	err := rootCmd.ExecuteContext(ctx)
	handleError(err)
	if err != nil {
		os.Exit(toolchain.ExitStatus(err))
	}
}

func newRootCommand() *cobra.Command {
	opts := config.NewOptions()
	logLevel := "info"
	flags := &stageFlags{}
	cmd := &cobra.Command{
		Use:           "stager",
		Short:         "Build the platform release and stage a deployable directory",
		Long:          "stager runs the platform module's release build, then materializes a deployable tree: the executable at build/platform and its configuration at build/conf/platform_conf.toml.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bare 'stager' is the fixed single-entry-point behavior:
			// a full build-and-stage run with defaults.
			return runStage(cmd, opts, flags, &logLevel)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", logLevel, "Log level for stager output (debug, info, warn, error)")
	opts.BindFlags(cmd.Flags())
	flags.bind(cmd.Flags())

	stageCmd := newStageCommand(&logLevel)
	buildCmd := newBuildCommand(&logLevel)
	verifyCmd := newVerifyCommand()
	cleanCmd := newCleanCommand()
	historyCmd := newHistoryCommand()
	cmd.AddCommand(
		stageCmd,
		buildCmd,
		verifyCmd,
		cleanCmd,
		historyCmd,
		newVersionCommand(),
	)
	cmd.Example = `  # Build the platform in release mode and stage build/
  stager

  # Stage from another workspace into a custom directory
  stager stage --module-dir ~/src/platform -o dist

  # Check a staged tree against its sources and validate the TOML
  stager verify`
	bindViper(cmd, stageCmd, buildCmd, verifyCmd, cleanCmd, historyCmd)
	return cmd
}

func bindViper(commands ...*cobra.Command) {
	if len(commands) == 0 {
		return
	}
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("STAGER")
	v.AutomaticEnv()
	configFile := os.Getenv("STAGER_CONFIG")
	configureConfigFile(v, configFile)

	cobra.OnInitialize(func() {
		for _, cmd := range commands {
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				cobra.CheckErr(err)
			}
			if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
				cobra.CheckErr(err)
			}
		}
		if err := readConfigFile(v, configFile != ""); err != nil {
			cobra.CheckErr(err)
		}
		for _, cmd := range commands {
			flagSets := []*pflag.FlagSet{cmd.Flags(), cmd.PersistentFlags()}
			for _, fs := range flagSets {
				fs.VisitAll(func(f *pflag.Flag) {
					if f.Changed {
						return
					}
					if !v.IsSet(f.Name) {
						return
					}
					val := fmt.Sprintf("%v", v.Get(f.Name))
					if val != "" {
						_ = f.Value.Set(val)
					}
				})
			}
		}
	})
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "stager"))
	}
	if home, err := homedir.Dir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "stager"))
		add(filepath.Join(home, ".stager"))
	}
	return dirs
}

func handleError(err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, exec.ErrNotFound):
		message = fmt.Sprintf("%s\nHint: the module's build toolchain is not on PATH. Install it or override --build-command.", err)
	case errors.Is(err, context.Canceled):
		message = fmt.Sprintf("%s\nHint: staging was interrupted; the output directory may be partially staged.", err)
	}
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}
