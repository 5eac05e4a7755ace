// Package config defines the flag plumbing and runtime options for stager,
// translating Cobra/Viper flag values into the staging plan the pipeline
// consumes.
package config

import (
	"fmt"
	"path/filepath"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/pflag"

	"github.com/example/stager/internal/stage"
)

// Options holds all CLI configuration for the staging pipeline.
type Options struct {
	ModuleDir    string
	ModuleName   string
	BuildCommand string
	ArtifactPath string
	ConfigSource string
	OutputDir    string
}

// NewOptions returns the fixed defaults matching the platform workspace
// layout: cargo release build, binary under target/release, TOML config
// inside the module's conf directory.
func NewOptions() *Options {
	return &Options{
		ModuleDir:    ".",
		ModuleName:   "platform",
		BuildCommand: "cargo build --release",
		ArtifactPath: filepath.Join("target", "release", "platform"),
		ConfigSource: filepath.Join("platform", "conf", "platform_conf.toml"),
		OutputDir:    "build",
	}
}

// BindFlags registers the staging flags on fs.
func (o *Options) BindFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ModuleDir, "module-dir", "C", o.ModuleDir, "Workspace directory containing the platform module")
	fs.StringVar(&o.ModuleName, "module", o.ModuleName, "Name of the module to build and stage")
	fs.StringVar(&o.BuildCommand, "build-command", o.BuildCommand, "Release build command run inside the module directory")
	fs.StringVar(&o.ArtifactPath, "artifact", o.ArtifactPath, "Toolchain output executable, relative to the module directory")
	fs.StringVar(&o.ConfigSource, "config-source", o.ConfigSource, "Configuration file to stage, relative to the module directory")
	fs.StringVarP(&o.OutputDir, "output", "o", o.OutputDir, "Staging directory, relative to the module directory")
}

// Plan resolves the options into a staging plan. The build command string is
// split with shell-style word rules so quoted arguments survive.
func (o *Options) Plan() (stage.Plan, error) {
	argv, err := shellwords.Parse(o.BuildCommand)
	if err != nil {
		return stage.Plan{}, fmt.Errorf("parse build command %q: %w", o.BuildCommand, err)
	}
	if len(argv) == 0 {
		return stage.Plan{}, fmt.Errorf("build command is empty")
	}
	moduleDir, err := filepath.Abs(o.ModuleDir)
	if err != nil {
		return stage.Plan{}, fmt.Errorf("resolve module directory: %w", err)
	}
	return stage.Plan{
		ModuleDir:    moduleDir,
		ModuleName:   o.ModuleName,
		BuildCommand: argv,
		ArtifactPath: o.ArtifactPath,
		ConfigSource: o.ConfigSource,
		OutputDir:    o.OutputDir,
	}, nil
}
