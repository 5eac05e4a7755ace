// stage.go implements the staging pipeline: release build, directory layout, artifact copies.
//
// The pipeline is strictly linear and fail-fast. The build runs first and
// nothing under the output directory is created or touched until it has
// succeeded. There is no rollback: a failure after the build leaves whatever
// partial tree existed at that point, which is accepted behavior for a local
// staging convenience.
package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	digest "github.com/opencontainers/go-digest"
	"go.uber.org/zap"

	"github.com/example/stager/internal/toolchain"
)

// ConfDirName is the configuration subdirectory inside the output tree.
const ConfDirName = "conf"

// Builder compiles the module in release mode. The concrete implementation
// is the external toolchain; tests substitute fakes.
type Builder interface {
	Build(ctx context.Context) error
}

// Progress receives step-level notifications so the CLI console stays out of
// the staging logic. A nil Progress disables reporting.
type Progress interface {
	Step(name string)
	StepOK(name string)
}

// Plan describes one staging run. Relative paths are resolved against
// ModuleDir so the tool behaves the same regardless of invocation directory.
type Plan struct {
	ModuleDir    string
	ModuleName   string
	BuildCommand []string
	ArtifactPath string
	ConfigSource string
	OutputDir    string
}

// StagedFile records one copied artifact.
type StagedFile struct {
	Source string
	Path   string
	Digest digest.Digest
	Size   int64
}

// Result summarizes a completed run.
type Result struct {
	Executable StagedFile
	Config     StagedFile
	StartedAt  time.Time
	Duration   time.Duration
}

func (p Plan) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.ModuleDir, path)
}

// Artifact returns the absolute path of the toolchain's release output.
func (p Plan) Artifact() string { return p.resolve(p.ArtifactPath) }

// ConfigSourcePath returns the absolute path of the configuration file to stage.
func (p Plan) ConfigSourcePath() string { return p.resolve(p.ConfigSource) }

// Output returns the absolute path of the staging directory.
func (p Plan) Output() string { return p.resolve(p.OutputDir) }

// ExecutableDest is the staged executable location (<output>/<module>).
func (p Plan) ExecutableDest() string { return filepath.Join(p.Output(), p.ModuleName) }

// ConfigDest is the staged configuration location (<output>/conf/<basename>).
func (p Plan) ConfigDest() string {
	return filepath.Join(p.Output(), ConfDirName, filepath.Base(p.ConfigSource))
}

// Steps lists the operations a run would perform, in order. Used by --dry-run.
func (p Plan) Steps() []string {
	return []string{
		fmt.Sprintf("build %s (%v) in %s", p.ModuleName, p.BuildCommand, p.ModuleDir),
		fmt.Sprintf("ensure directory %s", p.Output()),
		fmt.Sprintf("ensure directory %s", filepath.Join(p.Output(), ConfDirName)),
		fmt.Sprintf("copy %s -> %s", p.Artifact(), p.ExecutableDest()),
		fmt.Sprintf("copy %s -> %s", p.ConfigSourcePath(), p.ConfigDest()),
	}
}

func (p Plan) validate() error {
	switch {
	case p.ModuleName == "":
		return fmt.Errorf("stage: module name is empty")
	case p.ArtifactPath == "":
		return fmt.Errorf("stage: artifact path is empty")
	case p.ConfigSource == "":
		return fmt.Errorf("stage: configuration source is empty")
	case p.OutputDir == "":
		return fmt.Errorf("stage: output directory is empty")
	}
	return nil
}

// Runner drives one staging run.
type Runner struct {
	Plan     Plan
	Builder  Builder
	Progress Progress
	Log      *zap.Logger

	// BuildOutput receives the toolchain's own stdout/stderr when the
	// default builder is used. Nil means inherit nothing (silence).
	BuildOutput io.Writer
}

func (r *Runner) builder() Builder {
	if r.Builder != nil {
		return r.Builder
	}
	return &toolchain.Runner{
		Dir:     r.Plan.ModuleDir,
		Command: r.Plan.BuildCommand,
		Stdout:  r.BuildOutput,
		Stderr:  r.BuildOutput,
	}
}

func (r *Runner) log() *zap.Logger {
	if r.Log != nil {
		return r.Log
	}
	return zap.NewNop()
}

func (r *Runner) step(name string) {
	if r.Progress != nil {
		r.Progress.Step(name)
	}
}

func (r *Runner) stepOK(name string) {
	if r.Progress != nil {
		r.Progress.StepOK(name)
	}
}

// Run executes the pipeline: build, ensure directories, copy executable,
// copy configuration. The first failing step aborts the remainder.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	plan := r.Plan
	if err := plan.validate(); err != nil {
		return nil, err
	}
	log := r.log()
	started := time.Now()

	r.step("build")
	log.Debug("building module",
		zap.String("module", plan.ModuleName),
		zap.Strings("command", plan.BuildCommand),
		zap.String("dir", plan.ModuleDir))
	if err := r.builder().Build(ctx); err != nil {
		return nil, fmt.Errorf("build %s: %w", plan.ModuleName, err)
	}
	r.stepOK("build")

	r.step("stage")
	for _, dir := range []string{plan.Output(), filepath.Join(plan.Output(), ConfDirName)} {
		if err := ensureDir(dir); err != nil {
			return nil, err
		}
	}

	exe, err := copyFile(plan.Artifact(), plan.ExecutableDest())
	if err != nil {
		return nil, fmt.Errorf("stage executable: %w", err)
	}
	log.Debug("staged executable", zap.String("path", exe.Path), zap.String("digest", exe.Digest.String()))

	conf, err := copyFile(plan.ConfigSourcePath(), plan.ConfigDest())
	if err != nil {
		return nil, fmt.Errorf("stage configuration: %w", err)
	}
	log.Debug("staged configuration", zap.String("path", conf.Path), zap.String("digest", conf.Digest.String()))
	r.stepOK("stage")

	return &Result{
		Executable: exe,
		Config:     conf,
		StartedAt:  started,
		Duration:   time.Since(started),
	}, nil
}

// ensureDir creates dir and missing parents. It is idempotent and refuses a
// path already occupied by a non-directory.
func ensureDir(dir string) error {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		return fmt.Errorf("ensure directory %s: path exists and is not a directory", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure directory %s: %w", dir, err)
	}
	return nil
}

// copyFile copies src to dst, overwriting dst and preserving src's file mode
// so staged executables remain executable. The content digest is computed in
// the same pass.
func copyFile(src, dst string) (StagedFile, error) {
	in, err := os.Open(src)
	if err != nil {
		return StagedFile{}, err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return StagedFile{}, err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return StagedFile{}, err
	}
	dig := digest.Canonical.Digester()
	n, err := io.Copy(io.MultiWriter(out, dig.Hash()), in)
	if err != nil {
		out.Close()
		return StagedFile{}, fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return StagedFile{}, err
	}
	// O_CREATE only applies the mode to new files; keep re-runs consistent.
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		return StagedFile{}, err
	}
	return StagedFile{Source: src, Path: dst, Digest: dig.Digest(), Size: n}, nil
}
