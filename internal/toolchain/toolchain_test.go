package toolchain

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestBuildRunsInModuleDir(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, "fake-build.sh", "pwd\nexit 0\n")

	var out bytes.Buffer
	r := &Runner{Dir: tmp, Command: []string{script}, Stdout: &out, Stderr: &out}
	if err := r.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	got := out.String()
	want, err := filepath.EvalSymlinks(tmp)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	if !bytes.Contains([]byte(got), []byte(want)) {
		t.Fatalf("expected build to run in %s, pwd printed %q", want, got)
	}
}

func TestBuildFailurePropagatesExitStatus(t *testing.T) {
	tmp := t.TempDir()
	script := writeScript(t, tmp, "fake-build.sh", "echo boom >&2\nexit 3\n")

	r := &Runner{Dir: tmp, Command: []string{script}}
	err := r.Build(context.Background())
	if err == nil {
		t.Fatal("expected build error")
	}
	if code := ExitStatus(err); code != 3 {
		t.Fatalf("expected exit status 3, got %d", code)
	}
}

func TestBuildMissingToolchain(t *testing.T) {
	r := &Runner{Dir: t.TempDir(), Command: []string{"definitely-not-a-real-build-tool"}}
	err := r.Build(context.Background())
	if err == nil {
		t.Fatal("expected lookup error")
	}
	if code := ExitStatus(err); code != 1 {
		t.Fatalf("expected generic exit status 1, got %d", code)
	}
}

func TestBuildNoCommand(t *testing.T) {
	r := &Runner{}
	if err := r.Build(context.Background()); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestExitStatusNil(t *testing.T) {
	if code := ExitStatus(nil); code != 0 {
		t.Fatalf("expected 0 for nil error, got %d", code)
	}
}
