package ledger

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := openTestLedger(t)

	started := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	id, err := l.Record(Run{
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Module:     "platform",
		GitCommit:  "abc1234",
		GitDirty:   true,
		Status:     StatusSucceeded,
		Artifacts: []Artifact{
			{Path: "build/platform", Digest: "sha256:deadbeef", Size: 1024},
			{Path: "build/conf/platform_conf.toml", Digest: "sha256:cafef00d", Size: 128},
		},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero run id")
	}

	runs, err := l.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.Module != "platform" || run.Status != StatusSucceeded || !run.GitDirty {
		t.Fatalf("unexpected run: %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Fatalf("started_at round trip: %v", run.StartedAt)
	}
	if len(run.Artifacts) != 2 {
		t.Fatalf("expected 2 artifacts, got %d", len(run.Artifacts))
	}
	if run.Artifacts[1].Path != "build/platform" {
		t.Fatalf("artifacts should be ordered by path, got %v", run.Artifacts)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	l := openTestLedger(t)
	now := time.Now()
	for i, status := range []string{StatusFailed, StatusSucceeded} {
		_, err := l.Record(Run{
			StartedAt:  now.Add(time.Duration(i) * time.Minute),
			FinishedAt: now.Add(time.Duration(i)*time.Minute + 5*time.Second),
			Module:     "platform",
			Status:     status,
		})
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	runs, err := l.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != StatusSucceeded {
		t.Fatalf("expected only the newest run, got %+v", runs)
	}
}

func TestRecordFailedRunKeepsError(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.Record(Run{
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Module:     "platform",
		Status:     StatusFailed,
		Error:      "build platform: exit status 101",
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	runs, err := l.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if runs[0].Error != "build platform: exit status 101" {
		t.Fatalf("error column round trip: %q", runs[0].Error)
	}
}

func TestDefaultPathHonorsXDGStateHome(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	want := filepath.Join("/tmp/state", "stager", "history.db")
	if path != want {
		t.Fatalf("expected %s, got %s", want, path)
	}
}
