package version

import (
	"strings"
	"testing"
)

func TestShortDefaultsOmitUnknownCommit(t *testing.T) {
	info := Info{Version: "dev", GitCommit: "unknown"}
	if got := info.Short(); got != "stager/dev" {
		t.Fatalf("Short() = %q, want %q", got, "stager/dev")
	}
}

func TestShortTruncatesCommitAndMarksDirty(t *testing.T) {
	info := Info{
		Version:      "1.4.0",
		GitCommit:    "0123456789abcdef0123456789abcdef01234567",
		GitTreeState: "dirty",
	}
	want := "stager/1.4.0+0123456789ab-dirty"
	if got := info.Short(); got != want {
		t.Fatalf("Short() = %q, want %q", got, want)
	}
}

func TestStringRendersEveryField(t *testing.T) {
	info := Info{
		Version:      "1.4.0",
		GitCommit:    "abc1234",
		GitTreeState: "clean",
		BuildDate:    "2026-08-26T00:00:00Z",
		GoVersion:    "go1.25.7",
		Platform:     "linux/amd64",
	}
	out := info.String()
	if !strings.HasPrefix(out, "stager 1.4.0\n") {
		t.Fatalf("String() missing header: %q", out)
	}
	for _, want := range []string{"abc1234 (clean)", "2026-08-26T00:00:00Z", "go1.25.7", "linux/amd64"} {
		if !strings.Contains(out, want) {
			t.Fatalf("String() missing %q: %q", want, out)
		}
	}
}

func TestGetReportsRuntimePlatform(t *testing.T) {
	info := Get()
	if info.GoVersion == "" {
		t.Fatal("Get().GoVersion is empty")
	}
	if !strings.Contains(info.Platform, "/") {
		t.Fatalf("Get().Platform = %q, want os/arch form", info.Platform)
	}
}
