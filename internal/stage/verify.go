// verify.go checks a previously staged tree against its sources.
package stage

import (
	"fmt"
	"os"

	digest "github.com/opencontainers/go-digest"
)

// FileCheck reports the state of one staged artifact.
type FileCheck struct {
	Path          string        `json:"path"`
	Source        string        `json:"source"`
	Digest        digest.Digest `json:"digest"`
	Size          int64         `json:"size"`
	SourceMissing bool          `json:"sourceMissing,omitempty"`
	Match         bool          `json:"match"`
}

// VerifyResult covers both staged artifacts.
type VerifyResult struct {
	Executable FileCheck `json:"executable"`
	Config     FileCheck `json:"config"`
}

// OK reports whether every staged file matched its source (missing sources
// are tolerated: the staged copy may outlive a cleaned build tree).
func (r *VerifyResult) OK() bool {
	return r != nil && r.Executable.Match && r.Config.Match
}

// Verify confirms the staged tree exists and its files are byte-identical to
// their sources. Staged files must exist; a missing source is recorded but
// not fatal, since toolchain output directories are routinely cleaned.
func Verify(plan Plan) (*VerifyResult, error) {
	if err := plan.validate(); err != nil {
		return nil, err
	}
	exe, err := checkFile(plan.Artifact(), plan.ExecutableDest())
	if err != nil {
		return nil, fmt.Errorf("verify executable: %w", err)
	}
	conf, err := checkFile(plan.ConfigSourcePath(), plan.ConfigDest())
	if err != nil {
		return nil, fmt.Errorf("verify configuration: %w", err)
	}
	res := &VerifyResult{Executable: exe, Config: conf}
	if !res.OK() {
		return res, fmt.Errorf("staged files differ from their sources")
	}
	return res, nil
}

func checkFile(src, staged string) (FileCheck, error) {
	stagedDigest, stagedSize, err := digestFile(staged)
	if err != nil {
		return FileCheck{}, err
	}
	check := FileCheck{Path: staged, Source: src, Digest: stagedDigest, Size: stagedSize}
	srcDigest, _, err := digestFile(src)
	if err != nil {
		if os.IsNotExist(err) {
			check.SourceMissing = true
			check.Match = true
			return check, nil
		}
		return FileCheck{}, err
	}
	check.Match = srcDigest == stagedDigest
	return check, nil
}

func digestFile(path string) (digest.Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()
	dig, err := digest.Canonical.FromReader(f)
	if err != nil {
		return "", 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return "", 0, err
	}
	return dig, info.Size(), nil
}
