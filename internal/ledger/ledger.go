// ledger.go records stage runs in a local SQLite database for 'stager history'.
package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	_ "modernc.org/sqlite"
)

const schema = `
PRAGMA journal_mode=WAL;
PRAGMA foreign_keys=ON;
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    module TEXT NOT NULL,
    git_commit TEXT,
    git_dirty INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    error TEXT
);
CREATE TABLE IF NOT EXISTS artifacts (
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    path TEXT NOT NULL,
    digest TEXT NOT NULL,
    size INTEGER NOT NULL,
    PRIMARY KEY(run_id, path)
);
`

// Run statuses stored in the ledger.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Artifact is one staged file belonging to a run.
type Artifact struct {
	Path   string
	Digest string
	Size   int64
}

// Run is one recorded staging attempt.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	Module     string
	GitCommit  string
	GitDirty   bool
	Status     string
	Error      string
	Artifacts  []Artifact
}

// Ledger wraps the history database.
type Ledger struct {
	db *sql.DB
}

// DefaultPath places the database under the user's state directory. The
// ledger deliberately lives outside the staging tree so the staged layout
// stays exactly the deployable files.
func DefaultPath() (string, error) {
	if state := os.Getenv("XDG_STATE_HOME"); state != "" {
		return filepath.Join(state, "stager", "history.db"), nil
	}
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "state", "stager", "history.db"), nil
}

// Open creates (or opens) the ledger at path, initializing the schema.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close releases database resources.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record inserts a run and its artifacts atomically, returning the run ID.
func (l *Ledger) Record(run Run) (int64, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, err
	}
	res, err := tx.Exec(`INSERT INTO runs(started_at, finished_at, module, git_commit, git_dirty, status, error)
        VALUES(?,?,?,?,?,?,?)`,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339),
		run.Module, run.GitCommit, boolToInt(run.GitDirty), run.Status, run.Error)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	for _, a := range run.Artifacts {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO artifacts(run_id, path, digest, size) VALUES(?,?,?,?)`,
			id, a.Path, a.Digest, a.Size); err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Recent returns up to limit runs, newest first, artifacts included.
func (l *Ledger) Recent(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.Query(`SELECT id, started_at, finished_at, module, git_commit, git_dirty, status, COALESCE(error, '')
        FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		var dirty int
		if err := rows.Scan(&r.ID, &started, &finished, &r.Module, &r.GitCommit, &dirty, &r.Status, &r.Error); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		r.GitDirty = dirty != 0
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range runs {
		arts, err := l.artifacts(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Artifacts = arts
	}
	return runs, nil
}

func (l *Ledger) artifacts(runID int64) ([]Artifact, error) {
	rows, err := l.db.Query(`SELECT path, digest, size FROM artifacts WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var arts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Path, &a.Digest, &a.Size); err != nil {
			return nil, err
		}
		arts = append(arts, a)
	}
	return arts, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
