// Package manifest records generated files in a SQLite database so runs
// can be audited and compared.
package manifest

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/roleforge/internal/generator"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	environment TEXT NOT NULL,
	version TEXT,
	started_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
	run_id INTEGER NOT NULL REFERENCES runs(id),
	node TEXT NOT NULL,
	role TEXT NOT NULL,
	path TEXT NOT NULL,
	source TEXT,
	tenant TEXT,
	plugins TEXT,
	size INTEGER NOT NULL,
	digest TEXT NOT NULL,
	PRIMARY KEY (run_id, path)
) WITHOUT ROWID;
CREATE INDEX IF NOT EXISTS idx_files_node ON files(run_id, node);
`

// File is one recorded file.
type File struct {
	Node string
	Role string
	// Path is relative to the environment directory, slash separated.
	Path   string
	Source string
	Tenant string
	// Plugins lists the post-processors that produced or touched the file.
	Plugins []string
	Size    int64
	Digest  string
}

// Run is one recorded generation of an environment.
type Run struct {
	ID          int64
	Environment string
	Version     string
	StartedAt   time.Time
}

// Store is a manifest database. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the manifest at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create manifest directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores every file of res as a new run and returns the run id.
func (s *Store) Record(ctx context.Context, res *generator.Result, version string) (int64, error) {
	files, err := Collect(res)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	r, err := tx.ExecContext(ctx, `INSERT INTO runs (environment, version, started_at) VALUES (?, ?, ?)`,
		res.Environment, version, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := r.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO files (run_id, node, role, path, source, tenant, plugins, size, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, runID, f.Node, f.Role, f.Path, f.Source, f.Tenant,
			strings.Join(f.Plugins, ","), f.Size, f.Digest); err != nil {
			return 0, fmt.Errorf("insert file %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// Collect lists the files of res with their size and digest.
func Collect(res *generator.Result) ([]File, error) {
	var out []File
	for _, n := range res.Nodes {
		for _, r := range n.Roles {
			for _, f := range r.Files {
				source := f.Template
				if source == "" {
					source = f.URL
				}
				for _, g := range f.Generated {
					b, err := os.ReadFile(g.File.Path)
					if err != nil {
						return nil, fmt.Errorf("read %s: %w", g.File.Path, err)
					}
					rel, err := filepath.Rel(res.Dir, g.File.Path)
					if err != nil {
						return nil, err
					}
					out = append(out, File{
						Node:    n.Node,
						Role:    f.Role,
						Path:    filepath.ToSlash(rel),
						Source:  source,
						Tenant:  f.Tenant,
						Plugins: g.Plugins,
						Size:    int64(len(b)),
						Digest:  Digest(b),
					})
				}
			}
		}
	}
	return out, nil
}

// Digest returns the hex BLAKE3 hash of b.
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// LatestRun returns the most recent run of env.
func (s *Store) LatestRun(ctx context.Context, env string) (*Run, error) {
	var (
		r       Run
		started int64
		version sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, environment, version, started_at FROM runs WHERE environment = ? ORDER BY id DESC LIMIT 1`, env,
	).Scan(&r.ID, &r.Environment, &version, &started)
	if err != nil {
		return nil, err
	}
	r.Version = version.String
	r.StartedAt = time.Unix(0, started)
	return &r, nil
}

// Files returns the files recorded for run, ordered by path.
func (s *Store) Files(ctx context.Context, runID int64) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node, role, path, source, tenant, plugins, size, digest FROM files WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []File
	for rows.Next() {
		var (
			f                       File
			source, tenant, plugins sql.NullString
		)
		if err := rows.Scan(&f.Node, &f.Role, &f.Path, &source, &tenant, &plugins, &f.Size, &f.Digest); err != nil {
			return nil, err
		}
		f.Source, f.Tenant = source.String, tenant.String
		if plugins.String != "" {
			f.Plugins = strings.Split(plugins.String, ",")
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// Changed compares two runs and returns the paths whose digest differs or
// that exist in only one of them.
func (s *Store) Changed(ctx context.Context, fromRun, toRun int64) ([]string, error) {
	before, err := s.Files(ctx, fromRun)
	if err != nil {
		return nil, err
	}
	after, err := s.Files(ctx, toRun)
	if err != nil {
		return nil, err
	}
	digests := make(map[string]string, len(before))
	for _, f := range before {
		digests[f.Path] = f.Digest
	}
	var changed []string
	for _, f := range after {
		if d, ok := digests[f.Path]; !ok || d != f.Digest {
			changed = append(changed, f.Path)
		}
		delete(digests, f.Path)
	}
	for p := range digests {
		changed = append(changed, p)
	}
	slices.Sort(changed)
	return changed, nil
}
