// Package history stores guard runs in a SQLite database so earlier results
// can be listed and compared.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/google/uuid"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound  = errors.New("run not found")
	ErrAmbiguous = errors.New("run id prefix is ambiguous")
)

// DefaultListLimit is used by ListRuns when limit is not positive
const DefaultListLimit = 20

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded invocation covering one or more suites
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Suites    int
	Passed    int
	Failed    int
	Errored   int
	Skipped   int
	ExitCode  int
	Cases     []*CaseRecord
}

// CaseRecord is the stored outcome of one case
type CaseRecord struct {
	Suite    string
	Name     string
	File     string
	Kind     string
	Line     int
	Verdict  string
	Message  string
	Duration time.Duration
}

// NewRun builds a run from suite results. The ID is assigned by RecordRun.
func NewRun(startedAt time.Time, duration time.Duration, exitCode int, results ...*runner.RunResult) *Run {
	run := &Run{
		StartedAt: startedAt,
		Duration:  duration,
		Suites:    len(results),
		ExitCode:  exitCode,
	}
	for _, res := range results {
		run.Passed += res.Passed
		run.Failed += res.Failed
		run.Errored += res.Errored
		run.Skipped += res.Skipped
		for _, cr := range res.Results {
			run.Cases = append(run.Cases, &CaseRecord{
				Suite:    res.File,
				Name:     cr.Name,
				File:     cr.File,
				Kind:     cr.Kind,
				Line:     cr.Line,
				Verdict:  cr.Verdict.String(),
				Message:  cr.Message,
				Duration: cr.Duration,
			})
		}
	}
	return run
}

// Store is a run history database
type Store struct {
	db           *sql.DB
	path         string
	queryTimeout time.Duration
}

// Open opens (creating if needed) the history database and applies the
// schema. Supported formats:
// - sqlite://path/to/history.db
// - sqlite:./history.db
// - path/to/history.db
func Open(dsn string) (*Store, error) {
	path, err := parseDSN(dsn)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	s := &Store{
		db:           db,
		path:         path,
		queryTimeout: 30 * time.Second,
	}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func parseDSN(dsn string) (string, error) {
	dsn = strings.TrimSpace(dsn)

	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		dsn = strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		dsn = strings.TrimPrefix(dsn, "sqlite:")
	case strings.Contains(dsn, "://"):
		scheme, _, _ := strings.Cut(dsn, "://")
		return "", fmt.Errorf("unsupported history scheme: %s", scheme)
	}

	if dsn == "" {
		return "", errors.New("history database path is empty")
	}
	return dsn, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	suites      INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	errored     INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	exit_code   INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS cases (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position    INTEGER NOT NULL,
	suite       TEXT NOT NULL,
	name        TEXT NOT NULL,
	file        TEXT NOT NULL,
	kind        TEXT NOT NULL,
	line        INTEGER NOT NULL,
	verdict     TEXT NOT NULL,
	message     TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
CREATE INDEX IF NOT EXISTS runs_started_at ON runs(started_at);
`

// Migrate creates the schema if it does not exist
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate history database: %w", err)
	}
	return nil
}

// RecordRun stores run and its cases in one transaction and returns the new
// run ID, which is also set on run.
func (s *Store) RecordRun(ctx context.Context, run *Run) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	id := uuid.NewString()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ns, suites, passed, failed, errored, skipped, exit_code)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.StartedAt.UTC().Format(timeLayout), int64(run.Duration),
		run.Suites, run.Passed, run.Failed, run.Errored, run.Skipped, run.ExitCode)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO cases (run_id, position, suite, name, file, kind, line, verdict, message, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare case insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range run.Cases {
		if _, err := stmt.ExecContext(ctx, id, i, c.Suite, c.Name, c.File, c.Kind, c.Line, c.Verdict, c.Message, int64(c.Duration)); err != nil {
			return "", fmt.Errorf("failed to insert case %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	run.ID = id
	return id, nil
}

const runColumns = `id, started_at, duration_ns, suites, passed, failed, errored, skipped, exit_code`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run       Run
		startedAt string
		duration  int64
	)
	if err := row.Scan(&run.ID, &startedAt, &duration, &run.Suites, &run.Passed, &run.Failed, &run.Errored, &run.Skipped, &run.ExitCode); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid start time %q: %w", startedAt, err)
	}
	run.StartedAt = t
	run.Duration = time.Duration(duration)
	return &run, nil
}

// ListRuns returns the most recent runs, newest first, without their cases
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// GetRun returns the run whose ID equals id or, failing that, the only run
// whose ID starts with id. Cases are loaded as well.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\' ORDER BY id = ? DESC LIMIT 2`,
		id, escapeLike(id)+"%", id)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var matches []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		matches = append(matches, run)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case matches[0].ID != id && len(matches) > 1:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguous, id)
	}

	run := matches[0]
	run.Cases, err = s.RunCases(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	return run, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// RunCases returns the cases of a run in recorded order
func (s *Store) RunCases(ctx context.Context, id string) ([]*CaseRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT suite, name, file, kind, line, verdict, message, duration_ns
		 FROM cases WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var cases []*CaseRecord
	for rows.Next() {
		var (
			c        CaseRecord
			duration int64
		)
		if err := rows.Scan(&c.Suite, &c.Name, &c.File, &c.Kind, &c.Line, &c.Verdict, &c.Message, &duration); err != nil {
			return nil, fmt.Errorf("failed to scan case: %w", err)
		}
		c.Duration = time.Duration(duration)
		cases = append(cases, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return cases, nil
}
