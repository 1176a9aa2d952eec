package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/davisjt/quantcloud/internal/model"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS projects (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    name      TEXT NOT NULL,
    language  TEXT NOT NULL,
    created   DATETIME NOT NULL,
    modified  DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS files (
    project_id INTEGER NOT NULL,
    name       TEXT NOT NULL,
    content    TEXT NOT NULL,
    modified   DATETIME NOT NULL,
    PRIMARY KEY (project_id, name)
);
CREATE TABLE IF NOT EXISTS compiles (
    id         TEXT PRIMARY KEY,
    project_id INTEGER NOT NULL,
    state      TEXT NOT NULL,
    logs       TEXT NOT NULL,
    success    INTEGER NOT NULL,
    errors     TEXT NOT NULL,
    created    DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS backtests (
    id         TEXT PRIMARY KEY,
    project_id INTEGER NOT NULL,
    compile_id TEXT NOT NULL,
    name       TEXT NOT NULL,
    note       TEXT NOT NULL,
    completed  INTEGER NOT NULL,
    progress   REAL NOT NULL,
    result     TEXT NOT NULL,
    error      TEXT NOT NULL,
    stacktrace TEXT NOT NULL,
    created    DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS live (
    id         TEXT PRIMARY KEY,
    project_id INTEGER NOT NULL,
    status     TEXT NOT NULL,
    launched   DATETIME NOT NULL,
    stopped    DATETIME,
    logs       TEXT NOT NULL
)`

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite. Single-statement updates make
// every job mutation atomic for concurrent readers, and WAL mode keeps
// snapshot reads from blocking behind runner writes.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and creates the schema.
// Use ":memory:" for an isolated throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// An in-memory database exists per connection; cap the pool at one so
	// every caller observes the same data.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range splitSchema() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// splitSchema breaks the schema into individual statements; the driver
// executes one statement per Exec call.
func splitSchema() []string {
	var stmts []string
	start := 0
	for i := 0; i < len(schema); i++ {
		if schema[i] == ';' {
			stmts = append(stmts, schema[start:i])
			start = i + 1
		}
	}
	return append(stmts, schema[start:])
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProject inserts a project and assigns its sequential id.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO projects (name, language, created, modified) VALUES (?, ?, ?, ?)",
		p.Name, p.Language, p.Created, p.Modified,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("project id: %w", err)
	}
	p.ProjectID = int(id)
	return nil
}

// GetProject retrieves a project by id.
func (s *SQLiteStore) GetProject(ctx context.Context, id int) (*model.Project, error) {
	p := &model.Project{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, language, created, modified FROM projects WHERE id = ?", id,
	).Scan(&p.ProjectID, &p.Name, &p.Language, &p.Created, &p.Modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by id.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, language, created, modified FROM projects ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ProjectID, &p.Name, &p.Language, &p.Created, &p.Modified); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return projects, nil
}

// PutFile inserts or replaces a project file.
func (s *SQLiteStore) PutFile(ctx context.Context, projectID int, f *model.ProjectFile) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO files (project_id, name, content, modified) VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, name) DO UPDATE SET content = excluded.content, modified = excluded.modified`,
		projectID, f.Name, f.Content, f.Modified,
	)
	if err != nil {
		return fmt.Errorf("put file: %w", err)
	}
	return nil
}

// GetFile retrieves a project file by name.
func (s *SQLiteStore) GetFile(ctx context.Context, projectID int, name string) (*model.ProjectFile, error) {
	f := &model.ProjectFile{}
	err := s.db.QueryRowContext(ctx,
		"SELECT name, content, modified FROM files WHERE project_id = ? AND name = ?",
		projectID, name,
	).Scan(&f.Name, &f.Content, &f.Modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	return f, nil
}

// ListFiles returns all files of a project ordered by name.
func (s *SQLiteStore) ListFiles(ctx context.Context, projectID int) ([]*model.ProjectFile, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, content, modified FROM files WHERE project_id = ? ORDER BY name", projectID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []*model.ProjectFile
	for rows.Next() {
		f := &model.ProjectFile{}
		if err := rows.Scan(&f.Name, &f.Content, &f.Modified); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}
	return files, nil
}

// CreateCompile inserts a new compile job record.
func (s *SQLiteStore) CreateCompile(ctx context.Context, c *model.Compile) error {
	logs, err := json.Marshal(c.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	errs, err := json.Marshal(c.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO compiles (id, project_id, state, logs, success, errors, created) VALUES (?, ?, ?, ?, ?, ?, ?)",
		c.CompileID, c.ProjectID, c.State, string(logs), c.Success, string(errs), c.Created,
	)
	if err != nil {
		return fmt.Errorf("insert compile: %w", err)
	}
	return nil
}

// GetCompile retrieves a compile job record by id.
func (s *SQLiteStore) GetCompile(ctx context.Context, id string) (*model.Compile, error) {
	c := &model.Compile{}
	var logs, errs string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, state, logs, success, errors, created FROM compiles WHERE id = ?", id,
	).Scan(&c.CompileID, &c.ProjectID, &c.State, &logs, &c.Success, &errs, &c.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get compile: %w", err)
	}
	if err := json.Unmarshal([]byte(logs), &c.Logs); err != nil {
		return nil, fmt.Errorf("unmarshal logs: %w", err)
	}
	if err := json.Unmarshal([]byte(errs), &c.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	return c, nil
}

// FinishCompile transitions a compile to BuildSuccess and appends the given
// log line. The read-validate-write runs in one transaction so readers only
// ever see the record before or after the whole transition.
func (s *SQLiteStore) FinishCompile(ctx context.Context, id, logLine string) error {
	return s.transitionCompile(ctx, id, model.CompileStateBuildSuccess, logLine, nil)
}

// FailCompile transitions a compile to BuildError, recording the message in
// both the error list and the logs.
func (s *SQLiteStore) FailCompile(ctx context.Context, id, message string) error {
	return s.transitionCompile(ctx, id, model.CompileStateBuildError, message, []string{message})
}

func (s *SQLiteStore) transitionCompile(ctx context.Context, id, to, logLine string, errList []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var state, rawLogs string
	err = tx.QueryRowContext(ctx, "SELECT state, logs FROM compiles WHERE id = ?", id).Scan(&state, &rawLogs)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read compile state: %w", err)
	}
	if !model.ValidCompileTransition(state, to) {
		return ErrInvalidTransition
	}

	var logLines []string
	if err := json.Unmarshal([]byte(rawLogs), &logLines); err != nil {
		return fmt.Errorf("unmarshal logs: %w", err)
	}
	logs, err := json.Marshal(append(logLines, logLine))
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}

	success := to == model.CompileStateBuildSuccess
	if errList == nil {
		errList = []string{}
	}
	errs, err := json.Marshal(errList)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE compiles SET state = ?, logs = ?, success = ?, errors = ? WHERE id = ?",
		to, string(logs), success, string(errs), id,
	); err != nil {
		return fmt.Errorf("update compile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit compile transition: %w", err)
	}
	return nil
}

// CreateBacktest inserts a new backtest job record.
func (s *SQLiteStore) CreateBacktest(ctx context.Context, b *model.Backtest) error {
	result, err := json.Marshal(b.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO backtests (id, project_id, compile_id, name, note, completed, progress, result, error, stacktrace, created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.BacktestID, b.ProjectID, b.CompileID, b.Name, b.Note,
		b.Completed, b.Progress, string(result), b.Error, b.Stacktrace, b.Created,
	)
	if err != nil {
		return fmt.Errorf("insert backtest: %w", err)
	}
	return nil
}

// GetBacktest retrieves a backtest job record by id.
func (s *SQLiteStore) GetBacktest(ctx context.Context, id string) (*model.Backtest, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, compile_id, name, note, completed, progress, result, error, stacktrace, created
		FROM backtests WHERE id = ?`, id)
	b, err := scanBacktest(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// ListBacktests returns all backtests of a project ordered by creation time.
func (s *SQLiteStore) ListBacktests(ctx context.Context, projectID int) ([]*model.Backtest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, compile_id, name, note, completed, progress, result, error, stacktrace, created
		FROM backtests WHERE project_id = ? ORDER BY created`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list backtests: %w", err)
	}
	defer rows.Close()

	var backtests []*model.Backtest
	for rows.Next() {
		b, err := scanBacktest(rows.Scan)
		if err != nil {
			return nil, err
		}
		backtests = append(backtests, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtests: %w", err)
	}
	return backtests, nil
}

func scanBacktest(scan func(...any) error) (*model.Backtest, error) {
	b := &model.Backtest{}
	var result string
	err := scan(&b.BacktestID, &b.ProjectID, &b.CompileID, &b.Name, &b.Note,
		&b.Completed, &b.Progress, &result, &b.Error, &b.Stacktrace, &b.Created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan backtest: %w", err)
	}
	if err := json.Unmarshal([]byte(result), &b.Result); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}

	// success and errors are derived from the error column rather than stored.
	b.Success = b.Error == ""
	b.Errors = []string{}
	if b.Error != "" {
		b.Errors = []string{b.Error}
	}
	return b, nil
}

// SetBacktestProgress advances the progress of a non-terminal backtest. The
// guard clause keeps progress monotonic and rejects updates after the
// terminal write has landed.
func (s *SQLiteStore) SetBacktestProgress(ctx context.Context, id string, progress float64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE backtests SET progress = ? WHERE id = ? AND completed = 0 AND error = '' AND progress <= ?",
		progress, id, progress,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return s.checkBacktestWrite(ctx, res, id)
}

// CompleteBacktest marks a backtest completed with the final result payload.
// completed, progress and result land in one statement, so no reader ever
// observes completion without the result or vice versa.
func (s *SQLiteStore) CompleteBacktest(ctx context.Context, id string, result *model.BacktestResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE backtests SET completed = 1, progress = 1.0, result = ? WHERE id = ? AND completed = 0 AND error = ''",
		string(payload), id,
	)
	if err != nil {
		return fmt.Errorf("complete backtest: %w", err)
	}
	return s.checkBacktestWrite(ctx, res, id)
}

// FailBacktest records a failure on a non-terminal backtest. completed stays
// false so that the completed/progress pairing invariant holds; the non-empty
// error field is what marks the record terminal.
func (s *SQLiteStore) FailBacktest(ctx context.Context, id, message, stacktrace string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE backtests SET error = ?, stacktrace = ? WHERE id = ? AND completed = 0 AND error = ''",
		message, stacktrace, id,
	)
	if err != nil {
		return fmt.Errorf("fail backtest: %w", err)
	}
	return s.checkBacktestWrite(ctx, res, id)
}

// checkBacktestWrite classifies a guarded zero-row update as either a missing
// record or a rejected transition.
func (s *SQLiteStore) checkBacktestWrite(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM backtests WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("check backtest: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrInvalidTransition
}

// CreateLive inserts a new live deployment record.
func (s *SQLiteStore) CreateLive(ctx context.Context, l *model.LiveAlgorithm) error {
	logs, err := json.Marshal(l.Logs)
	if err != nil {
		return fmt.Errorf("marshal logs: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO live (id, project_id, status, launched, stopped, logs) VALUES (?, ?, ?, ?, ?, ?)",
		l.DeployID, l.ProjectID, l.Status, l.Launched, l.Stopped, string(logs),
	)
	if err != nil {
		return fmt.Errorf("insert live deployment: %w", err)
	}
	return nil
}

// GetLive retrieves a live deployment by deploy id.
func (s *SQLiteStore) GetLive(ctx context.Context, deployID string) (*model.LiveAlgorithm, error) {
	l := &model.LiveAlgorithm{}
	var logs string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, project_id, status, launched, stopped, logs FROM live WHERE id = ?", deployID,
	).Scan(&l.DeployID, &l.ProjectID, &l.Status, &l.Launched, &l.Stopped, &logs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get live deployment: %w", err)
	}
	if err := json.Unmarshal([]byte(logs), &l.Logs); err != nil {
		return nil, fmt.Errorf("unmarshal logs: %w", err)
	}
	return l, nil
}

// ListLive returns all live deployments of a project ordered by launch time.
func (s *SQLiteStore) ListLive(ctx context.Context, projectID int) ([]*model.LiveAlgorithm, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, project_id, status, launched, stopped, logs FROM live WHERE project_id = ? ORDER BY launched",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("list live deployments: %w", err)
	}
	defer rows.Close()

	var deployments []*model.LiveAlgorithm
	for rows.Next() {
		l := &model.LiveAlgorithm{}
		var logs string
		if err := rows.Scan(&l.DeployID, &l.ProjectID, &l.Status, &l.Launched, &l.Stopped, &logs); err != nil {
			return nil, fmt.Errorf("scan live deployment: %w", err)
		}
		if err := json.Unmarshal([]byte(logs), &l.Logs); err != nil {
			return nil, fmt.Errorf("unmarshal logs: %w", err)
		}
		deployments = append(deployments, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live deployments: %w", err)
	}
	return deployments, nil
}

// StopLive moves every running deployment of a project to the given status
// and stamps the stop time.
func (s *SQLiteStore) StopLive(ctx context.Context, projectID int, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE live SET status = ?, stopped = ? WHERE project_id = ? AND status = ?",
		status, time.Now().UTC(), projectID, model.LiveStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("stop live deployments: %w", err)
	}
	return nil
}

// Counts returns per-kind entity totals.
func (s *SQLiteStore) Counts(ctx context.Context) (*EntityCounts, error) {
	c := &EntityCounts{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM projects", &c.Projects},
		{"SELECT COUNT(*) FROM compiles", &c.Compiles},
		{"SELECT COUNT(*) FROM backtests", &c.Backtests},
		{"SELECT COUNT(*) FROM live", &c.Live},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("count entities: %w", err)
		}
	}
	return c, nil
}
