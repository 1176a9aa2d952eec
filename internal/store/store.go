package store

import (
	"context"
	"errors"

	"github.com/davisjt/quantcloud/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrInvalidTransition is returned when a job state change is not allowed,
// e.g. finishing an already-terminal compile or advancing a completed backtest.
var ErrInvalidTransition = errors.New("invalid state transition")

// EntityCounts holds per-kind entity totals for the health endpoint.
type EntityCounts struct {
	Projects  int `json:"projects_count"`
	Compiles  int `json:"compiles_count"`
	Backtests int `json:"backtests_count"`
	Live      int `json:"live_count"`
}

// Store defines the persistence operations for projects, files and job
// records. Every mutation is a single atomic write from a reader's point of
// view: a concurrent Get never observes a half-applied update, and a Get
// following any write observes that write.
type Store interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id int) (*model.Project, error)
	ListProjects(ctx context.Context) ([]*model.Project, error)

	PutFile(ctx context.Context, projectID int, f *model.ProjectFile) error
	GetFile(ctx context.Context, projectID int, name string) (*model.ProjectFile, error)
	ListFiles(ctx context.Context, projectID int) ([]*model.ProjectFile, error)

	CreateCompile(ctx context.Context, c *model.Compile) error
	GetCompile(ctx context.Context, id string) (*model.Compile, error)
	// FinishCompile moves a queued compile to BuildSuccess and appends the
	// completion log line in the same write.
	FinishCompile(ctx context.Context, id, logLine string) error
	// FailCompile moves a queued compile to BuildError, records the message in
	// the error list and appends it to the logs in the same write.
	FailCompile(ctx context.Context, id, message string) error

	CreateBacktest(ctx context.Context, b *model.Backtest) error
	GetBacktest(ctx context.Context, id string) (*model.Backtest, error)
	ListBacktests(ctx context.Context, projectID int) ([]*model.Backtest, error)
	// SetBacktestProgress advances progress on a non-terminal backtest.
	// Progress never moves backwards.
	SetBacktestProgress(ctx context.Context, id string, progress float64) error
	// CompleteBacktest sets completed, pins progress to 1.0 and writes the
	// result payload, all in one atomic write.
	CompleteBacktest(ctx context.Context, id string, result *model.BacktestResult) error
	// FailBacktest records the failure on a non-terminal backtest. completed
	// stays false; progress keeps its last value.
	FailBacktest(ctx context.Context, id, message, stacktrace string) error

	CreateLive(ctx context.Context, l *model.LiveAlgorithm) error
	GetLive(ctx context.Context, deployID string) (*model.LiveAlgorithm, error)
	ListLive(ctx context.Context, projectID int) ([]*model.LiveAlgorithm, error)
	// StopLive moves every running deployment of a project to the given
	// terminal status.
	StopLive(ctx context.Context, projectID int, status string) error

	Counts(ctx context.Context) (*EntityCounts, error)
	Close() error
}
